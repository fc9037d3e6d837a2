// Package matrix implements the rectangular value container backing
// array-formula and range-valued results: a dense grid of value.Primitive
// with a numeric view that substitutes NaN for any non-numeric cell.
package matrix

import (
	"fmt"
	"math"

	"github.com/ixion-engine/ixion/value"
)

// Matrix is a dense, row-major grid of value.Primitive.
type Matrix struct {
	rows, cols int
	data       []value.Primitive
}

// New allocates a rows x cols matrix with every cell initialized to
// numeric zero.
func New(rows, cols int) *Matrix {
	if rows < 0 || cols < 0 {
		panic(fmt.Sprintf("matrix: negative dimension %dx%d", rows, cols))
	}
	data := make([]value.Primitive, rows*cols)
	for i := range data {
		data[i] = 0.0
	}
	return &Matrix{rows: rows, cols: cols, data: data}
}

// Dims returns the matrix's row and column counts.
func (m *Matrix) Dims() (rows, cols int) { return m.rows, m.cols }

func (m *Matrix) index(row, col int) int {
	if row < 0 || row >= m.rows || col < 0 || col >= m.cols {
		panic(fmt.Sprintf("matrix: index (%d,%d) out of bounds for %dx%d", row, col, m.rows, m.cols))
	}
	return row*m.cols + col
}

// Get returns the value at (row, col).
func (m *Matrix) Get(row, col int) value.Primitive { return m.data[m.index(row, col)] }

// Set stores v at (row, col).
func (m *Matrix) Set(row, col int, v value.Primitive) { m.data[m.index(row, col)] = v }

// NumericView returns a same-shaped slice where every numeric cell keeps
// its float64 value and every non-numeric cell (string, nil, or an error
// placeholder) becomes math.NaN: the numeric reduction consumers apply
// before aggregating a whole matrix.
func (m *Matrix) NumericView() []float64 {
	out := make([]float64, len(m.data))
	for i, v := range m.data {
		if n, ok := v.(float64); ok {
			out[i] = n
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// Fill overwrites every cell with v.
func (m *Matrix) Fill(v value.Primitive) {
	for i := range m.data {
		m.data[i] = v
	}
}

// Transpose returns a new cols x rows matrix with rows and columns swapped.
func (m *Matrix) Transpose() *Matrix {
	out := New(m.cols, m.rows)
	for r := 0; r < m.rows; r++ {
		for c := 0; c < m.cols; c++ {
			out.Set(c, r, m.Get(r, c))
		}
	}
	return out
}
