package function

import (
	"testing"

	"github.com/ixion-engine/ixion/address"
	"github.com/ixion-engine/ixion/value"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDeref is a minimal value.Dereferencer backed by an in-memory string
// table, enough to exercise function dispatch without pulling in package
// model.
type fakeDeref struct {
	strings []string
	cells   map[address.CellAddress]value.FormulaResult
}

func newFakeDeref() *fakeDeref {
	return &fakeDeref{cells: map[address.CellAddress]value.FormulaResult{}}
}

func (d *fakeDeref) CellScalar(addr address.CellAddress) value.FormulaResult {
	if r, ok := d.cells[addr]; ok {
		return r
	}
	return value.NumberResult(0)
}

func (d *fakeDeref) RangeScalars(rng address.RangeAddress) []value.FormulaResult {
	n := rng.Normalize()
	var out []value.FormulaResult
	for r := n.First.Row; r <= n.Last.Row; r++ {
		for c := n.First.Col; c <= n.Last.Col; c++ {
			out = append(out, d.CellScalar(address.CellAddress{Sheet: n.First.Sheet, Row: r, Col: c}))
		}
	}
	return out
}

func (d *fakeDeref) RangeValues(rng address.RangeAddress) []value.FormulaResult {
	n := rng.Normalize()
	var out []value.FormulaResult
	for r := n.First.Row; r <= n.Last.Row; r++ {
		for c := n.First.Col; c <= n.Last.Col; c++ {
			if v, ok := d.cells[address.CellAddress{Sheet: n.First.Sheet, Row: r, Col: c}]; ok {
				out = append(out, v)
			}
		}
	}
	return out
}

func (d *fakeDeref) StringAt(id uint32) string {
	if int(id) < len(d.strings) {
		return d.strings[id]
	}
	return ""
}

func (d *fakeDeref) InternString(s string) uint32 {
	for i, existing := range d.strings {
		if existing == s {
			return uint32(i)
		}
	}
	d.strings = append(d.strings, s)
	return uint32(len(d.strings) - 1)
}

func TestLookupCaseInsensitive(t *testing.T) {
	op, ok := Lookup("sum")
	require.True(t, ok)
	assert.Equal(t, Sum, op)

	op, ok = Lookup("Sum")
	require.True(t, ok)
	assert.Equal(t, Sum, op)

	_, ok = Lookup("NOPE")
	assert.False(t, ok)
}

func TestCallSum(t *testing.T) {
	s := value.NewStack()
	s.Push(value.NumberEntry(1))
	s.Push(value.NumberEntry(2))
	s.Push(value.NumberEntry(3))
	err := Call(Sum, 3, s, newFakeDeref())
	require.Equal(t, value.NoError, err)
	require.Equal(t, 1, s.Len())
	top, _ := s.Pop()
	assert.Equal(t, 6.0, top.Number)
}

func TestCallAverageEmptyIsDivisionByZero(t *testing.T) {
	s := value.NewStack()
	err := Call(Average, 0, s, newFakeDeref())
	assert.Equal(t, value.DivisionByZero, err)
	assert.Equal(t, 0, s.Len())
}

func TestCallIfBranches(t *testing.T) {
	deref := newFakeDeref()

	s := value.NewStack()
	s.Push(value.NumberEntry(1))
	s.Push(value.NumberEntry(10))
	s.Push(value.NumberEntry(20))
	require.Equal(t, value.NoError, Call(If, 3, s, deref))
	top, _ := s.Pop()
	assert.Equal(t, 10.0, top.Number)

	s.Push(value.NumberEntry(0))
	s.Push(value.NumberEntry(10))
	s.Push(value.NumberEntry(20))
	require.Equal(t, value.NoError, Call(If, 3, s, deref))
	top, _ = s.Pop()
	assert.Equal(t, 20.0, top.Number)
}

func TestCallConcatenate(t *testing.T) {
	deref := newFakeDeref()
	id := deref.InternString("world")

	s := value.NewStack()
	s.Push(value.StringEntry(deref.InternString("hello ")))
	s.Push(value.StringEntry(id))
	require.Equal(t, value.NoError, Call(Concatenate, 2, s, deref))
	top, _ := s.Pop()
	assert.Equal(t, "hello world", deref.StringAt(top.StringID))
}

func TestCallModDivisionByZero(t *testing.T) {
	s := value.NewStack()
	s.Push(value.NumberEntry(5))
	s.Push(value.NumberEntry(0))
	assert.Equal(t, value.DivisionByZero, Call(Mod, 2, s, newFakeDeref()))
}

func TestCallMedianAndMode(t *testing.T) {
	deref := newFakeDeref()

	s := value.NewStack()
	for _, n := range []float64{1, 2, 2, 3, 4} {
		s.Push(value.NumberEntry(n))
	}
	require.Equal(t, value.NoError, Call(Median, 5, s, deref))
	top, _ := s.Pop()
	assert.Equal(t, 2.0, top.Number)

	s2 := value.NewStack()
	for _, n := range []float64{1, 2, 2, 3} {
		s2.Push(value.NumberEntry(n))
	}
	require.Equal(t, value.NoError, Call(Mode, 4, s2, deref))
	top2, _ := s2.Pop()
	assert.Equal(t, 2.0, top2.Number)
}

func TestCallUnknownOpcodeIsGeneralError(t *testing.T) {
	s := value.NewStack()
	assert.Equal(t, value.GeneralError, Call(Opcode(9999), 0, s, newFakeDeref()))
}

func TestCallPropagatesArgumentError(t *testing.T) {
	s := value.NewStack()
	s.Push(value.NumberEntry(1))
	s.Push(value.NumberEntry(2))
	// SingleRef pointing at a cell whose cached result is an error.
	deref := newFakeDeref()
	addr := address.CellAddress{Sheet: 0, Row: 0, Col: 0}
	deref.cells[addr] = value.ErrorResult(value.RefResultNotAvailable)
	s.Push(value.SingleRefEntry(addr))
	assert.Equal(t, value.RefResultNotAvailable, Call(Sum, 3, s, deref))
}

func TestCallSumExpandsRangeCellByCell(t *testing.T) {
	d := newFakeDeref()
	d.cells[address.CellAddress{Sheet: 0, Row: 0, Col: 0}] = value.NumberResult(1)
	d.cells[address.CellAddress{Sheet: 0, Row: 1, Col: 0}] = value.NumberResult(2)
	d.cells[address.CellAddress{Sheet: 0, Row: 2, Col: 0}] = value.NumberResult(3)

	s := value.NewStack()
	s.Push(value.RangeRefEntry(address.RangeAddress{
		First: address.CellAddress{Sheet: 0, Row: 0, Col: 0},
		Last:  address.CellAddress{Sheet: 0, Row: 2, Col: 0},
	}))
	require.Equal(t, value.NoError, Call(Sum, 1, s, d))
	result, ok := s.PopScalar(d)
	require.True(t, ok)
	assert.Equal(t, 6.0, result.Number)
}

func TestCallMinSkipsEmptyCells(t *testing.T) {
	d := newFakeDeref()
	d.cells[address.CellAddress{Sheet: 0, Row: 0, Col: 0}] = value.NumberResult(4)
	d.cells[address.CellAddress{Sheet: 0, Row: 1, Col: 0}] = value.NumberResult(2)
	// rows 2..9 left empty; they must not drag MIN to 0.

	s := value.NewStack()
	s.Push(value.RangeRefEntry(address.RangeAddress{
		First: address.CellAddress{Sheet: 0, Row: 0, Col: 0},
		Last:  address.CellAddress{Sheet: 0, Row: 9, Col: 0},
	}))
	require.Equal(t, value.NoError, Call(Min, 1, s, d))
	result, ok := s.PopScalar(d)
	require.True(t, ok)
	assert.Equal(t, 2.0, result.Number)
}
