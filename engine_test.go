package ixion_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ixion-engine/ixion"
	"github.com/ixion-engine/ixion/address"
	"github.com/ixion-engine/ixion/model"
	"github.com/ixion-engine/ixion/value"
)

func newTestEngine(t *testing.T, threads int) *ixion.Engine {
	t.Helper()
	cfg := ixion.DefaultConfig()
	cfg.ThreadCount = threads
	eng := ixion.New(cfg)
	eng.AddSheet("Sheet1", 100, 100)
	return eng
}

func cell(row, col int) address.CellAddress {
	return address.CellAddress{Sheet: 0, Row: row, Col: col}
}

func numberAt(t *testing.T, eng *ixion.Engine, addr address.CellAddress) float64 {
	t.Helper()
	result := eng.Context().CellScalar(addr)
	require.Equal(t, value.TypeNumber, result.Type, "cell %v: %v", addr, result)
	return result.Number
}

func errorAt(t *testing.T, eng *ixion.Engine, addr address.CellAddress) value.ErrorKind {
	t.Helper()
	result := eng.Context().CellScalar(addr)
	require.Equal(t, value.TypeError, result.Type, "cell %v: %v", addr, result)
	return result.Err
}

func TestBasicArithmetic(t *testing.T) {
	eng := newTestEngine(t, 0)
	eng.SetNumber(cell(0, 0), 1) // A1
	eng.SetNumber(cell(1, 0), 2) // A2
	require.NoError(t, eng.SetFormulaText(cell(2, 0), "A1+A2*3"))
	eng.CalculateAll()
	assert.Equal(t, 7.0, numberAt(t, eng, cell(2, 0)))
}

func TestDivisionByZero(t *testing.T) {
	eng := newTestEngine(t, 0)
	eng.SetNumber(cell(0, 0), 0)
	require.NoError(t, eng.SetFormulaText(cell(1, 0), "1/A1"))
	eng.CalculateAll()
	assert.Equal(t, value.DivisionByZero, errorAt(t, eng, cell(1, 0)))
	assert.Equal(t, "#DIV/0!", eng.Context().CellScalar(cell(1, 0)).String())
}

func TestSelfReference(t *testing.T) {
	eng := newTestEngine(t, 0)
	require.NoError(t, eng.SetFormulaText(cell(0, 0), "A1+1"))
	eng.CalculateAll()
	assert.Equal(t, value.RefResultNotAvailable, errorAt(t, eng, cell(0, 0)))
}

func TestCycleOfThree(t *testing.T) {
	eng := newTestEngine(t, 0)
	require.NoError(t, eng.SetFormulaText(cell(0, 0), "A2")) // A1 = A2
	require.NoError(t, eng.SetFormulaText(cell(1, 0), "A3")) // A2 = A3
	require.NoError(t, eng.SetFormulaText(cell(2, 0), "A1")) // A3 = A1
	eng.SetNumber(cell(0, 1), 42)                            // B1, unrelated
	require.NoError(t, eng.SetFormulaText(cell(1, 1), "B1*2"))
	eng.CalculateAll()

	for row := 0; row < 3; row++ {
		assert.Equal(t, value.RefResultNotAvailable, errorAt(t, eng, cell(row, 0)), "A%d", row+1)
	}
	assert.Equal(t, 84.0, numberAt(t, eng, cell(1, 1)), "unrelated cell must still evaluate")
}

func TestMixedComparisonNumberBelowString(t *testing.T) {
	eng := newTestEngine(t, 0)
	eng.SetString(cell(0, 0), "foo")
	require.NoError(t, eng.SetFormulaText(cell(1, 0), "1<A1"))
	eng.CalculateAll()
	assert.Equal(t, 1.0, numberAt(t, eng, cell(1, 0)))
}

func TestSumOverRange(t *testing.T) {
	eng := newTestEngine(t, 0)
	eng.SetNumber(cell(0, 0), 1)
	eng.SetNumber(cell(1, 0), 2)
	eng.SetNumber(cell(2, 0), 3)
	require.NoError(t, eng.SetFormulaText(cell(0, 1), "SUM(A1:A3)"))
	eng.CalculateAll()
	assert.Equal(t, 6.0, numberAt(t, eng, cell(0, 1)))
}

func TestRecalculateOnEdit(t *testing.T) {
	eng := newTestEngine(t, 0)
	eng.SetNumber(cell(0, 0), 10)
	require.NoError(t, eng.SetFormulaText(cell(1, 0), "A1*2"))
	require.NoError(t, eng.SetFormulaText(cell(2, 0), "A2+5"))
	eng.CalculateAll()
	require.Equal(t, 25.0, numberAt(t, eng, cell(2, 0)))

	eng.SetNumber(cell(0, 0), 20)
	eng.Calculate(cell(0, 0))
	assert.Equal(t, 40.0, numberAt(t, eng, cell(1, 0)))
	assert.Equal(t, 45.0, numberAt(t, eng, cell(2, 0)))
}

func TestSharedFormulaReanchorsRelativeRefs(t *testing.T) {
	eng := newTestEngine(t, 0)
	eng.SetNumber(cell(0, 0), 1)
	eng.SetNumber(cell(1, 0), 2)
	eng.SetNumber(cell(2, 0), 3)
	// B1:B3 share "A1*10"; each row reads its own column-A neighbor.
	rng := address.RangeAddress{First: cell(0, 1), Last: cell(2, 1)}
	require.NoError(t, eng.SetSharedFormulaText(rng, "A1*10"))
	eng.CalculateAll()

	assert.Equal(t, 10.0, numberAt(t, eng, cell(0, 1)))
	assert.Equal(t, 20.0, numberAt(t, eng, cell(1, 1)))
	assert.Equal(t, 30.0, numberAt(t, eng, cell(2, 1)))
}

func TestNamedExpressionEvaluatesAndGuardsRecursion(t *testing.T) {
	eng := newTestEngine(t, 0)
	ctx := eng.Context()

	// Absolute refs, so the expansion reads A1 no matter which cell
	// evaluates the name.
	tokens, err := ixion.ParseFormulaString(ctx, cell(0, 0), ixion.DefaultConfig().Dialect, "$A$1+1")
	require.NoError(t, err)
	ctx.DefineNamedExpression(ixion.GlobalScope, "PlusOne", tokens)

	eng.SetNumber(cell(0, 0), 9)
	require.NoError(t, eng.SetFormulaText(cell(1, 0), "PlusOne*2"))
	eng.CalculateAll()
	assert.Equal(t, 20.0, numberAt(t, eng, cell(1, 0)))

	// Mutually recursive names fail with invalid_expression.
	n1, err := ixion.ParseFormulaString(ctx, cell(0, 0), ixion.DefaultConfig().Dialect, "Name2+1")
	require.NoError(t, err)
	n2, err := ixion.ParseFormulaString(ctx, cell(0, 0), ixion.DefaultConfig().Dialect, "Name1+1")
	require.NoError(t, err)
	ctx.DefineNamedExpression(ixion.GlobalScope, "Name1", n1)
	ctx.DefineNamedExpression(ixion.GlobalScope, "Name2", n2)
	require.NoError(t, eng.SetFormulaText(cell(2, 0), "Name1"))
	eng.CalculateAll()
	assert.Equal(t, value.InvalidExpression, errorAt(t, eng, cell(2, 0)))
}

func TestSheetLocalNamedExpressionWins(t *testing.T) {
	eng := newTestEngine(t, 0)
	ctx := eng.Context()

	global, err := ixion.ParseFormulaString(ctx, cell(0, 0), ixion.DefaultConfig().Dialect, "100")
	require.NoError(t, err)
	local, err := ixion.ParseFormulaString(ctx, cell(0, 0), ixion.DefaultConfig().Dialect, "7")
	require.NoError(t, err)
	ctx.DefineNamedExpression(ixion.GlobalScope, "Rate", global)
	ctx.DefineNamedExpression(0, "Rate", local)

	require.NoError(t, eng.SetFormulaText(cell(0, 0), "Rate"))
	eng.CalculateAll()
	assert.Equal(t, 7.0, numberAt(t, eng, cell(0, 0)))
}

func TestParseFailureLeavesEmptyTokenStream(t *testing.T) {
	eng := newTestEngine(t, 0)
	err := eng.SetFormulaText(cell(0, 0), `"unterminated`)
	require.Error(t, err)
	require.Equal(t, model.CellFormula, eng.Context().GetCellType(cell(0, 0)))

	eng.CalculateAll()
	// An empty token stream evaluates to general_error rather than crashing.
	assert.Equal(t, value.GeneralError, errorAt(t, eng, cell(0, 0)))
}

// buildChainModel populates a grid where each formula depends on the
// previous column, so parallel evaluation has real ordering constraints.
func buildChainModel(t *testing.T, eng *ixion.Engine, rows, cols int) {
	t.Helper()
	for row := 0; row < rows; row++ {
		eng.SetNumber(cell(row, 0), float64(row+1))
		for col := 1; col < cols; col++ {
			prev := address.EncodeColumn(col - 1)
			require.NoError(t, eng.SetFormulaText(cell(row, col),
				fmt.Sprintf("%s%d*2+1", prev, row+1)))
		}
	}
}

func TestParallelMatchesSerialReference(t *testing.T) {
	const rows, cols = 8, 6

	serial := newTestEngine(t, 0)
	buildChainModel(t, serial, rows, cols)
	serial.CalculateAll()

	for _, workers := range []int{1, 2, 4} {
		parallel := newTestEngine(t, workers)
		buildChainModel(t, parallel, rows, cols)
		parallel.CalculateAll()

		for row := 0; row < rows; row++ {
			for col := 1; col < cols; col++ {
				want := serial.Context().CellScalar(cell(row, col))
				got := parallel.Context().CellScalar(cell(row, col))
				assert.Equal(t, want, got, "workers=%d cell (%d,%d)", workers, row, col)
			}
		}
	}
}

func TestDirtyCellsIsListenerClosure(t *testing.T) {
	eng := newTestEngine(t, 0)
	eng.SetNumber(cell(0, 0), 1)
	require.NoError(t, eng.SetFormulaText(cell(1, 0), "A1+1")) // A2
	require.NoError(t, eng.SetFormulaText(cell(2, 0), "A2+1")) // A3
	require.NoError(t, eng.SetFormulaText(cell(0, 5), "99"))   // F1, unrelated

	dirty := ixion.DirtyCells(eng.Context(), eng.Context().Listeners(), []address.CellAddress{cell(0, 0)})
	set := make(map[address.CellAddress]bool)
	for _, addr := range dirty {
		set[addr] = true
	}
	assert.True(t, set[cell(1, 0)])
	assert.True(t, set[cell(2, 0)])
	assert.False(t, set[cell(0, 5)], "unrelated formula must not be dirty")
}

func TestErrorTextRoundTrip(t *testing.T) {
	for _, kind := range []value.ErrorKind{
		value.RefResultNotAvailable,
		value.DivisionByZero,
		value.NameNotFound,
	} {
		text := kind.String()
		parsed, ok := value.ParseErrorKind(text)
		require.True(t, ok, text)
		assert.Equal(t, kind, parsed)
	}
}
