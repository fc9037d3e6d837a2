package model

import (
	"math"
	"testing"

	"github.com/ixion-engine/ixion/address"
	"github.com/ixion-engine/ixion/token"
	"github.com/ixion-engine/ixion/value"
)

func newTestContext() *MemoryContext {
	c := NewMemoryContext(DefaultConfig())
	c.AddSheet("Sheet1", 100, 100)
	return c
}

func addr(row, col int) address.CellAddress {
	return address.CellAddress{Sheet: 0, Row: row, Col: col}
}

func TestCellTypeTransitions(t *testing.T) {
	c := newTestContext()
	a := addr(0, 0)

	if got := c.GetCellType(a); got != CellEmpty {
		t.Fatalf("expected empty, got %v", got)
	}
	if !c.IsEmpty(a) {
		t.Fatal("expected IsEmpty")
	}

	c.SetNumber(a, 1.5)
	if got := c.GetCellType(a); got != CellNumeric {
		t.Fatalf("expected numeric, got %v", got)
	}
	if got := c.GetNumericValue(a); got != 1.5 {
		t.Fatalf("expected 1.5, got %v", got)
	}

	c.SetString(a, "hello")
	if got := c.GetCellType(a); got != CellString {
		t.Fatalf("expected string, got %v", got)
	}
	s, ok := c.GetString(c.GetStringIdentifier(a))
	if !ok || s != "hello" {
		t.Fatalf("expected hello, got %q ok=%v", s, ok)
	}

	c.RemoveCell(a)
	if !c.IsEmpty(a) {
		t.Fatal("expected IsEmpty after RemoveCell")
	}
}

func TestAbsoluteFlagsDoNotSplitCells(t *testing.T) {
	c := newTestContext()
	c.SetNumber(addr(0, 0), 42)

	dollar := address.CellAddress{Sheet: 0, Row: 0, Col: 0, AbsRow: true, AbsCol: true}
	if got := c.GetNumericValue(dollar); got != 42 {
		t.Fatalf("$A$1 and A1 must be the same cell, got %v", got)
	}
}

func TestStringInterningDedups(t *testing.T) {
	c := newTestContext()
	id1 := c.AddString("abc")
	id2 := c.AddString("abc")
	if id1 != id2 {
		t.Fatalf("AddString must dedup: %d vs %d", id1, id2)
	}
	id3 := c.AppendString("abc")
	if id3 == id1 {
		t.Fatal("AppendString must always create a fresh id")
	}
}

func TestStringReleaseOnOverwrite(t *testing.T) {
	c := newTestContext()
	a := addr(0, 0)
	c.SetString(a, "once")
	id := c.GetStringIdentifier(a)
	c.SetNumber(a, 1)
	if _, ok := c.GetString(id); ok {
		t.Fatal("overwriting the only string cell must release the interned text")
	}
}

func TestSharedFormulaRefCountMatchesRange(t *testing.T) {
	c := newTestContext()
	rng := address.RangeAddress{First: addr(0, 0), Last: addr(1, 1)}
	tokens := []token.FormulaToken{token.NumberToken(1)}
	c.SetSharedFormula(rng, tokens)

	id, ok := c.GetFormulaCell(addr(0, 0))
	if !ok {
		t.Fatal("expected a formula cell")
	}
	for _, a := range []address.CellAddress{addr(0, 1), addr(1, 0), addr(1, 1)} {
		otherID, ok := c.GetFormulaCell(a)
		if !ok || otherID != id {
			t.Fatalf("cell %v must share identifier %d, got %d ok=%v", a, id, otherID, ok)
		}
	}
	if got, ok := c.GetSharedFormulaRange(0, id); !ok || got != rng {
		t.Fatalf("shared range mismatch: %v ok=%v", got, ok)
	}

	// Erasing all but one sharing cell keeps the store alive; erasing the
	// last drops it.
	c.RemoveCell(addr(0, 0))
	c.RemoveCell(addr(0, 1))
	c.RemoveCell(addr(1, 0))
	if _, ok := c.GetFormulaTokens(0, id); !ok {
		t.Fatal("store must survive while one sharing cell remains")
	}
	c.RemoveCell(addr(1, 1))
	if _, ok := c.GetFormulaTokens(0, id); ok {
		t.Fatal("store must be freed once the last sharing cell is erased")
	}
}

func TestResetCellYieldsZeroValueResult(t *testing.T) {
	c := newTestContext()
	a := addr(0, 0)
	c.SetFormula(a, []token.FormulaToken{token.NumberToken(7)})
	c.InterpretCell(a)
	if got := c.CellScalar(a); got.Type != value.TypeNumber || got.Number != 7 {
		t.Fatalf("expected 7, got %v", got)
	}

	c.ResetCell(a)
	got := c.CellScalar(a)
	if got.Type != value.TypeNumber || got.Number != 0.0 {
		t.Fatalf("reset result must be value 0.0, got %v", got)
	}
}

func TestStampCircular(t *testing.T) {
	c := newTestContext()
	a := addr(0, 0)
	c.SetFormula(a, []token.FormulaToken{token.NumberToken(7)})
	c.StampCircular(a)
	got := c.CellScalar(a)
	if got.Type != value.TypeError || got.Err != value.RefResultNotAvailable {
		t.Fatalf("expected ref_result_not_available, got %v", got)
	}
}

func TestListenerTrackerPointAndRange(t *testing.T) {
	c := newTestContext()
	listener1 := addr(5, 5)
	listener2 := addr(6, 6)

	c.Listeners().Add(listener1, PointTarget(addr(0, 0)))
	c.Listeners().Add(listener2, RangeTarget(address.RangeAddress{First: addr(0, 0), Last: addr(2, 2)}))

	got := c.Listeners().GetAllListeners(addr(0, 0))
	if len(got) != 2 {
		t.Fatalf("expected both listeners, got %v", got)
	}

	got = c.Listeners().GetAllListeners(addr(1, 1))
	if len(got) != 1 || got[0] != listener2 {
		t.Fatalf("expected only the range listener, got %v", got)
	}

	c.Listeners().Remove(listener1, PointTarget(addr(0, 0)))
	got = c.Listeners().GetAllListeners(addr(0, 0))
	if len(got) != 1 || got[0] != listener2 {
		t.Fatalf("expected only the range listener after removal, got %v", got)
	}
}

func TestNamedExpressionScopes(t *testing.T) {
	c := newTestContext()
	global := []token.FormulaToken{token.NumberToken(1)}
	local := []token.FormulaToken{token.NumberToken(2)}
	c.DefineNamedExpression(address.InvalidSheet, "Rate", global)
	c.DefineNamedExpression(0, "Rate", local)

	toks, ok := c.LookupNamedExpression("Rate", addr(0, 0))
	if !ok || toks[0].Number != 2 {
		t.Fatalf("sheet-local definition must win, got %v ok=%v", toks, ok)
	}

	c2 := newTestContext()
	c2.DefineNamedExpression(address.InvalidSheet, "Rate", global)
	toks, ok = c2.LookupNamedExpression("Rate", addr(0, 0))
	if !ok || toks[0].Number != 1 {
		t.Fatalf("global definition must be found, got %v ok=%v", toks, ok)
	}
}

func TestResolveTableAreas(t *testing.T) {
	c := newTestContext()
	// Rows 0..4: header, three data rows, totals. Columns B..C.
	c.DefineTable("Sales", TableDef{
		Range:     address.RangeAddress{First: addr(0, 1), Last: addr(4, 2)},
		Columns:   []string{"Region", "Amount"},
		HasHeader: true,
		HasTotals: true,
	})

	rng, ok := c.ResolveTable(address.TableReference{Name: "Sales", ColumnFirst: "Amount"}, addr(0, 0))
	if !ok {
		t.Fatal("expected table to resolve")
	}
	if rng.First.Row != 1 || rng.Last.Row != 3 || rng.First.Col != 2 || rng.Last.Col != 2 {
		t.Fatalf("data area mismatch: %v", rng)
	}

	rng, ok = c.ResolveTable(address.TableReference{Name: "Sales", ColumnFirst: "Amount", Areas: address.AreaAll}, addr(0, 0))
	if !ok || rng.First.Row != 0 || rng.Last.Row != 4 {
		t.Fatalf("#All must span header through totals: %v ok=%v", rng, ok)
	}

	if _, ok := c.ResolveTable(address.TableReference{Name: "Nope"}, addr(0, 0)); ok {
		t.Fatal("unknown table must not resolve")
	}
}

func TestGetSheetMetadata(t *testing.T) {
	c := newTestContext()
	if n := c.SheetCount(); n != 1 {
		t.Fatalf("expected 1 sheet, got %d", n)
	}
	idx, ok := c.GetSheetIndex("Sheet1")
	if !ok || idx != 0 {
		t.Fatalf("expected index 0, got %d ok=%v", idx, ok)
	}
	name, ok := c.GetSheetName(0)
	if !ok || name != "Sheet1" {
		t.Fatalf("expected Sheet1, got %q ok=%v", name, ok)
	}
	rows, cols := c.GetSheetSize(0)
	if rows != 100 || cols != 100 {
		t.Fatalf("expected 100x100, got %dx%d", rows, cols)
	}
}

func TestGetRangeValueMixedCells(t *testing.T) {
	c := newTestContext()
	c.SetNumber(addr(0, 0), 1.5)
	c.SetString(addr(0, 1), "x")
	c.SetFormula(addr(1, 0), []token.FormulaToken{token.NumberToken(3)})
	c.InterpretCell(addr(1, 0))
	// addr(1,1) left empty.

	m := c.GetRangeValue(address.RangeAddress{First: addr(0, 0), Last: addr(1, 1)})
	rows, cols := m.Dims()
	if rows != 2 || cols != 2 {
		t.Fatalf("expected 2x2, got %dx%d", rows, cols)
	}
	if got := m.Get(0, 0); got != 1.5 {
		t.Fatalf("expected 1.5, got %v", got)
	}
	if got := m.Get(0, 1); got != "x" {
		t.Fatalf("expected x, got %v", got)
	}
	if got := m.Get(1, 0); got != 3.0 {
		t.Fatalf("expected 3, got %v", got)
	}
	if got := m.Get(1, 1); got != nil {
		t.Fatalf("expected nil for empty cell, got %v", got)
	}

	nums := m.NumericView()
	if nums[0] != 1.5 || nums[2] != 3.0 {
		t.Fatalf("numeric view mismatch: %v", nums)
	}
	if !math.IsNaN(nums[1]) || !math.IsNaN(nums[3]) {
		t.Fatalf("non-numeric cells must project to NaN: %v", nums)
	}
}
