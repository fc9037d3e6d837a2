package model

import (
	"sync"

	"github.com/ixion-engine/ixion/address"
	"github.com/ixion-engine/ixion/interp"
	"github.com/ixion-engine/ixion/matrix"
	"github.com/ixion-engine/ixion/token"
	"github.com/ixion-engine/ixion/value"
)

// cellRecord is one cell's storage. Cells live in one flat map keyed by
// position; the refcounted string/formula interning sits underneath
// (stringTable, formulaTable below).
type cellRecord struct {
	kind      CellType
	number    float64
	stringID  uint32
	formulaID uint32
	result    value.FormulaResult
	hasResult bool
}

type sheetMeta struct {
	name       string
	rows, cols int
}

type namedKey struct {
	sheet int
	name  string
}

// TableDef registers a structured table's layout for MemoryContext's
// address.TableHandler implementation.
type TableDef struct {
	Range     address.RangeAddress // full table extent, header row through totals row
	Columns   []string             // column names left to right, matching Range's column span
	HasHeader bool
	HasTotals bool
}

// defaultSheetRows/defaultSheetCols match resolver's own fallback upper
// bounds (resolver.go upperBoundRows/upperBoundCols), used when AddSheet is
// called with rows/cols <= 0.
const (
	defaultSheetRows = 1048576
	defaultSheetCols = 16384
)

// MemoryContext is the in-memory reference implementation of Context.
// It also implements value.Dereferencer, resolver.SheetContext,
// interp.NamedExpressionLookup, interp.TableResolver, interp.StringInterner,
// address.TableHandler, and pool.CellEvaluator, so an *ixion.Engine can hand
// the same object to every subpackage that needs model access.
type MemoryContext struct {
	mu sync.RWMutex

	cfg Config

	cells    map[address.CellAddress]*cellRecord
	sheets   []sheetMeta
	sheetIdx map[string]int

	strings  *stringTable
	formulas *formulaTable
	named    map[namedKey][]token.FormulaToken
	tables   map[string]TableDef

	listeners *memoryListenerTracker

	sessionFactory func() interp.SessionHandler
}

// NewMemoryContext returns an empty context using cfg for display/parse
// conventions.
func NewMemoryContext(cfg Config) *MemoryContext {
	return &MemoryContext{
		cfg:       cfg,
		cells:     make(map[address.CellAddress]*cellRecord),
		sheetIdx:  make(map[string]int),
		strings:   newStringTable(),
		formulas:  newFormulaTable(),
		named:     make(map[namedKey][]token.FormulaToken),
		tables:    make(map[string]TableDef),
		listeners: newMemoryListenerTracker(),
	}
}

// SetSessionHandlerFactory installs a factory invoked once per
// CreateSessionHandler call, e.g. to hand back a fresh tracing collector per
// interpret. A nil factory (the default) means no session tracking.
func (c *MemoryContext) SetSessionHandlerFactory(f func() interp.SessionHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionFactory = f
}

// AddSheet registers a new sheet named name with the given bounds, returning
// its index. rows/cols of 0 fall back to the global upper bounds.
func (c *MemoryContext) AddSheet(name string, rows, cols int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rows <= 0 {
		rows = defaultSheetRows
	}
	if cols <= 0 {
		cols = defaultSheetCols
	}
	idx := len(c.sheets)
	c.sheets = append(c.sheets, sheetMeta{name: name, rows: rows, cols: cols})
	c.sheetIdx[name] = idx
	return idx
}

// DefineNamedExpression registers tokens under name, scoped to sheet
// (address.InvalidSheet for the global scope).
func (c *MemoryContext) DefineNamedExpression(sheet int, name string, tokens []token.FormulaToken) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.named[namedKey{sheet: sheet, name: name}] = tokens
}

// DefineTable registers a structured table's layout.
func (c *MemoryContext) DefineTable(name string, def TableDef) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables[name] = def
}

// Listeners exposes the context's ListenerTracker.
func (c *MemoryContext) Listeners() ListenerTracker { return c.listeners }

// --- cell mutation (engine/CLI facing, not part of model.Context) ---

func (c *MemoryContext) clearLocked(addr address.CellAddress) {
	rec, ok := c.cells[addr]
	if !ok {
		return
	}
	switch rec.kind {
	case CellString:
		c.strings.Release(rec.stringID)
	case CellFormula:
		c.formulas.Release(rec.formulaID)
	}
}

// SetNumber stores a numeric literal at addr.
func (c *MemoryContext) SetNumber(addr address.CellAddress, n float64) {
	addr = addr.Position()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked(addr)
	c.cells[addr] = &cellRecord{kind: CellNumeric, number: n}
}

// SetString stores a string literal at addr, interning its text.
func (c *MemoryContext) SetString(addr address.CellAddress, s string) {
	addr = addr.Position()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked(addr)
	id := c.strings.Intern(s)
	c.cells[addr] = &cellRecord{kind: CellString, stringID: id}
}

// SetFormula stores a parsed formula at addr, replacing whatever was there.
// The cell carries no cached result until InterpretCell runs.
func (c *MemoryContext) SetFormula(addr address.CellAddress, tokens []token.FormulaToken) {
	addr = addr.Position()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked(addr)
	id := c.formulas.Register(tokens)
	c.cells[addr] = &cellRecord{kind: CellFormula, formulaID: id}
}

// SetSharedFormula stores one parsed token stream across every cell of rng
// (a grouped/shared formula). All cells share a single refcounted store; the
// store's reference count ends up equal to the number of cells in the group,
// and relative references re-anchor per cell at interpret time because each
// cell interprets with itself as origin.
func (c *MemoryContext) SetSharedFormula(rng address.RangeAddress, tokens []token.FormulaToken) {
	n := rng.Normalize()
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.formulas.RegisterShared(tokens, n)
	for row := n.First.Row; row <= n.Last.Row; row++ {
		for col := n.First.Col; col <= n.Last.Col; col++ {
			addr := address.CellAddress{Sheet: n.First.Sheet, Row: row, Col: col}
			c.clearLocked(addr)
			c.cells[addr] = &cellRecord{kind: CellFormula, formulaID: id}
		}
	}
}

// RemoveCell clears addr back to empty, releasing any string/formula
// reference it held.
func (c *MemoryContext) RemoveCell(addr address.CellAddress) {
	addr = addr.Position()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked(addr)
	delete(c.cells, addr)
}

// GetRangeValue materializes rng as a matrix of mixed primitives: numeric
// and string cells carry their values, formula cells their cached result
// (the ErrorKind itself when errored), and empty cells nil. Callers wanting
// a purely numeric grid apply matrix.NumericView, which substitutes NaN for
// every non-numeric cell.
func (c *MemoryContext) GetRangeValue(rng address.RangeAddress) *matrix.Matrix {
	n := rng.Normalize()
	rows := n.Last.Row - n.First.Row + 1
	cols := n.Last.Col - n.First.Col + 1
	m := matrix.New(rows, cols)

	c.mu.RLock()
	defer c.mu.RUnlock()
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			addr := address.CellAddress{Sheet: n.First.Sheet, Row: n.First.Row + row, Col: n.First.Col + col}
			rec, ok := c.cells[addr]
			if !ok {
				m.Set(row, col, nil)
				continue
			}
			switch rec.kind {
			case CellNumeric:
				m.Set(row, col, rec.number)
			case CellString:
				s, _ := c.strings.Get(rec.stringID)
				m.Set(row, col, s)
			case CellFormula:
				if !rec.hasResult {
					m.Set(row, col, nil)
					continue
				}
				switch rec.result.Type {
				case value.TypeNumber:
					m.Set(row, col, rec.result.Number)
				case value.TypeString:
					s, _ := c.strings.Get(rec.result.StringID)
					m.Set(row, col, s)
				default:
					m.Set(row, col, rec.result.Err)
				}
			default:
				m.Set(row, col, nil)
			}
		}
	}
	return m
}

// FormulaCells lists every formula cell currently stored, in unspecified
// order. The engine uses it to seed a full-recalculation batch.
func (c *MemoryContext) FormulaCells() []address.CellAddress {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []address.CellAddress
	for addr, rec := range c.cells {
		if rec.kind == CellFormula {
			out = append(out, addr)
		}
	}
	return out
}

// --- pool.CellEvaluator ---

// ResetCell clears a formula cell's cached result ahead of
// reinterpretation.
func (c *MemoryContext) ResetCell(addr address.CellAddress) {
	addr = addr.Position()
	c.mu.Lock()
	defer c.mu.Unlock()
	if rec, ok := c.cells[addr]; ok && rec.kind == CellFormula {
		rec.hasResult = false
		rec.result = value.Reset()
	}
}

// StampCircular marks a formula cell's result as ref_result_not_available
// because it participates in a dependency cycle.
func (c *MemoryContext) StampCircular(addr address.CellAddress) {
	addr = addr.Position()
	c.mu.Lock()
	defer c.mu.Unlock()
	if rec, ok := c.cells[addr]; ok && rec.kind == CellFormula {
		rec.result = value.ErrorResult(value.RefResultNotAvailable)
		rec.hasResult = true
	}
}

// InterpretCell runs the interpreter against addr's stored formula tokens
// and caches the result, using addr itself as origin.
func (c *MemoryContext) InterpretCell(addr address.CellAddress) {
	addr = addr.Position()
	c.mu.RLock()
	rec, ok := c.cells[addr]
	isFormula := ok && rec.kind == CellFormula
	var tokens []token.FormulaToken
	var haveTokens bool
	factory := c.sessionFactory
	if isFormula {
		tokens, haveTokens = c.formulas.Tokens(rec.formulaID)
	}
	c.mu.RUnlock()
	if !isFormula || !haveTokens {
		return
	}

	var handler interp.SessionHandler
	if factory != nil {
		handler = factory()
	}

	result := interp.Evaluate(tokens, addr, c, c, c, handler)

	c.mu.Lock()
	if rec2, ok2 := c.cells[addr]; ok2 && rec2.kind == CellFormula {
		rec2.result = result
		rec2.hasResult = true
	}
	c.mu.Unlock()
}

// --- model.Context ---

func (c *MemoryContext) GetConfig() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg
}

func (c *MemoryContext) IsEmpty(addr address.CellAddress) bool {
	addr = addr.Position()
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.cells[addr]
	return !ok || rec.kind == CellEmpty
}

func (c *MemoryContext) GetCellType(addr address.CellAddress) CellType {
	addr = addr.Position()
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.cells[addr]
	if !ok {
		return CellEmpty
	}
	return rec.kind
}

func (c *MemoryContext) GetNumericValue(addr address.CellAddress) float64 {
	addr = addr.Position()
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.cells[addr]
	if !ok {
		return 0
	}
	switch rec.kind {
	case CellNumeric:
		return rec.number
	case CellFormula:
		if rec.hasResult && rec.result.Type == value.TypeNumber {
			return rec.result.Number
		}
	}
	return 0
}

func (c *MemoryContext) GetStringIdentifier(addr address.CellAddress) uint32 {
	addr = addr.Position()
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.cells[addr]
	if !ok {
		return 0
	}
	switch rec.kind {
	case CellString:
		return rec.stringID
	case CellFormula:
		if rec.hasResult && rec.result.Type == value.TypeString {
			return rec.result.StringID
		}
	}
	return 0
}

func (c *MemoryContext) GetFormulaCell(addr address.CellAddress) (uint32, bool) {
	addr = addr.Position()
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.cells[addr]
	if !ok || rec.kind != CellFormula {
		return 0, false
	}
	return rec.formulaID, true
}

func (c *MemoryContext) GetString(id uint32) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.strings.Get(id)
}

func (c *MemoryContext) AddString(s string) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.strings.Intern(s)
}

func (c *MemoryContext) AppendString(s string) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.strings.Append(s)
}

func (c *MemoryContext) GetNamedExpression(sheet int, name string) ([]token.FormulaToken, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	toks, ok := c.named[namedKey{sheet: sheet, name: name}]
	return toks, ok
}

func (c *MemoryContext) GetFormulaTokens(_ int, identifier uint32) ([]token.FormulaToken, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.formulas.Tokens(identifier)
}

func (c *MemoryContext) GetSharedFormulaTokens(_ int, identifier uint32) ([]token.FormulaToken, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.formulas.SharedTokens(identifier)
}

func (c *MemoryContext) GetSharedFormulaRange(_ int, identifier uint32) (address.RangeAddress, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.formulas.SharedRange(identifier)
}

func (c *MemoryContext) GetSheetName(sheet int) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if sheet < 0 || sheet >= len(c.sheets) {
		return "", false
	}
	return c.sheets[sheet].name, true
}

func (c *MemoryContext) GetSheetIndex(name string) (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx, ok := c.sheetIdx[name]
	return idx, ok
}

func (c *MemoryContext) GetSheetSize(sheet int) (rows, cols int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if sheet < 0 || sheet >= len(c.sheets) {
		return 0, 0
	}
	return c.sheets[sheet].rows, c.sheets[sheet].cols
}

func (c *MemoryContext) SheetCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sheets)
}

func (c *MemoryContext) GetTableHandler() address.TableHandler { return c }

func (c *MemoryContext) CreateSessionHandler() interp.SessionHandler {
	c.mu.RLock()
	factory := c.sessionFactory
	c.mu.RUnlock()
	if factory == nil {
		return nil
	}
	return factory()
}

// --- value.Dereferencer ---

func (c *MemoryContext) CellScalar(addr address.CellAddress) value.FormulaResult {
	addr = addr.Position()
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.cells[addr]
	if !ok {
		return value.NumberResult(0.0)
	}
	switch rec.kind {
	case CellNumeric:
		return value.NumberResult(rec.number)
	case CellString:
		return value.StringResult(rec.stringID)
	case CellFormula:
		if rec.hasResult {
			return rec.result
		}
	}
	return value.NumberResult(0.0)
}

func (c *MemoryContext) RangeScalars(rng address.RangeAddress) []value.FormulaResult {
	n := rng.Normalize()
	var out []value.FormulaResult
	for row := n.First.Row; row <= n.Last.Row; row++ {
		for col := n.First.Col; col <= n.Last.Col; col++ {
			out = append(out, c.CellScalar(address.CellAddress{Sheet: n.First.Sheet, Row: row, Col: col}))
		}
	}
	return out
}

func (c *MemoryContext) RangeValues(rng address.RangeAddress) []value.FormulaResult {
	n := rng.Normalize()
	var out []value.FormulaResult
	for row := n.First.Row; row <= n.Last.Row; row++ {
		for col := n.First.Col; col <= n.Last.Col; col++ {
			addr := address.CellAddress{Sheet: n.First.Sheet, Row: row, Col: col}
			if c.IsEmpty(addr) {
				continue
			}
			out = append(out, c.CellScalar(addr))
		}
	}
	return out
}

func (c *MemoryContext) StringAt(id uint32) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, _ := c.strings.Get(id)
	return s
}

func (c *MemoryContext) InternString(s string) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.strings.Intern(s)
}

// --- resolver.SheetContext ---

func (c *MemoryContext) SheetIndex(name string) (int, bool) { return c.GetSheetIndex(name) }
func (c *MemoryContext) SheetName(index int) (string, bool) { return c.GetSheetName(index) }
func (c *MemoryContext) SheetBounds(sheet int) (int, int) {
	rows, cols := c.GetSheetSize(sheet)
	if rows <= 0 || cols <= 0 {
		return defaultSheetRows, defaultSheetCols
	}
	return rows, cols
}

// --- interp.NamedExpressionLookup ---

// LookupNamedExpression resolves name; origin's sheet-local scope wins
// over the global scope when both define it.
func (c *MemoryContext) LookupNamedExpression(name string, origin address.CellAddress) ([]token.FormulaToken, bool) {
	if toks, ok := c.GetNamedExpression(origin.Sheet, name); ok {
		return toks, true
	}
	return c.GetNamedExpression(address.InvalidSheet, name)
}

// --- interp.TableResolver / address.TableHandler ---

// ResolveTable resolves ref against a previously DefineTable-registered
// layout, applying the Areas mask to the header/data/totals row split.
func (c *MemoryContext) ResolveTable(ref address.TableReference, _ address.CellAddress) (address.RangeAddress, bool) {
	c.mu.RLock()
	def, ok := c.tables[ref.Name]
	c.mu.RUnlock()
	if !ok {
		return address.RangeAddress{}, false
	}

	colFirst, colLast := 0, len(def.Columns)-1
	if ref.ColumnFirst != "" {
		idx := columnIndex(def.Columns, ref.ColumnFirst)
		if idx < 0 {
			return address.RangeAddress{}, false
		}
		colFirst = idx
	}
	if ref.ColumnLast != "" {
		idx := columnIndex(def.Columns, ref.ColumnLast)
		if idx < 0 {
			return address.RangeAddress{}, false
		}
		colLast = idx
	} else if ref.ColumnFirst != "" {
		colLast = colFirst
	}
	if colFirst > colLast || colLast >= len(def.Columns) {
		return address.RangeAddress{}, false
	}

	top, bottom := def.Range.First.Row, def.Range.Last.Row
	dataTop, dataBottom := top, bottom
	if def.HasHeader {
		dataTop++
	}
	if def.HasTotals {
		dataBottom--
	}

	areas := ref.Areas
	if areas == address.AreaNone {
		areas = address.AreaData
	}
	rowFirst, rowLast := dataTop, dataBottom
	if areas&address.AreaHeaders != 0 && def.HasHeader {
		rowFirst = top
	}
	if areas&address.AreaTotals != 0 && def.HasTotals {
		rowLast = bottom
	}
	if areas == address.AreaAll {
		rowFirst, rowLast = top, bottom
	}

	return address.RangeAddress{
		First: address.CellAddress{Sheet: def.Range.First.Sheet, Row: rowFirst, Col: def.Range.First.Col + colFirst},
		Last:  address.CellAddress{Sheet: def.Range.First.Sheet, Row: rowLast, Col: def.Range.First.Col + colLast},
	}, true
}

func columnIndex(columns []string, name string) int {
	for i, c := range columns {
		if c == name {
			return i
		}
	}
	return -1
}
