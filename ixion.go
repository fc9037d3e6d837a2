// Package ixion is an embeddable spreadsheet formula engine: formula text is
// parsed into a token stream, dependencies between cells are tracked, and an
// edit triggers a topologically-ordered recompute of every affected formula,
// serially or across a bounded worker pool. The root package ties the
// subpackages together behind Engine; the pieces (resolver, lexer, token,
// interp, depend, pool, model) are usable on their own against any
// model.Context implementation.
package ixion

import (
	"log/slog"
	"strings"

	"github.com/ixion-engine/ixion/address"
	"github.com/ixion-engine/ixion/interp"
	"github.com/ixion-engine/ixion/model"
	"github.com/ixion-engine/ixion/resolver"
	"github.com/ixion-engine/ixion/token"
)

// Global constants exported by the library.
const (
	// RowUpperBound / ColumnUpperBound are the largest sheet dimensions a
	// resolved reference may name when the model doesn't constrain them
	// further.
	RowUpperBound    = 1048576
	ColumnUpperBound = 16384

	// InvalidSheet marks an address that names no sheet; GlobalScope is the
	// sheet value under which globally-scoped named expressions register.
	InvalidSheet = address.InvalidSheet
	GlobalScope  = address.InvalidSheet
)

// EmptyStringID is the interned-string id of the absent string; the model's
// string table never assigns it to real content.
const EmptyStringID uint32 = 0

// Config configures an Engine: the model's display/parse conventions, the
// reference dialect formulas are written in, and how many pool workers a
// recompute batch may use (0 evaluates in the calling goroutine).
type Config struct {
	Model       model.Config
	Dialect     resolver.Dialect
	ThreadCount int
	// Logger receives batch-phase diagnostics from CalculateCells and
	// nothing from the per-cell hot path. Nil disables logging.
	Logger *slog.Logger
}

// DefaultConfig returns the documented defaults: ',' argument separator,
// ','/';' matrix separators, shortest-round-trip output precision, Excel A1
// references, single-threaded evaluation.
func DefaultConfig() Config {
	return Config{
		Model:   model.DefaultConfig(),
		Dialect: resolver.ExcelA1,
	}
}

// ParseFormulaString parses src (with or without a leading '=') into a
// formula token stream relative to origin, resolving names through ctx in
// the given dialect. The returned tokens are immutable; store them with
// model.MemoryContext.SetFormula or interpret them directly with
// interp.Evaluate. On error the returned stream is nil; a cell fed a failed
// parse holds an empty token stream and registers no dependencies.
func ParseFormulaString(ctx model.Context, origin address.CellAddress, dialect resolver.Dialect, src string) ([]token.FormulaToken, error) {
	src = strings.TrimSpace(src)
	src = strings.TrimPrefix(src, "=")
	return interp.Parse(src, origin, dialect, sheetContext{ctx}, interner{ctx})
}

// sheetContext adapts model.Context's sheet getters to the narrow
// resolver.SheetContext seam.
type sheetContext struct{ ctx model.Context }

func (a sheetContext) SheetIndex(name string) (int, bool) { return a.ctx.GetSheetIndex(name) }
func (a sheetContext) SheetName(index int) (string, bool) { return a.ctx.GetSheetName(index) }

func (a sheetContext) SheetBounds(sheet int) (rows, cols int) {
	rows, cols = a.ctx.GetSheetSize(sheet)
	if rows <= 0 || cols <= 0 {
		return RowUpperBound, ColumnUpperBound
	}
	return rows, cols
}

// interner adapts model.Context's add_string to interp's StringInterner.
type interner struct{ ctx model.Context }

func (a interner) InternString(s string) uint32 { return a.ctx.AddString(s) }
