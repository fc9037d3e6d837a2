package model

import (
	"github.com/ixion-engine/ixion/address"
	"github.com/ixion-engine/ixion/interp"
	"github.com/ixion-engine/ixion/token"
)

// Context is the facade the engine consumes to read cells, strings, named
// expressions, formula token streams, sheets, and tables. GetFormulaCell
// returns the token-store identifier a formula cell holds; pass it to
// GetFormulaTokens/GetSharedFormulaTokens/GetSharedFormulaRange to reach
// the tokens themselves.
type Context interface {
	GetConfig() Config

	IsEmpty(addr address.CellAddress) bool
	GetCellType(addr address.CellAddress) CellType
	GetNumericValue(addr address.CellAddress) float64
	GetStringIdentifier(addr address.CellAddress) uint32
	GetFormulaCell(addr address.CellAddress) (identifier uint32, ok bool)

	GetString(id uint32) (string, bool)
	// AddString interns s, returning an existing id if s was already
	// interned.
	AddString(s string) uint32
	// AppendString always creates a new entry without checking for an
	// existing match, for callers that already know the string is unique
	// (e.g. streaming cells in during a bulk load).
	AppendString(s string) uint32

	// GetNamedExpression returns the tokens registered under name in the
	// given scope: a real sheet index for sheet-local names,
	// address.InvalidSheet for the global scope.
	GetNamedExpression(sheet int, name string) ([]token.FormulaToken, bool)
	GetFormulaTokens(sheet int, identifier uint32) ([]token.FormulaToken, bool)
	GetSharedFormulaTokens(sheet int, identifier uint32) ([]token.FormulaToken, bool)
	GetSharedFormulaRange(sheet int, identifier uint32) (address.RangeAddress, bool)

	GetSheetName(sheet int) (string, bool)
	GetSheetIndex(name string) (int, bool)
	GetSheetSize(sheet int) (rows, cols int)
	SheetCount() int

	GetTableHandler() address.TableHandler

	// CreateSessionHandler returns a fresh tracing handler for one
	// interpret call, or nil if the context carries no session tracking.
	CreateSessionHandler() interp.SessionHandler
}

// ListenTarget is a point or a range a listener cell watches.
type ListenTarget struct {
	IsRange bool
	Point   address.CellAddress
	Range   address.RangeAddress
}

// PointTarget builds a ListenTarget watching a single cell.
func PointTarget(addr address.CellAddress) ListenTarget {
	return ListenTarget{Point: addr}
}

// RangeTarget builds a ListenTarget watching a range.
func RangeTarget(rng address.RangeAddress) ListenTarget {
	return ListenTarget{IsRange: true, Range: rng}
}

// Contains reports whether modified falls within t.
func (t ListenTarget) Contains(modified address.CellAddress) bool {
	if !t.IsRange {
		return t.Point.Equal(modified)
	}
	return t.Range.Contains(modified)
}

// ListenerTracker records which cells listen on which point/range targets,
// and answers "who listens on this modified cell".
type ListenerTracker interface {
	Add(listener address.CellAddress, target ListenTarget)
	Remove(listener address.CellAddress, target ListenTarget)
	// GetAllListeners returns every listener cell whose target contains
	// modified, deduplicated.
	GetAllListeners(modified address.CellAddress) []address.CellAddress
}
