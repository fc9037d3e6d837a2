// Package resolver turns formula reference text into address.CellAddress /
// address.RangeAddress values and back, in five dialects: Excel A1, Excel
// R1C1, ODF Formula (ODFF) bracketed syntax, Calc A1 (dot sheet
// separator), and ODF-CRA (the bracketed+dot combination). All five share
// one parsing backbone (sheet-prefix, then column/row, then an optional
// range separator), each dialect layering a thin address grammar over the
// same cell/range/table/named-expression/function result shape.
package resolver

import (
	"strings"

	"github.com/ixion-engine/ixion/address"
	"github.com/ixion-engine/ixion/function"
)

// Dialect selects which reference-text grammar a Resolver parses and emits.
type Dialect uint8

const (
	ExcelA1 Dialect = iota
	ExcelR1C1
	ODFF
	CalcA1
	ODFCRA
)

// NameType is the closed tag of a resolved Name.
type NameType uint8

const (
	TypeInvalid NameType = iota
	TypeCell
	TypeRange
	TypeTable
	TypeNamedExpression
	TypeFunction
)

// Name is the result of resolving one piece of reference text. Only the
// field matching Type is meaningful, except Text which always holds the
// source text (useful for diagnostics on TypeInvalid/TypeNamedExpression).
type Name struct {
	Type    NameType
	Address address.CellAddress
	Range   address.RangeAddress
	Table   address.TableReference
	Func    function.Opcode
	Text    string
}

// SheetContext is the narrow slice of the model context a resolver needs:
// sheet name/index translation and sheet-size bounds checking. Implemented
// by model.MemoryContext and by the root package's adapter over
// model.Context.
type SheetContext interface {
	SheetIndex(name string) (int, bool)
	SheetName(index int) (string, bool)
	// SheetBounds returns the row/column count for sheet, or the global
	// upper bounds when sheet doesn't name a real sheet yet (e.g. during a
	// resolve that precedes sheet creation).
	SheetBounds(sheet int) (rows, cols int)
}

// Resolver parses and formats reference text in one dialect.
type Resolver interface {
	// Resolve parses text (the token between operators/parens/commas,
	// exactly as the lexer's Name token emits it) relative to origin, the
	// absolute position of the cell the formula lives in.
	Resolve(text string, origin address.CellAddress) Name
	// FormatAddress renders a single cell address back to text, optionally
	// including a sheet-name prefix.
	FormatAddress(addr address.CellAddress, origin address.CellAddress, withSheet bool) string
	// FormatRange renders a range address back to text.
	FormatRange(rng address.RangeAddress, origin address.CellAddress, withSheet bool) string
	// FormatTable renders a structured-table reference back to its
	// canonical text form. Tables are name-scoped rather than
	// sheet-qualified, so origin and withSheet only exist for symmetry
	// with the other formatters.
	FormatTable(ref address.TableReference, origin address.CellAddress, withSheet bool) string
}

// New builds a Resolver for dialect, backed by ctx for sheet-name lookups
// and bounds checks. ctx may be nil, in which case sheet-qualified
// references always fail to resolve and bounds checks fall back to the
// global upper bounds.
func New(dialect Dialect, ctx SheetContext) Resolver {
	switch dialect {
	case ExcelR1C1:
		return excelR1C1{ctx: ctx}
	case ODFF:
		return odff{ctx: ctx}
	case CalcA1:
		return calcA1{ctx: ctx}
	case ODFCRA:
		return odfCRA{ctx: ctx}
	default:
		return excelA1{ctx: ctx}
	}
}

func resolveFunctionOrName(text string) Name {
	if op, ok := function.Lookup(text); ok {
		return Name{Type: TypeFunction, Func: op, Text: text}
	}
	// Everything syntactically name-shaped that isn't a known function is
	// assumed to be a named expression; existence is checked later, when
	// package interp expands it against the model context.
	return Name{Type: TypeNamedExpression, Text: text}
}

// checkBounds reports whether addr's row/column fall within ctx's bounds
// for its sheet (or the global upper bounds if ctx is nil or the sheet is
// not yet known).
func checkBounds(ctx SheetContext, addr address.CellAddress) bool {
	rows, cols := upperBoundRows, upperBoundCols
	if ctx != nil {
		if r, c := ctx.SheetBounds(addr.Sheet); r > 0 || c > 0 {
			rows, cols = r, c
		}
	}
	if addr.Row != address.RowUnset {
		r := addr.Row
		if r < 0 {
			r = -r
		}
		if r >= rows {
			return false
		}
	}
	if addr.Col != address.ColumnUnset {
		c := addr.Col
		if c < 0 {
			c = -c
		}
		if c >= cols {
			return false
		}
	}
	return true
}

// Global fallback bounds, matching the constants the root ixion package
// exposes: a 16384-column, 1048576-row grid when no sheet context narrows
// it further.
const (
	upperBoundRows = 1048576
	upperBoundCols = 16384
)

// toRelative converts an absolutely-parsed address into the offset-or-
// absolute form address.CellAddress stores, by subtracting origin on every
// axis that wasn't marked absolute: the inverse of CellAddress.Resolve.
func toRelative(addr address.CellAddress, origin address.CellAddress) address.CellAddress {
	out := addr
	if !addr.AbsSheet && addr.Sheet != address.InvalidSheet && origin.Sheet != address.InvalidSheet {
		out.Sheet = addr.Sheet - origin.Sheet
	}
	if !addr.AbsRow && addr.Row != address.RowUnset {
		out.Row = addr.Row - origin.Row
	}
	if !addr.AbsCol && addr.Col != address.ColumnUnset {
		out.Col = addr.Col - origin.Col
	}
	return out
}

// splitSheetQualified splits "SheetPart<sep>Rest" on the first occurrence
// of sep that isn't inside a single-quoted sheet name, handling the
// doubled-quote escape ('' inside a quoted name is a literal quote).
// hasSheet is false when sep never appears unquoted.
func splitSheetQualified(s string, sep byte) (sheetPart, rest string, hasSheet bool) {
	if len(s) == 0 {
		return "", s, false
	}
	if s[0] == '\'' {
		i := 1
		for i < len(s) {
			if s[i] == '\'' {
				if i+1 < len(s) && s[i+1] == '\'' {
					i += 2
					continue
				}
				break
			}
			i++
		}
		if i >= len(s) || i+1 > len(s) || s[i] != '\'' {
			return "", s, false
		}
		if i+1 >= len(s) || s[i+1] != sep {
			return "", s, false
		}
		quoted := s[1:i]
		return strings.ReplaceAll(quoted, "''", "'"), s[i+2:], true
	}
	idx := strings.IndexByte(s, sep)
	if idx < 0 {
		return "", s, false
	}
	return s[:idx], s[idx+1:], true
}

// quoteSheetName wraps name in single quotes, doubling embedded quotes, if
// it contains a space or a quote.
func quoteSheetName(name string) string {
	if strings.ContainsAny(name, " '") {
		return "'" + strings.ReplaceAll(name, "'", "''") + "'"
	}
	return name
}
