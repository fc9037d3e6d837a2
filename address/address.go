// Package address implements the address types the engine is built on:
// sheet/row/column positions, ranges, and table references, plus the
// base-26 column codec shared by every name-resolver dialect.
package address

import (
	"fmt"
	"strings"
)

// Sentinel values for sheet indices and for "not specified" axes on a
// half-open range (A:A, 1:1).
const (
	InvalidSheet = -1
	RowUnset     = -1
	ColumnUnset  = -1
)

// CellAddress identifies a single cell, carrying independent
// absolute/relative flags per axis so that a token parsed once can be
// re-anchored at interpret time for every cell in a shared formula group.
type CellAddress struct {
	Sheet    int
	Row      int
	Col      int
	AbsSheet bool
	AbsRow   bool
	AbsCol   bool
}

// IsValid reports whether the address names a real sheet. Row/Col may still
// be RowUnset/ColumnUnset for half-open references.
func (a CellAddress) IsValid() bool {
	return a.Sheet != InvalidSheet
}

// Resolve turns a (possibly) relative address into an absolute one by
// adding it to origin on every axis that isn't already absolute. The sheet
// axis only offsets when both addresses name real sheets.
func (a CellAddress) Resolve(origin CellAddress) CellAddress {
	out := a
	if !a.AbsSheet && a.Sheet != InvalidSheet && origin.Sheet != InvalidSheet {
		out.Sheet = origin.Sheet + a.Sheet
	}
	if !a.AbsRow && a.Row != RowUnset {
		out.Row = origin.Row + a.Row
	}
	if !a.AbsCol && a.Col != ColumnUnset {
		out.Col = origin.Col + a.Col
	}
	return out
}

// InBounds reports whether the address falls within a sheet of the given
// dimensions. Only meaningful for fully-specified absolute addresses.
func (a CellAddress) InBounds(sheetCount, rows, cols int) bool {
	if a.Sheet < 0 || a.Sheet >= sheetCount {
		return false
	}
	if a.Row < 0 || a.Row >= rows {
		return false
	}
	if a.Col < 0 || a.Col >= cols {
		return false
	}
	return true
}

// Equal compares two addresses field by field, including the
// absolute/relative flags.
func (a CellAddress) Equal(o CellAddress) bool {
	return a == o
}

// Position strips the absolute flags, keeping only the coordinates. Storage
// and dependency maps key on positions so that $A$1 and A1 resolve to the
// same cell.
func (a CellAddress) Position() CellAddress {
	a.AbsSheet, a.AbsRow, a.AbsCol = false, false, false
	return a
}

// SamePosition reports whether a and o name the same cell, ignoring the
// absolute flags.
func (a CellAddress) SamePosition(o CellAddress) bool {
	return a.Position() == o.Position()
}

func (a CellAddress) String() string {
	return fmt.Sprintf("(sheet=%d,row=%d,col=%d,abs=%v/%v/%v)", a.Sheet, a.Row, a.Col, a.AbsSheet, a.AbsRow, a.AbsCol)
}

// RangeAddress is a pair of addresses. Either axis of either endpoint may
// carry RowUnset/ColumnUnset to express a half-open row or column range.
type RangeAddress struct {
	First CellAddress
	Last  CellAddress
}

// Resolve resolves both endpoints against origin.
func (r RangeAddress) Resolve(origin CellAddress) RangeAddress {
	return RangeAddress{First: r.First.Resolve(origin), Last: r.Last.Resolve(origin)}
}

// Normalize returns a range with First/Last swapped per-axis so that
// First <= Last on every axis that is specified on both ends.
func (r RangeAddress) Normalize() RangeAddress {
	out := r
	if out.First.Row != RowUnset && out.Last.Row != RowUnset && out.First.Row > out.Last.Row {
		out.First.Row, out.Last.Row = out.Last.Row, out.First.Row
	}
	if out.First.Col != ColumnUnset && out.Last.Col != ColumnUnset && out.First.Col > out.Last.Col {
		out.First.Col, out.Last.Col = out.Last.Col, out.First.Col
	}
	return out
}

// Contains reports whether addr falls inside the range on the same sheet.
// A half-open axis (RowUnset/ColumnUnset on either endpoint) always matches.
func (r RangeAddress) Contains(addr CellAddress) bool {
	if r.First.Sheet != addr.Sheet && r.First.Sheet != InvalidSheet {
		return false
	}
	n := r.Normalize()
	if n.First.Row != RowUnset && n.Last.Row != RowUnset {
		if addr.Row < n.First.Row || addr.Row > n.Last.Row {
			return false
		}
	}
	if n.First.Col != ColumnUnset && n.Last.Col != ColumnUnset {
		if addr.Col < n.First.Col || addr.Col > n.Last.Col {
			return false
		}
	}
	return true
}

// Areas is a bitset over table areas: headers / data / totals / all.
type Areas uint8

const (
	AreaNone    Areas = 0
	AreaHeaders Areas = 1 << iota
	AreaData
	AreaTotals
	AreaAll = AreaHeaders | AreaData | AreaTotals
)

// TableReference names a structured-table column or column range, optionally
// scoped to specific areas (#Headers, #Data, #Totals, #All).
type TableReference struct {
	Name        string
	ColumnFirst string
	ColumnLast  string
	Areas       Areas
}

// TableHandler resolves a TableReference to an absolute range; it is
// provided by the model context.
type TableHandler interface {
	ResolveTable(ref TableReference, origin CellAddress) (RangeAddress, bool)
}

// EncodeColumn renders a zero-based column index in base-26 letters with no
// zero digit (A=0, Z=25, AA=26, AZ=51, BA=52, ...), most significant digit
// first.
func EncodeColumn(col int) string {
	if col < 0 {
		return ""
	}
	var b strings.Builder
	digits := make([]byte, 0, 4)
	c := col
	for {
		digits = append(digits, byte('A'+(c%26)))
		c = c/26 - 1
		if c < 0 {
			break
		}
	}
	for i := len(digits) - 1; i >= 0; i-- {
		b.WriteByte(digits[i])
	}
	return b.String()
}

// DecodeColumn parses a base-26 column string (case-insensitive) back to a
// zero-based index. Returns an error for empty input or non-letter runes.
func DecodeColumn(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("address: empty column string")
	}
	col := 0
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch >= 'A' && ch <= 'Z':
			col = col*26 + int(ch-'A'+1)
		case ch >= 'a' && ch <= 'z':
			col = col*26 + int(ch-'a'+1)
		default:
			return 0, fmt.Errorf("address: invalid column letter %q in %q", ch, s)
		}
	}
	return col - 1, nil
}
