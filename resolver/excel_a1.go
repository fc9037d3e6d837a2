package resolver

import (
	"strings"

	"github.com/ixion-engine/ixion/address"
	"github.com/ixion-engine/ixion/function"
)

// excelA1 implements the Excel A1 dialect: optional 'SheetName!' or
// '$SheetName!' prefix, then $-markable column letters and row digits,
// optionally followed by ':' and a second address sharing the first's
// sheet.
type excelA1 struct{ ctx SheetContext }

func (r excelA1) Resolve(text string, origin address.CellAddress) Name {
	if text == "" {
		return Name{Type: TypeInvalid, Text: text}
	}
	if op, ok := function.Lookup(text); ok {
		return Name{Type: TypeFunction, Func: op, Text: text}
	}
	if ref, ok := parseTable(text); ok {
		return Name{Type: TypeTable, Table: ref, Text: text}
	}

	sheet, rest, addr, ok := r.parsePrefixedCell(text, origin)
	if !ok {
		return resolveFunctionOrName(text)
	}

	if !strings.Contains(rest, ":") {
		if addr.Row == address.RowUnset {
			// A bare column/row such as "H" is not a valid single-cell
			// reference; fall through to function-or-name.
			return resolveFunctionOrName(text)
		}
		addr.Sheet = sheet
		if !checkBounds(r.ctx, addr) {
			return Name{Type: TypeInvalid, Text: text}
		}
		return Name{Type: TypeCell, Address: toRelative(addr, origin), Text: text}
	}

	parts := strings.SplitN(rest, ":", 2)
	first, ok1 := scanA1Cell(parts[0])
	last, ok2 := scanA1Cell(parts[1])
	if !ok1 || !ok2 || parts[1] == "" {
		return Name{Type: TypeInvalid, Text: text}
	}
	first.Sheet, last.Sheet = sheet, sheet
	first.AbsSheet, last.AbsSheet = addr.AbsSheet, addr.AbsSheet
	if !checkBounds(r.ctx, first) || !checkBounds(r.ctx, last) {
		return Name{Type: TypeInvalid, Text: text}
	}
	return Name{
		Type: TypeRange,
		Range: address.RangeAddress{
			First: toRelative(first, origin),
			Last:  toRelative(last, origin),
		},
		Text: text,
	}
}

// parsePrefixedCell splits off an optional sheet prefix and parses the
// first cell fragment, returning the resolved sheet index (or origin's, if
// no prefix), the remaining text (cell[:cell]), and the parsed first cell.
func (r excelA1) parsePrefixedCell(text string, origin address.CellAddress) (sheet int, rest string, addr address.CellAddress, ok bool) {
	sheetName, after, hasSheet := splitSheetQualified(text, '!')
	sheet = origin.Sheet
	absSheet := hasSheet
	if hasSheet {
		name := strings.TrimPrefix(sheetName, "$")
		idx, found := -1, false
		if r.ctx != nil {
			idx, found = r.ctx.SheetIndex(name)
		}
		if !found {
			return 0, "", address.CellAddress{}, false
		}
		sheet = idx
		rest = after
	} else {
		rest = text
	}

	firstPart := rest
	if i := strings.IndexByte(rest, ':'); i >= 0 {
		firstPart = rest[:i]
	}
	first, ok := scanA1Cell(firstPart)
	if !ok {
		return 0, "", address.CellAddress{}, false
	}
	first.Sheet = sheet
	first.AbsSheet = absSheet
	return sheet, rest, first, true
}

func (r excelA1) FormatAddress(addr, origin address.CellAddress, withSheet bool) string {
	resolved := addr.Resolve(origin)
	var b strings.Builder
	if withSheet && r.ctx != nil {
		if name, ok := r.ctx.SheetName(resolved.Sheet); ok {
			b.WriteString(quoteSheetName(name))
			b.WriteByte('!')
		}
	}
	b.WriteString(formatA1Cell(resolved.Col, addr.AbsCol, resolved.Row, addr.AbsRow))
	return b.String()
}

func (r excelA1) FormatRange(rng address.RangeAddress, origin address.CellAddress, withSheet bool) string {
	first := r.FormatAddress(rng.First, origin, withSheet)
	last := r.FormatAddress(rng.Last, origin, false)
	return first + ":" + last
}

func (r excelA1) FormatTable(ref address.TableReference, _ address.CellAddress, _ bool) string {
	return formatTable(ref)
}
