package resolver

import (
	"strings"

	"github.com/ixion-engine/ixion/address"
	"github.com/ixion-engine/ixion/function"
)

// calcA1 implements the Calc A1 dialect: like Excel A1 but the sheet
// separator is '.' instead of '!' ("Sheet1.A1", "Sheet1.A1:B2").
type calcA1 struct{ ctx SheetContext }

func (r calcA1) Resolve(text string, origin address.CellAddress) Name {
	if text == "" {
		return Name{Type: TypeInvalid, Text: text}
	}
	if op, ok := function.Lookup(text); ok {
		return Name{Type: TypeFunction, Func: op, Text: text}
	}
	if ref, ok := parseTable(text); ok {
		return Name{Type: TypeTable, Table: ref, Text: text}
	}

	sheetPart, rest, hasSheet := splitSheetQualified(text, '.')
	sheet := origin.Sheet
	absSheet := hasSheet
	if !hasSheet {
		rest = text
	} else {
		name := strings.TrimPrefix(sheetPart, "$")
		idx, found := -1, false
		if r.ctx != nil {
			idx, found = r.ctx.SheetIndex(name)
		}
		if !found {
			return resolveFunctionOrName(text)
		}
		sheet = idx
	}

	if i := strings.IndexByte(rest, ':'); i >= 0 {
		first, ok1 := scanA1Cell(rest[:i])
		last, ok2 := scanA1Cell(rest[i+1:])
		if !ok1 || !ok2 {
			return resolveFunctionOrName(text)
		}
		first.Sheet, first.AbsSheet = sheet, absSheet
		last.Sheet, last.AbsSheet = sheet, absSheet
		if !checkBounds(r.ctx, first) || !checkBounds(r.ctx, last) {
			return Name{Type: TypeInvalid, Text: text}
		}
		return Name{
			Type:  TypeRange,
			Range: address.RangeAddress{First: toRelative(first, origin), Last: toRelative(last, origin)},
			Text:  text,
		}
	}

	addr, ok := scanA1Cell(rest)
	if !ok || addr.Row == address.RowUnset {
		return resolveFunctionOrName(text)
	}
	addr.Sheet, addr.AbsSheet = sheet, absSheet
	if !checkBounds(r.ctx, addr) {
		return Name{Type: TypeInvalid, Text: text}
	}
	return Name{Type: TypeCell, Address: toRelative(addr, origin), Text: text}
}

func (r calcA1) FormatAddress(addr, origin address.CellAddress, withSheet bool) string {
	resolved := addr.Resolve(origin)
	var b strings.Builder
	if withSheet && r.ctx != nil {
		if addr.AbsSheet {
			b.WriteByte('$')
		}
		if name, ok := r.ctx.SheetName(resolved.Sheet); ok {
			b.WriteString(quoteSheetName(name))
		}
		b.WriteByte('.')
	}
	b.WriteString(formatA1Cell(resolved.Col, addr.AbsCol, resolved.Row, addr.AbsRow))
	return b.String()
}

func (r calcA1) FormatRange(rng address.RangeAddress, origin address.CellAddress, withSheet bool) string {
	return r.FormatAddress(rng.First, origin, withSheet) + ":" + r.FormatAddress(rng.Last, origin, false)
}

func (r calcA1) FormatTable(ref address.TableReference, _ address.CellAddress, _ bool) string {
	return formatTable(ref)
}
