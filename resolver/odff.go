package resolver

import (
	"strings"

	"github.com/ixion-engine/ixion/address"
	"github.com/ixion-engine/ixion/function"
)

// odff implements the ODF Formula (ODFF) dialect: every reference is
// wrapped in brackets, "[.A1]" or "[SheetName.A1]" for a single cell,
// "[.A1:.B2]" or "[SheetName.A1:.B2]" for a range. The dot is the sheet
// separator inside the brackets. A range always lies on its first
// endpoint's sheet; a sheet name on the second endpoint is not kept.
type odff struct{ ctx SheetContext }

func (r odff) Resolve(text string, origin address.CellAddress) Name {
	if text == "" {
		return Name{Type: TypeInvalid, Text: text}
	}
	if op, ok := function.Lookup(text); ok {
		return Name{Type: TypeFunction, Func: op, Text: text}
	}
	if !strings.HasPrefix(text, "[") || !strings.HasSuffix(text, "]") {
		return resolveFunctionOrName(text)
	}
	body := text[1 : len(text)-1]

	if i := strings.IndexByte(body, ':'); i >= 0 {
		first, ok1 := r.parseQualifiedCell(body[:i], origin)
		last, ok2 := r.parseQualifiedCell(body[i+1:], origin)
		if !ok1 || !ok2 {
			return Name{Type: TypeInvalid, Text: text}
		}
		if !checkBounds(r.ctx, first) || !checkBounds(r.ctx, last) {
			return Name{Type: TypeInvalid, Text: text}
		}
		last.Sheet, last.AbsSheet = first.Sheet, first.AbsSheet
		return Name{
			Type:  TypeRange,
			Range: address.RangeAddress{First: toRelative(first, origin), Last: toRelative(last, origin)},
			Text:  text,
		}
	}

	addr, ok := r.parseQualifiedCell(body, origin)
	if !ok || addr.Row == address.RowUnset {
		return Name{Type: TypeInvalid, Text: text}
	}
	if !checkBounds(r.ctx, addr) {
		return Name{Type: TypeInvalid, Text: text}
	}
	return Name{Type: TypeCell, Address: toRelative(addr, origin), Text: text}
}

// parseQualifiedCell parses "SheetName.A1", "$SheetName.$A$1", or ".A1"
// (empty sheet name means "use origin's sheet"). The sheet's '$' marker may
// precede a quoted name ("$'Sheet 1'.A1").
func (r odff) parseQualifiedCell(s string, origin address.CellAddress) (address.CellAddress, bool) {
	s = strings.TrimPrefix(s, "$")
	sheetPart, rest, hasSheet := splitSheetQualified(s, '.')
	if !hasSheet {
		return address.CellAddress{}, false
	}
	addr, ok := scanA1Cell(rest)
	if !ok {
		return address.CellAddress{}, false
	}
	if sheetPart == "" {
		addr.Sheet = origin.Sheet
		addr.AbsSheet = false
		return addr, true
	}
	idx, found := -1, false
	if r.ctx != nil {
		idx, found = r.ctx.SheetIndex(sheetPart)
	}
	if !found {
		return address.CellAddress{}, false
	}
	addr.Sheet = idx
	addr.AbsSheet = true
	return addr, true
}

func (r odff) FormatAddress(addr, origin address.CellAddress, withSheet bool) string {
	resolved := addr.Resolve(origin)
	var b strings.Builder
	b.WriteByte('[')
	if withSheet && r.ctx != nil {
		// A named sheet always carries the '$' marker in ODFF output;
		// naming the sheet pins the reference to it.
		if name, ok := r.ctx.SheetName(resolved.Sheet); ok {
			b.WriteByte('$')
			b.WriteString(quoteSheetName(name))
		}
	}
	b.WriteByte('.')
	b.WriteString(formatA1Cell(resolved.Col, addr.AbsCol, resolved.Row, addr.AbsRow))
	b.WriteByte(']')
	return b.String()
}

func (r odff) FormatRange(rng address.RangeAddress, origin address.CellAddress, withSheet bool) string {
	first := strings.TrimSuffix(strings.TrimPrefix(r.FormatAddress(rng.First, origin, withSheet), "["), "]")
	last := strings.TrimSuffix(strings.TrimPrefix(r.FormatAddress(rng.Last, origin, false), "["), "]")
	return "[" + first + ":" + last + "]"
}

func (r odff) FormatTable(ref address.TableReference, _ address.CellAddress, _ bool) string {
	return formatTable(ref)
}
