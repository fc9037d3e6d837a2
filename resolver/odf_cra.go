package resolver

import (
	"strings"

	"github.com/ixion-engine/ixion/address"
	"github.com/ixion-engine/ixion/function"
)

// odfCRA implements the ODF-CRA ("cell range address") dialect: ODFF's
// bracket delimiting ("[...]") combined with Calc A1's '.' sheet
// separator, and a ',' range separator in place of ODFF's ':'
// ("[.A1,.B2]" rather than "[.A1:.B2]"), so a bracketed reference and a
// bracketed argument list are never ambiguous when both appear in the same
// formula text.
type odfCRA struct{ ctx SheetContext }

func (r odfCRA) Resolve(text string, origin address.CellAddress) Name {
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

	if i := strings.IndexByte(body, ','); i >= 0 {
		first, ok1 := odff{ctx: r.ctx}.parseQualifiedCell(body[:i], origin)
		last, ok2 := odff{ctx: r.ctx}.parseQualifiedCell(body[i+1:], origin)
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

	addr, ok := odff{ctx: r.ctx}.parseQualifiedCell(body, origin)
	if !ok || addr.Row == address.RowUnset {
		return Name{Type: TypeInvalid, Text: text}
	}
	if !checkBounds(r.ctx, addr) {
		return Name{Type: TypeInvalid, Text: text}
	}
	return Name{Type: TypeCell, Address: toRelative(addr, origin), Text: text}
}

func (r odfCRA) FormatAddress(addr, origin address.CellAddress, withSheet bool) string {
	inner := odff{ctx: r.ctx}.FormatAddress(addr, origin, withSheet)
	return inner // already bracketed; odff's form doubles as ours for a single address
}

func (r odfCRA) FormatRange(rng address.RangeAddress, origin address.CellAddress, withSheet bool) string {
	first := strings.TrimSuffix(strings.TrimPrefix(r.FormatAddress(rng.First, origin, withSheet), "["), "]")
	last := strings.TrimSuffix(strings.TrimPrefix(r.FormatAddress(rng.Last, origin, false), "["), "]")
	return "[" + first + "," + last + "]"
}

func (r odfCRA) FormatTable(ref address.TableReference, _ address.CellAddress, _ bool) string {
	return formatTable(ref)
}
