package resolver

import (
	"strconv"
	"strings"

	"github.com/ixion-engine/ixion/address"
	"github.com/ixion-engine/ixion/function"
)

// excelR1C1 implements the Excel R1C1 dialect: 'R' and 'C' markers, each
// optionally followed by an absolute 1-based number (R5, C3) or a bracketed
// relative offset (R[2], C[-1]); a bare 'R' or 'C' names the current row/
// column (offset zero).
type excelR1C1 struct{ ctx SheetContext }

func (r excelR1C1) Resolve(text string, origin address.CellAddress) Name {
	if text == "" {
		return Name{Type: TypeInvalid, Text: text}
	}
	if op, isFunc := function.Lookup(text); isFunc {
		return Name{Type: TypeFunction, Func: op, Text: text}
	}

	sheetName, after, hasSheet := splitSheetQualified(text, '!')
	sheet := origin.Sheet
	absSheet := hasSheet
	rest := text
	if hasSheet {
		idx, found := -1, false
		if r.ctx != nil {
			idx, found = r.ctx.SheetIndex(strings.TrimPrefix(sheetName, "$"))
		}
		if !found {
			return resolveFunctionOrName(text)
		}
		sheet = idx
		rest = after
	}

	if i := strings.IndexByte(rest, ':'); i >= 0 {
		firstAddr, ok1 := scanR1C1Cell(rest[:i])
		lastAddr, ok2 := scanR1C1Cell(rest[i+1:])
		if !ok1 || !ok2 {
			return resolveFunctionOrName(text)
		}
		firstAddr.Sheet, firstAddr.AbsSheet = sheet, absSheet
		lastAddr.Sheet, lastAddr.AbsSheet = sheet, absSheet
		if !checkBounds(r.ctx, firstAddr) || !checkBounds(r.ctx, lastAddr) {
			return Name{Type: TypeInvalid, Text: text}
		}
		if !absSheet && origin.Sheet != address.InvalidSheet {
			firstAddr.Sheet -= origin.Sheet
			lastAddr.Sheet -= origin.Sheet
		}
		return Name{Type: TypeRange, Range: address.RangeAddress{First: firstAddr, Last: lastAddr}, Text: text}
	}

	addr, ok := scanR1C1Cell(rest)
	if !ok {
		return resolveFunctionOrName(text)
	}
	addr.Sheet, addr.AbsSheet = sheet, absSheet
	if !checkBounds(r.ctx, addr) {
		return Name{Type: TypeInvalid, Text: text}
	}
	// an unqualified sheet is stored as an offset from origin, as
	// FormatAddress and CellAddress.Resolve read it.
	if !absSheet && origin.Sheet != address.InvalidSheet {
		addr.Sheet -= origin.Sheet
	}
	return Name{Type: TypeCell, Address: addr, Text: text}
}

func (r excelR1C1) FormatAddress(addr, origin address.CellAddress, withSheet bool) string {
	var b strings.Builder
	if withSheet && r.ctx != nil {
		sheet := addr.Sheet
		if !addr.AbsSheet {
			sheet += origin.Sheet
		}
		if name, ok := r.ctx.SheetName(sheet); ok {
			b.WriteString(quoteSheetName(name))
			b.WriteByte('!')
		}
	}
	b.WriteString(formatR1C1Cell(addr))
	return b.String()
}

func (r excelR1C1) FormatRange(rng address.RangeAddress, origin address.CellAddress, withSheet bool) string {
	return r.FormatAddress(rng.First, origin, withSheet) + ":" + r.FormatAddress(rng.Last, origin, false)
}

func (r excelR1C1) FormatTable(ref address.TableReference, _ address.CellAddress, _ bool) string {
	return formatTable(ref)
}

// scanR1C1Cell parses an 'R'/'C' fragment into an address whose Row/Col are
// already in the engine's relative-offset-or-absolute-value form; unlike
// the A1 scanner, no further relativizing against origin is needed (or
// correct): a bracketed R1C1 offset already *is* the delta CellAddress
// stores for a relative axis.
func scanR1C1Cell(s string) (address.CellAddress, bool) {
	addr := address.CellAddress{Row: address.RowUnset, Col: address.ColumnUnset}
	i := 0
	n := len(s)

	if i < n && (s[i] == 'R' || s[i] == 'r') {
		i++
		row, absRow, next, ok := scanR1C1Axis(s, i)
		if !ok {
			return address.CellAddress{}, false
		}
		addr.Row, addr.AbsRow, i = row, absRow, next
	}
	if i < n && (s[i] == 'C' || s[i] == 'c') {
		i++
		col, absCol, next, ok := scanR1C1Axis(s, i)
		if !ok {
			return address.CellAddress{}, false
		}
		addr.Col, addr.AbsCol, i = col, absCol, next
	}
	if i != n {
		return address.CellAddress{}, false
	}
	if addr.Row == address.RowUnset && addr.Col == address.ColumnUnset {
		return address.CellAddress{}, false
	}
	return addr, true
}

func scanR1C1Axis(s string, i int) (value int, absolute bool, next int, ok bool) {
	n := len(s)
	if i < n && s[i] == '[' {
		j := i + 1
		neg := false
		if j < n && s[j] == '-' {
			neg = true
			j++
		}
		start := j
		for j < n && isDigit(s[j]) {
			j++
		}
		if j == start || j >= n || s[j] != ']' {
			return 0, false, i, false
		}
		v, _ := strconv.Atoi(s[start:j])
		if neg {
			v = -v
		}
		return v, false, j + 1, true
	}
	if i < n && isDigit(s[i]) {
		start := i
		for i < n && isDigit(s[i]) {
			i++
		}
		v, _ := strconv.Atoi(s[start:i])
		if v == 0 {
			return 0, false, i, false
		}
		return v - 1, true, i, true
	}
	// bare R or C: current row/column, offset zero.
	return 0, false, i, true
}

func formatR1C1Cell(addr address.CellAddress) string {
	var b strings.Builder
	if addr.Row != address.RowUnset {
		b.WriteByte('R')
		if addr.AbsRow {
			b.WriteString(strconv.Itoa(addr.Row + 1))
		} else if addr.Row != 0 {
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(addr.Row))
			b.WriteByte(']')
		}
	}
	if addr.Col != address.ColumnUnset {
		b.WriteByte('C')
		if addr.AbsCol {
			b.WriteString(strconv.Itoa(addr.Col + 1))
		} else if addr.Col != 0 {
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(addr.Col))
			b.WriteByte(']')
		}
	}
	return b.String()
}
