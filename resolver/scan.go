package resolver

import "github.com/ixion-engine/ixion/address"

// scanA1Cell parses a single A1-style cell/column/row fragment: an optional
// '$' then letters for the column, an optional '$' then digits for the row,
// either half optional so "A", "1", and "A1" are all accepted (a bare
// column or row names a half-open reference via RowUnset/ColumnUnset).
// Returns the parsed address (absolute row/column values, not yet
// relativized against an origin) and whether the fragment was fully
// consumed.
func scanA1Cell(s string) (addr address.CellAddress, ok bool) {
	addr.Row = address.RowUnset
	addr.Col = address.ColumnUnset
	i := 0

	if i < len(s) && s[i] == '$' {
		addr.AbsCol = true
		i++
	}
	colStart := i
	for i < len(s) && isLetter(s[i]) {
		i++
	}
	if i > colStart {
		col, err := address.DecodeColumn(s[colStart:i])
		if err != nil {
			return address.CellAddress{}, false
		}
		// A letter run decoding past the global column bound is not a
		// column at all but the start of a name ("Name1", "Profit2024"),
		// so the fragment is rejected here and resolution falls back to
		// function-or-named-expression.
		if col >= upperBoundCols {
			return address.CellAddress{}, false
		}
		addr.Col = col
	} else if addr.AbsCol {
		return address.CellAddress{}, false
	}

	if i < len(s) && s[i] == '$' {
		addr.AbsRow = true
		i++
	}
	rowStart := i
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	if i > rowStart {
		row := 0
		for _, ch := range s[rowStart:i] {
			row = row*10 + int(ch-'0')
		}
		if row == 0 {
			return address.CellAddress{}, false
		}
		addr.Row = row - 1
	} else if addr.AbsRow {
		return address.CellAddress{}, false
	}

	if i != len(s) {
		return address.CellAddress{}, false
	}
	if addr.Row == address.RowUnset && addr.Col == address.ColumnUnset {
		return address.CellAddress{}, false
	}
	return addr, true
}

func isLetter(ch byte) bool { return (ch >= 'A' && ch <= 'Z') || (ch >= 'a' && ch <= 'z') }
func isDigit(ch byte) bool  { return ch >= '0' && ch <= '9' }

// formatA1Cell renders addr (already resolved to display row/column values)
// back to A1 text, writing '$' before an absolute axis.
func formatA1Cell(col int, absCol bool, row int, absRow bool) string {
	var out []byte
	if col != address.ColumnUnset {
		if absCol {
			out = append(out, '$')
		}
		out = append(out, address.EncodeColumn(col)...)
	}
	if row != address.RowUnset {
		if absRow {
			out = append(out, '$')
		}
		out = appendInt(out, row+1)
	}
	return string(out)
}

func appendInt(b []byte, n int) []byte {
	if n == 0 {
		return append(b, '0')
	}
	start := len(b)
	for n > 0 {
		b = append(b, byte('0'+n%10))
		n /= 10
	}
	// reverse the digits just appended
	for i, j := start, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return b
}
