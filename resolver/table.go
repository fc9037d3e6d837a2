package resolver

import (
	"strings"

	"github.com/ixion-engine/ixion/address"
)

// parseTable recognizes the four structured-table reference shapes:
// "Table[Column]", "[Column]", "Table[[#Area],[Column]]", and
// "Table[[#Area1],[#Area2],[ColFirst]:[ColLast]]". Brackets never nest
// past depth 2, so plain string splitting suffices.
func parseTable(s string) (address.TableReference, bool) {
	firstBracket := strings.IndexByte(s, '[')
	if firstBracket < 0 {
		return address.TableReference{}, false
	}
	if !strings.HasSuffix(s, "]") {
		return address.TableReference{}, false
	}

	name := s[:firstBracket]
	body := s[firstBracket+1 : len(s)-1]
	if body == "" {
		return address.TableReference{}, false
	}

	var names []string
	if strings.HasPrefix(body, "[") {
		// Table[[#Area],[Column]] or Table[[#Area],[First]:[Last]] form:
		// split the inner bracket groups.
		for _, part := range splitBracketGroups(body) {
			names = append(names, part)
		}
	} else {
		// Table[Column] / [Column] form: the whole body is one name.
		names = []string{body}
	}
	if len(names) == 0 {
		return address.TableReference{}, false
	}

	ref := address.TableReference{Name: name}
	lastColPos := -1
	for i, n := range names {
		if strings.Contains(n, ":") {
			lastColPos = i
		}
	}

	for i, n := range names {
		if strings.HasPrefix(n, "#") {
			switch n[1:] {
			case "Headers":
				ref.Areas |= address.AreaHeaders
			case "Data":
				ref.Areas |= address.AreaData
			case "Totals":
				ref.Areas |= address.AreaTotals
			case "All":
				ref.Areas = address.AreaAll
			}
			continue
		}
		if lastColPos == i {
			parts := strings.SplitN(n, ":", 2)
			ref.ColumnFirst = parts[0]
			if len(parts) == 2 {
				ref.ColumnLast = parts[1]
			}
			continue
		}
		if ref.ColumnFirst == "" {
			if ref.Areas == address.AreaNone {
				ref.Areas = address.AreaData
			}
			ref.ColumnFirst = n
		} else if ref.ColumnLast == "" {
			ref.ColumnLast = n
		} else {
			return address.TableReference{}, false
		}
	}
	if ref.ColumnFirst == "" {
		return address.TableReference{}, false
	}
	return ref, true
}

// splitBracketGroups splits "[#Data],[Column]" into ["#Data", "Column"],
// tolerating a single ":" inside the last group for a column range.
func splitBracketGroups(s string) []string {
	var out []string
	depth := 0
	start := -1
	for i, ch := range s {
		switch ch {
		case '[':
			depth++
			if depth == 1 {
				start = i + 1
			}
		case ']':
			depth--
			if depth == 0 && start >= 0 {
				out = append(out, s[start:i])
				start = -1
			}
		}
	}
	return out
}

// formatTable renders a table reference back to its canonical text form.
func formatTable(ref address.TableReference) string {
	var b strings.Builder
	b.WriteString(ref.Name)
	b.WriteByte('[')
	hasArea := ref.Areas != address.AreaNone && ref.Areas != address.AreaData
	if hasArea {
		b.WriteByte('[')
		writeAreaSpecifiers(&b, ref.Areas)
		b.WriteString("],[")
		b.WriteString(ref.ColumnFirst)
		if ref.ColumnLast != "" {
			b.WriteString("]:[")
			b.WriteString(ref.ColumnLast)
		}
		b.WriteByte(']')
	} else {
		b.WriteString(ref.ColumnFirst)
		if ref.ColumnLast != "" {
			b.WriteByte(':')
			b.WriteString(ref.ColumnLast)
		}
	}
	b.WriteByte(']')
	return b.String()
}

func writeAreaSpecifiers(b *strings.Builder, areas address.Areas) {
	if areas == address.AreaAll {
		b.WriteString("#All")
		return
	}
	first := true
	write := func(name string) {
		if !first {
			b.WriteString("],[")
		}
		b.WriteByte('#')
		b.WriteString(name)
		first = false
	}
	if areas&address.AreaHeaders != 0 {
		write("Headers")
	}
	if areas&address.AreaData != 0 {
		write("Data")
	}
	if areas&address.AreaTotals != 0 {
		write("Totals")
	}
}
