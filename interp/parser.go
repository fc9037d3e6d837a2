package interp

import (
	"fmt"
	"strconv"

	"github.com/ixion-engine/ixion/address"
	"github.com/ixion-engine/ixion/lexer"
	"github.com/ixion-engine/ixion/resolver"
	"github.com/ixion-engine/ixion/token"
)

// StringInterner is the narrow seam Parse needs to turn a string literal
// into an interned id; satisfied by value.Dereferencer and by
// model.MemoryContext without either needing to import this package.
type StringInterner interface {
	InternString(s string) uint32
}

// Parse turns src (a formula's text with any leading '=' already stripped)
// into a token.FormulaToken stream: the lexer yields primitive opcodes,
// and this step resolves every Name primitive via resolver into a
// function/single-ref/range-ref/table-ref/named-expression token, leaving
// every other primitive token to map across directly.
func Parse(src string, origin address.CellAddress, dialect resolver.Dialect, sheets resolver.SheetContext, interner StringInterner) ([]token.FormulaToken, error) {
	return parse(src, origin, dialect, sheets, interner, false)
}

// ParseLenient is Parse with one relaxation: a name that resolves to
// nothing recognizable becomes an UnresolvedRef token instead of a parse
// error, so diagnostics and tests can inspect where resolution failed.
func ParseLenient(src string, origin address.CellAddress, dialect resolver.Dialect, sheets resolver.SheetContext, interner StringInterner) ([]token.FormulaToken, error) {
	return parse(src, origin, dialect, sheets, interner, true)
}

func parse(src string, origin address.CellAddress, dialect resolver.Dialect, sheets resolver.SheetContext, interner StringInterner, keepUnresolved bool) ([]token.FormulaToken, error) {
	lexTokens, err := lexer.New(src).Tokenize()
	if err != nil {
		return nil, err
	}

	r := resolver.New(dialect, sheets)
	out := make([]token.FormulaToken, 0, len(lexTokens))

	for i := 0; i < len(lexTokens); i++ {
		lt := lexTokens[i]
		switch lt.Kind {
		case lexer.LParen:
			out = append(out, token.OpenToken())
		case lexer.RParen:
			out = append(out, token.CloseToken())
		case lexer.Comma:
			out = append(out, token.SepToken())
		case lexer.Plus:
			out = append(out, token.OperatorToken(token.Plus))
		case lexer.Minus:
			out = append(out, token.OperatorToken(token.Minus))
		case lexer.Star:
			out = append(out, token.OperatorToken(token.Multiply))
		case lexer.Slash:
			out = append(out, token.OperatorToken(token.Divide))
		case lexer.Eq:
			out = append(out, token.OperatorToken(token.Equal))
		case lexer.NotEq:
			out = append(out, token.OperatorToken(token.NotEqual))
		case lexer.Lt:
			out = append(out, token.OperatorToken(token.Less))
		case lexer.LtEq:
			out = append(out, token.OperatorToken(token.LessEqual))
		case lexer.Gt:
			out = append(out, token.OperatorToken(token.Greater))
		case lexer.GtEq:
			out = append(out, token.OperatorToken(token.GreaterEqual))
		case lexer.Number:
			n, perr := strconv.ParseFloat(lt.Text, 64)
			if perr != nil {
				return nil, fmt.Errorf("interp: invalid number %q at %d: %w", lt.Text, lt.Pos, perr)
			}
			out = append(out, token.NumberToken(n))
		case lexer.String:
			out = append(out, token.StringToken(interner.InternString(lt.Text)))
		case lexer.Name:
			name := r.Resolve(lt.Text, origin)
			switch name.Type {
			case resolver.TypeFunction:
				argc, cerr := countArgs(lexTokens, i+1)
				if cerr != nil {
					return nil, fmt.Errorf("interp: %q at %d: %w", lt.Text, lt.Pos, cerr)
				}
				out = append(out, token.FunctionToken(name.Func, argc))
			case resolver.TypeCell:
				out = append(out, token.SingleRefToken(name.Address))
			case resolver.TypeRange:
				out = append(out, token.RangeRefToken(name.Range))
			case resolver.TypeTable:
				out = append(out, token.TableRefToken(name.Table))
			case resolver.TypeNamedExpression:
				out = append(out, token.NamedExprToken(name.Text))
			default:
				if !keepUnresolved {
					return nil, fmt.Errorf("interp: invalid reference %q at %d", lt.Text, lt.Pos)
				}
				out = append(out, token.UnresolvedRefToken(lt.Text))
			}
		default:
			return nil, fmt.Errorf("interp: unexpected token %q at %d", lt.Text, lt.Pos)
		}
	}
	return out, nil
}

// countArgs counts the comma-separated arguments of a function call whose
// opening '(' sits at lexTokens[parenPos], without consuming any tokens;
// Parse still emits the '(' / ',' / ')' tokens themselves verbatim, since
// the interpreter's call() walks them directly. An empty call (no tokens
// between the parens) counts as zero arguments.
func countArgs(lexTokens []lexer.Token, parenPos int) (int, error) {
	if parenPos >= len(lexTokens) || lexTokens[parenPos].Kind != lexer.LParen {
		return 0, fmt.Errorf("function name not followed by '('")
	}
	depth := 0
	argc := 0
	sawAny := false
	for i := parenPos; i < len(lexTokens); i++ {
		switch lexTokens[i].Kind {
		case lexer.LParen:
			depth++
		case lexer.RParen:
			depth--
			if depth == 0 {
				if sawAny {
					argc++
				}
				return argc, nil
			}
		case lexer.Comma:
			if depth == 1 {
				argc++
				sawAny = true
			}
		default:
			if depth == 1 {
				sawAny = true
			}
		}
	}
	return 0, fmt.Errorf("unterminated function call")
}
