// Package interp evaluates a parsed token stream against a cell's origin
// position: named-expression expansion, then a recursive-descent walk over
// an expression/term/factor grammar, using package value's
// Stack/Dereferencer as its working memory.
package interp

import (
	"strings"

	"github.com/ixion-engine/ixion/address"
	"github.com/ixion-engine/ixion/function"
	"github.com/ixion-engine/ixion/token"
	"github.com/ixion-engine/ixion/value"
)

// NamedExpressionLookup resolves a named expression to the token stream it
// expands to, scoped to origin (scope precedence is the lookup's
// responsibility, not interp's).
type NamedExpressionLookup interface {
	LookupNamedExpression(name string, origin address.CellAddress) ([]token.FormulaToken, bool)
}

// TableResolver resolves a parsed table reference to an absolute range.
type TableResolver interface {
	ResolveTable(ref address.TableReference, origin address.CellAddress) (address.RangeAddress, bool)
}

// SessionHandler receives a callback for every token the interpreter
// consumes, for tracing/diagnostics, and one OnError call when
// interpretation fails with the kind about to be stamped on the cell.
type SessionHandler interface {
	OnToken(tok token.FormulaToken)
	OnError(kind value.ErrorKind)
}

// Evaluate expands named expressions in tokens (cycle-guarded) and
// interprets the result relative to origin, returning the cell's formula
// result. deref resolves reference entries to scalars; names resolves
// named-expression tokens; tables resolves table-reference tokens (may be
// nil if the model carries no tables); handler may be nil.
func Evaluate(
	tokens []token.FormulaToken,
	origin address.CellAddress,
	deref value.Dereferencer,
	names NamedExpressionLookup,
	tables TableResolver,
	handler SessionHandler,
) value.FormulaResult {
	expanded, errKind := expandNamed(tokens, origin, names, map[string]bool{})
	if errKind != value.NoError {
		if handler != nil {
			handler.OnError(errKind)
		}
		return value.ErrorResult(errKind)
	}

	e := &evaluator{
		tokens:  expanded,
		origin:  origin,
		deref:   deref,
		tables:  tables,
		handler: handler,
		stack:   value.NewStack(),
	}
	e.expression()
	if e.err == value.NoError && e.stack.Len() != 1 {
		e.err = value.GeneralError
	}
	if e.err == value.NoError && !e.atEnd() {
		// Leftover tokens after a complete expression, e.g. "1 2".
		e.err = value.InvalidExpression
	}
	if e.err != value.NoError {
		if handler != nil {
			handler.OnError(e.err)
		}
		return value.ErrorResult(e.err)
	}
	entry, _ := e.stack.Pop()
	return value.EntryToScalar(entry, deref)
}

// expandNamed substitutes every NamedExpr token with "(" + its expansion +
// ")", recursively; used detects circular name references, which raise
// invalid_expression.
func expandNamed(tokens []token.FormulaToken, origin address.CellAddress, names NamedExpressionLookup, used map[string]bool) ([]token.FormulaToken, value.ErrorKind) {
	out := make([]token.FormulaToken, 0, len(tokens))
	for _, tok := range tokens {
		if tok.Op != token.NamedExpr {
			out = append(out, tok)
			continue
		}
		if used[tok.Name] {
			return nil, value.InvalidExpression
		}
		if names == nil {
			return nil, value.NameNotFound
		}
		sub, ok := names.LookupNamedExpression(tok.Name, origin)
		if !ok {
			return nil, value.NameNotFound
		}
		nextUsed := make(map[string]bool, len(used)+1)
		for k := range used {
			nextUsed[k] = true
		}
		nextUsed[tok.Name] = true

		expandedSub, errKind := expandNamed(sub, origin, names, nextUsed)
		if errKind != value.NoError {
			return nil, errKind
		}
		out = append(out, token.OpenToken())
		out = append(out, expandedSub...)
		out = append(out, token.CloseToken())
	}
	return out, value.NoError
}

type evaluator struct {
	tokens  []token.FormulaToken
	pos     int
	origin  address.CellAddress
	deref   value.Dereferencer
	tables  TableResolver
	handler SessionHandler
	stack   *value.Stack
	err     value.ErrorKind
}

func (e *evaluator) fail(k value.ErrorKind) {
	if e.err == value.NoError {
		e.err = k
	}
}

func (e *evaluator) atEnd() bool { return e.pos >= len(e.tokens) }

func (e *evaluator) peek() (token.FormulaToken, bool) {
	if e.atEnd() {
		return token.FormulaToken{}, false
	}
	return e.tokens[e.pos], true
}

func (e *evaluator) advance() token.FormulaToken {
	tok := e.tokens[e.pos]
	e.pos++
	if e.handler != nil {
		e.handler.OnToken(tok)
	}
	return tok
}

// expression := term ((+|-|=|<>|<|<=|>|>=) term)*
func (e *evaluator) expression() {
	e.term()
	for e.err == value.NoError {
		tok, ok := e.peek()
		if !ok || !isExpressionOp(tok.Op) {
			return
		}
		e.advance()
		e.term()
		if e.err != value.NoError {
			return
		}
		e.applyBinary(tok.Op)
	}
}

func isExpressionOp(op token.Opcode) bool {
	switch op {
	case token.Plus, token.Minus:
		return true
	default:
		return token.IsComparison(op)
	}
}

// term := factor ((*|/) factor)*
func (e *evaluator) term() {
	e.factor()
	for e.err == value.NoError {
		tok, ok := e.peek()
		if !ok || (tok.Op != token.Multiply && tok.Op != token.Divide) {
			return
		}
		e.advance()
		e.factor()
		if e.err != value.NoError {
			return
		}
		e.applyBinary(tok.Op)
	}
}

// factor := '(' expression ')' | number | string
//         | single_ref | range_ref | table_ref | function | named_expression
func (e *evaluator) factor() {
	tok, ok := e.peek()
	if !ok {
		e.fail(value.GeneralError)
		return
	}
	e.advance()

	switch tok.Op {
	case token.Open:
		e.expression()
		if e.err != value.NoError {
			return
		}
		closeTok, ok := e.peek()
		if !ok || closeTok.Op != token.Close {
			e.fail(value.InvalidExpression)
			return
		}
		e.advance()
	case token.Value:
		e.stack.Push(value.NumberEntry(tok.Number))
	case token.String:
		e.stack.Push(value.StringEntry(tok.StringID))
	case token.SingleRef:
		e.pushSingleRef(tok.Single)
	case token.RangeRef:
		e.pushRangeRef(tok.Range)
	case token.TableRef:
		e.pushTableRef(tok.Table)
	case token.Function:
		e.call(tok)
	default:
		e.fail(value.GeneralError)
	}
}

func (e *evaluator) pushSingleRef(rel address.CellAddress) {
	abs := rel.Resolve(e.origin)
	if abs.SamePosition(e.origin) {
		e.fail(value.RefResultNotAvailable)
		return
	}
	e.stack.Push(value.SingleRefEntry(abs))
}

func (e *evaluator) pushRangeRef(rel address.RangeAddress) {
	abs := rel.Resolve(e.origin)
	if abs.Contains(e.origin) {
		e.fail(value.RefResultNotAvailable)
		return
	}
	e.stack.Push(value.RangeRefEntry(abs))
}

func (e *evaluator) pushTableRef(ref address.TableReference) {
	if e.tables == nil {
		e.fail(value.NameNotFound)
		return
	}
	rng, ok := e.tables.ResolveTable(ref, e.origin)
	if !ok {
		e.fail(value.NameNotFound)
		return
	}
	if rng.Contains(e.origin) {
		e.fail(value.RefResultNotAvailable)
		return
	}
	e.stack.Push(value.RangeRefEntry(rng))
}

func (e *evaluator) call(tok token.FormulaToken) {
	open, ok := e.peek()
	if !ok || open.Op != token.Open {
		e.fail(value.InvalidExpression)
		return
	}
	e.advance()

	for i := 0; i < tok.Argc; i++ {
		if i > 0 {
			sep, ok := e.peek()
			if !ok || sep.Op != token.Sep {
				e.fail(value.InvalidExpression)
				return
			}
			e.advance()
		}
		e.expression()
		if e.err != value.NoError {
			return
		}
	}

	closeTok, ok := e.peek()
	if !ok || closeTok.Op != token.Close {
		e.fail(value.InvalidExpression)
		return
	}
	e.advance()

	if errKind := function.Call(tok.Func, tok.Argc, e.stack, e.deref); errKind != value.NoError {
		e.fail(errKind)
	}
}

// applyBinary pops the right and left operands (right popped first, since
// it was pushed last), applies op, and pushes exactly one result.
func (e *evaluator) applyBinary(op token.Opcode) {
	right, ok := e.stack.PopScalar(e.deref)
	if !ok {
		e.fail(value.GeneralError)
		return
	}
	left, ok := e.stack.PopScalar(e.deref)
	if !ok {
		e.fail(value.GeneralError)
		return
	}
	if left.IsError() {
		e.fail(left.Err)
		return
	}
	if right.IsError() {
		e.fail(right.Err)
		return
	}

	if token.IsComparison(op) {
		e.stack.Push(value.NumberEntry(boolToNumber(e.compare(left, right, op))))
		return
	}

	switch op {
	case token.Plus, token.Minus:
		if left.Type != value.TypeNumber || right.Type != value.TypeNumber {
			e.fail(value.InvalidExpression)
			return
		}
		if op == token.Plus {
			e.stack.Push(value.NumberEntry(left.Number + right.Number))
		} else {
			e.stack.Push(value.NumberEntry(left.Number - right.Number))
		}
	case token.Multiply, token.Divide:
		if left.Type != value.TypeNumber || right.Type != value.TypeNumber {
			e.fail(value.InvalidExpression)
			return
		}
		if op == token.Divide {
			if right.Number == 0 {
				e.fail(value.DivisionByZero)
				return
			}
			e.stack.Push(value.NumberEntry(left.Number / right.Number))
		} else {
			e.stack.Push(value.NumberEntry(left.Number * right.Number))
		}
	default:
		e.fail(value.GeneralError)
	}
}

// compare orders left against right under the pop-as-value-or-string rule:
// strings sort above all numbers, so number < string always.
func (e *evaluator) compare(left, right value.FormulaResult, op token.Opcode) bool {
	var cmp int
	switch {
	case left.Type == value.TypeString && right.Type == value.TypeString:
		cmp = strings.Compare(e.deref.StringAt(left.StringID), e.deref.StringAt(right.StringID))
	case left.Type == value.TypeString:
		cmp = 1
	case right.Type == value.TypeString:
		cmp = -1
	default:
		switch {
		case left.Number < right.Number:
			cmp = -1
		case left.Number > right.Number:
			cmp = 1
		default:
			cmp = 0
		}
	}

	switch op {
	case token.Equal:
		return cmp == 0
	case token.NotEqual:
		return cmp != 0
	case token.Less:
		return cmp < 0
	case token.LessEqual:
		return cmp <= 0
	case token.Greater:
		return cmp > 0
	case token.GreaterEqual:
		return cmp >= 0
	default:
		return false
	}
}

func boolToNumber(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}
