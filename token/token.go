// Package token defines the formula token model: a closed, tagged set of
// opcodes produced by the parser and consumed by the interpreter, plus the
// reference-counted token store that backs shared/grouped formulas.
package token

import (
	"github.com/ixion-engine/ixion/address"
)

// Opcode is the closed tag of a FormulaToken.
type Opcode uint8

const (
	Open Opcode = iota
	Close
	Sep
	Plus
	Minus
	Multiply
	Divide
	Equal
	NotEqual
	Less
	LessEqual
	Greater
	GreaterEqual
	Value          // number literal
	String         // interned string literal
	SingleRef      // single cell reference
	RangeRef       // range reference
	TableRef       // table reference
	NamedExpr      // named expression
	Function       // built-in function opcode
	UnresolvedRef  // name that resolved to nothing recognizable (diagnostics only)
)

// FunctionOpcode identifies a built-in function; the set is closed and
// owned by package function, but the type lives here so FormulaToken stays
// self-contained.
type FunctionOpcode uint16

// FormulaToken is an immutable tagged token. Only the field matching Op is
// meaningful.
type FormulaToken struct {
	Op       Opcode
	Number   float64
	StringID uint32
	Single   address.CellAddress
	Range    address.RangeAddress
	Table    address.TableReference
	Name     string // named-expression or unresolved-ref text
	Func     FunctionOpcode
	Argc     int // argument count for Func, counted by the parser from separators
}

func OpenToken() FormulaToken                          { return FormulaToken{Op: Open} }
func CloseToken() FormulaToken                         { return FormulaToken{Op: Close} }
func SepToken() FormulaToken                           { return FormulaToken{Op: Sep} }
func OperatorToken(op Opcode) FormulaToken             { return FormulaToken{Op: op} }
func NumberToken(n float64) FormulaToken               { return FormulaToken{Op: Value, Number: n} }
func StringToken(id uint32) FormulaToken               { return FormulaToken{Op: String, StringID: id} }
func SingleRefToken(a address.CellAddress) FormulaToken {
	return FormulaToken{Op: SingleRef, Single: a}
}
func RangeRefToken(r address.RangeAddress) FormulaToken {
	return FormulaToken{Op: RangeRef, Range: r}
}
func TableRefToken(t address.TableReference) FormulaToken {
	return FormulaToken{Op: TableRef, Table: t}
}
func NamedExprToken(name string) FormulaToken {
	return FormulaToken{Op: NamedExpr, Name: name}
}
func FunctionToken(f FunctionOpcode, argc int) FormulaToken {
	return FormulaToken{Op: Function, Func: f, Argc: argc}
}
func UnresolvedRefToken(name string) FormulaToken {
	return FormulaToken{Op: UnresolvedRef, Name: name}
}

// IsComparison reports whether op is one of the six comparison opcodes.
func IsComparison(op Opcode) bool {
	switch op {
	case Equal, NotEqual, Less, LessEqual, Greater, GreaterEqual:
		return true
	default:
		return false
	}
}
