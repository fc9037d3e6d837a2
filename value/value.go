// Package value holds the typed values the interpreter pushes onto its
// evaluation stack and the formula-result type cells cache after interpret.
package value

import (
	"fmt"

	"github.com/ixion-engine/ixion/address"
)

// Primitive is any value a cell or stack slot can hold at rest: a float64,
// a string, or nil (empty). A range read (model.MemoryContext.GetRangeValue)
// also stores an errored formula cell's ErrorKind.
type Primitive any

// ErrorKind enumerates the closed error taxonomy. Exactly one kind is
// attached to a FormulaResult; NoError means success.
type ErrorKind uint8

const (
	NoError ErrorKind = iota
	RefResultNotAvailable
	DivisionByZero
	InvalidExpression
	NameNotFound
	GeneralError
)

var errorText = map[ErrorKind]string{
	NoError:               "",
	RefResultNotAvailable: "#REF!",
	DivisionByZero:        "#DIV/0!",
	InvalidExpression:     "#NAME?", // parser/interpreter syntax failures render as #NAME? when surfaced textually
	NameNotFound:          "#NAME?",
	GeneralError:          "#NAME?",
}

// String renders the error kind in its spreadsheet textual form.
func (e ErrorKind) String() string {
	if s, ok := errorText[e]; ok {
		return s
	}
	return "#NAME?"
}

// ParseErrorKind re-inflates an error kind from its textual form. It is
// the inverse of String for the three distinct forms (#REF!, #DIV/0!,
// #NAME?); any other text is not a recognized error.
func ParseErrorKind(s string) (ErrorKind, bool) {
	switch s {
	case "#REF!":
		return RefResultNotAvailable, true
	case "#DIV/0!":
		return DivisionByZero, true
	case "#NAME?":
		return NameNotFound, true
	default:
		return NoError, false
	}
}

// ResultType tags the kind of a FormulaResult / StackEntry.
type ResultType uint8

const (
	TypeNumber ResultType = iota
	TypeString
	TypeSingleRef
	TypeRangeRef
	TypeError
)

// FormulaResult is the cached outcome of interpreting a formula cell: a
// number, an interned string id, or an error kind. Exactly one of Number/
// StringID/Err is meaningful, selected by Type.
type FormulaResult struct {
	Type     ResultType
	Number   float64
	StringID uint32
	Err      ErrorKind
}

// Reset is the canonical "needs recalculation" result: a numeric zero.
func Reset() FormulaResult {
	return FormulaResult{Type: TypeNumber, Number: 0.0}
}

// NumberResult builds a numeric FormulaResult.
func NumberResult(n float64) FormulaResult { return FormulaResult{Type: TypeNumber, Number: n} }

// StringResult builds a string FormulaResult from an interned id.
func StringResult(id uint32) FormulaResult { return FormulaResult{Type: TypeString, StringID: id} }

// ErrorResult builds an error FormulaResult.
func ErrorResult(kind ErrorKind) FormulaResult { return FormulaResult{Type: TypeError, Err: kind} }

// IsError reports whether the result carries an error kind other than
// NoError.
func (r FormulaResult) IsError() bool {
	return r.Type == TypeError && r.Err != NoError
}

func (r FormulaResult) String() string {
	switch r.Type {
	case TypeNumber:
		return fmt.Sprintf("%v", r.Number)
	case TypeString:
		return fmt.Sprintf("str#%d", r.StringID)
	case TypeError:
		return r.Err.String()
	default:
		return "?"
	}
}

// StackEntry is a value-stack slot: a number, an interned string id, or a
// (lazily dereferenced) single/range reference. Reference entries are
// resolved against the model context only when an operator or function
// demands a scalar.
type StackEntry struct {
	Type     ResultType
	Number   float64
	StringID uint32
	Ref      address.CellAddress
	Range    address.RangeAddress
}

func NumberEntry(n float64) StackEntry { return StackEntry{Type: TypeNumber, Number: n} }
func StringEntry(id uint32) StackEntry { return StackEntry{Type: TypeString, StringID: id} }
func SingleRefEntry(a address.CellAddress) StackEntry {
	return StackEntry{Type: TypeSingleRef, Ref: a}
}
func RangeRefEntry(r address.RangeAddress) StackEntry {
	return StackEntry{Type: TypeRangeRef, Range: r}
}
