package value

import "github.com/ixion-engine/ixion/address"

// Dereferencer is the narrow slice of the model context the value stack
// needs to turn a reference entry into a scalar or a sequence of scalars:
// reading a cell's current numeric/string/formula-cache value. It is
// implemented by model.MemoryContext and kept separate from the full
// model.Context interface so this package doesn't import model (model
// already imports value for FormulaResult/Primitive).
type Dereferencer interface {
	// CellScalar reads addr's current value as a FormulaResult: a formula
	// cell yields its cached result, a numeric/string cell yields its
	// value, and an empty cell yields NumberResult(0.0).
	CellScalar(addr address.CellAddress) FormulaResult
	// RangeScalars yields CellScalar for every cell in rng, row-major,
	// empty cells included (as 0.0); result extraction's first-cell rule
	// depends on positional completeness.
	RangeScalars(rng address.RangeAddress) []FormulaResult
	// RangeValues yields CellScalar for every non-empty cell in rng,
	// row-major: the cell-by-cell iteration aggregate functions consume.
	// Empty cells are skipped so they contribute neither a spurious 0 to
	// MIN/MAX nor a count to AVERAGE's denominator.
	RangeValues(rng address.RangeAddress) []FormulaResult
	// StringAt resolves an interned string id to its text.
	StringAt(id uint32) string
	// InternString interns s, returning its (possibly newly assigned) id,
	// used by string-producing functions like CONCATENATE.
	InternString(s string) uint32
}

// Stack is the evaluator's working stack: a LIFO of StackEntry, mixing
// scalars and lazily-dereferenced references. Functions and operators pop
// their operands, compute, and push exactly one result, so a well-formed
// formula leaves exactly one entry for result extraction.
type Stack struct {
	entries []StackEntry
}

// NewStack returns an empty stack.
func NewStack() *Stack { return &Stack{} }

// Push appends an entry.
func (s *Stack) Push(e StackEntry) { s.entries = append(s.entries, e) }

// Pop removes and returns the top entry. ok is false on an empty stack.
func (s *Stack) Pop() (StackEntry, bool) {
	if len(s.entries) == 0 {
		return StackEntry{}, false
	}
	n := len(s.entries) - 1
	e := s.entries[n]
	s.entries = s.entries[:n]
	return e, true
}

// Len reports the number of entries currently on the stack.
func (s *Stack) Len() int { return len(s.entries) }

// PopScalar pops the top entry and, if it is a reference, dereferences it
// through deref: a single-ref reads the cell's value; a range-ref reads the
// first cell of the range (implicit intersection).
func (s *Stack) PopScalar(deref Dereferencer) (FormulaResult, bool) {
	e, ok := s.Pop()
	if !ok {
		return FormulaResult{}, false
	}
	return EntryToScalar(e, deref), true
}

// EntryToScalar resolves a single stack entry to a scalar FormulaResult
// without touching the stack, used both by PopScalar and by result
// extraction.
func EntryToScalar(e StackEntry, deref Dereferencer) FormulaResult {
	switch e.Type {
	case TypeNumber:
		return NumberResult(e.Number)
	case TypeString:
		return StringResult(e.StringID)
	case TypeSingleRef:
		return deref.CellScalar(e.Ref)
	case TypeRangeRef:
		cells := deref.RangeScalars(e.Range)
		if len(cells) == 0 {
			return NumberResult(0.0)
		}
		return cells[0]
	default:
		return NumberResult(0.0)
	}
}
