// Package function implements the built-in function table: a closed set of
// FunctionOpcode values, a case-insensitive name lookup used by package
// resolver, and the dispatch that pops a call's arguments off the shared
// evaluator stack and pushes exactly one result. Call takes no
// package-level state, so concurrent pool workers may dispatch through it
// simultaneously on their own stacks.
package function

import (
	"math"
	"sort"
	"time"

	"github.com/ixion-engine/ixion/token"
	"github.com/ixion-engine/ixion/value"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Opcode is an alias for the function identifier carried on a Function
// token, kept distinct from token.FunctionOpcode only in name.
type Opcode = token.FunctionOpcode

const (
	Sum Opcode = iota
	Average
	Count
	CountA
	Min
	Max
	Median
	Mode
	If
	Concatenate
	Len
	Abs
	Mod
	Int
	Floor
	Wait
)

var upperCaser = cases.Upper(language.Und)

// names maps the canonical upper-case spelling to its opcode. Lookup is
// case-insensitive via upperCaser; function names compare caselessly
// across locales rather than only across ASCII.
var names = map[string]Opcode{
	"SUM":         Sum,
	"AVERAGE":     Average,
	"COUNT":       Count,
	"COUNTA":      CountA,
	"MIN":         Min,
	"MAX":         Max,
	"MEDIAN":      Median,
	"MODE":        Mode,
	"IF":          If,
	"CONCATENATE": Concatenate,
	"LEN":         Len,
	"ABS":         Abs,
	"MOD":         Mod,
	"INT":         Int,
	"FLOOR":       Floor,
	"WAIT":        Wait,
}

// Lookup resolves a function name to its opcode, case-insensitively (so
// e.g. "sum", "Sum", and "SUM" all match), returning ok=false when name
// isn't a recognized built-in.
func Lookup(name string) (Opcode, bool) {
	op, ok := names[upperCaser.String(name)]
	return op, ok
}

// Name returns the canonical upper-case spelling of op.
func Name(op Opcode) (string, bool) {
	for n, o := range names {
		if o == op {
			return n, true
		}
	}
	return "", false
}

// Call dispatches op against argc arguments freshly popped off stack (in
// push order, i.e. the first-pushed argument sits deepest). On success it
// pushes exactly one result and returns value.NoError. On failure it pushes
// nothing and returns the ErrorKind the caller (package interp) should
// surface as the cell's result. An unrecognized opcode or a structurally
// invalid argument list yields GeneralError.
func Call(op Opcode, argc int, stack *value.Stack, deref value.Dereferencer) value.ErrorKind {
	raw := make([]value.StackEntry, argc)
	for i := argc - 1; i >= 0; i-- {
		e, ok := stack.Pop()
		if !ok {
			return value.GeneralError
		}
		raw[i] = e
	}

	// Aggregates iterate a range argument cell by cell; every other
	// function takes each argument as a scalar, with a range collapsing to
	// its first cell per the implicit-intersection rule.
	var args []value.FormulaResult
	if isAggregate(op) {
		for _, e := range raw {
			if e.Type == value.TypeRangeRef {
				args = append(args, deref.RangeValues(e.Range)...)
				continue
			}
			args = append(args, value.EntryToScalar(e, deref))
		}
	} else {
		args = make([]value.FormulaResult, len(raw))
		for i, e := range raw {
			args[i] = value.EntryToScalar(e, deref)
		}
	}
	for _, a := range args {
		if a.IsError() {
			return a.Err
		}
	}

	switch op {
	case Sum:
		stack.Push(value.NumberEntry(reduceNumbers(args, 0, func(acc, n float64) float64 { return acc + n })))
	case Average:
		nums := numbersOnly(args)
		if len(nums) == 0 {
			return value.DivisionByZero
		}
		stack.Push(value.NumberEntry(sum(nums) / float64(len(nums))))
	case Count:
		n := 0
		for _, a := range args {
			if a.Type == value.TypeNumber {
				n++
			}
		}
		stack.Push(value.NumberEntry(float64(n)))
	case CountA:
		stack.Push(value.NumberEntry(float64(len(args))))
	case Min:
		nums := numbersOnly(args)
		if len(nums) == 0 {
			stack.Push(value.NumberEntry(0))
			return value.NoError
		}
		stack.Push(value.NumberEntry(reduceNumbers(args, nums[0], math.Min)))
	case Max:
		nums := numbersOnly(args)
		if len(nums) == 0 {
			stack.Push(value.NumberEntry(0))
			return value.NoError
		}
		stack.Push(value.NumberEntry(reduceNumbers(args, nums[0], math.Max)))
	case Median:
		nums := numbersOnly(args)
		if len(nums) == 0 {
			return value.DivisionByZero
		}
		stack.Push(value.NumberEntry(median(nums)))
	case Mode:
		nums := numbersOnly(args)
		m, ok := mode(nums)
		if !ok {
			return value.GeneralError
		}
		stack.Push(value.NumberEntry(m))
	case If:
		if argc != 2 && argc != 3 {
			return value.GeneralError
		}
		cond := args[0].Type == value.TypeNumber && args[0].Number != 0
		switch {
		case cond:
			stack.Push(resultEntry(args[1]))
		case argc == 3:
			stack.Push(resultEntry(args[2]))
		default:
			stack.Push(value.NumberEntry(0))
		}
	case Concatenate:
		var sb []byte
		for _, a := range args {
			sb = append(sb, scalarText(a, deref)...)
		}
		stack.Push(value.StringEntry(deref.InternString(string(sb))))
	case Len:
		if argc != 1 {
			return value.GeneralError
		}
		stack.Push(value.NumberEntry(float64(len([]rune(scalarText(args[0], deref))))))
	case Abs:
		if argc != 1 || args[0].Type != value.TypeNumber {
			return value.GeneralError
		}
		stack.Push(value.NumberEntry(math.Abs(args[0].Number)))
	case Mod:
		if argc != 2 || args[0].Type != value.TypeNumber || args[1].Type != value.TypeNumber {
			return value.GeneralError
		}
		if args[1].Number == 0 {
			return value.DivisionByZero
		}
		stack.Push(value.NumberEntry(math.Mod(args[0].Number, args[1].Number)))
	case Int:
		if argc != 1 || args[0].Type != value.TypeNumber {
			return value.GeneralError
		}
		stack.Push(value.NumberEntry(math.Floor(args[0].Number)))
	case Floor:
		if argc != 2 || args[0].Type != value.TypeNumber || args[1].Type != value.TypeNumber {
			return value.GeneralError
		}
		if args[1].Number == 0 {
			return value.DivisionByZero
		}
		stack.Push(value.NumberEntry(math.Floor(args[0].Number/args[1].Number) * args[1].Number))
	case Wait:
		// WAIT blocks its worker for N seconds (a hook for exercising the
		// worker pool), then yields its argument unchanged.
		if argc != 1 || args[0].Type != value.TypeNumber {
			return value.GeneralError
		}
		time.Sleep(time.Duration(args[0].Number * float64(time.Second)))
		stack.Push(resultEntry(args[0]))
	default:
		return value.GeneralError
	}
	return value.NoError
}

func isAggregate(op Opcode) bool {
	switch op {
	case Sum, Average, Count, CountA, Min, Max, Median, Mode:
		return true
	default:
		return false
	}
}

func resultEntry(r value.FormulaResult) value.StackEntry {
	if r.Type == value.TypeString {
		return value.StringEntry(r.StringID)
	}
	return value.NumberEntry(r.Number)
}

func scalarText(r value.FormulaResult, deref value.Dereferencer) string {
	switch r.Type {
	case value.TypeString:
		return deref.StringAt(r.StringID)
	case value.TypeNumber:
		return value.FormatNumber(r.Number, -1)
	default:
		return ""
	}
}

func numbersOnly(args []value.FormulaResult) []float64 {
	var out []float64
	for _, a := range args {
		if a.Type == value.TypeNumber {
			out = append(out, a.Number)
		}
	}
	return out
}

func reduceNumbers(args []value.FormulaResult, init float64, f func(acc, n float64) float64) float64 {
	acc := init
	first := true
	for _, a := range args {
		if a.Type != value.TypeNumber {
			continue
		}
		if first {
			acc = a.Number
			first = false
			continue
		}
		acc = f(acc, a.Number)
	}
	return acc
}

func sum(nums []float64) float64 {
	var s float64
	for _, n := range nums {
		s += n
	}
	return s
}

func median(nums []float64) float64 {
	sorted := append([]float64(nil), nums...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func mode(nums []float64) (float64, bool) {
	if len(nums) == 0 {
		return 0, false
	}
	counts := make(map[float64]int, len(nums))
	for _, n := range nums {
		counts[n]++
	}
	best, bestCount := 0.0, 0
	for _, n := range nums {
		if c := counts[n]; c > bestCount {
			best, bestCount = n, c
		}
	}
	if bestCount < 2 {
		return 0, false
	}
	return best, true
}

