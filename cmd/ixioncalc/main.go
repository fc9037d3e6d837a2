// ixioncalc reads a plain-text model of "CellName: expression" lines,
// recomputes every formula, and prints each cell's value in input order.
// Lines starting with '#' and blank lines are skipped. A bare number after
// the colon stores a numeric cell, a double-quoted literal stores a string
// cell, and anything else is parsed as a formula.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/ixion-engine/ixion"
	"github.com/ixion-engine/ixion/address"
	"github.com/ixion-engine/ixion/resolver"
	"github.com/ixion-engine/ixion/value"
)

var dialects = map[string]resolver.Dialect{
	"excel-a1":   resolver.ExcelA1,
	"excel-r1c1": resolver.ExcelR1C1,
	"odff":       resolver.ODFF,
	"calc-a1":    resolver.CalcA1,
	"odf-cra":    resolver.ODFCRA,
}

func main() {
	threads := flag.Int("t", 0, "worker thread count (0 = evaluate in the calling goroutine)")
	dialectName := flag.String("d", "excel-a1", "reference dialect: excel-a1, excel-r1c1, odff, calc-a1, odf-cra")
	verbose := flag.Bool("v", false, "log batch phases to stderr")
	flag.Parse()

	dialect, ok := dialects[*dialectName]
	if !ok {
		fmt.Fprintf(os.Stderr, "ixioncalc: unknown dialect %q\n", *dialectName)
		os.Exit(2)
	}

	in := os.Stdin
	if flag.NArg() > 0 {
		f, err := os.Open(flag.Arg(0))
		if err != nil {
			fmt.Fprintf(os.Stderr, "ixioncalc: %v\n", err)
			os.Exit(2)
		}
		defer f.Close()
		in = f
	}

	cfg := ixion.DefaultConfig()
	cfg.Dialect = dialect
	cfg.ThreadCount = *threads
	if *verbose {
		cfg.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	eng := ixion.New(cfg)
	eng.AddSheet("Sheet1", 0, 0)

	if err := run(eng, in); err != nil {
		fmt.Fprintf(os.Stderr, "ixioncalc: %v\n", err)
		os.Exit(1)
	}
}

func run(eng *ixion.Engine, in *os.File) error {
	res := eng.Resolver()
	origin := address.CellAddress{}

	var order []address.CellAddress
	var names []string

	scanner := bufio.NewScanner(in)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cellName, expr, found := strings.Cut(line, ":")
		if !found {
			return fmt.Errorf("line %d: missing ':'", lineNo)
		}
		cellName = strings.TrimSpace(cellName)
		expr = strings.TrimSpace(expr)

		name := res.Resolve(cellName, origin)
		if name.Type != resolver.TypeCell {
			return fmt.Errorf("line %d: %q is not a cell name", lineNo, cellName)
		}
		addr := name.Address.Resolve(origin).Position()

		switch {
		case expr == "":
			eng.RemoveCell(addr)
		case isQuoted(expr):
			eng.SetString(addr, expr[1:len(expr)-1])
		default:
			if n, err := strconv.ParseFloat(expr, 64); err == nil {
				eng.SetNumber(addr, n)
			} else if err := eng.SetFormulaText(addr, expr); err != nil {
				return fmt.Errorf("line %d: %v", lineNo, err)
			}
		}
		order = append(order, addr)
		names = append(names, cellName)
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	eng.CalculateAll()

	ctx := eng.Context()
	precision := ctx.GetConfig().OutputPrecision
	for i, addr := range order {
		result := ctx.CellScalar(addr)
		var text string
		switch result.Type {
		case value.TypeString:
			text = ctx.StringAt(result.StringID)
		case value.TypeError:
			text = result.String()
		default:
			text = value.FormatNumber(result.Number, precision)
		}
		fmt.Printf("%s: %s\n", names[i], text)
	}
	return nil
}

func isQuoted(s string) bool {
	return len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"'
}
