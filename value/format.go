package value

import (
	"strconv"
	"strings"

	"github.com/TsubasaBE/go-xlsb/numfmt"
)

// FormatNumber renders n for display honoring outputPrecision (see
// model.Config.OutputPrecision): a negative precision means "unspecified,"
// which
// numFmtID 0 ("General") in numfmt renders using Go's default float
// formatting; a non-negative precision builds a fixed-decimal custom format
// string ("0.00", "0.000", ...) and lets numfmt.FormatValue do the
// locale-agnostic rendering instead of hand-rolling strconv precision/
// trimming logic here.
func FormatNumber(n float64, outputPrecision int) string {
	if outputPrecision < 0 {
		return numfmt.FormatValue(n, 0, "", false)
	}
	fmtStr := "0"
	if outputPrecision > 0 {
		fmtStr = "0." + strings.Repeat("0", outputPrecision)
	}
	return numfmt.FormatValue(n, 0, fmtStr, false)
}

// ParseNumber parses a formula numeric literal. Kept alongside FormatNumber
// because both sides of the number<->text boundary belong together; uses
// the standard library since numfmt only renders, it does not parse.
func ParseNumber(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}
