package interp

import (
	"testing"

	"github.com/ixion-engine/ixion/resolver"
	"github.com/ixion-engine/ixion/token"
	"github.com/ixion-engine/ixion/value"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSheetCtx struct{ names []string }

func (c *fakeSheetCtx) SheetIndex(name string) (int, bool) {
	for i, n := range c.names {
		if n == name {
			return i, true
		}
	}
	return -1, false
}

func (c *fakeSheetCtx) SheetName(i int) (string, bool) {
	if i >= 0 && i < len(c.names) {
		return c.names[i], true
	}
	return "", false
}

func (c *fakeSheetCtx) SheetBounds(int) (int, int) { return 1000, 1000 }

func TestParseArithmetic(t *testing.T) {
	toks, err := Parse("1+2*3", origin, resolver.ExcelA1, &fakeSheetCtx{}, newFakeDeref())
	require.NoError(t, err)
	require.Len(t, toks, 5)
	assert.Equal(t, token.Value, toks[0].Op)
	assert.Equal(t, 1.0, toks[0].Number)
	assert.Equal(t, token.Plus, toks[1].Op)
	assert.Equal(t, token.Value, toks[2].Op)
	assert.Equal(t, token.Multiply, toks[3].Op)
	assert.Equal(t, token.Value, toks[4].Op)
}

func TestParseAndEvaluateArithmetic(t *testing.T) {
	toks, err := Parse("1+2*3", origin, resolver.ExcelA1, &fakeSheetCtx{}, newFakeDeref())
	require.NoError(t, err)
	result := Evaluate(toks, origin, newFakeDeref(), nil, nil, nil)
	require.Equal(t, value.TypeNumber, result.Type)
	assert.Equal(t, 7.0, result.Number)
}

func TestParseCellReference(t *testing.T) {
	toks, err := Parse("A1", origin, resolver.ExcelA1, &fakeSheetCtx{}, newFakeDeref())
	require.NoError(t, err)
	require.Len(t, toks, 1)
	assert.Equal(t, token.SingleRef, toks[0].Op)
}

func TestParseFunctionCallCountsArgc(t *testing.T) {
	toks, err := Parse("SUM(1,2,3)", origin, resolver.ExcelA1, &fakeSheetCtx{}, newFakeDeref())
	require.NoError(t, err)
	require.Len(t, toks, 8) // Function, (, 1, sep, 2, sep, 3, )
	assert.Equal(t, token.Function, toks[0].Op)
	assert.Equal(t, 3, toks[0].Argc)
}

func TestParseNestedFunctionCallCountsArgcAtTopLevelOnly(t *testing.T) {
	toks, err := Parse("SUM(MAX(1,2),3)", origin, resolver.ExcelA1, &fakeSheetCtx{}, newFakeDeref())
	require.NoError(t, err)
	require.Equal(t, token.Function, toks[0].Op)
	assert.Equal(t, 2, toks[0].Argc) // MAX(1,2) and 3 -> two top-level args
}

func TestParseZeroArgFunctionCall(t *testing.T) {
	toks, err := Parse("WAIT()", origin, resolver.ExcelA1, &fakeSheetCtx{}, newFakeDeref())
	require.NoError(t, err)
	assert.Equal(t, 0, toks[0].Argc)
}

func TestParseStringLiteral(t *testing.T) {
	d := newFakeDeref()
	toks, err := Parse(`"hello"`, origin, resolver.ExcelA1, &fakeSheetCtx{}, d)
	require.NoError(t, err)
	require.Len(t, toks, 1)
	assert.Equal(t, token.String, toks[0].Op)
	assert.Equal(t, "hello", d.StringAt(toks[0].StringID))
}

func TestParseNamedExpressionFallback(t *testing.T) {
	toks, err := Parse("MyRate", origin, resolver.ExcelA1, &fakeSheetCtx{}, newFakeDeref())
	require.NoError(t, err)
	require.Len(t, toks, 1)
	assert.Equal(t, token.NamedExpr, toks[0].Op)
	assert.Equal(t, "MyRate", toks[0].Name)
}

func TestParseUnterminatedFunctionCallErrors(t *testing.T) {
	_, err := Parse("SUM(1,2", origin, resolver.ExcelA1, &fakeSheetCtx{}, newFakeDeref())
	assert.Error(t, err)
}

func TestParseInvalidReferenceErrors(t *testing.T) {
	// An out-of-bounds row is a syntactic error in the strict parser and an
	// UnresolvedRef token in the lenient one.
	_, err := Parse("A99999", origin, resolver.ExcelA1, &fakeSheetCtx{names: []string{"Sheet1"}}, newFakeDeref())
	assert.Error(t, err)

	toks, err := ParseLenient("A99999", origin, resolver.ExcelA1, &fakeSheetCtx{names: []string{"Sheet1"}}, newFakeDeref())
	require.NoError(t, err)
	require.Len(t, toks, 1)
	assert.Equal(t, token.UnresolvedRef, toks[0].Op)
}
