package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKindRoundTrip(t *testing.T) {
	for _, k := range []ErrorKind{RefResultNotAvailable, DivisionByZero, NameNotFound} {
		text := k.String()
		got, ok := ParseErrorKind(text)
		assert.True(t, ok)
		// #NAME? is shared by NameNotFound/InvalidExpression/GeneralError,
		// so only the unambiguous texts round-trip to their exact kind.
		if k == DivisionByZero || k == RefResultNotAvailable {
			assert.Equal(t, k, got)
		}
	}
}

func TestResetResult(t *testing.T) {
	r := Reset()
	assert.Equal(t, TypeNumber, r.Type)
	assert.Equal(t, 0.0, r.Number)
	assert.False(t, r.IsError())
}

func TestFormatNumberPrecision(t *testing.T) {
	assert.Equal(t, "3.14", FormatNumber(3.14159, 2))
	assert.Equal(t, "3", FormatNumber(3.14159, 0))
}
