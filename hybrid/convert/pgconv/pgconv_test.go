package pgconv

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/convert"
	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/expression"
)

func TestProvider_RoundTrip(t *testing.T) {
	p := New()

	tests := []struct {
		name     string
		dt       expression.DataType
		in       any
		expected any
	}{
		{"int8", expression.TypeInteger, "42", int64(42)},
		{"int8 from float", expression.TypeInteger, 7.9, int64(7)},
		{"float8", expression.TypeFloat, 3, 3.0},
		{"text", expression.TypeText, 12, "12"},
		{"bool", expression.TypeBoolean, "true", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := convert.With(p, tt.dt, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out)
		})
	}
}

func TestProvider_Date(t *testing.T) {
	out, err := convert.With(New(), expression.TypeDate, time.Date(2024, 2, 29, 18, 30, 0, 0, time.UTC))
	require.NoError(t, err)

	day := out.(time.Time)
	assert.Equal(t, 2024, day.Year())
	assert.Equal(t, time.February, day.Month())
	assert.Equal(t, 29, day.Day())
	assert.Equal(t, 0, day.Hour())
}

func TestProvider_Numeric(t *testing.T) {
	out, err := convert.With(New(), expression.TypeDecimal, "12.50")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("12.5").Equal(out.(decimal.Decimal)))
}

func TestProvider_UUID(t *testing.T) {
	id := uuid.New()

	out, err := convert.With(New(), expression.TypeUUID, id.String())
	require.NoError(t, err)
	assert.Equal(t, id, out)
}

func TestProvider_Fallback(t *testing.T) {
	out, err := convert.With(New(), expression.TypeDuration, "2m")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, out)

	out, err = convert.With(New(), expression.TypeUnknown, "x")
	require.NoError(t, err)
	assert.Equal(t, "x", out)
}

func TestProvider_Error(t *testing.T) {
	_, err := convert.With(New(), expression.TypeInteger, "abc")
	assert.Error(t, err)
}
