package convert

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/errs"
	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/expression"
)

type (
	grade   int
	label   string
	ratio   float32
	enabled bool
)

func TestTo(t *testing.T) {
	id := uuid.New()
	moment := time.Date(2024, 5, 17, 13, 45, 30, 0, time.UTC)

	tests := []struct {
		name     string
		dt       expression.DataType
		in       any
		expected any
	}{
		{"int from float", expression.TypeInteger, 2.9, int64(2)},
		{"int from string", expression.TypeInteger, "42", int64(42)},
		{"int from decimal string", expression.TypeInteger, "4.75", int64(4)},
		{"int from decimal", expression.TypeInteger, decimal.RequireFromString("-3.5"), int64(-3)},
		{"int from uint8", expression.TypeInteger, uint8(7), int64(7)},
		{"int from named int", expression.TypeInteger, grade(20), int64(20)},
		{"float from named float", expression.TypeFloat, ratio(0.5), 0.5},
		{"text from named string", expression.TypeText, label("active"), "active"},
		{"text from named int", expression.TypeText, grade(3), "3"},
		{"bool from named bool", expression.TypeBoolean, enabled(true), true},
		{"float from int", expression.TypeFloat, 3, 3.0},
		{"float from string", expression.TypeFloat, "1.25", 1.25},
		{"text from int", expression.TypeText, 12, "12"},
		{"text from bool", expression.TypeText, true, "true"},
		{"text from uuid", expression.TypeText, id, id.String()},
		{"bool from string", expression.TypeBoolean, "true", true},
		{"bool from int", expression.TypeBoolean, 0, false},
		{"date from datetime", expression.TypeDate, moment, time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC)},
		{"date from string", expression.TypeDate, "2024-05-17", time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC)},
		{"datetime from string", expression.TypeDateTime, "2024-05-17T13:45:30Z", moment},
		{"time from string", expression.TypeTime, "13:45", time.Date(0, 1, 1, 13, 45, 0, 0, time.UTC)},
		{"time from datetime", expression.TypeTime, moment, time.Date(0, 1, 1, 13, 45, 30, 0, time.UTC)},
		{"duration from string", expression.TypeDuration, "1h30m", 90 * time.Minute},
		{"uuid from string", expression.TypeUUID, id.String(), id},
		{"uuid from bytes", expression.TypeUUID, id[:], id},
		{"binary from string", expression.TypeBinary, "ab", []byte("ab")},
		{"unknown is identity", expression.TypeUnknown, struct{ A int }{1}, struct{ A int }{1}},
		{"relation is identity", expression.TypeRelation, 5, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := To(tt.dt, tt.in)
			require.NoError(t, err)
			if expected, ok := tt.expected.(time.Time); ok {
				assert.True(t, expected.Equal(out.(time.Time)), "expected %v, got %v", expected, out)
				return
			}
			assert.Equal(t, tt.expected, out)
		})
	}
}

func TestTo_Decimal(t *testing.T) {
	for in, expected := range map[any]string{
		"1.10":   "1.1",
		0.25:     "0.25",
		int64(3): "3",
	} {
		out, err := To(expression.TypeDecimal, in)
		require.NoError(t, err)
		assert.True(t, decimal.RequireFromString(expected).Equal(out.(decimal.Decimal)), "%v", in)
	}
}

func TestTo_Null(t *testing.T) {
	out, err := To(expression.TypeInteger, nil)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestTo_Errors(t *testing.T) {
	tests := []struct {
		dt expression.DataType
		in any
	}{
		{expression.TypeInteger, "abc"},
		{expression.TypeDecimal, "1,5"},
		{expression.TypeDecimal, true},
		{expression.TypeDate, "not a date"},
		{expression.TypeUUID, "xyz"},
		{expression.TypeBinary, 5},
		{expression.TypeTime, 5},
	}
	for _, tt := range tests {
		_, err := To(tt.dt, tt.in)
		assert.True(t, errors.Is(err, errs.ErrType), "%s from %v: %v", tt.dt, tt.in, err)
	}
}

type upper struct{}

func (upper) Converter(dt expression.DataType) (Func, bool) {
	if dt != expression.TypeText {
		return nil, false
	}
	return func(v any) (any, error) { return "UP", nil }, true
}

func TestWith(t *testing.T) {
	out, err := With(upper{}, expression.TypeText, "x")
	require.NoError(t, err)
	assert.Equal(t, "UP", out)

	out, err = With(upper{}, expression.TypeInteger, "x")
	require.NoError(t, err)
	assert.Equal(t, "x", out)
}
