// Package convert coerces evaluated values to the native representation of
// a declared output type, the way a database driver would hand them back.
package convert

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/errs"
	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/expression"
	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/expression/operators"
)

// Func converts a non-nil value.
type Func func(v any) (any, error)

// Provider supplies the conversion of each output type it knows.
type Provider interface {
	Converter(dt expression.DataType) (Func, bool)
}

type nativeProvider map[expression.DataType]Func

func (p nativeProvider) Converter(dt expression.DataType) (Func, bool) {
	fn, ok := p[dt]
	return fn, ok
}

// Native converts with the Go-side rules below; types without a rule,
// such as relations and unknown types, are left as is.
var Native Provider = nativeProvider{
	expression.TypeInteger:  toInteger,
	expression.TypeFloat:    toFloat,
	expression.TypeDecimal:  toDecimal,
	expression.TypeText:     toText,
	expression.TypeBoolean:  toBoolean,
	expression.TypeDate:     toDate,
	expression.TypeDateTime: toDateTime,
	expression.TypeTime:     toTime,
	expression.TypeDuration: toDuration,
	expression.TypeUUID:     toUUID,
	expression.TypeBinary:   toBinary,
}

// With converts v to dt through p. NULL stays NULL.
func With(p Provider, dt expression.DataType, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	fn, ok := p.Converter(dt)
	if !ok {
		return v, nil
	}
	return fn(v)
}

// To converts v to dt with the native rules.
func To(dt expression.DataType, v any) (any, error) {
	return With(Native, dt, v)
}

func fail(v any, dt expression.DataType, cause error) error {
	if cause != nil {
		return errors.Wrapf(errs.ErrType, "cannot convert %v (%T) to %s: %v", v, v, dt, cause)
	}
	return errors.Wrapf(errs.ErrType, "cannot convert %v (%T) to %s", v, v, dt)
}

func toInteger(v any) (any, error) {
	v = operators.Underlying(v)
	switch x := v.(type) {
	case decimal.Decimal:
		return x.IntPart(), nil
	case time.Duration:
		return int64(x), nil
	case string:
		// decimal strings are truncated like their numeric values
		if d, err := decimal.NewFromString(strings.TrimSpace(x)); err == nil {
			return d.IntPart(), nil
		}
	}
	i, err := cast.ToInt64E(v)
	if err != nil {
		return nil, fail(v, expression.TypeInteger, err)
	}
	return i, nil
}

func toFloat(v any) (any, error) {
	v = operators.Underlying(v)
	switch x := v.(type) {
	case decimal.Decimal:
		return x.InexactFloat64(), nil
	case time.Duration:
		return x.Seconds(), nil
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return nil, fail(v, expression.TypeFloat, err)
	}
	return f, nil
}

func toDecimal(v any) (any, error) {
	v = operators.Underlying(v)
	switch x := v.(type) {
	case decimal.Decimal:
		return x, nil
	case *decimal.Decimal:
		return *x, nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(x))
		if err != nil {
			return nil, fail(v, expression.TypeDecimal, err)
		}
		return d, nil
	case float64:
		return decimal.NewFromFloat(x), nil
	case float32:
		return decimal.NewFromFloat32(x), nil
	case bool:
		return nil, fail(v, expression.TypeDecimal, nil)
	}
	i, err := cast.ToInt64E(v)
	if err != nil {
		return nil, fail(v, expression.TypeDecimal, err)
	}
	return decimal.NewFromInt(i), nil
}

func toText(v any) (any, error) {
	v = operators.Underlying(v)
	if t, ok := v.(time.Time); ok {
		return t.Format(time.RFC3339Nano), nil
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		if str, ok := v.(fmt.Stringer); ok {
			return str.String(), nil
		}
		return nil, fail(v, expression.TypeText, err)
	}
	return s, nil
}

func toBoolean(v any) (any, error) {
	v = operators.Underlying(v)
	b, err := cast.ToBoolE(v)
	if err != nil {
		return nil, fail(v, expression.TypeBoolean, err)
	}
	return b, nil
}

func parseTime(v any, dt expression.DataType) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case *time.Time:
		return *x, nil
	case string:
		// text without a zone is read as UTC, like a timestamp column
		t, err := dateparse.ParseIn(strings.TrimSpace(x), time.UTC)
		if err != nil {
			return time.Time{}, fail(v, dt, err)
		}
		return t, nil
	}
	t, err := cast.ToTimeE(v)
	if err != nil {
		return time.Time{}, fail(v, dt, err)
	}
	return t, nil
}

// toDate keeps the calendar day of a moment, at midnight of its location.
func toDate(v any) (any, error) {
	t, err := parseTime(v, expression.TypeDate)
	if err != nil {
		return nil, err
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location()), nil
}

func toDateTime(v any) (any, error) {
	t, err := parseTime(v, expression.TypeDateTime)
	if err != nil {
		return nil, err
	}
	return t, nil
}

var clockLayouts = []string{"15:04:05.999999999", "15:04:05", "15:04"}

// toTime keeps the time of day, on the zero date in UTC.
func toTime(v any) (any, error) {
	var t time.Time
	switch x := v.(type) {
	case time.Time:
		t = x
	case string:
		s := strings.TrimSpace(x)
		var err error
		for _, layout := range clockLayouts {
			if t, err = time.Parse(layout, s); err == nil {
				break
			}
		}
		if err != nil {
			parsed, perr := parseTime(v, expression.TypeTime)
			if perr != nil {
				return nil, perr
			}
			t = parsed
		}
	default:
		return nil, fail(v, expression.TypeTime, nil)
	}
	return ClockOf(t), nil
}

// ClockOf is the time of day of t on the zero date in UTC.
func ClockOf(t time.Time) time.Time {
	return time.Date(0, 1, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

func toDuration(v any) (any, error) {
	d, err := cast.ToDurationE(v)
	if err != nil {
		return nil, fail(v, expression.TypeDuration, err)
	}
	return d, nil
}

func toUUID(v any) (any, error) {
	switch x := v.(type) {
	case uuid.UUID:
		return x, nil
	case [16]byte:
		return uuid.UUID(x), nil
	case []byte:
		if len(x) == 16 {
			return uuid.FromBytes(x)
		}
		u, err := uuid.ParseBytes(x)
		if err != nil {
			return nil, fail(v, expression.TypeUUID, err)
		}
		return u, nil
	case string:
		u, err := uuid.Parse(strings.TrimSpace(x))
		if err != nil {
			return nil, fail(v, expression.TypeUUID, err)
		}
		return u, nil
	case fmt.Stringer:
		return toUUID(x.String())
	}
	return nil, fail(v, expression.TypeUUID, nil)
}

func toBinary(v any) (any, error) {
	switch x := v.(type) {
	case []byte:
		return x, nil
	case string:
		return []byte(x), nil
	case uuid.UUID:
		return x[:], nil
	}
	return nil, fail(v, expression.TypeBinary, nil)
}
