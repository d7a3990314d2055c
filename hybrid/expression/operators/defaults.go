package operators

import (
	"cmp"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/errs"
)

var (
	ErrDivisionByZero = errors.New("division by zero")
	ErrModuloByZero   = errors.New("modulo by zero")
)

func registerComparison[T cmp.Ordered](reg *Registry) {
	RegisterBinary[T, T](reg, OperatorEq, func(a, b T) (any, error) { return a == b, nil })
	RegisterBinary[T, T](reg, OperatorNe, func(a, b T) (any, error) { return a != b, nil })
	RegisterBinary[T, T](reg, OperatorGt, func(a, b T) (any, error) { return a > b, nil })
	RegisterBinary[T, T](reg, OperatorGte, func(a, b T) (any, error) { return a >= b, nil })
	RegisterBinary[T, T](reg, OperatorLt, func(a, b T) (any, error) { return a < b, nil })
	RegisterBinary[T, T](reg, OperatorLte, func(a, b T) (any, error) { return a <= b, nil })
}

func registerArithmetic[T ~int64 | ~float64](reg *Registry) {
	RegisterBinary[T, T](reg, OperatorAdd, func(a, b T) (any, error) { return a + b, nil })
	RegisterBinary[T, T](reg, OperatorSub, func(a, b T) (any, error) { return a - b, nil })
	RegisterBinary[T, T](reg, OperatorMul, func(a, b T) (any, error) { return a * b, nil })
	RegisterBinary[T, T](reg, OperatorDiv, func(a, b T) (any, error) {
		if b == 0 {
			return nil, ErrDivisionByZero
		}
		return a / b, nil
	})
	RegisterUnary[T](reg, OperatorPos, func(a T) (any, error) { return a, nil })
	RegisterUnary[T](reg, OperatorNeg, func(a T) (any, error) { return -a, nil })
}

func registerInteger(reg *Registry) {
	RegisterBinary[int64, int64](reg, OperatorMod, func(a, b int64) (any, error) {
		if b == 0 {
			return nil, ErrModuloByZero
		}
		return a % b, nil
	})
	RegisterBinary[int64, int64](reg, OperatorBitAnd, func(a, b int64) (any, error) { return a & b, nil })
	RegisterBinary[int64, int64](reg, OperatorBitOr, func(a, b int64) (any, error) { return a | b, nil })
	RegisterBinary[int64, int64](reg, OperatorLshift, func(a, b int64) (any, error) {
		if b < 0 {
			return nil, errors.Wrap(errs.ErrType, "negative shift count")
		}
		return a << b, nil
	})
	RegisterBinary[int64, int64](reg, OperatorRshift, func(a, b int64) (any, error) {
		if b < 0 {
			return nil, errors.Wrap(errs.ErrType, "negative shift count")
		}
		return a >> b, nil
	})
}

func registerDecimal(reg *Registry) {
	type D = decimal.Decimal
	RegisterBinary[D, D](reg, OperatorEq, func(a, b D) (any, error) { return a.Equal(b), nil })
	RegisterBinary[D, D](reg, OperatorNe, func(a, b D) (any, error) { return !a.Equal(b), nil })
	RegisterBinary[D, D](reg, OperatorGt, func(a, b D) (any, error) { return a.GreaterThan(b), nil })
	RegisterBinary[D, D](reg, OperatorGte, func(a, b D) (any, error) { return a.GreaterThanOrEqual(b), nil })
	RegisterBinary[D, D](reg, OperatorLt, func(a, b D) (any, error) { return a.LessThan(b), nil })
	RegisterBinary[D, D](reg, OperatorLte, func(a, b D) (any, error) { return a.LessThanOrEqual(b), nil })
	RegisterBinary[D, D](reg, OperatorAdd, func(a, b D) (any, error) { return a.Add(b), nil })
	RegisterBinary[D, D](reg, OperatorSub, func(a, b D) (any, error) { return a.Sub(b), nil })
	RegisterBinary[D, D](reg, OperatorMul, func(a, b D) (any, error) { return a.Mul(b), nil })
	RegisterBinary[D, D](reg, OperatorDiv, func(a, b D) (any, error) {
		if b.IsZero() {
			return nil, ErrDivisionByZero
		}
		return a.Div(b), nil
	})
	RegisterBinary[D, D](reg, OperatorMod, func(a, b D) (any, error) {
		if b.IsZero() {
			return nil, ErrModuloByZero
		}
		return a.Mod(b), nil
	})
	RegisterUnary[D](reg, OperatorPos, func(a D) (any, error) { return a, nil })
	RegisterUnary[D](reg, OperatorNeg, func(a D) (any, error) { return a.Neg(), nil })
}

// NewDefaultRegistry creates a registry with PostgreSQL-compatible operators
// for standard Go types. Integers are expected as int64 and floats as
// float64, see Normalize.
func NewDefaultRegistry() *Registry {
	reg := NewRegistry()

	// bool
	RegisterBinary[bool, bool](reg, OperatorEq, func(a, b bool) (any, error) { return a == b, nil })
	RegisterBinary[bool, bool](reg, OperatorNe, func(a, b bool) (any, error) { return a != b, nil })
	RegisterBinary[bool, bool](reg, OperatorIs, func(a, b bool) (any, error) { return a == b, nil })
	RegisterUnary[bool](reg, OperatorNot, func(a bool) (any, error) { return !a, nil })

	// int64
	registerComparison[int64](reg)
	registerArithmetic[int64](reg)
	registerInteger(reg)

	// float64
	registerComparison[float64](reg)
	registerArithmetic[float64](reg)

	// numeric
	registerDecimal(reg)

	// string, + concatenates
	registerComparison[string](reg)
	RegisterBinary[string, string](reg, OperatorAdd, func(a, b string) (any, error) { return a + b, nil })

	// time.Duration (interval)
	registerComparison[time.Duration](reg)
	RegisterBinary[time.Duration, time.Duration](reg, OperatorAdd, func(a, b time.Duration) (any, error) { return a + b, nil })
	RegisterBinary[time.Duration, time.Duration](reg, OperatorSub, func(a, b time.Duration) (any, error) { return a - b, nil })
	RegisterUnary[time.Duration](reg, OperatorPos, func(a time.Duration) (any, error) { return a, nil })
	RegisterUnary[time.Duration](reg, OperatorNeg, func(a time.Duration) (any, error) { return -a, nil })

	// time.Time (timestamp)
	RegisterBinary[time.Time, time.Time](reg, OperatorEq, func(a, b time.Time) (any, error) { return a.Equal(b), nil })
	RegisterBinary[time.Time, time.Time](reg, OperatorNe, func(a, b time.Time) (any, error) { return !a.Equal(b), nil })
	RegisterBinary[time.Time, time.Time](reg, OperatorGt, func(a, b time.Time) (any, error) { return a.After(b), nil })
	RegisterBinary[time.Time, time.Time](reg, OperatorGte, func(a, b time.Time) (any, error) { return !a.Before(b), nil })
	RegisterBinary[time.Time, time.Time](reg, OperatorLt, func(a, b time.Time) (any, error) { return a.Before(b), nil })
	RegisterBinary[time.Time, time.Time](reg, OperatorLte, func(a, b time.Time) (any, error) { return !a.After(b), nil })

	// Mixed: timestamp - timestamp = interval
	RegisterBinary[time.Time, time.Time](reg, OperatorSub, func(a, b time.Time) (any, error) { return a.Sub(b), nil })

	// Mixed: timestamp +/- interval = timestamp
	RegisterBinary[time.Time, time.Duration](reg, OperatorAdd, func(a time.Time, b time.Duration) (any, error) { return a.Add(b), nil })
	RegisterBinary[time.Time, time.Duration](reg, OperatorSub, func(a time.Time, b time.Duration) (any, error) { return a.Add(-b), nil })

	return reg
}

var defaultRegistry = NewDefaultRegistry()

// Default returns the shared registry of NewDefaultRegistry operators.
func Default() *Registry {
	return defaultRegistry
}
