package operators

import (
	"math"
	"reflect"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/errs"
)

type BinaryOp func(left, right any) (any, error)
type UnaryOp func(operand any) (any, error)

type binaryKey struct {
	left  reflect.Type
	op    Operator
	right reflect.Type
}

type unaryKey struct {
	op      Operator
	operand reflect.Type
}

// Registry dispatches operators on the dynamic types of their operands.
// It is populated before use and read-only afterwards. Operands are
// normalized first, so integers meet the operators registered for int64
// and floats those registered for float64.
type Registry struct {
	binary map[binaryKey]BinaryOp
	unary  map[unaryKey]UnaryOp
}

func NewRegistry() *Registry {
	return &Registry{
		binary: make(map[binaryKey]BinaryOp),
		unary:  make(map[unaryKey]UnaryOp),
	}
}

func RegisterBinary[L, R any](reg *Registry, op Operator, fn func(L, R) (any, error)) {
	var zeroL L
	var zeroR R
	key := binaryKey{
		left:  reflect.TypeOf(zeroL),
		op:    op,
		right: reflect.TypeOf(zeroR),
	}
	reg.binary[key] = func(left, right any) (any, error) {
		return fn(left.(L), right.(R))
	}
}

func RegisterUnary[T any](reg *Registry, op Operator, fn func(T) (any, error)) {
	var zero T
	key := unaryKey{
		op:      op,
		operand: reflect.TypeOf(zero),
	}
	reg.unary[key] = func(operand any) (any, error) {
		return fn(operand.(T))
	}
}

// Normalize maps the builtin numeric types onto int64 and float64, the
// types the default operators are registered for.
func Normalize(v any) (any, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case uint:
		return uintToInt64(uint64(x))
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		return uintToInt64(x)
	case float32:
		return float64(x), nil
	case *decimal.Decimal:
		if x == nil {
			return nil, nil
		}
		return *x, nil
	}
	return v, nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// Underlying reduces a value of a named scalar type, such as an enum
// declared as `type Status string`, to the builtin type of its kind:
// int64, float64, string or bool. time.Duration and values of other
// types are returned as they are.
func Underlying(v any) any {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return v
	}
	t := rv.Type()
	if t.PkgPath() == "" || t == durationType {
		return v
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if u := rv.Uint(); u <= math.MaxInt64 {
			return int64(u)
		}
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	}
	return v
}

func reduced(v any) (any, bool) {
	u := Underlying(v)
	return u, reflect.TypeOf(u) != reflect.TypeOf(v)
}

func uintToInt64(x uint64) (any, error) {
	if x > math.MaxInt64 {
		return nil, errors.Wrapf(errs.ErrType, "%d overflows int64", x)
	}
	return int64(x), nil
}

// ExecBinary applies op to the operands. NULL operands yield NULL, except
// under AND and OR which follow three-valued logic.
func (r *Registry) ExecBinary(left any, op Operator, right any) (any, error) {
	if op == OperatorAnd || op == OperatorOr {
		return logic(left, op, right)
	}
	if left == nil || right == nil {
		return nil, nil
	}

	left, err := Normalize(left)
	if err != nil {
		return nil, err
	}
	right, err = Normalize(right)
	if err != nil {
		return nil, err
	}

	fn, err := r.lookupBinary(left, op, right)
	if err != nil {
		return nil, err
	}
	return fn(left, right)
}

// ExecUnary applies op to the operand. A NULL operand yields NULL, except
// under IS NULL and IS NOT NULL.
func (r *Registry) ExecUnary(op Operator, operand any) (any, error) {
	switch op {
	case OperatorIsNull:
		return operand == nil, nil
	case OperatorIsNotNull:
		return operand != nil, nil
	}
	if operand == nil {
		return nil, nil
	}

	operand, err := Normalize(operand)
	if err != nil {
		return nil, err
	}
	fn, err := r.lookupUnary(op, operand)
	if err != nil {
		return nil, err
	}
	return fn(operand)
}

// Compare orders two non-NULL values: -1, 0 or +1.
func (r *Registry) Compare(left, right any) (int, error) {
	lt, err := r.ExecBinary(left, OperatorLt, right)
	if err != nil {
		return 0, err
	}
	if lt == true {
		return -1, nil
	}
	gt, err := r.ExecBinary(left, OperatorGt, right)
	if err != nil {
		return 0, err
	}
	if gt == true {
		return 1, nil
	}
	return 0, nil
}

func (r *Registry) lookupBinary(left any, op Operator, right any) (BinaryOp, error) {
	if fn, ok := r.binary[binaryKey{reflect.TypeOf(left), op, reflect.TypeOf(right)}]; ok {
		return fn, nil
	}

	// Mixed numeric operands are promoted to the wider type
	if fn := r.promoted(left, op, right); fn != nil {
		return fn, nil
	}

	if fn := interfaceFallback(left, op); fn != nil {
		return fn, nil
	}

	// named scalars meet the operators of their kind
	lu, lok := reduced(left)
	ru, rok := reduced(right)
	if lok || rok {
		if fn, err := r.lookupBinary(lu, op, ru); err == nil {
			return func(left, right any) (any, error) {
				return fn(Underlying(left), Underlying(right))
			}, nil
		}
	}

	return nil, errors.Wrapf(errs.ErrType, "operator \"%s\" is not supported for %T and %T", op, left, right)
}

func (r *Registry) promoted(left any, op Operator, right any) BinaryOp {
	var promote func(any) any
	var target reflect.Type
	switch left.(type) {
	case int64:
		switch right.(type) {
		case float64:
			target, promote = reflect.TypeOf(float64(0)), promoteFloat
		case decimal.Decimal:
			target, promote = reflect.TypeOf(decimal.Decimal{}), promoteDecimal
		}
	case float64:
		if _, ok := right.(int64); ok {
			target, promote = reflect.TypeOf(float64(0)), promoteFloat
		}
	case decimal.Decimal:
		if _, ok := right.(int64); ok {
			target, promote = reflect.TypeOf(decimal.Decimal{}), promoteDecimal
		}
	}
	if promote == nil {
		return nil
	}
	fn, ok := r.binary[binaryKey{target, op, target}]
	if !ok {
		return nil
	}
	return func(left, right any) (any, error) {
		return fn(promote(left), promote(right))
	}
}

func promoteFloat(v any) any {
	if i, ok := v.(int64); ok {
		return float64(i)
	}
	return v
}

func promoteDecimal(v any) any {
	if i, ok := v.(int64); ok {
		return decimal.NewFromInt(i)
	}
	return v
}

func interfaceFallback(left any, op Operator) BinaryOp {
	switch op {
	case OperatorEq:
		return fallback(left, "EqualOperand", func(l, r EqualOperand) bool { return l.Equal(r) })
	case OperatorNe:
		return fallback(left, "EqualOperand", func(l, r EqualOperand) bool { return !l.Equal(r) })
	case OperatorGt:
		return fallback(left, "GreaterThanOperand", func(l, r GreaterThanOperand) bool { return l.GreaterThan(r) })
	case OperatorGte:
		return fallback(left, "GreaterThanEqualOperand", func(l, r GreaterThanEqualOperand) bool { return l.GreaterThanEqual(r) })
	case OperatorLt:
		return fallback(left, "LessThanOperand", func(l, r LessThanOperand) bool { return l.LessThan(r) })
	case OperatorLte:
		return fallback(left, "LessThanEqualOperand", func(l, r LessThanEqualOperand) bool { return l.LessThanEqual(r) })
	}
	return nil
}

func fallback[T any](left any, name string, cmp func(l, r T) bool) BinaryOp {
	if _, ok := left.(T); !ok {
		return nil
	}
	return func(left, right any) (any, error) {
		l := left.(T)
		r, ok := right.(T)
		if !ok {
			return nil, errors.Wrapf(errs.ErrType, "right operand %T does not implement %s", right, name)
		}
		return cmp(l, r), nil
	}
}

func (r *Registry) lookupUnary(op Operator, operand any) (UnaryOp, error) {
	fn, ok := r.unary[unaryKey{op, reflect.TypeOf(operand)}]
	if !ok {
		if u, changed := reduced(operand); changed {
			if fn, err := r.lookupUnary(op, u); err == nil {
				return func(operand any) (any, error) {
					return fn(Underlying(operand))
				}, nil
			}
		}
		return nil, errors.Wrapf(errs.ErrType, "operator \"%s\" is not supported for %T", op, operand)
	}
	return fn, nil
}

// ternary is a truth value of SQL three-valued logic. AND takes the lesser
// of its operands and OR the greater.
type ternary int8

const (
	ternaryFalse ternary = iota - 1
	ternaryUnknown
	ternaryTrue
)

func ternaryOf(op Operator, v any) (ternary, error) {
	switch b := v.(type) {
	case nil:
		return ternaryUnknown, nil
	case bool:
		if b {
			return ternaryTrue, nil
		}
		return ternaryFalse, nil
	}
	return ternaryUnknown, errors.Wrapf(errs.ErrType, "operator \"%s\" requires bool, got %T", op, v)
}

func (t ternary) value() any {
	if t == ternaryUnknown {
		return nil
	}
	return t == ternaryTrue
}

func logic(left any, op Operator, right any) (any, error) {
	l, err := ternaryOf(op, left)
	if err != nil {
		return nil, err
	}
	r, err := ternaryOf(op, right)
	if err != nil {
		return nil, err
	}
	if op == OperatorAnd {
		return min(l, r).value(), nil
	}
	return max(l, r).value(), nil
}
