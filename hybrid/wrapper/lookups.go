package wrapper

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"golang.org/x/text/cases"

	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/errs"
	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/expression"
	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/expression/operators"
)

// predicate compares the evaluated operands of a lookup.
type predicate func(ctx *Context, lhs, rhs any) (bool, error)

var lookupOps = map[expression.Kind]predicate{
	expression.KindExact:       exactOp,
	expression.KindIExact:      iexactOp,
	expression.KindGt:          compareOp(operators.OperatorGt),
	expression.KindGte:         compareOp(operators.OperatorGte),
	expression.KindLt:          compareOp(operators.OperatorLt),
	expression.KindLte:         compareOp(operators.OperatorLte),
	expression.KindIn:          inOp,
	expression.KindContains:    containsOp,
	expression.KindIContains:   icontainsOp,
	expression.KindStartsWith:  affixOp(strings.HasPrefix, false),
	expression.KindIStartsWith: affixOp(strings.HasPrefix, true),
	expression.KindEndsWith:    affixOp(strings.HasSuffix, false),
	expression.KindIEndsWith:   affixOp(strings.HasSuffix, true),
	expression.KindRange:       rangeOp,
	expression.KindIsNull:      isNullOp,
	expression.KindRegex:       regexOp(""),
	expression.KindIRegex:      regexOp("(?i)"),
}

func init() {
	for kind := range lookupOps {
		Default.MustRegister(kind, newLookup)
	}
}

type lookupEvaluator struct {
	base
	*expression.LookupNode
	lhs, rhs Evaluator
	op       predicate
}

func newLookup(r *Registry, node expression.Node) (Evaluator, error) {
	n, ok := node.(*expression.LookupNode)
	if !ok {
		return nil, unexpected(node, "*expression.LookupNode")
	}
	op, ok := lookupOps[n.Name()]
	if !ok {
		return nil, errors.Wrapf(ErrNotRegistered, "lookup %q", n.Name())
	}
	lhs, err := r.Wrap(n.LHS())
	if err != nil {
		return nil, err
	}
	rhs, err := r.Wrap(n.RHS())
	if err != nil {
		return nil, err
	}
	return &lookupEvaluator{LookupNode: n, lhs: lhs, rhs: rhs, op: op}, nil
}

func (e *lookupEvaluator) Expression() expression.Node {
	return e.LookupNode
}

// Evaluate compares both operands; the result is always a bool.
func (e *lookupEvaluator) Evaluate(ctx *Context, target any) (any, error) {
	l, err := e.lhs.Evaluate(ctx, target)
	if err != nil {
		return nil, err
	}
	r, err := e.rhs.Evaluate(ctx, target)
	if err != nil {
		return nil, err
	}
	ok, err := e.op(ctx, l, r)
	if err != nil {
		return nil, errors.Wrapf(err, "%s lookup", e.Name())
	}
	return ok, nil
}

func (e *lookupEvaluator) operands() []Evaluator {
	return []Evaluator{e.lhs, e.rhs}
}

func (e *lookupEvaluator) rebuild(ops []Evaluator) (Evaluator, error) {
	return &lookupEvaluator{LookupNode: e.WithOperands(ops[0], ops[1]), lhs: ops[0], rhs: ops[1], op: e.op}, nil
}

// equal compares with the operators of the context, falling back to deep
// equality for values they do not know.
func equal(ctx *Context, a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	eq, err := ctx.operators.ExecBinary(a, operators.OperatorEq, b)
	if err != nil {
		return reflect.DeepEqual(a, b)
	}
	return eq == true
}

func text(v any) (string, error) {
	s, err := cast.ToStringE(operators.Underlying(v))
	if err != nil {
		return "", errors.Wrap(errs.ErrType, err.Error())
	}
	return s, nil
}

func fold(s string) string {
	return cases.Fold().String(s)
}

// blank reports NULL and empty text, which case-insensitive lookups compare
// without folding.
func blank(v any) bool {
	if s, ok := v.(string); ok {
		return s == ""
	}
	return isNil(v)
}

func exactOp(ctx *Context, l, r any) (bool, error) {
	return equal(ctx, l, r), nil
}

func iexactOp(ctx *Context, l, r any) (bool, error) {
	if blank(l) || blank(r) {
		return equal(ctx, l, r), nil
	}
	ls, err := text(l)
	if err != nil {
		return false, err
	}
	rs, err := text(r)
	if err != nil {
		return false, err
	}
	return fold(ls) == fold(rs), nil
}

// compareOp orders the operands; comparisons with NULL are false.
func compareOp(op operators.Operator) predicate {
	return func(ctx *Context, l, r any) (bool, error) {
		if l == nil || r == nil {
			return false, nil
		}
		v, err := ctx.operators.ExecBinary(l, op, r)
		if err != nil {
			return false, err
		}
		return v == true, nil
	}
}

// member reports whether container holds v: an item of a collection, a
// key of a map or a substring of text.
func member(ctx *Context, container, v any) (bool, error) {
	if container == nil || v == nil {
		return false, nil
	}
	if s, ok := operators.Underlying(container).(string); ok {
		sub, err := text(v)
		if err != nil {
			return false, err
		}
		return strings.Contains(s, sub), nil
	}
	if l, ok := items(container); ok {
		for _, item := range l {
			if equal(ctx, v, item) {
				return true, nil
			}
		}
		return false, nil
	}
	if m := reflect.ValueOf(container); m.Kind() == reflect.Map {
		iter := m.MapRange()
		for iter.Next() {
			if equal(ctx, v, iter.Key().Interface()) {
				return true, nil
			}
		}
		return false, nil
	}
	return false, errors.Wrapf(errs.ErrType, "%T cannot contain %T", container, v)
}

func inOp(ctx *Context, l, r any) (bool, error) {
	return member(ctx, r, l)
}

func containsOp(ctx *Context, l, r any) (bool, error) {
	return member(ctx, l, r)
}

func icontainsOp(ctx *Context, l, r any) (bool, error) {
	if blank(l) || blank(r) {
		return containsOp(ctx, l, r)
	}
	ls, err := text(l)
	if err != nil {
		return false, err
	}
	rs, err := text(r)
	if err != nil {
		return false, err
	}
	return strings.Contains(fold(ls), fold(rs)), nil
}

func affixOp(has func(s, affix string) bool, insensitive bool) predicate {
	return func(_ *Context, l, r any) (bool, error) {
		if l == nil || r == nil {
			return false, nil
		}
		ls, err := text(l)
		if err != nil {
			return false, err
		}
		rs, err := text(r)
		if err != nil {
			return false, err
		}
		if insensitive && ls != "" && rs != "" {
			ls, rs = fold(ls), fold(rs)
		}
		return has(ls, rs), nil
	}
}

// rangeOp tests lo <= l <= hi.
func rangeOp(ctx *Context, l, r any) (bool, error) {
	bounds, ok := items(r)
	if !ok || len(bounds) != 2 {
		return false, errors.Wrapf(errs.ErrType, "range bounds %v, want two", r)
	}
	lo, hi := bounds[0], bounds[1]
	if l == nil || lo == nil || hi == nil {
		return false, nil
	}
	c, err := ctx.operators.Compare(l, lo)
	if err != nil || c < 0 {
		return false, err
	}
	c, err = ctx.operators.Compare(l, hi)
	if err != nil {
		return false, err
	}
	return c <= 0, nil
}

func isNullOp(_ *Context, l, r any) (bool, error) {
	wantNull, err := cast.ToBoolE(r)
	if err != nil {
		return false, errors.Wrap(errs.ErrType, err.Error())
	}
	return isNil(l) == wantNull, nil
}

// regexOp compiles the pattern on every evaluation and searches the text
// for it.
func regexOp(flags string) predicate {
	return func(_ *Context, l, r any) (bool, error) {
		if l == nil || r == nil {
			return false, nil
		}
		pattern, err := text(r)
		if err != nil {
			return false, err
		}
		re, err := regexp.Compile(flags + pattern)
		if err != nil {
			return false, errors.Wrapf(errs.ErrType, "pattern %q: %v", pattern, err)
		}
		s, err := text(l)
		if err != nil {
			return false, err
		}
		return re.MatchString(s), nil
	}
}
