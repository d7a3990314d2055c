package wrapper

import (
	"math"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/errs"
	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/expression"
	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/expression/operators"
)

var ErrEmptyAggregate = errors.New("aggregate of an empty collection")

// aggregateOp reduces the items of a collection.
type aggregateOp func(ctx *Context, n *expression.AggregateNode, values []any) (any, error)

var aggregateOps = map[expression.Kind]aggregateOp{
	expression.KindAvg:      avgOp,
	expression.KindCount:    countOp,
	expression.KindMax:      extremeOp(1),
	expression.KindMin:      extremeOp(-1),
	expression.KindSum:      sumOp,
	expression.KindStdDev:   spreadOp(true),
	expression.KindVariance: spreadOp(false),
}

func init() {
	for kind := range aggregateOps {
		Default.MustRegister(kind, newAggregate)
	}
}

type aggregateEvaluator struct {
	base
	*expression.AggregateNode
	source Evaluator
	op     aggregateOp
}

func newAggregate(r *Registry, node expression.Node) (Evaluator, error) {
	n, ok := node.(*expression.AggregateNode)
	if !ok {
		return nil, unexpected(node, "*expression.AggregateNode")
	}
	op, ok := aggregateOps[n.Function()]
	if !ok {
		return nil, errors.Wrapf(ErrNotRegistered, "aggregate %q", n.Function())
	}
	source, err := r.Wrap(n.Source())
	if err != nil {
		return nil, err
	}
	return &aggregateEvaluator{AggregateNode: n, source: source, op: op}, nil
}

func (e *aggregateEvaluator) Expression() expression.Node {
	return e.AggregateNode
}

// Evaluate reduces the collection the source evaluates to. NULL is an
// empty collection.
func (e *aggregateEvaluator) Evaluate(ctx *Context, target any) (any, error) {
	v, err := e.source.Evaluate(ctx, target)
	if err != nil {
		return nil, err
	}
	var values []any
	if v != nil {
		var ok bool
		if values, ok = items(v); !ok {
			return nil, errors.Wrapf(errs.ErrType, "%s of %T, want a collection", e.Function(), v)
		}
	}
	if e.IsDistinct() {
		// DISTINCT never counts nulls.
		values = distinct(ctx, present(values))
	}
	result, err := e.op(ctx, e.AggregateNode, values)
	if err != nil {
		return nil, errors.Wrap(err, string(e.Function()))
	}
	return result, nil
}

func (e *aggregateEvaluator) operands() []Evaluator {
	return []Evaluator{e.source}
}

func (e *aggregateEvaluator) rebuild(ops []Evaluator) (Evaluator, error) {
	return &aggregateEvaluator{AggregateNode: e.WithSource(ops[0]), source: ops[0], op: e.op}, nil
}

func distinct(ctx *Context, values []any) []any {
	var out []any
	for _, v := range values {
		seen := false
		for _, u := range out {
			if equal(ctx, v, u) {
				seen = true
				break
			}
		}
		if !seen {
			out = append(out, v)
		}
	}
	return out
}

func present(values []any) []any {
	out := make([]any, 0, len(values))
	for _, v := range values {
		if v != nil {
			out = append(out, v)
		}
	}
	return out
}

// countOp is the length of the collection, NULL items included unless
// the aggregate is distinct.
func countOp(_ *Context, _ *expression.AggregateNode, values []any) (any, error) {
	return int64(len(values)), nil
}

func total(ctx *Context, values []any) (any, error) {
	var acc any
	for i, v := range values {
		var err error
		if i == 0 {
			acc, err = operators.Normalize(v)
		} else {
			acc, err = ctx.operators.ExecBinary(acc, operators.OperatorAdd, v)
		}
		if err != nil {
			return nil, err
		}
	}
	return acc, nil
}

// sumOp adds the items that are not NULL; nothing adds up to 0.
func sumOp(ctx *Context, _ *expression.AggregateNode, values []any) (any, error) {
	values = present(values)
	if len(values) == 0 {
		return int64(0), nil
	}
	return total(ctx, values)
}

func extremeOp(sign int) aggregateOp {
	return func(ctx *Context, _ *expression.AggregateNode, values []any) (any, error) {
		values = present(values)
		if len(values) == 0 {
			return nil, ErrEmptyAggregate
		}
		best := values[0]
		for _, v := range values[1:] {
			c, err := ctx.operators.Compare(v, best)
			if err != nil {
				return nil, err
			}
			if c*sign > 0 {
				best = v
			}
		}
		return best, nil
	}
}

func avgOp(ctx *Context, _ *expression.AggregateNode, values []any) (any, error) {
	values = present(values)
	if len(values) == 0 {
		return nil, ErrEmptyAggregate
	}
	sum, err := total(ctx, values)
	if err != nil {
		return nil, err
	}
	n := int64(len(values))
	switch s := sum.(type) {
	case decimal.Decimal:
		return s.Div(decimal.NewFromInt(n)), nil
	case time.Duration:
		return s / time.Duration(n), nil
	}
	f, err := toFloat64(sum)
	if err != nil {
		return nil, err
	}
	return f / float64(n), nil
}

// spreadOp computes the standard deviation or the variance, of the
// population unless the aggregate is marked as a sample.
func spreadOp(deviation bool) aggregateOp {
	return func(_ *Context, n *expression.AggregateNode, values []any) (any, error) {
		values = present(values)
		dof := 0
		if n.IsSample() {
			dof = 1
		}
		if len(values) <= dof {
			return nil, errors.Wrapf(ErrEmptyAggregate, "%d items", len(values))
		}
		xs := make([]float64, len(values))
		var mean float64
		for i, v := range values {
			x, err := toFloat64(v)
			if err != nil {
				return nil, err
			}
			xs[i] = x
			mean += x
		}
		mean /= float64(len(xs))
		var squares float64
		for _, x := range xs {
			squares += (x - mean) * (x - mean)
		}
		variance := squares / float64(len(xs)-dof)
		if deviation {
			return math.Sqrt(variance), nil
		}
		return variance, nil
	}
}

func toFloat64(v any) (float64, error) {
	if d, ok := v.(decimal.Decimal); ok {
		return d.InexactFloat64(), nil
	}
	f, err := cast.ToFloat64E(operators.Underlying(v))
	if err != nil {
		return 0, errors.Wrap(errs.ErrType, err.Error())
	}
	return f, nil
}
