package wrapper

import (
	"github.com/pkg/errors"

	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/expression"
)

func init() {
	Default.MustRegister(expression.KindCombined, newCombined)
}

type combinedEvaluator struct {
	base
	*expression.CombinedNode
	lhs, rhs Evaluator
}

func newCombined(r *Registry, node expression.Node) (Evaluator, error) {
	n, ok := node.(*expression.CombinedNode)
	if !ok {
		return nil, unexpected(node, "*expression.CombinedNode")
	}
	lhs, err := r.Wrap(n.LHS())
	if err != nil {
		return nil, err
	}
	rhs, err := r.Wrap(n.RHS())
	if err != nil {
		return nil, err
	}
	return &combinedEvaluator{CombinedNode: n, lhs: lhs, rhs: rhs}, nil
}

func (e *combinedEvaluator) Expression() expression.Node {
	return e.CombinedNode
}

// Evaluate applies the connector to both operands. Mixed numeric operands
// are promoted and a NULL operand gives NULL.
func (e *combinedEvaluator) Evaluate(ctx *Context, target any) (any, error) {
	l, err := e.lhs.Evaluate(ctx, target)
	if err != nil {
		return nil, err
	}
	r, err := e.rhs.Evaluate(ctx, target)
	if err != nil {
		return nil, err
	}
	v, err := ctx.operators.ExecBinary(l, e.Connector(), r)
	if err != nil {
		return nil, errors.Wrapf(err, "%v %s %v", l, e.Connector(), r)
	}
	v, err = ctx.convert(e.Output(), v)
	if err != nil {
		return nil, errors.Wrap(err, string(e.Kind()))
	}
	return v, nil
}

func (e *combinedEvaluator) operands() []Evaluator {
	return []Evaluator{e.lhs, e.rhs}
}

func (e *combinedEvaluator) rebuild(ops []Evaluator) (Evaluator, error) {
	return &combinedEvaluator{CombinedNode: e.WithOperands(ops[0], ops[1]), lhs: ops[0], rhs: ops[1]}, nil
}
