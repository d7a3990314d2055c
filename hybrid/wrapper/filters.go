package wrapper

import (
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/errs"
	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/expand"
	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/expression"
	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/expression/operators"
	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/model"
	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/resolve"
)

func init() {
	Default.MustRegister(expression.KindQ, newQ)
	Default.MustRegister(expression.KindAnd, newAnd)
	Default.MustRegister(expression.KindOr, newOr)
	Default.MustRegister(expression.KindNot, newNot)
	Default.MustRegister(expression.KindEmptyFilter, newEmptyFilter)
	Default.MustRegister(expression.KindAny, newAny)
}

// truth reads a predicate result; NULL is false.
func truth(v any) (bool, error) {
	switch b := v.(type) {
	case nil:
		return false, nil
	case bool:
		return b, nil
	}
	b, err := cast.ToBoolE(operators.Underlying(v))
	if err != nil {
		return false, errors.Wrapf(errs.ErrType, "%v (%T) is not a truth value", v, v)
	}
	return b, nil
}

type qEvaluator struct {
	base
	*expression.QNode
	registry *Registry
}

func newQ(r *Registry, node expression.Node) (Evaluator, error) {
	n, ok := node.(*expression.QNode)
	if !ok {
		return nil, unexpected(node, "*expression.QNode")
	}
	return &qEvaluator{QNode: n, registry: r}, nil
}

func (e *qEvaluator) Expression() expression.Node {
	return e.QNode
}

// Evaluate expands the filter against the model of target and evaluates
// the expansion.
func (e *qEvaluator) Evaluate(ctx *Context, target any) (any, error) {
	c, err := model.For(target)
	if err != nil {
		return nil, errors.Wrap(err, "evaluating filter")
	}
	expanded, err := ctx.expansions.Expand(c, e.QNode)
	if err != nil {
		return nil, err
	}
	ctx.logger.Debug("filter expanded", zap.String("model", c.Name()))
	ev, err := ctx.registry.Wrap(expanded)
	if err != nil {
		return nil, err
	}
	v, err := ev.Evaluate(ctx, target)
	if err != nil {
		return nil, err
	}
	return truth(v)
}

// ResolveExpression expands the filter against the model of the scope.
func (e *qEvaluator) ResolveExpression(scope *Scope) (Evaluator, error) {
	if scope.Model == nil {
		return e, nil
	}
	expanded, err := expand.Expand(scope.Model, e.QNode)
	if err != nil {
		return nil, err
	}
	ev, err := e.registry.Wrap(expanded)
	if err != nil {
		return nil, err
	}
	return Resolve(ev, scope)
}

type andEvaluator struct {
	base
	*expression.AndNode
	lhs, rhs Evaluator
}

func newAnd(r *Registry, node expression.Node) (Evaluator, error) {
	n, ok := node.(*expression.AndNode)
	if !ok {
		return nil, unexpected(node, "*expression.AndNode")
	}
	lhs, rhs, err := wrapPair(r, n.LHS(), n.RHS())
	if err != nil {
		return nil, err
	}
	return &andEvaluator{AndNode: n, lhs: lhs, rhs: rhs}, nil
}

func (e *andEvaluator) Expression() expression.Node {
	return e.AndNode
}

func (e *andEvaluator) Evaluate(ctx *Context, target any) (any, error) {
	return connect(ctx, target, e.lhs, operators.OperatorAnd, e.rhs)
}

func (e *andEvaluator) operands() []Evaluator {
	return []Evaluator{e.lhs, e.rhs}
}

func (e *andEvaluator) rebuild(ops []Evaluator) (Evaluator, error) {
	return &andEvaluator{AndNode: expression.And(ops[0], ops[1]), lhs: ops[0], rhs: ops[1]}, nil
}

type orEvaluator struct {
	base
	*expression.OrNode
	lhs, rhs Evaluator
}

func newOr(r *Registry, node expression.Node) (Evaluator, error) {
	n, ok := node.(*expression.OrNode)
	if !ok {
		return nil, unexpected(node, "*expression.OrNode")
	}
	lhs, rhs, err := wrapPair(r, n.LHS(), n.RHS())
	if err != nil {
		return nil, err
	}
	return &orEvaluator{OrNode: n, lhs: lhs, rhs: rhs}, nil
}

func (e *orEvaluator) Expression() expression.Node {
	return e.OrNode
}

func (e *orEvaluator) Evaluate(ctx *Context, target any) (any, error) {
	return connect(ctx, target, e.lhs, operators.OperatorOr, e.rhs)
}

func (e *orEvaluator) operands() []Evaluator {
	return []Evaluator{e.lhs, e.rhs}
}

func (e *orEvaluator) rebuild(ops []Evaluator) (Evaluator, error) {
	return &orEvaluator{OrNode: expression.Or(ops[0], ops[1]), lhs: ops[0], rhs: ops[1]}, nil
}

func wrapPair(r *Registry, lhs, rhs expression.Node) (Evaluator, Evaluator, error) {
	l, err := r.Wrap(lhs)
	if err != nil {
		return nil, nil, err
	}
	rr, err := r.Wrap(rhs)
	if err != nil {
		return nil, nil, err
	}
	return l, rr, nil
}

// connect applies AND or OR with three-valued logic, skipping the right
// operand when the left one decides. NULL is reported as false.
func connect(ctx *Context, target any, lhs Evaluator, op operators.Operator, rhs Evaluator) (any, error) {
	l, err := lhs.Evaluate(ctx, target)
	if err != nil {
		return nil, err
	}
	if b, ok := l.(bool); ok && b == (op == operators.OperatorOr) {
		return b, nil
	}
	r, err := rhs.Evaluate(ctx, target)
	if err != nil {
		return nil, err
	}
	v, err := ctx.operators.ExecBinary(l, op, r)
	if err != nil {
		return nil, err
	}
	return v == true, nil
}

type notEvaluator struct {
	base
	*expression.NotNode
	inner Evaluator
}

func newNot(r *Registry, node expression.Node) (Evaluator, error) {
	n, ok := node.(*expression.NotNode)
	if !ok {
		return nil, unexpected(node, "*expression.NotNode")
	}
	inner, err := r.Wrap(n.Inner())
	if err != nil {
		return nil, err
	}
	return &notEvaluator{NotNode: n, inner: inner}, nil
}

func (e *notEvaluator) Expression() expression.Node {
	return e.NotNode
}

// Evaluate negates the inner predicate. Negating the empty filter keeps
// everything, as the empty filter does.
func (e *notEvaluator) Evaluate(ctx *Context, target any) (any, error) {
	if expression.IsEmptyFilter(e.inner) {
		return true, nil
	}
	v, err := e.inner.Evaluate(ctx, target)
	if err != nil {
		return nil, err
	}
	v, err = ctx.operators.ExecUnary(operators.OperatorNot, v)
	if err != nil {
		return nil, err
	}
	return v == true, nil
}

func (e *notEvaluator) operands() []Evaluator {
	return []Evaluator{e.inner}
}

func (e *notEvaluator) rebuild(ops []Evaluator) (Evaluator, error) {
	return &notEvaluator{NotNode: expression.Not(ops[0]), inner: ops[0]}, nil
}

type emptyFilterEvaluator struct {
	base
	*expression.EmptyFilterNode
}

func newEmptyFilter(_ *Registry, node expression.Node) (Evaluator, error) {
	n, ok := node.(*expression.EmptyFilterNode)
	if !ok {
		return nil, unexpected(node, "*expression.EmptyFilterNode")
	}
	return &emptyFilterEvaluator{EmptyFilterNode: n}, nil
}

func (e *emptyFilterEvaluator) Expression() expression.Node {
	return e.EmptyFilterNode
}

// Evaluate keeps every target.
func (e *emptyFilterEvaluator) Evaluate(*Context, any) (any, error) {
	return true, nil
}

// anyEvaluator tests its predicate on the items of a to-many relation. The
// predicate belongs to the related model, so it is not resolved against
// the scope of the owner.
type anyEvaluator struct {
	base
	*expression.AnyNode
	predicate Evaluator
}

func newAny(r *Registry, node expression.Node) (Evaluator, error) {
	n, ok := node.(*expression.AnyNode)
	if !ok {
		return nil, unexpected(node, "*expression.AnyNode")
	}
	predicate, err := r.Wrap(n.Predicate())
	if err != nil {
		return nil, err
	}
	return &anyEvaluator{AnyNode: n, predicate: predicate}, nil
}

func (e *anyEvaluator) Expression() expression.Node {
	return e.AnyNode
}

func (e *anyEvaluator) Evaluate(ctx *Context, target any) (any, error) {
	v, err := resolve.Resolve(target, e.Path())
	if err != nil {
		return nil, err
	}
	if isNil(v) {
		return false, nil
	}
	l, ok := items(v)
	if !ok {
		l = []any{v}
	}
	for _, item := range l {
		if isNil(item) {
			continue
		}
		ok, err := e.predicate.Evaluate(ctx, item)
		if err != nil {
			return nil, err
		}
		if ok == true {
			return true, nil
		}
	}
	return false, nil
}
