package wrapper

import (
	"github.com/pkg/errors"

	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/expression"
)

func init() {
	Default.MustRegister(expression.KindValue, newValue)
	Default.MustRegister(expression.KindList, newList)
	Default.MustRegister(expression.KindWrapper, newExpressionWrapper)
}

type valueEvaluator struct {
	base
	*expression.ValueNode
}

func newValue(_ *Registry, node expression.Node) (Evaluator, error) {
	n, ok := node.(*expression.ValueNode)
	if !ok {
		return nil, unexpected(node, "*expression.ValueNode")
	}
	return &valueEvaluator{ValueNode: n}, nil
}

func (e *valueEvaluator) Expression() expression.Node {
	return e.ValueNode
}

// Evaluate returns the stored value converted to the declared output.
func (e *valueEvaluator) Evaluate(ctx *Context, _ any) (any, error) {
	v, err := ctx.convert(e.Output(), e.Value())
	if err != nil {
		return nil, errors.Wrap(err, "value")
	}
	return v, nil
}

type listEvaluator struct {
	base
	*expression.ListNode
	items []Evaluator
}

func newList(r *Registry, node expression.Node) (Evaluator, error) {
	n, ok := node.(*expression.ListNode)
	if !ok {
		return nil, unexpected(node, "*expression.ListNode")
	}
	items, err := r.wrapAll(n.Items())
	if err != nil {
		return nil, err
	}
	return &listEvaluator{ListNode: n, items: items}, nil
}

func (e *listEvaluator) Expression() expression.Node {
	return e.ListNode
}

func (e *listEvaluator) Evaluate(ctx *Context, target any) (any, error) {
	values, err := evaluateAll(ctx, e.items, target)
	if err != nil {
		return nil, err
	}
	return values, nil
}

func (e *listEvaluator) operands() []Evaluator {
	return e.items
}

func (e *listEvaluator) rebuild(ops []Evaluator) (Evaluator, error) {
	items := make([]any, len(ops))
	for i, op := range ops {
		items[i] = op
	}
	return &listEvaluator{ListNode: expression.List(items...), items: ops}, nil
}

type expressionWrapperEvaluator struct {
	base
	*expression.WrapperNode
	inner Evaluator
}

func newExpressionWrapper(r *Registry, node expression.Node) (Evaluator, error) {
	n, ok := node.(*expression.WrapperNode)
	if !ok {
		return nil, unexpected(node, "*expression.WrapperNode")
	}
	inner, err := r.Wrap(n.Inner())
	if err != nil {
		return nil, err
	}
	return &expressionWrapperEvaluator{WrapperNode: n, inner: inner}, nil
}

func (e *expressionWrapperEvaluator) Expression() expression.Node {
	return e.WrapperNode
}

// Evaluate evaluates the inner expression as its declared output type.
func (e *expressionWrapperEvaluator) Evaluate(ctx *Context, target any) (any, error) {
	v, err := e.inner.Evaluate(ctx, target)
	if err != nil {
		return nil, err
	}
	v, err = ctx.convert(e.Output(), v)
	if err != nil {
		return nil, errors.Wrap(err, string(e.Kind()))
	}
	return v, nil
}

func (e *expressionWrapperEvaluator) operands() []Evaluator {
	return []Evaluator{e.inner}
}

func (e *expressionWrapperEvaluator) rebuild(ops []Evaluator) (Evaluator, error) {
	return &expressionWrapperEvaluator{WrapperNode: e.WithInner(ops[0]), inner: ops[0]}, nil
}

func evaluateAll(ctx *Context, evs []Evaluator, target any) ([]any, error) {
	values := make([]any, len(evs))
	for i, ev := range evs {
		v, err := ev.Evaluate(ctx, target)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

func unexpected(node expression.Node, want string) error {
	return errors.Errorf("unexpected node %T of kind %q, want %s", node, node.Kind(), want)
}
