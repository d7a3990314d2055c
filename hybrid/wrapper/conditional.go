package wrapper

import (
	"github.com/pkg/errors"

	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/expression"
)

// errConditionNotSatisfied moves a case on to its next branch. It never
// leaves this package.
var errConditionNotSatisfied = errors.New("condition not satisfied")

func init() {
	Default.MustRegister(expression.KindCase, newCase)
	Default.MustRegister(expression.KindWhen, newWhen)
}

type whenEvaluator struct {
	base
	*expression.WhenNode
	condition, result Evaluator
}

func newWhen(r *Registry, node expression.Node) (Evaluator, error) {
	n, ok := node.(*expression.WhenNode)
	if !ok {
		return nil, unexpected(node, "*expression.WhenNode")
	}
	condition, result, err := wrapPair(r, n.Condition(), n.Result())
	if err != nil {
		return nil, err
	}
	return &whenEvaluator{WhenNode: n, condition: condition, result: result}, nil
}

func (e *whenEvaluator) Expression() expression.Node {
	return e.WhenNode
}

// match evaluates the result when the condition holds and reports
// errConditionNotSatisfied otherwise.
func (e *whenEvaluator) match(ctx *Context, target any) (any, error) {
	c, err := e.condition.Evaluate(ctx, target)
	if err != nil {
		return nil, err
	}
	ok, err := truth(c)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errConditionNotSatisfied
	}
	return e.result.Evaluate(ctx, target)
}

// Evaluate is the result when the condition holds and NULL otherwise.
func (e *whenEvaluator) Evaluate(ctx *Context, target any) (any, error) {
	v, err := e.match(ctx, target)
	if errors.Is(err, errConditionNotSatisfied) {
		return nil, nil
	}
	return v, err
}

func (e *whenEvaluator) operands() []Evaluator {
	return []Evaluator{e.condition, e.result}
}

func (e *whenEvaluator) rebuild(ops []Evaluator) (Evaluator, error) {
	return &whenEvaluator{WhenNode: e.WithOperands(ops[0], ops[1]), condition: ops[0], result: ops[1]}, nil
}

type caseEvaluator struct {
	base
	*expression.CaseNode
	whens []*whenEvaluator
	def   Evaluator
}

func newCase(r *Registry, node expression.Node) (Evaluator, error) {
	n, ok := node.(*expression.CaseNode)
	if !ok {
		return nil, unexpected(node, "*expression.CaseNode")
	}
	whens := make([]*whenEvaluator, len(n.Whens()))
	for i, w := range n.Whens() {
		ev, err := r.Wrap(w)
		if err != nil {
			return nil, err
		}
		if whens[i], ok = ev.(*whenEvaluator); !ok {
			return nil, errors.Errorf("case branch evaluated by %T", ev)
		}
	}
	def, err := r.Wrap(n.Default())
	if err != nil {
		return nil, err
	}
	return &caseEvaluator{CaseNode: n, whens: whens, def: def}, nil
}

func (e *caseEvaluator) Expression() expression.Node {
	return e.CaseNode
}

// Evaluate returns the result of the first branch whose condition holds,
// or the default.
func (e *caseEvaluator) Evaluate(ctx *Context, target any) (any, error) {
	v, err := e.choose(ctx, target)
	if err != nil {
		return nil, err
	}
	v, err = ctx.convert(e.Output(), v)
	if err != nil {
		return nil, errors.Wrap(err, string(e.Kind()))
	}
	return v, nil
}

func (e *caseEvaluator) choose(ctx *Context, target any) (any, error) {
	for _, w := range e.whens {
		v, err := w.match(ctx, target)
		if errors.Is(err, errConditionNotSatisfied) {
			continue
		}
		return v, err
	}
	return e.def.Evaluate(ctx, target)
}

func (e *caseEvaluator) operands() []Evaluator {
	ops := make([]Evaluator, 0, len(e.whens)+1)
	for _, w := range e.whens {
		ops = append(ops, w)
	}
	return append(ops, e.def)
}

func (e *caseEvaluator) rebuild(ops []Evaluator) (Evaluator, error) {
	whens := make([]*whenEvaluator, len(e.whens))
	branches := make([]*expression.WhenNode, len(e.whens))
	for i := range e.whens {
		w, ok := ops[i].(*whenEvaluator)
		if !ok {
			return nil, errors.Errorf("case branch resolved to %T", ops[i])
		}
		whens[i], branches[i] = w, w.WhenNode
	}
	def := ops[len(ops)-1]
	return &caseEvaluator{CaseNode: e.WithBranches(branches, def), whens: whens, def: def}, nil
}
