package property

import (
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/errs"
	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/expression"
	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/lazy"
	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/wrapper"
)

// KindProperty is the kind of the type-level expression of a property.
const KindProperty expression.Kind = "property"

type Option func(*options)

type options struct {
	output expression.DataType
}

// WithOutput converts the values of the property to dt.
func WithOutput(dt expression.DataType) Option {
	return func(o *options) {
		o.output = dt
	}
}

// Property is a computed property of T.
type Property[T any] struct {
	options
	set   *Set[T]
	name  string
	build func(*Set[T]) expression.Node
	named *Named

	expr     lazy.Value[expression.Node]
	resolved lazy.Value[wrapper.Evaluator]
}

func (p *Property[T]) Name() string {
	return p.name
}

// Type returns the property as an expression.
func (p *Property[T]) Type() *Named {
	return p.named
}

// Value evaluates the property for instance in a new context, so nothing
// of instance is kept once the call returns.
func (p *Property[T]) Value(instance T) (any, error) {
	return p.ValueIn(p.set.NewContext(), instance)
}

// ValueIn evaluates the property for instance in ctx. Values such as Now
// stay the same for an instance as long as ctx is reused; ctx keeps every
// instance it saw reachable, so it should not outlive a unit of work.
func (p *Property[T]) ValueIn(ctx *wrapper.Context, instance T) (any, error) {
	ev, err := p.evaluator()
	if err != nil {
		return nil, err
	}
	return ev.Evaluate(ctx, instance)
}

// Reset drops the expression and the evaluator of the property; they are
// built again on next use.
func (p *Property[T]) Reset() {
	p.expr.Reset()
	p.resolved.Reset()
}

func (p *Property[T]) tree() (expression.Node, error) {
	return p.expr.Get(func() (expression.Node, error) {
		node := p.build(p.set)
		if node == nil {
			return nil, errors.Errorf("property %q has no expression", p.name)
		}
		if p.output != expression.TypeUnknown {
			node = expression.ExpressionWrapper(node, p.output)
		}
		return node, nil
	})
}

func (p *Property[T]) evaluator() (wrapper.Evaluator, error) {
	return p.resolved.Get(func() (wrapper.Evaluator, error) {
		if err := p.set.checkCycles(p); err != nil {
			return nil, err
		}
		node, err := p.tree()
		if err != nil {
			return nil, err
		}
		ev, err := p.set.registry.Wrap(node)
		if err != nil {
			return nil, err
		}
		resolved, err := wrapper.Resolve(ev, p.set.Scope())
		if err != nil {
			return nil, err
		}
		p.set.logger.Debug("property built", zap.String("property", p.name))
		return resolved, nil
	})
}

// references returns the properties of the set the expression refers to
// directly, in declaration order. When strict, a reference across a
// relation is an error.
func (p *Property[T]) references(strict bool) ([]*Property[T], error) {
	node, err := p.tree()
	if err != nil {
		return nil, err
	}
	seen := make(map[*Property[T]]bool)
	var walkErr error
	expression.Walk(node, func(n expression.Node) bool {
		if walkErr != nil {
			return false
		}
		switch n := n.(type) {
		case *expression.FieldNode:
			name := n.Name()
			if strings.Contains(name, "__") || strings.Contains(name, ".") {
				if !strict {
					return true
				}
				walkErr = errors.Wrapf(errs.ErrUnresolvedRelation, "%s refers to %q", p.name, name)
				return false
			}
			if q, ok := p.set.Get(name); ok {
				seen[q] = true
			}
		case *Named:
			if q, ok := n.owner.(*Property[T]); ok && q.set == p.set {
				seen[q] = true
			}
		}
		return true
	})
	if walkErr != nil {
		return nil, walkErr
	}
	var refs []*Property[T]
	for _, q := range p.set.declared() {
		if seen[q] {
			refs = append(refs, q)
		}
	}
	return refs, nil
}

type owner interface {
	evaluator() (wrapper.Evaluator, error)
	dependencies() ([]*Named, error)
}

func (p *Property[T]) dependencies() ([]*Named, error) {
	refs, err := p.references(true)
	if err != nil {
		return nil, err
	}
	deps := []*Named{p.named}
	for _, q := range refs {
		if q != p {
			deps = append(deps, q.named)
		}
	}
	return deps, nil
}

// Named is a property read on its type. It evaluates like the expression
// of the property and stays opaque to tree walks.
type Named struct {
	name  string
	owner owner
}

func (n *Named) Name() string                { return n.name }
func (n *Named) Kind() expression.Kind       { return KindProperty }
func (n *Named) Children() []expression.Node { return nil }

func (n *Named) Evaluate(ctx *wrapper.Context, target any) (any, error) {
	ev, err := n.owner.evaluator()
	if err != nil {
		return nil, err
	}
	return ev.Evaluate(ctx, target)
}

// WithDependencies returns the property followed by the properties of the
// same type its expression refers to.
func (n *Named) WithDependencies() ([]*Named, error) {
	return n.owner.dependencies()
}
