// Package wrapper evaluates expression trees against in-memory targets.
// Every node kind is served by an evaluator registered in a Registry;
// wrapping a tree builds the evaluators and evaluating one walks the tree
// post-order, producing the value a database would compute for the same
// expression over the target's row.
package wrapper

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/expression"
)

// Evaluator is a node that evaluates itself against a target. It aliases
// the node it was built for and never changes it.
type Evaluator interface {
	expression.Node
	Evaluate(ctx *Context, target any) (any, error)
}

// Resolvable evaluators bind to a scope by returning a new evaluator.
type Resolvable interface {
	ResolveExpression(scope *Scope) (Evaluator, error)
}

// composite evaluators are rebuilt when one of their operands resolves
// to another evaluator.
type composite interface {
	operands() []Evaluator
	rebuild(operands []Evaluator) (Evaluator, error)
}

type resolutionCache interface {
	resolution(scope *Scope) (Evaluator, bool)
	remember(scope *Scope, ev Evaluator) Evaluator
}

// Wrap returns the evaluator of node built with the Default registry.
func Wrap(node expression.Node) (Evaluator, error) {
	return Default.Wrap(node)
}

// Wrap returns node itself when it is already an evaluator and builds its
// evaluator otherwise.
func (r *Registry) Wrap(node expression.Node) (Evaluator, error) {
	if node == nil {
		return nil, errors.New("cannot wrap a nil node")
	}
	if ev, ok := node.(Evaluator); ok {
		return ev, nil
	}
	factory, err := r.Get(node.Kind())
	if err != nil {
		return nil, err
	}
	return factory(r, node)
}

func (r *Registry) wrapAll(nodes []expression.Node) ([]Evaluator, error) {
	evs := make([]Evaluator, len(nodes))
	for i, n := range nodes {
		ev, err := r.Wrap(n)
		if err != nil {
			return nil, err
		}
		evs[i] = ev
	}
	return evs, nil
}

// Evaluate evaluates ev against target in a new Context.
func Evaluate(ev Evaluator, target any) (any, error) {
	return ev.Evaluate(NewContext(), target)
}

// Resolve binds ev to scope. The result is computed once per evaluator and
// scope; evaluators without anything to bind are returned as is.
func Resolve(ev Evaluator, scope *Scope) (Evaluator, error) {
	if scope == nil {
		return ev, nil
	}
	cache, cached := ev.(resolutionCache)
	if cached {
		if resolved, ok := cache.resolution(scope); ok {
			return resolved, nil
		}
	}
	resolved, err := resolveOnce(ev, scope)
	if err != nil {
		return nil, err
	}
	if cached {
		resolved = cache.remember(scope, resolved)
	}
	return resolved, nil
}

func resolveOnce(ev Evaluator, scope *Scope) (Evaluator, error) {
	if r, ok := ev.(Resolvable); ok {
		return r.ResolveExpression(scope)
	}
	c, ok := ev.(composite)
	if !ok {
		return ev, nil
	}
	ops := c.operands()
	resolved := make([]Evaluator, len(ops))
	changed := false
	for i, op := range ops {
		r, err := Resolve(op, scope)
		if err != nil {
			return nil, err
		}
		resolved[i] = r
		changed = changed || r != op
	}
	if !changed {
		return ev, nil
	}
	return c.rebuild(resolved)
}

// base carries the resolutions of an evaluator.
type base struct {
	mu       sync.Mutex
	resolved map[*Scope]Evaluator
}

func (b *base) resolution(scope *Scope) (Evaluator, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ev, ok := b.resolved[scope]
	return ev, ok
}

// remember keeps the first resolution stored for scope and returns it.
func (b *base) remember(scope *Scope, ev Evaluator) Evaluator {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.resolved == nil {
		b.resolved = make(map[*Scope]Evaluator)
	}
	if prev, ok := b.resolved[scope]; ok {
		return prev
	}
	b.resolved[scope] = ev
	return ev
}
