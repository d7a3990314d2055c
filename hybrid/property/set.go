// Package property declares computed properties of a type. A property is
// an expression over the fields of its owner: read on the type it is an
// expression usable in other expressions, read on an instance it is the
// value of that expression for the instance.
package property

import (
	"reflect"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/errs"
	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/expression"
	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/lazy"
	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/logging"
	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/model"
	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/wrapper"
)

var (
	ErrDuplicateProperty = errs.New(errs.ErrRegistration, "property already declared")
	ErrCircularProperty  = errs.New(errs.ErrLookup, "property depends on itself")
)

type SetOption func(*setOptions)

type setOptions struct {
	registry *wrapper.Registry
	context  []wrapper.Option
}

// WithRegistry sets the registry wrapping property expressions.
func WithRegistry(r *wrapper.Registry) SetOption {
	return func(o *setOptions) {
		o.registry = r
	}
}

// WithContext sets the options of the contexts instances are evaluated in.
func WithContext(opts ...wrapper.Option) SetOption {
	return func(o *setOptions) {
		o.context = append(o.context, opts...)
	}
}

// Set holds the computed properties declared for T.
type Set[T any] struct {
	setOptions
	mu     sync.RWMutex
	byName map[string]*Property[T]
	order  []*Property[T]
	scope  lazy.Value[*wrapper.Scope]
	logger *zap.Logger
}

func NewSet[T any](opts ...SetOption) *Set[T] {
	s := &Set[T]{
		setOptions: setOptions{registry: wrapper.Default},
		byName:     make(map[string]*Property[T]),
		logger:     logging.Named("property").With(zap.Stringer("type", ownerType[T]())),
	}
	for _, opt := range opts {
		opt(&s.setOptions)
	}
	return s
}

func ownerType[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Declare adds a property computed by the expression build returns. build
// runs on first use, so it may refer to properties declared after it.
// Declaring a name twice panics.
func (s *Set[T]) Declare(name string, build func(*Set[T]) expression.Node, opts ...Option) *Property[T] {
	p := &Property[T]{set: s, name: name, build: build}
	for _, opt := range opts {
		opt(&p.options)
	}
	p.named = &Named{name: name, owner: p}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byName[name]; ok {
		panic(errors.Wrapf(ErrDuplicateProperty, "%s.%s", ownerType[T](), name))
	}
	s.byName[name] = p
	s.order = append(s.order, p)
	s.logger.Debug("property declared", zap.String("property", name))
	return p
}

// NewContext returns a context with the options of the set, for
// evaluating several properties or instances in one unit of work.
func (s *Set[T]) NewContext() *wrapper.Context {
	opts := append([]wrapper.Option{
		wrapper.WithRegistry(s.registry),
		wrapper.WithLogger(s.logger),
	}, s.context...)
	return wrapper.NewContext(opts...)
}

// Get returns the property declared as name.
func (s *Set[T]) Get(name string) (*Property[T], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byName[name]
	return p, ok
}

// Property returns the type-level expression of the property declared as
// name, so that references to it resolve to its expression.
func (s *Set[T]) Property(name string) (wrapper.Evaluator, bool) {
	p, ok := s.Get(name)
	if !ok {
		return nil, false
	}
	return p.named, true
}

func (s *Set[T]) declared() []*Property[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Property[T](nil), s.order...)
}

// Scope is what the properties of the set are resolved against.
func (s *Set[T]) Scope() *wrapper.Scope {
	scope, _ := s.scope.Get(func() (*wrapper.Scope, error) {
		scope := &wrapper.Scope{Properties: s}
		c, err := model.OfType(ownerType[T]())
		if err != nil {
			s.logger.Debug("no model, fields resolve on instances", zap.Error(err))
		} else {
			scope.Model = c
		}
		return scope, nil
	})
	return scope
}

// Validate builds every property and reports every failure.
func (s *Set[T]) Validate() error {
	var result *multierror.Error
	for _, p := range s.declared() {
		if _, err := p.evaluator(); err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "property %q", p.name))
		}
	}
	return result.ErrorOrNil()
}

// Reset drops what was built for every property of the set.
func (s *Set[T]) Reset() {
	for _, p := range s.declared() {
		p.Reset()
	}
}

// checkCycles fails when p reaches itself through the properties it
// references.
func (s *Set[T]) checkCycles(p *Property[T]) error {
	const (
		visiting = 1
		done     = 2
	)
	state := make(map[*Property[T]]int)
	var visit func(q *Property[T]) error
	visit = func(q *Property[T]) error {
		switch state[q] {
		case visiting:
			return errors.Wrapf(ErrCircularProperty, "%s.%s", ownerType[T](), q.name)
		case done:
			return nil
		}
		state[q] = visiting
		deps, err := q.references(false)
		if err != nil {
			return err
		}
		for _, d := range deps {
			if err := visit(d); err != nil {
				return err
			}
		}
		state[q] = done
		return nil
	}
	return visit(p)
}
