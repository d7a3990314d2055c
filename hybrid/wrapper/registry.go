package wrapper

import (
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/errs"
	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/expression"
	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/logging"
)

var (
	ErrDuplicateRegistration = errs.New(errs.ErrRegistration, "evaluator already registered")
	ErrNotRegistered         = errs.New(errs.ErrLookup, "no evaluator registered")
)

// Factory builds the evaluator of a node. Child nodes are wrapped with r.
type Factory func(r *Registry, node expression.Node) (Evaluator, error)

// Registry maps node kinds to the factories of their evaluators. Each kind
// is bound at most once.
type Registry struct {
	mu        sync.RWMutex
	factories map[expression.Kind]Factory
	logger    *zap.Logger
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[expression.Kind]Factory),
		logger:    logging.Named("wrapper"),
	}
}

// Default is populated by the evaluators of this package at init time.
var Default = NewRegistry()

func (r *Registry) Register(kind expression.Kind, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[kind]; ok {
		return errors.Wrapf(ErrDuplicateRegistration, "kind %q", kind)
	}
	r.factories[kind] = factory
	r.logger.Debug("evaluator registered", zap.String("kind", string(kind)))
	return nil
}

// MustRegister is Register panicking on duplicates.
func (r *Registry) MustRegister(kind expression.Kind, factory Factory) {
	if err := r.Register(kind, factory); err != nil {
		panic(err)
	}
}

// Registering binds the factory it is given to kind and returns it as is:
//
//	var newMyNode = wrapper.Registering(wrapper.Default, KindMyNode)(func(...) {...})
func Registering(r *Registry, kind expression.Kind) func(Factory) Factory {
	return func(factory Factory) Factory {
		r.MustRegister(kind, factory)
		return factory
	}
}

// RegisterAll binds every entry, reporting all duplicates at once.
func (r *Registry) RegisterAll(factories map[expression.Kind]Factory) error {
	kinds := make([]expression.Kind, 0, len(factories))
	for kind := range factories {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	var result error
	for _, kind := range kinds {
		if err := r.Register(kind, factories[kind]); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result
}

// Unregister removes the binding of kind, if any.
func (r *Registry) Unregister(kind expression.Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.factories, kind)
}

func (r *Registry) Get(kind expression.Kind) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	factory, ok := r.factories[kind]
	if !ok {
		return nil, errors.Wrapf(ErrNotRegistered, "kind %q", kind)
	}
	return factory, nil
}

// Kinds lists the bound kinds in order.
func (r *Registry) Kinds() []expression.Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]expression.Kind, 0, len(r.factories))
	for kind := range r.factories {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
