package wrapper

import (
	"math/rand"
	"reflect"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/convert"
	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/expand"
	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/expression"
	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/expression/operators"
	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/logging"
)

var defaultExpansions = mustCache(expand.NewCache(expand.DefaultCacheSize))

func mustCache(c *expand.Cache, err error) *expand.Cache {
	if err != nil {
		panic(err)
	}
	return c
}

type Option func(*Context)

// WithClock sets the source of Now.
func WithClock(clock func() time.Time) Option {
	return func(c *Context) {
		c.clock = clock
	}
}

// WithRandom sets the source of Random; it must return values in [0, 1).
func WithRandom(random func() float64) Option {
	return func(c *Context) {
		c.random = random
	}
}

// WithConverters sets the output type conversions.
func WithConverters(p convert.Provider) Option {
	return func(c *Context) {
		c.converters = p
	}
}

// WithOperators sets the operators of arithmetic, comparison and logic.
func WithOperators(reg *operators.Registry) Option {
	return func(c *Context) {
		c.operators = reg
	}
}

// WithRegistry sets the registry wrapping trees built during evaluation,
// such as expanded filters.
func WithRegistry(r *Registry) Option {
	return func(c *Context) {
		c.registry = r
	}
}

// WithExpansions sets the cache of expanded filters.
func WithExpansions(cache *expand.Cache) Option {
	return func(c *Context) {
		c.expansions = cache
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Context) {
		c.logger = l
	}
}

// Context is owned by the caller of an evaluation. It holds the values
// that must stay stable while it lives, such as Now and Random of each
// target.
type Context struct {
	id         ulid.ULID
	clock      func() time.Time
	random     func() float64
	converters convert.Provider
	operators  *operators.Registry
	registry   *Registry
	expansions *expand.Cache
	logger     *zap.Logger

	mu   sync.Mutex
	memo map[memoKey]memoEntry
}

func NewContext(opts ...Option) *Context {
	c := &Context{
		id:         ulid.Make(),
		clock:      time.Now,
		random:     rand.Float64,
		converters: convert.Native,
		operators:  operators.Default(),
		registry:   Default,
		expansions: defaultExpansions,
		logger:     logging.Named("wrapper"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.Stringer("context", c.id))
	return c
}

func (c *Context) ID() ulid.ULID {
	return c.id
}

func (c *Context) Logger() *zap.Logger {
	return c.logger
}

// Now is the current moment as seen by the clock of the context.
func (c *Context) Now() time.Time {
	return c.clock()
}

func (c *Context) convert(dt expression.DataType, v any) (any, error) {
	if dt == expression.TypeUnknown || isCollection(v) {
		return v, nil
	}
	if isNil(v) {
		return nil, nil
	}
	return convert.With(c.converters, dt, v)
}

type identity struct {
	typ reflect.Type
	ptr uintptr
	val any
}

// identityOf identifies pointers, maps and slices by address and other
// values by value. Equal values without an address share an identity.
func identityOf(target any) identity {
	if target == nil {
		return identity{}
	}
	v := reflect.ValueOf(target)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return identity{typ: v.Type(), ptr: v.Pointer()}
	case reflect.Slice:
		return identity{typ: v.Type(), ptr: v.Pointer(), val: v.Len()}
	}
	if v.Comparable() {
		return identity{typ: v.Type(), val: target}
	}
	return identity{typ: v.Type()}
}

type memoKey struct {
	node   expression.Node
	target identity
}

type memoEntry struct {
	// target keeps the address of the identity from being reused
	target any
	value  any
}

// memoize returns the value computed for node and target in this context,
// computing it on first use.
func (c *Context) memoize(node expression.Node, target any, compute func() (any, error)) (any, error) {
	key := memoKey{node: node, target: identityOf(target)}
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.memo[key]; ok {
		return e.value, nil
	}
	v, err := compute()
	if err != nil {
		return nil, err
	}
	if c.memo == nil {
		c.memo = make(map[memoKey]memoEntry)
	}
	c.memo[key] = memoEntry{target: target, value: v}
	return v, nil
}
