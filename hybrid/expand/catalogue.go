package expand

import (
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/errs"
	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/expression"
)

var ErrDuplicate = errs.New(errs.ErrRegistration, "already registered")

// Transform is a named function applied to a field in the filter syntax,
// such as "lower" in "name__lower__startswith".
type Transform struct {
	Name string
	// Inputs lists the data types the transform applies to; empty means all.
	Inputs []expression.DataType
	Output expression.DataType
	// Bilateral transforms apply to the compared value as well.
	Bilateral bool
	Build     func(expression.Node) expression.Node
}

// LookupSpec is a named predicate closing a filter argument.
type LookupSpec struct {
	Name   expression.Kind
	Inputs []expression.DataType
}

func applies(inputs []expression.DataType, dt expression.DataType) bool {
	if len(inputs) == 0 || dt == expression.TypeUnknown {
		return true
	}
	for _, in := range inputs {
		if in == dt {
			return true
		}
	}
	return false
}

// Catalogue holds the transforms and lookups of the filter syntax.
type Catalogue struct {
	mu         sync.RWMutex
	transforms map[string]Transform
	lookups    map[string]LookupSpec
}

func NewCatalogue() *Catalogue {
	return &Catalogue{
		transforms: make(map[string]Transform),
		lookups:    make(map[string]LookupSpec),
	}
}

func (c *Catalogue) RegisterTransform(t Transform) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.transforms[t.Name]; ok {
		return errors.Wrapf(ErrDuplicate, "transform %q", t.Name)
	}
	c.transforms[t.Name] = t
	return nil
}

func (c *Catalogue) RegisterLookup(l LookupSpec) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.lookups[string(l.Name)]; ok {
		return errors.Wrapf(ErrDuplicate, "lookup %q", l.Name)
	}
	c.lookups[string(l.Name)] = l
	return nil
}

// Transform finds a transform applicable to values of dt.
func (c *Catalogue) Transform(name string, dt expression.DataType) (Transform, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.transforms[name]
	if !ok || !applies(t.Inputs, dt) {
		return Transform{}, false
	}
	return t, true
}

// Lookup finds a lookup applicable to values of dt.
func (c *Catalogue) Lookup(name string, dt expression.DataType) (LookupSpec, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	l, ok := c.lookups[name]
	if !ok || !applies(l.Inputs, dt) {
		return LookupSpec{}, false
	}
	return l, true
}

// Names lists the registered transforms and lookups.
func (c *Catalogue) Names() (transforms, lookups []string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for name := range c.transforms {
		transforms = append(transforms, name)
	}
	for name := range c.lookups {
		lookups = append(lookups, name)
	}
	sort.Strings(transforms)
	sort.Strings(lookups)
	return transforms, lookups
}

var (
	text     = []expression.DataType{expression.TypeText}
	dates    = []expression.DataType{expression.TypeDate, expression.TypeDateTime}
	clocks   = []expression.DataType{expression.TypeDateTime, expression.TypeTime}
	moments  = []expression.DataType{expression.TypeDateTime}
	ordered  = []expression.DataType{expression.TypeInteger, expression.TypeFloat, expression.TypeDecimal, expression.TypeText, expression.TypeDate, expression.TypeDateTime, expression.TypeTime, expression.TypeDuration, expression.TypeUUID}
	patterns = []expression.DataType{expression.TypeText, expression.TypeUUID}
)

func extract(part expression.Part) func(expression.Node) expression.Node {
	return func(n expression.Node) expression.Node { return expression.Extract(n, part) }
}

// NewDefaultCatalogue registers the builtin transforms and lookups.
func NewDefaultCatalogue() *Catalogue {
	c := NewCatalogue()

	transforms := []Transform{
		{Name: "lower", Inputs: text, Output: expression.TypeText, Build: func(n expression.Node) expression.Node { return expression.Lower(n) }},
		{Name: "upper", Inputs: text, Output: expression.TypeText, Build: func(n expression.Node) expression.Node { return expression.Upper(n) }},
		{Name: "length", Inputs: text, Output: expression.TypeInteger, Build: func(n expression.Node) expression.Node { return expression.Length(n) }},
	}
	for _, p := range []expression.Part{expression.PartYear, expression.PartIsoYear, expression.PartQuarter, expression.PartMonth, expression.PartWeek, expression.PartDay, expression.PartWeekDay, expression.PartIsoWeekDay} {
		transforms = append(transforms, Transform{Name: string(p), Inputs: dates, Output: expression.TypeInteger, Build: extract(p)})
	}
	for _, p := range []expression.Part{expression.PartHour, expression.PartMinute, expression.PartSecond} {
		transforms = append(transforms, Transform{Name: string(p), Inputs: clocks, Output: expression.TypeInteger, Build: extract(p)})
	}
	transforms = append(transforms,
		Transform{Name: string(expression.PartDate), Inputs: moments, Output: expression.TypeDate, Build: extract(expression.PartDate)},
		Transform{Name: string(expression.PartTime), Inputs: moments, Output: expression.TypeTime, Build: extract(expression.PartTime)},
	)

	lookups := []LookupSpec{
		{Name: expression.KindExact},
		{Name: expression.KindIExact, Inputs: patterns},
		{Name: expression.KindGt, Inputs: ordered},
		{Name: expression.KindGte, Inputs: ordered},
		{Name: expression.KindLt, Inputs: ordered},
		{Name: expression.KindLte, Inputs: ordered},
		{Name: expression.KindIn},
		{Name: expression.KindContains},
		{Name: expression.KindIContains, Inputs: patterns},
		{Name: expression.KindStartsWith, Inputs: patterns},
		{Name: expression.KindIStartsWith, Inputs: patterns},
		{Name: expression.KindEndsWith, Inputs: patterns},
		{Name: expression.KindIEndsWith, Inputs: patterns},
		{Name: expression.KindRange, Inputs: ordered},
		{Name: expression.KindIsNull},
		{Name: expression.KindRegex, Inputs: patterns},
		{Name: expression.KindIRegex, Inputs: patterns},
	}

	for _, t := range transforms {
		if err := c.RegisterTransform(t); err != nil {
			panic(err)
		}
	}
	for _, l := range lookups {
		if err := c.RegisterLookup(l); err != nil {
			panic(err)
		}
	}
	return c
}
