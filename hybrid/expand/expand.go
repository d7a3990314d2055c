// Package expand lowers filters in the compact "field__transform__lookup"
// argument syntax into expression trees of lookups joined by And, Or and
// Not, against the field catalogue of a model.
package expand

import (
	"reflect"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/errs"
	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/expression"
	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/expression/operators"
	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/logging"
	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/model"
	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/resolve"
)

var (
	ErrFieldNotFound        = errs.New(errs.ErrLookup, "field not found")
	ErrUnsupportedTransform = errs.New(errs.ErrUnsupportedTransform, "unsupported transform or lookup")
)

type Option func(*Expander)

// WithCatalogue replaces the default transforms and lookups.
func WithCatalogue(c *Catalogue) Option {
	return func(e *Expander) {
		e.catalogue = c
	}
}

// WithLogger sets the logger of the expander.
func WithLogger(l *zap.Logger) Option {
	return func(e *Expander) {
		e.logger = l
	}
}

// Expander expands filters using a catalogue of transforms and lookups.
type Expander struct {
	catalogue *Catalogue
	logger    *zap.Logger
}

func NewExpander(opts ...Option) *Expander {
	e := &Expander{
		catalogue: defaultCatalogue,
		logger:    logging.Named("expand"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var (
	defaultCatalogue = NewDefaultCatalogue()
	defaultExpander  = NewExpander()
)

// DefaultCatalogue returns the catalogue the package-level functions use.
func DefaultCatalogue() *Catalogue {
	return defaultCatalogue
}

// Expand expands q with the default expander.
func Expand(c model.Container, q *expression.QNode) (expression.Node, error) {
	return defaultExpander.Expand(c, q)
}

// ExpandChild expands a single argument with the default expander.
func ExpandChild(c model.Container, arg expression.Arg) (expression.Node, error) {
	return defaultExpander.ExpandChild(c, arg)
}

// And joins two expanded filters; the empty filter is absorbed.
func And(lhs, rhs expression.Node) expression.Node {
	if expression.IsEmptyFilter(lhs) {
		return rhs
	}
	if expression.IsEmptyFilter(rhs) {
		return lhs
	}
	return expression.And(lhs, rhs)
}

// Or joins two expanded filters; the empty filter is absorbed.
func Or(lhs, rhs expression.Node) expression.Node {
	if expression.IsEmptyFilter(lhs) {
		return rhs
	}
	if expression.IsEmptyFilter(rhs) {
		return lhs
	}
	return expression.Or(lhs, rhs)
}

// Expand folds the children of q with its connector and negates the result
// of a negated q. A q without children expands to the empty filter.
func (e *Expander) Expand(c model.Container, q *expression.QNode) (expression.Node, error) {
	join := And
	if q.Connector() == operators.OperatorOr {
		join = Or
	}

	var expanded expression.Node = expression.EmptyFilter()
	for _, child := range q.Args() {
		var n expression.Node
		var err error
		switch ch := child.(type) {
		case *expression.QNode:
			n, err = e.Expand(c, ch)
		case expression.Arg:
			n, err = e.ExpandChild(c, ch)
		default:
			err = errors.Errorf("unexpected filter child %T", child)
		}
		if err != nil {
			return nil, err
		}
		expanded = join(expanded, n)
	}

	if q.Negated() {
		expanded = expression.Not(expanded)
	}
	return expanded, nil
}

// ExpandChild turns one argument into a lookup. Leading segments naming
// fields form the field path, relations included; the remaining segments
// are transforms, the last one being the lookup. A last segment that is a
// transform rather than a lookup implies "exact".
func (e *Expander) ExpandChild(c model.Container, arg expression.Arg) (expression.Node, error) {
	parts := strings.Split(arg.Name, resolve.Sep)

	var path []string
	var field *model.Field
	cur := c
	pos := 0
	for ; pos < len(parts); pos++ {
		f, ok := cur.Field(parts[pos])
		if !ok {
			break
		}
		field = f
		path = append(path, f.Name)
		if !f.IsRelation() {
			continue
		}
		if f.Many {
			return e.expandMany(f, path, parts[pos+1:], arg)
		}
		cur = f.Related
	}

	if field == nil {
		return nil, errors.Wrapf(ErrFieldNotFound, "%q on %s", parts[0], c.Name())
	}

	var lhs expression.Node = expression.ExpressionWrapper(expression.F(strings.Join(path, ".")), field.DataType)
	dt := field.DataType
	var bilateral []Transform

	remainder := parts[pos:]
	if len(remainder) == 0 {
		remainder = []string{string(expression.KindExact)}
	}
	for _, name := range remainder[:len(remainder)-1] {
		t, ok := e.catalogue.Transform(name, dt)
		if !ok {
			return nil, errors.Wrapf(ErrUnsupportedTransform, "%q in %q for %s", name, arg.Name, dt)
		}
		lhs, dt = t.Build(lhs), t.Output
		if t.Bilateral {
			bilateral = append(bilateral, t)
		}
	}

	name := remainder[len(remainder)-1]
	lookup, ok := e.catalogue.Lookup(name, dt)
	if !ok {
		t, ok := e.catalogue.Transform(name, dt)
		if !ok {
			return nil, errors.Wrapf(ErrUnsupportedTransform, "%q in %q for %s", name, arg.Name, dt)
		}
		lhs = t.Build(lhs)
		if t.Bilateral {
			bilateral = append(bilateral, t)
		}
		lookup = LookupSpec{Name: expression.KindExact}
	}

	if isNull(arg.Value) && (lookup.Name == expression.KindExact || lookup.Name == expression.KindIExact) {
		return expression.IsNull(lhs, true), nil
	}

	rhs := prepare(arg.Value, lookup.Name, bilateral)
	e.logger.Debug("argument expanded",
		zap.String("argument", arg.Name),
		zap.String("lookup", string(lookup.Name)),
		zap.Strings("path", path),
	)
	return expression.Lookup(lookup.Name, lhs, rhs), nil
}

// expandMany quantifies the rest of the argument over the items of a to-many
// relation. Without a field of the related model to compare, the items are
// compared by primary key.
func (e *Expander) expandMany(f *model.Field, path, rest []string, arg expression.Arg) (expression.Node, error) {
	relation := strings.Join(path, ".")
	pk := model.PrimaryKeyAlias

	if len(rest) == 1 && rest[0] == string(expression.KindIsNull) {
		// isnull tests for related items at all, not for items without a key
		predicate, err := e.ExpandChild(f.Related, expression.Arg{Name: pk + resolve.Sep + rest[0], Value: false})
		if err != nil {
			return nil, err
		}
		quantified := expression.Any(relation, predicate)
		if wantNull, _ := arg.Value.(bool); wantNull {
			return expression.Not(quantified), nil
		}
		return quantified, nil
	}

	if len(rest) == 0 {
		rest = []string{pk}
	} else if _, ok := f.Related.Field(rest[0]); !ok {
		rest = append([]string{pk}, rest...)
	}
	predicate, err := e.ExpandChild(f.Related, expression.Arg{Name: strings.Join(rest, resolve.Sep), Value: arg.Value})
	if err != nil {
		return nil, err
	}
	return expression.Any(relation, predicate), nil
}

func isNull(v any) bool {
	if v == nil {
		return true
	}
	if n, ok := v.(*expression.ValueNode); ok {
		return n.Value() == nil
	}
	return false
}

// prepare builds the compared value, applying bilateral transforms. The
// items of "in" and "range" operands are transformed one by one.
func prepare(value any, lookup expression.Kind, bilateral []Transform) expression.Node {
	if len(bilateral) == 0 {
		return expression.Expr(value)
	}
	if lookup == expression.KindIn || lookup == expression.KindRange {
		if items, ok := sliceItems(value); ok {
			nodes := make([]any, len(items))
			for i, item := range items {
				nodes[i] = applyAll(expression.Expr(item), bilateral)
			}
			return expression.List(nodes...)
		}
	}
	return applyAll(expression.Expr(value), bilateral)
}

func applyAll(n expression.Node, transforms []Transform) expression.Node {
	for _, t := range transforms {
		n = t.Build(n)
	}
	return n
}

func sliceItems(v any) ([]any, bool) {
	if _, isNode := v.(expression.Node); isNode {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}
