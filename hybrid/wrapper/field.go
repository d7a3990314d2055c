package wrapper

import (
	"reflect"
	"strings"

	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/expression"
	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/model"
	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/resolve"
)

func init() {
	Default.MustRegister(expression.KindF, newField)
	Default.MustRegister(expression.KindCol, newColumn)
}

type fieldEvaluator struct {
	base
	*expression.FieldNode
}

func newField(_ *Registry, node expression.Node) (Evaluator, error) {
	n, ok := node.(*expression.FieldNode)
	if !ok {
		return nil, unexpected(node, "*expression.FieldNode")
	}
	return &fieldEvaluator{FieldNode: n}, nil
}

func (e *fieldEvaluator) Expression() expression.Node {
	return e.FieldNode
}

func (e *fieldEvaluator) Evaluate(_ *Context, target any) (any, error) {
	return fetch(target, e.Name())
}

// ResolveExpression binds the reference to a computed property of the
// scope or, failing that, to a column of its model. References unknown to
// the scope stay as they are and are resolved on the target directly.
func (e *fieldEvaluator) ResolveExpression(scope *Scope) (Evaluator, error) {
	if p, ok := scope.property(e.Name()); ok {
		return p, nil
	}
	if scope.Model == nil {
		return e, nil
	}
	path, dt, ok := columnOf(scope.Model, e.Name())
	if !ok {
		return e, nil
	}
	return &columnEvaluator{ColumnNode: expression.Col(path, dt)}, nil
}

func columnOf(c model.Container, name string) (string, expression.DataType, bool) {
	segs := resolve.Segments(name)
	path := make([]string, 0, len(segs))
	var field *model.Field
	for i, seg := range segs {
		if c == nil {
			return "", "", false
		}
		f, ok := c.Field(seg)
		if !ok {
			return "", "", false
		}
		field = f
		path = append(path, f.Name)
		if i < len(segs)-1 {
			c = f.Related
		}
	}
	return strings.Join(path, "."), field.DataType, true
}

type columnEvaluator struct {
	base
	*expression.ColumnNode
}

func newColumn(_ *Registry, node expression.Node) (Evaluator, error) {
	n, ok := node.(*expression.ColumnNode)
	if !ok {
		return nil, unexpected(node, "*expression.ColumnNode")
	}
	return &columnEvaluator{ColumnNode: n}, nil
}

func (e *columnEvaluator) Expression() expression.Node {
	return e.ColumnNode
}

// Evaluate reads the column as its declared output type.
func (e *columnEvaluator) Evaluate(ctx *Context, target any) (any, error) {
	v, err := fetch(target, e.Path())
	if err != nil {
		return nil, err
	}
	return ctx.convert(e.Output(), v)
}

// fetch resolves path on target. Entities are replaced by their primary
// keys, inside collections as well.
func fetch(target any, path string) (any, error) {
	v, err := resolve.Resolve(target, path)
	if err != nil {
		return nil, err
	}
	if pk, ok := model.PrimaryKeyOf(v); ok {
		return pk, nil
	}
	v = deref(v)
	l, ok := items(v)
	if !ok {
		return v, nil
	}
	var keys []any
	for i, item := range l {
		pk, ok := model.PrimaryKeyOf(item)
		if !ok {
			if keys != nil {
				keys[i] = item
			}
			continue
		}
		if keys == nil {
			keys = make([]any, len(l))
			copy(keys, l[:i])
		}
		keys[i] = pk
	}
	if keys == nil {
		return v, nil
	}
	return keys, nil
}

// deref follows pointers to the value they point to; nil pointers are NULL.
func deref(v any) any {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Pointer {
		return v
	}
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	return rv.Interface()
}
