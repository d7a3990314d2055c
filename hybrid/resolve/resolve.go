// Package resolve reads dotted field paths out of in-memory targets: structs
// and other attribute-bearing values, string-keyed mappings including BSON
// documents, and collections of either.
package resolve

import (
	"reflect"
	"strings"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/model"
)

// Sep separates the segments of a relation path in the filter syntax.
const Sep = "__"

// Getter is implemented by targets that resolve keys themselves. A missing
// key is reported with an error wrapping ErrKeyNotFound.
type Getter interface {
	Get(key string) (any, error)
}

// Resolver reads paths out of one target.
type Resolver interface {
	Resolve(path string) (any, error)
}

// Segments splits a path on "." and on the filter separator "__".
func Segments(path string) []string {
	return strings.Split(strings.ReplaceAll(path, Sep, "."), ".")
}

// Resolve reads path out of target.
func Resolve(target any, path string) (any, error) {
	return For(target).Resolve(path)
}

// For selects the strategy for target once, based on its shape.
func For(target any) Resolver {
	if _, ok := target.(Getter); ok {
		return &AttributeResolver{doc: target}
	}
	if isMapping(indirect(reflect.ValueOf(target))) {
		return &MappingResolver{doc: target}
	}
	return &AttributeResolver{doc: target}
}

// MappingResolver walks nested mappings by key.
type MappingResolver struct {
	doc any
}

func (r *MappingResolver) Resolve(path string) (any, error) {
	cur := r.doc
	for _, seg := range Segments(path) {
		v := indirect(reflect.ValueOf(cur))
		if !v.IsValid() {
			return nil, notFound(ErrKeyNotFound, path, seg, cur)
		}
		next, found, mapping := lookupKey(v, seg)
		if !mapping || !found {
			return nil, notFound(ErrKeyNotFound, path, seg, cur)
		}
		cur = next
	}
	return cur, nil
}

// AttributeResolver walks struct fields, zero-argument methods, Getter keys
// and mapping keys. A collection met before the last segment resolves the
// rest of the path on each item and yields the flattened results.
type AttributeResolver struct {
	doc any
}

// fanned marks results collected over the items of a collection.
type fanned []any

func (r *AttributeResolver) Resolve(path string) (any, error) {
	result, err := r.walk(path, r.doc, Segments(path))
	if err != nil {
		return nil, err
	}
	if f, ok := result.(fanned); ok {
		return []any(f), nil
	}
	return result, nil
}

func (r *AttributeResolver) walk(path string, cur any, segs []string) (any, error) {
	for i, seg := range segs {
		if g, ok := cur.(Getter); ok {
			next, err := g.Get(seg)
			if err != nil {
				return nil, errors.Wrapf(err, "resolving %q", path)
			}
			cur = next
			continue
		}

		v := indirect(reflect.ValueOf(cur))
		if !v.IsValid() {
			// A missing relation reads as NULL, as in an outer join.
			return nil, nil
		}
		if isCollection(v) {
			return r.fanOut(path, v, segs[i:])
		}

		next, err := attribute(path, cur, v, seg)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

func (r *AttributeResolver) fanOut(path string, v reflect.Value, segs []string) (any, error) {
	out := make(fanned, 0, v.Len())
	for j := 0; j < v.Len(); j++ {
		item, err := r.walk(path, v.Index(j).Interface(), segs)
		if err != nil {
			return nil, err
		}
		if nested, ok := item.(fanned); ok {
			out = append(out, nested...)
		} else {
			out = append(out, item)
		}
	}
	return out, nil
}

func attribute(path string, cur any, v reflect.Value, seg string) (any, error) {
	if next, found, mapping := lookupKey(v, seg); mapping {
		if !found {
			return nil, notFound(ErrKeyNotFound, path, seg, cur)
		}
		return next, nil
	}

	if v.Kind() == reflect.Struct {
		info := infoOf(v.Type())
		if index, ok := info.fields[seg]; ok {
			f, err := v.FieldByIndexErr(index)
			if err != nil {
				// nil embedded pointer
				return nil, nil
			}
			return f.Interface(), nil
		}
		if name, ok := info.methods[seg]; ok {
			return call(v, name)
		}
	}

	if seg == model.PrimaryKeyAlias {
		if pk, ok := model.PrimaryKeyOf(cur); ok {
			return pk, nil
		}
	}

	if v.Kind() != reflect.Struct {
		if m := addressable(v).Addr().MethodByName(seg); m.IsValid() && isGetter(m.Type(), 0) {
			return call(v, seg)
		}
	}

	return nil, notFound(ErrAttributeNotFound, path, seg, cur)
}

func call(v reflect.Value, name string) (any, error) {
	out := addressable(v).Addr().MethodByName(name).Call(nil)
	if len(out) == 2 && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	return out[0].Interface(), nil
}

func addressable(v reflect.Value) reflect.Value {
	if v.CanAddr() {
		return v
	}
	p := reflect.New(v.Type())
	p.Elem().Set(v)
	return p.Elem()
}

var bsonD = reflect.TypeOf(bson.D{})

func isMapping(v reflect.Value) bool {
	if !v.IsValid() {
		return false
	}
	if v.Type() == bsonD {
		return true
	}
	return v.Kind() == reflect.Map && v.Type().Key().Kind() == reflect.String
}

// lookupKey reads key out of a mapping. The last result is false when v
// is not a mapping at all.
func lookupKey(v reflect.Value, key string) (value any, found, mapping bool) {
	if !isMapping(v) {
		return nil, false, false
	}
	if v.Type() == bsonD {
		for _, e := range v.Interface().(bson.D) {
			if e.Key == key {
				return e.Value, true, true
			}
		}
		return nil, false, true
	}
	item := v.MapIndex(reflect.ValueOf(key).Convert(v.Type().Key()))
	if !item.IsValid() {
		return nil, false, true
	}
	return item.Interface(), true, true
}

func isCollection(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		// byte strings and fixed-size identifiers such as UUIDs are scalars
		return v.Type().Elem().Kind() != reflect.Uint8 && v.Type() != bsonD
	}
	return false
}

// indirect follows pointers and interfaces. The result is invalid for nil.
func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}
