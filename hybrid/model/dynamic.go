package model

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/expression"
)

// Modeled is implemented by targets declaring their own container.
type Modeled interface {
	Model() Container
}

// For returns the container describing target: its declared container,
// the GORM model of a struct, or a container inferred from a mapping.
func For(target any) (Container, error) {
	if m, ok := target.(Modeled); ok {
		return m.Model(), nil
	}
	v := reflect.ValueOf(target)
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return nil, errors.Errorf("no model for nil %T", target)
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return nil, errors.New("no model for nil target")
	}
	if fields, ok := mappingFields(v); ok {
		return inferred("", fields), nil
	}
	if v.Kind() == reflect.Struct {
		return OfType(v.Type())
	}
	return nil, errors.Errorf("no model for %T", target)
}

// Infer builds a container from the keys and values of a mapping. Nested
// mappings become relations, as do slices of mappings.
func Infer(mapping any) (Container, error) {
	fields, ok := mappingFields(reflect.ValueOf(mapping))
	if !ok {
		return nil, errors.Errorf("%T is not a string-keyed mapping", mapping)
	}
	return inferred("", fields), nil
}

func mappingFields(v reflect.Value) (map[string]any, bool) {
	if !v.IsValid() {
		return nil, false
	}
	if d, ok := v.Interface().(bson.D); ok {
		fields := make(map[string]any, len(d))
		for _, e := range d {
			fields[e.Key] = e.Value
		}
		return fields, true
	}
	if v.Kind() != reflect.Map || v.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	fields := make(map[string]any, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		fields[iter.Key().String()] = iter.Value().Interface()
	}
	return fields, true
}

// shapes holds inferred containers by shape, so mappings with the same keys
// and value types share one container and the expansions cached for it.
var shapes = mustShapes(256)

func mustShapes(size int) *lru.Cache[string, Container] {
	c, err := lru.New[string, Container](size)
	if err != nil {
		panic(err)
	}
	return c
}

func inferred(name string, values map[string]any) Container {
	c, _ := inferShape(name, values)
	return c
}

func inferShape(name string, values map[string]any) (Container, string) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]*Field, 0, len(keys))
	var sig strings.Builder
	sig.WriteString(name)
	sig.WriteByte('{')
	pk := ""
	for _, k := range keys {
		if k == "id" {
			pk = k
		}
		f, related := inferField(qualify(name, k), k, values[k])
		fields = append(fields, f)
		fmt.Fprintf(&sig, "%q:%v:%t%s;", k, f.DataType, f.Many, related)
	}
	sig.WriteByte('}')

	key := sig.String()
	if c, ok := shapes.Get(key); ok {
		return c, key
	}
	c := Describe(name, pk, fields...)
	shapes.Add(key, c)
	return c, key
}

func inferField(qualified, key string, value any) (*Field, string) {
	v := reflect.ValueOf(value)
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) && !v.IsNil() {
		v = v.Elem()
	}
	if nested, ok := mappingFields(v); ok {
		related, sig := inferShape(qualified, nested)
		return &Field{Name: key, DataType: expression.TypeRelation, Related: related}, sig
	}
	if v.IsValid() && (v.Kind() == reflect.Slice || v.Kind() == reflect.Array) && v.Type().Elem().Kind() != reflect.Uint8 {
		if v.Len() > 0 {
			if nested, ok := mappingFields(reflect.ValueOf(v.Index(0).Interface())); ok {
				related, sig := inferShape(qualified, nested)
				return &Field{Name: key, DataType: expression.TypeRelation, Related: related, Many: true}, sig
			}
		}
		return &Field{Name: key, DataType: expression.TypeUnknown}, ""
	}
	if !v.IsValid() {
		return &Field{Name: key, DataType: expression.TypeUnknown}, ""
	}
	return &Field{Name: key, DataType: DataTypeOf(v.Type())}, ""
}

func qualify(name, key string) string {
	if name == "" {
		return key
	}
	return fmt.Sprintf("%s.%s", name, key)
}
