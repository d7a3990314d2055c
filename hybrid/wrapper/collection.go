package wrapper

import (
	"reflect"

	"go.mongodb.org/mongo-driver/bson"
)

var bsonD = reflect.TypeOf(bson.D{})

// items lists the elements of slices and arrays. Byte slices and BSON
// documents are single values rather than collections.
func items(v any) ([]any, bool) {
	if l, ok := v.([]any); ok {
		return l, true
	}
	rv := reflect.ValueOf(v)
	if !isCollectionValue(rv) {
		return nil, false
	}
	l := make([]any, rv.Len())
	for i := range l {
		l[i] = rv.Index(i).Interface()
	}
	return l, true
}

func isCollection(v any) bool {
	return isCollectionValue(reflect.ValueOf(v))
}

func isCollectionValue(rv reflect.Value) bool {
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return false
	}
	return rv.Type().Elem().Kind() != reflect.Uint8 && rv.Type() != bsonD
}

// isNil reports nil and nil pointers, maps and slices.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
