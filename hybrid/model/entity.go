package model

import (
	"reflect"
	"sync"

	"github.com/pkg/errors"
)

// Entity is an object with an identity. Field references resolving to an
// entity yield its primary key instead of the object.
type Entity interface {
	PrimaryKey() any
}

var (
	entitiesMu sync.RWMutex
	entities   = make(map[reflect.Type]string)
)

// Register marks GORM model types as entities keyed by their primary field.
func Register(prototypes ...any) error {
	for _, p := range prototypes {
		t := reflect.TypeOf(p)
		for t != nil && t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		if t == nil {
			return errors.New("cannot register nil as an entity")
		}
		c, err := OfType(t)
		if err != nil {
			return err
		}
		pk, ok := c.(*schemaContainer).PrimaryKey()
		if !ok {
			return errors.Errorf("model %s has no primary key", c.Name())
		}
		entitiesMu.Lock()
		entities[t] = pk.Name
		entitiesMu.Unlock()
	}
	return nil
}

// Unregister forgets entity types added with Register.
func Unregister(prototypes ...any) {
	entitiesMu.Lock()
	defer entitiesMu.Unlock()
	for _, p := range prototypes {
		t := reflect.TypeOf(p)
		for t != nil && t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		delete(entities, t)
	}
}

// PrimaryKeyOf returns the identity of an entity. It reports false for
// values that are not entities and for nil pointers to them.
func PrimaryKeyOf(v any) (any, bool) {
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		if e, ok := rv.Interface().(Entity); ok {
			return e.PrimaryKey(), true
		}
		rv = rv.Elem()
	}
	if e, ok := rv.Interface().(Entity); ok {
		return e.PrimaryKey(), true
	}

	entitiesMu.RLock()
	name, ok := entities[rv.Type()]
	entitiesMu.RUnlock()
	if !ok {
		return nil, false
	}
	return rv.FieldByName(name).Interface(), true
}

// IsEntity reports whether v has an identity.
func IsEntity(v any) bool {
	_, ok := PrimaryKeyOf(v)
	return ok
}
