// Package model describes the fields of the entities filters are expanded
// against: their names, data types and relations.
package model

import (
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/expression"
)

// PrimaryKeyAlias names the primary key of any entity in a path.
const PrimaryKeyAlias = "pk"

// Field is a concrete field or a relation of an entity.
type Field struct {
	// Name is the segment the path resolver reads the field with.
	Name     string
	DataType expression.DataType
	// Related is the container of the related entity of a relation.
	Related Container
	// Many is set for relations yielding a collection.
	Many bool
}

// IsRelation reports whether the field leads to another entity.
func (f *Field) IsRelation() bool {
	return f.Related != nil
}

// Container is the field catalogue of an entity type.
type Container interface {
	Name() string
	// Field finds a field or relation by any of its names, or by the
	// primary key alias.
	Field(name string) (*Field, bool)
	PrimaryKey() (*Field, bool)
}

var (
	timeType     = reflect.TypeOf(time.Time{})
	durationType = reflect.TypeOf(time.Duration(0))
	decimalType  = reflect.TypeOf(decimal.Decimal{})
	uuidType     = reflect.TypeOf(uuid.UUID{})
	bytesType    = reflect.TypeOf([]byte(nil))
)

// DataTypeOf maps a Go type onto the data type of values it holds.
func DataTypeOf(t reflect.Type) expression.DataType {
	if t == nil {
		return expression.TypeUnknown
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t {
	case timeType:
		return expression.TypeDateTime
	case durationType:
		return expression.TypeDuration
	case decimalType:
		return expression.TypeDecimal
	case uuidType:
		return expression.TypeUUID
	case bytesType:
		return expression.TypeBinary
	}
	switch t.Kind() {
	case reflect.Bool:
		return expression.TypeBoolean
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return expression.TypeInteger
	case reflect.Float32, reflect.Float64:
		return expression.TypeFloat
	case reflect.String:
		return expression.TypeText
	}
	return expression.TypeUnknown
}

// described is a hand-declared container.
type described struct {
	name   string
	pk     string
	fields map[string]*Field
}

// Describe declares a container from its fields. An empty pk declares an
// entity without a primary key.
func Describe(name string, pk string, fields ...*Field) Container {
	c := &described{name: name, pk: pk, fields: make(map[string]*Field, len(fields))}
	for _, f := range fields {
		c.fields[f.Name] = f
	}
	return c
}

func (c *described) Name() string {
	return c.name
}

func (c *described) Field(name string) (*Field, bool) {
	if name == PrimaryKeyAlias {
		if _, ok := c.fields[name]; !ok {
			return c.PrimaryKey()
		}
	}
	f, ok := c.fields[name]
	return f, ok
}

func (c *described) PrimaryKey() (*Field, bool) {
	f, ok := c.fields[c.pk]
	return f, ok
}
