package model

import (
	"reflect"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm/schema"

	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/expression"
	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/logging"
)

var (
	namer       = schema.NamingStrategy{}
	schemaCache = &sync.Map{}

	containersMu sync.Mutex
	containers   = make(map[*schema.Schema]*schemaContainer)
)

// Of returns the container of a GORM model type. v is a value, a pointer
// or a slice of the model.
func Of(v any) (Container, error) {
	s, err := schema.Parse(v, schemaCache, namer)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing model %T", v)
	}
	return containerOf(s), nil
}

// OfType is Of for a reflected struct type.
func OfType(t reflect.Type) (Container, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, errors.Errorf("model type %s is not a struct", t)
	}
	return Of(reflect.New(t).Interface())
}

func containerOf(s *schema.Schema) *schemaContainer {
	containersMu.Lock()
	defer containersMu.Unlock()
	if c, ok := containers[s]; ok {
		return c
	}
	c := newSchemaContainer(s)
	containers[s] = c
	logging.Named("model").Debug("model parsed",
		zap.String("model", s.Name),
		zap.Int("fields", len(c.aliases)),
	)
	return c
}

// schemaContainer exposes a parsed GORM schema. Related containers are
// built on first use since relations may be cyclic.
type schemaContainer struct {
	schema  *schema.Schema
	aliases map[string]string
	mu      sync.Mutex
	fields  map[string]*Field
}

func newSchemaContainer(s *schema.Schema) *schemaContainer {
	c := &schemaContainer{
		schema:  s,
		aliases: make(map[string]string),
		fields:  make(map[string]*Field),
	}
	for name := range s.Relationships.Relations {
		c.alias(name, name)
	}
	for _, f := range s.Fields {
		if f.Name == "" {
			continue
		}
		c.alias(f.Name, f.Name)
		if f.DBName != "" {
			c.alias(f.DBName, f.Name)
		}
	}
	return c
}

func (c *schemaContainer) alias(alias, name string) {
	for _, a := range []string{alias, namer.ColumnName("", alias), strings.ToLower(alias)} {
		if _, taken := c.aliases[a]; !taken || a == name {
			c.aliases[a] = name
		}
	}
}

func (c *schemaContainer) Name() string {
	return c.schema.Name
}

func (c *schemaContainer) PrimaryKey() (*Field, bool) {
	pk := c.schema.PrioritizedPrimaryField
	if pk == nil {
		return nil, false
	}
	return c.Field(pk.Name)
}

func (c *schemaContainer) Field(name string) (*Field, bool) {
	canonical, ok := c.aliases[name]
	if !ok {
		if name == PrimaryKeyAlias {
			return c.PrimaryKey()
		}
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if f, ok := c.fields[canonical]; ok {
		return f, true
	}
	f := c.build(canonical)
	c.fields[canonical] = f
	return f, true
}

func (c *schemaContainer) build(name string) *Field {
	if rel, ok := c.schema.Relationships.Relations[name]; ok {
		return &Field{
			Name:     name,
			DataType: expression.TypeRelation,
			Related:  containerOf(rel.FieldSchema),
			Many:     rel.Type == schema.HasMany || rel.Type == schema.Many2Many,
		}
	}
	f := c.schema.FieldsByName[name]
	return &Field{
		Name:     name,
		DataType: fieldDataType(f),
	}
}

// fieldDataType prefers the column type declared in the gorm tag.
func fieldDataType(f *schema.Field) expression.DataType {
	declared := strings.ToLower(f.TagSettings["TYPE"])
	switch {
	case declared == "date":
		return expression.TypeDate
	case declared == "time" || strings.HasPrefix(declared, "time "):
		return expression.TypeTime
	case strings.HasPrefix(declared, "timestamp") || declared == "datetime":
		return expression.TypeDateTime
	case strings.HasPrefix(declared, "numeric") || strings.HasPrefix(declared, "decimal"):
		return expression.TypeDecimal
	case declared == "uuid":
		return expression.TypeUUID
	case declared == "interval":
		return expression.TypeDuration
	}
	return DataTypeOf(f.FieldType)
}
