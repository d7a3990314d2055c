package expression

// DataType is the declared output type of an expression or a model field.
// The zero value means the type is unknown and values pass through as is.
type DataType string

const (
	TypeUnknown  DataType = ""
	TypeInteger  DataType = "integer"
	TypeFloat    DataType = "float"
	TypeDecimal  DataType = "decimal"
	TypeText     DataType = "text"
	TypeBoolean  DataType = "boolean"
	TypeDate     DataType = "date"
	TypeDateTime DataType = "datetime"
	TypeTime     DataType = "time"
	TypeDuration DataType = "duration"
	TypeUUID     DataType = "uuid"
	TypeBinary   DataType = "binary"
	TypeRelation DataType = "relation"
)

func (t DataType) String() string {
	if t == TypeUnknown {
		return "unknown"
	}
	return string(t)
}

// IsTemporal reports whether parts may be extracted from values of the type.
func (t DataType) IsTemporal() bool {
	return t == TypeDate || t == TypeDateTime || t == TypeTime
}
