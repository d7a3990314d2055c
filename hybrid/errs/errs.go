// Package errs holds the error taxonomy shared by the hybrid packages.
// Package-specific sentinels wrap one of these, so callers may match on
// either the precise sentinel or the broad class with errors.Is.
package errs

import "errors"

var (
	// ErrRegistration is returned when a second evaluator is bound to a kind.
	ErrRegistration = errors.New("registration error")

	// ErrLookup is returned when a kind, a path segment or a key is missing.
	ErrLookup = errors.New("lookup error")

	// ErrUnsupportedTransform is returned when a filter segment is neither a
	// transform nor a lookup for the field it follows.
	ErrUnsupportedTransform = errors.New("unsupported transform")

	// ErrUnresolvedRelation is returned when computing the dependencies of a
	// property that reaches across a relation.
	ErrUnresolvedRelation = errors.New("unresolved relation")

	// ErrType is returned when an operation receives operands it cannot handle.
	ErrType = errors.New("type error")
)

// Class binds a precise sentinel to the broad error class it belongs to.
type Class struct {
	msg   string
	class error
}

// New creates a sentinel that matches class under errors.Is.
func New(class error, msg string) error {
	return &Class{msg: msg, class: class}
}

func (e *Class) Error() string {
	return e.msg
}

func (e *Class) Unwrap() error {
	return e.class
}
