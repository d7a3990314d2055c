package resolve

import (
	"fmt"

	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/errs"
)

var (
	ErrAttributeNotFound = errs.New(errs.ErrLookup, "attribute not found")
	ErrKeyNotFound       = errs.New(errs.ErrLookup, "key not found")
)

// NotFoundError reports the segment of a path that could not be resolved.
type NotFoundError struct {
	Path    string
	Segment string
	// Owner is the type of the value the segment was looked up on.
	Owner string
	cause error
}

func notFound(cause error, path, segment string, owner any) *NotFoundError {
	return &NotFoundError{
		Path:    path,
		Segment: segment,
		Owner:   fmt.Sprintf("%T", owner),
		cause:   cause,
	}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %q on %s resolving %q", e.cause, e.Segment, e.Owner, e.Path)
}

func (e *NotFoundError) Unwrap() error {
	return e.cause
}
