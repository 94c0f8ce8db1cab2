package scene

import (
	"errors"
	"fmt"
)

// ValidationError rejects a malformed shape, patch or setting. The store is
// left unchanged.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NotFoundError reports a reference to a shape, plan or wall that no longer
// exists. Callers treat it as a no-op.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

// ErrDuplicateID is wrapped by the ValidationError AddShape returns for an id
// already in the store.
var ErrDuplicateID = errors.New("duplicate shape id")

// IsNotFound reports whether err carries a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func notFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}
