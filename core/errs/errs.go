// Package errs defines the error taxonomy shared by the property framework.
//
// Every error returned by the framework wraps one of the sentinel errors
// below, so callers branch with errors.Is:
//
//	if errors.Is(err, errs.ErrTypeMismatch) {
//		// reject user input, keep the previous value
//	}
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrDefinition reports a malformed declaration: a bad enumeration, an
	// ambiguous diamond collision, an Override with no inherited property or
	// a malformed Include bundle. It is raised while a type is defined.
	ErrDefinition = errors.New("definition error")

	// ErrTypeMismatch reports a value rejected by a property validator.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrShape reports a spec dictionary with neither or both of "value"
	// and "field", or with keys a spec does not understand.
	ErrShape = errors.New("shape error")

	// ErrUnknownProperty reports access to a name the type does not declare.
	ErrUnknownProperty = errors.New("unknown property")

	// ErrReadonly reports an ordinary assignment to a readonly property.
	ErrReadonly = errors.New("readonly property")

	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// Enrich wraps err with a formatted message.
func Enrich(err error, msg string, args ...any) error {
	s := msg
	if len(args) > 0 {
		s = fmt.Sprintf(msg, args...)
	}
	return fmt.Errorf("%w: %s", err, s)
}

func Definition(msg string, args ...any) error {
	return Enrich(ErrDefinition, msg, args...)
}

func TypeMismatch(msg string, args ...any) error {
	return Enrich(ErrTypeMismatch, msg, args...)
}

func Shape(msg string, args ...any) error {
	return Enrich(ErrShape, msg, args...)
}

func NotFound(msg string, args ...any) error {
	return Enrich(ErrNotFound, msg, args...)
}

func Conflict(msg string, args ...any) error {
	return Enrich(ErrConflict, msg, args...)
}

// PropertyError carries the context of a rejected assignment.
type PropertyError struct {
	Type     string
	Property string
	Value    any
	Err      error
}

func (e *PropertyError) Error() string {
	return fmt.Sprintf("%s.%s: %v", e.Type, e.Property, e.Err)
}

func (e *PropertyError) Unwrap() error {
	return e.Err
}

// Kind returns the sentinel wrapped by err, or nil when err is not part of
// the taxonomy.
func Kind(err error) error {
	for _, k := range []error{ErrDefinition, ErrTypeMismatch, ErrShape, ErrUnknownProperty, ErrReadonly, ErrNotFound, ErrConflict} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
