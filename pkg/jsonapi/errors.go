package jsonapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/artpar/vizprops/core/errs"
)

// ErrorBuilder assembles an Error.
type ErrorBuilder struct {
	err Error
}

// NewError starts an error with the given HTTP status, machine-readable code
// and title.
func NewError(status int, code, title string) *ErrorBuilder {
	return &ErrorBuilder{err: Error{
		Status: strconv.Itoa(status),
		Code:   code,
		Title:  title,
	}}
}

func (b *ErrorBuilder) Detail(detail string) *ErrorBuilder {
	b.err.Detail = detail
	return b
}

func (b *ErrorBuilder) Detailf(format string, args ...any) *ErrorBuilder {
	b.err.Detail = fmt.Sprintf(format, args...)
	return b
}

// Pointer sets the JSON Pointer to the offending member of the request body.
func (b *ErrorBuilder) Pointer(pointer string) *ErrorBuilder {
	if b.err.Source == nil {
		b.err.Source = &ErrorSource{}
	}
	b.err.Source.Pointer = pointer
	return b
}

// Parameter names the offending query parameter.
func (b *ErrorBuilder) Parameter(param string) *ErrorBuilder {
	if b.err.Source == nil {
		b.err.Source = &ErrorSource{}
	}
	b.err.Source.Parameter = param
	return b
}

func (b *ErrorBuilder) Meta(key string, value any) *ErrorBuilder {
	if b.err.Meta == nil {
		b.err.Meta = make(Meta)
	}
	b.err.Meta[key] = value
	return b
}

func (b *ErrorBuilder) Build() Error {
	return b.err
}

// StatusCode returns the HTTP status, or 0 when Status is not a number.
func (e Error) StatusCode() int {
	code, _ := strconv.Atoi(e.Status)
	return code
}

// AttributePointer is the JSON Pointer of a property inside a resource body.
func AttributePointer(property string) string {
	return "/data/attributes/" + property
}

func ErrBadRequest(detail string) Error {
	return NewError(http.StatusBadRequest, "bad_request", "Bad Request").Detail(detail).Build()
}

// ErrMissingData reports a request body without a usable data member.
func ErrMissingData(detail string) Error {
	return NewError(http.StatusBadRequest, "bad_request", "Bad Request").
		Detail(detail).
		Pointer("/data").
		Build()
}

// ErrNotFoundWithID reports an unknown type or enumeration.
func ErrNotFoundWithID(resourceType, id string) Error {
	return NewError(http.StatusNotFound, "not_found", "Not Found").
		Detailf("%s %q is not registered", resourceType, id).
		Build()
}

// ErrNoRoute reports a path nothing is served at.
func ErrNoRoute(path string) Error {
	return NewError(http.StatusNotFound, "not_found", "Not Found").
		Detailf("no route for %s", path).
		Build()
}

func ErrMethodNotAllowed(method string) Error {
	return NewError(http.StatusMethodNotAllowed, "method_not_allowed", "Method Not Allowed").
		Detailf("%s is not allowed on this resource", method).
		Build()
}

// ErrTypeConflict reports a body whose data.type names another type than
// the endpoint.
func ErrTypeConflict(got, want string) Error {
	return NewError(http.StatusConflict, "conflict", "Conflict").
		Detailf("resource type %q does not match endpoint type %q", got, want).
		Pointer("/data/type").
		Build()
}

func ErrUnsupportedMediaType(contentType string) Error {
	return NewError(http.StatusUnsupportedMediaType, "unsupported_media_type", "Unsupported Media Type").
		Detailf("content type %q is not supported", contentType).
		Build()
}

// ErrConstraint reports one rejected property. constraint is the name of
// the check that failed, e.g. "type", "readonly" or "unknown".
func ErrConstraint(property, constraint, detail string) Error {
	return NewError(http.StatusUnprocessableEntity, "validation_error", "Validation Failed").
		Detail(detail).
		Pointer(AttributePointer(property)).
		Meta("constraint", constraint).
		Build()
}

func ErrInternal(detail string) Error {
	if detail == "" {
		detail = "an internal error occurred"
	}
	return NewError(http.StatusInternalServerError, "internal_error", "Internal Server Error").Detail(detail).Build()
}

// ErrFromError maps a Go error onto an error object by its errs class.
// Property errors point at the offending attribute. Errors outside the
// taxonomy are internal.
func ErrFromError(err error) Error {
	if err == nil {
		return ErrInternal("")
	}

	var b *ErrorBuilder
	switch errs.Kind(err) {
	case errs.ErrNotFound:
		b = NewError(http.StatusNotFound, "not_found", "Not Found")
	case errs.ErrConflict:
		b = NewError(http.StatusConflict, "conflict", "Conflict")
	case errs.ErrDefinition:
		b = NewError(http.StatusBadRequest, "invalid_definition", "Invalid Definition")
	case errs.ErrTypeMismatch:
		b = NewError(http.StatusUnprocessableEntity, "type_mismatch", "Type Mismatch")
	case errs.ErrShape:
		b = NewError(http.StatusUnprocessableEntity, "invalid_shape", "Invalid Shape")
	case errs.ErrUnknownProperty:
		b = NewError(http.StatusUnprocessableEntity, "unknown_property", "Unknown Property")
	case errs.ErrReadonly:
		b = NewError(http.StatusUnprocessableEntity, "readonly_property", "Readonly Property")
	default:
		return ErrInternal(err.Error())
	}

	b.Detail(err.Error())
	var pe *errs.PropertyError
	if errors.As(err, &pe) && pe.Property != "" {
		b.Pointer(AttributePointer(pe.Property))
	}
	return b.Build()
}
