package jsonapi

import (
	"errors"
	"fmt"
	"testing"

	"github.com/artpar/vizprops/core/errs"
)

func TestErrorBuilder(t *testing.T) {
	e := NewError(422, "validation_error", "Validation Failed").
		Detailf("%s must be in [0, 1]", "alpha").
		Pointer("/data/attributes/alpha").
		Parameter("check").
		Meta("value", 2).
		Build()

	if e.Status != "422" || e.StatusCode() != 422 {
		t.Errorf("Status = %s", e.Status)
	}
	if e.Detail != "alpha must be in [0, 1]" {
		t.Errorf("Detail = %s", e.Detail)
	}
	if e.Source == nil || e.Source.Pointer != "/data/attributes/alpha" || e.Source.Parameter != "check" {
		t.Errorf("Source = %+v", e.Source)
	}
	if e.Meta["value"] != 2 {
		t.Errorf("Meta = %v", e.Meta)
	}
}

func TestCommonErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     Error
		status  int
		code    string
		pointer string
	}{
		{"bad request", ErrBadRequest("x"), 400, "bad_request", ""},
		{"missing data", ErrMissingData("data is required"), 400, "bad_request", "/data"},
		{"not found", ErrNotFoundWithID("type", "Square"), 404, "not_found", ""},
		{"no route", ErrNoRoute("/nope"), 404, "not_found", ""},
		{"method", ErrMethodNotAllowed("DELETE"), 405, "method_not_allowed", ""},
		{"type conflict", ErrTypeConflict("Square", "Circle"), 409, "conflict", "/data/type"},
		{"media type", ErrUnsupportedMediaType("text/plain"), 415, "unsupported_media_type", ""},
		{"constraint", ErrConstraint("alpha", "type", "x"), 422, "validation_error", "/data/attributes/alpha"},
		{"internal", ErrInternal(""), 500, "internal_error", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.StatusCode() != tt.status {
				t.Errorf("status = %d, want %d", tt.err.StatusCode(), tt.status)
			}
			if tt.err.Code != tt.code {
				t.Errorf("code = %s, want %s", tt.err.Code, tt.code)
			}
			if tt.err.Title == "" || tt.err.Detail == "" {
				t.Errorf("title/detail empty: %+v", tt.err)
			}
			var pointer string
			if tt.err.Source != nil {
				pointer = tt.err.Source.Pointer
			}
			if pointer != tt.pointer {
				t.Errorf("pointer = %q, want %q", pointer, tt.pointer)
			}
		})
	}

	if got := ErrConstraint("alpha", "readonly", "x").Meta["constraint"]; got != "readonly" {
		t.Errorf("constraint meta = %v", got)
	}
	if got := ErrNotFoundWithID("enum", "Shape").Detail; got != `enum "Shape" is not registered` {
		t.Errorf("not found detail = %s", got)
	}
}

func TestErrFromError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		pointer string
	}{
		{"nil", nil, 500, "internal_error", ""},
		{"plain", errors.New("boom"), 500, "internal_error", ""},
		{"not found", errs.NotFound("type %q", "Square"), 404, "not_found", ""},
		{"conflict", errs.Conflict("Circle"), 409, "conflict", ""},
		{"definition", errs.Definition("bad"), 400, "invalid_definition", ""},
		{"mismatch", &errs.PropertyError{Type: "Circle", Property: "alpha", Value: 2, Err: errs.TypeMismatch("out of range")}, 422, "type_mismatch", "/data/attributes/alpha"},
		{"shape", fmt.Errorf("wrapped: %w", errs.Shape("x")), 422, "invalid_shape", ""},
		{"unknown", &errs.PropertyError{Type: "Circle", Property: "diameter", Err: errs.ErrUnknownProperty}, 422, "unknown_property", "/data/attributes/diameter"},
		{"readonly", &errs.PropertyError{Type: "Circle", Property: "revision", Err: errs.ErrReadonly}, 422, "readonly_property", "/data/attributes/revision"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := ErrFromError(tt.err)
			if e.StatusCode() != tt.status {
				t.Errorf("status = %d, want %d", e.StatusCode(), tt.status)
			}
			if e.Code != tt.code {
				t.Errorf("code = %s, want %s", e.Code, tt.code)
			}
			var pointer string
			if e.Source != nil {
				pointer = e.Source.Pointer
			}
			if pointer != tt.pointer {
				t.Errorf("pointer = %q, want %q", pointer, tt.pointer)
			}
		})
	}
}
