package jsonapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/artpar/vizprops/core/errs"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Invalid JSON: %v\n%s", err, w.Body.String())
	}
	return body
}

func TestWriteResource(t *testing.T) {
	w := httptest.NewRecorder()
	WriteResource(w, http.StatusOK, Resource{Type: "types", ID: "Circle"})

	if w.Header().Get("Content-Type") != ContentType {
		t.Errorf("Content-Type = %v, want %v", w.Header().Get("Content-Type"), ContentType)
	}
	if w.Code != http.StatusOK {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
	}
	data := decode(t, w)["data"].(map[string]any)
	if data["id"] != "Circle" {
		t.Errorf("data.id = %v, want Circle", data["id"])
	}
}

func TestWriteCollection(t *testing.T) {
	t.Run("without pagination", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteCollection(w, http.StatusOK, []Resource{{Type: "enums", ID: "LineJoin"}, {Type: "enums", ID: "LineCap"}}, nil)

		body := decode(t, w)
		if data := body["data"].([]any); len(data) != 2 {
			t.Errorf("len(data) = %d, want 2", len(data))
		}
		if _, ok := body["links"]; ok {
			t.Error("links present without pagination")
		}
	})

	t.Run("with pagination", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteCollection(w, http.StatusOK, []Resource{{Type: "types", ID: "Arc"}}, NewPagination(3, 1, 1, "/types"))

		body := decode(t, w)
		meta := body["meta"].(map[string]any)
		if meta["total"] != float64(3) {
			t.Errorf("meta.total = %v, want 3", meta["total"])
		}
		if _, ok := body["links"].(map[string]any)["next"]; !ok {
			t.Error("links.next missing")
		}
	})
}

func TestWriteError(t *testing.T) {
	t.Run("status from first error", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, ErrConstraint("alpha", "type", "x"), ErrBadRequest("y"))

		if w.Code != http.StatusUnprocessableEntity {
			t.Errorf("Status = %d, want 422", w.Code)
		}
		if errs := decode(t, w)["errors"].([]any); len(errs) != 2 {
			t.Errorf("len(errors) = %d, want 2", len(errs))
		}
	})

	t.Run("no errors is internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w)
		if w.Code != http.StatusInternalServerError {
			t.Errorf("Status = %d, want 500", w.Code)
		}
	})

	t.Run("unparseable status is internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, Error{Code: "odd", Title: "Odd"})
		if w.Code != http.StatusInternalServerError {
			t.Errorf("Status = %d, want 500", w.Code)
		}
	})
}

func TestWriteHelpers(t *testing.T) {
	tests := []struct {
		name   string
		write  func(w http.ResponseWriter)
		status int
	}{
		{"bad request", func(w http.ResponseWriter) { WriteError(w, ErrBadRequest("x")) }, 400},
		{"type conflict", func(w http.ResponseWriter) { WriteError(w, ErrTypeConflict("Square", "Circle")) }, 409},
		{"from go", func(w http.ResponseWriter) { WriteErrorFromGo(w, errs.NotFound("enum %q", "X")) }, 404},
		{"meta", func(w http.ResponseWriter) { WriteMeta(w, http.StatusOK, Meta{"valid": true}) }, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w)
			if w.Code != tt.status {
				t.Errorf("Status = %d, want %d", w.Code, tt.status)
			}
			if w.Header().Get("Content-Type") != ContentType {
				t.Errorf("Content-Type = %s", w.Header().Get("Content-Type"))
			}
		})
	}
}
