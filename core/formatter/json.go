package formatter

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/artpar/vizprops/core/model"
	"github.com/artpar/vizprops/core/schema"
)

// JSONFormatter formats output as JSON.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Name returns the formatter name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// Description returns the formatter description.
func (f *JSONFormatter) Description() string {
	return "JSON output format"
}

// FormatTypes formats a type listing as JSON.
func (f *JSONFormatter) FormatTypes(w io.Writer, resp schema.TypeListResponse, opts FormatOptions) error {
	if resp.Types == nil {
		resp.Types = []schema.TypeSummary{}
	}
	return f.encode(w, resp, opts.Compact)
}

// FormatType formats a type description as JSON.
func (f *JSONFormatter) FormatType(w io.Writer, ts schema.TypeSchema, opts FormatOptions) error {
	return f.encode(w, ts, opts.Compact)
}

// FormatEnum formats an enumeration as JSON.
func (f *JSONFormatter) FormatEnum(w io.Writer, es schema.EnumSchema, opts FormatOptions) error {
	return f.encode(w, es, opts.Compact)
}

// FormatDocument formats a document as JSON.
func (f *JSONFormatter) FormatDocument(w io.Writer, doc *model.Document, opts FormatOptions) error {
	if doc == nil {
		return f.encode(w, map[string]any{"objects": nil}, opts.Compact)
	}
	return f.encode(w, filterDocument(doc, opts.Columns), opts.Compact)
}

// FormatError formats an error as JSON.
func (f *JSONFormatter) FormatError(w io.Writer, err error) error {
	output := map[string]any{
		"error": err.Error(),
	}
	return f.encode(w, output, false)
}

// encode writes JSON to the writer.
func (f *JSONFormatter) encode(w io.Writer, data any, compact bool) error {
	encoder := json.NewEncoder(w)
	if !compact {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

func init() {
	if err := Register(NewJSONFormatter()); err != nil {
		fmt.Printf("failed to register json formatter: %v\n", err)
	}
}
