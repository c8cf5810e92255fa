package formatter

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/artpar/vizprops/core/model"
	"github.com/artpar/vizprops/core/schema"
)

// YAMLFormatter formats output as YAML.
type YAMLFormatter struct{}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

// Name returns the formatter name.
func (f *YAMLFormatter) Name() string {
	return "yaml"
}

// Description returns the formatter description.
func (f *YAMLFormatter) Description() string {
	return "YAML output format"
}

// FormatTypes formats a type listing as YAML.
func (f *YAMLFormatter) FormatTypes(w io.Writer, resp schema.TypeListResponse, opts FormatOptions) error {
	return f.encode(w, resp)
}

// FormatType formats a type description as YAML.
func (f *YAMLFormatter) FormatType(w io.Writer, ts schema.TypeSchema, opts FormatOptions) error {
	return f.encode(w, ts)
}

// FormatEnum formats an enumeration as YAML.
func (f *YAMLFormatter) FormatEnum(w io.Writer, es schema.EnumSchema, opts FormatOptions) error {
	return f.encode(w, es)
}

// FormatDocument formats a document as YAML.
func (f *YAMLFormatter) FormatDocument(w io.Writer, doc *model.Document, opts FormatOptions) error {
	if doc == nil {
		return f.encode(w, map[string]any{"objects": nil})
	}
	return f.encode(w, filterDocument(doc, opts.Columns))
}

// FormatError formats an error as YAML.
func (f *YAMLFormatter) FormatError(w io.Writer, err error) error {
	output := map[string]any{
		"error": err.Error(),
	}
	return f.encode(w, output)
}

// encode writes YAML to the writer.
func (f *YAMLFormatter) encode(w io.Writer, data any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()
	return encoder.Encode(data)
}

func init() {
	if err := Register(NewYAMLFormatter()); err != nil {
		fmt.Printf("failed to register yaml formatter: %v\n", err)
	}
}
