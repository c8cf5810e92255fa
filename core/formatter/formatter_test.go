package formatter

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/artpar/vizprops/core/model"
	"github.com/artpar/vizprops/core/schema"
)

// Helper function to create a test type description
func createTestTypeSchema() schema.TypeSchema {
	return schema.TypeSchema{
		Type:        "Circle",
		Doc:         "A circle glyph.",
		Bases:       []string{"Glyph"},
		Fingerprint: "0123456789abcdef0123",
		Properties: []schema.PropertySchema{
			{Name: "visible", Type: "Bool", Default: false, Serialized: true, DeclaredBy: "Circle"},
			{Name: "radius", Type: "DistanceSpec", Default: map[string]any{"value": 1.0}, Serialized: true, Units: "radius_units", DeclaredBy: "Circle"},
			{Name: "radius_units", Type: "Enum(SpatialUnits)", Default: "data", DeclaredBy: "Circle"},
			{Name: "border_line_color", Type: "ColorSpec", Default: map[string]any{"value": "black"}, Serialized: true, DeclaredBy: "Circle", GraftedFrom: "LineProps", Help: "The border line color."},
			{Name: "tags", Type: "Seq(String)", Computed: true, Serialized: true, DeclaredBy: "Glyph"},
		},
		Includes:  []schema.IncludeSchema{{Bundle: "LineProps", Prefix: "border_"}},
		Overrides: []string{"visible"},
	}
}

// Helper function to create a test type listing
func createTestTypeList() schema.TypeListResponse {
	return schema.TypeListResponse{
		Types: []schema.TypeSummary{
			{Name: "LineProps", Bundle: true, Properties: 2, Fingerprint: "aaaaaaaaaaaaaaaaaaaa"},
			{Name: "Circle", Bases: []string{"Glyph"}, Properties: 9, Fingerprint: "bbbbbbbbbbbbbbbbbbbb"},
		},
		Count: 2,
	}
}

// Helper function to create a test document
func createTestDocument() *model.Document {
	return &model.Document{
		Roots: []string{"p1"},
		Objects: []model.ObjectRep{
			{Type: "Plot", ID: "p1", Attributes: map[string]any{"title": "demo", "renderers": []any{map[string]any{"id": "c1"}}}},
			{Type: "Circle", ID: "c1", Attributes: map[string]any{"radius": map[string]any{"value": 2.5}, "visible": true}},
		},
	}
}

// ===========================================
// Registry Tests
// ===========================================

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry returned nil")
	}
	if r.formatters == nil {
		t.Fatal("formatters map should be initialized")
	}
	if r.defaultFmt != "table" {
		t.Errorf("default format should be 'table', got %q", r.defaultFmt)
	}
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	// Register a formatter
	f := NewTableFormatter()
	err := r.Register(f)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	// Try to register the same formatter again
	err = r.Register(f)
	if err == nil {
		t.Fatal("expected error when registering duplicate formatter")
	}
	if !strings.Contains(err.Error(), "already registered") {
		t.Errorf("error message should mention 'already registered', got: %v", err)
	}
}

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry()
	f := NewTableFormatter()
	_ = r.Register(f)

	// Get existing formatter
	got, ok := r.Get("table")
	if !ok {
		t.Fatal("expected to find 'table' formatter")
	}
	if got.Name() != "table" {
		t.Errorf("expected name 'table', got %q", got.Name())
	}

	// Get non-existing formatter
	_, ok = r.Get("nonexistent")
	if ok {
		t.Fatal("expected not to find 'nonexistent' formatter")
	}
}

func TestRegistry_Default(t *testing.T) {
	r := NewRegistry()

	// Empty registry returns nil
	d := r.Default()
	if d != nil {
		t.Fatal("expected nil default for empty registry")
	}

	// Register table formatter
	tableF := NewTableFormatter()
	_ = r.Register(tableF)

	// Default should return table formatter
	d = r.Default()
	if d == nil {
		t.Fatal("expected non-nil default")
	}
	if d.Name() != "table" {
		t.Errorf("expected default 'table', got %q", d.Name())
	}

	// Register json formatter and set as default
	jsonF := NewJSONFormatter()
	_ = r.Register(jsonF)
	_ = r.SetDefault("json")

	d = r.Default()
	if d.Name() != "json" {
		t.Errorf("expected default 'json', got %q", d.Name())
	}
}

func TestRegistry_Default_Fallback(t *testing.T) {
	r := NewRegistry()

	// Register only JSON formatter
	jsonF := NewJSONFormatter()
	_ = r.Register(jsonF)

	// Default is "table" but not registered, should fallback to first available
	d := r.Default()
	if d == nil {
		t.Fatal("expected fallback default formatter")
	}
	// Should get json since it's the only one
	if d.Name() != "json" {
		t.Errorf("expected fallback to 'json', got %q", d.Name())
	}
}

func TestRegistry_SetDefault(t *testing.T) {
	r := NewRegistry()
	f := NewTableFormatter()
	_ = r.Register(f)

	// Set valid default
	err := r.SetDefault("table")
	if err != nil {
		t.Fatalf("SetDefault failed: %v", err)
	}

	// Set invalid default
	err = r.SetDefault("nonexistent")
	if err == nil {
		t.Fatal("expected error when setting nonexistent default")
	}
	if !strings.Contains(err.Error(), "not registered") {
		t.Errorf("error message should mention 'not registered', got: %v", err)
	}
}

func TestRegistry_List(t *testing.T) {
	r := NewRegistry()

	// Empty registry
	names := r.List()
	if len(names) != 0 {
		t.Fatalf("expected empty list, got %v", names)
	}

	// Register formatters
	_ = r.Register(NewTableFormatter())
	_ = r.Register(NewJSONFormatter())
	_ = r.Register(NewYAMLFormatter())

	names = r.List()
	if len(names) != 3 {
		t.Fatalf("expected 3 formatters, got %d", len(names))
	}

	// Check all are present
	nameMap := make(map[string]bool)
	for _, n := range names {
		nameMap[n] = true
	}
	for _, expected := range []string{"table", "json", "yaml"} {
		if !nameMap[expected] {
			t.Errorf("expected %q in list", expected)
		}
	}
}

// ===========================================
// Global Functions Tests
// ===========================================

func TestGlobalFunctions(t *testing.T) {
	// Save and restore the default registry
	originalRegistry := DefaultRegistry
	defer func() { DefaultRegistry = originalRegistry }()

	DefaultRegistry = NewRegistry()

	// Test Register
	f := NewTableFormatter()
	err := Register(f)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	// Test Get
	got, ok := Get("table")
	if !ok {
		t.Fatal("expected to find 'table' formatter")
	}
	if got.Name() != "table" {
		t.Errorf("expected 'table', got %q", got.Name())
	}

	// Test Default
	d := Default()
	if d == nil {
		t.Fatal("expected non-nil default")
	}

	// Test List
	names := List()
	if len(names) != 1 || names[0] != "table" {
		t.Errorf("expected ['table'], got %v", names)
	}
}

// ===========================================
// TableFormatter Tests
// ===========================================

func TestTableFormatter_Name(t *testing.T) {
	f := NewTableFormatter()
	if f.Name() != "table" {
		t.Errorf("expected 'table', got %q", f.Name())
	}
	if f.Description() == "" {
		t.Error("description should not be empty")
	}
}

func TestTableFormatter_FormatTypes(t *testing.T) {
	f := NewTableFormatter()
	var buf bytes.Buffer

	if err := f.FormatTypes(&buf, createTestTypeList(), FormatOptions{}); err != nil {
		t.Fatalf("FormatTypes failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got %d lines:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "NAME") || !strings.Contains(lines[0], "FINGERPRINT") {
		t.Errorf("unexpected header %q", lines[0])
	}
	if !strings.Contains(lines[1], "bundle") || !strings.Contains(lines[2], "Glyph") {
		t.Errorf("unexpected rows:\n%s", buf.String())
	}
	if strings.Contains(buf.String(), "bbbbbbbbbbbbb") {
		t.Error("fingerprints should be shortened to 12 characters")
	}
}

func TestTableFormatter_FormatTypes_Empty(t *testing.T) {
	f := NewTableFormatter()
	var buf bytes.Buffer

	if err := f.FormatTypes(&buf, schema.TypeListResponse{}, FormatOptions{}); err != nil {
		t.Fatalf("FormatTypes failed: %v", err)
	}
	if !strings.Contains(buf.String(), "No types found.") {
		t.Errorf("expected 'No types found.', got %q", buf.String())
	}
}

func TestTableFormatter_FormatTypes_NoHeader(t *testing.T) {
	f := NewTableFormatter()
	var buf bytes.Buffer

	if err := f.FormatTypes(&buf, createTestTypeList(), FormatOptions{NoHeader: true}); err != nil {
		t.Fatalf("FormatTypes failed: %v", err)
	}
	if strings.Contains(buf.String(), "NAME") {
		t.Errorf("header should be omitted, got:\n%s", buf.String())
	}
}

func TestTableFormatter_FormatType(t *testing.T) {
	f := NewTableFormatter()
	var buf bytes.Buffer

	if err := f.FormatType(&buf, createTestTypeSchema(), FormatOptions{}); err != nil {
		t.Fatalf("FormatType failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"Type:", "Circle",
		"Bases:", "Glyph",
		`LineProps (prefix "border_")`,
		"Overrides:", "visible",
		"NAME", "TYPE", "DEFAULT", "DECLARED_BY",
		"DistanceSpec",
		`{"value":1}`,
		"<computed>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output should contain %q, got:\n%s", want, out)
		}
	}
	if strings.Contains(out, "GRAFTED_FROM") {
		t.Error("grafted_from is not a default column")
	}
}

func TestTableFormatter_FormatType_WithColumns(t *testing.T) {
	f := NewTableFormatter()
	var buf bytes.Buffer

	opts := FormatOptions{Columns: []string{"name", "grafted_from", "bogus"}}
	if err := f.FormatType(&buf, createTestTypeSchema(), opts); err != nil {
		t.Fatalf("FormatType failed: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "GRAFTED_FROM") || strings.Contains(out, "BOGUS") {
		t.Errorf("unexpected columns:\n%s", out)
	}
	if strings.Contains(out, "DECLARED_BY") {
		t.Error("requested columns replace the defaults")
	}
}

func TestTableFormatter_FormatEnum(t *testing.T) {
	f := NewTableFormatter()
	var buf bytes.Buffer

	es := schema.EnumSchema{Name: "SpatialUnits", Values: []string{"screen", "data"}, Default: "screen", CaseSensitive: true}
	if err := f.FormatEnum(&buf, es, FormatOptions{}); err != nil {
		t.Fatalf("FormatEnum failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Name:", "SpatialUnits", "screen, data", "Case Sensitive:", "yes"} {
		if !strings.Contains(out, want) {
			t.Errorf("output should contain %q, got:\n%s", want, out)
		}
	}
}

func TestTableFormatter_FormatDocument(t *testing.T) {
	f := NewTableFormatter()
	var buf bytes.Buffer

	if err := f.FormatDocument(&buf, createTestDocument(), FormatOptions{}); err != nil {
		t.Fatalf("FormatDocument failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Plot p1", "Circle c1", "title:", "demo", `{"value":2.5}`} {
		if !strings.Contains(out, want) {
			t.Errorf("output should contain %q, got:\n%s", want, out)
		}
	}
	if strings.Index(out, "renderers:") > strings.Index(out, "title:") {
		t.Error("attributes should be listed in name order")
	}
}

func TestTableFormatter_FormatDocument_Empty(t *testing.T) {
	f := NewTableFormatter()
	var buf bytes.Buffer

	if err := f.FormatDocument(&buf, nil, FormatOptions{}); err != nil {
		t.Fatalf("FormatDocument failed: %v", err)
	}
	if !strings.Contains(buf.String(), "No objects.") {
		t.Errorf("expected 'No objects.', got %q", buf.String())
	}
}

func TestTableFormatter_FormatError(t *testing.T) {
	f := NewTableFormatter()
	var buf bytes.Buffer

	if err := f.FormatError(&buf, errors.New("test error message")); err != nil {
		t.Fatalf("FormatError failed: %v", err)
	}
	if buf.String() != "Error: test error message\n" {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestTableFormatter_FormatValue(t *testing.T) {
	f := NewTableFormatter()

	tests := []struct {
		name     string
		val      any
		maxWidth int
		want     string
	}{
		{"nil", nil, 0, "-"},
		{"string", "hello", 0, "hello"},
		{"true", true, 0, "yes"},
		{"false", false, 0, "no"},
		{"whole float", 42.0, 0, "42"},
		{"fraction", 0.25, 0, "0.25"},
		{"string list", []string{"a", "b"}, 0, "a,b"},
		{"empty string list", []string{}, 0, "-"},
		{"map", map[string]any{"field": "x"}, 0, `{"field":"x"}`},
		{"truncated", "hello world", 8, "hello..."},
		{"width too small to truncate", "hello", 2, "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.formatValue(tt.val, tt.maxWidth); got != tt.want {
				t.Errorf("formatValue(%v, %d) = %q, want %q", tt.val, tt.maxWidth, got, tt.want)
			}
		})
	}
}

func TestTableFormatter_FormatLabel(t *testing.T) {
	f := NewTableFormatter()

	tests := []struct {
		input    string
		expected string
	}{
		{"name", "Name"},
		{"case_sensitive", "Case Sensitive"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := f.formatLabel(tt.input); got != tt.expected {
			t.Errorf("formatLabel(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

// ===========================================
// JSONFormatter Tests
// ===========================================

func TestJSONFormatter_Name(t *testing.T) {
	f := NewJSONFormatter()
	if f.Name() != "json" {
		t.Errorf("expected 'json', got %q", f.Name())
	}
}

func TestJSONFormatter_FormatTypes(t *testing.T) {
	f := NewJSONFormatter()
	var buf bytes.Buffer

	if err := f.FormatTypes(&buf, createTestTypeList(), FormatOptions{}); err != nil {
		t.Fatalf("FormatTypes failed: %v", err)
	}

	var result map[string]any
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	if result["count"] != float64(2) {
		t.Errorf("expected count 2, got %v", result["count"])
	}
	types := result["types"].([]any)
	if types[0].(map[string]any)["bundle"] != true {
		t.Errorf("expected LineProps to be marked as a bundle, got %v", types[0])
	}
}

func TestJSONFormatter_FormatTypes_EmptyIsArray(t *testing.T) {
	f := NewJSONFormatter()
	var buf bytes.Buffer

	if err := f.FormatTypes(&buf, schema.TypeListResponse{}, FormatOptions{Compact: true}); err != nil {
		t.Fatalf("FormatTypes failed: %v", err)
	}
	if strings.TrimSpace(buf.String()) != `{"types":[],"count":0}` {
		t.Errorf("unexpected output %s", buf.String())
	}
}

func TestJSONFormatter_FormatType(t *testing.T) {
	f := NewJSONFormatter()
	var buf bytes.Buffer

	if err := f.FormatType(&buf, createTestTypeSchema(), FormatOptions{}); err != nil {
		t.Fatalf("FormatType failed: %v", err)
	}
	if !strings.Contains(buf.String(), "\n  ") {
		t.Error("non-compact output should be indented")
	}

	var result schema.TypeSchema
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	if result.Type != "Circle" || len(result.Properties) != 5 {
		t.Errorf("unexpected round trip %+v", result)
	}
	if result.Properties[3].GraftedFrom != "LineProps" {
		t.Errorf("grafted_from lost: %+v", result.Properties[3])
	}
}

func TestJSONFormatter_FormatDocument_WithColumns(t *testing.T) {
	f := NewJSONFormatter()
	var buf bytes.Buffer

	if err := f.FormatDocument(&buf, createTestDocument(), FormatOptions{Columns: []string{"title"}, Compact: true}); err != nil {
		t.Fatalf("FormatDocument failed: %v", err)
	}

	var result model.Document
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	if len(result.Objects) != 2 {
		t.Fatalf("expected 2 objects, got %d", len(result.Objects))
	}
	if len(result.Objects[0].Attributes) != 1 || result.Objects[0].Attributes["title"] != "demo" {
		t.Errorf("unexpected attributes %v", result.Objects[0].Attributes)
	}
	if len(result.Objects[1].Attributes) != 0 {
		t.Errorf("circle has no title, got %v", result.Objects[1].Attributes)
	}
}

func TestJSONFormatter_FormatDocument_DoesNotModifyInput(t *testing.T) {
	f := NewJSONFormatter()
	doc := createTestDocument()

	var buf bytes.Buffer
	_ = f.FormatDocument(&buf, doc, FormatOptions{Columns: []string{"title"}})

	if len(doc.Objects[1].Attributes) != 2 {
		t.Error("filtering must not change the caller's document")
	}
}

func TestJSONFormatter_FormatError(t *testing.T) {
	f := NewJSONFormatter()
	var buf bytes.Buffer

	if err := f.FormatError(&buf, errors.New("boom")); err != nil {
		t.Fatalf("FormatError failed: %v", err)
	}

	var result map[string]any
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	if result["error"] != "boom" {
		t.Errorf("expected error 'boom', got %v", result["error"])
	}
}

// ===========================================
// YAMLFormatter Tests
// ===========================================

func TestYAMLFormatter_Name(t *testing.T) {
	f := NewYAMLFormatter()
	if f.Name() != "yaml" {
		t.Errorf("expected 'yaml', got %q", f.Name())
	}
}

func TestYAMLFormatter_FormatType(t *testing.T) {
	f := NewYAMLFormatter()
	var buf bytes.Buffer

	if err := f.FormatType(&buf, createTestTypeSchema(), FormatOptions{}); err != nil {
		t.Fatalf("FormatType failed: %v", err)
	}

	var result map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse YAML: %v", err)
	}
	if result["type"] != "Circle" {
		t.Errorf("expected type 'Circle', got %v", result["type"])
	}
	props := result["properties"].([]any)
	units := props[2].(map[string]any)
	if units["serialized"] != false || units["default"] != "data" {
		t.Errorf("unexpected radius_units entry %v", units)
	}
}

func TestYAMLFormatter_FormatEnum(t *testing.T) {
	f := NewYAMLFormatter()
	var buf bytes.Buffer

	es := schema.EnumSchema{Name: "Anchor", Values: []string{"top", "bottom"}, Default: "top"}
	if err := f.FormatEnum(&buf, es, FormatOptions{}); err != nil {
		t.Fatalf("FormatEnum failed: %v", err)
	}
	if !strings.Contains(buf.String(), "- top") || !strings.Contains(buf.String(), "case_sensitive: false") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}

func TestYAMLFormatter_FormatDocument(t *testing.T) {
	f := NewYAMLFormatter()
	var buf bytes.Buffer

	if err := f.FormatDocument(&buf, createTestDocument(), FormatOptions{}); err != nil {
		t.Fatalf("FormatDocument failed: %v", err)
	}

	var result model.Document
	if err := yaml.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse YAML: %v", err)
	}
	if len(result.Roots) != 1 || result.Objects[1].ID != "c1" {
		t.Errorf("unexpected document %+v", result)
	}
}

func TestYAMLFormatter_FormatError(t *testing.T) {
	f := NewYAMLFormatter()
	var buf bytes.Buffer

	if err := f.FormatError(&buf, errors.New("boom")); err != nil {
		t.Fatalf("FormatError failed: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "error: boom" {
		t.Errorf("unexpected output %q", buf.String())
	}
}

// ===========================================
// Built-in Registration Tests
// ===========================================

func TestBuiltinFormatters(t *testing.T) {
	names := List()
	if strings.Join(names, ",") != "json,table,yaml" {
		t.Errorf("expected built-in formatters json,table,yaml, got %v", names)
	}
	if d := Default(); d == nil || d.Name() != "table" {
		t.Errorf("expected table as default, got %v", d)
	}
}
