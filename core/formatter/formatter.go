// Package formatter provides a pluggable output formatting system.
// Formatters render type descriptions and documents as table, json or yaml.
package formatter

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/artpar/vizprops/core/model"
	"github.com/artpar/vizprops/core/schema"
)

// Formatter renders type descriptions and serialized documents in one
// output format.
type Formatter interface {
	// Name returns the formatter name (e.g., "table", "json", "yaml").
	Name() string

	// Description returns a human-readable description.
	Description() string

	// FormatTypes formats a type listing.
	FormatTypes(w io.Writer, resp schema.TypeListResponse, opts FormatOptions) error

	// FormatType formats the full description of one type.
	FormatType(w io.Writer, ts schema.TypeSchema, opts FormatOptions) error

	// FormatEnum formats an enumeration.
	FormatEnum(w io.Writer, es schema.EnumSchema, opts FormatOptions) error

	// FormatDocument formats a serialized object graph.
	FormatDocument(w io.Writer, doc *model.Document, opts FormatOptions) error

	// FormatError formats an error.
	FormatError(w io.Writer, err error) error
}

// FormatOptions configures formatting behavior.
type FormatOptions struct {
	// Columns restricts property columns in type tables and attribute
	// names in documents (nil = all).
	Columns []string

	// NoHeader disables header row for tabular formats.
	NoHeader bool

	// Compact minimizes whitespace (for json).
	Compact bool

	// MaxWidth truncates long values (0 = no limit).
	MaxWidth int
}

// Registry manages registered formatters.
type Registry struct {
	mu         sync.RWMutex
	formatters map[string]Formatter
	defaultFmt string
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		formatters: make(map[string]Formatter),
		defaultFmt: "table",
	}
}

// Register adds a formatter to the registry.
func (r *Registry) Register(f Formatter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.formatters[f.Name()]; exists {
		return fmt.Errorf("formatter %q already registered", f.Name())
	}

	r.formatters[f.Name()] = f
	return nil
}

// Get returns a formatter by name.
func (r *Registry) Get(name string) (Formatter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.formatters[name]
	return f, ok
}

// Default returns the default formatter.
func (r *Registry) Default() Formatter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.formatters[r.defaultFmt]
	if !ok {
		// Fallback to first available
		for _, f := range r.formatters {
			return f
		}
		return nil
	}
	return f
}

// SetDefault sets the default formatter.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.formatters[name]; !exists {
		return fmt.Errorf("formatter %q not registered", name)
	}

	r.defaultFmt = name
	return nil
}

// List returns all registered formatter names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.formatters))
	for name := range r.formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter to the default registry.
func Register(f Formatter) error {
	return DefaultRegistry.Register(f)
}

// Get returns a formatter from the default registry.
func Get(name string) (Formatter, bool) {
	return DefaultRegistry.Get(name)
}

// Default returns the default formatter from the default registry.
func Default() Formatter {
	return DefaultRegistry.Default()
}

// List returns all formatter names from the default registry.
func List() []string {
	return DefaultRegistry.List()
}

// filterAttributes keeps only the requested attribute names.
func filterAttributes(attrs map[string]any, columns []string) map[string]any {
	if len(columns) == 0 {
		return attrs
	}
	result := make(map[string]any)
	for _, col := range columns {
		if val, ok := attrs[col]; ok {
			result[col] = val
		}
	}
	return result
}

// filterDocument applies opts.Columns to every object in doc.
func filterDocument(doc *model.Document, columns []string) *model.Document {
	if doc == nil || len(columns) == 0 {
		return doc
	}
	out := &model.Document{Roots: doc.Roots, Objects: make([]model.ObjectRep, len(doc.Objects))}
	for i, rep := range doc.Objects {
		rep.Attributes = filterAttributes(rep.Attributes, columns)
		out.Objects[i] = rep
	}
	return out
}
