package formatter

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/artpar/vizprops/core/model"
	"github.com/artpar/vizprops/core/schema"
)

// Property columns available in a type table.
var propertyColumns = map[string]func(schema.PropertySchema) any{
	"name":         func(p schema.PropertySchema) any { return p.Name },
	"type":         func(p schema.PropertySchema) any { return p.Type },
	"default":      defaultCell,
	"declared_by":  func(p schema.PropertySchema) any { return p.DeclaredBy },
	"grafted_from": func(p schema.PropertySchema) any { return emptyAsNil(p.GraftedFrom) },
	"units":        func(p schema.PropertySchema) any { return emptyAsNil(p.Units) },
	"serialized":   func(p schema.PropertySchema) any { return p.Serialized },
	"readonly":     func(p schema.PropertySchema) any { return p.Readonly },
	"help":         func(p schema.PropertySchema) any { return emptyAsNil(p.Help) },
}

var defaultPropertyColumns = []string{"name", "type", "default", "declared_by"}

// TableFormatter formats output as aligned text tables.
type TableFormatter struct{}

// NewTableFormatter creates a new table formatter.
func NewTableFormatter() *TableFormatter {
	return &TableFormatter{}
}

// Name returns the formatter name.
func (f *TableFormatter) Name() string {
	return "table"
}

// Description returns the formatter description.
func (f *TableFormatter) Description() string {
	return "Aligned text table output"
}

// FormatTypes formats a type listing as a table.
func (f *TableFormatter) FormatTypes(w io.Writer, resp schema.TypeListResponse, opts FormatOptions) error {
	if len(resp.Types) == 0 {
		fmt.Fprintln(w, "No types found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if !opts.NoHeader {
		fmt.Fprintln(tw, "NAME\tKIND\tBASES\tPROPERTIES\tFINGERPRINT")
	}
	for _, ts := range resp.Types {
		kind := "type"
		if ts.Bundle {
			kind = "bundle"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			ts.Name, kind, f.formatValue(ts.Bases, opts.MaxWidth), ts.Properties, shortFingerprint(ts.Fingerprint))
	}
	return tw.Flush()
}

// FormatType formats a type as a key-value header followed by its
// property table.
func (f *TableFormatter) FormatType(w io.Writer, ts schema.TypeSchema, opts FormatOptions) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Type:\t%s\n", ts.Type)
	if ts.Doc != "" {
		fmt.Fprintf(tw, "Doc:\t%s\n", ts.Doc)
	}
	if ts.Bundle {
		fmt.Fprintf(tw, "Bundle:\t%s\n", f.formatValue(true, 0))
	}
	if len(ts.Bases) > 0 {
		fmt.Fprintf(tw, "Bases:\t%s\n", strings.Join(ts.Bases, ", "))
	}
	for _, inc := range ts.Includes {
		fmt.Fprintf(tw, "Includes:\t%s (prefix %q)\n", inc.Bundle, inc.Prefix)
	}
	if len(ts.Overrides) > 0 {
		fmt.Fprintf(tw, "Overrides:\t%s\n", strings.Join(ts.Overrides, ", "))
	}
	fmt.Fprintf(tw, "Fingerprint:\t%s\n", ts.Fingerprint)
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(w)

	columns := f.resolveColumns(opts.Columns)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if !opts.NoHeader {
		headers := make([]string, len(columns))
		for i, col := range columns {
			headers[i] = strings.ToUpper(col)
		}
		fmt.Fprintln(tw, strings.Join(headers, "\t"))
	}
	for _, p := range ts.Properties {
		values := make([]string, len(columns))
		for i, col := range columns {
			values[i] = f.formatValue(propertyColumns[col](p), opts.MaxWidth)
		}
		fmt.Fprintln(tw, strings.Join(values, "\t"))
	}
	return tw.Flush()
}

// FormatEnum formats an enumeration as key-value pairs.
func (f *TableFormatter) FormatEnum(w io.Writer, es schema.EnumSchema, opts FormatOptions) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s:\t%s\n", f.formatLabel("name"), es.Name)
	fmt.Fprintf(tw, "%s:\t%s\n", f.formatLabel("values"), strings.Join(es.Values, ", "))
	fmt.Fprintf(tw, "%s:\t%s\n", f.formatLabel("default"), es.Default)
	fmt.Fprintf(tw, "%s:\t%s\n", f.formatLabel("case_sensitive"), f.formatValue(es.CaseSensitive, 0))
	return tw.Flush()
}

// FormatDocument formats each object as a block of attributes.
func (f *TableFormatter) FormatDocument(w io.Writer, doc *model.Document, opts FormatOptions) error {
	if doc == nil || len(doc.Objects) == 0 {
		fmt.Fprintln(w, "No objects.")
		return nil
	}
	doc = filterDocument(doc, opts.Columns)

	for i, rep := range doc.Objects {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s %s\n", rep.Type, rep.ID)

		names := make([]string, 0, len(rep.Attributes))
		for name := range rep.Attributes {
			names = append(names, name)
		}
		sort.Strings(names)

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, name := range names {
			fmt.Fprintf(tw, "  %s:\t%s\n", name, f.formatValue(rep.Attributes[name], opts.MaxWidth))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// FormatError formats an error message.
func (f *TableFormatter) FormatError(w io.Writer, err error) error {
	fmt.Fprintf(w, "Error: %s\n", err.Error())
	return nil
}

// resolveColumns keeps the known requested columns, or the defaults.
func (f *TableFormatter) resolveColumns(requested []string) []string {
	var columns []string
	for _, col := range requested {
		if _, ok := propertyColumns[col]; ok {
			columns = append(columns, col)
		}
	}
	if len(columns) == 0 {
		return defaultPropertyColumns
	}
	return columns
}

// formatLabel formats a field name as a label.
func (f *TableFormatter) formatLabel(name string) string {
	// Convert snake_case to Title Case
	words := strings.Split(name, "_")
	for i, word := range words {
		if len(word) > 0 {
			words[i] = strings.ToUpper(word[:1]) + word[1:]
		}
	}
	return strings.Join(words, " ")
}

// formatValue formats a value for display.
func (f *TableFormatter) formatValue(val any, maxWidth int) string {
	if val == nil {
		return "-"
	}

	var str string
	switch v := val.(type) {
	case string:
		str = v
	case bool:
		if v {
			str = "yes"
		} else {
			str = "no"
		}
	case []string:
		if len(v) == 0 {
			return "-"
		}
		str = strings.Join(v, ",")
	case float64:
		// Check if it's a whole number
		if v == float64(int64(v)) {
			str = fmt.Sprintf("%d", int64(v))
		} else {
			str = fmt.Sprintf("%g", v)
		}
	default:
		b, _ := json.Marshal(v)
		str = string(b)
	}

	// Truncate if needed
	if maxWidth > 3 && len(str) > maxWidth {
		str = str[:maxWidth-3] + "..."
	}

	return str
}

func defaultCell(p schema.PropertySchema) any {
	if p.Computed {
		return "<computed>"
	}
	return p.Default
}

func emptyAsNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}

func init() {
	Register(NewTableFormatter())
}
