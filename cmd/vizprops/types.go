package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/artpar/vizprops/core/formatter"
	"github.com/artpar/vizprops/core/schema"
	"github.com/artpar/vizprops/core/schemaexport"
)

// outputOptions are the flags shared by commands that print through a
// formatter.
type outputOptions struct {
	format   string
	columns  []string
	noHeader bool
	compact  bool
	maxWidth int
}

func (o *outputOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.format, "format", "o", "table", "output format ("+strings.Join(formatter.List(), ", ")+")")
	cmd.Flags().StringSliceVar(&o.columns, "columns", nil, "restrict columns or attributes")
	cmd.Flags().BoolVar(&o.noHeader, "no-header", false, "omit table headers")
	cmd.Flags().BoolVar(&o.compact, "compact", false, "compact json output")
	cmd.Flags().IntVar(&o.maxWidth, "max-width", 0, "truncate long values (0 = no limit)")
}

func (o *outputOptions) formatter() (formatter.Formatter, formatter.FormatOptions, error) {
	f, ok := formatter.Get(o.format)
	if !ok {
		return nil, formatter.FormatOptions{}, fmt.Errorf("unknown format %q (available: %s)", o.format, strings.Join(formatter.List(), ", "))
	}
	return f, formatter.FormatOptions{
		Columns:  o.columns,
		NoHeader: o.noHeader,
		Compact:  o.compact,
		MaxWidth: o.maxWidth,
	}, nil
}

func newTypesCmd(opts *globalOptions) *cobra.Command {
	var (
		out     outputOptions
		bundles bool
	)

	cmd := &cobra.Command{
		Use:   "types",
		Short: "List declared types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, fo, err := out.formatter()
			if err != nil {
				return err
			}
			reg, err := opts.loadRegistry(cmd)
			if err != nil {
				return err
			}

			types := reg.List()
			if !bundles {
				kept := types[:0]
				for _, t := range types {
					if !t.IsBundle() {
						kept = append(kept, t)
					}
				}
				types = kept
			}
			return f.FormatTypes(cmd.OutOrStdout(), schema.ListTypes(types), fo)
		},
	}
	out.bind(cmd)
	cmd.Flags().BoolVar(&bundles, "bundles", true, "include property bundles")
	return cmd
}

func newDescribeCmd(opts *globalOptions) *cobra.Command {
	var (
		out        outputOptions
		jsonSchema bool
	)

	cmd := &cobra.Command{
		Use:   "describe <type>",
		Short: "Show the properties of a type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := opts.loadRegistry(cmd)
			if err != nil {
				return err
			}
			t, ok := reg.Get(args[0])
			if !ok {
				return fmt.Errorf("type %q not found", args[0])
			}

			if jsonSchema {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(schemaexport.Type(t))
			}

			f, fo, err := out.formatter()
			if err != nil {
				return err
			}
			return f.FormatType(cmd.OutOrStdout(), schema.DescribeType(t), fo)
		},
	}
	out.bind(cmd)
	cmd.Flags().BoolVar(&jsonSchema, "jsonschema", false, "print the JSON Schema of the type's attributes")
	return cmd
}

func newEnumsCmd(opts *globalOptions) *cobra.Command {
	var out outputOptions

	cmd := &cobra.Command{
		Use:   "enums [name]",
		Short: "List enumerations or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := opts.loadRegistry(cmd)
			if err != nil {
				return err
			}
			catalog := reg.Enums()

			if len(args) == 1 {
				e, ok := catalog.Lookup(args[0])
				if !ok {
					return fmt.Errorf("enumeration %q not found", args[0])
				}
				f, fo, err := out.formatter()
				if err != nil {
					return err
				}
				return f.FormatEnum(cmd.OutOrStdout(), schema.DescribeEnum(args[0], e), fo)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			if !out.noHeader {
				fmt.Fprintln(w, "NAME\tDEFAULT\tVALUES")
			}
			for _, name := range catalog.Names() {
				e, _ := catalog.Lookup(name)
				fmt.Fprintf(w, "%s\t%s\t%d\n", name, e.Default(), e.Len())
			}
			return w.Flush()
		},
	}
	out.bind(cmd)
	return cmd
}
