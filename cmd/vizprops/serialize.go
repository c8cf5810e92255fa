package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/artpar/vizprops/core/events"
	"github.com/artpar/vizprops/core/model"
	"github.com/artpar/vizprops/core/schema"
	"github.com/artpar/vizprops/core/schemaexport"
)

func newSerializeCmd(opts *globalOptions) *cobra.Command {
	var (
		out      outputOptions
		defaults bool
		trace    bool
		check    bool
	)

	cmd := &cobra.Command{
		Use:   "serialize <objects.yaml>",
		Short: "Build objects from a file and print their wire document",
		Long: `Create the objects declared in an objects file, assign their properties
and print the wire document for the roots and everything they reference.

  vizprops serialize plot.yaml -d ./definitions -o json
  vizprops serialize plot.yaml --defaults --check`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, fo, err := out.formatter()
			if err != nil {
				return err
			}
			reg, err := opts.loadRegistry(cmd)
			if err != nil {
				return err
			}

			var objOpts []model.ObjectOption
			if trace {
				bus := events.NewBus(opts.logger(cmd))
				bus.Subscribe("*", func(_ context.Context, e events.Event) error {
					_, err := fmt.Fprintf(cmd.ErrOrStderr(), "%s %s[%v] = %v\n", e.Action, e.Name, e.Data["id"], e.Data["new"])
					return err
				})
				objOpts = append(objOpts, model.WithPublisher(bus))
			}

			set, err := schema.LoadObjectsFile(args[0], reg, objOpts...)
			if err != nil {
				return err
			}

			doc := model.Serializer{IncludeDefaults: defaults}.Serialize(set.Roots...)
			if check {
				if err := schemaexport.CheckDocument(reg.List(), doc); err != nil {
					return fmt.Errorf("document does not match schema: %w", err)
				}
			}
			return f.FormatDocument(cmd.OutOrStdout(), doc, fo)
		},
	}
	out.bind(cmd)
	cmd.Flags().BoolVar(&defaults, "defaults", false, "emit every serialized property, not only assigned ones")
	cmd.Flags().BoolVar(&trace, "trace", false, "print property assignments to stderr")
	cmd.Flags().BoolVar(&check, "check", false, "validate the document against the JSON Schema of the types")
	return cmd
}
