package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/artpar/vizprops/bootstrap"
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the introspection API server",
		Long: `Start the HTTP server exposing the registered types, their JSON Schemas
and validation and encoding endpoints.

Configuration comes from --config, or from VIZPROPS_* environment
variables when the file does not exist. --definitions overrides the
configured definition directories.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(opts.definitions) > 0 {
				os.Setenv("VIZPROPS_DEFINITIONS", strings.Join(opts.definitions, ","))
			}
			app, err := bootstrap.New(bootstrap.Config{
				ConfigPath: opts.cfgFile,
				Version:    version,
			})
			if err != nil {
				return err
			}
			return app.Run()
		},
	}
}
