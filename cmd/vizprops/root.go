package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/artpar/vizprops/config"
	"github.com/artpar/vizprops/core/registry"
	"github.com/artpar/vizprops/core/schema"
	"github.com/artpar/vizprops/internal/logging"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	cfgFile     string
	definitions []string
	logLevel    string
}

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "vizprops",
		Short: "Typed property schemas for visualization object models",
		Long: `vizprops loads declarative type definitions for visualization objects,
validates property values against them, and serializes object graphs
to the wire format consumed by a rendering runtime.

Quick start:
  vizprops validate ./definitions       # Check definition files
  vizprops types -d ./definitions       # List the declared types
  vizprops describe Circle -d ./defs    # Show one type's properties
  vizprops serve                        # Start the introspection API`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&opts.cfgFile, "config", "c", "vizprops.yaml", "config file path")
	root.PersistentFlags().StringSliceVarP(&opts.definitions, "definitions", "d", nil, "definition directories (overrides config)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level for CLI commands")

	root.AddCommand(
		newValidateCmd(opts),
		newTypesCmd(opts),
		newDescribeCmd(opts),
		newEnumsCmd(opts),
		newSerializeCmd(opts),
		newServeCmd(opts),
		newVersionCmd(),
	)
	return root
}

// Execute runs the root command.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (o *globalOptions) logger(cmd *cobra.Command) zerolog.Logger {
	return logging.New(o.logLevel, logging.FormatConsole, cmd.ErrOrStderr())
}

// definitionDirs returns the --definitions flag, or the directories named by
// the configuration when the flag is absent.
func (o *globalOptions) definitionDirs() ([]string, error) {
	if len(o.definitions) > 0 {
		return o.definitions, nil
	}
	cfg, err := config.LoadWithFallback(o.cfgFile)
	if err != nil {
		return nil, fmt.Errorf("no definition directories: pass --definitions or %w", err)
	}
	return cfg.Definitions.Dirs, nil
}

// loadRegistry builds every definition into a fresh registry.
func (o *globalOptions) loadRegistry(cmd *cobra.Command) (*registry.Registry, error) {
	dirs, err := o.definitionDirs()
	if err != nil {
		return nil, err
	}
	logger := o.logger(cmd)

	reg := registry.New(registry.WithLogger(logger))
	types, err := schema.NewLoader(reg, logger).LoadDirs(dirs...)
	if err != nil {
		return nil, err
	}
	if err := reg.RegisterAll(types); err != nil {
		return nil, err
	}
	return reg, nil
}

const (
	checkMark = "✓"
	crossMark = "✗"
)

// marks returns check and cross marks, colored on terminals.
func marks(w io.Writer) (ok, fail string) {
	if f, isFile := w.(*os.File); isFile && term.IsTerminal(int(f.Fd())) {
		return "\033[32m" + checkMark + "\033[0m", "\033[31m" + crossMark + "\033[0m"
	}
	return checkMark, crossMark
}
