package main

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/artpar/vizprops/core/convention"
	"github.com/artpar/vizprops/core/registry"
	"github.com/artpar/vizprops/core/schema"
)

func newValidateCmd(opts *globalOptions) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate [dir...]",
		Short: "Check definition files",
		Long: `Parse every definition file, build the declared types and report
problems. Directories default to --definitions or the configuration.

With --strict, reference properties naming an unregistered type are errors.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dirs := args
			if len(dirs) == 0 {
				var err error
				if dirs, err = opts.definitionDirs(); err != nil {
					return err
				}
			}
			return runValidate(cmd, opts, dirs, strict)
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "fail on references to unknown types")
	return cmd
}

func runValidate(cmd *cobra.Command, opts *globalOptions, dirs []string, strict bool) error {
	out := cmd.OutOrStdout()
	ok, fail := marks(out)

	var files []*schema.File
	failed := 0
	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !isDefinition(path) {
				return nil
			}
			f, perr := schema.ParseFile(path)
			if perr != nil {
				failed++
				fmt.Fprintf(out, "%s %s\n    %v\n", fail, path, perr)
				return nil
			}
			fmt.Fprintf(out, "%s %s (%s, %s)\n", ok, path,
				convention.Count(len(f.Types), "type"), convention.Count(len(f.Enums), "enum"))
			files = append(files, f)
			return nil
		})
		if err != nil {
			return fmt.Errorf("read %s: %w", dir, err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%s invalid", convention.Count(failed, "definition file"))
	}

	logger := opts.logger(cmd)
	reg := registry.New(registry.WithLogger(logger))
	types, err := schema.NewLoader(reg, logger).Build(files...)
	if err == nil {
		err = reg.RegisterAll(types)
	}
	if err != nil {
		fmt.Fprintf(out, "%s build\n    %v\n", fail, err)
		return errors.New("definitions do not build")
	}
	fmt.Fprintf(out, "%s %s built\n", ok, convention.Count(len(types), "type"))

	dangling := reg.Unresolved()
	for _, d := range dangling {
		mark := "!"
		if strict {
			mark = fail
		}
		fmt.Fprintf(out, "%s %s\n", mark, d)
	}
	if strict && len(dangling) > 0 {
		return errors.New(convention.Count(len(dangling), "unresolved reference"))
	}
	return nil
}

func isDefinition(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
