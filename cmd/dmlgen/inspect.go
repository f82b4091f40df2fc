package main

import (
	"fmt"
	"io"
	"strings"

	"dmlgen/internal/config"
	"dmlgen/internal/normalize"
	"dmlgen/internal/profile"

	"github.com/spf13/cobra"
)

func newInspectCmd(deps appDeps, g *globalOptions, stdout io.Writer) *cobra.Command {
	var sample int
	cmd := &cobra.Command{
		Use:   "inspect [source|baseline]",
		Short: "Show the columns of the configured inputs and how they map to fields",
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) > 1 {
				return usageError{fmt.Errorf("inspect takes at most one input, got %d", len(args))}
			}
			if len(args) == 1 && args[0] != "source" && args[0] != "baseline" {
				return usageError{fmt.Errorf("unknown input %q (want source|baseline)", args[0])}
			}
			return nil
		},
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := deps.loadConfig(strings.TrimSpace(g.configPath))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			aliases, err := cfg.Aliases()
			if err != nil {
				return fmt.Errorf("columns: %w", err)
			}

			targets := []struct {
				name   string
				in     config.Input
				fields []normalize.Field
			}{
				{"source", cfg.Source, normalize.SourceFields},
				{"baseline", cfg.Baseline, normalize.BaselineFields},
			}
			done := 0
			for _, t := range targets {
				if len(args) == 1 && args[0] != t.name {
					continue
				}
				if t.in.Path == "" {
					if len(args) == 1 {
						return fmt.Errorf("%s.path is not configured", t.name)
					}
					continue
				}
				opt, err := t.in.ParserOptions()
				if err != nil {
					return fmt.Errorf("%s: %w", t.name, err)
				}
				rep, err := deps.inspect(c.Context(), profile.Options{
					Name:       t.name,
					Path:       t.in.Path,
					Reader:     opt,
					Fields:     t.fields,
					Aliases:    aliases,
					SampleRows: sample,
				})
				if err != nil {
					return fmt.Errorf("inspect %s: %w", t.name, err)
				}
				if done > 0 {
					fmt.Fprintln(stdout)
				}
				if err := rep.Render(stdout); err != nil {
					return err
				}
				done++
			}
			if done == 0 {
				return fmt.Errorf("no input paths configured")
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&sample, "sample", profile.DefaultSampleRows, "rows used for type inference")
	return cmd
}
