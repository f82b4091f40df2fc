package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newValidateCmd(deps appDeps, g *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration without reading the inputs",
		Args:  noArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			if _, err := loadAndValidate(deps, g, nil, stderr); err != nil {
				return err
			}
			fmt.Fprintln(stdout, "configuration is valid")
			return nil
		},
	}
}
