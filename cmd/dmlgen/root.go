package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"dmlgen/internal/config"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// globalOptions are the flags shared by every subcommand.
type globalOptions struct {
	configPath string
	logLevel   string
	verbose    bool
}

func newRootCmd(deps appDeps, stdout, stderr io.Writer) *cobra.Command {
	g := &globalOptions{}
	gen := &generateOptions{}

	cmd := &cobra.Command{
		Use:   "dmlgen",
		Short: "Reconcile an account export with the RM roster and write the SQL load script",
		Long: `dmlgen reads a source account export and a baseline RM roster (CSV, XLSX or
HTML saved as .xls), keeps the rows whose relationship manager is known, and
writes one INSERT script covering branch, bankers, products, clients, accounts
and account transactions.

Without a subcommand dmlgen runs generate.`,
		Args:          noArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(c *cobra.Command, _ []string) error {
			return runGenerate(c, deps, g, gen, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	pf := cmd.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", "", "pipeline config JSON path (DMLGEN_* variables override it)")
	pf.StringVar(&g.logLevel, "log-level", envOr("DMLGEN_LOG_LEVEL", "info"), "log level: debug, info, warn, error")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "enable debug logs")

	addGenerateFlags(cmd, gen)

	cmd.AddCommand(
		newGenerateCmd(deps, g, stdout, stderr),
		newValidateCmd(deps, g, stdout, stderr),
		newInspectCmd(deps, g, stdout),
	)
	return cmd
}

func noArgs(_ *cobra.Command, args []string) error {
	if len(args) > 0 {
		return usageError{fmt.Errorf("unknown command %q", args[0])}
	}
	return nil
}

// newLogger builds the run logger on stderr.
func newLogger(g *globalOptions, stderr io.Writer) (*logrus.Logger, error) {
	lvl := logrus.InfoLevel
	if g.verbose {
		lvl = logrus.DebugLevel
	} else if g.logLevel != "" {
		var err error
		if lvl, err = logrus.ParseLevel(g.logLevel); err != nil {
			return nil, usageError{err}
		}
	}
	log := logrus.New()
	log.SetOutput(stderr)
	log.SetLevel(lvl)
	log.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	return log, nil
}

// loadAndValidate loads the config, prints every finding to stderr and fails
// when any finding is an error.
func loadAndValidate(deps appDeps, g *globalOptions, apply func(*config.Pipeline), stderr io.Writer) (config.Pipeline, error) {
	cfg, err := deps.loadConfig(strings.TrimSpace(g.configPath))
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	if apply != nil {
		apply(&cfg)
	}
	issues := config.ValidatePipeline(cfg)
	for _, iss := range issues {
		fmt.Fprintf(stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		return cfg, errors.New("configuration is invalid")
	}
	return cfg, nil
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}
