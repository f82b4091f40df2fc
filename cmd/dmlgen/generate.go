package main

import (
	"fmt"
	"io"
	"strings"

	"dmlgen/internal/config"
	"dmlgen/internal/pipeline"
	"dmlgen/internal/reconcile"
	"dmlgen/internal/storage"

	"github.com/spf13/cobra"
)

// generateOptions are command-line overrides applied on top of the loaded
// config. Only flags that were set take effect.
type generateOptions struct {
	output         string
	dialect        string
	skipLog        string
	runDate        string
	metricsBackend string
	dryRun         bool
}

func addGenerateFlags(c *cobra.Command, o *generateOptions) {
	f := c.Flags()
	f.StringVarP(&o.output, "output", "o", "", "script path (default "+config.DefaultOutputPath+")")
	f.StringVar(&o.dialect, "dialect", "", "SQL dialect: "+strings.Join(storage.Kinds(), ", "))
	f.StringVar(&o.skipLog, "skip-log", "", "write skipped rows to this CSV file")
	f.StringVar(&o.runDate, "run-date", "", "transaction date for rows without one (YYYY-MM-DD)")
	f.StringVar(&o.metricsBackend, "metrics-backend", "", "metrics backend: none|datadog")
	f.BoolVar(&o.dryRun, "dry-run", false, "print the script to stdout instead of writing it")
}

func newGenerateCmd(deps appDeps, g *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	o := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Reconcile the inputs and write the SQL script",
		Args:  noArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return runGenerate(c, deps, g, o, stdout, stderr)
		},
	}
	addGenerateFlags(cmd, o)
	return cmd
}

func (o *generateOptions) apply(c *cobra.Command) func(*config.Pipeline) {
	f := c.Flags()
	return func(p *config.Pipeline) {
		if f.Changed("output") {
			p.Output.Path = o.output
		}
		if f.Changed("dialect") {
			p.Output.Dialect = o.dialect
		}
		if f.Changed("skip-log") {
			p.Output.SkipLog = o.skipLog
		}
		if f.Changed("run-date") {
			p.RunDate = o.runDate
		}
		if f.Changed("metrics-backend") {
			p.Metrics.Backend = o.metricsBackend
		}
		if o.dryRun {
			p.Output.SkipLog = ""
		}
	}
}

func runGenerate(c *cobra.Command, deps appDeps, g *globalOptions, o *generateOptions, stdout, stderr io.Writer) error {
	log, err := newLogger(g, stderr)
	if err != nil {
		return err
	}
	cfg, err := loadAndValidate(deps, g, o.apply(c), stderr)
	if err != nil {
		return err
	}

	ctx := c.Context()
	cleanup, err := deps.initMetrics(ctx, cfg.Job, cfg.Metrics)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	defer cleanup()

	var mem *storage.MemorySink
	var sink storage.Sink
	if o.dryRun {
		mem = &storage.MemorySink{}
		sink = mem
	}

	entry := log.WithField("job", cfg.Job)
	entry.WithFields(map[string]any{
		"source":   cfg.Source.Path,
		"baseline": cfg.Baseline.Path,
		"dialect":  cfg.Output.Dialect,
		"managers": cfg.Managers.Source,
	}).Debug("pipeline configured")

	switch out := deps.newRunner(entry, sink).Run(ctx, cfg).(type) {
	case pipeline.Success:
		if mem != nil {
			for _, l := range mem.Lines {
				fmt.Fprintln(stdout, l)
			}
			printSummary(stderr, out, true)
			return nil
		}
		printSummary(stdout, out, false)
		return nil
	case *pipeline.Failure:
		return fmt.Errorf("run: %w", out)
	default:
		return fmt.Errorf("run: unexpected outcome %T", out)
	}
}

func printSummary(w io.Writer, s pipeline.Success, dryRun bool) {
	if dryRun {
		fmt.Fprintf(w, "dry run: %d statements\n", s.Statements)
	} else {
		fmt.Fprintf(w, "wrote %d statements to %s\n", s.Statements, s.OutputPath)
	}
	for _, b := range s.Blocks {
		if b.Skip != "" {
			fmt.Fprintf(w, "  %-20s skipped (%s)\n", b.Title, b.Skip)
			continue
		}
		fmt.Fprintf(w, "  %-20s %d\n", b.Title, b.Statements)
	}

	f := s.Summary.Funnel
	fmt.Fprintf(w, "rows: read=%d admitted=%d identified=%d valid_manager=%d joined=%d\n",
		f.Rows, f.Admitted, f.Identified, f.ValidManager, f.Joined)
	if rc := s.Summary.SortedSkips(); len(rc) > 0 {
		fmt.Fprintf(w, "skipped: %s\n", joinCounts(rc))
	}
	if rc := s.Summary.SortedWarnings(); len(rc) > 0 {
		fmt.Fprintf(w, "warnings: %s\n", joinCounts(rc))
	}
	if s.SkipLogPath != "" {
		fmt.Fprintf(w, "skip log: %s\n", s.SkipLogPath)
	}
}

func joinCounts(rc []reconcile.ReasonCount) string {
	parts := make([]string, len(rc))
	for i, r := range rc {
		parts[i] = fmt.Sprintf("%s=%d", r.Name, r.Count)
	}
	return strings.Join(parts, " ")
}
