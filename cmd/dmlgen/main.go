// Command dmlgen reconciles an account export against an RM roster and writes
// the SQL INSERT script that loads the result.
//
//	dmlgen --config pipeline.json
//	dmlgen validate --config pipeline.json
//	dmlgen inspect --config pipeline.json source
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"dmlgen/internal/config"
	"dmlgen/internal/pipeline"
	"dmlgen/internal/profile"
	"dmlgen/internal/storage"

	// register every dialect with the storage factory; the config picks one.
	_ "dmlgen/internal/storage/all"

	"github.com/sirupsen/logrus"
)

// runner is the part of *pipeline.Runner the CLI needs.
type runner interface {
	Run(ctx context.Context, cfg config.Pipeline) pipeline.Outcome
}

// appDeps holds the side-effecting collaborators of runMain so tests can
// replace them.
type appDeps struct {
	loadConfig  func(path string) (config.Pipeline, error)
	initMetrics func(ctx context.Context, job string, m config.Metrics) (func(), error)

	// newRunner builds the pipeline runner. A non-nil sink replaces the
	// output file (dry runs).
	newRunner func(log logrus.FieldLogger, sink storage.Sink) runner

	inspect func(ctx context.Context, opt profile.Options) (*profile.Report, error)
}

func defaultDeps() appDeps {
	return appDeps{
		loadConfig:  config.Load,
		initMetrics: initMetrics,
		newRunner: func(log logrus.FieldLogger, sink storage.Sink) runner {
			r := pipeline.New(log)
			if sink != nil {
				r.NewSink = func(string) storage.Sink { return sink }
			}
			return r
		},
		inspect: profile.Inspect,
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := runMain(ctx, os.Args[1:], os.Stdout, os.Stderr, defaultDeps())
	stop()
	os.Exit(code)
}

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// usageError marks errors caused by the command line itself.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// exitError carries a non-zero exit code for a failure that was already
// reported on stderr.
type exitError struct{ code int }

func (e exitError) Error() string { return fmt.Sprintf("exit %d", e.code) }

// runMain executes one CLI invocation and returns the process exit code:
// 2 for usage errors, 1 for failed runs, 0 otherwise.
func runMain(ctx context.Context, args []string, stdout, stderr io.Writer, deps appDeps) int {
	root := newRootCmd(deps, stdout, stderr)
	root.SetArgs(args)
	root.SetContext(ctx)

	cmd, err := root.ExecuteC()
	if err == nil {
		return exitOK
	}

	var ee exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	var ue usageError
	if errors.As(err, &ue) {
		fmt.Fprintf(stderr, "%v\nusage: %s\n", err, cmd.UseLine())
		return exitUsage
	}
	fmt.Fprintln(stderr, err)
	return exitFailure
}
