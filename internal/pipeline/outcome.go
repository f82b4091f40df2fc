package pipeline

import (
	"fmt"

	"dmlgen/internal/baseline"
	"dmlgen/internal/reconcile"
)

// Stage names one step of a run. They double as log and metric labels.
type Stage string

const (
	StageReadSource   Stage = "read_source"
	StageReadBaseline Stage = "read_baseline"
	StageNormalize    Stage = "normalize"
	StageIndex        Stage = "index"
	StageReconcile    Stage = "reconcile"
	StageEmit         Stage = "emit"
	StageWrite        Stage = "write"
)

// Outcome is the result of Run: either Success or *Failure.
type Outcome interface {
	outcome()
}

// BlockCount is the number of statements in one output block, or the reason
// it was skipped.
type BlockCount struct {
	Title      string
	Statements int
	Skip       string
}

// Success describes a script that was written.
type Success struct {
	OutputPath  string
	SkipLogPath string
	Statements  int
	Blocks      []BlockCount
	Baseline    baseline.Stats
	Summary     reconcile.Summary
}

// Failure says which stage stopped the run. Nothing was written to the output
// path or the skip log path.
type Failure struct {
	Stage Stage
	Err   error
}

func (Success) outcome()  {}
func (*Failure) outcome() {}

func (f *Failure) Error() string { return fmt.Sprintf("%s: %v", f.Stage, f.Err) }

func (f *Failure) Unwrap() error { return f.Err }
