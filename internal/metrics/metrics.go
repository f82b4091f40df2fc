// Package metrics is a small, backend-agnostic facade for run metrics.
//
// The default backend is a no-op, so every Record* call is safe whether or
// not a real backend (see the datadog subpackage) has been installed.
package metrics

import (
	"sync"
	"time"
)

// Metric names emitted by the Record helpers. Backends switch on these.
const (
	StepTotal       = "dmlgen_step_total"
	StepDuration    = "dmlgen_step_duration_seconds"
	RowsTotal       = "dmlgen_rows_total"
	SkipsTotal      = "dmlgen_skips_total"
	StatementsTotal = "dmlgen_statements_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes buffered metrics, if the backend buffers.
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs b. Passing nil restores the no-op backend.
func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if b == nil {
		b = nopBackend{}
	}
	backend = b
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// Flush delegates to the current backend.
func Flush() error {
	return current().Flush()
}

// RecordStep counts one pipeline stage and observes its duration, labelled
// with success or failure.
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{"job": job, "step": step, "status": status}

	b := current()
	b.IncCounter(StepTotal, 1, lbls)
	b.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordRow adds delta rows of the given kind, e.g. "source", "baseline",
// "admitted", "clients", "accounts".
func RecordRow(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(RowsTotal, float64(delta), Labels{"job": job, "kind": kind})
}

// RecordSkip adds delta rows skipped for reason.
func RecordSkip(job, reason string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(SkipsTotal, float64(delta), Labels{"job": job, "reason": reason})
}

// RecordStatements adds delta statements emitted for an output block.
func RecordStatements(job, block string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(StatementsTotal, float64(delta), Labels{"job": job, "block": block})
}
