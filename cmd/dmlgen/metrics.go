package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dmlgen/internal/config"
	"dmlgen/internal/metrics"
	"dmlgen/internal/metrics/datadog"

	"github.com/sirupsen/logrus"
)

// metricsBackend is what initMetrics needs from a constructed backend.
type metricsBackend interface {
	Close() error
}

// Seams for tests.
var (
	newDatadogBackend = func(ctx context.Context, opts datadog.Options) (metricsBackend, error) {
		b, err := datadog.NewBackend(ctx, opts)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	setMetricsBackend = func(b any) {
		if mb, ok := b.(metrics.Backend); ok {
			metrics.SetBackend(mb)
		}
	}
	logPrintf = logrus.Printf
)

// initMetrics installs the configured metrics backend. The returned cleanup
// is never nil and flushes the backend; callers run it once when the job ends.
//
// A backend that fails to start is logged and metrics stay disabled; only an
// unknown backend name is an error.
func initMetrics(ctx context.Context, job string, m config.Metrics) (func(), error) {
	noop := func() {}

	name := strings.ToLower(strings.TrimSpace(m.Backend))
	switch name {
	case "", "none":
		return noop, nil

	case "datadog":
		tags := datadog.ParseTagsCSV(m.Tags)
		opts := datadog.Options{
			JobName:    job,
			Tags:       tags,
			FlushEvery: time.Duration(m.FlushSeconds) * time.Second,
		}
		b, err := newDatadogBackend(ctx, opts)
		if err != nil {
			logPrintf("metrics: failed to init datadog backend: %v; using nop", err)
			return noop, nil
		}
		setMetricsBackend(b)
		return func() {
			if err := b.Close(); err != nil {
				logPrintf("metrics: datadog close error: %v", err)
			}
		}, nil

	default:
		return noop, fmt.Errorf("unknown metrics backend %q (want none|datadog)", m.Backend)
	}
}
