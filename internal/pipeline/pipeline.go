// Package pipeline runs one reconciliation end to end: read both inputs,
// resolve their columns, index the roster, reconcile, render and write the
// script.
//
// The output file is written only when every stage succeeded. Row-level
// problems never fail a run; they are counted in the Summary and, when
// configured, written to the skip log.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"dmlgen/internal/baseline"
	"dmlgen/internal/config"
	"dmlgen/internal/dataset"
	"dmlgen/internal/domain"
	"dmlgen/internal/emit"
	"dmlgen/internal/metrics"
	"dmlgen/internal/normalize"
	"dmlgen/internal/parser"
	"dmlgen/internal/reconcile"
	"dmlgen/internal/skiplog"
	"dmlgen/internal/storage"

	"github.com/sirupsen/logrus"
)

// ReadFunc reads one input file into a dataset.
type ReadFunc func(ctx context.Context, name, path string, opt parser.Options, onErr func(line int, err error)) (*dataset.Dataset, error)

// Runner executes pipelines. The zero value logs nowhere and writes files.
type Runner struct {
	Log logrus.FieldLogger

	// Now supplies the fallback transaction date when the config has no
	// run_date. Defaults to time.Now.
	Now func() time.Time

	// Read defaults to parser.ReadFile.
	Read ReadFunc

	// NewSink builds the script sink for an output path. Defaults to a
	// storage.FileSink.
	NewSink func(path string) storage.Sink
}

// New returns a Runner logging to log.
func New(log logrus.FieldLogger) *Runner {
	return &Runner{Log: log}
}

type skippedRow struct {
	res   reconcile.RowResult
	cells []string
}

// run carries the state shared between stages of one Run.
type run struct {
	r   *Runner
	cfg config.Pipeline
	log logrus.FieldLogger

	src, base *dataset.Dataset
	srcMap    normalize.Mapping
	baseMap   normalize.Mapping
	idx       *baseline.Index
	res       *reconcile.Result
	blocks    []emit.Block
	skipped   []skippedRow
}

// Run executes cfg. cfg should already be validated with
// config.ValidatePipeline; invalid values surface as a Failure of the stage
// that first needs them.
func (r *Runner) Run(ctx context.Context, cfg config.Pipeline) Outcome {
	log := r.Log
	if log == nil {
		l := logrus.New()
		l.Out = io.Discard
		log = l
	}
	st := &run{r: r, cfg: cfg, log: log.WithField("job", cfg.Job)}

	steps := []struct {
		stage Stage
		fn    func(context.Context) error
	}{
		{StageReadSource, st.readSource},
		{StageReadBaseline, st.readBaseline},
		{StageNormalize, st.normalize},
		{StageIndex, st.index},
		{StageReconcile, st.reconcile},
		{StageEmit, st.emit},
		{StageWrite, st.write},
	}
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return &Failure{Stage: s.stage, Err: err}
		}
		start := time.Now()
		err := s.fn(ctx)
		d := time.Since(start)
		metrics.RecordStep(cfg.Job, string(s.stage), err, d)

		entry := st.log.WithFields(logrus.Fields{"stage": s.stage, "duration": d.Truncate(time.Millisecond)})
		if err != nil {
			entry.WithError(err).Error("stage failed")
			return &Failure{Stage: s.stage, Err: err}
		}
		entry.Info("stage complete")
	}

	out := Success{
		OutputPath: cfg.Output.Path,
		Statements: emit.Count(st.blocks),
		Baseline:   st.idx.Stats(),
		Summary:    st.res.Summary,

		SkipLogPath: cfg.Output.SkipLog,
	}
	for _, b := range st.blocks {
		out.Blocks = append(out.Blocks, BlockCount{Title: b.Title, Statements: len(b.Statements), Skip: b.Skip})
	}
	return out
}

func (st *run) read(ctx context.Context, name string, in config.Input) (*dataset.Dataset, error) {
	opt, err := in.ParserOptions()
	if err != nil {
		return nil, err
	}
	read := st.r.Read
	if read == nil {
		read = parser.ReadFile
	}
	log := st.log.WithField("input", name)
	ds, err := read(ctx, name, in.Path, opt, func(line int, err error) {
		log.WithField("line", line).WithError(err).Warn("unreadable record skipped")
	})
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{"path": in.Path, "rows": ds.Len(), "columns": len(ds.Headers)}).Info("input read")
	metrics.RecordRow(st.cfg.Job, name, int64(ds.Len()))
	return ds, nil
}

func (st *run) readSource(ctx context.Context) (err error) {
	st.src, err = st.read(ctx, "source", st.cfg.Source)
	return err
}

func (st *run) readBaseline(ctx context.Context) (err error) {
	st.base, err = st.read(ctx, "baseline", st.cfg.Baseline)
	return err
}

func (st *run) normalize(context.Context) error {
	aliases, err := st.cfg.Aliases()
	if err != nil {
		return err
	}
	st.src = normalize.LowercaseHeaders(st.src)
	st.base = normalize.LowercaseHeaders(st.base)
	st.srcMap = normalize.Resolve(st.src.Headers, normalize.SourceFields, aliases)
	st.baseMap = normalize.Resolve(st.base.Headers, normalize.BaselineFields, aliases)

	for _, f := range st.srcMap.Missing(normalize.SourceFields...) {
		st.log.WithField("field", f.String()).Warn("source column not found")
	}
	for _, f := range st.baseMap.Missing(normalize.BaselineFields...) {
		st.log.WithField("field", f.String()).Warn("baseline column not found")
	}
	return nil
}

func (st *run) index(context.Context) error {
	st.idx = baseline.Build(st.base, st.baseMap)
	s := st.idx.Stats()
	st.log.WithFields(logrus.Fields{
		"rows":        s.Rows,
		"indexed":     s.Indexed,
		"skipped":     s.SkippedRows,
		"reassigned":  s.Reassigned,
		"identifiers": s.DistinctIDs,
		"accounts":    s.DistinctAccts,
	}).Info("baseline indexed")
	return nil
}

// managers returns the manager list to emit and the validator deciding which
// identifiers may own accounts.
func (st *run) managers() ([]domain.Manager, reconcile.Validator, []normalize.Field, error) {
	src, err := config.ParseManagerSource(st.cfg.Managers.Source)
	if err != nil {
		return nil, nil, nil, err
	}
	if src == config.FromBaseline {
		missing := st.baseMap.Missing(normalize.BaselineIdentifier, normalize.BaselineName)
		if len(missing) > 0 {
			// No manager rows are emitted, so no account may reference one.
			return nil, reconcile.NewIdentifierSet(), missing, nil
		}
		return st.idx.Managers(), st.idx, missing, nil
	}

	var (
		list []domain.Manager
		ids  []string
		seen = make(map[string]struct{})
	)
	for _, m := range st.cfg.Managers.Fixed {
		id := strings.TrimSpace(m.Identifier)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		list = append(list, domain.Manager{Identifier: id, Name: strings.TrimSpace(m.Name)})
		ids = append(ids, id)
	}
	if len(list) == 0 {
		return nil, nil, nil, fmt.Errorf("managers.source is fixed but no managers are listed")
	}
	return list, reconcile.NewIdentifierSet(ids...), nil, nil
}

func (st *run) reconcile(ctx context.Context) error {
	policy, err := reconcile.ParseMismatchPolicy(st.cfg.Policy.IdentifierMismatch)
	if err != nil {
		return err
	}
	_, valid, _, err := st.managers()
	if err != nil {
		return err
	}
	now, err := st.fallbackDate()
	if err != nil {
		return err
	}

	eng := &reconcile.Engine{
		Logger:   st.log.WithField("stage", StageReconcile),
		Mismatch: policy,
		Now:      now,
		OnSkip: func(res reconcile.RowResult, row dataset.Row) {
			st.skipped = append(st.skipped, skippedRow{res: res, cells: row.Cells})
		},
	}
	if st.res, err = eng.Run(ctx, st.src, st.srcMap, st.idx, valid); err != nil {
		return err
	}

	job := st.cfg.Job
	f := st.res.Summary.Funnel
	metrics.RecordRow(job, "admitted", int64(f.Admitted))
	metrics.RecordRow(job, "joined", int64(f.Joined))
	metrics.RecordRow(job, "clients", int64(len(st.res.Clients)))
	metrics.RecordRow(job, "accounts", int64(len(st.res.Accounts)))
	for reason, n := range st.res.Summary.Skipped {
		metrics.RecordSkip(job, string(reason), int64(n))
	}
	for _, w := range st.res.Summary.SortedWarnings() {
		st.log.WithFields(logrus.Fields{"warning": w.Name, "rows": w.Count}).Warn("values substituted")
	}
	return nil
}

func (st *run) fallbackDate() (func() time.Time, error) {
	d, err := st.cfg.ParseRunDate()
	if err != nil {
		return nil, err
	}
	if !d.IsZero() {
		return func() time.Time { return d }, nil
	}
	if st.r.Now != nil {
		return st.r.Now, nil
	}
	return time.Now, nil
}

func (st *run) emit(context.Context) error {
	d, err := storage.New(st.cfg.Output.Dialect)
	if err != nil {
		return err
	}
	list, _, missing, err := st.managers()
	if err != nil {
		return err
	}

	e := &emit.Emitter{
		Dialect: d,
		Schema:  st.cfg.Output.Schema,
		Tables: emit.Tables{
			Branches:     st.cfg.Output.Tables.Branches,
			Managers:     st.cfg.Output.Tables.Managers,
			Products:     st.cfg.Output.Tables.Products,
			Clients:      st.cfg.Output.Tables.Clients,
			Accounts:     st.cfg.Output.Tables.Accounts,
			Transactions: st.cfg.Output.Tables.Transactions,
		},
	}
	if strings.TrimSpace(st.cfg.Branch.Code) != "" {
		b := st.cfg.Branch
		e.Branch = &b
	}

	st.blocks = e.Render(emit.Plan{Managers: list, ManagersMissing: missing, Result: st.res})
	for _, b := range st.blocks {
		entry := st.log.WithFields(logrus.Fields{"block": b.Title, "statements": len(b.Statements)})
		if b.Skip != "" {
			entry.WithField("reason", b.Skip).Warn("block skipped")
			continue
		}
		entry.Debug("block rendered")
		metrics.RecordStatements(st.cfg.Job, b.Table, int64(len(b.Statements)))
	}
	return nil
}

// write stages the skip log, writes the script and only then moves the skip
// log into place. A failed write leaves neither file behind.
func (st *run) write(ctx context.Context) error {
	var skipped *skiplog.Log
	if path := st.cfg.Output.SkipLog; path != "" {
		l, err := st.stageSkipLog(path)
		if err != nil {
			return err
		}
		defer l.Discard()
		skipped = l
	}

	sink := storage.Sink(storage.FileSink{Path: st.cfg.Output.Path})
	if st.r.NewSink != nil {
		sink = st.r.NewSink(st.cfg.Output.Path)
	}
	if err := sink.Write(ctx, emit.Lines(st.blocks)); err != nil {
		return err
	}
	if skipped == nil {
		return nil
	}
	if err := skipped.Commit(); err != nil {
		return err
	}
	st.log.WithFields(logrus.Fields{"path": st.cfg.Output.SkipLog, "rows": len(st.skipped)}).Info("skip log written")
	return nil
}

func (st *run) stageSkipLog(path string) (*skiplog.Log, error) {
	l, err := skiplog.Stage(path)
	if err != nil {
		return nil, err
	}
	for _, s := range st.skipped {
		reason := string(s.res.Reason)
		if reason == "" {
			parts := make([]string, len(s.res.EntitySkips))
			for i, r := range s.res.EntitySkips {
				parts[i] = string(r)
			}
			reason = strings.Join(parts, "|")
		}
		l.Add(reason, s.res.Line, s.res.Detail, s.cells)
	}
	if err := l.Close(); err != nil {
		l.Discard()
		return nil, err
	}
	return l, nil
}
