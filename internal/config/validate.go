package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"dmlgen/internal/normalize"
	"dmlgen/internal/parser"
	"dmlgen/internal/parser/csv"
	"dmlgen/internal/reconcile"
	"dmlgen/internal/storage"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks the run.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is reported but does not block the run.
	SeverityWarning IssueSeverity = "warning"
)

// Issue is a single validation finding. Path is a dotted path into the
// config, e.g. "source.comma" or "managers.fixed[2].nip".
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidatePipeline performs static checks over p without touching the input
// files. Dialect names are checked against the storage registry, so callers
// must have imported the dialect packages they expect to use.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue
	add := func(sev IssueSeverity, path, format string, a ...any) {
		issues = append(issues, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, a...)})
	}

	if strings.TrimSpace(p.Job) == "" {
		add(SeverityError, "job", "job must not be empty; it labels logs and metrics")
	}
	validateInput(add, "source", p.Source)
	validateInput(add, "baseline", p.Baseline)

	out := strings.TrimSpace(p.Output.Path)
	switch {
	case out == "":
		add(SeverityError, "output.path", "output.path must not be empty")
	case samePath(out, p.Source.Path) || samePath(out, p.Baseline.Path):
		add(SeverityError, "output.path", "output.path would overwrite an input file")
	}
	if _, err := storage.New(p.Output.Dialect); err != nil {
		add(SeverityError, "output.dialect", "%v", err)
	}
	if p.Output.SkipLog != "" && samePath(p.Output.SkipLog, out) {
		add(SeverityError, "output.skip_log", "skip_log must differ from output.path")
	}

	validateManagers(add, p.Managers)

	if p.Branch.Code == "" && (p.Branch.Name != "" || p.Branch.Address != "") {
		add(SeverityError, "branch.code", "branch.code is required when other branch fields are set")
	}
	if p.Branch.Code != "" && p.Branch.Name == "" {
		add(SeverityWarning, "branch.name", "branch has a code but no name")
	}

	for k, names := range p.Columns {
		path := "columns." + k
		if _, ok := normalize.ParseField(k); !ok {
			add(SeverityError, path, "unknown field %q", k)
			continue
		}
		if len(names) == 0 {
			add(SeverityWarning, path, "no header names listed")
		}
		for i, n := range names {
			if strings.TrimSpace(n) == "" {
				add(SeverityWarning, fmt.Sprintf("%s[%d]", path, i), "empty header name is ignored")
			}
		}
	}

	if _, err := reconcile.ParseMismatchPolicy(p.Policy.IdentifierMismatch); err != nil {
		add(SeverityError, "policy.identifier_mismatch", "%v", err)
	}

	switch strings.ToLower(strings.TrimSpace(p.Metrics.Backend)) {
	case "", "none", "datadog":
	default:
		add(SeverityError, "metrics.backend", "unknown metrics backend %q (want none|datadog)", p.Metrics.Backend)
	}
	if p.Metrics.FlushSeconds < 0 {
		add(SeverityError, "metrics.flush_seconds", "flush_seconds must be >= 0")
	}

	if _, err := p.ParseRunDate(); err != nil {
		add(SeverityError, "run_date", "run_date must be YYYY-MM-DD: %v", err)
	}
	return issues
}

func validateInput(add func(IssueSeverity, string, string, ...any), prefix string, in Input) {
	if strings.TrimSpace(in.Path) == "" {
		add(SeverityError, prefix+".path", "%s.path must not be empty", prefix)
	}
	if in.Format != "" {
		if _, err := parser.ParseFormat(in.Format); err != nil {
			add(SeverityError, prefix+".format", "%v", err)
		}
	}
	if _, err := in.CommaRune(); err != nil {
		add(SeverityError, prefix+".comma", "%v", err)
	}
	if !csv.KnownEncoding(in.Encoding) {
		add(SeverityError, prefix+".encoding", "unsupported encoding %q", in.Encoding)
	}
	if in.SkipRows < 0 {
		add(SeverityError, prefix+".skip_rows", "skip_rows must be >= 0")
	}
}

func validateManagers(add func(IssueSeverity, string, string, ...any), m Managers) {
	src, err := ParseManagerSource(m.Source)
	if err != nil {
		add(SeverityError, "managers.source", "%v", err)
		return
	}
	if src == FromBaseline {
		if len(m.Fixed) > 0 {
			add(SeverityWarning, "managers.fixed", "ignored because managers.source is baseline")
		}
		return
	}

	if len(m.Fixed) == 0 {
		add(SeverityError, "managers.fixed", "managers.source fixed requires at least one manager")
		return
	}
	seen := make(map[string]int, len(m.Fixed))
	for i, mgr := range m.Fixed {
		path := fmt.Sprintf("managers.fixed[%d]", i)
		id := strings.TrimSpace(mgr.Identifier)
		if id == "" {
			add(SeverityError, path+".nip", "nip must not be empty")
			continue
		}
		if j, dup := seen[id]; dup {
			add(SeverityWarning, path+".nip", "duplicate nip %q (first at managers.fixed[%d])", id, j)
			continue
		}
		seen[id] = i
		if strings.TrimSpace(mgr.Name) == "" {
			add(SeverityWarning, path+".name", "manager %s has no name", id)
		}
	}
}

func samePath(a, b string) bool {
	if strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "" {
		return false
	}
	return filepath.Clean(a) == filepath.Clean(b)
}
