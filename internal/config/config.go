// Package config defines the JSON-serializable run configuration for dmlgen.
//
// A run is configured in three layers, later layers winning:
//
//  1. a JSON pipeline file (Load)
//  2. DMLGEN_* environment variables named after the struct path, e.g.
//     DMLGEN_OUTPUT_DIALECT=postgres or DMLGEN_SOURCE_SKIP_ROWS=3
//  3. command-line flags, applied by the caller
//
// Example (trimmed):
//
//	{
//	  "job":      "kc01-migration",
//	  "source":   { "path": "exports/accounts.xlsx", "sheet": "Sheet1" },
//	  "baseline": { "path": "exports/rm_roster.csv" },
//	  "output":   { "path": "out/kc01.sql", "dialect": "mysql", "skip_log": "out/skipped.csv" },
//	  "managers": { "source": "baseline" },
//	  "branch":   { "code": "KC01", "name": "Kantor Cabang 01" },
//	  "columns":  { "source.cif": ["nomor cif"] },
//	  "policy":   { "identifier_mismatch": "accept" }
//	}
package config

import (
	"fmt"
	"strings"
	"time"

	"dmlgen/internal/domain"
	"dmlgen/internal/normalize"
	"dmlgen/internal/parser"
)

// Default values filled by ApplyDefaults.
const (
	DefaultJob        = "dmlgen"
	DefaultOutputPath = "generated_sql_script.sql"
	DefaultDialect    = "mysql"
)

// Pipeline is the top-level object of a pipeline file.
type Pipeline struct {
	Job string `json:"job"`

	// Source is the account export; Baseline is the RM roster.
	Source   Input `json:"source"`
	Baseline Input `json:"baseline"`

	Output   Output   `json:"output"`
	Managers Managers `json:"managers"`

	// Branch is written as the first block when Code is set.
	Branch domain.Branch `json:"branch"`

	// Columns adds header spellings per logical field, keyed by field name
	// ("source.cif", "baseline.identifier", ...).
	Columns map[string][]string `json:"columns" ignored:"true"`

	Policy  Policy  `json:"policy"`
	Metrics Metrics `json:"metrics"`

	// RunDate ("YYYY-MM-DD") replaces today as the fallback transaction date.
	RunDate string `json:"run_date" split_words:"true"`
}

// Input locates one input file and how to read it.
type Input struct {
	Path string `json:"path"`

	// Format forces "csv", "xlsx" or "html"; empty detects from the file.
	Format   string `json:"format"`
	Sheet    string `json:"sheet"`
	Table    string `json:"table"`
	Comma    string `json:"comma"`
	Encoding string `json:"encoding"`
	SkipRows int    `json:"skip_rows" split_words:"true"`
}

// Output controls the generated script.
type Output struct {
	Path    string `json:"path"`
	Dialect string `json:"dialect"`

	// SkipLog, when set, receives a CSV of every skipped source row.
	SkipLog string `json:"skip_log" split_words:"true"`

	// Schema qualifies unqualified table names.
	Schema string `json:"schema"`
	Tables Tables `json:"tables"`
}

// Tables overrides target table names; empty fields keep the defaults.
type Tables struct {
	Branches     string `json:"branches"`
	Managers     string `json:"managers"`
	Products     string `json:"products"`
	Clients      string `json:"clients"`
	Accounts     string `json:"accounts"`
	Transactions string `json:"transactions"`
}

// Managers selects where the valid manager set comes from.
type Managers struct {
	Source string           `json:"source"`
	Fixed  []domain.Manager `json:"fixed" ignored:"true"`
}

// Policy holds reconciliation policies.
type Policy struct {
	IdentifierMismatch string `json:"identifier_mismatch" split_words:"true"`
}

// Metrics selects the metrics backend.
type Metrics struct {
	Backend      string `json:"backend"`
	Tags         string `json:"tags"`
	FlushSeconds int    `json:"flush_seconds" split_words:"true"`
}

// ManagerSource says which list defines valid managers.
type ManagerSource int

const (
	// FromBaseline uses every identifier found in the roster.
	FromBaseline ManagerSource = iota
	// FixedList uses Managers.Fixed.
	FixedList
)

func (s ManagerSource) String() string {
	if s == FixedList {
		return "fixed"
	}
	return "baseline"
}

// ParseManagerSource accepts "baseline" (default) and "fixed".
func ParseManagerSource(s string) (ManagerSource, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "baseline":
		return FromBaseline, nil
	case "fixed", "list":
		return FixedList, nil
	default:
		return FromBaseline, fmt.Errorf("unknown managers.source %q (want baseline|fixed)", s)
	}
}

// ApplyDefaults fills empty fields with their defaults.
func (p *Pipeline) ApplyDefaults() {
	if strings.TrimSpace(p.Job) == "" {
		p.Job = DefaultJob
	}
	if strings.TrimSpace(p.Output.Path) == "" {
		p.Output.Path = DefaultOutputPath
	}
	if strings.TrimSpace(p.Output.Dialect) == "" {
		p.Output.Dialect = DefaultDialect
	}
	if strings.TrimSpace(p.Managers.Source) == "" {
		p.Managers.Source = FromBaseline.String()
	}
	if strings.TrimSpace(p.Policy.IdentifierMismatch) == "" {
		p.Policy.IdentifierMismatch = "accept"
	}
	if strings.TrimSpace(p.Metrics.Backend) == "" {
		p.Metrics.Backend = "none"
	}
}

// Defaults returns a Pipeline with only defaults set.
func Defaults() Pipeline {
	var p Pipeline
	p.ApplyDefaults()
	return p
}

// Aliases converts Columns into normalize.Aliases.
func (p Pipeline) Aliases() (normalize.Aliases, error) {
	if len(p.Columns) == 0 {
		return nil, nil
	}
	out := make(normalize.Aliases, len(p.Columns))
	for k, names := range p.Columns {
		f, ok := normalize.ParseField(k)
		if !ok {
			return nil, fmt.Errorf("columns: unknown field %q", k)
		}
		for _, n := range names {
			if n = strings.TrimSpace(n); n != "" {
				out[f] = append(out[f], n)
			}
		}
	}
	return out, nil
}

// CommaRune returns the configured delimiter, or 0 for the reader default.
func (in Input) CommaRune() (rune, error) {
	c := in.Comma
	if c == `\t` || strings.EqualFold(c, "tab") {
		return '\t', nil
	}
	r := []rune(c)
	switch len(r) {
	case 0:
		return 0, nil
	case 1:
		return r[0], nil
	default:
		return 0, fmt.Errorf("comma must be a single character, got %q", c)
	}
}

// ParserOptions converts in into reader options.
func (in Input) ParserOptions() (parser.Options, error) {
	comma, err := in.CommaRune()
	if err != nil {
		return parser.Options{}, err
	}
	return parser.Options{
		Format:   in.Format,
		Comma:    comma,
		Encoding: in.Encoding,
		Sheet:    in.Sheet,
		Table:    in.Table,
		SkipRows: in.SkipRows,
	}, nil
}

// ParseRunDate returns the configured run date, or the zero time when unset.
func (p Pipeline) ParseRunDate() (time.Time, error) {
	if strings.TrimSpace(p.RunDate) == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", strings.TrimSpace(p.RunDate))
	if err != nil {
		return time.Time{}, fmt.Errorf("run_date: %w", err)
	}
	return t, nil
}
