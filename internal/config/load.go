package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "dmlgen"

// Load reads the pipeline file at path (skipped when path is empty), applies
// DMLGEN_* environment overrides and then defaults.
func Load(path string) (Pipeline, error) {
	var p Pipeline
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return Pipeline{}, fmt.Errorf("open config: %w", err)
		}
		defer f.Close()
		if p, err = Decode(f); err != nil {
			return Pipeline{}, fmt.Errorf("decode config %s: %w", path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, &p); err != nil {
		return Pipeline{}, fmt.Errorf("config env: %w", err)
	}
	p.ApplyDefaults()
	return p, nil
}

// Decode parses one pipeline document. Unknown keys are rejected so typos
// surface instead of silently falling back to defaults.
func Decode(r io.Reader) (Pipeline, error) {
	var p Pipeline
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return Pipeline{}, err
	}
	return p, nil
}
