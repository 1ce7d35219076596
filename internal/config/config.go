// Package config loads csvexplore run settings.
//
// Settings come from an optional YAML file, then environment variables, then
// command-line flags (applied by the caller), each layer overriding the one
// before it. Validate reports problems as a list of issues rather than
// failing on the first one.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"csvexplore/internal/analyze"
	"csvexplore/internal/metrics/datadog"
	"csvexplore/internal/source"
)

// Config is the full set of run settings.
type Config struct {
	// Format is the report format: text, json, yaml or sql.
	Format string `yaml:"format"`

	// Dialect is the SQL dialect used by the sql format.
	Dialect string `yaml:"dialect"`

	// Encoding is the default text encoding for file inputs.
	Encoding string `yaml:"encoding"`

	// ProgressEvery is the record interval between progress log lines;
	// zero or negative disables them.
	ProgressEvery int `yaml:"progress_every"`

	// KeepGoing skips failed inputs instead of aborting the run.
	KeepGoing bool `yaml:"keep_going"`

	Verbose bool `yaml:"verbose"`

	Metrics Metrics `yaml:"metrics"`

	// Inputs are analyzed before any paths given on the command line.
	Inputs []Input `yaml:"inputs"`
}

// Metrics configures the metrics backend.
type Metrics struct {
	// Backend is "datadog" or "none".
	Backend    string        `yaml:"backend"`
	Job        string        `yaml:"job"`
	Tags       []string      `yaml:"tags"`
	FlushEvery time.Duration `yaml:"flush_every"`
}

// Input describes one input in the config file.
type Input struct {
	Name        string `yaml:"name"`
	Kind        string `yaml:"kind"`
	Path        string `yaml:"path"`
	Encoding    string `yaml:"encoding"`
	Compression string `yaml:"compression"`
	DSN         string `yaml:"dsn"`
	Query       string `yaml:"query"`
}

// Spec converts in to a source.Spec, falling back to defaultEncoding.
func (in Input) Spec(defaultEncoding string) source.Spec {
	enc := in.Encoding
	if enc == "" {
		enc = defaultEncoding
	}
	return source.Spec{
		Kind:        in.Kind,
		Path:        in.Path,
		Encoding:    enc,
		Compression: in.Compression,
		DSN:         in.DSN,
		Query:       in.Query,
		Name:        in.Name,
	}
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Format:        "text",
		Dialect:       "postgres",
		ProgressEvery: analyze.DefaultProgressEvery,
		Metrics: Metrics{
			Backend:    "none",
			Job:        "csvexplore",
			FlushEvery: 60 * time.Second,
		},
	}
}

// Load reads the YAML file at path over Default(). Unknown keys are errors.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(b)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over Default(). An empty document yields the defaults.
func Parse(b []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overlays environment settings read through getenv:
//
//	CSVEXPLORE_FORMAT, CSVEXPLORE_DIALECT, CSVEXPLORE_ENCODING,
//	CSVEXPLORE_PROGRESS_EVERY, CSVEXPLORE_KEEP_GOING,
//	METRICS_BACKEND, METRICS_TAGS (comma separated)
//
// Malformed numeric or boolean values are returned as an error.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	str("CSVEXPLORE_FORMAT", &cfg.Format)
	str("CSVEXPLORE_DIALECT", &cfg.Dialect)
	str("CSVEXPLORE_ENCODING", &cfg.Encoding)
	str("METRICS_BACKEND", &cfg.Metrics.Backend)

	if v := strings.TrimSpace(getenv("CSVEXPLORE_PROGRESS_EVERY")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CSVEXPLORE_PROGRESS_EVERY: %w", err)
		}
		cfg.ProgressEvery = n
	}
	if v := strings.TrimSpace(getenv("CSVEXPLORE_KEEP_GOING")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("CSVEXPLORE_KEEP_GOING: %w", err)
		}
		cfg.KeepGoing = b
	}
	if v := getenv("METRICS_TAGS"); v != "" {
		cfg.Metrics.Tags = append(cfg.Metrics.Tags, datadog.ParseTagsCSV(v)...)
	}
	return nil
}
