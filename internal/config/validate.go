package config

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/encoding/htmlindex"

	"csvexplore/internal/report"
	"csvexplore/internal/source"
)

// Severity classifies a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one validation finding. Path names the offending setting, e.g.
// "inputs[2].query".
type Issue struct {
	Severity Severity
	Path     string
	Message  string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.Path, i.Message)
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

var sqlKinds = map[string]bool{"postgres": true, "mssql": true, "sqlite": true}

// Validate checks cfg and returns every issue found.
func Validate(cfg Config) []Issue {
	var issues []Issue
	add := func(sev Severity, path, format string, args ...any) {
		issues = append(issues, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, args...)})
	}

	format := strings.ToLower(strings.TrimSpace(cfg.Format))
	if format != "" && !slices.Contains(report.Formats(), format) {
		add(SeverityError, "format", "unknown format %q (want one of %s)", cfg.Format, strings.Join(report.Formats(), ", "))
	}
	if _, err := report.LookupDialect(cfg.Dialect); err != nil {
		sev := SeverityWarning
		if format == "sql" {
			sev = SeverityError
		}
		add(sev, "dialect", "%v", err)
	}
	if cfg.Encoding != "" {
		if _, err := htmlindex.Get(cfg.Encoding); err != nil {
			add(SeverityError, "encoding", "unsupported encoding %q", cfg.Encoding)
		}
	}

	switch strings.ToLower(cfg.Metrics.Backend) {
	case "", "none", "datadog":
	default:
		add(SeverityError, "metrics.backend", "unknown backend %q (want datadog or none)", cfg.Metrics.Backend)
	}
	if cfg.Metrics.FlushEvery < 0 {
		add(SeverityError, "metrics.flush_every", "must not be negative")
	}

	for i, in := range cfg.Inputs {
		p := fmt.Sprintf("inputs[%d]", i)
		kind := strings.ToLower(in.Kind)
		if kind == "" && in.Path != "" {
			kind = source.DetectKind(in.Path)
		}

		switch {
		case sqlKinds[kind]:
			if in.Query == "" {
				add(SeverityError, p+".query", "required for kind %q", kind)
			}
			if in.DSN == "" {
				add(SeverityError, p+".dsn", "required for kind %q", kind)
			}
			if in.Path != "" {
				add(SeverityWarning, p+".path", "ignored for kind %q", kind)
			}
		case kind == "csv" || kind == "json" || kind == "html":
			if in.Path == "" {
				add(SeverityError, p+".path", "required for kind %q", kind)
			}
		case kind == "":
			add(SeverityError, p, "needs a path or a kind")
		default:
			add(SeverityError, p+".kind", "unknown kind %q", in.Kind)
		}

		if in.Encoding != "" {
			if _, err := htmlindex.Get(in.Encoding); err != nil {
				add(SeverityError, p+".encoding", "unsupported encoding %q", in.Encoding)
			}
		}
	}

	return issues
}
