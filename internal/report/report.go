// Package report renders analyze.Report values.
//
// Formats:
//   - text: one line per column, the default
//   - json: one JSON object per input, newline delimited
//   - yaml: one YAML document per input
//   - sql:  a CREATE TABLE statement per input for a SQL dialect
package report

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"csvexplore/internal/analyze"
)

var (
	// ErrUnknownFormat is returned by New for an unsupported format name.
	ErrUnknownFormat = errors.New("unknown report format")

	// ErrUnknownDialect is returned by New for an unsupported SQL dialect.
	ErrUnknownDialect = errors.New("unknown sql dialect")
)

// Writer emits reports in input order.
type Writer interface {
	Write(rep analyze.Report) error
	Close() error
}

// Options selects the output format.
type Options struct {
	// Format is "text", "json", "yaml" or "sql". Empty means "text".
	Format string

	// Dialect is the SQL dialect for the sql format: "postgres", "mssql" or
	// "sqlite". Empty means "postgres".
	Dialect string
}

var constructors = map[string]func(w io.Writer, opt Options) (Writer, error){
	"text": func(w io.Writer, _ Options) (Writer, error) { return NewText(w), nil },
	"json": func(w io.Writer, _ Options) (Writer, error) { return NewJSON(w), nil },
	"yaml": func(w io.Writer, _ Options) (Writer, error) { return NewYAML(w), nil },
	"sql":  func(w io.Writer, opt Options) (Writer, error) { return NewSQL(w, opt.Dialect) },
}

// Formats returns the supported format names, sorted.
func Formats() []string {
	out := make([]string, 0, len(constructors))
	for k := range constructors {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// New returns a Writer for opt.Format writing to w.
func New(w io.Writer, opt Options) (Writer, error) {
	format := strings.ToLower(strings.TrimSpace(opt.Format))
	if format == "" {
		format = "text"
	}
	ctor, ok := constructors[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q (want one of %s)", ErrUnknownFormat, opt.Format, strings.Join(Formats(), ", "))
	}
	return ctor(w, opt)
}
