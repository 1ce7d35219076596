// Package analyze drives one input through the column summaries and produces
// its report.
package analyze

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"time"

	"github.com/dustin/go-humanize"

	"csvexplore/internal/metrics"
	"csvexplore/internal/records"
	"csvexplore/internal/summary"
)

// DefaultProgressEvery is the progress interval callers use when nothing is
// configured.
const DefaultProgressEvery = 1000

// Logger is the minimal logging interface used for progress lines.
// *log.Logger satisfies this interface.
type Logger interface {
	Printf(format string, v ...any)
}

// Options tunes a single Analyze call.
type Options struct {
	// ProgressEvery logs a progress line every N records. Zero or negative
	// disables progress logging.
	ProgressEvery int

	// Logger receives progress lines. Nil means log.Default().
	Logger Logger
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return o
}

// Column is the finished summary of one column.
type Column struct {
	Source string
	Name   string
	Field  summary.Field

	// Width is the suggested VARCHAR width, Field.Width().
	Width int
}

// Report is the result of analyzing one input.
type Report struct {
	Source  string
	Records int64
	Columns []Column
	Elapsed time.Duration
}

// ColumnTable maps column name to its running summary. The zero value is
// ready to use. Entries are created on first sight and never removed.
type ColumnTable struct {
	fields map[string]summary.Field
}

// Merge folds value into the named column's summary.
func (t *ColumnTable) Merge(name, value string) {
	if t.fields == nil {
		t.fields = make(map[string]summary.Field)
	}
	if cur, ok := t.fields[name]; ok {
		t.fields[name] = summary.Merge(&cur, value)
		return
	}
	t.fields[name] = summary.Merge(nil, value)
}

// Len returns the number of columns seen.
func (t *ColumnTable) Len() int {
	return len(t.fields)
}

// Lookup returns the named column's summary, or nil if it was never seen.
func (t *ColumnTable) Lookup(name string) *summary.Field {
	f, ok := t.fields[name]
	if !ok {
		return nil
	}
	return &f
}

// Columns returns every column's summary sorted ascending by name.
func (t *ColumnTable) Columns(source string) []Column {
	names := make([]string, 0, len(t.fields))
	for name := range t.fields {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Column, len(names))
	for i, name := range names {
		f := t.fields[name]
		out[i] = Column{Source: source, Name: name, Field: f, Width: f.Width()}
	}
	return out
}

// Analyze reads r to the end, merging every present cell into a fresh
// ColumnTable, and returns the sorted report.
//
// Columns missing from a record are left untouched. A read error or context
// cancellation aborts the input; no partial report is returned. Analyze does
// not close r.
func Analyze(ctx context.Context, source string, r records.Reader, opt Options) (Report, error) {
	opt = opt.withDefaults()
	start := time.Now()

	var (
		table   ColumnTable
		n       int64
		flushed int64
	)
	flushRecords := func() {
		if d := n - flushed; d > 0 {
			metrics.IncCounter(metrics.RecordsTotal, float64(d), nil)
			flushed = n
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			flushRecords()
			return Report{}, fmt.Errorf("analyze %s: %w", source, err)
		}

		rec, err := r.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			flushRecords()
			return Report{}, fmt.Errorf("analyze %s: %w", source, err)
		}

		for _, c := range rec {
			table.Merge(c.Name, c.Value)
		}
		n++

		if opt.ProgressEvery > 0 && n%int64(opt.ProgressEvery) == 0 {
			opt.Logger.Printf("%s: %s records...", source, humanize.Comma(n))
			flushRecords()
		}
	}
	flushRecords()

	cols := table.Columns(source)
	metrics.IncCounter(metrics.ColumnsTotal, float64(len(cols)), nil)

	return Report{
		Source:  source,
		Records: n,
		Columns: cols,
		Elapsed: time.Since(start),
	}, nil
}
