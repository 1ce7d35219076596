// Package csv reads header-keyed records from comma-delimited text.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"csvexplore/internal/records"
)

// ErrExtraFields is returned for a record with more fields than the header.
var ErrExtraFields = errors.New("record has more fields than header")

// Reader streams records from CSV input. The first row is the header.
//
// Values are passed through verbatim: no trimming and no empty→null mapping,
// since both would change the column summaries. A row shorter than the header
// only carries the columns it has values for.
//
// When the header repeats a name, the column appears once per record (at its
// first position) holding the value of the last occurrence present in the row.
type Reader struct {
	cr  *csv.Reader
	src io.Closer

	layout *records.Layout

	started bool
	line    int
}

// NewReader returns a Reader over r. If r is an io.Closer it is closed by
// Close.
func NewReader(r io.Reader) *Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // validated against the header per record
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	rd := &Reader{cr: cr}
	if c, ok := r.(io.Closer); ok {
		rd.src = c
	}
	return rd
}

// Header returns the column names in first-occurrence order. It is empty until
// the first call to Next.
func (r *Reader) Header() []string {
	if r.layout == nil {
		return nil
	}
	return r.layout.Names()
}

// Line returns the input line on which the most recent record started.
func (r *Reader) Line() int {
	return r.line
}

// Next implements records.Reader.
func (r *Reader) Next(ctx context.Context) (records.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !r.started {
		r.started = true
		if err := r.readHeader(); err != nil {
			return nil, err
		}
	}

	row, err := r.cr.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("csv read: %w", err)
	}
	r.line, _ = r.cr.FieldPos(0)

	if w := r.layout.Width(); len(row) > w {
		return nil, fmt.Errorf("line %d: %w (%d > %d)", r.line, ErrExtraFields, len(row), w)
	}
	return r.layout.Build(row), nil
}

// Close closes the underlying input if it is closable.
func (r *Reader) Close() error {
	if r.src == nil {
		return nil
	}
	return r.src.Close()
}

func (r *Reader) readHeader() error {
	hdr, err := r.cr.Read()
	if err == io.EOF {
		// No header at all: an empty input has no columns and no records.
		return io.EOF
	}
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	r.line, _ = r.cr.FieldPos(0)

	// hdr is reused by the next Read.
	names := append([]string(nil), hdr...)
	if len(names) > 0 {
		names[0] = strings.TrimPrefix(names[0], "\uFEFF")
	}
	r.layout = records.NewLayout(names)
	return nil
}

var _ records.Reader = (*Reader)(nil)
