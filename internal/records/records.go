// Package records defines the record-reader abstraction consumed by the
// analyzer: an ordered stream of header-keyed rows.
package records

import (
	"context"
	"io"
)

// Cell is one column value of a record.
type Cell struct {
	Name  string
	Value string
}

// Record is an ordered mapping of column name to raw string value.
//
// A record carries only the columns that are present for that row; a column
// missing from a record is simply not in the slice (it is not an empty value).
type Record []Cell

// Get returns the value of the named column and whether it is present.
func (r Record) Get(name string) (string, bool) {
	for _, c := range r {
		if c.Name == name {
			return c.Value, true
		}
	}
	return "", false
}

// Names returns the column names in record order.
func (r Record) Names() []string {
	out := make([]string, len(r))
	for i, c := range r {
		out[i] = c.Name
	}
	return out
}

// Reader yields records in input order.
//
// Next returns io.EOF once the stream is exhausted. Any other error is a
// source failure (malformed input, decoding or I/O error) and is fatal for the
// stream; callers must not call Next again after an error.
//
// The returned Record may be reused by the next call to Next, so callers that
// keep a record must copy it.
type Reader interface {
	Next(ctx context.Context) (Record, error)
	Close() error
}

// SliceReader serves records from memory.
type SliceReader struct {
	recs []Record
	pos  int
}

// NewSliceReader returns a Reader over recs.
func NewSliceReader(recs ...Record) *SliceReader {
	return &SliceReader{recs: recs}
}

// Next implements Reader.
func (s *SliceReader) Next(ctx context.Context) (Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.recs) {
		return nil, io.EOF
	}
	r := s.recs[s.pos]
	s.pos++
	return r, nil
}

// Close implements Reader.
func (s *SliceReader) Close() error { return nil }

// FromMaps builds records from column→value maps using the given column order.
// Columns missing from a map are left out of that record.
func FromMaps(columns []string, rows ...map[string]string) []Record {
	out := make([]Record, 0, len(rows))
	for _, m := range rows {
		rec := make(Record, 0, len(columns))
		for _, c := range columns {
			if v, ok := m[c]; ok {
				rec = append(rec, Cell{Name: c, Value: v})
			}
		}
		out = append(out, rec)
	}
	return out
}

// Layout turns positional rows into records under a header that may repeat
// names. Each distinct name becomes one column at the position of its first
// occurrence and holds the value of the last occurrence present in the row.
//
// The Record returned by Build is reused by the next call.
type Layout struct {
	names  []string
	slotOf []int // raw position -> index into names

	vals []string
	has  []bool
	rec  Record
}

// NewLayout returns the layout for a raw header.
func NewLayout(header []string) *Layout {
	l := &Layout{slotOf: make([]int, len(header))}
	index := make(map[string]int, len(header))
	for i, h := range header {
		s, ok := index[h]
		if !ok {
			s = len(l.names)
			index[h] = s
			l.names = append(l.names, h)
		}
		l.slotOf[i] = s
	}
	l.vals = make([]string, len(l.names))
	l.has = make([]bool, len(l.names))
	l.rec = make(Record, 0, len(l.names))
	return l
}

// Names returns the distinct column names in first-occurrence order.
func (l *Layout) Names() []string {
	return l.names
}

// Width is the raw header length.
func (l *Layout) Width() int {
	return len(l.slotOf)
}

// Build maps row onto the layout. Positions past the end of a short row are
// absent from the record. row must not be longer than Width.
func (l *Layout) Build(row []string) Record {
	for i := range l.has {
		l.has[i] = false
	}
	for i, v := range row {
		s := l.slotOf[i]
		l.vals[s] = v
		l.has[s] = true
	}

	l.rec = l.rec[:0]
	for s, name := range l.names {
		if l.has[s] {
			l.rec = append(l.rec, Cell{Name: name, Value: l.vals[s]})
		}
	}
	return l.rec
}
