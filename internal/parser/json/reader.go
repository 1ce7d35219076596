// Package json reads header-keyed records from JSON input: either a root array
// of objects or a stream of concatenated / newline-delimited objects.
package json

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"csvexplore/internal/records"
)

// Reader streams one record per JSON object.
//
// Object keys become column names (sorted per record, since JSON objects are
// unordered). Scalars are rendered as their JSON text: strings verbatim,
// numbers exactly as written, booleans "true"/"false", null as "". Nested
// arrays and objects are kept as compact JSON text.
type Reader struct {
	br  *bufio.Reader
	dec *json.Decoder
	src io.Closer

	started bool
	inArray bool
	count   int
	rec     records.Record
}

// NewReader returns a Reader over r. If r is an io.Closer it is closed by
// Close.
func NewReader(r io.Reader) *Reader {
	rd := &Reader{br: bufio.NewReader(r)}
	if c, ok := r.(io.Closer); ok {
		rd.src = c
	}
	return rd
}

// Next implements records.Reader.
func (r *Reader) Next(ctx context.Context) (records.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !r.started {
		r.started = true
		if err := r.start(); err != nil {
			return nil, err
		}
	}

	if r.inArray && !r.dec.More() {
		// Consume closing ']' and continue with any trailing objects.
		if _, err := r.dec.Token(); err != nil {
			return nil, fmt.Errorf("json: read array end: %w", err)
		}
		r.inArray = false
	}

	var obj map[string]any
	if err := r.dec.Decode(&obj); err != nil {
		if err == io.EOF && !r.inArray {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("json: record %d: %w", r.count+1, err)
	}
	r.count++

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	r.rec = r.rec[:0]
	for _, k := range keys {
		v, err := scalarText(obj[k])
		if err != nil {
			return nil, fmt.Errorf("json: record %d field %q: %w", r.count, k, err)
		}
		r.rec = append(r.rec, records.Cell{Name: k, Value: v})
	}
	return r.rec, nil
}

// Close closes the underlying input if it is closable.
func (r *Reader) Close() error {
	if r.src == nil {
		return nil
	}
	return r.src.Close()
}

// start peeks the first non-space byte: '[' switches to array mode, anything
// else is decoded as a stream of objects.
func (r *Reader) start() error {
	for {
		b, err := r.br.ReadByte()
		if err == io.EOF {
			r.dec = json.NewDecoder(r.br)
			r.dec.UseNumber()
			return nil
		}
		if err != nil {
			return fmt.Errorf("json: read first token: %w", err)
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		if err := r.br.UnreadByte(); err != nil {
			return err
		}
		r.dec = json.NewDecoder(r.br)
		r.dec.UseNumber()
		if b != '[' {
			return nil
		}
		if _, err := r.dec.Token(); err != nil {
			return fmt.Errorf("json: read first token: %w", err)
		}
		r.inArray = true
		return nil
	}
}

func scalarText(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case bool:
		if t {
			return "true", nil
		}
		return "false", nil
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}

var _ records.Reader = (*Reader)(nil)
