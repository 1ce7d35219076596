// Package html reads header-keyed records from the first <table> of an HTML
// document.
package html

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"csvexplore/internal/records"
)

// Reader yields one record per table row after the header row.
//
// The first row of the first table (th or td cells) is the header. Cell values
// are the rendered cell text with surrounding whitespace removed, since markup
// indentation is not part of the value. Rows shorter than the header carry only
// the columns they have; rows with more cells than the header are an error. A
// repeated header name is one column holding the last value in the row.
//
// Unlike the CSV and JSON readers the whole document is parsed up front:
// goquery works on a DOM, not a token stream.
type Reader struct {
	layout *records.Layout
	rows   [][]string
	pos    int
}

// NewReader parses r and returns a Reader over its first table. A document
// without a table yields no records.
func NewReader(r io.Reader) (*Reader, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	rd := &Reader{layout: records.NewLayout(nil)}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return rd, nil
	}

	var header []string

	table.Find("tr").Each(func(i int, tr *goquery.Selection) {
		// Rows of nested tables belong to another table.
		if tr.ParentsFiltered("table").First().Get(0) != table.Get(0) {
			return
		}
		var cells []string
		tr.ChildrenFiltered("th, td").Each(func(_ int, td *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(td.Text()))
		})
		if header == nil {
			header = cells
			return
		}
		rd.rows = append(rd.rows, cells)
	})
	rd.layout = records.NewLayout(header)

	return rd, nil
}

// Header returns the distinct header names in first-occurrence order.
func (r *Reader) Header() []string {
	return r.layout.Names()
}

// Next implements records.Reader.
func (r *Reader) Next(ctx context.Context) (records.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.pos >= len(r.rows) {
		return nil, io.EOF
	}
	row := r.rows[r.pos]
	r.pos++

	if w := r.layout.Width(); len(row) > w {
		return nil, fmt.Errorf("html row %d: %d cells, header has %d", r.pos, len(row), w)
	}
	return r.layout.Build(row), nil
}

// Close implements records.Reader.
func (r *Reader) Close() error { return nil }

var _ records.Reader = (*Reader)(nil)
