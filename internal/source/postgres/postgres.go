// Package postgres registers the "postgres" source kind: the result set of a
// query run through a pgx connection pool.
package postgres

import (
	"context"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"csvexplore/internal/records"
	"csvexplore/internal/source"
)

func init() {
	source.Register("postgres", Open)
}

// Rows adapts pgx.Rows to records.Reader.
type Rows struct {
	pool *pgxpool.Pool
	rows pgx.Rows

	layout *records.Layout
	text   []string
	n      int
}

// Open connects to spec.DSN and runs spec.Query.
func Open(ctx context.Context, spec source.Spec) (records.Reader, error) {
	if spec.Query == "" {
		return nil, fmt.Errorf("postgres source: missing query")
	}

	pool, err := pgxpool.New(ctx, spec.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}

	rows, err := pool.Query(ctx, spec.Query)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres query: %w", err)
	}

	fds := rows.FieldDescriptions()
	cols := make([]string, len(fds))
	for i, fd := range fds {
		cols[i] = fd.Name
	}

	return &Rows{
		pool:   pool,
		rows:   rows,
		layout: records.NewLayout(cols),
		text:   make([]string, len(cols)),
	}, nil
}

// Next implements records.Reader.
func (r *Rows) Next(ctx context.Context) (records.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return nil, fmt.Errorf("postgres row %d: %w", r.n+1, err)
		}
		return nil, io.EOF
	}
	r.n++

	vals, err := r.rows.Values()
	if err != nil {
		return nil, fmt.Errorf("postgres row %d: %w", r.n, err)
	}
	for i, v := range vals {
		r.text[i] = source.TextValue(v)
	}
	return r.layout.Build(r.text), nil
}

// Close releases the result set and the pool.
func (r *Rows) Close() error {
	r.rows.Close()
	r.pool.Close()
	return nil
}
