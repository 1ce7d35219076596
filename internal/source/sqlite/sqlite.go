// Package sqlite registers the "sqlite" source kind: the result set of a query
// against a SQLite database (modernc.org/sqlite, no cgo).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"csvexplore/internal/records"
	"csvexplore/internal/source"
)

func init() {
	source.Register("sqlite", Open)
}

// Open opens spec.DSN (a path or "file:..." DSN) and runs spec.Query.
func Open(ctx context.Context, spec source.Spec) (records.Reader, error) {
	if spec.Query == "" {
		return nil, fmt.Errorf("sqlite source: missing query")
	}

	db, err := sql.Open("sqlite", spec.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	rows, err := db.QueryContext(ctx, spec.Query)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite query: %w", err)
	}
	return source.NewSQLRows(rows, db.Close)
}
