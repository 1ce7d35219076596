package source

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"strconv"
	"time"

	"csvexplore/internal/records"
	"csvexplore/internal/summary"
)

// SQLRows adapts a database/sql result set to records.Reader.
//
// Column names come from the result set; values are rendered with TextValue
// and SQL NULL becomes the empty string. A name the result set repeats is one
// column holding its rightmost value.
type SQLRows struct {
	rows    *sql.Rows
	closeFn func() error

	layout *records.Layout
	vals   []any
	ptrs   []any
	text   []string
	n      int
}

// NewSQLRows wraps rows. closeFn, if non-nil, runs after rows is closed
// (typically closing the *sql.DB that produced it).
func NewSQLRows(rows *sql.Rows, closeFn func() error) (*SQLRows, error) {
	cols, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		if closeFn != nil {
			_ = closeFn()
		}
		return nil, fmt.Errorf("sql columns: %w", err)
	}

	r := &SQLRows{
		rows:    rows,
		closeFn: closeFn,
		layout:  records.NewLayout(cols),
		vals:    make([]any, len(cols)),
		ptrs:    make([]any, len(cols)),
		text:    make([]string, len(cols)),
	}
	for i := range r.vals {
		r.ptrs[i] = &r.vals[i]
	}
	return r, nil
}

// Next implements records.Reader.
func (r *SQLRows) Next(ctx context.Context) (records.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return nil, fmt.Errorf("sql row %d: %w", r.n+1, err)
		}
		return nil, io.EOF
	}
	r.n++

	if err := r.rows.Scan(r.ptrs...); err != nil {
		return nil, fmt.Errorf("sql row %d: scan: %w", r.n, err)
	}
	for i, v := range r.vals {
		r.text[i] = TextValue(v)
	}
	return r.layout.Build(r.text), nil
}

// Close closes the result set and then runs closeFn.
func (r *SQLRows) Close() error {
	err := r.rows.Close()
	if r.closeFn != nil {
		if cerr := r.closeFn(); err == nil {
			err = cerr
		}
	}
	return err
}

// TextValue renders a database value as the text a delimited export would
// carry: integers in decimal, floats with summary.FormatFloat, byte slices as
// UTF-8, times as RFC 3339, NULL as "".
func TextValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int16:
		return strconv.FormatInt(int64(t), 10)
	case int8:
		return strconv.FormatInt(int64(t), 10)
	case int:
		return strconv.Itoa(t)
	case uint64:
		return strconv.FormatUint(t, 10)
	case uint32:
		return strconv.FormatUint(uint64(t), 10)
	case float64:
		return summary.FormatFloat(t)
	case float32:
		// Widen through the shortest float32 text so 0.1 stays 0.1.
		f, _ := strconv.ParseFloat(strconv.FormatFloat(float64(t), 'g', -1, 32), 64)
		return summary.FormatFloat(f)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.Format(time.RFC3339Nano)
	case driver.Valuer:
		dv, err := t.Value()
		if err != nil {
			return fmt.Sprint(v)
		}
		if _, same := dv.(driver.Valuer); same {
			return fmt.Sprint(dv)
		}
		return TextValue(dv)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}

var _ records.Reader = (*SQLRows)(nil)
