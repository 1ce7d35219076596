package report

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"csvexplore/internal/analyze"
)

// Dialect renders column types and identifiers for one SQL engine.
type Dialect struct {
	Name  string
	Quote func(ident string) string

	// Int returns the integer type able to hold values up to width characters.
	Int   func(width int) string
	Float string
	Text  func(width int) string
}

var dialects = map[string]Dialect{
	"postgres": {
		Name:  "postgres",
		Quote: func(s string) string { return pgx.Identifier{s}.Sanitize() },
		Int: func(w int) string {
			switch {
			case w <= 9:
				return "INTEGER"
			case w <= 18:
				return "BIGINT"
			default:
				return "NUMERIC(" + strconv.Itoa(w) + ")"
			}
		},
		Float: "DOUBLE PRECISION",
		Text:  func(w int) string { return "VARCHAR(" + strconv.Itoa(w) + ")" },
	},
	"mssql": {
		Name:  "mssql",
		Quote: func(s string) string { return "[" + strings.ReplaceAll(s, "]", "]]") + "]" },
		Int: func(w int) string {
			switch {
			case w <= 9:
				return "INT"
			case w <= 18:
				return "BIGINT"
			case w <= 38:
				return "DECIMAL(38,0)"
			default:
				return "NVARCHAR(" + strconv.Itoa(w) + ")"
			}
		},
		Float: "FLOAT",
		Text: func(w int) string {
			if w > 4000 {
				return "NVARCHAR(MAX)"
			}
			return "NVARCHAR(" + strconv.Itoa(w) + ")"
		},
	},
	"sqlite": {
		Name:  "sqlite",
		Quote: func(s string) string { return `"` + strings.ReplaceAll(s, `"`, `""`) + `"` },
		Int: func(w int) string {
			if w <= 18 {
				return "INTEGER"
			}
			return "NUMERIC"
		},
		Float: "REAL",
		Text:  func(w int) string { return "VARCHAR(" + strconv.Itoa(w) + ")" },
	},
}

// LookupDialect returns the named dialect. Empty means postgres.
func LookupDialect(name string) (Dialect, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "":
		name = "postgres"
	case "pg", "postgresql":
		name = "postgres"
	case "sqlserver":
		name = "mssql"
	case "sqlite3":
		name = "sqlite"
	}
	d, ok := dialects[name]
	if !ok {
		return Dialect{}, fmt.Errorf("%w: %q", ErrUnknownDialect, name)
	}
	return d, nil
}

// ColumnType returns the column type for c: integer, float, or text sized to
// the longest value (at least 1).
func (d Dialect) ColumnType(c analyze.Column) string {
	switch {
	case c.Field.IsInt:
		return d.Int(c.Width)
	case c.Field.IsFloat:
		return d.Float
	default:
		return d.Text(max(c.Width, 1))
	}
}

// SQL writes a CREATE TABLE statement per report.
type SQL struct {
	w       *bufio.Writer
	dialect Dialect
}

// NewSQL returns a SQL DDL Writer for the named dialect.
func NewSQL(w io.Writer, dialect string) (*SQL, error) {
	d, err := LookupDialect(dialect)
	if err != nil {
		return nil, err
	}
	return &SQL{w: bufio.NewWriter(w), dialect: d}, nil
}

// Write implements Writer.
func (s *SQL) Write(rep analyze.Report) error {
	fmt.Fprintf(s.w, "-- %s: %d records\n", rep.Source, rep.Records)
	if len(rep.Columns) == 0 {
		s.w.WriteString("-- no columns\n\n")
		return s.w.Flush()
	}

	fmt.Fprintf(s.w, "CREATE TABLE %s (\n", s.dialect.Quote(TableName(rep.Source)))
	for i, c := range rep.Columns {
		s.w.WriteString("    ")
		s.w.WriteString(s.dialect.Quote(c.Name))
		s.w.WriteString(" ")
		s.w.WriteString(s.dialect.ColumnType(c))
		if !c.Field.HasEmpties {
			s.w.WriteString(" NOT NULL")
		}
		if i < len(rep.Columns)-1 {
			s.w.WriteString(",")
		}
		s.w.WriteString("\n")
	}
	s.w.WriteString(");\n\n")
	return s.w.Flush()
}

// Close implements Writer.
func (s *SQL) Close() error {
	return s.w.Flush()
}

// TableName derives a table name from a report source: the file name up to
// its first dot. Sources without a usable file name map to "explored".
func TableName(source string) string {
	if strings.Contains(source, ":") && !strings.ContainsAny(source, `/\`) {
		return "explored"
	}
	name := filepath.Base(source)
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[:i]
	}
	if name == "" || name == "-" {
		return "explored"
	}
	return name
}
