package report

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"csvexplore/internal/analyze"
	"csvexplore/internal/summary"
)

// Text writes one line per column:
//
//	<source>: <column>: Field(has_empties=False, is_int=True, ...): VARCHAR(n)
type Text struct {
	w *bufio.Writer
}

// NewText returns a text Writer.
func NewText(w io.Writer) *Text {
	return &Text{w: bufio.NewWriter(w)}
}

// Write implements Writer. Output is flushed after every report so lines are
// not held back behind progress logging of the next input.
func (t *Text) Write(rep analyze.Report) error {
	for _, c := range rep.Columns {
		t.w.WriteString(c.Source)
		t.w.WriteString(": ")
		t.w.WriteString(c.Name)
		t.w.WriteString(": ")
		t.w.WriteString(FormatField(c.Field))
		t.w.WriteString(": VARCHAR(")
		t.w.WriteString(strconv.Itoa(c.Width))
		t.w.WriteString(")\n")
	}
	return t.w.Flush()
}

// Close implements Writer.
func (t *Text) Close() error {
	return t.w.Flush()
}

// FormatField renders f as
// Field(has_empties=<b>, is_int=<b>, is_float=<b>, shortest_value='<s>', longest_value='<s>').
//
// Values are always wrapped in single quotes, whatever they contain; a
// backslash, a single quote or a line break inside a value is backslash
// escaped. This is a display layout for people reading the report, not a
// stable interchange format; use the json or yaml formats for that.
func FormatField(f summary.Field) string {
	var b strings.Builder
	b.WriteString("Field(has_empties=")
	b.WriteString(pyBool(f.HasEmpties))
	b.WriteString(", is_int=")
	b.WriteString(pyBool(f.IsInt))
	b.WriteString(", is_float=")
	b.WriteString(pyBool(f.IsFloat))
	b.WriteString(", shortest_value=")
	b.WriteString(quote(f.ShortestValue))
	b.WriteString(", longest_value=")
	b.WriteString(quote(f.LongestValue))
	b.WriteString(")")
	return b.String()
}

func pyBool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}

// quote single-quotes s, escaping backslashes, quotes and line breaks so each
// column stays on one line.
func quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\'`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}
