package report

import (
	"io"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"csvexplore/internal/analyze"
	"csvexplore/internal/summary"
)

// document is the wire shape of one report in the structured formats.
type document struct {
	Source    string   `json:"source" yaml:"source"`
	Records   int64    `json:"records" yaml:"records"`
	ElapsedMS int64    `json:"elapsed_ms" yaml:"elapsed_ms"`
	Columns   []column `json:"columns" yaml:"columns"`
}

type column struct {
	Name          string `json:"column" yaml:"column"`
	summary.Field `yaml:",inline"`
	Varchar       int `json:"varchar" yaml:"varchar"`
}

func toDocument(rep analyze.Report) document {
	doc := document{
		Source:    rep.Source,
		Records:   rep.Records,
		ElapsedMS: rep.Elapsed.Milliseconds(),
		Columns:   make([]column, len(rep.Columns)),
	}
	for i, c := range rep.Columns {
		doc.Columns[i] = column{Name: c.Name, Field: c.Field, Varchar: c.Width}
	}
	return doc
}

// JSON writes one JSON object per report, newline delimited.
type JSON struct {
	enc *json.Encoder
}

// NewJSON returns a newline-delimited JSON Writer.
func NewJSON(w io.Writer) *JSON {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &JSON{enc: enc}
}

// Write implements Writer.
func (j *JSON) Write(rep analyze.Report) error {
	return j.enc.Encode(toDocument(rep))
}

// Close implements Writer.
func (j *JSON) Close() error { return nil }

// YAML writes one YAML document per report.
type YAML struct {
	enc *yaml.Encoder
}

// NewYAML returns a YAML Writer.
func NewYAML(w io.Writer) *YAML {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	return &YAML{enc: enc}
}

// Write implements Writer.
func (y *YAML) Write(rep analyze.Report) error {
	return y.enc.Encode(toDocument(rep))
}

// Close implements Writer.
func (y *YAML) Close() error {
	return y.enc.Close()
}
