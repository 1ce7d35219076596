package source

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"csvexplore/internal/records"
)

func TestDetectKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want string
	}{
		{"data.csv", "csv"},
		{"dir/data.csv.gz", "csv"},
		{"DATA.CSV", "csv"},
		{"events.jsonl", "json"},
		{"events.json.bz2", "json"},
		{"page.html", "html"},
		{"page.htm.gz", "html"},
		{"noext", "csv"},
		{"table.dat", "csv"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectKind(tt.path), "DetectKind(%q)", tt.path)
	}
}

func TestDetectCompression(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "gzip", DetectCompression("a.csv.gz"))
	assert.Equal(t, "bzip2", DetectCompression("a.csv.bz2"))
	assert.Equal(t, "", DetectCompression("a.csv"))
}

func TestSpecLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a.csv", Spec{Path: "a.csv"}.Label())
	assert.Equal(t, "named", Spec{Path: "a.csv", Name: "named"}.Label())
	assert.Equal(t, "sqlite:select 1", Spec{Kind: "sqlite", Query: "select 1"}.Label())
}

func TestKindsIncludesFileKinds(t *testing.T) {
	t.Parallel()
	assert.Subset(t, Kinds(), []string{"csv", "html", "json"})
}

func TestOpenUnknownKind(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), Spec{Kind: "parquet", Path: "x"})
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func drain(t *testing.T, r records.Reader) []records.Record {
	t.Helper()
	var out []records.Record
	for {
		rec, err := r.Next(context.Background())
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, append(records.Record(nil), rec...))
	}
}

func TestOpenGzipCSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte("id,name\n1,a\n2,b\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	path := filepath.Join(t.TempDir(), "data.csv.gz")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	r, err := Open(context.Background(), Spec{Path: path})
	require.NoError(t, err)
	defer r.Close()

	got := drain(t, r)
	require.Len(t, got, 2)
	v, _ := got[1].Get("name")
	assert.Equal(t, "b", v)
}

func TestOpenEncodedCSV(t *testing.T) {
	t.Parallel()

	enc, err := charmap.Windows1250.NewEncoder().String("město,počet\nŽďár,3\n")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "cz.csv")
	require.NoError(t, os.WriteFile(path, []byte(enc), 0o600))

	r, err := Open(context.Background(), Spec{Path: path, Encoding: "windows-1250"})
	require.NoError(t, err)
	defer r.Close()

	got := drain(t, r)
	require.Len(t, got, 1)
	assert.Equal(t, records.Record{{Name: "město", Value: "Žďár"}, {Name: "počet", Value: "3"}}, got[0])
}

func TestOpenFileErrors(t *testing.T) {
	t.Parallel()

	_, err := OpenFile(Spec{Path: "a.csv", Compression: "zstd"})
	assert.ErrorContains(t, err, "compression type not supported")

	_, err = OpenFile(Spec{Path: "a.csv", Encoding: "no-such-charset"})
	assert.ErrorContains(t, err, "unsupported encoding")

	_, err = OpenFile(Spec{Path: filepath.Join(t.TempDir(), "missing.csv")})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLookupEncodingUTF8IsPassthrough(t *testing.T) {
	t.Parallel()

	enc, err := lookupEncoding("utf-8")
	require.NoError(t, err)
	assert.Nil(t, enc)
}

type stringer struct{}

func (stringer) String() string { return "str" }

func TestTextValue(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"x", "x"},
		{[]byte("raw"), "raw"},
		{int64(-42), "-42"},
		{int32(7), "7"},
		{uint64(9), "9"},
		{1.5, "1.5"},
		{float64(3), "3.0"},
		{float32(0.1), "0.1"},
		{math.Inf(1), "inf"},
		{true, "true"},
		{ts, "2024-02-01T10:00:00Z"},
		{stringer{}, "str"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TextValue(tt.in), "TextValue(%#v)", tt.in)
	}
}
