package source

import (
	"compress/bzip2"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"

	csvparser "csvexplore/internal/parser/csv"
	htmlparser "csvexplore/internal/parser/html"
	jsonparser "csvexplore/internal/parser/json"
	"csvexplore/internal/records"
)

func init() {
	Register("csv", openCSV)
	Register("json", openJSON)
	Register("html", openHTML)
}

func openCSV(_ context.Context, spec Spec) (records.Reader, error) {
	rc, err := OpenFile(spec)
	if err != nil {
		return nil, err
	}
	return csvparser.NewReader(rc), nil
}

func openJSON(_ context.Context, spec Spec) (records.Reader, error) {
	rc, err := OpenFile(spec)
	if err != nil {
		return nil, err
	}
	return jsonparser.NewReader(rc), nil
}

func openHTML(_ context.Context, spec Spec) (records.Reader, error) {
	rc, err := OpenFile(spec)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return htmlparser.NewReader(rc)
}

// DetectKind infers the file kind from the path's extensions, ignoring any
// compression suffix. Unknown extensions are read as CSV.
func DetectKind(path string) string {
	_, name := filepath.Split(path)
	exts := strings.Split(strings.ToLower(name), ".")[1:]

	kind := "csv"
	for _, ext := range exts {
		switch ext {
		case "csv", "txt":
			kind = "csv"
		case "json", "jsonl", "ndjson", "ldjson":
			kind = "json"
		case "html", "htm":
			kind = "html"
		}
	}
	return kind
}

// DetectCompression infers the compression from the path's final extension.
func DetectCompression(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gzip", ".gz":
		return "gzip"
	case ".bzip2", ".bz2":
		return "bzip2"
	}
	return ""
}

// OpenFile opens spec.Path ("-" is stdin), then applies decompression and text
// decoding so the returned stream is UTF-8.
func OpenFile(spec Spec) (io.ReadCloser, error) {
	compr := strings.ToLower(spec.Compression)
	if compr == "" {
		compr = DetectCompression(spec.Path)
	}

	// Validate before touching the file system.
	switch compr {
	case "gzip", "gz", "bzip2", "bz2", "", "none":
	default:
		return nil, fmt.Errorf("compression type not supported: %s", spec.Compression)
	}
	enc, err := lookupEncoding(spec.Encoding)
	if err != nil {
		return nil, err
	}

	f := &file{}
	if spec.Path == "" || spec.Path == "-" {
		f.r = os.Stdin
	} else {
		fh, err := os.Open(spec.Path)
		if err != nil {
			return nil, err
		}
		f.closers = append(f.closers, fh)
		f.r = fh
	}

	switch compr {
	case "gzip", "gz":
		gr, err := gzip.NewReader(f.r)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("gzip %s: %w", spec.Path, err)
		}
		f.closers = append(f.closers, gr)
		f.r = gr
	case "bzip2", "bz2":
		f.r = bzip2.NewReader(f.r)
	}

	if enc != nil {
		f.r = enc.NewDecoder().Reader(f.r)
	}
	return f, nil
}

// lookupEncoding resolves an encoding label. UTF-8 labels return nil, meaning
// the stream is used as is.
func lookupEncoding(name string) (encoding.Encoding, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", name, err)
	}
	if enc == unicode.UTF8 {
		return nil, nil
	}
	return enc, nil
}

// file chains the reader stack of an opened input and closes it inside-out.
type file struct {
	r       io.Reader
	closers []io.Closer
}

func (f *file) Read(p []byte) (int, error) {
	return f.r.Read(p)
}

func (f *file) Close() error {
	var first error
	for i := len(f.closers) - 1; i >= 0; i-- {
		if err := f.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	f.closers = nil
	return first
}
