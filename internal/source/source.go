// Package source opens record streams for analysis.
//
// A source is described by a Spec and opened through a factory registered
// under the Spec's kind. File kinds ("csv", "json", "html") are registered by
// this package; SQL kinds live in subpackages that register themselves from
// init(), and source/all imports every one of them.
package source

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"csvexplore/internal/records"
)

// ErrUnknownKind is returned by Open for a kind without a registered factory.
var ErrUnknownKind = errors.New("unknown source kind")

// Spec describes one input.
type Spec struct {
	// Kind selects the factory: "csv", "json", "html", or a SQL backend
	// ("postgres", "mssql", "sqlite"). Empty means detect from Path.
	Kind string

	// Path is the file to read; "-" reads stdin. File kinds only.
	Path string

	// Encoding names the text encoding of a file (e.g. "windows-1250",
	// "latin1", "utf-16le"). Empty means UTF-8.
	Encoding string

	// Compression is "gzip", "bzip2" or empty. Empty means detect from Path.
	Compression string

	// DSN and Query are used by SQL kinds: Query's result set is the record
	// stream, one record per row.
	DSN   string
	Query string

	// Name identifies the input in reports. Defaults to Path for files and
	// "<kind>:<query>" for SQL sources.
	Name string
}

// Label returns the identifier used for this input in reports.
func (s Spec) Label() string {
	if s.Name != "" {
		return s.Name
	}
	if s.Path != "" {
		return s.Path
	}
	return s.Kind + ":" + s.Query
}

// Factory opens the record stream for spec.
type Factory func(ctx context.Context, spec Spec) (records.Reader, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a factory available under kind.
//
// Register panics if kind is empty, f is nil, or kind is already registered.
// It is meant to be called from init().
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("source: Register called with empty kind")
	}
	if f == nil {
		panic("source: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("source: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// Kinds returns the registered kinds, sorted.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()

	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Open opens the record stream described by spec. When spec.Kind is empty it
// is detected from spec.Path.
func Open(ctx context.Context, spec Spec) (records.Reader, error) {
	kind := strings.ToLower(strings.TrimSpace(spec.Kind))
	if kind == "" {
		kind = DetectKind(spec.Path)
	}
	spec.Kind = kind

	mu.RLock()
	f := factories[kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return f(ctx, spec)
}
