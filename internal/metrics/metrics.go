// Package metrics is a small facade over a pluggable metrics backend.
//
// Exploration code records counters and histograms through the package-level
// helpers; the process picks a backend once at startup with SetBackend. The
// default backend discards everything.
package metrics

import (
	"sync"
	"time"
)

// Labels are metric dimensions (e.g. {"status": "ok"}).
type Labels map[string]string

// Backend receives metric observations.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
}

// Flusher is implemented by backends that buffer observations.
type Flusher interface {
	Flush() error
}

// Metric names recorded by the explorer.
const (
	RecordsTotal   = "explore_records_total"
	InputsTotal    = "explore_inputs_total"
	ColumnsTotal   = "explore_columns_total"
	InputDuration  = "explore_input_duration_seconds"
	StatusOK       = "ok"
	StatusError    = "error"
	StatusCanceled = "canceled"
)

type nop struct{}

func (nop) IncCounter(string, float64, Labels)       {}
func (nop) ObserveHistogram(string, float64, Labels) {}

var (
	mu      sync.RWMutex
	backend Backend = nop{}
)

// SetBackend installs b as the process-wide backend. A nil b restores the
// no-op backend.
func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if b == nil {
		b = nop{}
	}
	backend = b
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// IncCounter adds delta to the named counter.
func IncCounter(name string, delta float64, labels Labels) {
	current().IncCounter(name, delta, labels)
}

// ObserveHistogram records one sample of the named histogram.
func ObserveHistogram(name string, value float64, labels Labels) {
	current().ObserveHistogram(name, value, labels)
}

// ObserveDuration records time.Since(start) in seconds.
func ObserveDuration(name string, start time.Time, labels Labels) {
	ObserveHistogram(name, time.Since(start).Seconds(), labels)
}

// Flush flushes the current backend if it buffers observations.
func Flush() error {
	if f, ok := current().(Flusher); ok {
		return f.Flush()
	}
	return nil
}
