// Package metrics is a minimal metrics facade for the import pipeline.
//
// The pipeline records counters and histograms against whatever Backend is
// installed; the default backend discards everything, so instrumented code
// never has to check whether metrics are configured.
package metrics

import "sync"

// Metric names emitted by the pipeline.
const (
	RecordsTotal  = "rorimport_records_total"  // label kind: found|processed
	BatchesTotal  = "rorimport_batches_total"  // flushed batches, final flush included
	WarningsTotal = "rorimport_warnings_total" // label kind: id_shape|lang_code
	FlushSeconds  = "rorimport_flush_duration_seconds"
)

// Labels attaches dimensions to a metric sample.
type Labels map[string]string

// Backend is the sink the facade forwards to.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)

	// Flush pushes any buffered samples. Called at least once at shutdown.
	Flush() error
}

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs the process-wide backend. Passing nil restores the
// discard backend.
func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if b == nil {
		backend = nopBackend{}
		return
	}
	backend = b
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

func IncCounter(name string, delta float64, labels Labels) {
	current().IncCounter(name, delta, labels)
}

func ObserveHistogram(name string, value float64, labels Labels) {
	current().ObserveHistogram(name, value, labels)
}

func Flush() error { return current().Flush() }

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }
