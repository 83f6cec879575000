// Package prompush implements a Prometheus Pushgateway backend for the
// internal/metrics facade.
//
// Batch jobs cannot be scraped, so samples are collected in a private
// registry and pushed on Flush. The final Flush at shutdown delivers the
// run's totals.
package prompush

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"rorimport/internal/metrics"
)

// Options controls backend configuration.
type Options struct {
	// URL is the Pushgateway base URL, e.g. "http://localhost:9091".
	URL string

	// JobName is the Pushgateway job grouping. Defaults to "rorimport".
	JobName string
}

// Backend implements metrics.Backend over a Pushgateway.
type Backend struct {
	pusher   *push.Pusher
	registry *prometheus.Registry

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
}

var _ metrics.Backend = (*Backend)(nil)

// NewBackend constructs the backend. No network traffic happens until Flush.
func NewBackend(opts Options) *Backend {
	job := opts.JobName
	if job == "" {
		job = "rorimport"
	}

	reg := prometheus.NewRegistry()
	return &Backend{
		pusher:     push.New(opts.URL, job).Gatherer(reg),
		registry:   reg,
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

// IncCounter implements metrics.Backend. The first observation of a metric
// name fixes its label set; later observations must use the same labels.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if delta <= 0 {
		return
	}

	b.mu.Lock()
	vec, ok := b.counters[name]
	if !ok {
		vec = prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: name},
			labelKeys(labels),
		)
		b.registry.MustRegister(vec)
		b.counters[name] = vec
	}
	b.mu.Unlock()

	if c, err := vec.GetMetricWith(prometheus.Labels(labels)); err == nil {
		c.Add(delta)
	}
}

// ObserveHistogram implements metrics.Backend.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if value < 0 {
		return
	}

	b.mu.Lock()
	vec, ok := b.histograms[name]
	if !ok {
		vec = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    name,
				Buckets: prometheus.DefBuckets,
			},
			labelKeys(labels),
		)
		b.registry.MustRegister(vec)
		b.histograms[name] = vec
	}
	b.mu.Unlock()

	if h, err := vec.GetMetricWith(prometheus.Labels(labels)); err == nil {
		h.Observe(value)
	}
}

// Flush pushes the registry to the Pushgateway, replacing the job's previous
// push group.
func (b *Backend) Flush() error { return b.pusher.Push() }

func labelKeys(labels metrics.Labels) []string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	return keys
}
