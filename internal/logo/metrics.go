package logo

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"
)

// Metrics records logo cache activity. A nil *Metrics records nothing.
type Metrics struct {
	set           *metrics.Set
	hits          *metrics.Counter
	misses        *metrics.Counter
	shortCircuits *metrics.Counter
	preloaded     *metrics.Counter
}

// NewMetrics creates a metrics set for one Service. Register it with
// metrics.RegisterSet to expose it on the process /metrics endpoint.
func NewMetrics() *Metrics {
	set := metrics.NewSet()
	return &Metrics{
		set:           set,
		hits:          set.NewCounter("logo_cache_hits_total"),
		misses:        set.NewCounter("logo_cache_misses_total"),
		shortCircuits: set.NewCounter("logo_cache_failure_short_circuits_total"),
		preloaded:     set.NewCounter("logo_preload_lookups_total"),
	}
}

// Set returns the underlying metrics set.
func (m *Metrics) Set() *metrics.Set {
	return m.set
}

func (m *Metrics) bindStats(stats func() Stats) {
	if m == nil {
		return
	}
	m.set.GetOrCreateGauge("logo_cache_entries", func() float64 {
		return float64(stats().Entries)
	})
	m.set.GetOrCreateGauge("logo_cache_failure_markers", func() float64 {
		return float64(stats().Failures)
	})
	m.set.GetOrCreateGauge("logo_preload_queue_depth", func() float64 {
		return float64(stats().Queued)
	})
}

func (m *Metrics) hit() {
	if m != nil {
		m.hits.Inc()
	}
}

func (m *Metrics) miss() {
	if m != nil {
		m.misses.Inc()
	}
}

func (m *Metrics) shortCircuit() {
	if m != nil {
		m.shortCircuits.Inc()
	}
}

func (m *Metrics) preload() {
	if m != nil {
		m.preloaded.Inc()
	}
}

func (m *Metrics) upstream(result string) {
	if m != nil {
		m.set.GetOrCreateCounter(fmt.Sprintf(`logo_upstream_requests_total{result=%q}`, result)).Inc()
	}
}
