package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchTotal      *prometheus.CounterVec
	fetchDuration   prometheus.Histogram
	secretAvailable prometheus.Gauge

	// Registration guard
	metricsOnce       sync.Once
	metricsRegistered atomic.Bool
)

// FetchMetrics records secret fetch outcomes.
type FetchMetrics struct{}

// NewFetchMetrics creates a new FetchMetrics instance.
// Recording is a no-op until Init has run.
func NewFetchMetrics() *FetchMetrics {
	return &FetchMetrics{}
}

// Init registers all collectors with the default registry.
// Safe to call repeatedly; only the first call registers.
func Init() {
	metricsOnce.Do(func() {
		fetchTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vaultboot_fetch_total",
				Help: "Total number of secret fetch attempts by outcome",
			},
			[]string{"outcome"},
		)

		fetchDuration = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "vaultboot_fetch_duration_seconds",
				Help:    "Duration of secret fetch attempts in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
			},
		)

		secretAvailable = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "vaultboot_secret_available",
				Help: "Whether a fetched secret is currently held (1=yes, 0=no)",
			},
		)

		metricsRegistered.Store(true)
	})
}

// RecordFetch records one fetch attempt.
func (m *FetchMetrics) RecordFetch(outcome string, d time.Duration) {
	if !metricsRegistered.Load() {
		return
	}
	fetchTotal.WithLabelValues(outcome).Inc()
	fetchDuration.Observe(d.Seconds())
}

// SetSecretAvailable flips the availability gauge.
func (m *FetchMetrics) SetSecretAvailable(available bool) {
	if !metricsRegistered.Load() {
		return
	}
	if available {
		secretAvailable.Set(1)
	} else {
		secretAvailable.Set(0)
	}
}

// IsRegistered reports whether Init has run.
func IsRegistered() bool {
	return metricsRegistered.Load()
}

// FetchTotal exposes the fetch counter for tests.
func FetchTotal() *prometheus.CounterVec {
	return fetchTotal
}

// SecretAvailable exposes the availability gauge for tests.
func SecretAvailable() prometheus.Gauge {
	return secretAvailable
}
