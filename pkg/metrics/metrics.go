// Package metrics exposes prometheus collectors for the refresh loop.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "enlighten_"

	ResultSuccess = "success"
	ResultError   = "error"

	SkipInProgress    = "in_progress"
	SkipThrottled     = "throttled"
	SkipNotConfigured = "not_configured"
)

var (
	registerOnce sync.Once

	fetchTotal   *prometheus.CounterVec
	fetchLatency *prometheus.HistogramVec
	fetchErrors  *prometheus.CounterVec

	refreshSkipped *prometheus.CounterVec

	currentWatts prometheus.Gauge
	lastSuccess  prometheus.Gauge
)

// Init registers the collectors with the default registry. It is safe to call
// more than once.
func Init() {
	registerOnce.Do(func() {
		fetchTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "fetch_total",
				Help: "Total performance fetches by result",
			},
			[]string{"result"},
		)
		fetchLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "fetch_latency_seconds",
				Help:    "Performance fetch latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		fetchErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "fetch_errors_total",
				Help: "Total performance fetch errors by kind",
			},
			[]string{"kind"},
		)
		refreshSkipped = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "refresh_skipped_total",
				Help: "Refresh requests that did not fetch, by reason",
			},
			[]string{"reason"},
		)
		currentWatts = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "current_watts",
				Help: "Current power output of the installation in watts",
			},
		)
		lastSuccess = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "last_success_timestamp_seconds",
				Help: "Unix time of the last successful fetch",
			},
		)

		prometheus.MustRegister(
			fetchTotal,
			fetchLatency,
			fetchErrors,
			refreshSkipped,
			currentWatts,
			lastSuccess,
		)
	})
}

// ObserveFetch records a fetch duration and result.
func ObserveFetch(result string, duration time.Duration) {
	if result == "" {
		result = ResultSuccess
	}
	if fetchTotal != nil {
		fetchTotal.WithLabelValues(result).Inc()
	}
	if fetchLatency != nil {
		fetchLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncFetchError counts a failed fetch by kind (api, parse, config).
func IncFetchError(kind string) {
	if kind == "" {
		kind = "unknown"
	}
	if fetchErrors != nil {
		fetchErrors.WithLabelValues(kind).Inc()
	}
}

// IncRefreshSkipped counts a refresh request that was dropped.
func IncRefreshSkipped(reason string) {
	if refreshSkipped != nil {
		refreshSkipped.WithLabelValues(reason).Inc()
	}
}

// SetSnapshot records the figures of a new snapshot.
func SetSnapshot(watts float64, fetchedAt time.Time) {
	if currentWatts != nil {
		currentWatts.Set(watts)
	}
	if lastSuccess != nil {
		lastSuccess.Set(float64(fetchedAt.Unix()))
	}
}
