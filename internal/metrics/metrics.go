// Package metrics exposes Prometheus collectors for the validation service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	lookupsTotal           *prometheus.CounterVec
	lookupDurationSeconds  *prometheus.HistogramVec
	fetchesTotal           *prometheus.CounterVec
	runsTotal              *prometheus.CounterVec
	httpRequestsTotal      *prometheus.CounterVec
	httpRequestDurationSec *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus collectors. Safe to call more than once.
func Init() {
	once.Do(func() {
		lookupsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalogcheck_lookups_total",
				Help: "Identifier lookups processed, labeled by fetch mode, taxonomy source and outcome.",
			},
			[]string{"mode", "source", "outcome"},
		)

		lookupDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "catalogcheck_lookup_duration_seconds",
				Help:    "Histogram of per-identifier pipeline latencies, labeled by fetch mode.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"mode"},
		)

		fetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalogcheck_fetches_total",
				Help: "Page fetches attempted, labeled by mode and HTTP status.",
			},
			[]string{"mode", "status"},
		)

		runsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalogcheck_runs_total",
				Help: "Validation runs finished, labeled by terminal status.",
			},
			[]string{"status"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSec = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler exposing the Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveLookup records one processed identifier.
func ObserveLookup(mode, source string, cataloged bool, duration time.Duration) {
	if lookupsTotal == nil {
		return
	}
	outcome := "not_cataloged"
	if cataloged {
		outcome = "cataloged"
	}
	lookupsTotal.WithLabelValues(mode, source, outcome).Inc()
	lookupDurationSeconds.WithLabelValues(mode).Observe(duration.Seconds())
}

// ObserveFetch records one page fetch attempt.
func ObserveFetch(mode string, status int) {
	if fetchesTotal == nil {
		return
	}
	fetchesTotal.WithLabelValues(mode, strconv.Itoa(status)).Inc()
}

// ObserveRun records one finished run.
func ObserveRun(status string) {
	if runsTotal == nil {
		return
	}
	runsTotal.WithLabelValues(status).Inc()
}

// ObserveHTTPRequest records one API request.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSec.WithLabelValues(method, route).Observe(duration.Seconds())
}
