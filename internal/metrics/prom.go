// Package metrics exposes Prometheus collectors for the HTTP surface, the
// reorder engine and holiday lookups.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type PromMetrics struct {
	gatherer        prometheus.Gatherer
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	reorderBatches  prometheus.Counter
	reorderFailed   prometheus.Counter
	holidayLookups  *prometheus.CounterVec
}

// NewPromMetrics registers all collectors on a fresh registry.
func NewPromMetrics() *PromMetrics {
	reg := prometheus.NewRegistry()
	m := &PromMetrics{
		gatherer: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "daybook_http_requests_total",
			Help: "Number of handled HTTP requests",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "daybook_http_request_duration_seconds",
			Help:    "Latency of handled HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		reorderBatches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "daybook_reorder_batches_total",
			Help: "Number of submitted reorder batches",
		}),
		reorderFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "daybook_reorder_updates_failed_total",
			Help: "Number of reorder updates that failed to persist",
		}),
		holidayLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "daybook_holiday_lookups_total",
			Help: "Number of holiday lookups by source and result",
		}, []string{"source", "result"}),
	}
	reg.MustRegister(m.requests, m.requestDuration, m.reorderBatches, m.reorderFailed, m.holidayLookups)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *PromMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *PromMetrics) ObserveRequest(method, route string, status int, d time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *PromMetrics) ReorderBatch() {
	m.reorderBatches.Inc()
}

func (m *PromMetrics) ReorderUpdatesFailed(n int) {
	m.reorderFailed.Add(float64(n))
}

func (m *PromMetrics) HolidayLookup(source, result string) {
	m.holidayLookups.WithLabelValues(source, result).Inc()
}
