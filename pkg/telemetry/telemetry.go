// Package telemetry exposes Prometheus metrics for the chat service and a
// middleware that records request counts and latencies. Metrics are served
// on /metrics by the app.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parrotdb",
		Name:      "http_requests_total",
		Help:      "HTTP requests by path and status code.",
	}, []string{"path", "status"})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "parrotdb",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"path"})

	LookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parrotdb",
		Name:      "lookups_total",
		Help:      "Text lookups by result (found or fallback).",
	}, []string{"result"})

	MatchStageTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parrotdb",
		Name:      "match_stage_total",
		Help:      "Matcher resolutions by stage (exact, containment, keyword, cache).",
	}, []string{"stage"})

	TeachTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parrotdb",
		Name:      "teach_total",
		Help:      "Teach operations by outcome (created or updated).",
	}, []string{"outcome"})

	StoreErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parrotdb",
		Name:      "store_errors_total",
		Help:      "Catalog store failures by error kind.",
	}, []string{"kind"})

	UsageWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parrotdb",
		Name:      "usage_writes_total",
		Help:      "Asynchronous usage-count writes by outcome.",
	}, []string{"outcome"})
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and latency per route.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		srw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(srw, r)
		path := r.URL.Path
		RequestsTotal.WithLabelValues(path, strconv.Itoa(srw.status)).Inc()
		RequestDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
	})
}
