// Package metrics provides Prometheus HTTP metrics middleware and the
// messenger's domain counters.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messenger_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "messenger_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"method", "path"},
	)

	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "messenger_messages_sent_total",
		Help: "Messages appended to a chat",
	})

	SnapshotRecoveries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "messenger_snapshot_recoveries_total",
		Help: "Corrupt persisted snapshots replaced by chats derived from the roster",
	})

	AttachmentsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "messenger_attachments_rejected_total",
		Help: "Attachments rejected for exceeding the size limit",
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "messenger_active_sessions",
		Help: "Logged in messenger sessions",
	})
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and latency labelled by chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{w, http.StatusOK}
		next.ServeHTTP(wrapped, r)

		path := r.URL.Path
		if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
			if pattern := routeCtx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}

		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}
