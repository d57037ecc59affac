package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "codeide",
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests received",
	}, []string{"service", "method", "path", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "codeide",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"service", "method", "path", "status"})

	// ActiveRooms is the number of rooms currently in the registry,
	// including emptied rooms waiting out their grace period.
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "codeide",
		Name:      "sync_active_rooms",
		Help:      "Number of rooms currently held in the registry",
	})

	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "codeide",
		Name:      "sync_active_connections",
		Help:      "Number of joined websocket connections",
	})

	OperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "codeide",
		Name:      "sync_operations_total",
		Help:      "Accepted edit operations per surface",
	}, []string{"surface"})

	DroppedDeliveries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "codeide",
		Name:      "sync_dropped_deliveries_total",
		Help:      "Broadcast frames skipped because the destination was closed",
	})

	SavesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "codeide",
		Name:      "sync_saves_total",
		Help:      "Explicit snapshot saves pushed to the persistence gateway",
	})
)

type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *responseRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack must pass through so websocket upgrades work behind the middleware.
func (r *responseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := r.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, fmt.Errorf("metrics: underlying ResponseWriter does not support hijacking")
}

// Middleware records request metrics with Prometheus labels.
func Middleware(service string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()

			next.ServeHTTP(rec, r)

			labels := prometheus.Labels{
				"service": service,
				"method":  r.Method,
				"path":    r.URL.Path,
				"status":  strconv.Itoa(rec.status),
			}
			httpRequests.With(labels).Inc()
			httpLatency.With(labels).Observe(time.Since(start).Seconds())
		})
	}
}
