package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPServerMetrics holds the API process registry: generic HTTP
// serving metrics plus the retrieval-pipeline observations.
type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	queriesTotal      *prometheus.CounterVec
	queryDuration     *prometheus.HistogramVec
	retrievedChunks   *prometheus.HistogramVec
	noContextTotal    *prometheus.CounterVec
	fanOutTotal       *prometheus.CounterVec
	fallbackTotal     *prometheus.CounterVec
	reformulatedTotal *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kba",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kba",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "kba",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kba",
			Subsystem: "query",
			Name:      "total",
			Help:      "Total knowledge base queries by outcome.",
		},
		[]string{"service", "outcome"},
	)
	queryDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kba",
			Subsystem: "query",
			Name:      "duration_seconds",
			Help:      "Full query pipeline duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	retrievedChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kba",
			Subsystem: "query",
			Name:      "retrieved_chunks",
			Help:      "Distribution of retrieved chunks per query.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
		},
		[]string{"service"},
	)
	noContextTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kba",
			Subsystem: "query",
			Name:      "no_context_total",
			Help:      "Total queries answered without any retrieved source.",
		},
		[]string{"service"},
	)
	fanOutTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kba",
			Subsystem: "query",
			Name:      "namespace_fanout_total",
			Help:      "Total queries where namespace fan-out ran.",
		},
		[]string{"service"},
	)
	fallbackTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kba",
			Subsystem: "query",
			Name:      "raw_query_fallback_total",
			Help:      "Total queries that fell back to the unreformulated query.",
		},
		[]string{"service"},
	)
	reformulatedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kba",
			Subsystem: "query",
			Name:      "reformulated_total",
			Help:      "Total queries that went through reformulation.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		queriesTotal,
		queryDuration,
		retrievedChunks,
		noContextTotal,
		fanOutTotal,
		fallbackTotal,
		reformulatedTotal,
	)

	return &HTTPServerMetrics{
		registry:          registry,
		requestTotal:      requestTotal,
		requestDuration:   requestDuration,
		requestInFlight:   requestInFlight,
		queriesTotal:      queriesTotal,
		queryDuration:     queryDuration,
		retrievedChunks:   retrievedChunks,
		noContextTotal:    noContextTotal,
		fanOutTotal:       fanOutTotal,
		fallbackTotal:     fallbackTotal,
		reformulatedTotal: reformulatedTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/documents/"):
		return "/v1/documents/{document_id}"
	default:
		return path
	}
}

// RecordQuery captures one completed trip through the query pipeline.
func (m *HTTPServerMetrics) RecordQuery(service string, success bool, sourceCount int, duration time.Duration) {
	outcome := "success"
	if !success {
		outcome = "error"
	}
	m.queriesTotal.WithLabelValues(service, outcome).Inc()
	m.queryDuration.WithLabelValues(service).Observe(duration.Seconds())
	m.retrievedChunks.WithLabelValues(service).Observe(float64(sourceCount))
	if success && sourceCount == 0 {
		m.noContextTotal.WithLabelValues(service).Inc()
	}
}

func (m *HTTPServerMetrics) RecordReformulated(service string) {
	m.reformulatedTotal.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordNamespaceFanOut(service string) {
	m.fanOutTotal.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordRawQueryFallback(service string) {
	m.fallbackTotal.WithLabelValues(service).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
