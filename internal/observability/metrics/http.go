package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	routeDecisionsTotal     *prometheus.CounterVec
	answersTotal            *prometheus.CounterVec
	ragRetrievalHitTotal    *prometheus.CounterVec
	ragNoContextTotal       *prometheus.CounterVec
	ragSourceCount          *prometheus.HistogramVec
	ragDuration             *prometheus.HistogramVec
	modeFailuresTotal       *prometheus.CounterVec
	mergedCandidates        *prometheus.HistogramVec
	rerankFallbackTotal     *prometheus.CounterVec
	generationFailuresTotal *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "expenseai",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "expenseai",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "expenseai",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	routeDecisionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "expenseai",
			Subsystem: "rag",
			Name:      "route_decisions_total",
			Help:      "Total routed questions by route.",
		},
		[]string{"service", "route"},
	)
	answersTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "expenseai",
			Subsystem: "rag",
			Name:      "answers_total",
			Help:      "Total answered questions by result status.",
		},
		[]string{"service", "status"},
	)
	ragRetrievalHitTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "expenseai",
			Subsystem: "rag",
			Name:      "retrieval_hit_total",
			Help:      "Total requests with at least one returned source.",
		},
		[]string{"service", "endpoint"},
	)
	ragNoContextTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "expenseai",
			Subsystem: "rag",
			Name:      "no_context_total",
			Help:      "Total requests without returned sources.",
		},
		[]string{"service", "endpoint"},
	)
	ragSourceCount := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "expenseai",
			Subsystem: "rag",
			Name:      "source_count",
			Help:      "Distribution of returned sources per request.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service", "endpoint"},
	)
	ragDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "expenseai",
			Subsystem: "rag",
			Name:      "duration_seconds",
			Help:      "Pipeline execution duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	modeFailuresTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "expenseai",
			Subsystem: "rag",
			Name:      "mode_failures_total",
			Help:      "Total retrieval mode failures the pipeline degraded around.",
		},
		[]string{"service", "mode"},
	)
	mergedCandidates := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "expenseai",
			Subsystem: "rag",
			Name:      "merged_candidates",
			Help:      "Distribution of merged candidates per retrieval.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21, 34, 55},
		},
		[]string{"service"},
	)
	rerankFallbackTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "expenseai",
			Subsystem: "rag",
			Name:      "rerank_fallback_total",
			Help:      "Total requests answered with retrieval-score ordering because the reranker was unavailable.",
		},
		[]string{"service"},
	)
	generationFailuresTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "expenseai",
			Subsystem: "rag",
			Name:      "generation_failures_total",
			Help:      "Total answer requests where generation failed and only sources were returned.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		routeDecisionsTotal,
		answersTotal,
		ragRetrievalHitTotal,
		ragNoContextTotal,
		ragSourceCount,
		ragDuration,
		modeFailuresTotal,
		mergedCandidates,
		rerankFallbackTotal,
		generationFailuresTotal,
	)

	return &HTTPServerMetrics{
		registry:                registry,
		requestTotal:            requestTotal,
		requestDuration:         requestDuration,
		requestInFlight:         requestInFlight,
		routeDecisionsTotal:     routeDecisionsTotal,
		answersTotal:            answersTotal,
		ragRetrievalHitTotal:    ragRetrievalHitTotal,
		ragNoContextTotal:       ragNoContextTotal,
		ragSourceCount:          ragSourceCount,
		ragDuration:             ragDuration,
		modeFailuresTotal:       modeFailuresTotal,
		mergedCandidates:        mergedCandidates,
		rerankFallbackTotal:     rerankFallbackTotal,
		generationFailuresTotal: generationFailuresTotal,
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

// normalizePath keeps the path label set closed; every route here is static,
// so anything else collapses into one bucket.
func normalizePath(path string) string {
	switch path {
	case "/healthz", "/healthz/db", "/metrics", "/v1/policy/search", "/v1/policy/answer":
		return path
	default:
		return "other"
	}
}

func (m *HTTPServerMetrics) RecordRouteDecision(service, route string) {
	if route == "" {
		route = "unknown"
	}
	m.routeDecisionsTotal.WithLabelValues(service, route).Inc()
}

func (m *HTTPServerMetrics) RecordAnswer(service, status string, sourceCount int, duration time.Duration) {
	if status == "" {
		status = "unknown"
	}
	m.answersTotal.WithLabelValues(service, status).Inc()
	m.observeSources(service, "answer", sourceCount, duration)
}

func (m *HTTPServerMetrics) RecordSearch(service string, resultCount int, duration time.Duration) {
	m.observeSources(service, "search", resultCount, duration)
}

func (m *HTTPServerMetrics) observeSources(service, endpoint string, sourceCount int, duration time.Duration) {
	m.ragSourceCount.WithLabelValues(service, endpoint).Observe(float64(sourceCount))
	m.ragDuration.WithLabelValues(service, endpoint).Observe(duration.Seconds())

	if sourceCount > 0 {
		m.ragRetrievalHitTotal.WithLabelValues(service, endpoint).Inc()
		return
	}
	m.ragNoContextTotal.WithLabelValues(service, endpoint).Inc()
}

func (m *HTTPServerMetrics) RecordRetrievalDebug(service string, keywordFailed, vectorFailed bool, mergedCount int) {
	if keywordFailed {
		m.modeFailuresTotal.WithLabelValues(service, "keyword").Inc()
	}
	if vectorFailed {
		m.modeFailuresTotal.WithLabelValues(service, "vector").Inc()
	}
	m.mergedCandidates.WithLabelValues(service).Observe(float64(mergedCount))
}

func (m *HTTPServerMetrics) RecordRerankFallback(service string) {
	m.rerankFallbackTotal.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordGenerationFailure(service string) {
	m.generationFailuresTotal.WithLabelValues(service).Inc()
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
