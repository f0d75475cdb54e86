// Package metrics provides Prometheus metrics for HTTP traffic and
// conversation turns.
package metrics

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/lewisedginton/ward_desk/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	subsystem = "ward_desk"
)

// Metrics owns a private registry. A nil *Metrics is valid and records nothing.
type Metrics struct {
	reg *prometheus.Registry

	TotalHTTPRequestsCounter prometheus.Counter
	HTTPDurationHistogram    prometheus.Histogram

	mu                   sync.Mutex
	HTTPResponseCounters map[int]prometheus.Counter

	TurnsCounter          *prometheus.CounterVec
	IntentCounter         *prometheus.CounterVec
	EscalationsCounter    prometheus.Counter
	GenerationFailures    *prometheus.CounterVec
	SessionStoreFailures  *prometheus.CounterVec
	TurnDurationHistogram *prometheus.HistogramVec

	server *http.Server
	log    logger.Logger
}

// NewMetrics creates a Metrics instance with the requested collector groups.
func NewMetrics(httpCounters, conversationCounters bool, l logger.Logger) *Metrics {
	if l == nil {
		l = logger.NewNopLogger()
	}
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		log: l,
	}
	if httpCounters {
		m.TotalHTTPRequestsCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "total_http_requests",
			Help:      "Total HTTP requests",
		})
		m.HTTPDurationHistogram = prometheus.NewHistogram(prometheus.HistogramOpts{
			Subsystem: subsystem,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.3, 0.5, 0.7, 1.0, 3.0, 5.0, 7.0, 10.0},
		})
		m.HTTPResponseCounters = make(map[int]prometheus.Counter)
		m.reg.MustRegister(m.TotalHTTPRequestsCounter, m.HTTPDurationHistogram)
	}
	if conversationCounters {
		m.TurnsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "turns_total",
			Help:      "Conversation turns handled, by channel and outcome",
		}, []string{"channel", "outcome"})
		m.IntentCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "intents_total",
			Help:      "Classified intents on the free-text channel",
		}, []string{"intent"})
		m.EscalationsCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "escalations_total",
			Help:      "Replies flagged as requiring a human",
		})
		m.GenerationFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "generation_failures_total",
			Help:      "Failed or timed out text generation calls",
		}, []string{"provider"})
		m.SessionStoreFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "session_store_failures_total",
			Help:      "Session store operations that failed and were skipped",
		}, []string{"operation"})
		m.TurnDurationHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Subsystem: subsystem,
			Name:      "turn_duration_seconds",
			Help:      "Time to produce a reply, by channel",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 3.0, 5.0, 10.0},
		}, []string{"channel"})
		m.reg.MustRegister(m.TurnsCounter, m.IntentCounter, m.EscalationsCounter,
			m.GenerationFailures, m.SessionStoreFailures, m.TurnDurationHistogram)
	}
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Listen starts the metrics HTTP server on the given port. The returned channel
// receives the server's terminal error; http.ErrServerClosed is filtered out.
func (m *Metrics) Listen(port int) <-chan error {
	m.log.Info("Starting metrics listener", logger.IntField("port", port))
	mux := http.NewServeMux()
	mux.Handle("/", http.NotFoundHandler())
	mux.Handle("/metrics", m.Handler())
	m.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		if err := m.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()
	return errChan
}

// Shutdown stops the metrics listener if one was started.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m == nil || m.server == nil {
		return nil
	}
	m.log.Info("Stopping metrics listener")
	return m.server.Shutdown(ctx)
}

// AddCustomMetric registers a custom Prometheus collector.
func (m *Metrics) AddCustomMetric(c prometheus.Collector) {
	m.reg.MustRegister(c)
}

// IncrementHTTPResponseCounter increments the counter for the given HTTP status code.
func (m *Metrics) IncrementHTTPResponseCounter(code int) {
	if m == nil || m.HTTPResponseCounters == nil {
		return
	}
	m.mu.Lock()
	c, ok := m.HTTPResponseCounters[code]
	if !ok {
		c = newTotalHTTPReqMetric(code)
		m.reg.MustRegister(c)
		m.HTTPResponseCounters[code] = c
	}
	m.mu.Unlock()
	c.Inc()
}

func newTotalHTTPReqMetric(code int) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      fmt.Sprintf("total_%d_http_responses", code),
		Help:      fmt.Sprintf("Total %s HTTP responses returned", http.StatusText(code)),
	})
}

// ObserveTurn records one handled turn.
func (m *Metrics) ObserveTurn(channel, outcome string, d time.Duration) {
	if m == nil || m.TurnsCounter == nil {
		return
	}
	m.TurnsCounter.WithLabelValues(channel, outcome).Inc()
	m.TurnDurationHistogram.WithLabelValues(channel).Observe(d.Seconds())
}

// ObserveIntent records a classification result.
func (m *Metrics) ObserveIntent(intent string, escalated bool) {
	if m == nil || m.IntentCounter == nil {
		return
	}
	m.IntentCounter.WithLabelValues(intent).Inc()
	if escalated {
		m.EscalationsCounter.Inc()
	}
}

// GenerationFailed records a failed generation call for provider.
func (m *Metrics) GenerationFailed(provider string) {
	if m == nil || m.GenerationFailures == nil {
		return
	}
	m.GenerationFailures.WithLabelValues(provider).Inc()
}

// SessionStoreFailed records a skipped session store operation.
func (m *Metrics) SessionStoreFailed(operation string) {
	if m == nil || m.SessionStoreFailures == nil {
		return
	}
	m.SessionStoreFailures.WithLabelValues(operation).Inc()
}

// HTTPMiddleware returns a chi-compatible middleware that tracks HTTP metrics.
// Without HTTP counters it passes requests straight through.
func (m *Metrics) HTTPMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil || m.TotalHTTPRequestsCounter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			m.TotalHTTPRequestsCounter.Inc()

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)

			m.HTTPDurationHistogram.Observe(time.Since(start).Seconds())
			m.IncrementHTTPResponseCounter(rw.statusCode)
		})
	}
}

// responseWriter captures the status code written by the wrapped handler.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades through the wrapper.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return h.Hijack()
}

func (rw *responseWriter) Unwrap() http.ResponseWriter { return rw.ResponseWriter }
