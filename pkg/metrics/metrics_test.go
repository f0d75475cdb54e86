package metrics

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lewisedginton/ward_desk/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getRandomHighPort() int {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	return r.Intn(16384) + 49152
}

func scrape(t *testing.T, url string) (int, string) {
	t.Helper()
	var resp *http.Response
	require.Eventually(t, func() bool {
		var err error
		resp, err = http.Get(url) //nolint:noctx // test helper
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestMetrics_Listen(t *testing.T) {
	m := NewMetrics(true, false, logger.NewNopLogger())
	port := getRandomHighPort()
	errChan := m.Listen(port)

	for i := 0; i < 5; i++ {
		m.IncrementHTTPResponseCounter(200)
		m.IncrementHTTPResponseCounter(404)
	}

	code, body := scrape(t, fmt.Sprintf("http://localhost:%d/metrics", port))
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "ward_desk_total_200_http_responses 5")
	assert.Contains(t, body, "ward_desk_total_404_http_responses 5")
	assert.Contains(t, body, "# HELP ward_desk_total_404_http_responses Total Not Found HTTP responses returned")
	assert.Contains(t, body, "ward_desk_total_http_requests 0")

	code, _ = scrape(t, fmt.Sprintf("http://localhost:%d/", port))
	assert.Equal(t, http.StatusNotFound, code)

	require.NoError(t, m.Shutdown(context.Background()))
	_, open := <-errChan
	assert.False(t, open, "error channel closes on clean shutdown")
}

func TestMetrics_SetCustomMetrics(t *testing.T) {
	m := NewMetrics(false, false, logger.NewNopLogger())

	counter := prometheus.NewCounter(prometheus.CounterOpts{Subsystem: "test", Name: "foo1", Help: "foo 1 help"})
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Subsystem: "test", Name: "foo2", Help: "foo 2 help"})
	m.AddCustomMetric(counter)
	m.AddCustomMetric(gauge)

	before := `# HELP test_foo1 foo 1 help
# TYPE test_foo1 counter
test_foo1 0
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(before), "test_foo1"))

	counter.Inc()
	gauge.Set(1.234)

	after := `# HELP test_foo1 foo 1 help
# TYPE test_foo1 counter
test_foo1 1
# HELP test_foo2 foo 2 help
# TYPE test_foo2 gauge
test_foo2 1.234
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(after), "test_foo1", "test_foo2"))
}

func TestHTTPMiddleware(t *testing.T) {
	m := NewMetrics(true, false, logger.NewNopLogger())

	handler := m.HTTPMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/error" {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("error"))
			return
		}
		_, _ = w.Write([]byte("success"))
	}))

	tests := []struct {
		path     string
		wantCode int
		wantBody string
	}{
		{"/success", http.StatusOK, "success"},
		{"/error", http.StatusInternalServerError, "error"},
		{"/success", http.StatusOK, "success"},
	}
	for _, tt := range tests {
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, tt.path, nil))
		assert.Equal(t, tt.wantCode, recorder.Code)
		assert.Equal(t, tt.wantBody, recorder.Body.String())
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(m.TotalHTTPRequestsCounter))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPResponseCounters[200]))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPResponseCounters[500]))
}

func TestHTTPMiddlewareDisabled(t *testing.T) {
	m := NewMetrics(false, false, logger.NewNopLogger())
	called := false
	handler := m.HTTPMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, called)
}

func TestResponseWriter(t *testing.T) {
	t.Run("captures custom status code", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		rw := &responseWriter{ResponseWriter: recorder, statusCode: 200}
		rw.WriteHeader(404)
		assert.Equal(t, 404, rw.statusCode)
		assert.Equal(t, 404, recorder.Code)
	})

	t.Run("defaults to 200 if WriteHeader not called", func(t *testing.T) {
		rw := &responseWriter{ResponseWriter: httptest.NewRecorder(), statusCode: 200}
		_, _ = rw.Write([]byte("test"))
		assert.Equal(t, 200, rw.statusCode)
	})
}

func TestConversationMetrics(t *testing.T) {
	m := NewMetrics(false, true, logger.NewNopLogger())

	m.ObserveTurn("ussd", "continue", 10*time.Millisecond)
	m.ObserveTurn("ussd", "terminal", 5*time.Millisecond)
	m.ObserveTurn("chat", "reply", time.Millisecond)
	m.ObserveIntent("emergency", true)
	m.ObserveIntent("greeting", false)
	m.GenerationFailed("openai")
	m.SessionStoreFailed("save")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.TurnsCounter.WithLabelValues("ussd", "continue")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TurnsCounter.WithLabelValues("chat", "reply")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IntentCounter.WithLabelValues("emergency")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EscalationsCounter))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GenerationFailures.WithLabelValues("openai")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionStoreFailures.WithLabelValues("save")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveTurn("ussd", "continue", time.Millisecond)
		m.ObserveIntent("greeting", false)
		m.GenerationFailed("openai")
		m.SessionStoreFailed("load")
		m.IncrementHTTPResponseCounter(200)
		_ = m.Shutdown(context.Background())
	})

	handler := m.HTTPMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, recorder.Code)
}

func TestConversationMetricsDisabled(t *testing.T) {
	m := NewMetrics(true, false, logger.NewNopLogger())
	assert.NotPanics(t, func() {
		m.ObserveTurn("chat", "reply", time.Millisecond)
		m.ObserveIntent("unknown", true)
	})
}
