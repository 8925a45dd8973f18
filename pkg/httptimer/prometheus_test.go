package httptimer

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func testPrometheusConfig(detailed bool) PrometheusConfig {
	return PrometheusConfig{
		DurationHistogram: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "test_http_duration_seconds",
				Help:    "Test histogram",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"phase", "method", "host", "code", "status"},
		),
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "test_http_requests_total",
				Help: "Test counter",
			},
			[]string{"method", "host", "code", "status"},
		),
		InFlightGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "test_http_in_flight",
			Help: "Test gauge",
		}),
		DetailedMetrics: detailed,
	}
}

// TestPrometheusIntegration verifies Prometheus metrics collection.
func TestPrometheusIntegration(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(10 * time.Millisecond)
		okHandler(w, r)
	}))
	defer server.Close()

	config := testPrometheusConfig(true)
	req, _ := get(t, New(WithPrometheus(config)), server.URL)

	expectedLabels := prometheus.Labels{
		"method": "GET",
		"host":   req.URL.Host,
		"code":   "200",
		"status": "success",
	}
	if got := testutil.ToFloat64(config.RequestCounter.With(expectedLabels)); got != 1 {
		t.Errorf("Expected counter to be 1, got %v", got)
	}

	if got := testutil.ToFloat64(config.InFlightGauge); got != 0 {
		t.Errorf("Expected in-flight gauge to be 0, got %v", got)
	}

	// total, wait, tcp, request, firstByte, download
	if n := testutil.CollectAndCount(config.DurationHistogram); n != 6 {
		t.Errorf("Expected 6 phase series, got %d", n)
	}
}

// TestPrometheusWithoutDetails verifies only total is observed by default.
func TestPrometheusWithoutDetails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(okHandler))
	defer server.Close()

	config := testPrometheusConfig(false)
	get(t, New(WithPrometheus(config)), server.URL)

	if n := testutil.CollectAndCount(config.DurationHistogram); n != 1 {
		t.Errorf("Expected only the total series, got %d", n)
	}
}

// TestPrometheusInFlight verifies the gauge covers the body read.
func TestPrometheusInFlight(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(okHandler))
	defer server.Close()

	config := testPrometheusConfig(false)
	resp, err := (&http.Client{Transport: New(WithPrometheus(config))}).Get(server.URL)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	if got := testutil.ToFloat64(config.InFlightGauge); got != 1 {
		t.Errorf("Expected 1 in flight before the body is read, got %v", got)
	}
	resp.Body.Close()
	if got := testutil.ToFloat64(config.InFlightGauge); got != 0 {
		t.Errorf("Expected 0 in flight after close, got %v", got)
	}
}

// TestPrometheusErrorLabels verifies failed requests are labelled as errors.
func TestPrometheusErrorLabels(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to create listener: %v", err)
	}
	addr := listener.Addr().String()
	listener.Close()

	config := testPrometheusConfig(true)
	resp, err := (&http.Client{Transport: New(WithPrometheus(config))}).Get("http://" + addr)
	if err == nil {
		resp.Body.Close()
		t.Fatal("Expected connection error")
	}

	labels := prometheus.Labels{"method": "GET", "host": addr, "code": "0", "status": "error"}
	if got := testutil.ToFloat64(config.RequestCounter.With(labels)); got != 1 {
		t.Errorf("Expected error counter to be 1, got %v", got)
	}
	if got := testutil.ToFloat64(config.InFlightGauge); got != 0 {
		t.Errorf("Expected in-flight gauge to be 0, got %v", got)
	}
}

// TestSimplePrometheusConfig verifies default metrics register once.
func TestSimplePrometheusConfig(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := SimplePrometheusConfig(reg); err != nil {
		t.Fatalf("Failed to register metrics: %v", err)
	}
	if _, err := SimplePrometheusConfig(reg); err == nil {
		t.Error("Expected a duplicate registration error")
	}
}

// TestMustRegisterPrometheusMetrics verifies registration with the default registerer.
func TestMustRegisterPrometheusMetrics(t *testing.T) {
	config := PrometheusConfig{
		DurationHistogram: DefaultPrometheusHistogram(),
		RequestCounter:    DefaultPrometheusCounter(),
		InFlightGauge:     DefaultPrometheusInFlightGauge(),
	}
	MustRegisterPrometheusMetrics(config)
	defer UnregisterPrometheusMetrics(config)

	if err := prometheus.Register(config.RequestCounter); err == nil {
		t.Error("Expected the counter to be registered already")
	}
}
