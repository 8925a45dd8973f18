package httptimer

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusConfig holds configuration for Prometheus metrics collection.
type PrometheusConfig struct {
	// Histogram for tracking phase durations, labelled phase, method, host,
	// code and status.
	DurationHistogram *prometheus.HistogramVec

	// Optional: Counter for total requests
	RequestCounter *prometheus.CounterVec

	// Optional: Gauge for in-flight requests
	InFlightGauge prometheus.Gauge

	// Whether to include the component phases in addition to total
	DetailedMetrics bool
}

// WithPrometheus returns an option that enables Prometheus metrics collection.
func WithPrometheus(config PrometheusConfig) Option {
	return WithReporter(&prometheusReporter{config: config})
}

// prometheusReporter records every exchange in Prometheus metrics.
type prometheusReporter struct {
	config PrometheusConfig
}

// Begin implements Reporter.
func (p *prometheusReporter) Begin(ctx context.Context, _ *http.Request, _ time.Time) context.Context {
	if p.config.InFlightGauge != nil {
		p.config.InFlightGauge.Inc()
	}
	return ctx
}

// Report implements Reporter.
func (p *prometheusReporter) Report(_ context.Context, o Outcome) {
	if p.config.InFlightGauge != nil {
		p.config.InFlightGauge.Dec()
	}

	code := strconv.Itoa(o.StatusCode)
	status := o.Status()

	if p.config.RequestCounter != nil {
		p.config.RequestCounter.With(prometheus.Labels{
			"method": o.Method,
			"host":   o.Host,
			"code":   code,
			"status": status,
		}).Inc()
	}

	if p.config.DurationHistogram == nil {
		return
	}
	observe := func(phase string, d time.Duration) {
		p.config.DurationHistogram.With(prometheus.Labels{
			"phase":  phase,
			"method": o.Method,
			"host":   o.Host,
			"code":   code,
			"status": status,
		}).Observe(d.Seconds())
	}

	phases := o.Record.Phases
	if phases.Total != nil {
		observe("total", *phases.Total)
	}
	if p.config.DetailedMetrics {
		phases.Each(observe)
	}
}

// DefaultPrometheusHistogram creates a default histogram for HTTP client phase durations.
func DefaultPrometheusHistogram() *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_client_phase_duration_seconds",
			Help: "Duration of HTTP client request phases in seconds",
			Buckets: []float64{
				0.001, // 1ms
				0.005, // 5ms
				0.01,  // 10ms
				0.025, // 25ms
				0.05,  // 50ms
				0.1,   // 100ms
				0.25,  // 250ms
				0.5,   // 500ms
				1.0,   // 1s
				2.5,   // 2.5s
				5.0,   // 5s
				10.0,  // 10s
			},
		},
		[]string{"phase", "method", "host", "code", "status"},
	)
}

// DefaultPrometheusCounter creates a default counter for HTTP client requests.
func DefaultPrometheusCounter() *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_client_requests_total",
			Help: "Total number of HTTP client requests",
		},
		[]string{"method", "host", "code", "status"},
	)
}

// DefaultPrometheusInFlightGauge creates a default gauge for in-flight requests.
func DefaultPrometheusInFlightGauge() prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_client_in_flight_requests",
		Help: "Number of HTTP client requests currently in flight",
	})
}

// SimplePrometheusConfig creates a configuration with the default metrics and
// registers them with reg.
func SimplePrometheusConfig(reg prometheus.Registerer) (PrometheusConfig, error) {
	config := PrometheusConfig{
		DurationHistogram: DefaultPrometheusHistogram(),
		RequestCounter:    DefaultPrometheusCounter(),
		InFlightGauge:     DefaultPrometheusInFlightGauge(),
		DetailedMetrics:   true,
	}
	for _, c := range []prometheus.Collector{config.DurationHistogram, config.RequestCounter, config.InFlightGauge} {
		if err := reg.Register(c); err != nil {
			return PrometheusConfig{}, err
		}
	}
	return config, nil
}

// MustRegisterPrometheusMetrics registers the configured metrics with the
// default registerer and panics on failure.
func MustRegisterPrometheusMetrics(config PrometheusConfig) {
	if config.DurationHistogram != nil {
		prometheus.MustRegister(config.DurationHistogram)
	}
	if config.RequestCounter != nil {
		prometheus.MustRegister(config.RequestCounter)
	}
	if config.InFlightGauge != nil {
		prometheus.MustRegister(config.InFlightGauge)
	}
}

// UnregisterPrometheusMetrics unregisters Prometheus metrics (useful for testing).
func UnregisterPrometheusMetrics(config PrometheusConfig) {
	if config.DurationHistogram != nil {
		prometheus.Unregister(config.DurationHistogram)
	}
	if config.RequestCounter != nil {
		prometheus.Unregister(config.RequestCounter)
	}
	if config.InFlightGauge != nil {
		prometheus.Unregister(config.InFlightGauge)
	}
}
