package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/joeabbey/httptimer/internal/probe"
	"github.com/joeabbey/httptimer/internal/report"
	"github.com/joeabbey/httptimer/internal/tracing"
	"github.com/joeabbey/httptimer/pkg/httptimer"
)

// probeCmd represents the probe command
var probeCmd = &cobra.Command{
	Use:   "probe <url> [url...]",
	Short: "Time repeated requests to one or more URLs",
	Long: `Probe sends a number of requests to each URL and summarizes the total latency
and the average of every lifecycle phase.

Example:
  httptimer probe https://example.com
  httptimer probe -n 20 -c 4 --details https://example.com
  httptimer probe -o json --metrics-addr :9090 https://a.example https://b.example
  httptimer probe --otlp-endpoint localhost:4318 --otlp-insecure https://example.com`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)

	probeCmd.Flags().IntP("iterations", "n", 1, "number of requests per URL")
	probeCmd.Flags().IntP("concurrency", "c", 1, "number of concurrent requests")
	probeCmd.Flags().StringP("method", "X", http.MethodGet, "HTTP method")
	probeCmd.Flags().Duration("timeout", 30*time.Second, "per-request timeout, including the body")
	probeCmd.Flags().Bool("keep-alives", false, "reuse connections between requests")
	probeCmd.Flags().Bool("details", false, "show every request's phases")
	probeCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address until interrupted")
	probeCmd.Flags().String("otlp-endpoint", "", "export request spans to this OTLP/HTTP collector, e.g. localhost:4318")
	probeCmd.Flags().Bool("otlp-insecure", false, "use plain HTTP for the OTLP collector")
}

func runProbe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []httptimer.Option{
		httptimer.WithKeepAlives(cfg.KeepAlives),
		httptimer.WithTimeout(10*time.Second, cfg.Timeout),
		httptimer.WithLogger(logger),
	}

	if cfg.OTLPEndpoint != "" {
		provider, err := tracing.Setup(ctx, tracing.Config{
			ServiceName:    "httptimer",
			ServiceVersion: version,
			Endpoint:       cfg.OTLPEndpoint,
			Insecure:       cfg.OTLPInsecure,
		})
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := provider.Shutdown(shutdownCtx); err != nil {
				logger.Warn("failed to flush spans", "error", err)
			}
		}()
		opts = append(opts, httptimer.WithSimpleOpenTelemetry(provider.Tracer()))
	}

	var metrics *metricsServer
	if cfg.MetricsAddr != "" {
		var err error
		metrics, err = startMetrics(cfg.MetricsAddr)
		if err != nil {
			return err
		}
		defer metrics.Close()
		opts = append(opts, httptimer.WithPrometheus(metrics.config))
	}

	runner := &probe.Runner{
		Client:      &http.Client{Transport: httptimer.New(opts...)},
		Method:      cfg.Method,
		Iterations:  cfg.Iterations,
		Concurrency: cfg.Concurrency,
		Timeout:     cfg.Timeout,
	}
	if cfg.Output == report.FormatText && !cfg.Details {
		runner.OnSample = func(s report.Sample) {
			report.Progress(stdout, s)
		}
	}

	summaries := make([]report.Summary, 0, len(args))
	for _, url := range args {
		logger.Info("probing", "url", url, "iterations", cfg.Iterations, "concurrency", cfg.Concurrency)
		summaries = append(summaries, report.Summarize(url, runner.Run(ctx, url)))
	}

	if err := writeSummaries(summaries); err != nil {
		return err
	}

	if metrics != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Serving metrics on http://%s/metrics (Ctrl-C to stop)\n", metrics.Addr())
		<-ctx.Done()
	}
	return nil
}

func writeSummaries(summaries []report.Summary) error {
	switch cfg.Output {
	case report.FormatJSON:
		if len(summaries) == 1 {
			return report.JSON(stdout, summaries[0])
		}
		return report.JSON(stdout, summaries)
	case report.FormatYAML:
		if len(summaries) == 1 {
			return report.YAML(stdout, summaries[0])
		}
		return report.YAML(stdout, summaries)
	case report.FormatShort:
		for _, s := range summaries {
			report.Short(stdout, s)
		}
		return nil
	default:
		for _, s := range summaries {
			if err := report.Text(stdout, s, cfg.Details); err != nil {
				return err
			}
		}
		return nil
	}
}

// metricsServer exposes the probe metrics on a dedicated registry.
type metricsServer struct {
	config   httptimer.PrometheusConfig
	listener net.Listener
	server   *http.Server
}

func startMetrics(addr string) (*metricsServer, error) {
	reg := prometheus.NewRegistry()
	config, err := httptimer.SimplePrometheusConfig(reg)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	m := &metricsServer{
		config:   config,
		listener: listener,
		server:   &http.Server{Handler: router, ReadHeaderTimeout: 5 * time.Second},
	}

	go func() {
		if err := m.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	return m, nil
}

func (m *metricsServer) Addr() string {
	return m.listener.Addr().String()
}

func (m *metricsServer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.server.Shutdown(ctx)
}
