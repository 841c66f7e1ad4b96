// Package telemetry exposes live driver counters on an optional
// Prometheus scrape endpoint. The offline metric streams remain the
// source of truth for analysis; this is operator visibility only.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"pkt.systems/pslog"
	"pkt.systems/searchbench/internal/logtag"
)

// DriverMetrics aggregates one driver's live counters. The driver label
// distinguishes mutation and query processes when both scrape targets
// feed one dashboard; shape is empty for mutation batches.
type DriverMetrics struct {
	driver   string
	ops      *prometheus.CounterVec
	errors   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewDriverMetrics registers the driver's collectors on reg.
func NewDriverMetrics(reg prometheus.Registerer, driver string) *DriverMetrics {
	m := &DriverMetrics{
		driver: driver,
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "searchbench_ops_total",
			Help: "Operations issued against the backend.",
		}, []string{"driver", "shape"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "searchbench_op_errors_total",
			Help: "Operations that failed (timeout, transport, or server error).",
		}, []string{"driver", "shape"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "searchbench_op_duration_seconds",
			Help:    "Wall-clock duration of backend operations.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 16),
		}, []string{"driver", "shape"}),
	}
	if reg != nil {
		reg.MustRegister(m.ops, m.errors, m.duration)
	}
	return m
}

// Observe records one completed operation.
func (m *DriverMetrics) Observe(shape string, seconds float64, failed bool) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{"driver": m.driver, "shape": shape}
	m.ops.With(labels).Inc()
	m.duration.With(labels).Observe(seconds)
	if failed {
		m.errors.With(labels).Inc()
	}
}

// Server is a running metrics listener.
type Server struct {
	srv *http.Server
	ln  net.Listener
}

// StartMetricsServer serves the registry on addr under /metrics. Empty
// addr is rejected by the caller, not here.
func StartMetricsServer(addr string, reg *prometheus.Registry, logger pslog.Logger) (*Server, error) {
	logger = logtag.Sys(logger, "telemetry")
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("telemetry: metrics listen: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("telemetry.metrics.serve_error", "error", err)
		}
	}()
	logger.Info("telemetry.metrics.listening", "addr", ln.Addr().String())
	return &Server{srv: srv, ln: ln}, nil
}

// Addr returns the bound listen address.
func (s *Server) Addr() string {
	if s == nil || s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Close shuts the listener down.
func (s *Server) Close(ctx context.Context) error {
	if s == nil || s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
