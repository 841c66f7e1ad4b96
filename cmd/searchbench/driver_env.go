package main

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"pkt.systems/pslog"
	"pkt.systems/searchbench/internal/hostmon"
	"pkt.systems/searchbench/internal/telemetry"
)

// driverEnv bundles the optional side-cars a driver command can run:
// a Prometheus scrape listener and a host resource sampler. Both are
// observability only; the JSONL streams stay the source of truth.
type driverEnv struct {
	metrics *telemetry.DriverMetrics
	server  *telemetry.Server
	cancel  context.CancelFunc
}

func startDriverEnv(ctx context.Context, driver, metricsListen string, hostmonInterval time.Duration, logger pslog.Logger) (*driverEnv, error) {
	env := &driverEnv{}
	if metricsListen != "" {
		reg := prometheus.NewRegistry()
		env.metrics = telemetry.NewDriverMetrics(reg, driver)
		server, err := telemetry.StartMetricsServer(metricsListen, reg, logger)
		if err != nil {
			return nil, err
		}
		env.server = server
	}
	if hostmonInterval > 0 {
		monCtx, cancel := context.WithCancel(ctx)
		env.cancel = cancel
		go hostmon.New(hostmonInterval, logger).Run(monCtx)
	}
	return env, nil
}

func (e *driverEnv) Close(logger pslog.Logger) {
	if e.cancel != nil {
		e.cancel()
	}
	if e.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.server.Close(shutdownCtx); err != nil {
			logger.Warn("metrics listener shutdown failed", "error", err)
		}
	}
}
