// Package hostmon periodically samples host CPU and memory while a
// driver runs, so harness self-load shows up in the run log and a slow
// harness machine is not mistaken for backend degradation.
package hostmon

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"pkt.systems/pslog"
	"pkt.systems/searchbench/internal/logtag"
)

// DefaultInterval is the sampling cadence when none is configured.
const DefaultInterval = 10 * time.Second

// Sampler logs one host snapshot per interval until its context ends.
type Sampler struct {
	interval time.Duration
	logger   pslog.Logger
}

// New builds a sampler. Zero interval uses DefaultInterval.
func New(interval time.Duration, logger pslog.Logger) *Sampler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Sampler{interval: interval, logger: logtag.Sys(logger, "hostmon")}
}

// Run blocks, sampling once per interval. It returns when ctx ends.
// Sampling failures are logged and skipped, never fatal.
func (s *Sampler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sample(ctx)
		}
	}
}

func (s *Sampler) sample(ctx context.Context) {
	cpuPcts, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		s.logger.Debug("hostmon.cpu.error", "error", err)
		return
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		s.logger.Debug("hostmon.mem.error", "error", err)
		return
	}
	cpuPct := 0.0
	if len(cpuPcts) > 0 {
		cpuPct = cpuPcts[0]
	}
	s.logger.Info("hostmon.sample",
		"cpu_pct", cpuPct,
		"mem_used_pct", vm.UsedPercent,
		"mem_available", vm.Available,
	)
}
