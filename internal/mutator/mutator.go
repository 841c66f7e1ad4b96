// Package mutator is the bulk-update side of the experiment: a
// single-threaded loop that keeps a steady stream of partial price
// updates flowing against the shared record population, recording one
// observation per batch.
package mutator

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/searchbench/api"
	"pkt.systems/searchbench/internal/instrument"
	"pkt.systems/searchbench/internal/logtag"
	"pkt.systems/searchbench/internal/metrics"
	"pkt.systems/searchbench/internal/telemetry"
)

// Backend is the slice of the client the driver needs.
type Backend interface {
	BulkUpdatePrices(ctx context.Context, updates []api.PriceUpdate) (api.BulkResult, error)
}

// Sink persists observations. A non-nil error aborts the driver.
type Sink interface {
	Append(v any) error
}

// Config parameterizes one driver run.
type Config struct {
	// Population is the fixed record population (ISIN and current price)
	// discovered before the loop starts.
	Population []api.Instrument
	// BatchSize is the number of distinct records updated per bulk call.
	BatchSize int
	// Interval is the pause between batches. Zero means back-to-back.
	Interval time.Duration
	// PriceJitter bounds the absolute random delta applied per record.
	PriceJitter float64
	// Seed feeds the driver's private random source so batch sampling is
	// reproducible.
	Seed int64
	// RunID is stamped into every observation.
	RunID string
	// Logger receives per-iteration summaries. Nil disables logging.
	Logger pslog.Logger
	// Metrics optionally feeds live counters. Nil disables.
	Metrics *telemetry.DriverMetrics
}

// Driver runs the mutation loop. It owns its metrics stream exclusively
// and never touches any field other than price.
type Driver struct {
	backend Backend
	sink    Sink
	cfg     Config
	logger  pslog.Logger
	rng     *rand.Rand

	isins  []string
	prices []float64
	order  []int
}

// New validates the config and prepares the sampling state.
func New(backend Backend, sink Sink, cfg Config) (*Driver, error) {
	if backend == nil {
		return nil, fmt.Errorf("mutator: backend required")
	}
	if sink == nil {
		return nil, fmt.Errorf("mutator: sink required")
	}
	n := len(cfg.Population)
	if n == 0 {
		return nil, fmt.Errorf("mutator: empty population")
	}
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("mutator: batch size must be > 0")
	}
	if cfg.BatchSize > n {
		return nil, fmt.Errorf("mutator: batch size %d exceeds population %d", cfg.BatchSize, n)
	}
	if cfg.Interval < 0 {
		return nil, fmt.Errorf("mutator: interval must be >= 0")
	}
	if cfg.PriceJitter <= 0 {
		return nil, fmt.Errorf("mutator: price jitter must be > 0")
	}
	d := &Driver{
		backend: backend,
		sink:    sink,
		cfg:     cfg,
		logger:  logtag.Sys(cfg.Logger, "mutator"),
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		isins:   make([]string, n),
		prices:  make([]float64, n),
		order:   make([]int, n),
	}
	for i, in := range cfg.Population {
		if err := instrument.ValidateISIN(in.ISIN); err != nil {
			return nil, fmt.Errorf("mutator: population: %w", err)
		}
		d.isins[i] = in.ISIN
		d.prices[i] = instrument.ClampPrice(in.Price)
		d.order[i] = i
	}
	return d, nil
}

// Run loops until ctx is done. Cancellation is cooperative: it is checked
// between iterations only, so an in-flight bulk call always completes (or
// times out) and gets recorded. The only error Run returns is a fatal
// metrics write failure.
func (d *Driver) Run(ctx context.Context) error {
	d.logger.Info("mutator.start",
		"population", len(d.isins),
		"batch_size", d.cfg.BatchSize,
		"interval", d.cfg.Interval,
		"price_jitter", d.cfg.PriceJitter,
	)
	for iteration := 1; ; iteration++ {
		if ctx.Err() != nil {
			d.logger.Info("mutator.stop", "iterations", iteration-1)
			return nil
		}
		obs, callErr := d.runBatch()
		if err := d.sink.Append(obs); err != nil {
			d.logger.Error("mutator.sink.write_failure", "error", err)
			return err
		}
		rate := 0.0
		if obs.Duration > 0 {
			rate = float64(obs.SuccessCount) / obs.Duration.Seconds()
		}
		if callErr != nil {
			d.logger.Warn("mutator.batch.error",
				"iteration", iteration,
				"batch_size", obs.BatchSize,
				"elapsed", obs.Duration,
				"error", callErr,
			)
		} else {
			d.logger.Info("mutator.batch.done",
				"iteration", iteration,
				"updated", obs.SuccessCount,
				"errors", obs.ErrorCount,
				"elapsed", obs.Duration,
				"updates_per_sec", rate,
			)
		}
		if d.cfg.Interval > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(d.cfg.Interval):
			}
		}
	}
}

func (d *Driver) runBatch() (metrics.MutationObservation, error) {
	batch := d.sampleBatch()
	start := time.Now()
	// The call runs on a background context: per-call timeouts belong to
	// the backend client, and loop cancellation must not preempt an
	// in-flight batch.
	res, err := d.backend.BulkUpdatePrices(context.Background(), batch)
	elapsed := time.Since(start)

	obs := metrics.MutationObservation{
		RunID:     d.cfg.RunID,
		Timestamp: start,
		BatchSize: len(batch),
		Duration:  elapsed,
	}
	if err != nil {
		obs.ErrorCount = len(batch)
	} else {
		obs.SuccessCount = res.Success
		if obs.SuccessCount > obs.BatchSize {
			obs.SuccessCount = obs.BatchSize
		}
		obs.ErrorCount = obs.BatchSize - obs.SuccessCount
	}
	d.cfg.Metrics.Observe("", elapsed.Seconds(), err != nil)
	return obs, err
}

// sampleBatch picks BatchSize distinct records uniformly at random
// (without replacement within the batch, with replacement across
// batches) via a partial Fisher-Yates pass, then assigns each a jittered
// price clamped to the valid range.
func (d *Driver) sampleBatch() []api.PriceUpdate {
	n := len(d.order)
	k := d.cfg.BatchSize
	for i := 0; i < k; i++ {
		j := i + d.rng.Intn(n-i)
		d.order[i], d.order[j] = d.order[j], d.order[i]
	}
	batch := make([]api.PriceUpdate, k)
	for i := 0; i < k; i++ {
		idx := d.order[i]
		delta := (d.rng.Float64()*2 - 1) * d.cfg.PriceJitter
		price := instrument.ClampPrice(math.Round((d.prices[idx]+delta)*100) / 100)
		d.prices[idx] = price
		batch[i] = api.PriceUpdate{ISIN: d.isins[idx], Price: price}
	}
	return batch
}
