package querier

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/searchbench/api"
	"pkt.systems/searchbench/internal/logtag"
	"pkt.systems/searchbench/internal/metrics"
	"pkt.systems/searchbench/internal/telemetry"
)

// Backend is the slice of the client the driver needs.
type Backend interface {
	Search(ctx context.Context, q api.SearchQuery) (*api.SearchResult, error)
}

// Sink persists observations. A non-nil error aborts the driver.
type Sink interface {
	Append(v any) error
}

// Config parameterizes one driver run.
type Config struct {
	// Plan decides the shape sequence.
	Plan *Plan
	// Catalog is the fixed parameter pool for each shape.
	Catalog Catalog
	// Interval is the pause between queries. Zero means back-to-back.
	Interval time.Duration
	// Size caps hits per query so result assembly cost stays comparable.
	Size int
	// Seed feeds the driver's private random source.
	Seed int64
	// RunID is stamped into every observation.
	RunID string
	// Logger receives per-query summaries. Nil disables logging.
	Logger pslog.Logger
	// Metrics optionally feeds live counters. Nil disables.
	Metrics *telemetry.DriverMetrics
}

// Driver runs the query loop. Query construction is deterministic given
// the catalog, plan, and seed, so a run can be repeated exactly.
type Driver struct {
	backend Backend
	sink    Sink
	cfg     Config
	logger  pslog.Logger
	rng     *rand.Rand
}

// New validates the config.
func New(backend Backend, sink Sink, cfg Config) (*Driver, error) {
	if backend == nil {
		return nil, fmt.Errorf("querier: backend required")
	}
	if sink == nil {
		return nil, fmt.Errorf("querier: sink required")
	}
	if cfg.Plan == nil {
		return nil, fmt.Errorf("querier: plan required")
	}
	if err := cfg.Catalog.Validate(); err != nil {
		return nil, fmt.Errorf("querier: %w", err)
	}
	if cfg.Interval < 0 {
		return nil, fmt.Errorf("querier: interval must be >= 0")
	}
	return &Driver{
		backend: backend,
		sink:    sink,
		cfg:     cfg,
		logger:  logtag.Sys(cfg.Logger, "querier"),
		rng:     rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// Run loops until ctx is done, with the same cooperative cancellation
// model as the mutation driver: checked between iterations, never
// preempting an in-flight query. Only metrics write failures are fatal.
func (d *Driver) Run(ctx context.Context) error {
	d.logger.Info("querier.start",
		"interval", d.cfg.Interval,
		"price_bands", len(d.cfg.Catalog.PriceBands),
		"terms", len(d.cfg.Catalog.Terms),
	)
	for sequence := 1; ; sequence++ {
		if ctx.Err() != nil {
			d.logger.Info("querier.stop", "queries", sequence-1)
			return nil
		}
		shape := d.cfg.Plan.Next(d.rng)
		query, desc := d.buildQuery(shape)

		start := time.Now()
		// Background context: the per-call timeout lives in the client,
		// and cancellation must not interrupt an in-flight query.
		res, err := d.backend.Search(context.Background(), query)
		elapsed := time.Since(start)

		obs := metrics.QueryObservation{
			RunID:     d.cfg.RunID,
			Timestamp: start,
			Shape:     shape,
			Duration:  elapsed,
			Success:   err == nil,
		}
		if err != nil {
			// Failed queries keep their measured elapsed time (bounded
			// by the call timeout) and are recorded, never dropped.
			obs.Error = err.Error()
		} else {
			obs.ResultCount = res.TotalHits
		}
		if werr := d.sink.Append(obs); werr != nil {
			d.logger.Error("querier.sink.write_failure", "error", werr)
			return werr
		}
		d.cfg.Metrics.Observe(string(shape), elapsed.Seconds(), err != nil)
		if err != nil {
			d.logger.Warn("querier.search.error",
				"seq", sequence,
				"shape", shape,
				"query", desc,
				"elapsed", elapsed,
				"error", err,
			)
		} else {
			d.logger.Info("querier.search.done",
				"seq", sequence,
				"shape", shape,
				"query", desc,
				"hits", res.TotalHits,
				"returned", res.Returned,
				"elapsed", elapsed,
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

// buildQuery parameterizes the chosen shape from the catalog. Given the
// same catalog entry, the constructed query is always identical; only
// the entry selection consumes randomness.
func (d *Driver) buildQuery(shape metrics.QueryShape) (api.SearchQuery, string) {
	q := api.SearchQuery{Size: d.cfg.Size, SortByPrice: true}
	var desc string
	switch shape {
	case metrics.ShapePriceRange:
		band := d.cfg.Catalog.PriceBands[d.rng.Intn(len(d.cfg.Catalog.PriceBands))]
		q.MinPrice, q.MaxPrice = band.Min, band.Max
		desc = fmt.Sprintf("%s[%.0f,%.0f]", band.Name, band.Min, band.Max)
	case metrics.ShapeText:
		term := d.cfg.Catalog.Terms[d.rng.Intn(len(d.cfg.Catalog.Terms))]
		q.Term = term
		q.SortByPrice = false
		desc = term
	case metrics.ShapeCombined:
		band := d.cfg.Catalog.PriceBands[d.rng.Intn(len(d.cfg.Catalog.PriceBands))]
		term := d.cfg.Catalog.Terms[d.rng.Intn(len(d.cfg.Catalog.Terms))]
		q.MinPrice, q.MaxPrice = band.Min, band.Max
		q.Term = term
		desc = fmt.Sprintf("%s[%.0f,%.0f]+%s", band.Name, band.Min, band.Max, term)
	}
	return q, desc
}
