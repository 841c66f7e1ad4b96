package searchbench

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultEndpoint is the backend base URL when none is configured.
	DefaultEndpoint = "http://localhost:9200"
	// DefaultIndex is the index both drivers operate against.
	DefaultIndex = "instruments"
	// DefaultHTTPTimeout bounds a single backend call.
	DefaultHTTPTimeout = 30 * time.Second
	// DefaultBatchSize is the number of price updates per bulk call.
	DefaultBatchSize = 1000
	// DefaultUpdateInterval is the pause between bulk update batches.
	DefaultUpdateInterval = 2 * time.Second
	// DefaultSearchInterval is the pause between queries.
	DefaultSearchInterval = 1 * time.Second
	// DefaultSearchSize caps returned hits so timing stays comparable
	// across queries.
	DefaultSearchSize = 100
	// DefaultOverlapMargin widens mutation intervals on both sides before
	// labeling query observations, absorbing store-side propagation delay.
	DefaultOverlapMargin = 2 * time.Second
	// DefaultSeedCount is the instrument population generated by seed.
	DefaultSeedCount = 50000
	// DefaultPriceJitter bounds the absolute price delta applied per update.
	DefaultPriceJitter = 25.0
	// DefaultUpdateStream is the mutation driver's metrics file.
	DefaultUpdateStream = "price_update_metrics.jsonl"
	// DefaultSearchStream is the query driver's metrics file.
	DefaultSearchStream = "search_performance_metrics.jsonl"
)

// Price bounds for the instrument population. Updates clamp into this
// range; the dataset generator never leaves it.
const (
	MinPrice = 1.0
	MaxPrice = 5000.0
)

// Config carries the settings shared by every subcommand: where the
// backend lives and how long a single call may take. Driver-specific
// pacing lives on the respective driver configs.
type Config struct {
	// Endpoint is the backend base URL (scheme://host:port).
	Endpoint string
	// Index is the index name used for every backend call.
	Index string
	// HTTPTimeout bounds each backend call. Zero uses DefaultHTTPTimeout.
	HTTPTimeout time.Duration
}

// Validate normalizes the config and rejects unusable values.
func (c *Config) Validate() error {
	c.Endpoint = strings.TrimSpace(c.Endpoint)
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if !strings.HasPrefix(c.Endpoint, "http://") && !strings.HasPrefix(c.Endpoint, "https://") {
		return fmt.Errorf("endpoint %q: expected http:// or https:// URL", c.Endpoint)
	}
	c.Index = strings.TrimSpace(c.Index)
	if c.Index == "" {
		c.Index = DefaultIndex
	}
	if strings.ContainsAny(c.Index, " /\\") {
		return fmt.Errorf("index %q: must not contain spaces or slashes", c.Index)
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("http timeout must be >= 0")
	}
	if c.HTTPTimeout == 0 {
		c.HTTPTimeout = DefaultHTTPTimeout
	}
	return nil
}
