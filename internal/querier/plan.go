// Package querier is the read side of the experiment: a single-threaded
// loop issuing a reproducible mix of query shapes against the backend,
// recording one observation per query.
package querier

import (
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
	"pkt.systems/searchbench/internal/metrics"
)

// PriceBand is one fixed price-range parameterization.
type PriceBand struct {
	Name string  `yaml:"name"`
	Min  float64 `yaml:"min"`
	Max  float64 `yaml:"max"`
}

// Catalog is the fixed parameter pool queries draw from. Keeping the
// pool fixed (rather than deriving bounds from live data) is what makes
// experiments repeatable.
type Catalog struct {
	PriceBands []PriceBand `yaml:"price_bands"`
	Terms      []string    `yaml:"terms"`
}

// DefaultCatalog covers narrow, medium, and full-range price bands plus
// terms that actually occur in the generated long names.
func DefaultCatalog() Catalog {
	return Catalog{
		PriceBands: []PriceBand{
			{Name: "narrow_low", Min: 1, Max: 60},
			{Name: "medium_mid", Min: 125, Max: 375},
			{Name: "wide_all", Min: 1, Max: 5000},
			{Name: "penny", Min: 1, Max: 10},
			{Name: "small_cap", Min: 10, Max: 50},
			{Name: "mid_cap", Min: 50, Max: 200},
			{Name: "large_cap", Min: 200, Max: 1000},
			{Name: "high_value", Min: 1000, Max: 5000},
		},
		Terms: []string{
			"Equity", "Sustainable", "Infrastructure", "Energy",
			"Europe", "Strategy", "Investment", "Analytics",
		},
	}
}

// LoadCatalog reads a YAML catalog file.
func LoadCatalog(path string) (Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("catalog: %w", err)
	}
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return Catalog{}, fmt.Errorf("catalog %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return Catalog{}, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// Validate rejects catalogs that cannot parameterize every shape.
func (c Catalog) Validate() error {
	if len(c.PriceBands) == 0 {
		return fmt.Errorf("no price bands")
	}
	if len(c.Terms) == 0 {
		return fmt.Errorf("no terms")
	}
	for _, band := range c.PriceBands {
		if band.Min <= 0 || band.Max <= 0 || band.Min > band.Max {
			return fmt.Errorf("price band %q: invalid range [%.2f,%.2f]", band.Name, band.Min, band.Max)
		}
	}
	for _, term := range c.Terms {
		if strings.TrimSpace(term) == "" {
			return fmt.Errorf("empty term")
		}
	}
	return nil
}

// PlanEntry weights one shape in a weighted plan.
type PlanEntry struct {
	Shape  metrics.QueryShape
	Weight int
}

// Plan produces the shape sequence. Round-robin cycles the taxonomy in
// canonical order; weighted draws from the configured weights.
type Plan struct {
	entries    []PlanEntry
	total      int
	roundRobin bool
	pos        int
}

// DefaultPlanSpec is the weighted mix used when none is configured.
const DefaultPlanSpec = "price-range=50,text=30,combined=20"

// ParsePlan accepts "round-robin" or a weighted spec like
// "price-range=50,text=30,combined=20". Empty uses DefaultPlanSpec.
func ParsePlan(spec string) (*Plan, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		spec = DefaultPlanSpec
	}
	if strings.EqualFold(spec, "round-robin") {
		entries := make([]PlanEntry, 0, len(metrics.Shapes))
		for _, shape := range metrics.Shapes {
			entries = append(entries, PlanEntry{Shape: shape, Weight: 1})
		}
		return &Plan{entries: entries, roundRobin: true}, nil
	}
	var (
		entries []PlanEntry
		total   int
	)
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, weightStr, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("plan: %q: expected shape=weight", part)
		}
		shape, err := metrics.ParseShape(strings.TrimSpace(name))
		if err != nil {
			return nil, fmt.Errorf("plan: %w", err)
		}
		weight, err := strconv.Atoi(strings.TrimSpace(weightStr))
		if err != nil || weight <= 0 {
			return nil, fmt.Errorf("plan: %q: weight must be a positive integer", part)
		}
		for _, e := range entries {
			if e.Shape == shape {
				return nil, fmt.Errorf("plan: duplicate shape %q", shape)
			}
		}
		entries = append(entries, PlanEntry{Shape: shape, Weight: weight})
		total += weight
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("plan: empty")
	}
	return &Plan{entries: entries, total: total}, nil
}

// Next returns the next shape. Weighted plans consume rng; round-robin
// plans do not, so the two modes stay independently reproducible.
func (p *Plan) Next(rng *rand.Rand) metrics.QueryShape {
	if p.roundRobin {
		shape := p.entries[p.pos%len(p.entries)].Shape
		p.pos++
		return shape
	}
	n := rng.Intn(p.total)
	for _, e := range p.entries {
		if n < e.Weight {
			return e.Shape
		}
		n -= e.Weight
	}
	return p.entries[len(p.entries)-1].Shape
}
