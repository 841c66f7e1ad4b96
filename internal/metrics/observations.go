// Package metrics defines the observation records the drivers emit and
// the append-only JSON Lines streams that carry them. Each stream has
// exactly one producer process; the analyzer only reads.
package metrics

import (
	"fmt"
	"time"
)

// QueryShape is the closed taxonomy of search request categories.
type QueryShape string

const (
	ShapePriceRange QueryShape = "price-range"
	ShapeText       QueryShape = "text"
	ShapeCombined   QueryShape = "combined"
)

// Shapes lists the taxonomy in its canonical reporting order.
var Shapes = []QueryShape{ShapePriceRange, ShapeText, ShapeCombined}

// Valid reports whether s is one of the closed taxonomy values.
func (s QueryShape) Valid() bool {
	switch s {
	case ShapePriceRange, ShapeText, ShapeCombined:
		return true
	}
	return false
}

// ParseShape converts an external string into a QueryShape.
func ParseShape(s string) (QueryShape, error) {
	shape := QueryShape(s)
	if !shape.Valid() {
		return "", fmt.Errorf("unknown query shape %q (expected price-range, text, or combined)", s)
	}
	return shape, nil
}

// MutationObservation records one bulk price-update batch.
// SuccessCount + ErrorCount always equals BatchSize.
type MutationObservation struct {
	RunID        string        `json:"run_id,omitempty"`
	Timestamp    time.Time     `json:"ts"`
	BatchSize    int           `json:"batch_size"`
	Duration     time.Duration `json:"duration"`
	SuccessCount int           `json:"success_count"`
	ErrorCount   int           `json:"error_count"`
}

// Validate checks the batch accounting invariant.
func (o MutationObservation) Validate() error {
	if o.BatchSize <= 0 {
		return fmt.Errorf("mutation observation: batch_size %d must be > 0", o.BatchSize)
	}
	if o.SuccessCount+o.ErrorCount != o.BatchSize {
		return fmt.Errorf("mutation observation: success_count %d + error_count %d != batch_size %d",
			o.SuccessCount, o.ErrorCount, o.BatchSize)
	}
	if o.Duration < 0 {
		return fmt.Errorf("mutation observation: negative duration %s", o.Duration)
	}
	return nil
}

// QueryObservation records one search call. Failed queries keep their
// measured elapsed time (bounded by the per-call timeout) and set
// Success=false; they are never dropped, since dropped observations
// would bias the degradation statistics.
type QueryObservation struct {
	RunID       string        `json:"run_id,omitempty"`
	Timestamp   time.Time     `json:"ts"`
	Shape       QueryShape    `json:"query_shape"`
	Duration    time.Duration `json:"duration"`
	ResultCount int           `json:"result_count"`
	Success     bool          `json:"success"`
	Error       string        `json:"error,omitempty"`
}

// Validate checks the closed-taxonomy invariant.
func (o QueryObservation) Validate() error {
	if !o.Shape.Valid() {
		return fmt.Errorf("query observation: invalid query_shape %q", o.Shape)
	}
	if o.Duration < 0 {
		return fmt.Errorf("query observation: negative duration %s", o.Duration)
	}
	return nil
}
