// Package analyze is the offline stage: it consumes the two metric
// streams after both drivers have stopped, reconstructs the
// mutation-activity timeline, and derives per-shape latency statistics
// for baseline versus during-update queries.
package analyze

import (
	"sort"
	"time"

	"pkt.systems/searchbench/internal/metrics"
)

// Interval is a closed [Start, End] time range.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the interval, endpoints
// included.
func (iv Interval) Contains(t time.Time) bool {
	return !t.Before(iv.Start) && !t.After(iv.End)
}

// Windows is a coalesced, start-ordered interval set.
type Windows []Interval

// Contains reports whether any interval in the set covers t.
func (w Windows) Contains(t time.Time) bool {
	i := sort.Search(len(w), func(i int) bool { return w[i].Start.After(t) })
	if i == 0 {
		return false
	}
	return !t.After(w[i-1].End)
}

// BuildWindows turns mutation observations into the activity window
// set: each batch contributes [ts, ts+duration] expanded by margin on
// both sides to absorb store-side propagation delay and clock skew,
// then overlapping windows are coalesced.
func BuildWindows(muts []metrics.MutationObservation, margin time.Duration) Windows {
	ivs := make([]Interval, 0, len(muts))
	for _, m := range muts {
		ivs = append(ivs, Interval{
			Start: m.Timestamp.Add(-margin),
			End:   m.Timestamp.Add(m.Duration + margin),
		})
	}
	return Coalesce(ivs)
}

// Coalesce sorts intervals by start and merges every overlapping or
// touching pair. The input slice is not modified.
func Coalesce(ivs []Interval) Windows {
	if len(ivs) == 0 {
		return nil
	}
	sorted := make([]Interval, len(ivs))
	copy(sorted, ivs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })
	out := sorted[:1]
	for _, iv := range sorted[1:] {
		last := &out[len(out)-1]
		if !iv.Start.After(last.End) {
			if iv.End.After(last.End) {
				last.End = iv.End
			}
			continue
		}
		out = append(out, iv)
	}
	return out
}
