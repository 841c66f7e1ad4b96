package analyze

import (
	"math"
	"sort"
	"time"
)

// Bundle is the stat summary for one shape and label bucket. Latency
// figures cover successful queries only; Count and ErrorRate cover
// every observation in the bucket, so failures still show up even
// though their (timeout-bounded) durations do not skew the latencies.
type Bundle struct {
	Count     int
	Errors    int
	ErrorRate float64
	Mean      time.Duration
	Median    time.Duration
	P95       time.Duration
	P99       time.Duration
}

func summarize(total, errs int, durations []time.Duration) Bundle {
	b := Bundle{Count: total, Errors: errs}
	if total > 0 {
		b.ErrorRate = float64(errs) / float64(total)
	}
	if len(durations) == 0 {
		return b
	}
	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	var sum time.Duration
	for _, d := range sorted {
		sum += d
	}
	b.Mean = sum / time.Duration(len(sorted))
	b.Median = percentile(sorted, 50)
	b.P95 = percentile(sorted, 95)
	b.P99 = percentile(sorted, 99)
	return b
}

func percentile(sorted []time.Duration, pct float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	if pct <= 0 {
		return sorted[0]
	}
	if pct >= 100 {
		return sorted[len(sorted)-1]
	}
	pos := (pct / 100.0) * float64(len(sorted)-1)
	idx := int(math.Round(pos))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
