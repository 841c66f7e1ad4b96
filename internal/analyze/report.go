package analyze

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"text/tabwriter"
	"time"

	"pkt.systems/searchbench/internal/metrics"
)

// Labels queries are bucketed under.
const (
	LabelBaseline = "baseline"
	LabelDuring   = "during-update"
)

// AnalysisInputError marks a metrics stream that cannot be analyzed at
// all. Per-shape gaps (empty buckets, undefined ratios) are warnings in
// the report instead, so partial data still produces output.
type AnalysisInputError struct {
	Stream string
	Err    error
}

func (e *AnalysisInputError) Error() string {
	return fmt.Sprintf("analysis input %s: %v", e.Stream, e.Err)
}

func (e *AnalysisInputError) Unwrap() error { return e.Err }

// ShapeReport compares one query shape across the two buckets.
type ShapeReport struct {
	Shape    metrics.QueryShape
	Baseline Bundle
	During   Bundle

	// Degradation is during-update mean over baseline mean. It is only
	// meaningful when DegradationDefined is true; an empty baseline (or
	// empty during bucket) leaves it undefined, never zero or Inf.
	Degradation        float64
	DegradationDefined bool
}

// Report is the analyzer's complete output. Two runs over the same
// input streams produce identical reports; nothing here depends on the
// wall clock.
type Report struct {
	Margin    time.Duration
	Windows   Windows
	Mutations int
	Queries   int
	NoOverlap bool
	Shapes    []ShapeReport
	Warnings  []string
}

// Analyze buckets every query observation as baseline or during-update
// against the margin-expanded mutation windows and summarizes per
// shape. Shapes are reported in canonical order regardless of stream
// order.
func Analyze(muts []metrics.MutationObservation, queries []metrics.QueryObservation, margin time.Duration) (*Report, error) {
	if margin < 0 {
		return nil, &AnalysisInputError{Stream: "margin", Err: fmt.Errorf("must be >= 0, got %s", margin)}
	}
	if len(queries) == 0 {
		return nil, &AnalysisInputError{Stream: "queries", Err: fmt.Errorf("no observations")}
	}

	r := &Report{
		Margin:    margin,
		Windows:   BuildWindows(muts, margin),
		Mutations: len(muts),
		Queries:   len(queries),
	}
	if len(muts) == 0 {
		r.Warnings = append(r.Warnings, "mutation stream is empty; every query is baseline")
	} else if disjoint(muts, queries) {
		r.NoOverlap = true
		r.Warnings = append(r.Warnings, "no overlap: the mutation and query streams cover disjoint time ranges; every query is baseline")
	}

	type bucket struct {
		total int
		errs  int
		durs  []time.Duration
	}
	var buckets [2]map[metrics.QueryShape]*bucket
	for i := range buckets {
		buckets[i] = make(map[metrics.QueryShape]*bucket)
	}
	for _, q := range queries {
		idx := 0
		if !r.NoOverlap && r.Windows.Contains(q.Timestamp) {
			idx = 1
		}
		b := buckets[idx][q.Shape]
		if b == nil {
			b = &bucket{}
			buckets[idx][q.Shape] = b
		}
		b.total++
		if q.Success {
			b.durs = append(b.durs, q.Duration)
		} else {
			b.errs++
		}
	}

	for _, shape := range metrics.Shapes {
		base, during := buckets[0][shape], buckets[1][shape]
		if base == nil && during == nil {
			continue
		}
		sr := ShapeReport{Shape: shape}
		if base != nil {
			sr.Baseline = summarize(base.total, base.errs, base.durs)
		}
		if during != nil {
			sr.During = summarize(during.total, during.errs, during.durs)
		}
		switch {
		case sr.Baseline.Mean > 0 && sr.During.Mean > 0:
			sr.Degradation = float64(sr.During.Mean) / float64(sr.Baseline.Mean)
			sr.DegradationDefined = true
		case sr.Baseline.Count == 0:
			r.Warnings = append(r.Warnings, fmt.Sprintf("shape %s: no baseline observations; degradation undefined", shape))
		case sr.During.Count == 0:
			r.Warnings = append(r.Warnings, fmt.Sprintf("shape %s: no during-update observations; degradation undefined", shape))
		default:
			r.Warnings = append(r.Warnings, fmt.Sprintf("shape %s: no successful observations in one bucket; degradation undefined", shape))
		}
		r.Shapes = append(r.Shapes, sr)
	}
	if len(r.Shapes) == 0 {
		return nil, &AnalysisInputError{Stream: "queries", Err: fmt.Errorf("no observations with a known query shape")}
	}
	return r, nil
}

// disjoint reports whether the raw (unexpanded) time spans of the two
// streams do not intersect at all.
func disjoint(muts []metrics.MutationObservation, queries []metrics.QueryObservation) bool {
	mutStart, mutEnd := muts[0].Timestamp, muts[0].Timestamp.Add(muts[0].Duration)
	for _, m := range muts[1:] {
		if m.Timestamp.Before(mutStart) {
			mutStart = m.Timestamp
		}
		if end := m.Timestamp.Add(m.Duration); end.After(mutEnd) {
			mutEnd = end
		}
	}
	qStart, qEnd := queries[0].Timestamp, queries[0].Timestamp
	for _, q := range queries[1:] {
		if q.Timestamp.Before(qStart) {
			qStart = q.Timestamp
		}
		if q.Timestamp.After(qEnd) {
			qEnd = q.Timestamp
		}
	}
	return qEnd.Before(mutStart) || qStart.After(mutEnd)
}

// WriteTable renders the report as an aligned console table.
func (r *Report) WriteTable(w io.Writer) error {
	fmt.Fprintf(w, "mutations: %d  queries: %d  windows: %d  margin: %s\n",
		r.Mutations, r.Queries, len(r.Windows), r.Margin)
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "SHAPE\tLABEL\tCOUNT\tERRORS\tERR%\tMEAN\tMEDIAN\tP95\tP99\tDEGRADATION")
	for _, sr := range r.Shapes {
		writeRow(tw, sr.Shape, LabelBaseline, sr.Baseline, "")
		deg := "undefined"
		if sr.DegradationDefined {
			deg = fmt.Sprintf("%.2fx", sr.Degradation)
		}
		writeRow(tw, sr.Shape, LabelDuring, sr.During, deg)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, warning := range r.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
	return nil
}

func writeRow(w io.Writer, shape metrics.QueryShape, label string, b Bundle, deg string) {
	fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.1f\t%s\t%s\t%s\t%s\t%s\n",
		shape, label, b.Count, b.Errors, b.ErrorRate*100,
		fmtDur(b.Mean), fmtDur(b.Median), fmtDur(b.P95), fmtDur(b.P99), deg)
}

func fmtDur(d time.Duration) string {
	if d == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1fms", float64(d)/float64(time.Millisecond))
}

// WriteCSV writes the shape and label stat table for external charting.
func (r *Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	header := []string{"shape", "label", "count", "errors", "error_rate", "mean_ms", "median_ms", "p95_ms", "p99_ms", "degradation"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, sr := range r.Shapes {
		deg := ""
		if sr.DegradationDefined {
			deg = strconv.FormatFloat(sr.Degradation, 'f', 4, 64)
		}
		if err := cw.Write(csvRow(sr.Shape, LabelBaseline, sr.Baseline, "")); err != nil {
			return err
		}
		if err := cw.Write(csvRow(sr.Shape, LabelDuring, sr.During, deg)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRow(shape metrics.QueryShape, label string, b Bundle, deg string) []string {
	return []string{
		string(shape), label,
		strconv.Itoa(b.Count), strconv.Itoa(b.Errors),
		strconv.FormatFloat(b.ErrorRate, 'f', 4, 64),
		ms(b.Mean), ms(b.Median), ms(b.P95), ms(b.P99),
		deg,
	}
}

func ms(d time.Duration) string {
	return strconv.FormatFloat(float64(d)/float64(time.Millisecond), 'f', 3, 64)
}

// WriteAlignedSeries writes every query observation with its label on
// the shared timeline, for external plotting. Rows are sorted by
// timestamp, then shape, so output is stable for identical inputs.
func (r *Report) WriteAlignedSeries(w io.Writer, queries []metrics.QueryObservation) error {
	rows := make([]metrics.QueryObservation, len(queries))
	copy(rows, queries)
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].Timestamp.Equal(rows[j].Timestamp) {
			return rows[i].Timestamp.Before(rows[j].Timestamp)
		}
		return rows[i].Shape < rows[j].Shape
	})
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"ts", "shape", "label", "duration_ms", "success", "result_count"}); err != nil {
		return err
	}
	for _, q := range rows {
		label := LabelBaseline
		if !r.NoOverlap && r.Windows.Contains(q.Timestamp) {
			label = LabelDuring
		}
		row := []string{
			q.Timestamp.UTC().Format(time.RFC3339Nano),
			string(q.Shape), label,
			ms(q.Duration),
			strconv.FormatBool(q.Success),
			strconv.Itoa(q.ResultCount),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
