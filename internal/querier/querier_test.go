package querier

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"pkt.systems/searchbench/api"
	"pkt.systems/searchbench/internal/metrics"
)

type fakeBackend struct {
	mu      sync.Mutex
	queries []api.SearchQuery
	fail    bool
}

func (f *fakeBackend) Search(ctx context.Context, q api.SearchQuery) (*api.SearchResult, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	if f.fail {
		return nil, fmt.Errorf("backend search: status 503")
	}
	return &api.SearchResult{TotalHits: 42, Returned: 10}, nil
}

func (f *fakeBackend) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

type memSink struct {
	queries []metrics.QueryObservation
	err     error
}

func (s *memSink) Append(v any) error {
	if s.err != nil {
		return s.err
	}
	obs, ok := v.(metrics.QueryObservation)
	if !ok {
		return fmt.Errorf("unexpected observation type %T", v)
	}
	s.queries = append(s.queries, obs)
	return nil
}

func runQueries(t *testing.T, backend *fakeBackend, sink *memSink, cfg Config, n int) error {
	t.Helper()
	driver, err := New(backend, sink, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- driver.Run(ctx) }()
	deadline := time.After(5 * time.Second)
	for backend.count() < n {
		select {
		case <-deadline:
			cancel()
			t.Fatalf("driver did not issue %d queries in time", n)
		case <-time.After(time.Millisecond):
		}
	}
	cancel()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatalf("driver did not stop after cancellation")
		return nil
	}
}

func TestParsePlan(t *testing.T) {
	cases := []struct {
		name    string
		spec    string
		wantErr bool
	}{
		{"default on empty", "", false},
		{"round robin", "round-robin", false},
		{"weighted", "price-range=50,text=30,combined=20", false},
		{"single shape", "text=1", false},
		{"unknown shape", "fuzzy=10", true},
		{"zero weight", "text=0", true},
		{"negative weight", "text=-5", true},
		{"missing weight", "text", true},
		{"duplicate shape", "text=1,text=2", true},
		{"only separators", ",,", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParsePlan(tc.spec)
			if tc.wantErr && err == nil {
				t.Fatalf("ParsePlan(%q) succeeded, want error", tc.spec)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("ParsePlan(%q): %v", tc.spec, err)
			}
		})
	}
}

func TestRoundRobinCyclesCanonicalOrder(t *testing.T) {
	plan, err := ParsePlan("round-robin")
	if err != nil {
		t.Fatalf("ParsePlan: %v", err)
	}
	rng := rand.New(rand.NewSource(1))
	for round := 0; round < 3; round++ {
		for _, want := range metrics.Shapes {
			if got := plan.Next(rng); got != want {
				t.Fatalf("round %d: Next() = %s, want %s", round, got, want)
			}
		}
	}
}

func TestWeightedPlanHonorsWeights(t *testing.T) {
	plan, err := ParsePlan("price-range=1,text=0x1")
	if err == nil {
		t.Fatalf("ParsePlan accepted malformed weight, got %+v", plan)
	}
	plan, err = ParsePlan("text=1")
	if err != nil {
		t.Fatalf("ParsePlan: %v", err)
	}
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 10; i++ {
		if got := plan.Next(rng); got != metrics.ShapeText {
			t.Fatalf("single-shape plan drew %s", got)
		}
	}
}

func TestCatalogValidation(t *testing.T) {
	if err := DefaultCatalog().Validate(); err != nil {
		t.Fatalf("default catalog invalid: %v", err)
	}
	cases := []struct {
		name string
		c    Catalog
	}{
		{"no bands", Catalog{Terms: []string{"x"}}},
		{"no terms", Catalog{PriceBands: []PriceBand{{Name: "a", Min: 1, Max: 2}}}},
		{"inverted band", Catalog{PriceBands: []PriceBand{{Name: "a", Min: 5, Max: 2}}, Terms: []string{"x"}}},
		{"zero min", Catalog{PriceBands: []PriceBand{{Name: "a", Min: 0, Max: 2}}, Terms: []string{"x"}}},
		{"blank term", Catalog{PriceBands: []PriceBand{{Name: "a", Min: 1, Max: 2}}, Terms: []string{" "}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.c.Validate(); err == nil {
				t.Fatalf("Validate accepted %+v", tc.c)
			}
		})
	}
}

func TestDriverRecordsSuccessfulQueries(t *testing.T) {
	backend := &fakeBackend{}
	sink := &memSink{}
	plan, err := ParsePlan("round-robin")
	if err != nil {
		t.Fatalf("ParsePlan: %v", err)
	}
	if err := runQueries(t, backend, sink, Config{
		Plan:    plan,
		Catalog: DefaultCatalog(),
		Size:    25,
		Seed:    1,
	}, 3); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sink.queries) < 3 {
		t.Fatalf("recorded %d observations, want >= 3", len(sink.queries))
	}
	var last time.Time
	for i, obs := range sink.queries[:3] {
		if err := obs.Validate(); err != nil {
			t.Fatalf("observation %d: %v", i, err)
		}
		if obs.Shape != metrics.Shapes[i] {
			t.Fatalf("observation %d shape = %s, want %s", i, obs.Shape, metrics.Shapes[i])
		}
		if !obs.Success || obs.Error != "" || obs.ResultCount != 42 {
			t.Fatalf("observation %d = %+v, want success with 42 hits", i, obs)
		}
		if obs.Timestamp.Before(last) {
			t.Fatalf("observation %d timestamp went backwards", i)
		}
		last = obs.Timestamp
	}
	for i, q := range backend.queries[:3] {
		if q.Size != 25 {
			t.Fatalf("query %d size = %d, want 25", i, q.Size)
		}
	}
}

func TestDriverRecordsFailuresWithoutStopping(t *testing.T) {
	backend := &fakeBackend{fail: true}
	sink := &memSink{}
	plan, err := ParsePlan("price-range=1")
	if err != nil {
		t.Fatalf("ParsePlan: %v", err)
	}
	if err := runQueries(t, backend, sink, Config{
		Plan:    plan,
		Catalog: DefaultCatalog(),
		Seed:    1,
	}, 2); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sink.queries) < 2 {
		t.Fatalf("failing backend dropped observations: got %d, want >= 2", len(sink.queries))
	}
	for i, obs := range sink.queries[:2] {
		if obs.Success {
			t.Fatalf("observation %d marked success for a failed call", i)
		}
		if obs.Error == "" {
			t.Fatalf("observation %d lost its error text", i)
		}
		if obs.Duration < 0 {
			t.Fatalf("observation %d has negative duration", i)
		}
	}
}

func TestDriverStopsOnSinkWriteFailure(t *testing.T) {
	backend := &fakeBackend{}
	failure := &metrics.WriteFailure{Path: "stream", Err: fmt.Errorf("disk full")}
	sink := &memSink{err: failure}
	plan, err := ParsePlan("text=1")
	if err != nil {
		t.Fatalf("ParsePlan: %v", err)
	}
	driver, err := New(backend, sink, Config{Plan: plan, Catalog: DefaultCatalog(), Seed: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	err = driver.Run(ctx)
	var wf *metrics.WriteFailure
	if !errors.As(err, &wf) {
		t.Fatalf("Run() = %v, want *WriteFailure", err)
	}
}

func TestQueryConstructionIsDeterministic(t *testing.T) {
	run := func() []api.SearchQuery {
		backend := &fakeBackend{}
		sink := &memSink{}
		plan, err := ParsePlan(DefaultPlanSpec)
		if err != nil {
			t.Fatalf("ParsePlan: %v", err)
		}
		if err := runQueries(t, backend, sink, Config{
			Plan:    plan,
			Catalog: DefaultCatalog(),
			Size:    10,
			Seed:    7,
		}, 5); err != nil {
			t.Fatalf("Run: %v", err)
		}
		return backend.queries[:5]
	}
	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("query %d differs between identically seeded runs: %+v vs %+v", i, a[i], b[i])
		}
	}
}
