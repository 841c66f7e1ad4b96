package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pkt.systems/searchbench/api"
)

func TestNewRejectsBadEndpoints(t *testing.T) {
	for _, endpoint := range []string{"", "   ", "localhost:9200", "ftp://host"} {
		if _, err := New(endpoint); err == nil {
			t.Fatalf("New(%q) succeeded, want error", endpoint)
		}
	}
	c, err := New("http://localhost:9200/")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.endpoint != "http://localhost:9200" {
		t.Fatalf("endpoint = %q, want trailing slash trimmed", c.endpoint)
	}
	if c.Index() != DefaultIndex {
		t.Fatalf("Index() = %q, want %q", c.Index(), DefaultIndex)
	}
}

func TestIndexLifecycle(t *testing.T) {
	var exists bool
	var createBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Request-Id") == "" {
			t.Errorf("%s %s missing request id header", r.Method, r.URL.Path)
		}
		if r.URL.Path != "/bench" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch r.Method {
		case http.MethodHead:
			if !exists {
				w.WriteHeader(http.StatusNotFound)
			}
		case http.MethodPut:
			createBody, _ = io.ReadAll(r.Body)
			exists = true
			fmt.Fprint(w, `{"acknowledged":true}`)
		case http.MethodDelete:
			exists = false
			fmt.Fprint(w, `{"acknowledged":true}`)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	defer srv.Close()

	c, err := New(srv.URL, WithIndex("bench"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	if ok, err := c.IndexExists(ctx); err != nil || ok {
		t.Fatalf("IndexExists before create = %v, %v", ok, err)
	}
	if err := c.CreateIndex(ctx); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	if ok, err := c.IndexExists(ctx); err != nil || !ok {
		t.Fatalf("IndexExists after create = %v, %v", ok, err)
	}
	var mapping map[string]any
	if err := json.Unmarshal(createBody, &mapping); err != nil {
		t.Fatalf("mapping body: %v", err)
	}
	if !strings.Contains(string(createBody), "scaled_float") {
		t.Fatalf("mapping body missing scaled_float price: %s", createBody)
	}
	if err := c.DeleteIndex(ctx); err != nil {
		t.Fatalf("DeleteIndex: %v", err)
	}
	if ok, _ := c.IndexExists(ctx); ok {
		t.Fatalf("index still exists after delete")
	}
}

func TestBulkUpdatePricesBuildsNDJSONAndTallies(t *testing.T) {
	var lines []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/_bulk" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Content-Type"); got != "application/x-ndjson" {
			t.Errorf("content type = %q", got)
		}
		sc := bufio.NewScanner(r.Body)
		for sc.Scan() {
			lines = append(lines, sc.Text())
		}
		fmt.Fprint(w, `{"took":7,"errors":true,"items":[`+
			`{"update":{"status":200}},`+
			`{"update":{"status":404,"error":{"type":"document_missing_exception"}}}`+
			`]}`)
	}))
	defer srv.Close()

	c, err := New(srv.URL, WithIndex("bench"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := c.BulkUpdatePrices(context.Background(), []api.PriceUpdate{
		{ISIN: "US0000000011", Price: 101.25},
		{ISIN: "GB0000000022", Price: 9.5},
	})
	if err != nil {
		t.Fatalf("BulkUpdatePrices: %v", err)
	}
	if res.Took != 7 || res.Success != 1 || res.Errors != 1 {
		t.Fatalf("tally = %+v, want took 7, 1 success, 1 error", res)
	}
	if len(lines) != 4 {
		t.Fatalf("bulk body has %d lines, want 4 (action+doc per update)", len(lines))
	}
	var action struct {
		Update struct {
			Index string `json:"_index"`
			ID    string `json:"_id"`
		} `json:"update"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &action); err != nil {
		t.Fatalf("action line: %v", err)
	}
	if action.Update.Index != "bench" || action.Update.ID != "US0000000011" {
		t.Fatalf("action line = %+v", action.Update)
	}
	var partial struct {
		Doc map[string]float64 `json:"doc"`
	}
	if err := json.Unmarshal([]byte(lines[1]), &partial); err != nil {
		t.Fatalf("doc line: %v", err)
	}
	if len(partial.Doc) != 1 || partial.Doc["price"] != 101.25 {
		t.Fatalf("partial update touches more than price: %+v", partial.Doc)
	}
}

func TestSearchBuildsShapesAndParsesResponse(t *testing.T) {
	var bodies []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode search body: %v", err)
		}
		bodies = append(bodies, body)
		fmt.Fprint(w, `{"took":3,"hits":{"total":{"value":2},"hits":[`+
			`{"_source":{"isin":"US0000000011","price":10.5}},`+
			`{"_source":{"isin":"GB0000000022","price":20.25}}`+
			`]}}`)
	}))
	defer srv.Close()

	c, err := New(srv.URL, WithIndex("bench"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	res, err := c.Search(ctx, api.SearchQuery{MinPrice: 1, MaxPrice: 60, Size: 50, SortByPrice: true})
	if err != nil {
		t.Fatalf("Search(range): %v", err)
	}
	if res.TotalHits != 2 || res.Returned != 2 || res.Took != 3 {
		t.Fatalf("result = %+v", res)
	}
	if len(res.SamplePrices) != 2 || res.SamplePrices[0] != 10.5 {
		t.Fatalf("sample prices = %v", res.SamplePrices)
	}

	if _, err := c.Search(ctx, api.SearchQuery{Term: "Sustainable"}); err != nil {
		t.Fatalf("Search(text): %v", err)
	}
	if _, err := c.Search(ctx, api.SearchQuery{MinPrice: 125, MaxPrice: 375, Term: "Energy"}); err != nil {
		t.Fatalf("Search(combined): %v", err)
	}

	rangeBody, textBody, combinedBody := bodies[0], bodies[1], bodies[2]
	if _, ok := rangeBody["sort"]; !ok {
		t.Fatalf("range query missing price sort: %v", rangeBody)
	}
	if rangeBody["size"].(float64) != 50 {
		t.Fatalf("range query size = %v", rangeBody["size"])
	}
	if _, ok := rangeBody["query"].(map[string]any)["range"]; !ok {
		t.Fatalf("range query clause missing: %v", rangeBody["query"])
	}
	if _, ok := textBody["query"].(map[string]any)["match"]; !ok {
		t.Fatalf("text query clause missing: %v", textBody["query"])
	}
	if _, ok := combinedBody["query"].(map[string]any)["bool"]; !ok {
		t.Fatalf("combined query clause missing: %v", combinedBody["query"])
	}
	if v, ok := textBody["track_total_hits"].(bool); !ok || !v {
		t.Fatalf("track_total_hits not set: %v", textBody)
	}
}

func TestSearchRejectsEmptyAndInvertedQueries(t *testing.T) {
	c, err := New("http://localhost:9")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Search(context.Background(), api.SearchQuery{}); err == nil {
		t.Fatalf("Search accepted a query with no clauses")
	}
	if _, err := c.Search(context.Background(), api.SearchQuery{MinPrice: 100, MaxPrice: 10}); err == nil {
		t.Fatalf("Search accepted an inverted price range")
	}
}

func TestBuildSearchBodyIsDeterministic(t *testing.T) {
	q := api.SearchQuery{MinPrice: 1, MaxPrice: 60, Term: "Equity", Size: 10, SortByPrice: true}
	first, err := buildSearchBody(q)
	if err != nil {
		t.Fatalf("buildSearchBody: %v", err)
	}
	a, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for i := 0; i < 10; i++ {
		body, err := buildSearchBody(q)
		if err != nil {
			t.Fatalf("buildSearchBody: %v", err)
		}
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if !bytes.Equal(a, b) {
			t.Fatalf("identical queries produced different bodies:\n%s\n%s", a, b)
		}
	}
}

func TestAllInstrumentsPaginates(t *testing.T) {
	page := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		page++
		switch page {
		case 1:
			if _, ok := body["search_after"]; ok {
				t.Errorf("first page carries search_after")
			}
			fmt.Fprint(w, `{"hits":{"total":{"value":3},"hits":[`+
				`{"_source":{"isin":"AA0000000011","price":1.5},"sort":["AA0000000011"]},`+
				`{"_source":{"isin":"BB0000000022","price":2.5},"sort":["BB0000000022"]}`+
				`]}}`)
		case 2:
			after, ok := body["search_after"].([]any)
			if !ok || len(after) != 1 || after[0] != "BB0000000022" {
				t.Errorf("second page search_after = %v", body["search_after"])
			}
			fmt.Fprint(w, `{"hits":{"total":{"value":3},"hits":[`+
				`{"_source":{"isin":"CC0000000033","price":3.5},"sort":["CC0000000033"]}`+
				`]}}`)
		default:
			fmt.Fprint(w, `{"hits":{"total":{"value":3},"hits":[]}}`)
		}
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	docs, err := c.AllInstruments(context.Background())
	if err != nil {
		t.Fatalf("AllInstruments: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("discovered %d instruments, want 3", len(docs))
	}
	if docs[2].ISIN != "CC0000000033" || docs[2].Price != 3.5 {
		t.Fatalf("last instrument = %+v", docs[2])
	}
	if page != 3 {
		t.Fatalf("made %d pages, want 3", page)
	}
}

func TestPriceStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"hits":{"total":{"value":0},"hits":[]},`+
			`"aggregations":{"price_stats":{"count":50000,"min":1.0,"max":4999.75,"avg":1052.4}}}`)
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	stats, err := c.PriceStats(context.Background())
	if err != nil {
		t.Fatalf("PriceStats: %v", err)
	}
	if stats.Count != 50000 || stats.Min != 1.0 || stats.Max != 4999.75 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestCallErrorsCarryStatusAndTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"search_phase_execution_exception"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = c.Search(context.Background(), api.SearchQuery{Term: "Equity"})
	var callErr *CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("Search error = %v, want *CallError", err)
	}
	if callErr.Status != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", callErr.Status)
	}
	if callErr.Timeout() {
		t.Fatalf("status error misreported as timeout")
	}

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer slow.Close()

	c, err = New(slow.URL, WithHTTPTimeout(20*time.Millisecond))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	err = c.Ping(context.Background())
	if !errors.As(err, &callErr) {
		t.Fatalf("Ping error = %v, want *CallError", err)
	}
	if !callErr.Timeout() {
		t.Fatalf("deadline error not reported as timeout: %v", callErr)
	}
}
