package client

import (
	"context"
	"encoding/json"
	"fmt"

	"pkt.systems/searchbench/api"
)

const (
	// DefaultSearchSize caps returned hits when the query does not say.
	DefaultSearchSize = 100
	// discoveryPageSize is the page size for population discovery.
	discoveryPageSize = 10000
	// samplePriceCount bounds the spot-check prices kept per search.
	samplePriceCount = 5
)

type searchResponse struct {
	Took     int  `json:"took"`
	TimedOut bool `json:"timed_out"`
	Hits     struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source api.Instrument `json:"_source"`
			Sort   []any          `json:"sort"`
		} `json:"hits"`
	} `json:"hits"`
	Aggregations map[string]json.RawMessage `json:"aggregations"`
}

// buildSearchBody turns a SearchQuery into the backend's query DSL.
// Construction is deterministic given the query parameters: map keys
// marshal in sorted order, so identical queries produce identical bodies.
func buildSearchBody(q api.SearchQuery) (map[string]any, error) {
	var rangeClause, matchClause map[string]any
	if q.MaxPrice > 0 {
		if q.MinPrice > q.MaxPrice {
			return nil, fmt.Errorf("price range [%.2f,%.2f]: min exceeds max", q.MinPrice, q.MaxPrice)
		}
		rangeClause = map[string]any{
			"range": map[string]any{
				"price": map[string]any{"gte": q.MinPrice, "lte": q.MaxPrice},
			},
		}
	}
	if q.Term != "" {
		matchClause = map[string]any{
			"match": map[string]any{"long_name": q.Term},
		}
	}
	var query map[string]any
	switch {
	case rangeClause != nil && matchClause != nil:
		query = map[string]any{
			"bool": map[string]any{"must": []any{rangeClause, matchClause}},
		}
	case rangeClause != nil:
		query = rangeClause
	case matchClause != nil:
		query = matchClause
	default:
		return nil, fmt.Errorf("search query: no price range and no term")
	}
	size := q.Size
	if size <= 0 {
		size = DefaultSearchSize
	}
	body := map[string]any{
		"query":            query,
		"size":             size,
		"track_total_hits": true,
	}
	if q.SortByPrice {
		body["sort"] = []any{map[string]any{"price": map[string]any{"order": "asc"}}}
	}
	return body, nil
}

// Search issues one query and condenses the response to what the
// observation record needs.
func (c *Client) Search(ctx context.Context, q api.SearchQuery) (*api.SearchResult, error) {
	body, err := buildSearchBody(q)
	if err != nil {
		return nil, &CallError{Op: "search", Err: err}
	}
	var resp searchResponse
	if err := c.postJSON(ctx, "search", "/"+c.index+"/_search", body, &resp); err != nil {
		return nil, err
	}
	res := &api.SearchResult{
		Took:      resp.Took,
		TotalHits: resp.Hits.Total.Value,
		Returned:  len(resp.Hits.Hits),
	}
	for i, hit := range resp.Hits.Hits {
		if i == samplePriceCount {
			break
		}
		res.SamplePrices = append(res.SamplePrices, hit.Source.Price)
	}
	return res, nil
}

// AllInstruments pages through the whole index and returns every
// document's ISIN and current price. The mutation driver uses it to learn
// the population before its loop starts.
func (c *Client) AllInstruments(ctx context.Context) ([]api.Instrument, error) {
	var (
		out   []api.Instrument
		after any
	)
	for {
		body := map[string]any{
			"query":   map[string]any{"match_all": map[string]any{}},
			"_source": []string{"isin", "price"},
			"size":    discoveryPageSize,
			"sort":    []any{map[string]any{"isin": "asc"}},
		}
		if after != nil {
			body["search_after"] = []any{after}
		}
		var resp searchResponse
		if err := c.postJSON(ctx, "instruments.list", "/"+c.index+"/_search", body, &resp); err != nil {
			return nil, err
		}
		if len(resp.Hits.Hits) == 0 {
			return out, nil
		}
		for _, hit := range resp.Hits.Hits {
			out = append(out, hit.Source)
		}
		last := resp.Hits.Hits[len(resp.Hits.Hits)-1]
		if len(last.Sort) == 0 {
			return out, nil
		}
		after = last.Sort[0]
	}
}

// PriceStats runs a stats aggregation over the price field.
func (c *Client) PriceStats(ctx context.Context) (*api.PriceStats, error) {
	body := map[string]any{
		"size": 0,
		"aggs": map[string]any{
			"price_stats": map[string]any{
				"stats": map[string]any{"field": "price"},
			},
		},
	}
	var resp searchResponse
	if err := c.postJSON(ctx, "price.stats", "/"+c.index+"/_search", body, &resp); err != nil {
		return nil, err
	}
	raw, ok := resp.Aggregations["price_stats"]
	if !ok {
		return nil, &CallError{Op: "price.stats", Err: fmt.Errorf("missing price_stats aggregation")}
	}
	var stats api.PriceStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil, &CallError{Op: "price.stats", Err: fmt.Errorf("decode aggregation: %w", err)}
	}
	return &stats, nil
}
