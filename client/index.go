package client

import (
	"context"
	"errors"
	"net/http"
)

// indexMapping mirrors the instruments schema: exact-match isin, analyzed
// name fields with keyword subfields, and a scaled float price with cent
// precision.
var indexMapping = map[string]any{
	"mappings": map[string]any{
		"properties": map[string]any{
			"isin": map[string]any{
				"type": "keyword",
			},
			"name": map[string]any{
				"type": "text",
				"fields": map[string]any{
					"keyword": map[string]any{"type": "keyword"},
				},
			},
			"long_name": map[string]any{
				"type": "text",
				"fields": map[string]any{
					"keyword": map[string]any{"type": "keyword"},
				},
			},
			"price": map[string]any{
				"type":           "scaled_float",
				"scaling_factor": 100,
			},
		},
	},
}

// IndexExists reports whether the configured index is present.
func (c *Client) IndexExists(ctx context.Context) (bool, error) {
	err := c.do(ctx, "index.exists", http.MethodHead, "/"+c.index, nil, "", nil)
	if err == nil {
		return true, nil
	}
	var callErr *CallError
	if errors.As(err, &callErr) && callErr.Status == http.StatusNotFound {
		return false, nil
	}
	return false, err
}

// CreateIndex creates the configured index with the instruments mapping.
func (c *Client) CreateIndex(ctx context.Context) error {
	raw, err := encodeJSON("index.create", indexMapping)
	if err != nil {
		return err
	}
	return c.do(ctx, "index.create", http.MethodPut, "/"+c.index, raw, "application/json", nil)
}

// DeleteIndex drops the configured index.
func (c *Client) DeleteIndex(ctx context.Context) error {
	return c.do(ctx, "index.delete", http.MethodDelete, "/"+c.index, nil, "", nil)
}

// Refresh makes recent writes visible to search. Used after seeding so an
// experiment starts from a fully visible population.
func (c *Client) Refresh(ctx context.Context) error {
	return c.do(ctx, "index.refresh", http.MethodPost, "/"+c.index+"/_refresh", nil, "", nil)
}
