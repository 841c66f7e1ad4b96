package client

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"pkt.systems/searchbench/api"
)

// bulkResponse is the NDJSON bulk endpoint's reply. Item keys vary with
// the action (index/update), so items decode into generic maps.
type bulkResponse struct {
	Took   int                       `json:"took"`
	Errors bool                      `json:"errors"`
	Items  []map[string]bulkItemInfo `json:"items"`
}

type bulkItemInfo struct {
	Status int             `json:"status"`
	Error  json.RawMessage `json:"error"`
}

func (r bulkResponse) tally() api.BulkResult {
	res := api.BulkResult{Took: r.Took}
	for _, item := range r.Items {
		failed := false
		for _, info := range item {
			if len(info.Error) > 0 || info.Status >= 300 {
				failed = true
			}
		}
		if failed {
			res.Errors++
		} else {
			res.Success++
		}
	}
	return res
}

// BulkImport indexes a batch of instruments, one document per ISIN.
func (c *Client) BulkImport(ctx context.Context, docs []api.Instrument) (api.BulkResult, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, doc := range docs {
		action := map[string]any{
			"index": map[string]any{"_index": c.index, "_id": doc.ISIN},
		}
		if err := enc.Encode(action); err != nil {
			return api.BulkResult{}, &CallError{Op: "bulk.import", Err: err}
		}
		if err := enc.Encode(doc); err != nil {
			return api.BulkResult{}, &CallError{Op: "bulk.import", Err: err}
		}
	}
	var resp bulkResponse
	if err := c.do(ctx, "bulk.import", http.MethodPost, "/_bulk", buf.Bytes(), "application/x-ndjson", &resp); err != nil {
		return api.BulkResult{}, err
	}
	return resp.tally(), nil
}

// BulkUpdatePrices applies one bulk call of partial updates, each touching
// only the price field of its document.
func (c *Client) BulkUpdatePrices(ctx context.Context, updates []api.PriceUpdate) (api.BulkResult, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, upd := range updates {
		action := map[string]any{
			"update": map[string]any{"_index": c.index, "_id": upd.ISIN},
		}
		if err := enc.Encode(action); err != nil {
			return api.BulkResult{}, &CallError{Op: "bulk.update", Err: err}
		}
		partial := map[string]any{
			"doc": map[string]any{"price": upd.Price},
		}
		if err := enc.Encode(partial); err != nil {
			return api.BulkResult{}, &CallError{Op: "bulk.update", Err: err}
		}
	}
	var resp bulkResponse
	if err := c.do(ctx, "bulk.update", http.MethodPost, "/_bulk", buf.Bytes(), "application/x-ndjson", &resp); err != nil {
		return api.BulkResult{}, err
	}
	return resp.tally(), nil
}

func encodeJSON(op string, v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, &CallError{Op: op, Err: err}
	}
	return raw, nil
}
