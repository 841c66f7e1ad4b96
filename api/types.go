// Package api holds the wire types exchanged with the backend's bulk and
// search endpoints. The formats follow the common OpenSearch/Elasticsearch
// JSON conventions so the harness works against either.
package api

// Instrument is the document stored in the backend index. ISIN is the
// document id; only Price is ever mutated after import.
type Instrument struct {
	ISIN     string  `json:"isin"`
	Name     string  `json:"name"`
	LongName string  `json:"long_name"`
	Price    float64 `json:"price"`
}

// PriceUpdate is one item of a bulk partial update: set the price of the
// identified document, touching nothing else.
type PriceUpdate struct {
	ISIN  string
	Price float64
}

// BulkResult tallies a bulk call's per-item outcome.
type BulkResult struct {
	// Took is the server-reported processing time in milliseconds.
	Took int
	// Success is the number of items the server accepted.
	Success int
	// Errors is the number of items the server rejected.
	Errors int
}

// SearchQuery is the shape-independent query description the query
// driver hands to the client. A price range is active when MaxPrice > 0;
// a text match is active when Term is non-empty; both active means a
// combined bool query.
type SearchQuery struct {
	MinPrice float64
	MaxPrice float64
	Term     string
	// Size caps the hits returned. Zero lets the client default apply.
	Size int
	// SortByPrice asks for ascending price ordering, keeping result
	// assembly cost comparable between runs.
	SortByPrice bool
}

// SearchResult is the part of a search response the harness cares about.
type SearchResult struct {
	// Took is the server-reported query time in milliseconds.
	Took int
	// TotalHits is the full match count, independent of Size.
	TotalHits int
	// Returned is the number of hits actually included in the response.
	Returned int
	// SamplePrices holds the first few returned prices, for spot checks.
	SamplePrices []float64
}

// PriceStats is the price field's stats aggregation.
type PriceStats struct {
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
}
