// Package searchbench is a bounded, repeatable experiment harness that
// measures how search latency degrades while a document store absorbs
// continuous bulk price updates.
//
// Copyright (C) 2026 Michel Blomgren <https://pkt.systems>
//
// The harness runs two independently paced drivers against the same
// OpenSearch-compatible index: a mutation driver that issues bulk partial
// price updates, and a query driver that issues a fixed mix of query
// shapes (price-range, text, combined). Each driver appends one
// observation per operation to its own append-only JSON Lines stream.
// The two drivers share nothing but the backend and the wall clock; an
// offline analyzer correlates the streams afterwards and reports
// per-shape degradation statistics.
//
// The cmd/searchbench CLI wires the pieces together:
//
//	searchbench index create
//	searchbench seed --count 50000 --seed 42
//	searchbench update --batch-size 1000 --interval 2s &
//	searchbench search --interval 1s &
//	...let both run, stop with SIGINT...
//	searchbench analyze --mutations price_update_metrics.jsonl \
//	    --queries search_performance_metrics.jsonl --margin 2s
package searchbench
