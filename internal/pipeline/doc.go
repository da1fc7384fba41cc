// Package pipeline runs the per-source work of a null scan as a sequence of
// steps, and runs many sources concurrently.
//
// A typical pipeline for one source is:
//
//	load -> fingerprint -> report -> save
//
// Each Step receives the Scan built by the steps before it. The
// BatchProcessor creates a fresh Pipeline per source and bounds the number
// of sources in flight with errgroup, returning results in input order.
package pipeline
