// Package model defines the core data structures used throughout nullscan.
//
// This package contains the following main types:
//   - Dataset: The read-only view of a table that the reporter consumes
//   - Frame: An in-memory Dataset built from Go values
//   - Dtype: The element type tag of a column
//   - NullReport: The result of a null scan over one dataset
//
// Design decision: Sources, report writers, the history store and the CLI all
// share these types, so they live in their own package to avoid import cycles.
//
// NullReport is serializable to JSON for report output and history storage.
package model
