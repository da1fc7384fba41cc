// Package report prints null reports.
//
// Print and Fprint are the entry points for a single dataset: they scan it
// and write the plain-text report. The writers render an already computed
// model.NullReport in different formats:
//   - SimpleWriter: Plain text, the same format Print produces
//   - JSONWriter: Structured JSON output for tool integration
//   - MarkdownWriter: GitHub Flavored Markdown with tables and a pie chart
//
// Design decision: We separate report writing from the report data structure
// (which is in the model package) so that a new output format does not touch
// how statistics are computed.
package report
