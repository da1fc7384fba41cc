// Package main provides the entry point for the nullscan CLI.
//
// nullscan reports, per column, how many values of a tabular dataset are
// missing. It reads CSV, TSV, JSON, YAML, SQLite and HTML tables.
//
// Usage:
//
//	nullscan report data.csv
//	nullscan report --json a.csv b.tsv
//	nullscan history data.csv
//
// See --help for all available options.
package main

// main is the entry point for nullscan.
func main() {
	Execute()
}
