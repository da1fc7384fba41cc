// Package source loads tabular datasets from files into a model.Dataset.
//
// Supported formats, detected from the file extension unless forced:
//
//	csv, tsv    .csv .tsv .txt       parsed and typed by gota
//	json, yaml  .json .yaml .yml     a list of records or a mapping of columns
//	sqlite      .db .sqlite .sqlite3 one table, counted with SQL aggregates
//	html        .html .htm           one <table>, first row is the header
//	arrow       .arrow .feather      Arrow IPC file, null counts from validity bitmaps
//	            .arrows              Arrow IPC stream
//
// Text formats (all but sqlite and arrow) may be gzip (.gz) or zstd (.zst)
// compressed; data.csv.gz is read as csv. They accept a character set (IANA name). Text cells equal to one
// of the configured null tokens are missing values; JSON null, YAML ~ and
// SQL NULL are always missing.
//
// Loading never modifies the source file.
package source
