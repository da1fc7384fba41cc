// Package database provides the SQLite history of null reports.
//
// Every report produced by `nullscan report` is stored as JSON together with
// its source, fingerprint, scan time and summary counts, so later runs can be
// listed and compared with `nullscan history`.
//
// The database is a single file, nullscan.db, opened through the CGO-free
// modernc.org/sqlite driver with WAL enabled.
package database
