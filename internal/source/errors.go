package source

import "errors"

var (
	// ErrUnsupportedFormat is returned when the format of a source cannot be
	// detected from its extension, or an unknown format is requested.
	ErrUnsupportedFormat = errors.New("unsupported source format")

	// ErrTableRequired is returned when a SQLite database holds several
	// tables and none was selected.
	ErrTableRequired = errors.New("table name required")

	// ErrTableNotFound is returned when the selected table does not exist.
	ErrTableNotFound = errors.New("table not found")

	// ErrNoRecords is returned when a source holds no data at all
	// (an empty file, or an HTML table without rows).
	ErrNoRecords = errors.New("no records")

	// ErrInvalidRecords is returned when a JSON or YAML document is neither
	// a list of records nor a mapping of columns.
	ErrInvalidRecords = errors.New("invalid records document")

	// ErrUnknownEncoding is returned for a character set name that is not
	// registered with IANA or has no decoder.
	ErrUnknownEncoding = errors.New("unknown character encoding")
)
