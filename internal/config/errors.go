package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and can be matched with
// errors.Is().
var (
	// ErrNoSource is returned when no dataset path is given.
	ErrNoSource = errors.New("no source specified: provide one or more dataset files")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrTeeWithoutFile is returned when --tee is given without --output.
	ErrTeeWithoutFile = errors.New("--tee requires --output")

	// ErrUnknownFormat is returned when the source format is not one nullscan reads.
	ErrUnknownFormat = errors.New("unknown source format")

	// ErrInvalidDelimiter is returned when the delimiter is not a single character.
	ErrInvalidDelimiter = errors.New("invalid delimiter: must be a single character")
)
