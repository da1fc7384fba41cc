package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"unicode/utf8"

	"github.com/adrg/xdg"
)

// Supported source formats. FormatAuto picks one from the file extension.
const (
	FormatAuto   = "auto"
	FormatCSV    = "csv"
	FormatTSV    = "tsv"
	FormatJSON   = "json"
	FormatYAML   = "yaml"
	FormatSQLite = "sqlite"
	FormatHTML   = "html"
	FormatArrow  = "arrow"
)

// Formats lists every accepted value of Config.Format.
var Formats = []string{
	FormatAuto, FormatCSV, FormatTSV, FormatJSON, FormatYAML, FormatSQLite, FormatHTML, FormatArrow,
}

// Default configuration values.
const (
	// DefaultBatchSize is the number of sources analyzed at once.
	// Loading is mostly I/O and parsing, so a handful of workers is enough.
	DefaultBatchSize = 4

	// DefaultDelimiter is the CSV field separator.
	// TSV sources switch to a tab automatically.
	DefaultDelimiter = ","

	// AppName is the application name used for XDG directory paths.
	AppName = "nullscan"
)

// DefaultNullValues are the text tokens read as missing values in CSV, TSV and
// HTML sources. They cover what spreadsheets, R, pandas and Go's fmt emit
// for absent data.
var DefaultNullValues = []string{"", "NA", "NaN", "null", "None", "<nil>"}

// Config holds all configuration options for nullscan.
// It is populated from CLI flags and the optional config file, then passed
// down explicitly.
type Config struct {
	// Sources is the list of dataset paths to analyze.
	Sources []string

	// Format forces the source format. FormatAuto detects it per file.
	Format string

	// Delimiter is the field separator for CSV sources. One character.
	Delimiter string

	// Encoding is the character set of text sources (IANA name, e.g.
	// "ISO-8859-1"). Empty means UTF-8.
	Encoding string

	// NullValues are the text tokens treated as missing in text sources.
	NullValues []string

	// Table selects the SQLite table, or the id of the HTML table, to read.
	Table string

	// BatchSize is the number of sources analyzed concurrently.
	BatchSize int

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, .nullscan is searched in the current and home directories.
	ConfigFilePath string

	// SourceConfigs holds per-source settings loaded from the config file.
	SourceConfigs *File

	// Overrides holds the source settings given explicitly on the command
	// line. They win over anything in the config file.
	Overrides SourceConfig

	// JSONReport enables JSON output instead of plain text.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown output instead of plain text.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path. Empty means stdout.
	ReportFile string

	// TeeReport also prints the report to stdout when ReportFile is set.
	TeeReport bool

	// DBDir is the directory holding the history database.
	DBDir string

	// SaveToDB records every report in the history database.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Format:     FormatAuto,
		Delimiter:  DefaultDelimiter,
		NullValues: slices.Clone(DefaultNullValues),
		BatchSize:  DefaultBatchSize,
		DBDir:      XDGDataDir(),
		SaveToDB:   true,
	}
}

// XDGDataDir returns the XDG data directory for nullscan.
// On Linux: ~/.local/share/nullscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for nullscan.
// On Linux: ~/.config/nullscan
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found.
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return ErrNoSource
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.TeeReport && c.ReportFile == "" {
		return ErrTeeWithoutFile
	}

	if err := ValidateFormat(c.Format); err != nil {
		return err
	}

	if c.Delimiter == "" {
		return ErrInvalidDelimiter
	}

	return ValidateDelimiter(c.Delimiter)
}

// ValidateDelimiter checks that delimiter is a single character.
// The empty string is accepted and means "not set".
func ValidateDelimiter(delimiter string) error {
	if delimiter == "" || utf8.RuneCountInString(delimiter) == 1 {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidDelimiter, delimiter)
}

// ValidateFormat checks that format is one of Formats.
// The empty string is accepted and means FormatAuto.
func ValidateFormat(format string) error {
	if format == "" || slices.Contains(Formats, format) {
		return nil
	}
	return fmt.Errorf("%w: %q (expected one of %v)", ErrUnknownFormat, format, Formats)
}

// SourceSettings returns the effective settings for one source.
// Precedence, lowest first: built-in defaults, the config file's defaults,
// the config file's entry for the source, explicit command-line flags.
func (c *Config) SourceSettings(source string) SourceConfig {
	result := SourceConfig{
		Format:     c.Format,
		Delimiter:  c.Delimiter,
		Encoding:   c.Encoding,
		NullValues: c.NullValues,
		Table:      c.Table,
	}

	if c.SourceConfigs != nil {
		result = result.Merge(c.SourceConfigs.GetSourceConfig(source))
	}

	return result.Merge(c.Overrides)
}
