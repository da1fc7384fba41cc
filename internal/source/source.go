package source

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/nao1215/nullscan/internal/model"
)

// Format names, matching the values accepted by the config package.
const (
	FormatCSV    = "csv"
	FormatTSV    = "tsv"
	FormatJSON   = "json"
	FormatYAML   = "yaml"
	FormatSQLite = "sqlite"
	FormatHTML   = "html"
	FormatArrow  = "arrow"
)

// extensions maps lower-case file extensions to formats.
var extensions = map[string]string{
	".csv":     FormatCSV,
	".txt":     FormatCSV,
	".tsv":     FormatTSV,
	".json":    FormatJSON,
	".yaml":    FormatYAML,
	".yml":     FormatYAML,
	".db":      FormatSQLite,
	".sqlite":  FormatSQLite,
	".sqlite3": FormatSQLite,
	".html":    FormatHTML,
	".htm":     FormatHTML,
	".arrow":   FormatArrow,
	".arrows":  FormatArrow,
	".feather": FormatArrow,
}

// Options controls how a source is read.
type Options struct {
	// Format forces the source format. Empty or "auto" detects it from the
	// file extension.
	Format string

	// Delimiter is the CSV field separator. Zero means ',' for CSV and
	// '\t' for TSV.
	Delimiter rune

	// Encoding is the IANA character set of text sources. Empty means UTF-8
	// (a leading byte order mark is skipped).
	Encoding string

	// NullValues are the text cells read as missing. nil keeps the parser's
	// built-in list ("NA", "NaN", "<nil>").
	NullValues []string

	// Table selects the SQLite table, or the id of the HTML table.
	Table string
}

// DetectFormat returns the format of path from its extension.
// A trailing .gz or .zst is skipped: data.csv.gz is a csv source.
func DetectFormat(path string) (string, error) {
	inner, codec := splitCompression(path)
	ext := strings.ToLower(filepath.Ext(inner))
	format, ok := extensions[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, path)
	}
	if codec != codecNone && !isTextFormat(format) {
		return "", fmt.Errorf("%w: compressed %s source %q", ErrUnsupportedFormat, format, path)
	}
	return format, nil
}

// isTextFormat reports whether format is read through openText, and so
// may be compressed and use a character set.
func isTextFormat(format string) bool {
	switch format {
	case FormatCSV, FormatTSV, FormatJSON, FormatYAML, FormatHTML:
		return true
	default:
		return false
	}
}

// Load reads the dataset stored at path.
func Load(ctx context.Context, path string, opts Options) (model.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	format := opts.Format
	if format == "" || format == "auto" {
		detected, err := DetectFormat(path)
		if err != nil {
			return nil, err
		}
		format = detected
	}

	var (
		ds  model.Dataset
		err error
	)
	switch format {
	case FormatCSV, FormatTSV:
		ds, err = loadDelimited(path, format, opts)
	case FormatJSON, FormatYAML:
		ds, err = loadRecords(path, opts)
	case FormatSQLite:
		ds, err = loadSQLite(ctx, path, opts)
	case FormatHTML:
		ds, err = loadHTML(path, opts)
	case FormatArrow:
		ds, err = loadArrow(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return ds, nil
}

// Key returns the absolute, cleaned path of a source. It identifies the
// source in the history database, so the same file reached through
// different relative paths shares one history.
func Key(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}
