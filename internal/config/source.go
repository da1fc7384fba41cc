package config

import (
	"path/filepath"
	"slices"
	"sort"
)

// SourceConfig holds settings for reading one dataset source.
// Zero values mean "not set" and do not override anything when merged.
type SourceConfig struct {
	// Format forces the source format (csv, tsv, json, yaml, sqlite, html).
	Format string `yaml:"format,omitempty"`

	// Delimiter is the CSV field separator.
	Delimiter string `yaml:"delimiter,omitempty"`

	// Encoding is the IANA character set name of a text source.
	Encoding string `yaml:"encoding,omitempty"`

	// NullValues replaces the list of tokens read as missing.
	NullValues []string `yaml:"nullValues,omitempty"`

	// Table selects the SQLite table or the HTML table id.
	Table string `yaml:"table,omitempty"`
}

// Merge returns c with every field that is set in override replaced.
func (c SourceConfig) Merge(override SourceConfig) SourceConfig {
	result := c

	if override.Format != "" {
		result.Format = override.Format
	}
	if override.Delimiter != "" {
		result.Delimiter = override.Delimiter
	}
	if override.Encoding != "" {
		result.Encoding = override.Encoding
	}
	if override.NullValues != nil {
		result.NullValues = slices.Clone(override.NullValues)
	}
	if override.Table != "" {
		result.Table = override.Table
	}

	return result
}

// File represents the structure of the .nullscan configuration file.
type File struct {
	// Sources maps a path, or a glob pattern such as "*.tsv", to settings.
	Sources map[string]SourceConfig `yaml:"sources,omitempty"`

	// Defaults applies to every source unless overridden.
	Defaults SourceConfig `yaml:"defaults,omitempty"`
}

// GetSourceConfig returns the settings for a source path: the defaults,
// overridden by the best matching entry.
//
// An entry whose key equals the path (or its base name) wins. Otherwise the
// first glob key, in lexical order, that matches the path or its base name
// is used.
func (cf *File) GetSourceConfig(source string) SourceConfig {
	result := cf.Defaults

	if entry, ok := cf.lookup(source); ok {
		result = result.Merge(entry)
	}

	return result
}

// lookup finds the entry for a source path.
func (cf *File) lookup(source string) (SourceConfig, bool) {
	base := filepath.Base(source)
	clean := filepath.Clean(source)

	for _, key := range []string{source, clean, base} {
		if entry, ok := cf.Sources[key]; ok {
			return entry, true
		}
	}

	keys := make([]string, 0, len(cf.Sources))
	for k := range cf.Sources {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		for _, candidate := range []string{clean, base} {
			if matched, err := filepath.Match(key, candidate); err == nil && matched {
				return cf.Sources[key], true
			}
		}
	}

	return SourceConfig{}, false
}
