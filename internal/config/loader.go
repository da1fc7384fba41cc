package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".nullscan"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// LoadConfigFile loads source configurations from a YAML file.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}

	if cf.Sources == nil {
		cf.Sources = make(map[string]SourceConfig)
	}

	if err := validateSourceConfig(cf.Defaults); err != nil {
		return nil, fmt.Errorf("defaults: %w", err)
	}
	for key, sc := range cf.Sources {
		if err := validateSourceConfig(sc); err != nil {
			return nil, fmt.Errorf("sources[%s]: %w", key, err)
		}
	}

	return &cf, nil
}

// validateSourceConfig checks the fields of a file entry that have a fixed
// set of valid values.
func validateSourceConfig(sc SourceConfig) error {
	if err := ValidateFormat(sc.Format); err != nil {
		return err
	}
	return ValidateDelimiter(sc.Delimiter)
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .nullscan in the current directory
// 3. Look for config.yaml in the XDG config directory
// 4. Look for .nullscan in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), "config.yaml"))
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return ""
}
