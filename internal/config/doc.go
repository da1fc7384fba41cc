// Package config provides configuration structures and utilities for nullscan.
// It defines how sources are read (format, delimiter, encoding, null tokens),
// how many are analyzed at once, and where reports and history go.
package config
