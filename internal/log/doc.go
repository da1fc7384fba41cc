// Package log provides the slog based logger used by nullscan.
//
// Every logger returned by this package wraps its handler in a SecureHandler,
// which masks secrets before they are written:
//   - attributes named like credentials (password, token, dsn, ...)
//   - values that look like tokens or private keys
//   - passwords embedded in source URLs and DSNs
//
// Verbose mode lowers the level to Debug. Masking is applied at every level.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Debug("loading source", "source", "postgres://app:pw@db/sales")
//	// source=postgres://app:***REDACTED***@db/sales
package log
