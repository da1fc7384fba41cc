package source

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/sha3"
)

// Fingerprint returns the hex encoded SHA3-256 digest of the file at path.
// Two reports with the same fingerprint were made from identical bytes.
func Fingerprint(path string) (string, error) {
	f, err := os.Open(path) //nolint:gosec // reading user-selected datasets is the purpose of this tool
	if err != nil {
		return "", err
	}
	defer f.Close() //nolint:errcheck // read-only file

	h := sha3.New256()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
