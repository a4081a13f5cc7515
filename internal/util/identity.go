package util

import (
	"crypto/sha256"
	"fmt"
	"path/filepath"
)

// UniqueID derives a stable identifier for an image from its path.
// The path is resolved to an absolute, cleaned form so that different
// relative spellings of the same file produce the same identifier.
// Resolution is purely lexical - the file does not have to exist, and
// the function never fails.
func UniqueID(path string) string {
	resolved, err := filepath.Abs(path)
	if err != nil {
		// Abs only fails when the working directory is unavailable;
		// fall back to the cleaned input so the ID is still deterministic.
		resolved = filepath.Clean(path)
	}

	h := sha256.Sum256([]byte(resolved))
	return fmt.Sprintf("%x", h)
}
