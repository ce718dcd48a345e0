// Package fileid provides a deterministic candidate ID from a CV file path.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

const prefix = "cv:"

// CandidateID returns a stable candidate ID for the given absolute path.
// Same path always yields the same ID, so re-dropping a CV into the inbox
// updates the existing profile instead of creating a duplicate.
func CandidateID(absolutePath string) string {
	normalized := filepath.Clean(absolutePath)
	hash := sha256.Sum256([]byte(normalized))
	return prefix + hex.EncodeToString(hash[:])
}
