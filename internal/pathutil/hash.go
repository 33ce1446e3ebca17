package pathutil

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/cespare/xxhash/v2"
)

// Checksum returns the hex-encoded SHA-256 digest of content, used as the
// FileInfo.Checksum value (spec.md §3) that reindexing decisions compare
// against.
func Checksum(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// FastFingerprint returns a 64-bit xxhash digest of content. The file
// watcher compares fingerprints before falling back to the
// full SHA-256 checksum, since a fingerprint mismatch already proves the
// content changed and a full checksum recompute would be redundant.
func FastFingerprint(content []byte) uint64 {
	return xxhash.Sum64(content)
}
