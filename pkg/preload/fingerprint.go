package preload

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint returns the cache key for a text: the SHA-256 digest of its
// exact UTF-8 bytes, hex-encoded. Equal text yields an equal key. Whitespace
// and punctuation are significant; no normalization is applied.
func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
