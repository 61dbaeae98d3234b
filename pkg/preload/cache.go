package preload

import (
	"log/slog"
	"os"
	"sync"
)

// Cache maps text fingerprints to synthesized audio files on disk. The
// mapping itself is in-memory only and rebuilds lazily: a miss just means
// the audio is regenerated. Units sharing identical text share one entry
// and one artifact.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]string
	logger  *slog.Logger
}

// NewCache creates an empty audio cache.
func NewCache(logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		entries: make(map[string]string),
		logger:  logger.With("component", "preload.cache"),
	}
}

// Get returns the cached path for a fingerprint, but only if the file still
// exists on disk. A vanished file reads as a miss; the stale entry is left
// in place for the next Put to overwrite.
func (c *Cache) Get(fingerprint string) (string, bool) {
	c.mu.RLock()
	path, ok := c.entries[fingerprint]
	c.mu.RUnlock()

	if !ok {
		return "", false
	}
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}

// Put records the artifact path for a fingerprint. Duplicate fingerprints
// racing to insert is tolerated: last writer wins, and both writers carry
// semantically equivalent audio for the same text.
func (c *Cache) Put(fingerprint, path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[fingerprint] = path
}

// Len returns the number of cache entries, stale ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// ClearAll deletes every cached file from disk and empties the mapping.
// Deletion is best-effort: a failure for one file is logged and does not
// block deleting the rest.
func (c *Cache) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for fingerprint, path := range c.entries {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			c.logger.Warn("failed to delete cached audio",
				"fingerprint", fingerprint,
				"path", path,
				"error", err,
			)
		}
	}
	c.entries = make(map[string]string)
}
