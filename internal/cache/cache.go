// Package cache remembers the last remote snapshot seen for each project so
// a sync can still compare against it while the remote is unreachable.
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauern/snapsync/internal/logging"
	"github.com/klauern/snapsync/internal/model"
	"github.com/klauern/snapsync/internal/util"
)

// Entry represents a cached remote snapshot with metadata
type Entry struct {
	Snapshot model.Snapshot `json:"snapshot"`
	CachedAt time.Time      `json:"cached_at"`
}

// Cache holds remote snapshots keyed by project ID. It is safe for
// concurrent use.
type Cache struct {
	Version string           `json:"version"`
	Entries map[string]Entry `json:"entries"`

	mu   sync.Mutex
	path string
	now  func() time.Time
}

const (
	cacheVersion = "1.0"
	// DefaultTTL is the default time-to-live for cache entries
	DefaultTTL = 7 * 24 * time.Hour

	cacheFileName = "remote.json"
)

// New creates or loads the remote cache stored in cacheDir.
// If cacheDir is empty, defaults to ~/.snapsync/cache
func New(cacheDir string) (*Cache, error) {
	if cacheDir == "" {
		cacheDir = util.CachePath()
	}
	if err := os.MkdirAll(cacheDir, 0o750); err != nil {
		return nil, err
	}

	cachePath := filepath.Join(cacheDir, cacheFileName)
	cache := &Cache{
		Version: cacheVersion,
		Entries: make(map[string]Entry),
		now:     time.Now,
	}

	// #nosec G304 - cachePath is constructed from trusted configuration path
	if data, err := os.ReadFile(cachePath); err == nil {
		if err := json.Unmarshal(data, cache); err != nil {
			logging.Warn("remote cache corrupted, starting fresh", logging.Path(cachePath), logging.Err(err))
			cache.Entries = make(map[string]Entry)
		}
		// Version mismatch, invalidate cache
		if cache.Version != cacheVersion {
			cache.Entries = make(map[string]Entry)
			cache.Version = cacheVersion
		}
		if cache.Entries == nil {
			cache.Entries = make(map[string]Entry)
		}
	}

	cache.path = cachePath
	return cache, nil
}

// Get returns the cached remote snapshot for projectID.
func (c *Cache) Get(projectID string) (model.Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, exists := c.Entries[projectID]
	if !exists {
		return model.Snapshot{}, false
	}
	return entry.Snapshot.Clone(), true
}

// Set records snap as the latest remote snapshot for projectID.
func (c *Cache) Set(projectID string, snap model.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Entries[projectID] = Entry{
		Snapshot: snap.Clone(),
		CachedAt: c.now(),
	}
}

// Save persists the cache to disk
func (c *Cache) Save() error {
	c.mu.Lock()
	data, err := json.MarshalIndent(c, "", "  ")
	c.mu.Unlock()
	if err != nil {
		return err
	}
	// #nosec G306 - cache files should be readable by user
	return os.WriteFile(c.path, data, 0o644)
}

// Clear removes all entries from the cache
func (c *Cache) Clear() error {
	c.mu.Lock()
	c.Entries = make(map[string]Entry)
	c.mu.Unlock()
	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Size returns the number of entries in the cache
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Entries)
}

// Prune removes entries older than ttl and returns how many were dropped.
func (c *Cache) Prune(ttl time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	pruned := 0
	for key, entry := range c.Entries {
		if c.now().Sub(entry.CachedAt) > ttl {
			delete(c.Entries, key)
			pruned++
		}
	}
	if pruned > 0 {
		logging.Debug("pruned remote cache", logging.Count(pruned))
	}
	return pruned
}
