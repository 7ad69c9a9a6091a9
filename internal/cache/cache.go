// Package cache stores marketplace listings on disk with a time-to-live.
package cache

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauern/skillkit/internal/model"
	"github.com/klauern/skillkit/internal/util"
)

// Entry is one cached listing.
type Entry struct {
	Skills   []model.MarketplaceSkill `json:"skills"`
	CachedAt time.Time                `json:"cached_at"`
}

// Cache is a named JSON cache file of listings keyed by source. It is safe
// for concurrent use.
type Cache struct {
	Version string           `json:"version"`
	Entries map[string]Entry `json:"entries"`
	mu      sync.Mutex
	path    string
	ttl     time.Duration
	now     func() time.Time
}

const (
	cacheVersion = "2"
	// DefaultTTL is the default time-to-live for cache entries
	DefaultTTL = 1 * time.Hour
)

// New creates or loads the cache file <cacheDir>/<name>.json.
// If cacheDir is empty, defaults to ~/.skillkit/cache. A non-positive ttl uses DefaultTTL.
func New(name, cacheDir string, ttl time.Duration) (*Cache, error) {
	if cacheDir == "" {
		cacheDir = util.CachePath()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if err := os.MkdirAll(cacheDir, 0o750); err != nil {
		return nil, err
	}

	c := &Cache{
		Version: cacheVersion,
		Entries: make(map[string]Entry),
		path:    filepath.Join(cacheDir, name+".json"),
		ttl:     ttl,
		now:     time.Now,
	}

	// #nosec G304 - path is constructed from the trusted cache directory
	if data, err := os.ReadFile(c.path); err == nil {
		if err := json.Unmarshal(data, c); err != nil || c.Version != cacheVersion {
			// Corrupt or older format: start fresh
			c.Entries = make(map[string]Entry)
			c.Version = cacheVersion
		}
		if c.Entries == nil {
			c.Entries = make(map[string]Entry)
		}
	}

	return c, nil
}

// Path returns the cache file.
func (c *Cache) Path() string {
	return c.path
}

// Get returns the listing for key if present and younger than the TTL.
func (c *Cache) Get(key string) ([]model.MarketplaceSkill, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.Entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.CachedAt) > c.ttl {
		delete(c.Entries, key)
		return nil, false
	}
	return entry.Skills, true
}

// Set stores a listing under key.
func (c *Cache) Set(key string, skills []model.MarketplaceSkill) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Entries[key] = Entry{Skills: skills, CachedAt: c.now()}
}

// Save persists the cache to disk.
func (c *Cache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	// #nosec G306 - cache files should be readable by user
	return os.WriteFile(c.path, data, 0o644)
}

// Clear removes all entries and the cache file.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Entries = make(map[string]Entry)
	if err := os.Remove(c.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Size returns the number of entries in the cache.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Entries)
}

// Prune removes expired entries and returns how many were dropped.
func (c *Cache) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	pruned := 0
	for key, entry := range c.Entries {
		if c.now().Sub(entry.CachedAt) > c.ttl {
			delete(c.Entries, key)
			pruned++
		}
	}
	return pruned
}
