package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/covenant/internal/model"
	"github.com/rotisserie/eris"
)

const keyPrefix = "covenant:v1:"

// Cache stores opaque byte payloads with a per-entry TTL
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// QueryKey derives a cache key for a search query. Queries differing only in
// case or surrounding whitespace share a key.
func QueryKey(provider, query string, maxResults int) string {
	norm := strings.ToLower(strings.TrimSpace(query))
	hash := sha256.Sum256([]byte(provider + "\x00" + strconv.Itoa(maxResults) + "\x00" + norm))
	return keyPrefix + hex.EncodeToString(hash[:])
}

// New builds the cache described by cfg. A disabled cache never hits.
func New(cfg model.CacheConfig) Cache {
	if !cfg.Enabled {
		return Nop{}
	}
	if cfg.Dir == "" {
		return NewMemoryCache(cfg.MemoryTTL, 10*time.Minute)
	}
	return NewLayeredCache(cfg.MemoryTTL, cfg.Dir, cfg.DiskTTL)
}

// GetJSON decodes a cached JSON value into v. A corrupt entry counts as a miss
// and is evicted.
func GetJSON(c Cache, key string, v any) bool {
	data, ok := c.Get(key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		_ = c.Delete(key)
		return false
	}
	return true
}

// SetJSON encodes v and stores it under key
func SetJSON(c Cache, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return eris.Wrap(err, "encode cache entry")
	}
	return c.Set(key, data, ttl)
}

// Nop is a cache that stores nothing
type Nop struct{}

// Get always misses
func (Nop) Get(string) ([]byte, bool) { return nil, false }

// Set discards the value
func (Nop) Set(string, []byte, time.Duration) error { return nil }

// Delete does nothing
func (Nop) Delete(string) error { return nil }

// Clear does nothing
func (Nop) Clear() error { return nil }
