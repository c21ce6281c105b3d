// Package cache provides caching for store chunks and array metadata.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Config contains cache configuration.
type Config struct {
	ChunkCacheSizeMB int
	ChunkTTL         time.Duration
	MetaCacheSize    int
}

// Manager manages chunk and metadata caches for store readers. Decompressed
// chunk bytes go through bigcache; parsed array metadata documents are small
// and live in an LRU.
type Manager struct {
	chunkCache *bigcache.BigCache
	metaCache  *lru.Cache[string, []byte]
}

// NewManager creates a new cache manager.
func NewManager(cfg Config) (*Manager, error) {
	chunkCacheConfig := bigcache.Config{
		Shards:             1024,
		LifeWindow:         cfg.ChunkTTL,
		CleanWindow:        cfg.ChunkTTL / 2,
		MaxEntriesInWindow: 100000,
		MaxEntrySize:       512 * 1024, // decompressed chunk upper bound
		HardMaxCacheSize:   cfg.ChunkCacheSizeMB,
		Verbose:            false,
	}

	chunkCache, err := bigcache.New(context.Background(), chunkCacheConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create chunk cache: %w", err)
	}

	metaCache, err := lru.New[string, []byte](cfg.MetaCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata cache: %w", err)
	}

	return &Manager{
		chunkCache: chunkCache,
		metaCache:  metaCache,
	}, nil
}

// GetChunk retrieves decompressed chunk bytes from cache.
func (m *Manager) GetChunk(key string) ([]byte, bool) {
	data, err := m.chunkCache.Get(key)
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetChunk stores decompressed chunk bytes in cache.
func (m *Manager) SetChunk(key string, data []byte) error {
	return m.chunkCache.Set(key, data)
}

// GetMeta retrieves a raw array metadata document from cache.
func (m *Manager) GetMeta(key string) ([]byte, bool) {
	return m.metaCache.Get(key)
}

// SetMeta stores a raw array metadata document in cache.
func (m *Manager) SetMeta(key string, data []byte) {
	m.metaCache.Add(key, data)
}

// ChunkKey generates a cache key for one chunk of one array.
func ChunkKey(storePath, arrayPath, chunkKey string) string {
	return fmt.Sprintf("chunk:%s:%s:%s", storePath, arrayPath, chunkKey)
}

// MetaKey generates a cache key for an array metadata document.
func MetaKey(storePath, arrayPath string) string {
	return fmt.Sprintf("meta:%s:%s", storePath, arrayPath)
}

// Stats returns cache statistics.
func (m *Manager) Stats() map[string]interface{} {
	return map[string]interface{}{
		"chunk_cache_len": m.chunkCache.Len(),
		"chunk_cache_cap": m.chunkCache.Capacity(),
		"meta_cache_len":  m.metaCache.Len(),
	}
}

// Close closes the cache manager.
func (m *Manager) Close() error {
	return m.chunkCache.Close()
}
