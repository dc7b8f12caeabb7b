// Package resultcache stores resolved query values keyed by their
// deterministic identity.
//
// A resolved value is a pure function of (circuit, target, overrides), so a
// cache entry whose QueryHash matches can be replayed exactly instead of
// resolving again. Entries never include timestamps or host-specific
// metadata.
package resultcache

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Entry is one stored query result.
type Entry struct {
	// Hash is the QueryHash that identifies this entry.
	Hash QueryHash `json:"hash"`

	// Target is the wire the query resolved.
	Target string `json:"target"`

	// Value is the resolved 16-bit value.
	Value uint16 `json:"value"`
}

// Cache provides storage and retrieval of resolved query values.
//
// A hit means the query MUST NOT be re-resolved; the cached value is
// replayed exactly.
type Cache interface {
	// Get retrieves an entry by hash.
	// Returns nil if the entry does not exist.
	Get(hash QueryHash) (*Entry, error)

	// Put stores an entry.
	Put(entry *Entry) error
}

// FileCache implements Cache using the filesystem.
//
// Structure:
//
//	{CacheDir}/
//	  {hash[0:2]}/
//	    {hash}.json
type FileCache struct {
	// CacheDir is the root directory for cache storage.
	CacheDir string
}

// NewFileCache creates a new filesystem-based cache.
func NewFileCache(cacheDir string) *FileCache {
	return &FileCache{CacheDir: cacheDir}
}

// Get retrieves an entry by hash.
func (c *FileCache) Get(hash QueryHash) (*Entry, error) {
	data, err := os.ReadFile(c.entryPath(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading cache entry: %w", err)
	}

	var entry Entry
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&entry); err != nil {
		return nil, fmt.Errorf("parsing cache entry: %w", err)
	}
	if err := dec.Decode(new(any)); err != io.EOF {
		return nil, fmt.Errorf("parsing cache entry: trailing data")
	}
	if entry.Hash != hash {
		return nil, fmt.Errorf("cache entry hash mismatch: %s", entry.Hash)
	}
	return &entry, nil
}

// Put stores an entry.
func (c *FileCache) Put(entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cache entry is nil")
	}
	if entry.Hash == "" {
		return fmt.Errorf("cache entry hash is required")
	}

	path := c.entryPath(entry.Hash)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling cache entry: %w", err)
	}
	if err := writeFileAtomic(path, data, 0644); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// writeFileAtomic writes via a temp file and rename, so a crash mid-write
// leaves a cache miss rather than a corrupt entry.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	tmp, err := os.CreateTemp(dir, base+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	_ = tmp.Sync() // best-effort durability
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// entryPath returns the file path for a cache entry.
// Uses the first 2 characters of the hash as a prefix directory to avoid
// having too many entries in a single directory.
func (c *FileCache) entryPath(hash QueryHash) string {
	hashStr := string(hash)
	if len(hashStr) < 2 {
		return filepath.Join(c.CacheDir, hashStr+".json")
	}
	return filepath.Join(c.CacheDir, hashStr[:2], hashStr+".json")
}

// MemoryCache implements Cache using in-memory storage.
// Useful for testing and short-lived processes. Safe for concurrent use.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[QueryHash]Entry
}

// NewMemoryCache creates a new in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[QueryHash]Entry)}
}

// Get retrieves an entry.
func (c *MemoryCache) Get(hash QueryHash) (*Entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, exists := c.entries[hash]
	if !exists {
		return nil, nil
	}
	// Return a copy to prevent mutation.
	cp := entry
	return &cp, nil
}

// Put stores an entry.
func (c *MemoryCache) Put(entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cache entry is nil")
	}
	if entry.Hash == "" {
		return fmt.Errorf("cache entry hash is required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[entry.Hash] = *entry
	return nil
}
