package dashboard

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
)

// DefaultCacheKey is the well-known key the collection is stored under.
const DefaultCacheKey = "meshDashboards"

// MemoryCache is a LocalCache kept in process memory.
type MemoryCache struct {
	mu   sync.Mutex
	data []byte
	// Err, when set, is returned by both Load and Save.
	Err error
}

// NewMemoryCache returns an empty memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{}
}

// Load implements LocalCache.
func (c *MemoryCache) Load() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	return append([]byte(nil), c.data...), nil
}

// Save implements LocalCache.
func (c *MemoryCache) Save(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.data = append([]byte(nil), data...)
	return nil
}

// FileCache stores the collection as one JSON file named after the key.
type FileCache struct {
	path string
}

// NewFileCache builds a file cache under dir. An empty key uses DefaultCacheKey.
func NewFileCache(dir, key string) *FileCache {
	if key == "" {
		key = DefaultCacheKey
	}
	return &FileCache{path: filepath.Join(dir, key+".json")}
}

// Path returns the backing file path.
func (c *FileCache) Path() string {
	return c.path
}

// Load implements LocalCache. A missing file is not an error.
func (c *FileCache) Load() ([]byte, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read cache file", j.KV("path", c.path))
	}
	return data, nil
}

// Save implements LocalCache. The write goes through a temp file so a
// crash never leaves a truncated blob.
func (c *FileCache) Save(data []byte) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return errors.Wrap(err, "create cache dir", j.KV("path", c.path))
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errors.Wrap(err, "write cache file", j.KV("path", tmp))
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return errors.Wrap(err, "replace cache file", j.KV("path", c.path))
	}
	return nil
}
