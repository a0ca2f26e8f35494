package sortkey

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize fits the headwords of a full catalog run.
const DefaultCacheSize = 50000

// Cache memoizes Normalize for bulk paths such as index sync and
// alphabetic register builds. It is safe for concurrent use.
type Cache struct {
	keys *lru.Cache[string, string]
}

// NewCache creates a cache holding up to size keys.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	keys, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("sortkey: new cache: %w", err)
	}
	return &Cache{keys: keys}, nil
}

// Key returns Normalize(text), computing it at most once per cached entry.
func (c *Cache) Key(text string) string {
	if key, ok := c.keys.Get(text); ok {
		return key
	}
	key := Normalize(text)
	c.keys.Add(text, key)
	return key
}

// Len reports the number of cached keys.
func (c *Cache) Len() int {
	return c.keys.Len()
}
