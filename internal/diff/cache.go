package diff

import (
	"encoding/binary"

	"github.com/zeebo/blake3"

	"github.com/samuelstevens/arxiv-edits-sub000/internal/models"
)

// Cache memoizes diff results for one document pair. It is not safe for concurrent use;
// each worker owns one and calls Clear when the pair is finished.
type Cache struct {
	differ  Differ
	entries map[[32]byte][]models.DiffEntry
	hits    int
	misses  int
}

// NewCache wraps d with a memo table.
func NewCache(d Differ) *Cache {
	return &Cache{differ: d, entries: make(map[[32]byte][]models.DiffEntry)}
}

// Diff returns the cached script for (a, b), computing it on first use.
// The returned slice is shared with the cache and must not be modified.
func (c *Cache) Diff(a, b []string) ([]models.DiffEntry, error) {
	key := cacheKey(a, b)
	if out, ok := c.entries[key]; ok {
		c.hits++
		return out, nil
	}
	c.misses++
	out, err := c.differ.Diff(a, b)
	if err != nil {
		return nil, err
	}
	c.entries[key] = out
	return out, nil
}

// Clear drops every memoized result and resets the counters.
func (c *Cache) Clear() {
	clear(c.entries)
	c.hits, c.misses = 0, 0
}

// Len returns the number of memoized results.
func (c *Cache) Len() int { return len(c.entries) }

// Stats returns hit and miss counts since the last Clear.
func (c *Cache) Stats() (hits, misses int) { return c.hits, c.misses }

func cacheKey(a, b []string) [32]byte {
	h := blake3.New()
	var buf [binary.MaxVarintLen64]byte
	write := func(lines []string) {
		n := binary.PutUvarint(buf[:], uint64(len(lines)))
		_, _ = h.Write(buf[:n])
		for _, l := range lines {
			n = binary.PutUvarint(buf[:], uint64(len(l)))
			_, _ = h.Write(buf[:n])
			_, _ = h.Write([]byte(l))
		}
	}
	write(a)
	write(b)
	var key [32]byte
	copy(key[:], h.Sum(nil))
	return key
}
