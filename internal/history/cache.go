package history

import (
	"fmt"
	"log"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sahilm/fuzzy"
)

// Cache memoizes ranked collections loaded from a Store. A collection is read
// from the store on first use and again only after RecordUse changes it.
type Cache struct {
	store   Store
	entries *lru.Cache[string, []Entry]
	maxSize int
	hits    int64
	misses  int64
	mu      sync.Mutex
}

// CacheStats holds cache statistics
type CacheStats struct {
	Size    int     `json:"size"`
	MaxSize int     `json:"max_size"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// NewCache wraps store with a memo table holding up to maxSize collections.
func NewCache(store Store, maxSize int) (*Cache, error) {
	if maxSize <= 0 {
		maxSize = 64
	}

	entries, err := lru.New[string, []Entry](maxSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}

	return &Cache{
		store:   store,
		entries: entries,
		maxSize: maxSize,
	}, nil
}

// Get returns the collection ordered by weight, highest first. Entries with
// equal weight keep their storage order. Store errors yield an empty list.
func (c *Cache) Get(collection string) []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.getLocked(collection)
}

func (c *Cache) getLocked(collection string) []Entry {
	if entries, ok := c.entries.Get(collection); ok {
		c.hits++
		return entries
	}
	c.misses++

	entries, err := c.store.GetAll(collection)
	if err != nil {
		log.Printf("[HISTORY-CACHE] Failed to load '%s', using empty history: %v", collection, err)
		return nil
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Weight > entries[j].Weight
	})

	c.entries.Add(collection, entries)
	log.Printf("[HISTORY-CACHE] Loaded %d entries for '%s'", len(entries), collection)
	return entries
}

// RecordUse bumps the weight of key in collection, inserting it at weight 0
// when it is new, and invalidates the memoized collection.
func (c *Cache) RecordUse(collection, key string, entry Entry) error {
	if key == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	existing, err := c.store.GetByKey(collection, key)
	if err != nil {
		log.Printf("[HISTORY-CACHE] Lookup of '%s' in '%s' failed: %v", key, collection, err)
		return err
	}

	entry.Weight = 0
	if existing != nil {
		entry.Weight = existing.Weight + 1
	}

	c.entries.Remove(collection)

	if err := c.store.Insert(collection, key, entry); err != nil {
		log.Printf("[HISTORY-CACHE] Failed to persist '%s' in '%s': %v", key, collection, err)
		return err
	}

	log.Printf("[HISTORY-CACHE] Recorded '%s' in '%s' with weight %d", key, collection, entry.Weight)
	return nil
}

// Filter narrows a collection to the entries fuzzily matching query. The
// result keeps weight order rather than match score order.
func (c *Cache) Filter(collection, query string) []Entry {
	entries := c.Get(collection)
	if query == "" || len(entries) == 0 {
		return entries
	}

	matches := fuzzy.FindFrom(query, labels(entries))
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Index < matches[j].Index
	})

	filtered := make([]Entry, 0, len(matches))
	for _, m := range matches {
		filtered = append(filtered, entries[m.Index])
	}
	return filtered
}

// Stats returns current cache statistics
func (c *Cache) Stats() *CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	hitRate := float64(0)
	if total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}

	return &CacheStats{
		Size:    c.entries.Len(),
		MaxSize: c.maxSize,
		Hits:    c.hits,
		Misses:  c.misses,
		HitRate: hitRate,
	}
}

// Close closes the underlying store.
func (c *Cache) Close() error {
	return c.store.Close()
}

type labels []Entry

func (l labels) String(i int) string {
	return l[i].Label()
}

func (l labels) Len() int {
	return len(l)
}
