package geo

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/zonwacht/pvyield/internal/domain"
)

// CachedGeocoder wraps a Geocoder with an in-memory LRU cache. Installations
// cluster into a small set of outward codes, so each distinct code is
// resolved at most once per run.
type CachedGeocoder struct {
	inner  domain.Geocoder
	cache  *lruCache
	hits   atomic.Int64
	misses atomic.Int64
}

// NewCachedGeocoder creates a cache decorator around a geocoder.
func NewCachedGeocoder(inner domain.Geocoder, maxEntries int) *CachedGeocoder {
	return &CachedGeocoder{
		inner: inner,
		cache: newLRUCache(maxEntries),
	}
}

// Resolve implements domain.Geocoder.
func (c *CachedGeocoder) Resolve(ctx context.Context, postalCode string) (domain.Coordinate, error) {
	key := OutwardCode(postalCode)
	if coord, ok := c.cache.get(key); ok {
		c.hits.Add(1)
		return coord, nil
	}
	c.misses.Add(1)
	coord, err := c.inner.Resolve(ctx, postalCode)
	if err != nil {
		// Misses are not cached: an unknown code stays an error and the
		// lookup is cheap enough to repeat.
		return coord, err
	}
	c.cache.put(key, coord)
	return coord, nil
}

// Stats reports cache hit and miss counts since construction.
func (c *CachedGeocoder) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// lruCache is a simple thread-safe LRU cache for coordinates.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value domain.Coordinate
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (domain.Coordinate, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.Coordinate{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value domain.Coordinate) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
