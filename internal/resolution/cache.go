package resolution

import (
	"container/list"
	"sync"

	v1 "github.com/coverline-io/coverline/internal/api/v1"
)

// SignatureLRU is a thread-safe LRU cache for parsed slice signatures,
// keyed by the raw signature document.
type SignatureLRU struct {
	mu       sync.Mutex
	capacity int
	cache    map[string]*list.Element
	order    *list.List
}

type cacheEntry struct {
	raw string
	sig v1.Signature
}

// NewSignatureLRU creates a new LRU cache with the given capacity.
func NewSignatureLRU(capacity int) *SignatureLRU {
	return &SignatureLRU{
		capacity: capacity,
		cache:    make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Get retrieves a parsed signature from cache.
func (c *SignatureLRU) Get(raw string) (v1.Signature, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, exists := c.cache[raw]
	if !exists {
		return v1.Signature{}, false
	}

	// Move to front (most recently used)
	c.order.MoveToFront(elem)
	entry := elem.Value.(*cacheEntry)
	return entry.sig, true
}

// Put adds a parsed signature to the cache, evicting the least recently
// used entry if full.
func (c *SignatureLRU) Put(raw string, sig v1.Signature) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// If already exists, update and move to front
	if elem, exists := c.cache[raw]; exists {
		c.order.MoveToFront(elem)
		elem.Value.(*cacheEntry).sig = sig
		return
	}

	// Evict if at capacity
	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			entry := oldest.Value.(*cacheEntry)
			delete(c.cache, entry.raw)
			c.order.Remove(oldest)
		}
	}

	entry := &cacheEntry{raw: raw, sig: sig}
	c.cache[raw] = c.order.PushFront(entry)
}

// Invalidate removes one raw signature from the cache.
func (c *SignatureLRU) Invalidate(raw string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, exists := c.cache[raw]
	if !exists {
		return
	}
	delete(c.cache, raw)
	c.order.Remove(elem)
}

// Clear removes all entries from the cache.
func (c *SignatureLRU) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache = make(map[string]*list.Element)
	c.order = list.New()
}

// Len reports the number of cached signatures.
func (c *SignatureLRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
