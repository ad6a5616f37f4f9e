// Package cache implements the burst pipeline's two caches: an in-memory
// texture cache keyed by absolute input URL with a byte-cost LRU budget,
// and a disk DNG cache trimmed by chronological insertion order.
package cache

import "sync"

// lruNode is a node in a doubly-linked LRU list keyed by URL string.
type lruNode struct {
	key        string
	prev, next *lruNode
}

// lruList orders entries from most recently used (head) to least recently
// used (tail).
type lruList struct {
	head, tail *lruNode
	len        int
}

func (l *lruList) pushFront(key string) *lruNode {
	node := &lruNode{key: key}
	if l.head == nil {
		l.head = node
		l.tail = node
	} else {
		node.next = l.head
		l.head.prev = node
		l.head = node
	}
	l.len++
	return node
}

func (l *lruList) moveToFront(node *lruNode) {
	if node == nil || node == l.head {
		return
	}
	l.unlink(node)
	node.prev = nil
	node.next = l.head
	if l.head != nil {
		l.head.prev = node
	}
	l.head = node
	if l.tail == nil {
		l.tail = node
	}
	l.len++
}

func (l *lruList) remove(node *lruNode) {
	if node == nil {
		return
	}
	l.unlink(node)
}

func (l *lruList) oldest() (string, bool) {
	if l.tail == nil {
		return "", false
	}
	return l.tail.key, true
}

func (l *lruList) unlink(node *lruNode) {
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		l.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		l.tail = node.prev
	}
	node.prev = nil
	node.next = nil
	l.len--
}

// Entry is one texture cache entry: the decoded frame plus its accounted
// cost in bytes (spec's ~2*W*H GPU-allocated byte estimate).
type Entry[V any] struct {
	Value V
	Cost  int64
}

// Stats reports texture cache occupancy and hit-rate counters.
type Stats struct {
	Len          int
	TotalCost    int64
	BudgetBytes  int64
	Hits, Misses uint64
	Evictions    uint64
}

// TextureCache is the burst loader's in-memory decode cache: keyed by
// absolute URL, bounded by a total byte-cost budget, evicted LRU by last
// access. Spec.md §9 calls for an explicit LRU map with per-entry cost and
// a total-cost ceiling — not a concurrent shard set — because the loader
// mutates the cache only inside a single serial critical section (§4.2,
// §5); a single mutex here is the correct adaptation, not an oversight.
type TextureCache[V any] struct {
	mu sync.Mutex

	budgetBytes int64
	totalCost   int64
	entries     map[string]*cacheEntry[V]
	order       lruList

	hits, misses, evictions uint64
}

type cacheEntry[V any] struct {
	value V
	cost  int64
	node  *lruNode
}

// New creates a texture cache bounded by budgetBytes total cost. A
// budgetBytes of 0 or less means unbounded (no eviction ever runs).
func New[V any](budgetBytes int64) *TextureCache[V] {
	return &TextureCache[V]{
		budgetBytes: budgetBytes,
		entries:     make(map[string]*cacheEntry[V]),
	}
}

// Get retrieves the entry for url, marking it most recently used on hit.
func (c *TextureCache[V]) Get(url string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[url]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	c.order.moveToFront(e.node)
	c.hits++
	return e.value, true
}

// Put stores value under url with the given byte cost, evicting
// least-recently-used entries until the total cost budget is satisfied. If
// an entry for url already exists it is replaced and its cost updated.
func (c *TextureCache[V]) Put(url string, value V, cost int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[url]; ok {
		c.totalCost += cost - e.cost
		e.value = value
		e.cost = cost
		c.order.moveToFront(e.node)
	} else {
		node := c.order.pushFront(url)
		c.entries[url] = &cacheEntry[V]{value: value, cost: cost, node: node}
		c.totalCost += cost
	}
	c.evictUntilLocked(c.budgetBytes)
}

// GetOrCreate returns the cached value for url, or computes it via create
// (which also reports the cost to store it under) when absent. create is
// called with the cache's lock held, matching the teacher's GetOrCreate
// contract of serializing concurrent creation for the same key.
func (c *TextureCache[V]) GetOrCreate(url string, create func() (V, int64)) V {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[url]; ok {
		c.order.moveToFront(e.node)
		c.hits++
		return e.value
	}
	c.misses++

	value, cost := create()
	node := c.order.pushFront(url)
	c.entries[url] = &cacheEntry[V]{value: value, cost: cost, node: node}
	c.totalCost += cost
	c.evictUntilLocked(c.budgetBytes)
	return value
}

// EvictUntil evicts least-recently-used entries until total cost is at
// most costLE bytes.
func (c *TextureCache[V]) EvictUntil(costLE int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evictUntilLocked(costLE)
}

func (c *TextureCache[V]) evictUntilLocked(costLE int64) {
	if costLE <= 0 {
		return
	}
	for c.totalCost > costLE {
		url, ok := c.order.oldest()
		if !ok {
			return
		}
		e := c.entries[url]
		c.order.remove(e.node)
		delete(c.entries, url)
		c.totalCost -= e.cost
		c.evictions++
	}
}

// Delete removes the entry for url, if present.
func (c *TextureCache[V]) Delete(url string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[url]
	if !ok {
		return false
	}
	c.order.remove(e.node)
	delete(c.entries, url)
	c.totalCost -= e.cost
	return true
}

// Len returns the number of cached entries.
func (c *TextureCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a snapshot of cache occupancy and hit/miss counters.
func (c *TextureCache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Len:         len(c.entries),
		TotalCost:   c.totalCost,
		BudgetBytes: c.budgetBytes,
		Hits:        c.hits,
		Misses:      c.misses,
		Evictions:   c.evictions,
	}
}
