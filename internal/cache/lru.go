// internal/cache/lru.go
//
// Tiny generic LRU used by the session store to bound the number of live
// contact forms.  No external deps; good for tens of thousands of entries.
//
// Not safe for concurrent use.  Callers hold their own lock, which lets
// them combine a lookup and an insert atomically.
package cache

import "container/list"

// LRU is a least‑recently‑used cache.
type LRU[K comparable, V any] struct {
	cap  int
	ll   *list.List
	dict map[K]*list.Element

	// OnEvict runs when Add pushes the oldest entry out.  It does not run
	// for Remove; the caller already has the value.
	OnEvict func(key K, val V)
}

type pair[K comparable, V any] struct {
	key K
	val V
}

// New returns an LRU with the given capacity.  Panics on cap < 1.
func New[K comparable, V any](capacity int) *LRU[K, V] {
	if capacity < 1 {
		panic("cache: capacity must be ≥1")
	}
	return &LRU[K, V]{
		cap:  capacity,
		ll:   list.New(),
		dict: make(map[K]*list.Element, capacity),
	}
}

// Get retrieves a value and marks it MRU.
func (c *LRU[K, V]) Get(key K) (val V, ok bool) {
	if ele, hit := c.dict[key]; hit {
		c.ll.MoveToFront(ele)
		return ele.Value.(pair[K, V]).val, true
	}
	return val, false
}

// Peek retrieves a value without touching recency.
func (c *LRU[K, V]) Peek(key K) (val V, ok bool) {
	if ele, hit := c.dict[key]; hit {
		return ele.Value.(pair[K, V]).val, true
	}
	return val, false
}

// Add inserts or updates a value and marks it MRU.
func (c *LRU[K, V]) Add(key K, val V) {
	if ele, hit := c.dict[key]; hit {
		ele.Value = pair[K, V]{key, val}
		c.ll.MoveToFront(ele)
		return
	}
	ele := c.ll.PushFront(pair[K, V]{key, val})
	c.dict[key] = ele
	if c.ll.Len() > c.cap {
		last := c.ll.Back()
		c.ll.Remove(last)
		p := last.Value.(pair[K, V])
		delete(c.dict, p.key)
		if c.OnEvict != nil {
			c.OnEvict(p.key, p.val)
		}
	}
}

// Remove deletes key and returns its value.
func (c *LRU[K, V]) Remove(key K) (val V, ok bool) {
	ele, hit := c.dict[key]
	if !hit {
		return val, false
	}
	c.ll.Remove(ele)
	delete(c.dict, key)
	return ele.Value.(pair[K, V]).val, true
}

// Oldest returns the least-recently-used entry without touching recency.
func (c *LRU[K, V]) Oldest() (key K, val V, ok bool) {
	last := c.ll.Back()
	if last == nil {
		return key, val, false
	}
	p := last.Value.(pair[K, V])
	return p.key, p.val, true
}

// Drain removes every entry and returns them, most recent first.
func (c *LRU[K, V]) Drain() []V {
	out := make([]V, 0, c.ll.Len())
	for e := c.ll.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(pair[K, V]).val)
	}
	c.ll.Init()
	clear(c.dict)
	return out
}

// Len reports current size.
func (c *LRU[K, V]) Len() int { return c.ll.Len() }
