// Package cache implements a small thread-safe LRU with per-entry expiry,
// used to memoise embedding vectors and model completions.
package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// Entry is a cached value with its expiry instant. Exported so callers can
// persist and restore cache contents.
type Entry struct {
	Value     any       `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LRU is a fixed-capacity least-recently-used cache with TTL eviction.
type LRU struct {
	mu       sync.RWMutex
	capacity int
	ttl      time.Duration
	items    map[string]*list.Element
	order    *list.List
}

type node struct {
	key   string
	value Entry
}

// NewLRU returns a cache holding at most capacity entries, each valid for ttl.
func NewLRU(capacity int, ttl time.Duration) *LRU {
	if capacity <= 0 {
		capacity = 128
	}
	return &LRU{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
}

// Get returns the live value for key, promoting it to most recently used.
func (c *LRU) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return nil, false
	}
	n := elem.Value.(*node)
	if time.Now().After(n.value.ExpiresAt) {
		c.order.Remove(elem)
		delete(c.items, key)
		return nil, false
	}
	c.order.MoveToFront(elem)
	return n.value.Value, true
}

// Set stores value under key, evicting the least recently used entry when the
// cache is full.
func (c *LRU) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiry := time.Now().Add(c.ttl)
	if elem, ok := c.items[key]; ok {
		c.order.MoveToFront(elem)
		elem.Value.(*node).value = Entry{Value: value, ExpiresAt: expiry}
		return
	}

	elem := c.order.PushFront(&node{key: key, value: Entry{Value: value, ExpiresAt: expiry}})
	c.items[key] = elem
	c.evictOverCapacity()
}

// Len reports the number of resident entries, expired or not.
func (c *LRU) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.order.Len()
}

// Clear drops every entry.
func (c *LRU) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element, c.capacity)
	c.order.Init()
}

// Dump snapshots the cache for persistence.
func (c *LRU) Dump() map[string]Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]Entry, len(c.items))
	for k, elem := range c.items {
		out[k] = elem.Value.(*node).value
	}
	return out
}

// Restore replaces the cache contents with a previously dumped snapshot,
// skipping entries that expired in the meantime.
func (c *LRU) Restore(snapshot map[string]Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order.Init()
	c.items = make(map[string]*list.Element, c.capacity)
	now := time.Now()
	for k, v := range snapshot {
		if now.After(v.ExpiresAt) {
			continue
		}
		elem := c.order.PushFront(&node{key: k, value: v})
		c.items[k] = elem
	}
	c.evictOverCapacity()
}

func (c *LRU) evictOverCapacity() {
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*node).key)
	}
}

// Key derives a stable cache key from arbitrary text.
func Key(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}
