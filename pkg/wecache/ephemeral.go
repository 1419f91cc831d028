// Copyright 2024-2026 Aiku AI

package wecache

import (
	"container/list"
	"sync"
	"time"
)

// Ephemeral is a bounded LRU cache with per-entry expiry. It backs the
// short-lived tiers (messages, revoke info, contact search results) that
// must never grow without bound across a long-running session.
type Ephemeral[V any] struct {
	mu       sync.Mutex
	capacity int
	maxAge   time.Duration
	order    *list.List
	entries  map[string]*list.Element
	now      func() time.Time
}

type ephemeralEntry[V any] struct {
	key      string
	value    V
	storedAt time.Time
}

// NewEphemeral creates an ephemeral tier holding at most capacity entries,
// each readable for maxAge after its last write.
func NewEphemeral[V any](capacity int, maxAge time.Duration) *Ephemeral[V] {
	return &Ephemeral[V]{
		capacity: capacity,
		maxAge:   maxAge,
		order:    list.New(),
		entries:  make(map[string]*list.Element),
		now:      time.Now,
	}
}

// SetClock replaces the time source. Test hook.
func (e *Ephemeral[V]) SetClock(now func() time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = now
}

// Get returns the entry for key if it exists and has not expired. Expired
// entries are removed on the spot.
func (e *Ephemeral[V]) Get(key string) (V, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var zero V
	elem, ok := e.entries[key]
	if !ok {
		return zero, false
	}
	entry := elem.Value.(*ephemeralEntry[V])
	if e.now().Sub(entry.storedAt) > e.maxAge {
		e.removeLocked(elem)
		return zero, false
	}
	e.order.MoveToFront(elem)
	return entry.value, true
}

// Has reports whether key is present and fresh without touching recency.
func (e *Ephemeral[V]) Has(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	elem, ok := e.entries[key]
	if !ok {
		return false
	}
	entry := elem.Value.(*ephemeralEntry[V])
	if e.now().Sub(entry.storedAt) > e.maxAge {
		e.removeLocked(elem)
		return false
	}
	return true
}

// Set stores value under key, resetting its age. Inserting beyond capacity
// evicts the least recently used entry.
func (e *Ephemeral[V]) Set(key string, value V) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if elem, ok := e.entries[key]; ok {
		entry := elem.Value.(*ephemeralEntry[V])
		entry.value = value
		entry.storedAt = e.now()
		e.order.MoveToFront(elem)
		return
	}
	elem := e.order.PushFront(&ephemeralEntry[V]{key: key, value: value, storedAt: e.now()})
	e.entries[key] = elem
	for e.order.Len() > e.capacity {
		e.removeLocked(e.order.Back())
	}
}

// Delete removes key if present.
func (e *Ephemeral[V]) Delete(key string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if elem, ok := e.entries[key]; ok {
		e.removeLocked(elem)
	}
}

// Len returns the number of stored entries, including any not yet observed
// as expired.
func (e *Ephemeral[V]) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.order.Len()
}

// Purge drops every entry.
func (e *Ephemeral[V]) Purge() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.order.Init()
	e.entries = make(map[string]*list.Element)
}

func (e *Ephemeral[V]) removeLocked(elem *list.Element) {
	entry := elem.Value.(*ephemeralEntry[V])
	delete(e.entries, entry.key)
	e.order.Remove(elem)
}
