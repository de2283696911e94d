// Package store provides a generic, thread-safe, in-memory keyed collection
// used by agrotwin for the session registry and the read-only catalog, plus a
// simulated clock that tests can freeze and advance.
package store

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
)

// Store is a generic, thread-safe, in-memory collection of T keyed by ID.
// Listing follows insertion order.
type Store[T any] struct {
	mu      sync.RWMutex
	items   map[string]T
	order   []string
	prefix  string
	counter atomic.Uint64
}

// New creates a Store whose generated IDs carry the given prefix
// (e.g. "sess", "bk").
func New[T any](prefix string) *Store[T] {
	return &Store[T]{
		items:  make(map[string]T),
		order:  make([]string, 0),
		prefix: prefix,
	}
}

// NextID returns the next sequential ID, e.g. "sess_000001".
func (s *Store[T]) NextID() string {
	n := s.counter.Add(1)
	return fmt.Sprintf("%s_%06d", s.prefix, n)
}

// Set stores item under id. Overwriting keeps the original position.
func (s *Store[T]) Set(id string, item T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[id]; !exists {
		s.order = append(s.order, id)
	}
	s.items[id] = item
}

// Get returns the item stored under id.
func (s *Store[T]) Get(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	return item, ok
}

// Delete removes id and reports whether it existed.
func (s *Store[T]) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[id]; !exists {
		return false
	}
	delete(s.items, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// List returns all items in insertion order.
func (s *Store[T]) List() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]T, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, s.items[id])
	}
	return result
}

// Page is one window of a cursor-paginated listing.
type Page[T any] struct {
	Data    []T    `json:"data"`
	HasMore bool   `json:"has_more"`
	Cursor  string `json:"cursor,omitempty"`
	Total   int    `json:"total"`
}

// Paginate returns up to limit items following cursor (the last ID seen).
// An empty cursor starts at the beginning; limit <= 0 returns everything.
func (s *Store[T]) Paginate(cursor string, limit int) Page[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := 0
	if cursor != "" {
		for i, id := range s.order {
			if id == cursor {
				start = i + 1
				break
			}
		}
	}
	if limit <= 0 {
		limit = len(s.order)
	}

	end := min(start+limit, len(s.order))
	page := Page[T]{
		Data:    make([]T, 0, end-start),
		HasMore: end < len(s.order),
		Total:   len(s.order),
	}
	for i := start; i < end; i++ {
		page.Data = append(page.Data, s.items[s.order[i]])
		page.Cursor = s.order[i]
	}
	return page
}

// Count returns the number of stored items.
func (s *Store[T]) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Filter returns the items matching predicate, in insertion order.
func (s *Store[T]) Filter(predicate func(id string, item T) bool) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []T
	for _, id := range s.order {
		if predicate(id, s.items[id]) {
			result = append(result, s.items[id])
		}
	}
	return result
}

// Reset removes every item and restarts ID generation.
func (s *Store[T]) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]T)
	s.order = make([]string, 0)
	s.counter.Store(0)
}

// Snapshot copies the items into a plain map.
func (s *Store[T]) Snapshot() map[string]T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := make(map[string]T, len(s.items))
	for k, v := range s.items {
		snapshot[k] = v
	}
	return snapshot
}

// LoadSnapshot replaces the contents with snapshot. IDs are sorted so the
// resulting order is deterministic.
func (s *Store[T]) LoadSnapshot(snapshot map[string]T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]T, len(snapshot))
	s.order = make([]string, 0, len(snapshot))
	for k, v := range snapshot {
		s.items[k] = v
		s.order = append(s.order, k)
	}
	sort.Strings(s.order)
}

// Load replaces the contents with items, keeping the given order. key
// extracts each item's ID.
func (s *Store[T]) Load(items []T, key func(T) string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]T, len(items))
	s.order = make([]string, 0, len(items))
	for _, item := range items {
		id := key(item)
		if _, dup := s.items[id]; !dup {
			s.order = append(s.order, id)
		}
		s.items[id] = item
	}
}
