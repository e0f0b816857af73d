// Package store holds live entities in memory, keyed by kind and numeric id.
//
// Each Collection owns a private id counter that starts at 1 and is never
// rewound, so ids are not reused after a delete. Values are cloned on the way
// in and out; callers never share memory with the stored record.
package store

import (
	"sort"
	"sync"
	"time"
)

// Entity is implemented by pointer types the store can key, stamp and copy.
type Entity[T any] interface {
	*T
	EntityID() int64
	Created() time.Time
	Stamp(id int64, at time.Time)
	Clone() T
}

// Clock returns the current time
type Clock func() time.Time

// Collection is a keyed set of one entity kind
type Collection[T any, P Entity[T]] struct {
	mu     sync.RWMutex
	kind   string
	nextID int64
	items  map[int64]T
	now    Clock
}

// NewCollection creates an empty collection for the given kind
func NewCollection[T any, P Entity[T]](kind string, now Clock) *Collection[T, P] {
	if now == nil {
		now = time.Now
	}
	return &Collection[T, P]{
		kind:  kind,
		items: make(map[int64]T),
		now:   now,
	}
}

// Kind returns the entity kind name
func (c *Collection[T, P]) Kind() string {
	return c.kind
}

// Insert assigns the next id and creation timestamp and stores a copy
func (c *Collection[T, P]) Insert(item T) T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.insertLocked(item)
}

// InsertUnique inserts unless conflict reports true for an existing record.
// The check and the insert happen under one lock.
func (c *Collection[T, P]) InsertUnique(item T, conflict func(existing T) bool) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, existing := range c.items {
		if conflict(existing) {
			var zero T
			return zero, false
		}
	}
	return c.insertLocked(item), true
}

func (c *Collection[T, P]) insertLocked(item T) T {
	c.nextID++
	stored := P(&item).Clone()
	P(&stored).Stamp(c.nextID, c.now())
	c.items[c.nextID] = stored
	return P(&stored).Clone()
}

// Get returns a copy of the record with id
func (c *Collection[T, P]) Get(id int64) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, ok := c.items[id]
	if !ok {
		var zero T
		return zero, false
	}
	return P(&item).Clone(), true
}

// ListWhere returns copies of matching records in ascending id order
func (c *Collection[T, P]) ListWhere(pred func(T) bool) []T {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]T, 0)
	for _, item := range c.items {
		if pred == nil || pred(item) {
			out = append(out, P(&item).Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return P(&out[i]).EntityID() < P(&out[j]).EntityID()
	})
	return out
}

// Update applies mutate to a copy of the record and stores the result.
// The id and creation timestamp survive whatever mutate does.
func (c *Collection[T, P]) Update(id int64, mutate func(*T)) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, ok := c.items[id]
	if !ok {
		var zero T
		return zero, false
	}

	created := P(&current).Created()
	next := P(&current).Clone()
	mutate(&next)
	P(&next).Stamp(id, created)

	c.items[id] = next
	return P(&next).Clone(), true
}

// UpdateWhere applies mutate to every record matching pred under one lock
// and returns how many were rewritten
func (c *Collection[T, P]) UpdateWhere(pred func(T) bool, mutate func(*T)) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	changed := 0
	for id, current := range c.items {
		if !pred(current) {
			continue
		}
		created := P(&current).Created()
		next := P(&current).Clone()
		mutate(&next)
		P(&next).Stamp(id, created)
		c.items[id] = next
		changed++
	}
	return changed
}

// Delete removes the record and reports whether it existed
func (c *Collection[T, P]) Delete(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.items[id]; !ok {
		return false
	}
	delete(c.items, id)
	return true
}

// Len returns the number of live records
func (c *Collection[T, P]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
