package devicecache

import (
	"fmt"
	"sync"
)

// Store is the concurrent key to entry table behind a Cache.
//
// Operations on the same key are mutually exclusive. Entries passed in are
// copied and entries handed out are owned by the caller. Callbacks passed to
// Update, Upsert and RemoveIf run while the key's lock is held and must not
// call back into the store.
type Store interface {
	// Set inserts or fully replaces the entry for key.
	Set(key Key, e Entry)
	// Get returns a copy of the entry for key.
	Get(key Key) (Entry, bool)
	// Remove deletes key and returns the entry it held. Removing an absent
	// key is a no-op.
	Remove(key Key) (Entry, bool)
	// Update mutates the entry for key in place if it is present.
	Update(key Key, fn func(*Entry)) bool
	// Upsert mutates the entry for key if it is present, otherwise stores
	// fresh. It returns a copy of the resulting entry.
	Upsert(key Key, fresh Entry, fn func(*Entry)) Entry
	// RemoveIf deletes key only if its current entry satisfies pred.
	RemoveIf(key Key, pred Predicate) (Entry, bool)
	// Len returns the number of entries. Under concurrent writers the value
	// may be stale by the time it is returned.
	Len() int
	// Range calls fn with a copy of every entry present during the pass, at
	// most once per key, stopping early if fn returns false. No store lock
	// is held while fn runs.
	Range(fn func(Key, Entry) bool)
	// Clear removes every entry and returns how many were removed.
	Clear() int
}

// Backend names a Store implementation.
type Backend string

const (
	// BackendSharded spreads keys over independently locked shards.
	BackendSharded Backend = "sharded"
	// BackendMutex guards a single map with one read-write mutex.
	BackendMutex Backend = "mutex"
)

// NewStore returns an empty store for the named backend.
func NewStore(b Backend) (Store, error) {
	switch b {
	case BackendSharded, "":
		return NewShardedStore(), nil
	case BackendMutex:
		return NewMutexStore(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", string(b))
	}
}

// mutexStore keeps every entry in one map behind a read-write mutex.
type mutexStore struct {
	mu   sync.RWMutex
	data map[Key]Entry
}

// NewMutexStore returns a Store backed by a single mutex-guarded map.
func NewMutexStore() Store {
	return &mutexStore{data: make(map[Key]Entry)}
}

func (s *mutexStore) Set(key Key, e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = e.clone()
}

func (s *mutexStore) Get(key Key) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[key]
	if !ok {
		return Entry{}, false
	}
	return e.clone(), true
}

func (s *mutexStore) Remove(key Key) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data[key]
	if ok {
		delete(s.data, key)
	}
	return e, ok
}

func (s *mutexStore) Update(key Key, fn func(*Entry)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data[key]
	if !ok {
		return false
	}
	fn(&e)
	s.data[key] = e
	return true
}

func (s *mutexStore) Upsert(key Key, fresh Entry, fn func(*Entry)) Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data[key]
	if ok {
		fn(&e)
	} else {
		e = fresh.clone()
	}
	s.data[key] = e
	return e.clone()
}

func (s *mutexStore) RemoveIf(key Key, pred Predicate) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data[key]
	if !ok || !pred(key, e.clone()) {
		return Entry{}, false
	}
	delete(s.data, key)
	return e, true
}

func (s *mutexStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Range copies the table under the read lock and visits the copy afterwards.
func (s *mutexStore) Range(fn func(Key, Entry) bool) {
	s.mu.RLock()
	items := make([]Item, 0, len(s.data))
	for k, e := range s.data {
		items = append(items, Item{Key: k, Entry: e.clone()})
	}
	s.mu.RUnlock()

	for _, it := range items {
		if !fn(it.Key, it.Entry) {
			return
		}
	}
}

func (s *mutexStore) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.data)
	s.data = make(map[Key]Entry)
	return n
}
