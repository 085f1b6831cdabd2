package devicecache

import (
	"sync"

	cmap "github.com/orcaman/concurrent-map/v2"
)

// slot holds one key's entry. A slot leaves the shard map and is marked dead
// in the same critical section, so readers that fetched the pointer earlier
// observe the removal once they take the slot lock.
type slot struct {
	mu    sync.Mutex
	entry Entry
	live  bool
}

// shardedStore spreads keys over the shards of a concurrent map. Writers that
// change membership hold the shard lock and then the slot lock; readers and
// in-place updates only take the slot lock.
type shardedStore struct {
	m cmap.ConcurrentMap[Key, *slot]
}

// NewShardedStore returns a Store backed by a sharded concurrent map.
func NewShardedStore() Store {
	return &shardedStore{m: cmap.NewStringer[Key, *slot]()}
}

func (s *shardedStore) Set(key Key, e Entry) {
	e = e.clone()
	s.m.Upsert(key, nil, func(exist bool, cur *slot, _ *slot) *slot {
		if exist {
			cur.mu.Lock()
			cur.entry = e
			cur.mu.Unlock()
			return cur
		}
		return &slot{entry: e, live: true}
	})
}

func (s *shardedStore) Get(key Key) (Entry, bool) {
	sl, ok := s.m.Get(key)
	if !ok {
		return Entry{}, false
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if !sl.live {
		return Entry{}, false
	}
	return sl.entry.clone(), true
}

func (s *shardedStore) Remove(key Key) (Entry, bool) {
	return s.RemoveIf(key, func(Key, Entry) bool { return true })
}

func (s *shardedStore) Update(key Key, fn func(*Entry)) bool {
	sl, ok := s.m.Get(key)
	if !ok {
		return false
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if !sl.live {
		return false
	}
	fn(&sl.entry)
	return true
}

func (s *shardedStore) Upsert(key Key, fresh Entry, fn func(*Entry)) Entry {
	var out Entry
	s.m.Upsert(key, nil, func(exist bool, cur *slot, _ *slot) *slot {
		if exist {
			cur.mu.Lock()
			fn(&cur.entry)
			out = cur.entry.clone()
			cur.mu.Unlock()
			return cur
		}
		sl := &slot{entry: fresh.clone(), live: true}
		out = sl.entry.clone()
		return sl
	})
	return out
}

func (s *shardedStore) RemoveIf(key Key, pred Predicate) (Entry, bool) {
	var (
		out     Entry
		removed bool
	)
	s.m.RemoveCb(key, func(k Key, sl *slot, exists bool) bool {
		if !exists {
			return false
		}
		sl.mu.Lock()
		defer sl.mu.Unlock()
		if !sl.live || !pred(k, sl.entry.clone()) {
			return false
		}
		sl.live = false
		out, removed = sl.entry, true
		return true
	})
	return out, removed
}

func (s *shardedStore) Len() int {
	return s.m.Count()
}

// Range walks a per-shard snapshot of the slot pointers, so fn never runs
// under a shard lock. Slots removed after the snapshot are skipped.
func (s *shardedStore) Range(fn func(Key, Entry) bool) {
	for t := range s.m.IterBuffered() {
		t.Val.mu.Lock()
		e, live := t.Val.entry.clone(), t.Val.live
		t.Val.mu.Unlock()
		if !live {
			continue
		}
		if !fn(t.Key, e) {
			return // the channel is fully buffered, nothing is left blocked
		}
	}
}

func (s *shardedStore) Clear() int {
	n := 0
	for _, k := range s.m.Keys() {
		if _, ok := s.Remove(k); ok {
			n++
		}
	}
	return n
}
