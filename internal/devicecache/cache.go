package devicecache

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Cache is the device presence table shared by the HTTP handlers, the
// janitor and operational tooling. It is safe for concurrent use.
//
// Entries only appear through Insert, Add or Heartbeat and only disappear
// through an explicit removal. Reading never expires anything.
type Cache struct {
	store        Store
	now          func() time.Time
	logger       *zap.Logger
	activeWindow time.Duration

	rev           atomic.Uint64
	betweenPhases func() // test hook, runs between the two UpdateAll passes
}

// New returns an empty cache. Without options it uses a sharded store, the
// wall clock, a no-op logger and DefaultActiveWindow.
func New(opts ...Option) *Cache {
	c := &Cache{
		now:          time.Now,
		logger:       zap.NewNop(),
		activeWindow: DefaultActiveWindow,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.store == nil {
		c.store = NewShardedStore()
	}
	return c
}

func (c *Cache) unixNow() int64 {
	return c.now().UTC().Unix()
}

// nextRev returns a write generation no other write has seen.
func (c *Cache) nextRev() uint64 {
	return c.rev.Add(1)
}

// Insert stores e under key, replacing any previous entry. LastSeen is set
// to now and HeartbeatCount to 1.
func (c *Cache) Insert(key Key, e Entry) {
	e.LastSeen = c.unixNow()
	e.HeartbeatCount = 1
	e.rev = c.nextRev()
	c.store.Set(key, e)
}

// InsertMAC parses mac and inserts e under the resulting key.
func (c *Cache) InsertMAC(mac string, e Entry) (Key, error) {
	key, err := ParseMAC(mac)
	if err != nil {
		return "", err
	}
	c.Insert(key, e)
	return key, nil
}

// Add inserts a fresh entry for the device reachable at mac.
func (c *Cache) Add(deviceID, mac, ip string, lastPing *int32) (Key, error) {
	key, err := c.InsertMAC(mac, Entry{DeviceID: deviceID, IP: ip, LastPing: lastPing})
	if err != nil {
		return "", err
	}
	c.logger.Debug("device added",
		zap.String("key", key.String()),
		zap.String("device_id", deviceID),
		zap.String("ip", ip))
	return key, nil
}

// Update records a heartbeat for an existing entry: LastSeen becomes now and
// HeartbeatCount grows by one. A non-empty ip and a non-nil lastPing replace
// the stored values. It reports false when key is absent.
func (c *Cache) Update(key Key, ip string, lastPing *int32) (Entry, bool) {
	now := c.unixNow()
	var out Entry
	ok := c.store.Update(key, func(e *Entry) {
		bump(e, now, ip, lastPing)
		e.rev = c.nextRev()
		out = e.clone()
	})
	return out, ok
}

// UpdateMAC is Update keyed by a textual MAC address.
func (c *Cache) UpdateMAC(mac, ip string, lastPing *int32) (Entry, bool, error) {
	key, err := ParseMAC(mac)
	if err != nil {
		return Entry{}, false, err
	}
	e, ok := c.Update(key, ip, lastPing)
	return e, ok, nil
}

// Heartbeat updates the entry for key if present, otherwise inserts a fresh
// one. The decision and the write happen atomically for the key.
func (c *Cache) Heartbeat(key Key, deviceID, ip string, lastPing *int32) Entry {
	now := c.unixNow()
	rev := c.nextRev()
	fresh := Entry{
		DeviceID:       deviceID,
		IP:             ip,
		LastPing:       lastPing,
		LastSeen:       now,
		HeartbeatCount: 1,
		rev:            rev,
	}
	return c.store.Upsert(key, fresh, func(e *Entry) {
		if deviceID != "" {
			e.DeviceID = deviceID
		}
		bump(e, now, ip, lastPing)
		e.rev = rev
	})
}

func bump(e *Entry, now int64, ip string, lastPing *int32) {
	e.LastSeen = now
	e.HeartbeatCount++
	if ip != "" {
		e.IP = ip
	}
	if lastPing != nil {
		lp := *lastPing
		e.LastPing = &lp
	}
}

// Get returns a copy of the entry for key.
func (c *Cache) Get(key Key) (Entry, bool) {
	return c.store.Get(key)
}

// GetMAC is Get keyed by a textual MAC address.
func (c *Cache) GetMAC(mac string) (Entry, bool, error) {
	key, err := ParseMAC(mac)
	if err != nil {
		return Entry{}, false, err
	}
	e, ok := c.store.Get(key)
	return e, ok, nil
}

// Remove deletes key and returns the entry it held.
func (c *Cache) Remove(key Key) (Entry, bool) {
	return c.store.Remove(key)
}

// RemoveMAC is Remove keyed by a textual MAC address.
func (c *Cache) RemoveMAC(mac string) (Entry, bool, error) {
	key, err := ParseMAC(mac)
	if err != nil {
		return Entry{}, false, err
	}
	e, ok := c.store.Remove(key)
	return e, ok, nil
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	return c.store.Len()
}

// Range visits a copy of every entry until fn returns false. fn must not
// call back into the cache.
func (c *Cache) Range(fn func(Key, Entry) bool) {
	c.store.Range(fn)
}

// Snapshot returns copies of all entries in no particular order.
func (c *Cache) Snapshot() []Item {
	return c.CollectMatching(func(Key, Entry) bool { return true })
}

// Clear removes every entry and returns how many were removed.
func (c *Cache) Clear() int {
	n := c.store.Clear()
	c.logger.Info("device cache cleared", zap.Int("removed", n))
	return n
}
