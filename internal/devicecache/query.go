package devicecache

import (
	"strings"
	"time"
)

// CollectMatching returns copies of the entries satisfying pred, in no
// particular order. pred sees each entry present during the pass once and
// must not call back into the cache.
func (c *Cache) CollectMatching(pred Predicate) []Item {
	var out []Item
	c.store.Range(func(k Key, e Entry) bool {
		if pred(k, e) {
			out = append(out, Item{Key: k, Entry: e})
		}
		return true
	})
	return out
}

// CollectByDevicePattern returns entries whose device id contains pattern.
func (c *Cache) CollectByDevicePattern(pattern string) []Item {
	return c.CollectMatching(deviceContains(pattern))
}

// CollectByIPPattern returns entries whose IP contains pattern.
func (c *Cache) CollectByIPPattern(pattern string) []Item {
	return c.CollectMatching(ipContains(pattern))
}

// CollectWithMinHeartbeats returns entries with at least min heartbeats.
func (c *Cache) CollectWithMinHeartbeats(min uint64) []Item {
	return c.CollectMatching(func(_ Key, e Entry) bool {
		return e.HeartbeatCount >= min
	})
}

// CollectNewerThan returns entries seen no more than maxAge ago.
func (c *Cache) CollectNewerThan(maxAge time.Duration) []Item {
	now, limit := c.now(), seconds(maxAge)
	return c.CollectMatching(func(_ Key, e Entry) bool {
		return e.Age(now) <= limit
	})
}

func deviceContains(pattern string) Predicate {
	return func(_ Key, e Entry) bool {
		return strings.Contains(e.DeviceID, pattern)
	}
}

func ipContains(pattern string) Predicate {
	return func(_ Key, e Entry) bool {
		return strings.Contains(e.IP, pattern)
	}
}

func keyContains(pattern string) Predicate {
	return func(k Key, _ Entry) bool {
		return matchesKeyPattern(k, pattern)
	}
}

func seconds(d time.Duration) int64 {
	return int64(d / time.Second)
}
