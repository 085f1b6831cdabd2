package devicecache

import (
	"time"

	"go.uber.org/zap"
)

// UpdateAll lets fn mutate every entry in place and decide whether it stays.
// Entries for which fn returns false are removed after every entry has been
// visited, unless any cache write touched them in between. A replacement
// within the same second counts as a write. It returns the number of entries
// visited, not the number removed.
//
// fn runs under the visited key's lock and must not call back into the cache.
func (c *Cache) UpdateAll(fn func(Key, *Entry) bool) int {
	type mark struct {
		key Key
		rev uint64
	}

	var keys []Key
	c.store.Range(func(k Key, _ Entry) bool {
		keys = append(keys, k)
		return true
	})

	visited := 0
	var drop []mark
	for _, k := range keys {
		var (
			keep bool
			rev  uint64
		)
		ok := c.store.Update(k, func(e *Entry) {
			keep = fn(k, e)
			e.rev = c.nextRev()
			rev = e.rev
		})
		if !ok {
			continue
		}
		visited++
		if !keep {
			drop = append(drop, mark{key: k, rev: rev})
		}
	}

	if c.betweenPhases != nil {
		c.betweenPhases()
	}

	removed := 0
	for _, m := range drop {
		_, ok := c.store.RemoveIf(m.key, func(_ Key, e Entry) bool {
			return e.rev == m.rev
		})
		if ok {
			removed++
		}
	}

	c.logger.Info("bulk update finished",
		zap.Int("visited", visited),
		zap.Int("removed", removed))
	return visited
}

// RemoveMatching removes the entries satisfying pred and returns how many
// were removed. Keys are selected in a first pass; each one is removed in a
// second pass only if its entry still satisfies pred at that moment.
func (c *Cache) RemoveMatching(pred Predicate) int {
	var keys []Key
	c.store.Range(func(k Key, e Entry) bool {
		if pred(k, e) {
			keys = append(keys, k)
		}
		return true
	})

	removed := 0
	for _, k := range keys {
		if _, ok := c.store.RemoveIf(k, pred); ok {
			removed++
		}
	}
	return removed
}

// RemoveByIPPattern removes entries whose IP contains pattern.
func (c *Cache) RemoveByIPPattern(pattern string) int {
	return c.RemoveMatching(ipContains(pattern))
}

// RemoveByKeyPattern removes entries whose canonical key text contains
// pattern. The match is case-sensitive.
func (c *Cache) RemoveByKeyPattern(pattern string) int {
	return c.RemoveMatching(keyContains(pattern))
}

// RemoveByDevicePattern removes entries whose device id contains pattern.
func (c *Cache) RemoveByDevicePattern(pattern string) int {
	return c.RemoveMatching(deviceContains(pattern))
}

// RemoveWithLowHeartbeats removes entries with fewer than min heartbeats.
func (c *Cache) RemoveWithLowHeartbeats(min uint64) int {
	return c.RemoveMatching(func(_ Key, e Entry) bool {
		return e.HeartbeatCount < min
	})
}

// RemoveOlderThan removes entries last seen more than maxAge ago.
func (c *Cache) RemoveOlderThan(maxAge time.Duration) int {
	limit := seconds(maxAge)
	return c.RemoveMatching(func(_ Key, e Entry) bool {
		return e.Age(c.now()) > limit
	})
}

// CleanupStale is RemoveOlderThan with logging, used by the janitor.
func (c *Cache) CleanupStale(maxAge time.Duration) int {
	removed := c.RemoveOlderThan(maxAge)
	if removed > 0 {
		c.logger.Info("stale devices removed",
			zap.Int("removed", removed),
			zap.Duration("max_age", maxAge))
	}
	return removed
}

// IterateAndRemove walks every entry, removing those matching cond, and
// returns how many entries were checked and how many removed.
func (c *Cache) IterateAndRemove(cond Predicate) (checked, removed int) {
	var keys []Key
	c.store.Range(func(k Key, e Entry) bool {
		checked++
		if cond(k, e) {
			c.logger.Debug("device marked for removal",
				zap.String("key", k.String()),
				zap.String("device_id", e.DeviceID),
				zap.Uint64("heartbeats", e.HeartbeatCount))
			keys = append(keys, k)
		}
		return true
	})

	for _, k := range keys {
		if _, ok := c.store.RemoveIf(k, cond); ok {
			removed++
		}
	}
	c.logger.Info("iterate and remove finished",
		zap.Int("checked", checked),
		zap.Int("removed", removed))
	return checked, removed
}

// Criteria describes a composite removal. Every field is optional.
//
// NOTE: criteria are combined with OR. An entry is removed when it matches
// ANY supplied criterion, not all of them. To remove only entries matching
// several conditions at once, pass a single predicate to RemoveMatching.
type Criteria struct {
	MaxAge         *time.Duration // age strictly greater than MaxAge
	MinHeartbeats  *uint64        // heartbeat count strictly below MinHeartbeats
	IPPatterns     []string       // IP contains any pattern
	KeyPatterns    []string       // key text contains any pattern
	DevicePatterns []string       // device id contains any pattern
}

// Empty reports whether no criterion is set.
func (cr Criteria) Empty() bool {
	return cr.MaxAge == nil && cr.MinHeartbeats == nil &&
		len(cr.IPPatterns) == 0 && len(cr.KeyPatterns) == 0 && len(cr.DevicePatterns) == 0
}

func (cr Criteria) predicate(now func() time.Time) Predicate {
	var preds []Predicate
	if cr.MaxAge != nil {
		limit := seconds(*cr.MaxAge)
		preds = append(preds, func(_ Key, e Entry) bool { return e.Age(now()) > limit })
	}
	if cr.MinHeartbeats != nil {
		min := *cr.MinHeartbeats
		preds = append(preds, func(_ Key, e Entry) bool { return e.HeartbeatCount < min })
	}
	for _, p := range cr.IPPatterns {
		preds = append(preds, ipContains(p))
	}
	for _, p := range cr.KeyPatterns {
		preds = append(preds, keyContains(p))
	}
	for _, p := range cr.DevicePatterns {
		preds = append(preds, deviceContains(p))
	}

	return func(k Key, e Entry) bool {
		for _, p := range preds {
			if p(k, e) {
				return true
			}
		}
		return false
	}
}

// RemoveByCriteria removes entries matching any of the supplied criteria and
// returns how many were removed. Empty criteria remove nothing.
func (c *Cache) RemoveByCriteria(cr Criteria) int {
	if cr.Empty() {
		return 0
	}
	removed := c.RemoveMatching(cr.predicate(c.now))
	c.logger.Info("criteria removal finished", zap.Int("removed", removed))
	return removed
}
