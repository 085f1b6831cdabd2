package devicecache

// Stats summarises the cache at one point of a single pass.
type Stats struct {
	TotalEntries          int    `json:"total_entries"`
	ActiveEntries         int    `json:"active_entries"`
	StaleEntries          int    `json:"stale_entries"`
	TotalHeartbeats       uint64 `json:"total_heartbeats"`
	OldestEntryAgeSeconds int64  `json:"oldest_entry_age_seconds"`
	NewestEntryAgeSeconds int64  `json:"newest_entry_age_seconds"`
}

// Stats computes aggregate figures over the entries. An entry is active when
// its age does not exceed the active window and stale otherwise. With no
// entries both ages are zero.
func (c *Cache) Stats() Stats {
	var (
		st     Stats
		now    = c.now()
		window = seconds(c.activeWindow)
	)
	c.store.Range(func(_ Key, e Entry) bool {
		age := e.Age(now)
		if st.TotalEntries == 0 {
			st.OldestEntryAgeSeconds, st.NewestEntryAgeSeconds = age, age
		} else {
			st.OldestEntryAgeSeconds = max(st.OldestEntryAgeSeconds, age)
			st.NewestEntryAgeSeconds = min(st.NewestEntryAgeSeconds, age)
		}
		st.TotalEntries++
		st.TotalHeartbeats += e.HeartbeatCount
		if age <= window {
			st.ActiveEntries++
		} else {
			st.StaleEntries++
		}
		return true
	})
	return st
}
