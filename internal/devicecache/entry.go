package devicecache

import "time"

// Entry is the last-seen record kept for one device.
type Entry struct {
	DeviceID       string `json:"device_id"`
	IP             string `json:"ip"`
	LastPing       *int32 `json:"last_ping,omitempty"`
	LastSeen       int64  `json:"last_seen"`       // Unix seconds, UTC
	HeartbeatCount uint64 `json:"heartbeat_count"` // 1 on insert, +1 per update

	rev uint64 // write generation, stamped by the owning Cache
}

// Age returns the seconds elapsed between LastSeen and now. A LastSeen in
// the future yields a negative age.
func (e Entry) Age(now time.Time) int64 {
	return now.Unix() - e.LastSeen
}

// clone returns a copy that shares no memory with e.
func (e Entry) clone() Entry {
	if e.LastPing != nil {
		lp := *e.LastPing
		e.LastPing = &lp
	}
	return e
}

// Item pairs a key with a copy of its entry.
type Item struct {
	Key   Key   `json:"key"`
	Entry Entry `json:"entry"`
}

// Predicate selects entries for bulk queries and removals.
type Predicate func(Key, Entry) bool

// Int32 returns a pointer to v, handy for LastPing literals.
func Int32(v int32) *int32 {
	return &v
}
