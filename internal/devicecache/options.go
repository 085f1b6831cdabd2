package devicecache

import (
	"time"

	"go.uber.org/zap"
)

// DefaultActiveWindow is how recently an entry must have been seen to count
// as active in Stats.
const DefaultActiveWindow = 300 * time.Second

// Option configures a Cache built by New.
type Option func(*Cache)

// WithStore uses s as the backing table instead of the default sharded store.
func WithStore(s Store) Option {
	return func(c *Cache) {
		c.store = s
	}
}

// WithClock replaces time.Now as the source of "now".
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// WithLogger attaches a logger. Bulk operations log at info, per-entry
// detail at debug.
func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) {
		c.logger = l
	}
}

// WithActiveWindow sets the age up to which Stats counts an entry as active.
func WithActiveWindow(d time.Duration) Option {
	return func(c *Cache) {
		c.activeWindow = d
	}
}
