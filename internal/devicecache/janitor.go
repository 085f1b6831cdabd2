package devicecache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Strategy selects how the janitor spaces its eviction passes.
type Strategy string

const (
	// StrategyTicker runs passes at a fixed cadence regardless of how long
	// each pass takes.
	StrategyTicker Strategy = "ticker"
	// StrategySleep waits a full interval after each pass completes.
	StrategySleep Strategy = "sleep"
)

// ParseStrategy validates a strategy name. An empty name means StrategyTicker.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyTicker, "":
		return StrategyTicker, nil
	case StrategySleep:
		return StrategySleep, nil
	default:
		return "", fmt.Errorf("unknown janitor strategy %q", s)
	}
}

var (
	ErrJanitorRunning    = errors.New("janitor already running")
	ErrJanitorNotRunning = errors.New("janitor not running")
)

// PassResult reports one eviction pass.
type PassResult struct {
	Removed int
	Size    int
}

// Janitor periodically evicts entries older than MaxAge from a Cache.
type Janitor struct {
	cache    *Cache
	interval time.Duration
	maxAge   time.Duration
	strategy Strategy
	logger   *zap.Logger

	// OnPass, when set, is called after every pass.
	OnPass func(PassResult)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewJanitor returns a stopped janitor. A nil logger disables logging.
func NewJanitor(c *Cache, interval, maxAge time.Duration, strategy Strategy, logger *zap.Logger) (*Janitor, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("janitor interval must be positive, got %s", interval)
	}
	if maxAge <= 0 {
		return nil, fmt.Errorf("janitor max age must be positive, got %s", maxAge)
	}
	if _, err := ParseStrategy(string(strategy)); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Janitor{
		cache:    c,
		interval: interval,
		maxAge:   maxAge,
		strategy: strategy,
		logger:   logger,
	}, nil
}

// RunOnce performs a single eviction pass.
func (j *Janitor) RunOnce() PassResult {
	removed := j.cache.CleanupStale(j.maxAge)
	res := PassResult{Removed: removed, Size: j.cache.Len()}
	j.logger.Info("cache maintenance pass",
		zap.Int("removed", res.Removed),
		zap.Int("size", res.Size))
	if j.OnPass != nil {
		j.OnPass(res)
	}
	return res
}

// Run blocks, running passes until ctx is cancelled. The first pass happens
// one interval after Run is called.
func (j *Janitor) Run(ctx context.Context) {
	j.logger.Info("cache janitor started",
		zap.Duration("interval", j.interval),
		zap.Duration("max_age", j.maxAge),
		zap.String("strategy", string(j.strategy)))
	defer j.logger.Info("cache janitor stopped")

	if j.strategy == StrategySleep {
		j.runSleep(ctx)
		return
	}
	j.runTicker(ctx)
}

func (j *Janitor) runTicker(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.RunOnce()
		case <-ctx.Done():
			return
		}
	}
}

func (j *Janitor) runSleep(ctx context.Context) {
	timer := time.NewTimer(j.interval)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			j.RunOnce()
			timer.Reset(j.interval)
		case <-ctx.Done():
			return
		}
	}
}

// Start runs the janitor in a background goroutine.
func (j *Janitor) Start() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cancel != nil {
		return ErrJanitorRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	j.cancel, j.done = cancel, done
	go func() {
		defer close(done)
		j.Run(ctx)
	}()
	return nil
}

// Stop cancels a janitor started with Start and waits for it to exit.
func (j *Janitor) Stop() error {
	j.mu.Lock()
	cancel, done := j.cancel, j.done
	j.cancel, j.done = nil, nil
	j.mu.Unlock()

	if cancel == nil {
		return ErrJanitorNotRunning
	}
	cancel()
	<-done
	return nil
}
