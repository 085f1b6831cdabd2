package main

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"go.uber.org/zap"
)

// cpuPercent samples overall CPU usage over interval (package-level for testing)
var cpuPercent = func(ctx context.Context, interval time.Duration) (float64, error) {
	vals, err := cpu.PercentWithContext(ctx, interval, false)
	if err != nil {
		return 0, err
	}
	if len(vals) == 0 {
		return 0, nil
	}
	return vals[0], nil
}

// cpuMonitor keeps the latest CPU usage sample readable without locking
type cpuMonitor struct {
	usage    atomic.Uint64 // percent x 100
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
	startMu  sync.Mutex
}

func newCPUMonitor(interval time.Duration) *cpuMonitor {
	return &cpuMonitor{interval: interval}
}

// Usage returns the last sampled CPU usage in percent
func (c *cpuMonitor) Usage() float64 {
	return float64(c.usage.Load()) / 100
}

func (c *cpuMonitor) store(pct float64) {
	if pct < 0 {
		pct = 0
	}
	c.usage.Store(uint64(pct*100 + 0.5))
}

// Start launches the sampling goroutine. Calling it again is a no-op.
func (c *cpuMonitor) Start() {
	c.startMu.Lock()
	defer c.startMu.Unlock()
	if c.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.cancel, c.done = cancel, done
	go c.run(ctx, done)
}

// Stop ends sampling and waits for the goroutine to exit
func (c *cpuMonitor) Stop() {
	c.startMu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.startMu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (c *cpuMonitor) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		// cpuPercent blocks for one interval while it measures
		pct, err := cpuPercent(ctx, c.interval)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			logger.Warn("CPU sampling failed", zap.Error(err))
			select {
			case <-time.After(c.interval):
			case <-ctx.Done():
				return
			}
			continue
		}
		c.store(pct)
	}
}
