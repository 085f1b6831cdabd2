package main

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// heartbeatRecord is one accepted heartbeat queued for persistence
type heartbeatRecord struct {
	DeviceID   int64
	MAC        string
	IP         string
	LastPing   *int32
	ReportedAt time.Time
}

// persistFunc stores a single heartbeat record
type persistFunc func(ctx context.Context, rec heartbeatRecord) error

// workerPool persists heartbeats off the request path
type workerPool struct {
	workers int                  // Number of worker goroutines
	queue   chan heartbeatRecord // Pending records
	persist persistFunc          // Executed once per record
	timeout time.Duration        // Per-record deadline
	wg      sync.WaitGroup       // Tracks running workers for shutdown
	once    sync.Once            // Ensures Stop runs once
}

func newWorkerPool(workers, queueSize int, timeout time.Duration, persist persistFunc) *workerPool {
	return &workerPool{
		workers: workers,
		queue:   make(chan heartbeatRecord, queueSize),
		persist: persist,
		timeout: timeout,
	}
}

// Start launches all worker goroutines
func (wp *workerPool) Start() {
	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker()
	}
}

// Stop closes the queue and waits for queued records to drain
func (wp *workerPool) Stop() {
	wp.once.Do(func() {
		close(wp.queue)
		wp.wg.Wait()
	})
}

func (wp *workerPool) worker() {
	defer wp.wg.Done()

	for rec := range wp.queue {
		ctx, cancel := context.WithTimeout(context.Background(), wp.timeout)
		err := wp.persist(ctx, rec)
		cancel()

		if err != nil {
			logger.Error("Heartbeat persistence failed",
				zap.Int64("deviceID", rec.DeviceID),
				zap.String("mac", rec.MAC),
				zap.Error(err),
			)
		}
	}
}

// Submit queues rec without blocking. When the queue is full the record is
// dropped and a warning is logged.
func (wp *workerPool) Submit(rec heartbeatRecord) bool {
	select {
	case wp.queue <- rec:
		return true
	default:
		logger.Warn("Worker pool queue full, heartbeat dropped",
			zap.Int64("deviceID", rec.DeviceID),
			zap.String("mac", rec.MAC),
		)
		return false
	}
}
