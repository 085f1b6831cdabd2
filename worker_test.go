package main

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// --- Worker Pool Tests ---

func TestWorkerPool_PersistsQueuedRecords(t *testing.T) {
	var persisted atomic.Int32
	wp := newWorkerPool(3, 16, time.Second, func(ctx context.Context, rec heartbeatRecord) error {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		persisted.Add(1)
		return nil
	})
	wp.Start()
	for i := 1; i <= 10; i++ {
		assert.True(t, wp.Submit(heartbeatRecord{DeviceID: int64(i)}))
	}
	wp.Stop()
	wp.Stop()

	assert.Equal(t, int32(10), persisted.Load(), "Stop drains the queue")
}

func TestWorkerPool_FailureIsLogged(t *testing.T) {
	buffer := captureLogs(t, zap.DebugLevel)
	wp := newWorkerPool(1, 1, time.Second, func(context.Context, heartbeatRecord) error {
		return errors.New("deadlock found when trying to get lock")
	})
	wp.Start()
	wp.Submit(heartbeatRecord{DeviceID: 7, MAC: mockMAC})
	wp.Stop()

	assert.Contains(t, buffer.String(), "Heartbeat persistence failed")
	assert.Contains(t, buffer.String(), "deadlock found")
}

func TestWorkerPool_FullQueueDrops(t *testing.T) {
	buffer := captureLogs(t, zap.WarnLevel)
	wp := newWorkerPool(1, 1, time.Second, func(context.Context, heartbeatRecord) error { return nil })

	// workers not started so the queue stays full
	assert.True(t, wp.Submit(heartbeatRecord{DeviceID: 1}))

	done := make(chan bool, 1)
	go func() { done <- wp.Submit(heartbeatRecord{DeviceID: 2}) }()
	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Submit blocked on a full queue")
	}
	assert.Contains(t, buffer.String(), "heartbeat dropped")
}
