package main

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
)

// timingAccumulator collects latency samples for one endpoint or query
type timingAccumulator struct {
	count uint64
	min   time.Duration
	max   time.Duration
	total time.Duration
}

func (a *timingAccumulator) add(d time.Duration) {
	if a.count == 0 || d < a.min {
		a.min = d
	}
	if d > a.max {
		a.max = d
	}
	a.count++
	a.total += d
}

func (a *timingAccumulator) merge(b *timingAccumulator) {
	if b.count == 0 {
		return
	}
	if a.count == 0 || b.min < a.min {
		a.min = b.min
	}
	if b.max > a.max {
		a.max = b.max
	}
	a.count += b.count
	a.total += b.total
}

func (a *timingAccumulator) stats() TimingStats {
	if a.count == 0 {
		return TimingStats{}
	}
	return TimingStats{
		Count:   a.count,
		MinMs:   millis(a.min),
		MaxMs:   millis(a.max),
		MeanMs:  millis(a.total) / float64(a.count),
		TotalMs: millis(a.total),
	}
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// requestMonitor records how long endpoints and database queries take
type requestMonitor struct {
	mu        sync.Mutex
	endpoints map[string]*timingAccumulator
	queries   map[string]*timingAccumulator
	since     time.Time
	now       func() time.Time
}

func newRequestMonitor() *requestMonitor {
	m := &requestMonitor{now: time.Now}
	m.resetLocked()
	return m
}

func (m *requestMonitor) resetLocked() {
	m.endpoints = make(map[string]*timingAccumulator)
	m.queries = make(map[string]*timingAccumulator)
	m.since = m.now()
}

func record(set map[string]*timingAccumulator, name string, d time.Duration) {
	acc, ok := set[name]
	if !ok {
		acc = &timingAccumulator{}
		set[name] = acc
	}
	acc.add(d)
}

// RecordEndpoint adds one request duration for the named route
func (m *requestMonitor) RecordEndpoint(route string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record(m.endpoints, route, d)
}

// RecordQuery adds one query duration
func (m *requestMonitor) RecordQuery(name string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record(m.queries, name, d)
}

// Snapshot returns detailed and aggregated figures
func (m *requestMonitor) Snapshot() TimingSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Reset clears all figures and returns the ones discarded
func (m *requestMonitor) Reset() TimingSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev := m.snapshotLocked()
	m.resetLocked()
	return prev
}

func (m *requestMonitor) snapshotLocked() TimingSnapshot {
	snap := TimingSnapshot{
		Endpoints:        make(map[string]TimingStats, len(m.endpoints)),
		Queries:          make(map[string]TimingStats, len(m.queries)),
		CollectingSince:  m.since.UTC().Format(time.RFC3339),
		CollectedSeconds: int64(m.now().Sub(m.since) / time.Second),
	}
	var all timingAccumulator
	for name, acc := range m.endpoints {
		snap.Endpoints[name] = acc.stats()
		all.merge(acc)
	}
	snap.AllEndpoints = all.stats()

	all = timingAccumulator{}
	for name, acc := range m.queries {
		snap.Queries[name] = acc.stats()
		all.merge(acc)
	}
	snap.AllQueries = all.stats()
	return snap
}

// unmatchedRoute is the endpoint name for requests no route pattern matched
const unmatchedRoute = "unmatched"

// timingMiddleware records the latency of every routed request under its
// chi route pattern. Requests without a pattern share one bucket.
func timingMiddleware(m *requestMonitor) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)

			route := unmatchedRoute
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			m.RecordEndpoint(route, time.Since(start))
		})
	}
}
