package main

import "github.com/Cepat-Kilat-Teknologi/device-heartbeat/internal/devicecache"

// --- API Response Models ---

// Response is the standard envelope of every JSON response
type Response struct {
	Code   int         `json:"code"`            // HTTP status code
	Status string      `json:"status"`          // Status text
	Data   interface{} `json:"data,omitempty"`  // Payload on success
	Error  string      `json:"error,omitempty"` // Error message on failure
}

// HealthResponse reports service and database health
type HealthResponse struct {
	Status         string `json:"status"` // healthy or degraded
	Timestamp      string `json:"timestamp"`
	ServiceName    string `json:"service_name"`
	Version        string `json:"version"`
	InstanceID     string `json:"instance_id"`
	HealthCount    uint64 `json:"health_count"` // health checks served since start
	UserAgent      string `json:"user_agent"`
	HeadersCount   int    `json:"headers_count"`
	DatabaseStatus string `json:"database_status"` // connected, disconnected or disabled
}

// HeartbeatParams are the validated query parameters of a heartbeat
type HeartbeatParams struct {
	ID        int64           `json:"id"`
	MAC       string          `json:"mac"`
	IP        string          `json:"ip"`
	LastPing  *int32          `json:"lp,omitempty"`
	Timestamp *int64          `json:"timestamp,omitempty"`
	Key       devicecache.Key `json:"-"`
}

// HeartbeatData echoes what the device sent
type HeartbeatData struct {
	HeartbeatParams
	TimestampISO string `json:"timestamp_iso,omitempty"`
}

// HeartbeatResponse is returned for an accepted heartbeat
type HeartbeatResponse struct {
	Status         string        `json:"status"`
	Message        string        `json:"message"`
	ReceivedData   HeartbeatData `json:"received_data"`
	HeartbeatCount uint64        `json:"heartbeat_count"`
	ProcessedAt    string        `json:"processed_at"`
}

// TimingStats aggregates latency samples in milliseconds
type TimingStats struct {
	Count   uint64  `json:"count"`
	MinMs   float64 `json:"min_ms"`
	MaxMs   float64 `json:"max_ms"`
	MeanMs  float64 `json:"mean_ms"`
	TotalMs float64 `json:"total_ms"`
}

// TimingSnapshot is the detailed and aggregated view of the timing monitor
type TimingSnapshot struct {
	Endpoints        map[string]TimingStats `json:"endpoints"`
	Queries          map[string]TimingStats `json:"queries"`
	AllEndpoints     TimingStats            `json:"all_endpoints"`
	AllQueries       TimingStats            `json:"all_queries"`
	CollectingSince  string                 `json:"collecting_since"`
	CollectedSeconds int64                  `json:"collected_seconds"`
}

// StatsResponse is returned by the statistics endpoint
type StatsResponse struct {
	ServiceName   string            `json:"service_name"`
	Version       string            `json:"version"`
	InstanceID    string            `json:"instance_id"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	HealthCount   uint64            `json:"health_count"`
	HeartbeatHits uint64            `json:"heartbeat_count"`
	CPUUsage      float64           `json:"cpu_usage_percent"`
	Timing        TimingSnapshot    `json:"timing"`
	DeviceCache   devicecache.Stats `json:"device_cache"`
}

// StatsResetResponse carries the statistics discarded by a reset
type StatsResetResponse struct {
	Message  string         `json:"message"`
	Previous TimingSnapshot `json:"previous"`
}
