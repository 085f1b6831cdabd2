package main

import "time"

// Service identity and configuration
const (
	DefaultServiceName    = "device-heartbeat"
	DefaultServiceVersion = "0.1.0"
	EnvPrefix             = "HBD"
	DefaultConfigFile     = "config.toml"
)

// HTTP and timeout configurations
const (
	RequestTimeout           = 60 * time.Second
	HealthQueryTimeout       = 5 * time.Second
	DefaultRateLimitRequests = 100 // requests per window
	DefaultRateLimitWindow   = 60  // seconds
	MaxRateLimiterEntries    = 100000
	CPUSampleInterval        = 2 * time.Second
	PersistTaskTimeout       = 10 * time.Second
)

// Heartbeat timestamp bounds (2000-01-01 .. 2100-01-01, Unix seconds)
const (
	MinHeartbeatTimestamp int64 = 946684800
	MaxHeartbeatTimestamp int64 = 4102444800
)

// Health status values
const (
	HealthHealthy  = "healthy"
	HealthDegraded = "degraded"
	DBConnected    = "connected"
	DBDisconnected = "disconnected"
	DBDisabled     = "disabled"
)

// Response status strings
const (
	StatusOK           = "OK"
	StatusBadRequest   = "Bad Request"
	StatusUnauthorized = "Unauthorized"
	StatusTooMany      = "Too Many Requests"
)

// Error and log messages
const (
	ErrMissingAPIKey    = "Missing API key"
	ErrInvalidAPIKey    = "Invalid API key"
	ErrRateLimited      = "Rate limit exceeded. Please try again later."
	ErrAuthLocked       = "Too many failed authentication attempts. Please try again later."
	ErrInvalidDeviceID  = "id must be a positive integer"
	ErrInvalidMAC       = "mac is not a valid MAC address"
	ErrInvalidIP        = "ip is required"
	ErrInvalidLastPing  = "lp must be an integer"
	ErrInvalidTimestamp = "ts must be a Unix timestamp between 2000-01-01 and 2100-01-01"
	MsgHeartbeatOK      = "Heartbeat data received and processed"
	MsgStatsReset       = "Statistics reset"
)

// Brute force protection for API key authentication
const (
	MaxFailedAuthAttempts = 5
	AuthAttemptWindow     = 5 * time.Minute
	AuthLockoutDuration   = 15 * time.Minute
)

// Audit event types
const (
	AuditEventAuthSuccess = "auth_success"
	AuditEventAuthFailure = "auth_failure"
	AuditEventAuthBlocked = "auth_blocked"
	AuditEventStatsReset  = "stats_reset"
)

// HeaderXAPIKey carries the API key for protected endpoints
const HeaderXAPIKey = "X-API-Key"

// Query names recorded by the timing monitor
const (
	QueryHealthCheck     = "health_check"
	QueryInsertHeartbeat = "insert_heartbeat"
)
