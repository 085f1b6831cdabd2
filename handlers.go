package main

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Cepat-Kilat-Teknologi/device-heartbeat/internal/devicecache"
)

// app carries everything the handlers share
type app struct {
	cfg        *Config
	cache      *devicecache.Cache
	keyMode    devicecache.KeyMode
	db         database     // nil when the database is disabled
	monitor    *requestMonitor
	cpu        *cpuMonitor
	persister  *workerPool  // nil unless heartbeats are persisted
	instanceID string
	startedAt  time.Time

	healthCount atomic.Uint64
	hbdCount    atomic.Uint64
}

func newApp(cfg *Config, cache *devicecache.Cache, db database) *app {
	return &app{
		cfg:        cfg,
		cache:      cache,
		keyMode:    devicecache.KeyMode(cfg.Cache.KeyMode),
		db:         db,
		monitor:    newRequestMonitor(),
		cpu:        newCPUMonitor(CPUSampleInterval),
		instanceID: uuid.NewString(),
		startedAt:  time.Now(),
	}
}

// healthCheckHandler reports liveness and database connectivity
//
//	@Summary		Service health
//	@Description	Reports service status and database connectivity. Never touches the device cache.
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	Response{data=HealthResponse}
//	@Router			/health [get]
func (a *app) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	count := a.healthCount.Add(1)

	// Ping the database when enabled
	dbStatus := checkDatabase(r.Context(), a.db, a.monitor)

	// Degrade health if the database is unreachable
	status := HealthHealthy
	if dbStatus == DBDisconnected {
		status = HealthDegraded
	}

	sendResponse(w, http.StatusOK, StatusOK, HealthResponse{
		Status:         status,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		ServiceName:    a.cfg.App.Name,
		Version:        a.cfg.App.Version,
		InstanceID:     a.instanceID,
		HealthCount:    count,
		UserAgent:      r.UserAgent(),
		HeadersCount:   len(r.Header),
		DatabaseStatus: dbStatus,
	})
}

// heartbeatHandler validates a device heartbeat and records it in the device cache
//
//	@Summary		Device heartbeat
//	@Description	Records a heartbeat for a device. Parameter names are case-insensitive.
//	@Tags			heartbeat
//	@Produce		json
//	@Param			id	query	int	true	"Device id (positive)"
//	@Param			mac	query	string	true	"Device MAC address"
//	@Param			ip	query	string	true	"Device IP address"
//	@Param			lp	query	int	false	"Last ping"
//	@Param			ts	query	int	false	"Unix timestamp between 2000 and 2100"
//	@Success		200	{object}	Response{data=HeartbeatResponse}
//	@Failure		400	{object}	Response
//	@Router			/hbd [get]
func (a *app) heartbeatHandler(w http.ResponseWriter, r *http.Request) {
	// Parse and validate query parameters
	params, err := parseHeartbeatParams(r.URL.Query(), a.keyMode)
	if err != nil {
		logger.Warn("Heartbeat rejected",
			zap.String("client_ip", GetClientIP(r)),
			zap.Error(err))
		sendError(w, http.StatusBadRequest, StatusBadRequest, err.Error())
		return
	}

	// Record heartbeat in device cache
	deviceID := strconv.FormatInt(params.ID, 10)
	entry := a.cache.Heartbeat(params.Key, deviceID, params.IP, params.LastPing)
	total := a.hbdCount.Add(1)

	// Queue for persistence when enabled
	if a.persister != nil {
		a.persister.Submit(heartbeatRecord{
			DeviceID:   params.ID,
			MAC:        params.MAC,
			IP:         params.IP,
			LastPing:   params.LastPing,
			ReportedAt: time.Unix(entry.LastSeen, 0).UTC(),
		})
	}

	logger.Debug("Heartbeat processed",
		zap.String("key", params.Key.String()),
		zap.Uint64("device_heartbeats", entry.HeartbeatCount),
		zap.Uint64("total_heartbeats", total))

	// Build response
	sendResponse(w, http.StatusOK, StatusOK, HeartbeatResponse{
		Status:  "success",
		Message: MsgHeartbeatOK,
		ReceivedData: HeartbeatData{
			HeartbeatParams: params,
			TimestampISO:    timestampISO(params.Timestamp),
		},
		HeartbeatCount: entry.HeartbeatCount,
		ProcessedAt:    time.Now().UTC().Format(time.RFC3339),
	})
}

// statsHandler returns counters, timings, CPU usage and device cache figures
//
//	@Summary		Service statistics
//	@Description	Request and query timings, CPU usage and device cache figures.
//	@Tags			stats
//	@Produce		json
//	@Success		200	{object}	Response{data=StatsResponse}
//	@Router			/stats [get]
func (a *app) statsHandler(w http.ResponseWriter, _ *http.Request) {
	sendResponse(w, http.StatusOK, StatusOK, StatsResponse{
		ServiceName:   a.cfg.App.Name,
		Version:       a.cfg.App.Version,
		InstanceID:    a.instanceID,
		UptimeSeconds: int64(time.Since(a.startedAt) / time.Second),
		HealthCount:   a.healthCount.Load(),
		HeartbeatHits: a.hbdCount.Load(),
		CPUUsage:      a.cpu.Usage(),
		Timing:        a.monitor.Snapshot(),
		DeviceCache:   a.cache.Stats(),
	})
}

// statsResetHandler clears timing statistics
//
//	@Summary		Reset statistics
//	@Description	Clears timing statistics and returns the discarded figures.
//	@Tags			stats
//	@Produce		json
//	@Security		ApiKeyAuth
//	@Success		200	{object}	Response{data=StatsResetResponse}
//	@Failure		401	{object}	Response
//	@Router			/stats/reset [post]
func (a *app) statsResetHandler(w http.ResponseWriter, r *http.Request) {
	// Swap out the current figures
	prev := a.monitor.Reset()

	// Audit log for stats reset
	AuditLog(AuditEventStatsReset, GetClientIP(r), "timing statistics cleared")
	sendResponse(w, http.StatusOK, StatusOK, StatsResetResponse{
		Message:  MsgStatsReset,
		Previous: prev,
	})
}
