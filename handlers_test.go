package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Cepat-Kilat-Teknologi/device-heartbeat/internal/devicecache"
)

type envelope struct {
	Code   int             `json:"code"`
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error"`
}

func decodeEnvelope[T any](t *testing.T, body []byte) (envelope, T) {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(body, &env))
	var data T
	if len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, &data))
	}
	return env, data
}

func hbdURL(params map[string]string) string {
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	return "/hbd?" + q.Encode()
}

// --- Health Handler Tests ---

func TestHealthCheckHandler(t *testing.T) {
	t.Run("Database disabled", func(t *testing.T) {
		a, router := setupTestServer(t, nil, nil)
		rr := doRequest(router, http.MethodGet, "/health", map[string]string{"User-Agent": "probe/1.0"})
		assert.Equal(t, http.StatusOK, rr.Code)

		env, health := decodeEnvelope[HealthResponse](t, rr.Body.Bytes())
		assert.Equal(t, StatusOK, env.Status)
		assert.Equal(t, HealthHealthy, health.Status)
		assert.Equal(t, DBDisabled, health.DatabaseStatus)
		assert.Equal(t, "probe/1.0", health.UserAgent)
		assert.Equal(t, a.instanceID, health.InstanceID)
		assert.Equal(t, uint64(1), health.HealthCount)
		assert.Equal(t, 0, a.cache.Len())
	})

	t.Run("Database connected", func(t *testing.T) {
		db := &mockDB{}
		db.On("GetContext", mock.Anything, mock.Anything, healthQuery).Return(nil)
		a, router := setupTestServer(t, nil, db)

		rr := doRequest(router, http.MethodGet, "/health", nil)
		_, health := decodeEnvelope[HealthResponse](t, rr.Body.Bytes())
		assert.Equal(t, HealthHealthy, health.Status)
		assert.Equal(t, DBConnected, health.DatabaseStatus)
		assert.Equal(t, uint64(1), a.monitor.Snapshot().Queries[QueryHealthCheck].Count)
		db.AssertExpectations(t)
	})

	t.Run("Database unreachable reports degraded", func(t *testing.T) {
		db := &mockDB{}
		db.On("GetContext", mock.Anything, mock.Anything, healthQuery).Return(errors.New("connection refused"))
		_, router := setupTestServer(t, nil, db)

		rr := doRequest(router, http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusOK, rr.Code)
		_, health := decodeEnvelope[HealthResponse](t, rr.Body.Bytes())
		assert.Equal(t, HealthDegraded, health.Status)
		assert.Equal(t, DBDisconnected, health.DatabaseStatus)
	})

	t.Run("Health count increments", func(t *testing.T) {
		_, router := setupTestServer(t, nil, nil)
		doRequest(router, http.MethodGet, "/health", nil)
		rr := doRequest(router, http.MethodGet, "/health", nil)
		_, health := decodeEnvelope[HealthResponse](t, rr.Body.Bytes())
		assert.Equal(t, uint64(2), health.HealthCount)
	})
}

// --- Heartbeat Handler Tests ---

func TestHeartbeatHandler_Accepted(t *testing.T) {
	a, router := setupTestServer(t, nil, nil)

	rr := doRequest(router, http.MethodGet, hbdURL(map[string]string{
		"id": "42", "mac": "00:11:22:33:44:55", "ip": mockIP, "lp": "17", "ts": "1700000000",
	}), nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	env, hb := decodeEnvelope[HeartbeatResponse](t, rr.Body.Bytes())
	assert.Equal(t, http.StatusOK, env.Code)
	assert.Equal(t, "success", hb.Status)
	assert.Equal(t, MsgHeartbeatOK, hb.Message)
	assert.Equal(t, int64(42), hb.ReceivedData.ID)
	assert.Equal(t, mockIP, hb.ReceivedData.IP)
	require.NotNil(t, hb.ReceivedData.LastPing)
	assert.Equal(t, int32(17), *hb.ReceivedData.LastPing)
	assert.Equal(t, "2023-11-14T22:13:20Z", hb.ReceivedData.TimestampISO)
	assert.Equal(t, uint64(1), hb.HeartbeatCount)
	_, err := time.Parse(time.RFC3339, hb.ProcessedAt)
	assert.NoError(t, err)

	entry, ok := a.cache.Get(mustKey(t, mockMAC))
	require.True(t, ok)
	assert.Equal(t, "42", entry.DeviceID)
	assert.Equal(t, mockIP, entry.IP)
	assert.Equal(t, uint64(1), entry.HeartbeatCount)

	t.Run("Repeat heartbeat increments the count", func(t *testing.T) {
		rr := doRequest(router, http.MethodGet, hbdURL(map[string]string{
			"id": "42", "mac": "00-11-22-33-44-55", "ip": "10.0.0.9",
		}), nil)
		require.Equal(t, http.StatusOK, rr.Code)
		_, hb := decodeEnvelope[HeartbeatResponse](t, rr.Body.Bytes())
		assert.Equal(t, uint64(2), hb.HeartbeatCount)
		assert.Empty(t, hb.ReceivedData.TimestampISO)

		entry, _ := a.cache.Get(mustKey(t, mockMAC))
		assert.Equal(t, "10.0.0.9", entry.IP)
		assert.Equal(t, 1, a.cache.Len())
		assert.Equal(t, uint64(2), a.hbdCount.Load())
	})
}

func TestHeartbeatHandler_ParameterAliases(t *testing.T) {
	a, router := setupTestServer(t, nil, nil)
	rr := doRequest(router, http.MethodGet, "/hbd?ID=3&Mac=AA:BB:CC:DD:EE:FF&IP=10.1.1.1&LP=5&TS=946684800", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	_, ok := a.cache.Get(mustKey(t, "aa:bb:cc:dd:ee:ff"))
	assert.True(t, ok)
}

func TestHeartbeatHandler_Rejected(t *testing.T) {
	valid := map[string]string{"id": "1", "mac": mockMAC, "ip": mockIP}
	with := func(k, v string) map[string]string {
		p := map[string]string{}
		for kk, vv := range valid {
			p[kk] = vv
		}
		if v == "" {
			delete(p, k)
		} else {
			p[k] = v
		}
		return p
	}

	tests := []struct {
		name    string
		params  map[string]string
		message string
	}{
		{"Missing id", with("id", ""), ErrInvalidDeviceID},
		{"Zero id", with("id", "0"), ErrInvalidDeviceID},
		{"Negative id", with("id", "-5"), ErrInvalidDeviceID},
		{"Non numeric id", with("id", "abc"), ErrInvalidDeviceID},
		{"Missing mac", with("mac", ""), ErrInvalidMAC},
		{"Malformed mac", with("mac", "not-a-mac"), ErrInvalidMAC},
		{"Missing ip", with("ip", ""), ErrInvalidIP},
		{"Non numeric lp", with("lp", "fast"), ErrInvalidLastPing},
		{"Timestamp before 2000", with("ts", "946684799"), ErrInvalidTimestamp},
		{"Timestamp after 2100", with("ts", "4102444801"), ErrInvalidTimestamp},
		{"Non numeric ts", with("ts", "yesterday"), ErrInvalidTimestamp},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a, router := setupTestServer(t, nil, nil)
			rr := doRequest(router, http.MethodGet, hbdURL(tc.params), nil)
			assert.Equal(t, http.StatusBadRequest, rr.Code)

			env, _ := decodeEnvelope[struct{}](t, rr.Body.Bytes())
			assert.Equal(t, StatusBadRequest, env.Status)
			assert.Contains(t, env.Error, tc.message)
			assert.Equal(t, 0, a.cache.Len())
			assert.Equal(t, uint64(0), a.hbdCount.Load())
		})
	}
}

func TestHeartbeatHandler_DeviceIDKeyMode(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.KeyMode = string(devicecache.KeyModeDeviceID)
	a, router := setupTestServer(t, cfg, nil)

	rr := doRequest(router, http.MethodGet, hbdURL(map[string]string{
		"id": "77", "mac": "ONU-77", "ip": mockIP,
	}), nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	entry, ok := a.cache.Get(devicecache.Key("77"))
	require.True(t, ok)
	assert.Equal(t, "77", entry.DeviceID)

	rr = doRequest(router, http.MethodGet, hbdURL(map[string]string{
		"id": "77", "mac": "this-mac-is-far-too-long", "ip": mockIP,
	}), nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHeartbeatHandler_Persistence(t *testing.T) {
	a, router := setupTestServer(t, nil, nil)

	records := make(chan heartbeatRecord, 1)
	a.persister = newWorkerPool(1, 4, time.Second, func(_ context.Context, rec heartbeatRecord) error {
		records <- rec
		return nil
	})
	a.persister.Start()
	t.Cleanup(a.persister.Stop)

	rr := doRequest(router, http.MethodGet, hbdURL(map[string]string{
		"id": "9", "mac": mockMAC, "ip": mockIP, "lp": "4",
	}), nil)
	require.Equal(t, http.StatusOK, rr.Code)

	select {
	case rec := <-records:
		assert.Equal(t, int64(9), rec.DeviceID)
		assert.Equal(t, mockMAC, rec.MAC)
		assert.Equal(t, mockIP, rec.IP)
		require.NotNil(t, rec.LastPing)
		assert.Equal(t, int32(4), *rec.LastPing)
		assert.False(t, rec.ReportedAt.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("heartbeat was not handed to the persister")
	}
}

// --- Stats Handler Tests ---

func TestStatsHandler(t *testing.T) {
	a, router := setupTestServer(t, nil, nil)
	doRequest(router, http.MethodGet, "/health", nil)
	doRequest(router, http.MethodGet, hbdURL(map[string]string{"id": "1", "mac": mockMAC, "ip": mockIP}), nil)
	doRequest(router, http.MethodGet, hbdURL(map[string]string{"id": "2", "mac": "00:11:22:33:44:66", "ip": mockIP}), nil)
	a.cpu.store(12.5)

	rr := doRequest(router, http.MethodGet, "/stats", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	_, stats := decodeEnvelope[StatsResponse](t, rr.Body.Bytes())

	assert.Equal(t, DefaultServiceName, stats.ServiceName)
	assert.Equal(t, a.instanceID, stats.InstanceID)
	assert.Equal(t, uint64(1), stats.HealthCount)
	assert.Equal(t, uint64(2), stats.HeartbeatHits)
	assert.InDelta(t, 12.5, stats.CPUUsage, 0.001)
	assert.Equal(t, 2, stats.DeviceCache.TotalEntries)
	assert.Equal(t, 2, stats.DeviceCache.ActiveEntries)
	assert.Equal(t, uint64(2), stats.DeviceCache.TotalHeartbeats)
	assert.Equal(t, uint64(2), stats.Timing.Endpoints["/hbd"].Count)
	assert.Equal(t, uint64(1), stats.Timing.Endpoints["/health"].Count)
	assert.Equal(t, uint64(3), stats.Timing.AllEndpoints.Count)
}

func TestStatsResetHandler(t *testing.T) {
	t.Run("Open when authentication is disabled", func(t *testing.T) {
		a, router := setupTestServer(t, nil, nil)
		doRequest(router, http.MethodGet, "/health", nil)

		rr := doRequest(router, http.MethodPost, "/stats/reset", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		_, reset := decodeEnvelope[StatsResetResponse](t, rr.Body.Bytes())
		assert.Equal(t, MsgStatsReset, reset.Message)
		assert.Equal(t, uint64(1), reset.Previous.Endpoints["/health"].Count)

		// the reset request itself is recorded after the reset
		snap := a.monitor.Snapshot()
		assert.NotContains(t, snap.Endpoints, "/health")
	})

	t.Run("Requires API key when authentication is enabled", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Server.MiddlewareAuth = true
		cfg.Server.AuthKey = mockAPIKey
		_, router := setupTestServer(t, cfg, nil)

		rr := doRequest(router, http.MethodPost, "/stats/reset", nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)

		rr = doRequest(router, http.MethodPost, "/stats/reset", map[string]string{HeaderXAPIKey: "wrong"})
		assert.Equal(t, http.StatusUnauthorized, rr.Code)

		rr = doRequest(router, http.MethodPost, "/stats/reset", map[string]string{HeaderXAPIKey: mockAPIKey})
		assert.Equal(t, http.StatusOK, rr.Code)

		// other endpoints stay open
		rr = doRequest(router, http.MethodGet, "/stats", nil)
		assert.Equal(t, http.StatusOK, rr.Code)
	})
}
