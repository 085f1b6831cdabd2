package main

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestMySQLDriverRegistered(t *testing.T) {
	assert.Contains(t, sql.Drivers(), "mysql")
}

func TestCheckDatabase(t *testing.T) {
	m := newRequestMonitor()
	assert.Equal(t, DBDisabled, checkDatabase(context.Background(), nil, m))
	assert.Empty(t, m.Snapshot().Queries)

	db := &mockDB{}
	db.On("GetContext", mock.Anything, mock.Anything, healthQuery).Return(nil).Once()
	db.On("GetContext", mock.Anything, mock.Anything, healthQuery).Return(errors.New("timeout")).Once()

	assert.Equal(t, DBConnected, checkDatabase(context.Background(), db, m))
	assert.Equal(t, DBDisconnected, checkDatabase(context.Background(), db, m))
	assert.Equal(t, uint64(2), m.Snapshot().Queries[QueryHealthCheck].Count)
	db.AssertExpectations(t)
}

func TestInsertHeartbeat(t *testing.T) {
	reported := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	lp := int32(12)

	t.Run("Binds every column", func(t *testing.T) {
		m := newRequestMonitor()
		db := &mockDB{}
		db.On("ExecContext", mock.Anything, insertHeartbeatQuery,
			[]interface{}{int64(5), mockMAC, mockIP, int32(12), reported}).Return(nil, nil)

		err := insertHeartbeat(context.Background(), db, m, heartbeatRecord{
			DeviceID: 5, MAC: mockMAC, IP: mockIP, LastPing: &lp, ReportedAt: reported,
		})
		require.NoError(t, err)
		assert.Equal(t, uint64(1), m.Snapshot().Queries[QueryInsertHeartbeat].Count)
		db.AssertExpectations(t)
	})

	t.Run("Missing last ping is NULL", func(t *testing.T) {
		db := &mockDB{}
		db.On("ExecContext", mock.Anything, insertHeartbeatQuery,
			[]interface{}{int64(5), mockMAC, mockIP, nil, reported}).Return(nil, nil)

		err := insertHeartbeat(context.Background(), db, newRequestMonitor(), heartbeatRecord{
			DeviceID: 5, MAC: mockMAC, IP: mockIP, ReportedAt: reported,
		})
		require.NoError(t, err)
		db.AssertExpectations(t)
	})

	t.Run("Errors are wrapped", func(t *testing.T) {
		cause := errors.New("table heartbeats doesn't exist")
		db := &mockDB{}
		db.On("ExecContext", mock.Anything, insertHeartbeatQuery, mock.Anything).Return(nil, cause)

		err := insertHeartbeat(context.Background(), db, newRequestMonitor(), heartbeatRecord{DeviceID: 8})
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "device 8")
	})
}

func TestOpenDatabase_DoesNotDial(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Host = "127.0.0.1"
	cfg.Database.Port = 1

	db, err := openDatabase(cfg)
	require.NoError(t, err)
	require.NotNil(t, db)
	assert.NoError(t, db.Close())
}
