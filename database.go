package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// database is the subset of *sqlx.DB the service uses
type database interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	Close() error
}

const (
	healthQuery          = "SELECT 1"
	insertHeartbeatQuery = `INSERT INTO heartbeats (device_id, mac_address, ip_address, last_ping, reported_at)
VALUES (?, ?, ?, ?, ?)`
)

// openDatabase opens the MySQL pool (package-level variable for testing).
// sqlx.Open does not dial; connectivity is reported by the health check.
var openDatabase = func(cfg *Config) (database, error) {
	db, err := sqlx.Open("mysql", cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("open mysql pool: %w", err)
	}
	db.SetMaxOpenConns(cfg.Database.PoolSize)
	db.SetMaxIdleConns(cfg.Database.PoolSize)
	db.SetConnMaxIdleTime(cfg.databaseTimeout())
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// checkDatabase runs the health query and records its latency
func checkDatabase(ctx context.Context, db database, m *requestMonitor) string {
	if db == nil {
		return DBDisabled
	}
	ctx, cancel := context.WithTimeout(ctx, HealthQueryTimeout)
	defer cancel()

	start := time.Now()
	var one int
	err := db.GetContext(ctx, &one, healthQuery)
	m.RecordQuery(QueryHealthCheck, time.Since(start))
	if err != nil {
		logger.Warn("Database health check failed", zap.Error(err))
		return DBDisconnected
	}
	return DBConnected
}

// insertHeartbeat persists one accepted heartbeat
func insertHeartbeat(ctx context.Context, db database, m *requestMonitor, rec heartbeatRecord) error {
	start := time.Now()
	var lastPing interface{}
	if rec.LastPing != nil {
		lastPing = *rec.LastPing
	}
	_, err := db.ExecContext(ctx, insertHeartbeatQuery,
		rec.DeviceID, rec.MAC, rec.IP, lastPing, rec.ReportedAt)
	m.RecordQuery(QueryInsertHeartbeat, time.Since(start))
	if err != nil {
		return fmt.Errorf("insert heartbeat for device %d: %w", rec.DeviceID, err)
	}
	return nil
}
