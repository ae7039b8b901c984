/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/extra/bundebug"
)

const healthPingTimeout = 5 * time.Second

type defaultDatabaseManager struct {
	config *ConnectionConfig

	mu     sync.RWMutex
	logger Logger
	db     *bun.DB

	monitorMu   sync.Mutex
	stopMonitor context.CancelFunc
	monitorDone chan struct{}
}

// NewDatabaseManager returns an AbstractDatabaseManager backed by bun. A nil
// config falls back to DefaultConnectionConfig.
func NewDatabaseManager(config *ConnectionConfig) AbstractDatabaseManager {
	if config == nil {
		config = DefaultConnectionConfig()
	}
	return &defaultDatabaseManager{config: config, logger: GetLogger()}
}

// Connect opens and pings the pool, then starts the health monitor when
// HealthCheckInterval is set. Connecting twice is a no-op.
func (dm *defaultDatabaseManager) Connect(ctx context.Context) error {
	dm.mu.Lock()
	err := dm.open(ctx)
	dm.mu.Unlock()
	if err != nil {
		return err
	}
	dm.startMonitor()
	return nil
}

// open requires dm.mu.
func (dm *defaultDatabaseManager) open(ctx context.Context) error {
	if dm.db != nil {
		return nil
	}
	db, err := openBun(dm.config)
	if err != nil {
		return fmt.Errorf("failed to create database connection: %w", err)
	}
	applyPool(db.DB, dm.config)
	dm.installHooks(db)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout(dm.config))
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return fmt.Errorf("database connection test failed: %w", err)
	}

	dm.db = db
	dm.logger.Info("Database connected successfully", "type", dm.config.Type, "host", dm.config.Host, "dbname", dm.config.DBName)
	return nil
}

func (dm *defaultDatabaseManager) installHooks(db *bun.DB) {
	if dm.config.EnableQueryLog {
		db.AddQueryHook(bundebug.NewQueryHook(
			bundebug.WithVerbose(true),
			bundebug.FromEnv("BUNDEBUG"),
		))
	} else {
		db.AddQueryHook(NewQueryHook(false))
	}
	if dm.config.SlowQueryTime > 0 {
		db.AddQueryHook(&SlowQueryHook{SlowTime: dm.config.SlowQueryTime, Logger: dm.logger})
	}
	if dm.config.EnableTracing {
		db.AddQueryHook(NewTracingHook(db.Dialect().Name().String()))
	}
}

// close requires dm.mu.
func (dm *defaultDatabaseManager) close() error {
	if dm.db == nil {
		return nil
	}
	err := dm.db.Close()
	dm.db = nil
	if err != nil {
		dm.logger.Error("Failed to close database connection", "error", err)
	} else {
		dm.logger.Info("Database connection closed")
	}
	return err
}

// Disconnect stops the health monitor and closes the pool.
func (dm *defaultDatabaseManager) Disconnect() error {
	dm.stopMonitoring()
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return dm.close()
}

// Reconnect replaces the pool with a freshly opened one.
func (dm *defaultDatabaseManager) Reconnect(ctx context.Context) error {
	if err := dm.reconnect(ctx); err != nil {
		return err
	}
	dm.startMonitor()
	return nil
}

func (dm *defaultDatabaseManager) reconnect(ctx context.Context) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.logger.Info("Attempting to reconnect to the database")
	if err := dm.close(); err != nil {
		dm.logger.Warn("Error disconnecting existing connection", "error", err)
	}
	return dm.open(ctx)
}

func (dm *defaultDatabaseManager) startMonitor() {
	if dm.config.HealthCheckInterval <= 0 {
		return
	}
	dm.monitorMu.Lock()
	defer dm.monitorMu.Unlock()
	if dm.stopMonitor != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	dm.stopMonitor, dm.monitorDone = cancel, done
	go func() {
		defer close(done)
		dm.monitor(ctx)
	}()
}

func (dm *defaultDatabaseManager) stopMonitoring() {
	dm.monitorMu.Lock()
	cancel, done := dm.stopMonitor, dm.monitorDone
	dm.stopMonitor, dm.monitorDone = nil, nil
	dm.monitorMu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

// monitor pings every HealthCheckInterval. With EnableReconnect it reopens an
// unhealthy pool, giving up after MaxReconnectTries consecutive failures until
// the database is healthy again.
func (dm *defaultDatabaseManager) monitor(ctx context.Context) {
	ticker := time.NewTicker(dm.config.HealthCheckInterval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		status := dm.HealthCheck(ctx)
		if ctx.Err() != nil {
			return
		}
		if status.Healthy {
			failures = 0
			continue
		}
		if !dm.config.EnableReconnect || failures > dm.config.MaxReconnectTries {
			continue
		}
		if failures == dm.config.MaxReconnectTries {
			dm.logger.Error("Max reconnect attempts reached, stopping", "tries", failures, "last_error", status.LastError)
			failures++
			continue
		}

		failures++
		dm.logger.Info("Starting database reconnect", "try", failures, "last_error", status.LastError)
		select {
		case <-ctx.Done():
			return
		case <-time.After(dm.config.ReconnectInterval):
		}

		reconnectCtx, cancel := context.WithTimeout(ctx, connectTimeout(dm.config))
		err := dm.reconnect(reconnectCtx)
		cancel()
		if err != nil {
			dm.logger.Error("Reconnect failed", "error", err, "try", failures)
			continue
		}
		dm.logger.Info("Reconnect succeeded")
		failures = 0
	}
}

func (dm *defaultDatabaseManager) Ping(ctx context.Context) error {
	db := dm.GetDB()
	if db == nil {
		return fmt.Errorf("database not connected")
	}
	return db.PingContext(ctx)
}

func (dm *defaultDatabaseManager) GetDB() *bun.DB {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.db
}

func (dm *defaultDatabaseManager) GetSQLDB() *sql.DB {
	db := dm.GetDB()
	if db == nil {
		return nil
	}
	return db.DB
}

func (dm *defaultDatabaseManager) HealthCheck(ctx context.Context) *HealthStatus {
	status := &HealthStatus{LastCheckTime: time.Now()}
	db := dm.GetDB()
	if db == nil {
		status.LastError = "Database not initialized"
		return status
	}

	pingCtx, cancel := context.WithTimeout(ctx, healthPingTimeout)
	defer cancel()
	err := db.PingContext(pingCtx)
	status.ResponseTime = time.Since(status.LastCheckTime)
	if err != nil {
		status.LastError = err.Error()
	} else {
		status.Healthy = true
		status.Connected = true
	}

	stats := db.Stats()
	status.ActiveConns = stats.InUse
	status.IdleConns = stats.Idle
	status.MaxOpenConns = stats.MaxOpenConnections
	return status
}

func (dm *defaultDatabaseManager) GetStats() *DBStats {
	db := dm.GetDB()
	if db == nil {
		return &DBStats{}
	}
	return statsFrom(db.Stats())
}

func (dm *defaultDatabaseManager) RunMigrations(ctx context.Context) error {
	db := dm.GetDB()
	if db == nil {
		return fmt.Errorf("database not initialized")
	}
	return NewMigrationManager(db, dm.logger).RunMigrations(ctx)
}

// SetLogger replaces the logger; nil is ignored. Hooks of an open pool keep
// the logger they were installed with.
func (dm *defaultDatabaseManager) SetLogger(logger Logger) {
	if logger == nil {
		return
	}
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.logger = logger
}
