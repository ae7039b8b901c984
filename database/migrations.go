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
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/uptrace/bun"
)

var (
	registeredMigrations   []MigrationItem
	registeredMigrationsMu sync.Mutex
)

// Migration is the applied-migration record stored in bun_migrations.
type Migration struct {
	bun.BaseModel `bun:"table:bun_migrations"`

	Version     string    `bun:"version,pk"`
	Name        string    `bun:"name"`
	AppliedAt   time.Time `bun:"applied_at"`
	Description string    `bun:"description"`
}

// MigrationFunc is a migration step executed within a transaction.
type MigrationFunc func(ctx context.Context, db bun.IDB) error

// MigrationItem is one versioned migration. Versions compare as strings.
type MigrationItem struct {
	Version     string
	Name        string
	Description string
	Up          MigrationFunc
}

// RegisterMigration adds items run by every MigrationManager created afterwards.
func RegisterMigration(items ...MigrationItem) {
	registeredMigrationsMu.Lock()
	defer registeredMigrationsMu.Unlock()
	registeredMigrations = append(registeredMigrations, items...)
}

// MigrationManager creates model tables and applies versioned migrations once.
type MigrationManager struct {
	db         *bun.DB
	logger     Logger
	registry   *ModelRegistry
	migrations []MigrationItem
}

// NewMigrationManager returns a manager over the package model registry and
// the migrations registered so far.
func NewMigrationManager(db *bun.DB, logger Logger) *MigrationManager {
	registeredMigrationsMu.Lock()
	items := slices.Clone(registeredMigrations)
	registeredMigrationsMu.Unlock()

	return &MigrationManager{
		db:         db,
		logger:     logger,
		registry:   defaultRegistry,
		migrations: items,
	}
}

// SetRegistry replaces the model registry whose tables RunMigrations creates.
func (mm *MigrationManager) SetRegistry(registry *ModelRegistry) {
	mm.registry = registry
}

// AddMigration appends migrations to this manager only.
func (mm *MigrationManager) AddMigration(items ...MigrationItem) {
	mm.migrations = append(mm.migrations, items...)
}

// CreateTables creates a table for each model unless it already exists.
func (mm *MigrationManager) CreateTables(ctx context.Context, models ...interface{}) error {
	if mm.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return createTables(ctx, mm.db, models)
}

func createTables(ctx context.Context, db bun.IDB, models []interface{}) error {
	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table %T: %w", model, err)
		}
	}
	return nil
}

// RunMigrations creates the tables of all registered models, then applies
// pending versioned migrations in ascending version order, each in its own
// transaction together with its bun_migrations record.
func (mm *MigrationManager) RunMigrations(ctx context.Context) error {
	if mm.db == nil {
		return fmt.Errorf("database not initialized")
	}
	if err := mm.CreateTables(ctx, (*Migration)(nil)); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	if mm.registry != nil {
		if err := mm.CreateTables(ctx, mm.registry.Instances()...); err != nil {
			return err
		}
	}

	items := slices.Clone(mm.migrations)
	slices.SortStableFunc(items, func(a, b MigrationItem) int {
		return strings.Compare(a.Version, b.Version)
	})
	for _, item := range items {
		if err := mm.runMigration(ctx, item); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", item.Version, err)
		}
	}

	if mm.logger != nil {
		mm.logger.Info("Database migrations completed", "versions", len(items))
	}
	return nil
}

func (mm *MigrationManager) runMigration(ctx context.Context, item MigrationItem) error {
	applied, err := mm.db.NewSelect().
		Model((*Migration)(nil)).
		Where("version = ?", item.Version).
		Exists(ctx)
	if err != nil {
		return err
	}
	if applied {
		return nil
	}

	err = mm.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if item.Up != nil {
			if err := item.Up(ctx, tx); err != nil {
				return err
			}
		}
		_, err := tx.NewInsert().Model(&Migration{
			Version:     item.Version,
			Name:        item.Name,
			AppliedAt:   time.Now(),
			Description: item.Description,
		}).Exec(ctx)
		return err
	})
	if err != nil {
		return err
	}
	if mm.logger != nil {
		mm.logger.Info("Migration executed successfully", "version", item.Version, "name", item.Name)
	}
	return nil
}

// GetAppliedMigrations returns migration records ordered by version.
func (mm *MigrationManager) GetAppliedMigrations(ctx context.Context) ([]Migration, error) {
	var migrations []Migration
	err := mm.db.NewSelect().
		Model(&migrations).
		Order("version ASC").
		Scan(ctx)
	return migrations, err
}
