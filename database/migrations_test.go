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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type widget struct {
	bun.BaseModel `bun:"table:widgets"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Name string `bun:"name,notnull,unique"`
}

type gadget struct {
	bun.BaseModel `bun:"table:gadgets"`

	ID int64 `bun:"id,pk,autoincrement"`
}

func TestModelRegistryOrdersByPriority(t *testing.T) {
	r := NewModelRegistry()
	r.Register(
		NewModelAdapter((*gadget)(nil), 20),
		NewModelAdapter((*widget)(nil), 10),
	)
	r.Register(NewModelAdapter("tie", 20))

	models := r.Models()
	require.Len(t, models, 3)
	assert.Equal(t, 10, models[0].Priority())
	assert.Equal(t, []interface{}{(*widget)(nil), (*gadget)(nil), "tie"}, r.Instances())
}

func TestRunMigrationsCreatesTablesAndAppliesOnce(t *testing.T) {
	manager := connectMemory(t, memoryConfig(t))
	db := manager.GetDB()
	ctx := context.Background()

	registry := NewModelRegistry()
	registry.Register(NewModelAdapter((*widget)(nil), 0))

	runs := 0
	seed := MigrationItem{
		Version: "002",
		Name:    "seed_widgets",
		Up: func(ctx context.Context, db bun.IDB) error {
			runs++
			_, err := db.NewInsert().Model(&widget{Name: "seed"}).Exec(ctx)
			return err
		},
	}
	extra := MigrationItem{Version: "001", Name: "noop"}

	for range 2 {
		mm := NewMigrationManager(db, GetLogger())
		mm.SetRegistry(registry)
		mm.AddMigration(seed, extra)
		require.NoError(t, mm.RunMigrations(ctx))
	}
	assert.Equal(t, 1, runs)

	count, err := db.NewSelect().Model((*widget)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	applied, err := NewMigrationManager(db, nil).GetAppliedMigrations(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 2)
	assert.Equal(t, "001", applied[0].Version)
	assert.Equal(t, "seed_widgets", applied[1].Name)
}

func TestFailedMigrationIsNotRecorded(t *testing.T) {
	manager := connectMemory(t, memoryConfig(t))
	db := manager.GetDB()
	ctx := context.Background()
	boom := errors.New("boom")

	mm := NewMigrationManager(db, nil)
	mm.SetRegistry(NewModelRegistry())
	mm.AddMigration(MigrationItem{
		Version: "001",
		Up:      func(context.Context, bun.IDB) error { return boom },
	})
	err := mm.RunMigrations(ctx)
	assert.ErrorIs(t, err, boom)

	applied, err := mm.GetAppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestCreateTablesReportsSQLErrors(t *testing.T) {
	manager := connectMemory(t, memoryConfig(t))
	db := manager.GetDB()
	ctx := context.Background()

	mm := NewMigrationManager(db, nil)
	require.NoError(t, mm.CreateTables(ctx, (*widget)(nil)))
	require.NoError(t, mm.CreateTables(ctx, (*widget)(nil)))

	_, err := db.NewInsert().Model(&widget{Name: "a"}).Exec(ctx)
	require.NoError(t, err)
	_, err = db.NewInsert().Model(&widget{Name: "a"}).Exec(ctx)
	is, kind := IsSqlError(err)
	assert.True(t, is)
	assert.Equal(t, DuplicateKeyErr, kind)

	err = db.NewSelect().Model(&gadget{}).Limit(1).Scan(ctx)
	is, kind = IsSqlError(err)
	assert.True(t, is)
	assert.Equal(t, NoTableErr, kind)

	assert.Error(t, NewMigrationManager(nil, nil).CreateTables(ctx, (*widget)(nil)))
}
