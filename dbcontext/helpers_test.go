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

package dbcontext

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/crudrepo/database"
	"github.com/tomoncle/crudrepo/repository"
	"github.com/uptrace/bun"
)

type testProduct struct {
	bun.BaseModel `bun:"table:test_products"`

	ID    int64   `bun:"id,pk,autoincrement"`
	Name  string  `bun:"name,notnull"`
	Price float64 `bun:"price"`
}

func productKey(p *testProduct) int64 { return p.ID }

type testTag struct {
	bun.BaseModel `bun:"table:test_tags"`

	ID    uuid.UUID `bun:"id,pk,type:varchar(36)"`
	Label string    `bun:"label,notnull,unique"`
}

func tagKey(t *testTag) uuid.UUID { return t.ID }

// openDB returns a private in-memory sqlite database with the test tables.
func openDB(t *testing.T) *bun.DB {
	t.Helper()
	ctx := context.Background()

	cfg := database.DefaultConnectionConfig()
	cfg.Type = "sqlite"
	cfg.DBName = fmt.Sprintf("file:dbcontext_%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	cfg.HealthCheckInterval = 0
	cfg.SlowQueryTime = 0

	manager := database.NewDatabaseManager(cfg)
	require.NoError(t, manager.Connect(ctx))
	t.Cleanup(func() { _ = manager.Disconnect() })

	db := manager.GetDB()
	err := database.NewMigrationManager(db, nil).CreateTables(ctx, (*testProduct)(nil), (*testTag)(nil))
	require.NoError(t, err)
	return db
}

func openContext(t *testing.T, db *bun.DB) *Context {
	t.Helper()
	c, err := New(db)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func productRepo(c *Context, opts ...repository.Option) repository.Interface[testProduct, int64] {
	return repository.NewRepository[testProduct, int64](NewSet(c, productKey), c, opts...)
}

// seedProducts commits products with ids 1..n priced as given.
func seedProducts(t *testing.T, db *bun.DB, prices ...float64) {
	t.Helper()
	c := openContext(t, db)
	set := NewSet(c, productKey)
	for i, price := range prices {
		id := int64(i + 1)
		require.NoError(t, set.Add(context.Background(), &testProduct{ID: id, Name: fmt.Sprintf("p%d", id), Price: price}))
	}
	require.NoError(t, c.Commit(context.Background()))
}

func productIDs(items []*testProduct) []int64 {
	ids := make([]int64, 0, len(items))
	for _, p := range items {
		ids = append(ids, p.ID)
	}
	return ids
}
