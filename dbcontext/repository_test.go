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
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/crudrepo/repository"
	"github.com/tomoncle/crudrepo/types"
)

func TestRepositoryAddWithAutoSaveIsDurable(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	repo := productRepo(openContext(t, db))
	require.True(t, repo.AutoSave())

	p := &testProduct{Name: "kettle", Price: 25}
	added, err := repo.Add(ctx, p)
	require.NoError(t, err)
	assert.Same(t, p, added)
	assert.NotZero(t, p.ID)

	found, err := productRepo(openContext(t, db)).FindByID(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "kettle", found.Name)
}

func TestRepositoryAddWithoutAutoSaveNeedsSaveChanges(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	repo := productRepo(openContext(t, db), repository.WithAutoSave(false))

	_, err := repo.Add(ctx, &testProduct{ID: 7, Name: "toaster"})
	require.NoError(t, err)

	found, err := productRepo(openContext(t, db)).FindByID(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, found)

	require.NoError(t, repo.SaveChanges(ctx))
	found, err = productRepo(openContext(t, db)).FindByID(ctx, 7)
	require.NoError(t, err)
	assert.NotNil(t, found)
}

func TestRepositoryFindAllPaged(t *testing.T) {
	db := openDB(t)
	seedProducts(t, db, 1, 2, 3, 4, 5)
	repo := productRepo(openContext(t, db))
	ctx := context.Background()

	cases := []struct {
		name   string
		paging types.PagingDetail
		want   []int64
	}{
		{"first page", types.NewPagingDetail(2, 1), []int64{1, 2}},
		{"second page", types.NewPagingDetail(2, 2), []int64{3, 4}},
		{"partial last page", types.NewPagingDetail(2, 3), []int64{5}},
		{"past the end", types.NewPagingDetail(2, 4), []int64{}},
		{"page zero is page one", types.NewPagingDetail(2, 0), []int64{1, 2}},
		{"offset overflow", types.NewPagingDetail(2, math.MaxInt), []int64{}},
		{"offset beyond int32", types.NewPagingDetail(2, 1<<31+2), []int64{}},
		{"size beyond int32", types.NewPagingDetail(1<<32+1, 1), []int64{1, 2, 3, 4, 5}},
		{"zero size", types.NewPagingDetail(0, 1), []int64{}},
		{"negative page", types.NewPagingDetail(2, -1), []int64{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			items, err := repo.FindAllPaged(ctx, tc.paging)
			require.NoError(t, err)
			assert.NotNil(t, items)
			assert.Equal(t, tc.want, productIDs(items))
		})
	}
}

func TestRepositoryFilter(t *testing.T) {
	db := openDB(t)
	seedProducts(t, db, 10, 30, 15, 50)
	repo := productRepo(openContext(t, db))
	ctx := context.Background()

	expensive := repo.Filter(func(p *testProduct) bool { return p.Price > 20 })
	items, err := expensive.ToList(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 4}, productIDs(items))

	first, err := expensive.Take(1).First(ctx)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, int64(2), first.ID)

	none, err := repo.Filter(func(p *testProduct) bool { return p.Price > 100 }).ToList(ctx)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestRepositoryUpdateAndDelete(t *testing.T) {
	db := openDB(t)
	seedProducts(t, db, 10, 20)
	repo := productRepo(openContext(t, db))
	ctx := context.Background()

	p, err := repo.FindByID(ctx, 1)
	require.NoError(t, err)
	p.Price = 99
	updated, err := repo.Update(ctx, p)
	require.NoError(t, err)
	assert.Same(t, p, updated)

	require.NoError(t, repo.Delete(ctx, &testProduct{ID: 2}))

	all, err := productRepo(openContext(t, db)).FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 99.0, all[0].Price)

	_, err = repo.Update(ctx, &testProduct{ID: 2, Name: "deleted"})
	assert.ErrorIs(t, err, ErrStaleEntity)
}

func TestRepositoryAsync(t *testing.T) {
	db := openDB(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	repo := productRepo(openContext(t, db), repository.WithAutoSave(false))

	added, err := repo.AddAsync(ctx, &testProduct{ID: 1, Name: "a", Price: 1}).Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), added.ID)

	_, err = repo.SaveChangesAsync(ctx).Await(ctx)
	require.NoError(t, err)

	found, err := repo.FindByIDAsync(ctx, 1).Await(ctx)
	require.NoError(t, err)
	require.NotNil(t, found)

	found.Price = 2
	_, err = repo.UpdateAsync(ctx, found).Await(ctx)
	require.NoError(t, err)
	_, err = repo.SaveChangesAsync(ctx).Await(ctx)
	require.NoError(t, err)

	page, err := repo.FindAllPagedAsync(ctx, types.NewPagingDetail(10, 1)).Await(ctx)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, 2.0, page[0].Price)

	_, err = repo.DeleteAsync(ctx, found).Await(ctx)
	require.NoError(t, err)
	_, err = repo.SaveChangesAsync(ctx).Await(ctx)
	require.NoError(t, err)

	all, err := repo.FindAllAsync(ctx).Await(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
