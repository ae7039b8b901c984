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

package repository

import (
	"context"

	"github.com/tomoncle/crudrepo/types"
)

// Option configures a repository at construction time.
type Option func(*options)

type options struct {
	autoSave bool
}

// WithAutoSave controls whether Add, Update and Delete commit immediately.
// The default is true.
func WithAutoSave(autoSave bool) Option {
	return func(o *options) { o.autoSave = autoSave }
}

type baseRepositoryImpl[T any, K comparable] struct {
	set      EntitySet[T, K]
	uow      UnitOfWork
	autoSave bool
}

// NewRepository returns a generic repository over set, committing through uow.
func NewRepository[T any, K comparable](set EntitySet[T, K], uow UnitOfWork, opts ...Option) Interface[T, K] {
	o := options{autoSave: true}
	for _, opt := range opts {
		opt(&o)
	}
	return &baseRepositoryImpl[T, K]{set: set, uow: uow, autoSave: o.autoSave}
}

func (r *baseRepositoryImpl[T, K]) AutoSave() bool { return r.autoSave }

func (r *baseRepositoryImpl[T, K]) FindByID(ctx context.Context, id K) (*T, error) {
	return r.set.Find(ctx, id)
}

func (r *baseRepositoryImpl[T, K]) FindAll(ctx context.Context) ([]*T, error) {
	return r.set.FindAll(ctx)
}

func (r *baseRepositoryImpl[T, K]) FindAllPaged(ctx context.Context, paging types.PagingDetail) ([]*T, error) {
	if !paging.Valid() {
		return make([]*T, 0), nil
	}
	return r.set.Slice(ctx, paging.Offset(), paging.Limit())
}

func (r *baseRepositoryImpl[T, K]) Filter(predicate Predicate[T]) *Query[T] {
	return NewQuery(r.set.Query(predicate))
}

func (r *baseRepositoryImpl[T, K]) Add(ctx context.Context, entity *T) (*T, error) {
	if err := r.set.Add(ctx, entity); err != nil {
		return nil, err
	}
	if err := r.autoCommit(ctx); err != nil {
		return nil, err
	}
	return entity, nil
}

func (r *baseRepositoryImpl[T, K]) Update(ctx context.Context, entity *T) (*T, error) {
	if err := r.set.Update(ctx, entity); err != nil {
		return nil, err
	}
	if err := r.autoCommit(ctx); err != nil {
		return nil, err
	}
	return entity, nil
}

func (r *baseRepositoryImpl[T, K]) Delete(ctx context.Context, entity *T) error {
	if err := r.set.Remove(ctx, entity); err != nil {
		return err
	}
	return r.autoCommit(ctx)
}

func (r *baseRepositoryImpl[T, K]) SaveChanges(ctx context.Context) error {
	return r.uow.Commit(ctx)
}

func (r *baseRepositoryImpl[T, K]) autoCommit(ctx context.Context) error {
	if !r.autoSave {
		return nil
	}
	return r.uow.Commit(ctx)
}

func (r *baseRepositoryImpl[T, K]) FindByIDAsync(ctx context.Context, id K) *Future[*T] {
	return runAsync(ctx, func(ctx context.Context) (*T, error) { return r.FindByID(ctx, id) })
}

func (r *baseRepositoryImpl[T, K]) FindAllAsync(ctx context.Context) *Future[[]*T] {
	return runAsync(ctx, r.FindAll)
}

func (r *baseRepositoryImpl[T, K]) FindAllPagedAsync(ctx context.Context, paging types.PagingDetail) *Future[[]*T] {
	return runAsync(ctx, func(ctx context.Context) ([]*T, error) { return r.FindAllPaged(ctx, paging) })
}

func (r *baseRepositoryImpl[T, K]) AddAsync(ctx context.Context, entity *T) *Future[*T] {
	return runAsync(ctx, func(ctx context.Context) (*T, error) { return r.Add(ctx, entity) })
}

func (r *baseRepositoryImpl[T, K]) UpdateAsync(ctx context.Context, entity *T) *Future[*T] {
	return runAsync(ctx, func(ctx context.Context) (*T, error) { return r.Update(ctx, entity) })
}

func (r *baseRepositoryImpl[T, K]) DeleteAsync(ctx context.Context, entity *T) *Future[struct{}] {
	return runAsync(ctx, func(ctx context.Context) (struct{}, error) { return struct{}{}, r.Delete(ctx, entity) })
}

func (r *baseRepositoryImpl[T, K]) SaveChangesAsync(ctx context.Context) *Future[struct{}] {
	return runAsync(ctx, func(ctx context.Context) (struct{}, error) { return struct{}{}, r.SaveChanges(ctx) })
}
