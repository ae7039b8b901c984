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

// Predicate reports whether an entity belongs to a filtered view.
type Predicate[T any] func(entity *T) bool

// Sequence is a push iterator over entities. It calls yield for each element
// in order and stops as soon as yield returns false. The returned error is
// the source's own failure, never a signal that iteration was stopped early.
type Sequence[T any] func(ctx context.Context, yield func(entity *T) bool) error

// EntitySet is the collection of persisted entities of one type. Mutations
// are staged and only become durable when the owning UnitOfWork commits.
type EntitySet[T any, K comparable] interface {
	// Find returns the entity with the given key, or nil when there is none.
	Find(ctx context.Context, key K) (*T, error)

	// FindAll returns every entity in the set's iteration order.
	FindAll(ctx context.Context) ([]*T, error)

	// Slice returns at most limit entities starting at offset.
	Slice(ctx context.Context, offset int, limit int) ([]*T, error)

	Add(ctx context.Context, entity *T) error

	// Update stages a full replacement of the stored entity.
	Update(ctx context.Context, entity *T) error

	Remove(ctx context.Context, entity *T) error

	// Query returns a lazy sequence of the entities matching predicate.
	Query(predicate Predicate[T]) Sequence[T]
}

// UnitOfWork commits everything staged in an EntitySet.
type UnitOfWork interface {
	Commit(ctx context.Context) error
}

// CrudRepository defines the synchronous CRUD surface for one entity type.
type CrudRepository[T any, K comparable] interface {
	AutoSave() bool

	FindByID(ctx context.Context, id K) (*T, error)

	FindAll(ctx context.Context) ([]*T, error)

	FindAllPaged(ctx context.Context, paging types.PagingDetail) ([]*T, error)

	Filter(predicate Predicate[T]) *Query[T]

	Add(ctx context.Context, entity *T) (*T, error)

	Update(ctx context.Context, entity *T) (*T, error)

	Delete(ctx context.Context, entity *T) error

	SaveChanges(ctx context.Context) error
}

// AsyncRepository mirrors CrudRepository with operations that return
// immediately and complete through a Future.
type AsyncRepository[T any, K comparable] interface {
	FindByIDAsync(ctx context.Context, id K) *Future[*T]
	FindAllAsync(ctx context.Context) *Future[[]*T]
	FindAllPagedAsync(ctx context.Context, paging types.PagingDetail) *Future[[]*T]
	AddAsync(ctx context.Context, entity *T) *Future[*T]
	UpdateAsync(ctx context.Context, entity *T) *Future[*T]
	DeleteAsync(ctx context.Context, entity *T) *Future[struct{}]
	SaveChangesAsync(ctx context.Context) *Future[struct{}]
}

// Interface combines the synchronous and asynchronous surfaces.
type Interface[T any, K comparable] interface {
	CrudRepository[T, K]
	AsyncRepository[T, K]
}
