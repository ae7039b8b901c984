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

package crudrepo

import (
	"context"

	"github.com/tomoncle/crudrepo/database"
	"github.com/tomoncle/crudrepo/dbcontext"
	"github.com/tomoncle/crudrepo/repository"
)

// NewRepository returns a repository over the entities of T tracked by c.
// keyOf extracts the key stored in the "id" column; use NewRepositoryWithSet
// for another key column.
func NewRepository[T any, K comparable](c *dbcontext.Context, keyOf func(*T) K, opts ...repository.Option) repository.Interface[T, K] {
	return repository.NewRepository[T, K](dbcontext.NewSet(c, keyOf), c, opts...)
}

// NewRepositoryWithSet returns a repository over set, committing through c.
func NewRepositoryWithSet[T any, K comparable](c *dbcontext.Context, set *dbcontext.Set[T, K], opts ...repository.Option) repository.Interface[T, K] {
	return repository.NewRepository[T, K](set, c, opts...)
}

// WithRepository opens a context on the global database, passes fn a
// repository over it and closes the context when fn returns or panics.
// Changes fn leaves uncommitted are discarded.
func WithRepository[T any, K comparable](
	ctx context.Context,
	keyOf func(*T) K,
	autoSave bool,
	fn func(ctx context.Context, repo repository.Interface[T, K]) error,
) (err error) {
	c, err := dbcontext.New(database.GetDB())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := c.Close(); err == nil {
			err = closeErr
		}
	}()
	return fn(ctx, NewRepository(c, keyOf, repository.WithAutoSave(autoSave)))
}
