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
	"database/sql"
	"errors"
	"math"

	"github.com/tomoncle/crudrepo/repository"
	"github.com/uptrace/bun"
)

const defaultKeyColumn = "id"

// Set is the entity set of T on a Context. It implements
// repository.EntitySet[T, K].
type Set[T any, K comparable] struct {
	c         *Context
	keyOf     func(*T) K
	keyColumn string
}

var _ repository.UnitOfWork = (*Context)(nil)

type SetOption func(*setOptions)

type setOptions struct {
	keyColumn string
}

// WithKeyColumn names the key column used for lookups and ordering.
func WithKeyColumn(name string) SetOption {
	return func(o *setOptions) {
		if name != "" {
			o.keyColumn = name
		}
	}
}

// NewSet returns the set of T on c. keyOf extracts the entity key, which must
// match the value stored in the key column.
func NewSet[T any, K comparable](c *Context, keyOf func(*T) K, opts ...SetOption) *Set[T, K] {
	o := setOptions{keyColumn: defaultKeyColumn}
	for _, opt := range opts {
		opt(&o)
	}
	return &Set[T, K]{c: c, keyOf: keyOf, keyColumn: o.keyColumn}
}

// Find returns a staged insert or update of key if there is one, nil if its
// deletion is staged, and otherwise the stored row. A missing row is nil, nil.
func (s *Set[T, K]) Find(ctx context.Context, key K) (*T, error) {
	ch, ok, err := s.c.latest(func(ch change) bool {
		staged, same := ch.model.(*T)
		return same && s.keyOf(staged) == key
	})
	if err != nil {
		return nil, err
	}
	if ok {
		if ch.kind == changeDelete {
			return nil, nil
		}
		return ch.model.(*T), nil
	}

	entity := new(T)
	err = s.c.db.NewSelect().
		Model(entity).
		Where("? = ?", bun.Ident(s.keyColumn), key).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entity, nil
}

func (s *Set[T, K]) FindAll(ctx context.Context) ([]*T, error) {
	return s.Slice(ctx, 0, 0)
}

// Slice returns up to limit rows after skipping offset, in key order. A
// non-positive limit returns all remaining rows.
//
// bun renders OFFSET and LIMIT as int32, so larger offsets are past any
// table and larger limits are capped.
func (s *Set[T, K]) Slice(ctx context.Context, offset int, limit int) ([]*T, error) {
	if err := s.c.checkOpen(); err != nil {
		return nil, err
	}
	items := make([]*T, 0)
	if offset > math.MaxInt32 {
		return items, nil
	}
	limit = min(limit, math.MaxInt32)
	q := s.c.db.NewSelect().
		Model(&items).
		OrderExpr("? ASC", bun.Ident(s.keyColumn))
	if offset > 0 {
		q = q.Offset(offset)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return items, nil
}

func (s *Set[T, K]) Add(_ context.Context, entity *T) error {
	return s.stage(changeInsert, entity)
}

func (s *Set[T, K]) Update(_ context.Context, entity *T) error {
	return s.stage(changeUpdate, entity)
}

func (s *Set[T, K]) Remove(_ context.Context, entity *T) error {
	return s.stage(changeDelete, entity)
}

func (s *Set[T, K]) stage(kind changeKind, entity *T) error {
	if entity == nil {
		return ErrNilEntity
	}
	return s.c.stage(kind, entity)
}

// Query streams stored rows in key order and yields those accepted by
// predicate. The row cursor holds a connection until the sequence returns, so
// consumers must not issue queries on a single-connection pool while ranging.
func (s *Set[T, K]) Query(predicate repository.Predicate[T]) repository.Sequence[T] {
	return func(ctx context.Context, yield func(*T) bool) error {
		if err := s.c.checkOpen(); err != nil {
			return err
		}
		rows, err := s.c.db.NewSelect().
			Model((*T)(nil)).
			OrderExpr("? ASC", bun.Ident(s.keyColumn)).
			Rows(ctx)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			entity := new(T)
			if err := s.c.db.ScanRow(ctx, rows, entity); err != nil {
				return err
			}
			if predicate != nil && !predicate(entity) {
				continue
			}
			if !yield(entity) {
				return nil
			}
		}
		return rows.Err()
	}
}
