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
	"iter"
	"slices"
)

// Query is a lazily evaluated, composable view over a Sequence. Each builder
// method returns a new Query and leaves the receiver untouched; stages apply
// in the order they were added. Nothing is read until a terminal method runs.
type Query[T any] struct {
	seq Sequence[T]
}

// NewQuery wraps a sequence in a Query.
func NewQuery[T any](seq Sequence[T]) *Query[T] {
	if seq == nil {
		seq = func(context.Context, func(*T) bool) error { return nil }
	}
	return &Query[T]{seq: seq}
}

// Where keeps only the entities matching predicate.
func (q *Query[T]) Where(predicate Predicate[T]) *Query[T] {
	src := q.seq
	return &Query[T]{seq: func(ctx context.Context, yield func(*T) bool) error {
		return src(ctx, func(e *T) bool {
			if !predicate(e) {
				return true
			}
			return yield(e)
		})
	}}
}

// Skip drops the first n entities.
func (q *Query[T]) Skip(n int) *Query[T] {
	if n <= 0 {
		return q
	}
	src := q.seq
	return &Query[T]{seq: func(ctx context.Context, yield func(*T) bool) error {
		skipped := 0
		return src(ctx, func(e *T) bool {
			if skipped < n {
				skipped++
				return true
			}
			return yield(e)
		})
	}}
}

// Take stops after n entities.
func (q *Query[T]) Take(n int) *Query[T] {
	src := q.seq
	return &Query[T]{seq: func(ctx context.Context, yield func(*T) bool) error {
		if n <= 0 {
			return nil
		}
		taken := 0
		return src(ctx, func(e *T) bool {
			taken++
			if !yield(e) {
				return false
			}
			return taken < n
		})
	}}
}

// OrderBy sorts by cmp, keeping the encounter order of equal elements. It
// has to read the whole upstream sequence before yielding anything.
func (q *Query[T]) OrderBy(cmp func(a, b *T) int) *Query[T] {
	src := q.seq
	return &Query[T]{seq: func(ctx context.Context, yield func(*T) bool) error {
		items, err := collect(ctx, src)
		if err != nil {
			return err
		}
		slices.SortStableFunc(items, cmp)
		for _, e := range items {
			if !yield(e) {
				return nil
			}
		}
		return nil
	}}
}

// ToList materializes the query. The result is never nil.
func (q *Query[T]) ToList(ctx context.Context) ([]*T, error) {
	return collect(ctx, q.seq)
}

// First returns the first entity, or nil when the query is empty.
func (q *Query[T]) First(ctx context.Context) (*T, error) {
	var first *T
	err := q.seq(ctx, func(e *T) bool {
		first = e
		return false
	})
	if err != nil {
		return nil, err
	}
	return first, nil
}

// Count returns the number of entities the query yields.
func (q *Query[T]) Count(ctx context.Context) (int, error) {
	n := 0
	err := q.seq(ctx, func(*T) bool {
		n++
		return true
	})
	return n, err
}

// Any reports whether the query yields at least one entity.
func (q *Query[T]) Any(ctx context.Context) (bool, error) {
	e, err := q.First(ctx)
	return e != nil, err
}

// All adapts the query to a range-over-func iterator. A source failure is
// delivered as a final (nil, err) pair.
func (q *Query[T]) All(ctx context.Context) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		stopped := false
		err := q.seq(ctx, func(e *T) bool {
			if !yield(e, nil) {
				stopped = true
				return false
			}
			return true
		})
		if err != nil && !stopped {
			yield(nil, err)
		}
	}
}

func collect[T any](ctx context.Context, seq Sequence[T]) ([]*T, error) {
	items := make([]*T, 0)
	err := seq(ctx, func(e *T) bool {
		items = append(items, e)
		return true
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// SliceSequence yields the given entities in order, checking ctx between
// elements. It backs in-memory entity sets.
func SliceSequence[T any](items []*T) Sequence[T] {
	return func(ctx context.Context, yield func(*T) bool) error {
		for _, e := range items {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !yield(e) {
				return nil
			}
		}
		return nil
	}
}
