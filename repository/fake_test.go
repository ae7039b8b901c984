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
	"errors"
	"sort"
	"sync"
)

type product struct {
	ID    int
	Name  string
	Price float64
}

type opKind int

const (
	opAdd opKind = iota
	opUpdate
	opRemove
)

type stagedOp struct {
	kind   opKind
	entity product
}

// memStore is the durable side shared by every fakeSet "context" opened on it.
type memStore struct {
	mu   sync.Mutex
	rows map[int]product
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[int]product)}
}

func (s *memStore) sorted() []*product {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*product, 0, len(s.rows))
	for _, p := range s.rows {
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// fakeSet is one unit of work over a memStore. It records every call so tests
// can assert which collaborator methods ran.
type fakeSet struct {
	store     *memStore
	mu        sync.Mutex
	staged    []stagedOp
	calls     []string
	commitErr error
}

var errMissing = errors.New("fake: no row to update")

func newFakeSet(store *memStore) *fakeSet {
	return &fakeSet{store: store}
}

func (f *fakeSet) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeSet) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeSet) Find(_ context.Context, key int) (*product, error) {
	f.record("Find")
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	p, ok := f.store.rows[key]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (f *fakeSet) FindAll(_ context.Context) ([]*product, error) {
	f.record("FindAll")
	return f.store.sorted(), nil
}

func (f *fakeSet) Slice(_ context.Context, offset int, limit int) ([]*product, error) {
	f.record("Slice")
	all := f.store.sorted()
	if offset >= len(all) {
		return []*product{}, nil
	}
	end := len(all)
	if limit < end-offset {
		end = offset + limit
	}
	return all[offset:end], nil
}

func (f *fakeSet) stage(kind opKind, call string, entity *product) error {
	f.record(call)
	if entity == nil {
		return errors.New("fake: nil entity")
	}
	f.mu.Lock()
	f.staged = append(f.staged, stagedOp{kind: kind, entity: *entity})
	f.mu.Unlock()
	return nil
}

func (f *fakeSet) Add(_ context.Context, entity *product) error {
	return f.stage(opAdd, "Add", entity)
}

func (f *fakeSet) Update(_ context.Context, entity *product) error {
	return f.stage(opUpdate, "Update", entity)
}

func (f *fakeSet) Remove(_ context.Context, entity *product) error {
	return f.stage(opRemove, "Remove", entity)
}

func (f *fakeSet) Query(predicate Predicate[product]) Sequence[product] {
	f.record("Query")
	return func(ctx context.Context, yield func(*product) bool) error {
		return SliceSequence(f.store.sorted())(ctx, func(p *product) bool {
			if !predicate(p) {
				return true
			}
			return yield(p)
		})
	}
}

func (f *fakeSet) Commit(_ context.Context) error {
	f.record("Commit")
	if f.commitErr != nil {
		return f.commitErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	for _, op := range f.staged {
		switch op.kind {
		case opAdd:
			f.store.rows[op.entity.ID] = op.entity
		case opUpdate:
			if _, ok := f.store.rows[op.entity.ID]; !ok {
				return errMissing
			}
			f.store.rows[op.entity.ID] = op.entity
		case opRemove:
			delete(f.store.rows, op.entity.ID)
		}
	}
	f.staged = nil
	return nil
}

var (
	_ EntitySet[product, int] = (*fakeSet)(nil)
	_ UnitOfWork              = (*fakeSet)(nil)
)
