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
	"errors"
	"fmt"
	"sync"

	"github.com/tomoncle/crudrepo/database"
	"github.com/uptrace/bun"
)

var (
	ErrContextClosed = errors.New("dbcontext: context is closed")
	ErrNilEntity     = errors.New("dbcontext: entity is nil")
	ErrStaleEntity   = errors.New("dbcontext: no row matched the update")
)

type changeKind int

const (
	changeInsert changeKind = iota
	changeUpdate
	changeDelete
)

func (k changeKind) String() string {
	switch k {
	case changeInsert:
		return "insert"
	case changeUpdate:
		return "update"
	default:
		return "delete"
	}
}

// change is one staged write of the caller's entity pointer. Its key is read
// from the entity on every lookup since inserts may assign it.
type change struct {
	kind  changeKind
	model interface{}
}

func (ch change) apply(ctx context.Context, tx bun.Tx) error {
	switch ch.kind {
	case changeInsert:
		_, err := tx.NewInsert().Model(ch.model).Exec(ctx)
		return err
	case changeUpdate:
		res, err := tx.NewUpdate().Model(ch.model).WherePK().Exec(ctx)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrStaleEntity
		}
		return nil
	default:
		_, err := tx.NewDelete().Model(ch.model).WherePK().Exec(ctx)
		return err
	}
}

// Context is a unit of work over a bun database.
type Context struct {
	db     *bun.DB
	logger database.Logger

	mu      sync.Mutex
	pending []change
	closed  bool
}

type Option func(*Context)

// WithLogger replaces the database package logger.
func WithLogger(logger database.Logger) Option {
	return func(c *Context) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New opens a Context on db.
func New(db *bun.DB, opts ...Option) (*Context, error) {
	if db == nil {
		return nil, fmt.Errorf("dbcontext: database not initialized")
	}
	c := &Context{db: db, logger: database.GetLogger()}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// DB returns the underlying bun database.
func (c *Context) DB() *bun.DB {
	return c.db
}

// Pending reports the number of staged, uncommitted changes.
func (c *Context) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *Context) stage(kind changeKind, model interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrContextClosed
	}
	c.pending = append(c.pending, change{kind: kind, model: model})
	return nil
}

// latest returns the most recent staged change accepted by match.
func (c *Context) latest(match func(change) bool) (change, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return change{}, false, ErrContextClosed
	}
	for i := len(c.pending) - 1; i >= 0; i-- {
		if match(c.pending[i]) {
			return c.pending[i], true, nil
		}
	}
	return change{}, false, nil
}

func (c *Context) checkOpen() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrContextClosed
	}
	return nil
}

// Commit writes all staged changes in staging order inside one transaction.
// On failure nothing is written and the changes stay staged.
func (c *Context) Commit(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrContextClosed
	}
	if len(c.pending) == 0 {
		return nil
	}

	err := c.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, ch := range c.pending {
			if err := ch.apply(ctx, tx); err != nil {
				return fmt.Errorf("%s %T: %w", ch.kind, ch.model, err)
			}
		}
		return nil
	})
	if err != nil {
		c.logger.Debug("Commit failed, changes kept", "changes", len(c.pending), "error", err)
		return err
	}

	c.logger.Debug("Changes committed", "changes", len(c.pending))
	c.pending = nil
	return nil
}

// Close discards uncommitted changes. Any later use returns ErrContextClosed.
// Closing twice is a no-op.
func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if n := len(c.pending); n > 0 {
		c.logger.Debug("Discarding uncommitted changes", "changes", n)
	}
	c.pending = nil
	return nil
}
