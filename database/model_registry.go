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
	"cmp"
	"slices"
	"sync"
)

var defaultRegistry = NewModelRegistry()

// SQLModel is a table model created by migrations. Instance returns a bun
// model pointer such as (*Product)(nil); tables are created in ascending
// Priority order, ties keep registration order.
type SQLModel interface {
	Instance() interface{}
	Priority() int
}

// ModelRegistry collects the models that RunMigrations creates tables for.
type ModelRegistry struct {
	mu     sync.RWMutex
	models []SQLModel
}

func NewModelRegistry() *ModelRegistry {
	return &ModelRegistry{}
}

func (r *ModelRegistry) Register(models ...SQLModel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models = append(r.models, models...)
}

// Models returns a priority-ordered copy of the registered models.
func (r *ModelRegistry) Models() []SQLModel {
	r.mu.RLock()
	result := slices.Clone(r.models)
	r.mu.RUnlock()

	slices.SortStableFunc(result, func(a, b SQLModel) int {
		return cmp.Compare(a.Priority(), b.Priority())
	})
	return result
}

// Instances returns the model pointers of Models, in the same order.
func (r *ModelRegistry) Instances() []interface{} {
	models := r.Models()
	instances := make([]interface{}, len(models))
	for i, m := range models {
		instances[i] = m.Instance()
	}
	return instances
}

type modelAdapter struct {
	instance interface{}
	priority int
}

// NewModelAdapter wraps a bun model pointer as an SQLModel.
func NewModelAdapter(instance interface{}, priority int) SQLModel {
	return modelAdapter{instance: instance, priority: priority}
}

func (a modelAdapter) Instance() interface{} { return a.instance }
func (a modelAdapter) Priority() int         { return a.priority }

// RegisterModel adds models to the package registry used by InitDB.
func RegisterModel(models ...SQLModel) {
	defaultRegistry.Register(models...)
}

// RegisteredModels returns the package registry's models by priority.
func RegisteredModels() []SQLModel {
	return defaultRegistry.Models()
}

// RegisteredModelInstances returns the package registry's model pointers.
func RegisteredModelInstances() []interface{} {
	return defaultRegistry.Instances()
}
