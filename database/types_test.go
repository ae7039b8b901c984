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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name string, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigKeepsDefaults(t *testing.T) {
	path := writeFile(t, "db.yaml", `
connection:
  type: sqlite
  dbname: inventory
  slow_query_time: 500ms
  enable_tracing: true
migrate:
  enable_migrate_on_startup: true
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.ConnectionConfig.Type)
	assert.Equal(t, "inventory", cfg.ConnectionConfig.DBName)
	assert.Equal(t, 500*time.Millisecond, cfg.ConnectionConfig.SlowQueryTime)
	assert.True(t, cfg.ConnectionConfig.EnableTracing)
	assert.True(t, cfg.MigrateConfig.EnableMigrateOnStartup)

	defaults := DefaultConnectionConfig()
	assert.Equal(t, defaults.MaxOpenConns, cfg.ConnectionConfig.MaxOpenConns)
	assert.Equal(t, defaults.ConnMaxLifetime, cfg.ConnectionConfig.ConnMaxLifetime)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")

	path := writeFile(t, "bad.yaml", "connection: [not, a, map")
	_, err = LoadConfig(path)
	assert.ErrorContains(t, err, "failed to parse config file")
}
