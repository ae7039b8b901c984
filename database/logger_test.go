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
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestToFields(t *testing.T) {
	fields := toFields([]interface{}{"version", "001", 42, true, "dangling"})
	assert.Equal(t, logrus.Fields{"version": "001", "42": true, "!BADKEY": "dangling"}, fields)
	assert.Empty(t, toFields(nil))
}

func TestDefaultLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true, DisableColors: true})

	log := NewDefaultLogger(l)
	log.SetLevel(LogLevelWarn)
	log.Info("hidden")
	log.Warn("slow", "table", "widgets")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=slow")
	assert.Contains(t, buf.String(), "table=widgets")
}

func TestGetLoggerIsStable(t *testing.T) {
	assert.Same(t, GetLogger(), GetLogger())
}
