// Copyright (C) 2025 Josh Simonot
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerPrefixAndLevels(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stdout)

	log := New("Test")
	log.Info("value=%d", 42)
	log.Warn("careful")

	out := buf.String()
	assert.Contains(t, out, "[Test] INFO: value=42")
	assert.Contains(t, out, "[Test] WARN: careful")
}

func TestDebugToggle(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stdout)
	defer EnableDebug(false)

	log := New("Dbg")

	EnableDebug(false)
	log.Debug("hidden")
	assert.NotContains(t, buf.String(), "hidden")

	EnableDebug(true)
	require.True(t, IsDebug())
	log.Debug("shown")
	assert.Contains(t, buf.String(), "[Dbg] DEBUG: shown")
}

func TestFatalPanics(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stdout)

	assert.PanicsWithValue(t, "boom 1", func() {
		New("F").Fatal("boom %d", 1)
	})
	assert.Contains(t, buf.String(), "FATAL")
}
