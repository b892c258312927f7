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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, 100, c.ReportEvery())
	for _, comp := range c.Components {
		assert.Less(t, comp.PlausibleMin, comp.PlausibleMax, comp.Name)
	}
}

func TestParseEmptyKeepsDefaults(t *testing.T) {
	c, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coolrig.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
serial:
  device: /dev/ttyACM0
  timeout: 500ms
  reconnect_attempts: 3
coolant:
  setpoint: 193
fan:
  prop: 5.5
  int_high_clip: null
pump:
  deadband:
    low: 110
    high: 190
  boost:
    margin: 3
    floor: 210
    hold_cycles: 4
components:
  - name: cpu
    target: 65
    critical: 75
  - name: gpu
    target: 60
    critical: 80
    fallback: 90
sources:
  - kind: command
    name: gettemp
    components: [cpu, gpu]
    command: ./gettemp/gettemp coretemp.temp1 amdgpu.temp1
report:
  debug: true
`), 0o644))

	c, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyACM0", c.Serial.Device)
	assert.Equal(t, 9600, c.Serial.BaudRate)
	assert.Equal(t, 500*time.Millisecond, c.Serial.Timeout)
	assert.Equal(t, 3, c.Serial.ReconnectAttempts)
	assert.Equal(t, 193.0, c.Coolant.Setpoint)
	assert.Equal(t, 4, c.Coolant.Window)

	require.NotNil(t, c.Fan.Prop)
	assert.Equal(t, 5.5, *c.Fan.Prop)
	assert.Equal(t, 0.08, c.Fan.Inte)
	assert.Nil(t, c.Fan.IntHighClip)
	require.NotNil(t, c.Fan.IntLowClip)
	assert.Equal(t, -100.0, *c.Fan.IntLowClip)

	assert.Equal(t, &DeadbandConfig{Low: 110, High: 190}, c.Pump.Deadband)
	assert.Equal(t, BoostConfig{Margin: 3, Floor: 210, HoldCycles: 4}, c.Pump.Boost)

	require.Len(t, c.Components, 2)
	assert.Equal(t, 80.0, c.Components[0].Fallback)
	assert.Equal(t, 90.0, c.Components[1].Fallback)
	assert.Equal(t, -20.0, c.Components[0].PlausibleMin)
	assert.Equal(t, 150.0, c.Components[0].PlausibleMax)

	require.Len(t, c.Sources, 1)
	assert.Equal(t, 2*time.Second, c.Sources[0].Timeout)

	idx, ok := c.ComponentIndex("gpu")
	assert.True(t, ok)
	assert.Equal(t, 1, idx)

	assert.Equal(t, 1, c.ReportEvery())
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		msg  string
	}{
		{
			name: "missing gain",
			yaml: "pump:\n  prop: null\n",
			msg:  "pump.prop is required",
		},
		{
			name: "inverted clamps",
			yaml: "fan:\n  int_low_clip: 10\n  int_high_clip: -10\n",
			msg:  "int_low_clip is above int_high_clip",
		},
		{
			name: "inverted deadband",
			yaml: "pump:\n  deadband: {low: 200, high: 120}\n",
			msg:  "deadband.low must be below high",
		},
		{
			name: "floor out of range",
			yaml: "fan:\n  floor: 300\n",
			msg:  "fan.floor",
		},
		{
			name: "empty window",
			yaml: "coolant:\n  window: 0\n",
			msg:  "coolant.window",
		},
		{
			name: "component without source",
			yaml: "components:\n  - {name: cpu}\n  - {name: gpu}\nsources:\n  - {kind: static, components: [cpu], values: [50]}\n",
			msg:  `component "gpu" has no source`,
		},
		{
			name: "component fed twice",
			yaml: "components:\n  - {name: cpu}\nsources:\n  - {kind: static, name: a, components: [cpu], values: [50]}\n  - {kind: static, name: b, components: [cpu], values: [50]}\n",
			msg:  `fed by both "a" and "b"`,
		},
		{
			name: "unknown component",
			yaml: "components:\n  - {name: cpu}\nsources:\n  - {kind: static, components: [cpu, gpu], values: [50, 60]}\n",
			msg:  `unknown component "gpu"`,
		},
		{
			name: "static length mismatch",
			yaml: "components:\n  - {name: cpu}\nsources:\n  - {kind: static, components: [cpu], values: [50, 60]}\n",
			msg:  "one value per component",
		},
		{
			name: "modbus without section",
			yaml: "components:\n  - {name: cpu}\nsources:\n  - {kind: modbus, components: [cpu], registers: [t]}\n",
			msg:  "needs a modbus section",
		},
		{
			name: "unknown kind",
			yaml: "components:\n  - {name: cpu}\nsources:\n  - {kind: smoke, components: [cpu]}\n",
			msg:  "unknown kind",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestParseModbusSource(t *testing.T) {
	c, err := Parse([]byte(`
components:
  - {name: ambient, target: 30, critical: 40}
sources:
  - kind: modbus
    components: [ambient]
    registers: [rack_air]
modbus:
  host: 192.168.1.20
  slave_id: 1
  registers:
    rack_air: {address: 12, data_type: int16, scale: 0.1}
`))
	require.NoError(t, err)
	assert.Equal(t, 502, c.Modbus.Port)
	assert.Equal(t, time.Second, c.Modbus.Timeout)
	assert.Equal(t, "192.168.1.20:502", c.Modbus.Addr())
	assert.Equal(t, "modbus#0", c.Sources[0].Name)
}
