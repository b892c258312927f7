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
	"coolrig/pkg/modbus"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

type SerialConfig struct {
	Device   string        `yaml:"device"`
	BaudRate int           `yaml:"baud_rate"`
	Timeout  time.Duration `yaml:"timeout"`

	// bounded reopen attempts after an I/O error, 0 disables reconnecting
	ReconnectAttempts int           `yaml:"reconnect_attempts"`
	ReconnectBackoff  time.Duration `yaml:"reconnect_backoff"`
}

type CoolantConfig struct {
	// Setpoint is in raw NTC units: lower readings are hotter.
	Setpoint float64 `yaml:"setpoint"`
	Window   int     `yaml:"window"`

	// readings above Sentinel mean the thermistor is disconnected
	Sentinel int `yaml:"sentinel"`
}

// AxisConfig holds the regulator tuning for one actuator.
type AxisConfig struct {
	Prop *float64 `yaml:"prop"`
	Inte float64  `yaml:"inte"`
	Deri float64  `yaml:"deri"`

	// nil means unbounded on that side
	IntLowClip  *float64 `yaml:"int_low_clip"`
	IntHighClip *float64 `yaml:"int_high_clip"`

	// Floor is added to the regulator output before clamping to [0,255].
	Floor float64 `yaml:"floor"`
}

type FanConfig struct {
	AxisConfig `yaml:",inline"`

	// CriticalFactor scales each degree above a component's critical
	// temperature into extra fan output.
	CriticalFactor float64 `yaml:"critical_factor"`
}

type DeadbandConfig struct {
	Low  float64 `yaml:"low"`
	High float64 `yaml:"high"`
}

type BoostConfig struct {
	Margin     float64 `yaml:"margin"`
	Floor      float64 `yaml:"floor"`
	HoldCycles int     `yaml:"hold_cycles"`
}

type PumpConfig struct {
	AxisConfig `yaml:",inline"`

	Deadband *DeadbandConfig `yaml:"deadband"`
	Boost    BoostConfig     `yaml:"boost"`
}

// Component is one monitored heat source. The order of Config.Components is
// the order of every temperature sample.
type Component struct {
	Name     string  `yaml:"name"`
	Target   float64 `yaml:"target"`
	Critical float64 `yaml:"critical"`
	Fallback float64 `yaml:"fallback"`

	// readings outside [PlausibleMin, PlausibleMax] count as a failed read
	PlausibleMin float64 `yaml:"plausible_min"`
	PlausibleMax float64 `yaml:"plausible_max"`
}

const (
	SourceHwmon   = "hwmon"
	SourceNvidia  = "nvidia"
	SourceCommand = "command"
	SourceSysfs   = "sysfs"
	SourceModbus  = "modbus"
	SourceStatic  = "static"
)

// SourceConfig describes one sensor source and the components it feeds, in
// the order its values come back.
type SourceConfig struct {
	Kind       string   `yaml:"kind"`
	Name       string   `yaml:"name"`
	Components []string `yaml:"components"`

	// hwmon: sensor keys (exact or prefix); the hottest match wins
	Keys []string `yaml:"keys"`
	// command: shell command printing one value per line
	Command string `yaml:"command"`
	// sysfs: file with degrees or milli-degrees
	Path string `yaml:"path"`
	// modbus: register names from the modbus section, one per component
	Registers []string `yaml:"registers"`
	// static: fixed values, one per component
	Values []float64 `yaml:"values"`

	Timeout time.Duration `yaml:"timeout"`
}

type ReportConfig struct {
	// Interval is the number of cycles between diagnostic lines.
	Interval int  `yaml:"interval"`
	Debug    bool `yaml:"debug"`
}

type Config struct {
	Serial     SerialConfig   `yaml:"serial"`
	Coolant    CoolantConfig  `yaml:"coolant"`
	Fan        FanConfig      `yaml:"fan"`
	Pump       PumpConfig     `yaml:"pump"`
	Components []Component    `yaml:"components"`
	Sources    []SourceConfig `yaml:"sources"`
	Modbus     *modbus.Config `yaml:"modbus"`
	Report     ReportConfig   `yaml:"report"`
}

// ReportEvery returns the number of cycles between diagnostic lines.
func (c *Config) ReportEvery() int {
	if c.Report.Debug || c.Report.Interval < 1 {
		return 1
	}
	return c.Report.Interval
}

// ComponentIndex returns the sample slot of the named component.
func (c *Config) ComponentIndex(name string) (int, bool) {
	for i, comp := range c.Components {
		if comp.Name == name {
			return i, true
		}
	}
	return 0, false
}

func ptr(v float64) *float64 {
	return &v
}

// Default returns the tuning the rig shipped with: a CPU, an NVIDIA GPU and
// an AMD GPU on a single loop.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Device:           "/dev/ttyUSB0",
			BaudRate:         9600,
			Timeout:          3 * time.Second,
			ReconnectBackoff: time.Second,
		},
		Coolant: CoolantConfig{
			Setpoint: 188,
			Window:   4,
			Sentinel: 65000,
		},
		Fan: FanConfig{
			AxisConfig: AxisConfig{
				Prop:        ptr(6.0),
				Inte:        0.08,
				IntLowClip:  ptr(-100),
				IntHighClip: ptr(2700),
				Floor:       90,
			},
			CriticalFactor: 25,
		},
		Pump: PumpConfig{
			AxisConfig: AxisConfig{
				Prop:        ptr(4.0),
				Inte:        0.04,
				IntLowClip:  ptr(-20),
				IntHighClip: ptr(5000),
				Floor:       80,
			},
			Deadband: &DeadbandConfig{Low: 120, High: 200},
			Boost:    BoostConfig{Margin: 2, HoldCycles: 5},
		},
		Components: []Component{
			{Name: "cpu", Target: 70, Critical: 70, Fallback: 80, PlausibleMin: -20, PlausibleMax: 150},
			{Name: "gpu_nvidia", Target: 52, Critical: 60, Fallback: 80, PlausibleMin: -20, PlausibleMax: 150},
			{Name: "gpu_amd", Target: 77, Critical: 85, Fallback: 80, PlausibleMin: -20, PlausibleMax: 150},
		},
		Sources: []SourceConfig{
			{Kind: SourceHwmon, Name: "cpu", Components: []string{"cpu"}, Keys: []string{"coretemp_packageid0", "coretemp"}, Timeout: 2 * time.Second},
			{Kind: SourceNvidia, Name: "nvidia", Components: []string{"gpu_nvidia"}, Timeout: 2 * time.Second},
			{Kind: SourceHwmon, Name: "amdgpu", Components: []string{"gpu_amd"}, Keys: []string{"amdgpu"}, Timeout: 2 * time.Second},
		},
		Report: ReportConfig{Interval: 100},
	}
}

// LoadFile reads a YAML config on top of Default and validates it.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of Default and validates the result. Lists
// (components, sources) replace the defaults rather than merging with them.
func Parse(data []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	for i := range c.Components {
		comp := &c.Components[i]
		if comp.Fallback == 0 {
			comp.Fallback = 80
		}
		if comp.PlausibleMin == 0 && comp.PlausibleMax == 0 {
			comp.PlausibleMin = -20
			comp.PlausibleMax = 150
		}
	}
	for i := range c.Sources {
		src := &c.Sources[i]
		if src.Name == "" {
			src.Name = fmt.Sprintf("%s#%d", src.Kind, i)
		}
		if src.Timeout == 0 {
			src.Timeout = 2 * time.Second
		}
	}
	if c.Modbus != nil {
		if c.Modbus.Port == 0 {
			c.Modbus.Port = 502
		}
		if c.Modbus.Timeout == 0 {
			c.Modbus.Timeout = time.Second
		}
	}
}

func invalid(format string, v ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, v...))
}

// Validate checks everything the control loop relies on, so that a bad
// config fails at startup instead of inside the loop.
func (c *Config) Validate() error {
	if c.Serial.Device == "" {
		return invalid("serial.device is required")
	}
	if c.Serial.BaudRate <= 0 {
		return invalid("serial.baud_rate must be positive")
	}
	if c.Serial.Timeout <= 0 {
		return invalid("serial.timeout must be positive")
	}
	if c.Serial.ReconnectAttempts < 0 {
		return invalid("serial.reconnect_attempts must not be negative")
	}
	if c.Coolant.Window < 1 {
		return invalid("coolant.window must be at least 1")
	}
	if c.Coolant.Sentinel <= 0 {
		return invalid("coolant.sentinel must be positive")
	}

	for name, axis := range map[string]AxisConfig{"fan": c.Fan.AxisConfig, "pump": c.Pump.AxisConfig} {
		if axis.Prop == nil {
			return invalid("%s.prop is required", name)
		}
		if axis.IntLowClip != nil && axis.IntHighClip != nil && *axis.IntLowClip > *axis.IntHighClip {
			return invalid("%s.int_low_clip is above int_high_clip", name)
		}
		if axis.Floor < 0 || axis.Floor > 255 {
			return invalid("%s.floor must be within [0,255]", name)
		}
	}
	if c.Fan.CriticalFactor < 0 {
		return invalid("fan.critical_factor must not be negative")
	}
	if db := c.Pump.Deadband; db != nil {
		if db.Low >= db.High {
			return invalid("pump.deadband.low must be below high")
		}
		if db.Low < 0 || db.High > 255 {
			return invalid("pump.deadband must lie within [0,255]")
		}
	}
	if c.Pump.Boost.Floor < 0 || c.Pump.Boost.Floor > 255 {
		return invalid("pump.boost.floor must be within [0,255]")
	}
	if c.Pump.Boost.HoldCycles < 0 {
		return invalid("pump.boost.hold_cycles must not be negative")
	}
	if c.Report.Interval < 0 {
		return invalid("report.interval must not be negative")
	}

	if len(c.Components) == 0 {
		return invalid("at least one component is required")
	}
	seen := make(map[string]bool, len(c.Components))
	for _, comp := range c.Components {
		if comp.Name == "" {
			return invalid("component without a name")
		}
		if seen[comp.Name] {
			return invalid("component %q listed twice", comp.Name)
		}
		seen[comp.Name] = true
		if comp.PlausibleMin >= comp.PlausibleMax {
			return invalid("component %q: plausible_min must be below plausible_max", comp.Name)
		}
	}

	fed := make(map[string]string, len(c.Components))
	for _, src := range c.Sources {
		if err := c.validateSource(src); err != nil {
			return err
		}
		for _, name := range src.Components {
			if !seen[name] {
				return invalid("source %q feeds unknown component %q", src.Name, name)
			}
			if other, ok := fed[name]; ok {
				return invalid("component %q is fed by both %q and %q", name, other, src.Name)
			}
			fed[name] = src.Name
		}
	}
	for _, comp := range c.Components {
		if _, ok := fed[comp.Name]; !ok {
			return invalid("component %q has no source", comp.Name)
		}
	}
	return nil
}

func (c *Config) validateSource(src SourceConfig) error {
	if len(src.Components) == 0 {
		return invalid("source %q feeds no component", src.Name)
	}
	switch src.Kind {
	case SourceHwmon:
		if len(src.Keys) == 0 {
			return invalid("hwmon source %q needs keys", src.Name)
		}
		if len(src.Components) != 1 {
			return invalid("hwmon source %q must feed exactly one component", src.Name)
		}
	case SourceSysfs:
		if src.Path == "" {
			return invalid("sysfs source %q needs a path", src.Name)
		}
		if len(src.Components) != 1 {
			return invalid("sysfs source %q must feed exactly one component", src.Name)
		}
	case SourceCommand:
		if src.Command == "" {
			return invalid("command source %q needs a command", src.Name)
		}
	case SourceNvidia:
	case SourceModbus:
		if c.Modbus == nil || c.Modbus.Host == "" {
			return invalid("modbus source %q needs a modbus section with a host", src.Name)
		}
		if len(src.Registers) != len(src.Components) {
			return invalid("modbus source %q needs one register per component", src.Name)
		}
		for _, reg := range src.Registers {
			if _, ok := c.Modbus.Registers[reg]; !ok {
				return invalid("modbus source %q: register %q not configured", src.Name, reg)
			}
		}
	case SourceStatic:
		if len(src.Values) != len(src.Components) {
			return invalid("static source %q needs one value per component", src.Name)
		}
	default:
		return invalid("source %q has unknown kind %q", src.Name, src.Kind)
	}
	return nil
}
