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

package sensors

import (
	"context"
	"coolrig/pkg/modbus"
	"coolrig/pkg/shell"
	"coolrig/pkg/sysmon"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// Hwmon reads the hottest kernel sensor matching Keys.
type Hwmon struct {
	Keys []string
}

func (s Hwmon) Read(ctx context.Context) ([]float64, error) {
	readings, err := sysmon.Temperatures(ctx)
	if err != nil {
		return nil, err
	}
	v, err := sysmon.Hottest(readings, s.Keys)
	if err != nil {
		return nil, err
	}
	return []float64{v}, nil
}

// Nvidia asks nvidia-smi for GPU temperatures. It reports the first GPUs
// in nvidia-smi order, one per component it feeds; extra GPUs are ignored.
type Nvidia struct {
	Command string
	GPUs    int
}

const defaultNvidiaCommand = "nvidia-smi -q -d temperature"

func (s Nvidia) Read(ctx context.Context) ([]float64, error) {
	cmd := s.Command
	if cmd == "" {
		cmd = defaultNvidiaCommand
	}
	out, err := shell.Command(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("nvidia-smi: %w", err)
	}
	return parseNvidiaSMI(out, s.GPUs)
}

var nvidiaTempRe = regexp.MustCompile(`(?m)^\s*GPU Current Temp\s*:\s*(\d+(?:\.\d+)?) C`)

// parseNvidiaSMI returns at most n temperatures, all of them if n < 1.
func parseNvidiaSMI(out string, n int) ([]float64, error) {
	var temps []float64
	for _, m := range nvidiaTempRe.FindAllStringSubmatch(out, -1) {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return nil, err
		}
		temps = append(temps, v)
		if len(temps) == n {
			break
		}
	}
	if len(temps) == 0 {
		return nil, errors.New("no temperature info")
	}
	return temps, nil
}

// Command runs a shell command printing one temperature per line.
type Command struct {
	Command string
}

func (s Command) Read(ctx context.Context) ([]float64, error) {
	out, err := shell.CommandPipe(ctx, s.Command)
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, fmt.Errorf("`%s` returned an empty string", s.Command)
	}
	return parseLines(out)
}

func parseLines(out string) ([]float64, error) {
	var vals []float64
	for _, line := range strings.Split(out, "\n") {
		line = strings.Trim(line, " .\t\r")
		if line == "" {
			continue
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", line, err)
		}
		vals = append(vals, v)
	}
	return vals, nil
}

// Sysfs reads a thermal zone or hwmon temp*_input file.
type Sysfs struct {
	Path string
}

func (s Sysfs) Read(ctx context.Context) ([]float64, error) {
	b, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read temp: %w", err)
	}
	v, err := parseSysfsTemp(string(b))
	if err != nil {
		return nil, err
	}
	return []float64{v}, nil
}

// parseSysfsTemp accepts milli-degrees (52345) or whole degrees (52).
func parseSysfsTemp(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("temp empty")
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("parse temp %q: %w", s, err)
	}
	if n > 1000 || n < -1000 {
		return float64(n) / 1000.0, nil
	}
	return float64(n), nil
}

// Modbus reads scaled holding registers from a networked device, e.g. a
// chiller or an ambient probe.
type Modbus struct {
	Client    *modbus.Client
	Registers []string
}

func (s Modbus) Read(ctx context.Context) ([]float64, error) {
	vals := make([]float64, 0, len(s.Registers))
	for _, name := range s.Registers {
		v, err := s.Client.ReadFloat(ctx, name)
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
	}
	return vals, nil
}

// Static always returns the same values. Useful on a bench without the
// real hardware attached.
type Static struct {
	Values []float64
}

func (s Static) Read(context.Context) ([]float64, error) {
	out := make([]float64, len(s.Values))
	copy(out, s.Values)
	return out, nil
}
