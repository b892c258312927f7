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

package sysmon

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shirou/gopsutil/v3/host"
)

// Reading is one sensor chip temperature as reported by the kernel hwmon
// drivers, e.g. "coretemp_packageid0" or "amdgpu_edge".
type Reading struct {
	Key         string
	Temperature float64
	High        float64
	Critical    float64
}

// Temperatures returns all chip temperatures. gopsutil reports per-sensor
// failures as warnings alongside the readings it did get; those are only an
// error when nothing could be read at all.
func Temperatures(ctx context.Context) ([]Reading, error) {
	temps, err := host.SensorsTemperaturesWithContext(ctx)
	if len(temps) == 0 {
		if err == nil {
			err = errors.New("no temperature sensors found")
		}
		return nil, fmt.Errorf("read sensors: %w", err)
	}

	readings := make([]Reading, 0, len(temps))
	for _, t := range temps {
		readings = append(readings, Reading{
			Key:         t.SensorKey,
			Temperature: t.Temperature,
			High:        t.High,
			Critical:    t.Critical,
		})
	}
	return readings, nil
}

// Hottest returns the highest temperature among readings whose key equals
// or starts with one of keys. Components such as CPUs expose several zones;
// the hottest one is what the cooling has to handle.
func Hottest(readings []Reading, keys []string) (float64, error) {
	found := false
	hottest := 0.0
	for _, r := range readings {
		if !matchesAny(r.Key, keys) {
			continue
		}
		if !found || r.Temperature > hottest {
			hottest = r.Temperature
			found = true
		}
	}
	if !found {
		return 0, fmt.Errorf("no sensor matching %v", keys)
	}
	return hottest, nil
}

func matchesAny(key string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}
