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
	"coolrig/internal/config"
	"coolrig/pkg/modbus"
	"fmt"
)

// FromConfig builds the aggregator described by cfg.Sources. The returned
// close func releases network clients.
func FromConfig(cfg *config.Config) (*Aggregator, func(), error) {
	var mbClient *modbus.Client
	closeFn := func() {
		if mbClient != nil {
			mbClient.Close()
		}
	}

	bindings := make([]Binding, 0, len(cfg.Sources))
	for _, sc := range cfg.Sources {
		var src Source
		switch sc.Kind {
		case config.SourceHwmon:
			src = Hwmon{Keys: sc.Keys}
		case config.SourceNvidia:
			src = Nvidia{Command: sc.Command, GPUs: len(sc.Components)}
		case config.SourceCommand:
			src = Command{Command: sc.Command}
		case config.SourceSysfs:
			src = Sysfs{Path: sc.Path}
		case config.SourceModbus:
			if mbClient == nil {
				mbClient = modbus.NewClient(cfg.Modbus)
			}
			src = Modbus{Client: mbClient, Registers: sc.Registers}
		case config.SourceStatic:
			src = Static{Values: sc.Values}
		default:
			closeFn()
			return nil, nil, fmt.Errorf("source %q: unknown kind %q", sc.Name, sc.Kind)
		}

		slots := make([]int, 0, len(sc.Components))
		for _, name := range sc.Components {
			idx, ok := cfg.ComponentIndex(name)
			if !ok {
				closeFn()
				return nil, nil, fmt.Errorf("source %q: unknown component %q", sc.Name, name)
			}
			slots = append(slots, idx)
		}

		bindings = append(bindings, Binding{
			Name:    sc.Name,
			Source:  src,
			Slots:   slots,
			Timeout: sc.Timeout,
		})
	}

	agg, err := New(cfg.Components, bindings)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return agg, closeFn, nil
}
