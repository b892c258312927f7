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

package modbus

import (
	"fmt"
	"time"
)

type Config struct {
	Host      string                 `yaml:"host"`
	Port      int                    `yaml:"port"`
	SlaveID   byte                   `yaml:"slave_id"`
	Timeout   time.Duration          `yaml:"timeout"`
	Registers map[string]RegisterDef `yaml:"registers"`
}

type RegisterDef struct {
	Address     uint16  `yaml:"address"`
	DataType    string  `yaml:"data_type"` // "uint16", "int16", "float32"
	Scale       float64 `yaml:"scale"`     // if set, value = raw*scale + offset
	Offset      float64 `yaml:"offset"`
	Description string  `yaml:"description"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
