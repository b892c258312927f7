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
	"context"
	"encoding/binary"
	"fmt"
	"math"
)

// ReadFloat reads a configured register and returns its scaled value.
func (c *Client) ReadFloat(ctx context.Context, name string) (float64, error) {
	regDef, ok := c.config.Registers[name]
	if !ok {
		return 0, fmt.Errorf("register %q not configured", name)
	}

	nregisters, err := registerCount(regDef.DataType)
	if err != nil {
		return 0, fmt.Errorf("register %q: %w", name, err)
	}

	raw, err := c.ReadRegisters(ctx, regDef.Address, nregisters)
	if err != nil {
		return 0, fmt.Errorf("register read failed for %s: %w", name, err)
	}
	return Decode(regDef, raw)
}

// Decode converts raw big-endian register bytes into a scaled value.
func Decode(regDef RegisterDef, raw []byte) (float64, error) {
	nregisters, err := registerCount(regDef.DataType)
	if err != nil {
		return 0, err
	}
	if len(raw) < int(nregisters*2) {
		return 0, fmt.Errorf("got %d bytes, want %d", len(raw), nregisters*2)
	}

	var val float64
	switch regDef.DataType {
	case "float32":
		val = float64(math.Float32frombits(binary.BigEndian.Uint32(raw)))
	case "int16":
		val = float64(int16(binary.BigEndian.Uint16(raw)))
	case "uint16":
		val = float64(binary.BigEndian.Uint16(raw))
	}

	if regDef.Scale != 0 {
		val = val*regDef.Scale + regDef.Offset
	}
	return val, nil
}

func registerCount(dt string) (uint16, error) {
	switch dt {
	case "uint16", "int16":
		return 1, nil
	case "float32":
		return 2, nil
	default:
		return 0, fmt.Errorf("unsupported data type %q", dt)
	}
}
