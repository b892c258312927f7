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

package pumpctrl

import (
	"coolrig/pkg/logger"
	"math"
)

// Boost raises the pump output to a floor when the coolant is about to reach
// its setpoint, and keeps it raised for a few cycles after the condition
// clears so the pump does not chatter around the threshold.
type Boost struct {
	margin     float64
	floor      float64
	holdCycles int

	active    bool
	remaining int

	log *logger.Logger
}

// NewBoost creates a boost stage. A floor of zero disables it.
func NewBoost(margin, floor float64, holdCycles int) *Boost {
	if holdCycles < 0 {
		holdCycles = 0
	}
	return &Boost{
		margin:     margin,
		floor:      floor,
		holdCycles: holdCycles,
		log:        logger.New("PumpBoost"),
	}
}

func (b *Boost) Enabled() bool {
	return b.floor > 0
}

// Apply returns the pump output for this cycle. waterErr is
// setpoint - smoothed coolant reading, positive when the coolant is hotter
// than the setpoint.
func (b *Boost) Apply(waterErr, pump float64) float64 {
	if !b.Enabled() {
		return pump
	}

	triggered := waterErr >= -b.margin
	switch {
	case triggered:
		b.remaining = b.holdCycles
	case b.remaining > 0:
		b.remaining--
	default:
		b.setActive(false)
		return pump
	}

	b.setActive(true)
	return math.Max(pump, b.floor)
}

// Active reports whether the last Apply raised the output.
func (b *Boost) Active() bool {
	return b.active
}

func (b *Boost) Reset() {
	b.active = false
	b.remaining = 0
}

func (b *Boost) setActive(on bool) {
	if b.active == on {
		return
	}
	b.active = on
	if on {
		b.log.Debug("coolant within %.1f of setpoint, pump floor %.0f", b.margin, b.floor)
	} else {
		b.log.Debug("boost released")
	}
}
