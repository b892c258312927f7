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

// Package deadband keeps an actuator output out of a band it should not
// linger in, e.g. the range where a pump motor buzzes.
package deadband

import "math"

// Side is the edge of the band the output was last pushed to.
type Side int

const (
	Unset Side = iota
	Low
	High
)

func (s Side) String() string {
	switch s {
	case Low:
		return "low"
	case High:
		return "high"
	default:
		return "unset"
	}
}

// Shaper pushes values outside (low, high) with hysteresis: once above high
// the output stays at or above high until the input drops to low or below,
// and once at or below low it stays there until the input exceeds high.
type Shaper struct {
	low, high float64
	side      Side
}

// New panics if low >= high; bounds come from validated configuration.
func New(low, high float64) *Shaper {
	if low >= high {
		panic("deadband: low must be below high")
	}
	return &Shaper{low: low, high: high}
}

// Transform returns value moved out of the band toward the current side.
func (s *Shaper) Transform(value float64) float64 {
	if (s.side == High && value > s.low) || value > s.high {
		s.side = High
		return math.Max(s.high, value)
	}
	s.side = Low
	return math.Min(s.low, value)
}

// Side reports the side chosen by the last Transform.
func (s *Shaper) Side() Side {
	return s.side
}

// Reset forgets the side, as if no value had been transformed.
func (s *Shaper) Reset() {
	s.side = Unset
}
