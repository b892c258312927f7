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

package pidctrl

import (
	"coolrig/pkg/logger"
	"math"
)

// Regulator is a per-cycle PID regulator. It has no notion of time: Next is
// called exactly once per control cycle, so the integral is a plain sum of
// errors and the derivative a first difference.
//
// The output is not clamped; callers map it onto their own output range.
type Regulator struct {
	Prop, Inte, Deri float64

	intLow, intHigh       float64
	hasIntLow, hasIntHigh bool

	integral float64
	lastErr  float64
	haveLast bool

	log *logger.Logger
}

// Next feeds one error sample and returns the regulator output.
func (r *Regulator) Next(err float64) float64 {
	r.integral = r.clampIntegral(r.integral + err)

	deriv := 0.0
	if r.haveLast {
		deriv = err - r.lastErr
	}
	r.lastErr = err
	r.haveLast = true

	output := r.Prop*err + r.Inte*r.integral + r.Deri*deriv

	r.log.Debug("err=%.2f, int=%.2f, deriv=%.2f, output=%.2f", err, r.integral, deriv, output)
	return output
}

// Reset clears the integral and forgets the previous error.
func (r *Regulator) Reset() {
	r.integral = 0
	r.lastErr = 0
	r.haveLast = false
}

// Integral returns the current (clamped) integral accumulator.
func (r *Regulator) Integral() float64 {
	return r.integral
}

func (r *Regulator) clampIntegral(v float64) float64 {
	if r.hasIntLow {
		v = math.Max(r.intLow, v)
	}
	if r.hasIntHigh {
		v = math.Min(r.intHigh, v)
	}
	return v
}

// --- Fluent "With" setters ---

func New(prop, inte, deri float64) *Regulator {
	return &Regulator{
		Prop: prop,
		Inte: inte,
		Deri: deri,
		log:  logger.New("PID"),
	}
}

func (r *Regulator) WithName(name string) *Regulator {
	r.log = logger.New("PID " + name)
	return r
}

func (r *Regulator) WithIntegralLimits(low, high float64) *Regulator {
	return r.WithIntegralLow(low).WithIntegralHigh(high)
}

func (r *Regulator) WithIntegralLow(low float64) *Regulator {
	r.intLow = low
	r.hasIntLow = true
	r.integral = r.clampIntegral(r.integral)
	return r
}

func (r *Regulator) WithIntegralHigh(high float64) *Regulator {
	r.intHigh = high
	r.hasIntHigh = true
	r.integral = r.clampIntegral(r.integral)
	return r
}
