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

package controller

import (
	"context"
	"coolrig/internal/config"
	"coolrig/internal/controller/deadband"
	"coolrig/internal/controller/medianfilter"
	"coolrig/internal/controller/pidctrl"
	"coolrig/internal/controller/pumpctrl"
	"coolrig/internal/link"
	"coolrig/internal/sensors"
	"coolrig/pkg/logger"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

// Sampler provides one temperature per configured component.
type Sampler interface {
	Sample(ctx context.Context) sensors.Sample
}

// Cycle records the inputs and outputs of one control cycle.
type Cycle struct {
	Index    uint64
	Raw      uint16
	Smoothed float64
	Broken   bool
	WaterErr float64
	Temps    sensors.Sample

	Surcharge   float64
	TempMaxDiff float64
	Boosted     bool

	Command link.Command
}

// Controller runs the cooling loop: one coolant reading in, one fan/pump
// command out. All regulator, filter and shaper state lives here and is only
// touched from Run's goroutine.
type Controller struct {
	conf    *config.Config
	log     *logger.Logger
	port    io.ReadWriter
	sampler Sampler

	filter  *medianfilter.Filter
	fanPID  *pidctrl.Regulator
	pumpPID *pidctrl.Regulator
	shaper  *deadband.Shaper
	boost   *pumpctrl.Boost

	cycles uint64
	broken bool
}

// New expects a validated config.
func New(conf *config.Config, sampler Sampler, port io.ReadWriter) *Controller {
	s := &Controller{
		conf:    conf,
		log:     logger.New("Controller"),
		port:    port,
		sampler: sampler,
		filter:  medianfilter.New(conf.Coolant.Window, conf.Coolant.Setpoint, conf.Coolant.Sentinel),
		fanPID:  newRegulator("fan", conf.Fan.AxisConfig),
		pumpPID: newRegulator("pump", conf.Pump.AxisConfig),
		boost:   pumpctrl.NewBoost(conf.Pump.Boost.Margin, conf.Pump.Boost.Floor, conf.Pump.Boost.HoldCycles),
	}
	if db := conf.Pump.Deadband; db != nil {
		s.shaper = deadband.New(db.Low, db.High)
	}
	s.Reset()
	return s
}

func newRegulator(name string, axis config.AxisConfig) *pidctrl.Regulator {
	r := pidctrl.New(*axis.Prop, axis.Inte, axis.Deri).WithName(name)
	if axis.IntLowClip != nil {
		r.WithIntegralLow(*axis.IntLowClip)
	}
	if axis.IntHighClip != nil {
		r.WithIntegralHigh(*axis.IntHighClip)
	}
	return r
}

// Reset puts every stateful stage back to its initial state.
func (s *Controller) Reset() {
	s.fanPID.Reset()
	s.pumpPID.Reset()
	s.filter.Reset()
	s.boost.Reset()
	if s.shaper != nil {
		s.shaper.Reset()
	}
	s.cycles = 0
	s.broken = false
}

// Run reads coolant frames and answers each with a command frame until ctx
// is cancelled. Read timeouts are expected and ignored; any other link
// error ends the loop, since running without control of the fan and pump is
// not safe.
func (s *Controller) Run(ctx context.Context) error {
	s.log.Info("Running...")
	defer s.log.Info("Stopped")

	dec := link.NewDecoder(s.port)
	every := uint64(s.conf.ReportEvery())

	for {
		if ctx.Err() != nil {
			return nil
		}

		raw, err := dec.Next()
		if errors.Is(err, link.ErrTimeout) {
			continue
		}
		if err != nil {
			return fmt.Errorf("coolant reading: %w", err)
		}

		c := s.Step(ctx, raw)

		if err := link.WriteCommand(s.port, c.Command); err != nil {
			return fmt.Errorf("fan/pump command: %w", err)
		}

		if c.Index%every == 0 {
			s.report(c)
		}
	}
}

// Step runs one control cycle for a raw coolant reading.
func (s *Controller) Step(ctx context.Context, raw uint16) Cycle {
	c := Cycle{Index: s.cycles, Raw: raw}
	s.cycles++

	c.Smoothed = s.filter.Push(int(raw))
	c.Broken = s.filter.Broken()
	s.trackBroken(c.Broken, raw)

	c.Temps = s.sampler.Sample(ctx)
	comps := s.conf.Components
	if len(c.Temps) != len(comps) {
		s.log.Fatal("sample has %d temperatures for %d components", len(c.Temps), len(comps))
	}

	// lower readings are hotter, so a positive error asks for more cooling
	c.WaterErr = s.conf.Coolant.Setpoint - c.Smoothed

	c.TempMaxDiff = math.Inf(-1)
	for i, comp := range comps {
		t := c.Temps[i]
		c.Surcharge += math.Max(0, (t-comp.Critical)*s.conf.Fan.CriticalFactor)
		c.TempMaxDiff = math.Max(c.TempMaxDiff, t-comp.Target)
	}

	fanRaw := s.fanPID.Next(c.WaterErr) + c.Surcharge
	fan := clamp(math.Max(0, fanRaw)+s.conf.Fan.Floor, 0, 255)

	pumpRaw := s.pumpPID.Next(c.TempMaxDiff)
	pump := clamp(s.conf.Pump.Floor+math.Max(0, pumpRaw), 0, 255)
	pump = s.boost.Apply(c.WaterErr, pump)
	c.Boosted = s.boost.Active()
	if s.shaper != nil {
		pump = s.shaper.Transform(pump)
	}
	pump = clamp(pump, 0, 255)

	c.Command = link.Command{Fan: uint8(fan), Pump: uint8(pump)}

	s.log.Debug("cycle %d: raw=%d smoothed=%.1f err=%.1f surcharge=%.1f maxdiff=%.1f -> %s",
		c.Index, raw, c.Smoothed, c.WaterErr, c.Surcharge, c.TempMaxDiff, c.Command)
	return c
}

func (s *Controller) trackBroken(broken bool, raw uint16) {
	if broken == s.broken {
		return
	}
	s.broken = broken
	if broken {
		s.log.Warn("coolant sensor reads %d, treating as open circuit: full cooling", raw)
	} else {
		s.log.Info("coolant sensor back in range")
	}
}

func (s *Controller) report(c Cycle) {
	temps := make([]string, len(c.Temps))
	for i, t := range c.Temps {
		temps[i] = fmt.Sprintf("%d", int(t))
	}
	s.log.Info("W: %d (%.1f) T: [%s] F: %d P: %d",
		c.Raw, c.Smoothed, strings.Join(temps, " "), c.Command.Fan, c.Command.Pump)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
