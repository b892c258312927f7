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
	"coolrig/internal/config"
	"coolrig/pkg/logger"
	"fmt"
	"time"
)

// Sample holds one temperature (°C) per configured component, in the order
// of config.Components.
type Sample []float64

// Source returns one value per component it feeds, or fails.
type Source interface {
	Read(ctx context.Context) ([]float64, error)
}

// SourceFunc adapts a plain function to Source.
type SourceFunc func(ctx context.Context) ([]float64, error)

func (f SourceFunc) Read(ctx context.Context) ([]float64, error) {
	return f(ctx)
}

// Binding attaches a source to the sample slots it fills.
type Binding struct {
	Name    string
	Source  Source
	Slots   []int
	Timeout time.Duration
}

type bindingState struct {
	Binding
	failing  bool
	failures uint64
}

// Aggregator collects a Sample from all sources every control cycle. A
// failed, short or implausible read never reaches the caller: the affected
// slots get the component's fallback temperature instead.
type Aggregator struct {
	components []config.Component
	bindings   []*bindingState
	log        *logger.Logger
}

// New checks that the bindings fill every slot exactly once.
func New(components []config.Component, bindings []Binding) (*Aggregator, error) {
	filled := make([]bool, len(components))
	a := &Aggregator{
		components: components,
		log:        logger.New("Sensors"),
	}
	for _, b := range bindings {
		if b.Source == nil {
			return nil, fmt.Errorf("source %q is nil", b.Name)
		}
		for _, slot := range b.Slots {
			if slot < 0 || slot >= len(components) {
				return nil, fmt.Errorf("source %q: slot %d out of range", b.Name, slot)
			}
			if filled[slot] {
				return nil, fmt.Errorf("source %q: slot %d (%s) already filled", b.Name, slot, components[slot].Name)
			}
			filled[slot] = true
		}
		a.bindings = append(a.bindings, &bindingState{Binding: b})
	}
	for i, ok := range filled {
		if !ok {
			return nil, fmt.Errorf("component %q has no source", components[i].Name)
		}
	}
	return a, nil
}

// Sample queries every source in order and returns one value per component.
func (a *Aggregator) Sample(ctx context.Context) Sample {
	out := make(Sample, len(a.components))
	for _, b := range a.bindings {
		vals, err := a.read(ctx, b)
		if err != nil {
			a.markFailed(b, err)
			for _, slot := range b.Slots {
				out[slot] = a.components[slot].Fallback
			}
			continue
		}

		ok := true
		for i, slot := range b.Slots {
			comp := a.components[slot]
			v := vals[i]
			if !plausible(comp, v) {
				a.log.Debug("%s: implausible %s reading %.1f°C", b.Name, comp.Name, v)
				v = comp.Fallback
				ok = false
			}
			out[slot] = v
		}
		if ok {
			a.markOK(b)
		} else {
			a.markFailed(b, fmt.Errorf("implausible reading"))
		}
	}
	return out
}

// Failures returns the number of failed reads per source.
func (a *Aggregator) Failures() map[string]uint64 {
	out := make(map[string]uint64, len(a.bindings))
	for _, b := range a.bindings {
		out[b.Name] = b.failures
	}
	return out
}

func (a *Aggregator) read(ctx context.Context, b *bindingState) ([]float64, error) {
	if b.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.Timeout)
		defer cancel()
	}
	vals, err := b.Source.Read(ctx)
	if err != nil {
		return nil, err
	}
	if len(vals) != len(b.Slots) {
		return nil, fmt.Errorf("got %d values, want %d", len(vals), len(b.Slots))
	}
	return vals, nil
}

func (a *Aggregator) markFailed(b *bindingState, err error) {
	b.failures++
	if !b.failing {
		a.log.Warn("%s: read failed, using fallback: %v", b.Name, err)
	} else {
		a.log.Debug("%s: read failed: %v", b.Name, err)
	}
	b.failing = true
}

func (a *Aggregator) markOK(b *bindingState) {
	if b.failing {
		a.log.Info("%s: recovered after %d failed reads", b.Name, b.failures)
	}
	b.failing = false
}

// plausible reports whether v lies in the component's plausible range. A
// zero range disables the check.
func plausible(comp config.Component, v float64) bool {
	if comp.PlausibleMin == 0 && comp.PlausibleMax == 0 {
		return true
	}
	return v >= comp.PlausibleMin && v <= comp.PlausibleMax
}
