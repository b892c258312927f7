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
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProportionalOnly(t *testing.T) {
	r := New(6.0, 0, 0)
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		e := rng.Float64()*400 - 200
		require.Equal(t, 6.0*e, r.Next(e))
	}
}

func TestIntegralStaysWithinClamps(t *testing.T) {
	r := New(1, 0.5, 0).WithIntegralLimits(-100, 2700)
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		r.Next(rng.Float64()*1000 - 500)
		require.GreaterOrEqual(t, r.Integral(), -100.0)
		require.LessOrEqual(t, r.Integral(), 2700.0)
	}
}

func TestOneSidedClamp(t *testing.T) {
	r := New(0, 1, 0).WithIntegralLow(-5)
	for i := 0; i < 10; i++ {
		r.Next(-3)
	}
	assert.Equal(t, -5.0, r.Integral())

	for i := 0; i < 10; i++ {
		r.Next(100)
	}
	assert.Equal(t, 995.0, r.Integral())
}

func TestDerivative(t *testing.T) {
	r := New(0, 0, 2)

	// first call has no previous error
	assert.Equal(t, 0.0, r.Next(50))
	assert.Equal(t, 2*(35.0-50.0), r.Next(35))
	assert.Equal(t, 2*(40.0-35.0), r.Next(40))
}

func TestResetForgetsState(t *testing.T) {
	r := New(0, 1, 1)
	r.Next(10)
	r.Next(20)
	require.Equal(t, 30.0, r.Integral())

	r.Reset()
	assert.Equal(t, 0.0, r.Integral())
	// derivative is zero again right after a reset
	assert.Equal(t, 7.0, r.Next(7))
}

func TestRepeatedErrorGrowsOutput(t *testing.T) {
	r := New(2, 0.1, 0)
	prev := r.Next(5)
	for i := 0; i < 50; i++ {
		out := r.Next(5)
		require.Greater(t, out, prev)
		prev = out
	}
	assert.InDelta(t, 2*5+0.1*5*51, prev, 1e-9)
}
