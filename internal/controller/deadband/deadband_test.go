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

package deadband

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransformSequence(t *testing.T) {
	s := New(120, 200)
	require.Equal(t, Unset, s.Side())

	steps := []struct {
		in, want float64
		side     Side
	}{
		{150, 120, Low},
		{210, 210, High},
		{150, 200, High},
		{121, 200, High},
		{100, 100, Low},
		{199, 120, Low},
		{200, 120, Low},
		{201, 201, High},
		{120, 120, Low},
	}
	for _, st := range steps {
		got := s.Transform(st.in)
		assert.Equal(t, st.want, got, "transform(%v)", st.in)
		assert.Equal(t, st.side, s.Side(), "side after transform(%v)", st.in)
	}
}

func TestOutputNeverInsideBand(t *testing.T) {
	s := New(120, 200)
	for v := 0.0; v <= 255; v += 0.5 {
		out := s.Transform(v)
		assert.False(t, out > 120 && out < 200, "output %v inside band", out)
	}
	for v := 255.0; v >= 0; v -= 0.5 {
		out := s.Transform(v)
		assert.False(t, out > 120 && out < 200, "output %v inside band", out)
	}
}

func TestReset(t *testing.T) {
	s := New(10, 20)
	s.Transform(30)
	require.Equal(t, High, s.Side())
	s.Reset()
	assert.Equal(t, Unset, s.Side())
	assert.Equal(t, 10.0, s.Transform(15))
}

func TestNewRejectsInvertedBounds(t *testing.T) {
	assert.Panics(t, func() { New(200, 120) })
}
