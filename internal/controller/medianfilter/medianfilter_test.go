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

package medianfilter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushWithSentinel(t *testing.T) {
	f := New(4, 188, 65000)

	tests := []struct {
		name    string
		reading int
		want    float64
		broken  bool
	}{
		// window [190 188 188 188] -> sorted middle 188,188
		{name: "first", reading: 190, want: 188},
		// window [185 190 188 188] -> sorted 185 188 188 190
		{name: "second", reading: 185, want: 188},
		{name: "open wire", reading: 300000, want: 0, broken: true},
		// the open-wire reading is still in the window
		{name: "after open wire", reading: 186, want: 0, broken: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, f.Push(tt.reading))
			assert.Equal(t, tt.broken, f.Broken())
		})
	}
}

func TestSentinelLeavesWindow(t *testing.T) {
	f := New(4, 188, 65000)
	f.Push(70000)
	for i := 0; i < 3; i++ {
		require.Equal(t, 0.0, f.Push(190))
	}
	assert.Equal(t, 190.0, f.Push(190))
	assert.False(t, f.Broken())
}

func TestMiddlePairAverage(t *testing.T) {
	f := New(4, 0, 65000)
	f.Push(10)
	f.Push(40)
	f.Push(20)
	// window [31 20 40 10] -> sorted 10 20 31 40
	assert.Equal(t, 25.5, f.Push(31))
	assert.Equal(t, []int{31, 20, 40, 10}, f.Window())
}

func TestOddAndSingleWindows(t *testing.T) {
	single := New(1, 100, 65000)
	assert.Equal(t, 42.0, single.Push(42))

	odd := New(3, 100, 65000)
	// window [50 100 100] -> sorted 50 100 100, ranks 0 and 1
	assert.Equal(t, 75.0, odd.Push(50))
}

func TestReset(t *testing.T) {
	f := New(4, 188, 65000)
	f.Push(70000)
	f.Reset()
	assert.False(t, f.Broken())
	assert.Equal(t, []int{188, 188, 188, 188}, f.Window())
}
