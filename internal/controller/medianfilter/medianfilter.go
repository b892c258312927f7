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

// Package medianfilter smooths the raw coolant readings coming from the
// microcontroller.
package medianfilter

import "sort"

// Filter keeps the last N raw readings, newest first, and returns the mean
// of the two middle-ranked values of the sorted window. For N=4 that is the
// average of ranks 1 and 2.
//
// A reading above the sentinel means the thermistor wire is open. While such
// a reading is in the window the filter returns 0, which the controller sees
// as the hottest possible coolant.
type Filter struct {
	window   []int
	sorted   []int
	prefill  float64
	sentinel int
}

func New(size int, prefill float64, sentinel int) *Filter {
	if size < 1 {
		size = 1
	}
	f := &Filter{
		window:   make([]int, size),
		sorted:   make([]int, size),
		prefill:  prefill,
		sentinel: sentinel,
	}
	f.Reset()
	return f
}

// Push adds a reading and returns the smoothed value.
func (f *Filter) Push(reading int) float64 {
	copy(f.window[1:], f.window[:len(f.window)-1])
	f.window[0] = reading

	if f.Broken() {
		return 0
	}

	copy(f.sorted, f.window)
	sort.Ints(f.sorted)

	n := len(f.sorted)
	if n == 1 {
		return float64(f.sorted[0])
	}
	return float64(f.sorted[n/2-1]+f.sorted[n/2]) / 2
}

// Broken reports whether a sentinel reading is still inside the window.
func (f *Filter) Broken() bool {
	for _, v := range f.window {
		if v > f.sentinel {
			return true
		}
	}
	return false
}

// Window returns a copy of the window, newest first.
func (f *Filter) Window() []int {
	out := make([]int, len(f.window))
	copy(out, f.window)
	return out
}

// Reset refills the window with the prefill value.
func (f *Filter) Reset() {
	for i := range f.window {
		f.window[i] = int(f.prefill)
	}
}
