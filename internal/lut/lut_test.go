// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lut

import "testing"

func TestNearest(t *testing.T) {
	single := []float64{800e-12, 200e-12, 100e-12, 25e-12}
	pair := []float64{
		100e-12, 200e-12, 400e-12, 800e-12,
		1.6e-9, 3.2e-9, 6.25e-9, 12.5e-9,
		25e-9, 50e-9, 100e-9, 200e-9,
		400e-9, 800e-9,
	}

	for _, tc := range []struct {
		name  string
		table []float64
		v     float64
		want  int
	}{
		{"single-150ps", single, 150e-12, 2},
		{"single-exact", single, 200e-12, 1},
		{"single-large", single, 1e-6, 0},
		{"single-small", single, 1e-15, 3},
		{"single-zero", single, 0, 3},
		{"pair-1ns", pair, 1e-9, 3},
		{"pair-1.3ns", pair, 1.3e-9, 4},
		{"pair-huge", pair, 1, 13},
		{"pair-negative", pair, -1, 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got := Nearest(tc.table, tc.v); got != tc.want {
				t.Fatalf("invalid index: got=%d, want=%d", got, tc.want)
			}
		})
	}
}

func TestNearestTie(t *testing.T) {
	for _, tc := range []struct {
		name  string
		table []int
		v     int
		want  int
	}{
		{"descending", []int{8, 4, 2, 1}, 3, 1},
		{"ascending", []int{1, 2, 4, 8}, 3, 1},
		{"ascending-mid", []int{5, 10, 30, 100}, 20, 1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got := Nearest(tc.table, tc.v); got != tc.want {
				t.Fatalf("invalid index: got=%d, want=%d", got, tc.want)
			}
		})
	}
}

func TestNearestUnsigned(t *testing.T) {
	table := []uint16{0, 100, 200}
	if got, want := Nearest(table, 160), 2; got != want {
		t.Fatalf("invalid index: got=%d, want=%d", got, want)
	}
	if got, want := Nearest(table, 40), 0; got != want {
		t.Fatalf("invalid index: got=%d, want=%d", got, want)
	}
}

func TestLog2Ceil(t *testing.T) {
	for _, tc := range []struct {
		x, want uint
	}{
		{0, 0}, {1, 0}, {2, 1}, {3, 2}, {4, 2}, {5, 3},
		{64, 6}, {65, 7}, {128, 7}, {255, 8}, {256, 8},
	} {
		if got := Log2Ceil(tc.x); got != tc.want {
			t.Fatalf("log2ceil(%d): got=%d, want=%d", tc.x, got, tc.want)
		}
	}
}
