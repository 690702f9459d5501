// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package lut maps physical values to the codes of discretized board
// settings.
package lut // import "github.com/go-lpc/caen/internal/lut"

// Number is the set of table element types.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Nearest returns the index of the element of table closest to v.
// When two elements are equally close the lower index wins.
// Nearest panics if table is empty.
//
// table may be sorted in either direction, or not at all.
func Nearest[T Number](table []T, v T) int {
	best := 0
	dist := absDiff(table[0], v)
	for i := 1; i < len(table); i++ {
		d := absDiff(table[i], v)
		if d < dist {
			best = i
			dist = d
		}
	}
	return best
}

func absDiff[T Number](a, b T) T {
	if a > b {
		return a - b
	}
	return b - a
}

// Log2Ceil returns the smallest n such that 1<<n >= x.
func Log2Ceil(x uint) uint {
	var n uint
	for x > 1<<n {
		n++
	}
	return n
}
