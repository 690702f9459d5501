// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bitfield provides bit and bit-range accessors over fixed width
// unsigned words, as found in hardware registers and readout streams.
//
// Bits are indexed from 0 (least significant) to N-1.
// Ranges are inclusive: Bits(v, 4, 7) returns the 4 bits 4, 5, 6 and 7 of v,
// right-aligned.
// Indices out of the word are a programming error and are not checked.
package bitfield // import "github.com/go-lpc/caen/bitfield"

import "unsafe"

// Word is the set of unsigned integer types a bit field can be made of.
type Word interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Size returns the number of bits of the word type T.
func Size[T Word]() uint {
	var v T
	return uint(unsafe.Sizeof(v)) * 8
}

// Bit returns bit i of v.
func Bit[T Word](v T, i uint) bool {
	return v&(T(1)<<i) != 0
}

// SetBit returns v with bit i set to b.
// All the other bits are left untouched.
func SetBit[T Word](v T, i uint, b bool) T {
	mask := T(1) << i
	v &^= mask
	if b {
		v |= mask
	}
	return v
}

// Mask returns a word with bits start..end (inclusive) set.
func Mask[T Word](start, end uint) T {
	// valid for ranges spanning the whole word.
	return ^(^T(1) << (end - start)) << start
}

// Bits returns bits start..end (inclusive) of v, right-aligned.
func Bits[T Word](v T, start, end uint) T {
	return (v & Mask[T](start, end)) >> start
}

// SetBits returns v with bits start..end (inclusive) replaced by the low
// end-start+1 bits of x.
// Higher bits of x are silently discarded.
func SetBits[T Word](v T, start, end uint, x T) T {
	mask := Mask[T](start, end)
	return v&^mask | (x<<start)&mask
}

// Field is a value type wrapping one word.
type Field[T Word] struct {
	V T
}

// New returns a field holding v.
func New[T Word](v T) Field[T] { return Field[T]{V: v} }

// Value returns the raw word.
func (f Field[T]) Value() T { return f.V }

func (f Field[T]) Bit(i uint) bool               { return Bit(f.V, i) }
func (f Field[T]) Bits(start, end uint) T        { return Bits(f.V, start, end) }
func (f *Field[T]) SetBit(i uint, b bool)        { f.V = SetBit(f.V, i, b) }
func (f *Field[T]) SetBits(start, end uint, x T) { f.V = SetBits(f.V, start, end, x) }
