// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bitfield

import (
	"math/rand"
	"testing"
)

func testSetBit[T Word](t *testing.T, seed int64) {
	t.Helper()
	rnd := rand.New(rand.NewSource(seed))
	n := Size[T]()
	for iter := 0; iter < 100; iter++ {
		x := T(rnd.Uint64())
		for i := uint(0); i < n; i++ {
			for _, b := range []bool{false, true} {
				v := SetBit(x, i, b)
				if got, want := Bit(v, i), b; got != want {
					t.Fatalf("bit %d of 0x%x: got=%v, want=%v", i, x, got, want)
				}
				mask := ^(T(1) << i)
				if got, want := v&mask, x&mask; got != want {
					t.Fatalf("set-bit %d of 0x%x modified other bits: got=0x%x, want=0x%x", i, x, got, want)
				}
			}
		}
	}
}

func testSetBits[T Word](t *testing.T, seed int64) {
	t.Helper()
	rnd := rand.New(rand.NewSource(seed))
	n := Size[T]()
	for iter := 0; iter < 20; iter++ {
		x := T(rnd.Uint64())
		y := T(rnd.Uint64())
		for start := uint(0); start < n; start++ {
			for end := start; end < n; end++ {
				v := SetBits(x, start, end, y)
				width := end - start + 1
				want := y
				if width < n {
					want = y & (T(1)<<width - 1)
				}
				if got := Bits(v, start, end); got != want {
					t.Fatalf("bits [%d,%d] of 0x%x: got=0x%x, want=0x%x", start, end, v, got, want)
				}
				outside := ^Mask[T](start, end)
				if got, want := v&outside, x&outside; got != want {
					t.Fatalf("set-bits [%d,%d] modified other bits: got=0x%x, want=0x%x", start, end, got, want)
				}
			}
		}
	}
}

func TestSetBit(t *testing.T) {
	t.Run("u8", func(t *testing.T) { testSetBit[uint8](t, 1) })
	t.Run("u16", func(t *testing.T) { testSetBit[uint16](t, 2) })
	t.Run("u32", func(t *testing.T) { testSetBit[uint32](t, 3) })
	t.Run("u64", func(t *testing.T) { testSetBit[uint64](t, 4) })
}

func TestSetBits(t *testing.T) {
	t.Run("u8", func(t *testing.T) { testSetBits[uint8](t, 1) })
	t.Run("u16", func(t *testing.T) { testSetBits[uint16](t, 2) })
	t.Run("u32", func(t *testing.T) { testSetBits[uint32](t, 3) })
	t.Run("u64", func(t *testing.T) { testSetBits[uint64](t, 4) })
}

func TestBits(t *testing.T) {
	for _, tc := range []struct {
		v          uint32
		start, end uint
		want       uint32
	}{
		{0xC0000000, 27, 31, 0b11000},
		{0x40000000 | 0x12345<<5 | 0x1f, 5, 26, 0x12345},
		{0x40000000 | 0x12345<<5 | 0x1f, 0, 4, 0x1f},
		{0xdeadbeef, 0, 31, 0xdeadbeef},
		{0xdeadbeef, 31, 31, 1},
		{0xdeadbeef, 4, 4, 0},
	} {
		if got := Bits(tc.v, tc.start, tc.end); got != tc.want {
			t.Fatalf("bits(0x%x, %d, %d): got=0x%x, want=0x%x", tc.v, tc.start, tc.end, got, tc.want)
		}
	}
}

func TestSetBitsTruncates(t *testing.T) {
	v := SetBits(uint16(0xffff), 4, 7, 0x1ab)
	if got, want := v, uint16(0xffbf); got != want {
		t.Fatalf("invalid value: got=0x%x, want=0x%x", got, want)
	}
}

func TestMask(t *testing.T) {
	for _, tc := range []struct {
		start, end uint
		want       uint32
	}{
		{0, 0, 0x1},
		{0, 31, 0xffffffff},
		{4, 7, 0xf0},
		{24, 26, 0x07000000},
		{27, 31, 0xf8000000},
	} {
		if got := Mask[uint32](tc.start, tc.end); got != tc.want {
			t.Fatalf("mask(%d, %d): got=0x%x, want=0x%x", tc.start, tc.end, got, tc.want)
		}
	}
	if got, want := Mask[uint64](0, 63), ^uint64(0); got != want {
		t.Fatalf("full mask: got=0x%x, want=0x%x", got, want)
	}
}

func TestField(t *testing.T) {
	type reg uint16

	f := New(reg(0))
	f.SetBit(3, true)
	f.SetBits(8, 11, 0xa)
	if got, want := f.Value(), reg(0x0a08); got != want {
		t.Fatalf("invalid value: got=0x%x, want=0x%x", got, want)
	}
	if !f.Bit(3) || f.Bit(2) {
		t.Fatalf("invalid bits: 0x%x", f.Value())
	}
	if got, want := f.Bits(8, 11), reg(0xa); got != want {
		t.Fatalf("invalid range: got=0x%x, want=0x%x", got, want)
	}

	g := f // value semantics
	g.SetBit(3, false)
	if !f.Bit(3) {
		t.Fatalf("copy aliased original")
	}
}

func TestSize(t *testing.T) {
	if got, want := Size[uint8](), uint(8); got != want {
		t.Fatalf("invalid size: got=%d, want=%d", got, want)
	}
	if got, want := Size[uint64](), uint(64); got != want {
		t.Fatalf("invalid size: got=%d, want=%d", got, want)
	}
}
