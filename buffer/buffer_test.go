// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package buffer

import (
	"errors"
	"reflect"
	"testing"
)

func TestResize(t *testing.T) {
	b := New[uint32](32)
	if got, want := b.Cap(), 32; got != want {
		t.Fatalf("invalid capacity: got=%d, want=%d", got, want)
	}
	if !b.Empty() {
		t.Fatalf("new buffer should be empty")
	}

	for i := range b.Raw() {
		b.Raw()[i] = uint32(i)
	}

	err := b.Resize(5)
	if err != nil {
		t.Fatalf("could not resize: %+v", err)
	}
	if got, want := b.Len(), 5; got != want {
		t.Fatalf("invalid size: got=%d, want=%d", got, want)
	}

	err = b.Resize(33)
	if !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("invalid resize error: %+v", err)
	}
	if got, want := b.Len(), 5; got != want {
		t.Fatalf("failed resize modified size: got=%d, want=%d", got, want)
	}

	err = b.Resize(-1)
	if !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("invalid resize error: %+v", err)
	}

	err = b.Resize(32)
	if err != nil {
		t.Fatalf("could not resize to capacity: %+v", err)
	}
}

func TestCheckedAccess(t *testing.T) {
	b := New[uint32](32)
	for i := range b.Raw() {
		b.Raw()[i] = uint32(100 + i)
	}
	_ = b.Resize(5)

	v, err := b.At(4)
	if err != nil {
		t.Fatalf("could not access item 4: %+v", err)
	}
	if got, want := v, uint32(104); got != want {
		t.Fatalf("invalid item: got=%d, want=%d", got, want)
	}

	_, err = b.At(5)
	if !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("invalid at(5) error: %+v", err)
	}
	_, err = b.At(-1)
	if !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("invalid at(-1) error: %+v", err)
	}

	// stale data past the fill count is still there.
	if got, want := b.Index(5), uint32(105); got != want {
		t.Fatalf("invalid unchecked item: got=%d, want=%d", got, want)
	}
	if got, want := b.Raw()[31], uint32(131); got != want {
		t.Fatalf("invalid raw item: got=%d, want=%d", got, want)
	}

	// shrinking does not clear memory.
	_ = b.Resize(2)
	if got, want := b.Index(4), uint32(104); got != want {
		t.Fatalf("resize cleared memory: got=%d, want=%d", got, want)
	}
}

func TestIteration(t *testing.T) {
	b := New[int](8)
	for i := range b.Raw() {
		b.Raw()[i] = i * 10
	}
	_ = b.Resize(3)

	var fwd []int
	for i, v := range b.All() {
		if v != i*10 {
			t.Fatalf("invalid item %d: %d", i, v)
		}
		fwd = append(fwd, v)
	}
	if got, want := fwd, []int{0, 10, 20}; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid forward iteration: got=%v, want=%v", got, want)
	}

	var bwd []int
	for _, v := range b.Backward() {
		bwd = append(bwd, v)
	}
	if got, want := bwd, []int{20, 10, 0}; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid backward iteration: got=%v, want=%v", got, want)
	}

	var first []int
	for _, v := range b.All() {
		first = append(first, v)
		break
	}
	if got, want := first, []int{0}; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid early break: got=%v, want=%v", got, want)
	}

	if got, want := b.Items(), []int{0, 10, 20}; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid items: got=%v, want=%v", got, want)
	}
	if got, want := b.Front(), 0; got != want {
		t.Fatalf("invalid front: got=%d, want=%d", got, want)
	}
	if got, want := b.Back(), 20; got != want {
		t.Fatalf("invalid back: got=%d, want=%d", got, want)
	}
}

func TestEmptyEnds(t *testing.T) {
	b := New[int](4)
	b.Fill(42)
	for _, tc := range []struct {
		name string
		fct  func() int
	}{
		{"front", b.Front},
		{"back", b.Back},
	} {
		t.Run(tc.name, func(t *testing.T) {
			defer func() {
				if e := recover(); e == nil {
					t.Fatalf("expected a panic on an empty buffer")
				}
			}()
			v := tc.fct()
			t.Fatalf("got %d from an empty buffer", v)
		})
	}
}

func TestFillSwap(t *testing.T) {
	a := New[uint16](4)
	a.Fill(0xffff)
	_ = a.Resize(2)

	b := New[uint16](2)
	_ = b.Resize(1)

	a.Swap(b)
	if got, want := a.Cap(), 2; got != want {
		t.Fatalf("invalid swapped cap: got=%d, want=%d", got, want)
	}
	if got, want := a.Len(), 1; got != want {
		t.Fatalf("invalid swapped len: got=%d, want=%d", got, want)
	}
	if got, want := b.Items(), []uint16{0xffff, 0xffff}; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid swapped items: got=%v, want=%v", got, want)
	}
}

func TestWords(t *testing.T) {
	type packet uint32

	b := New[packet](4)
	w := Words(b)
	if got, want := len(w), 4; got != want {
		t.Fatalf("invalid words length: got=%d, want=%d", got, want)
	}
	w[2] = 0xc0000000
	if got, want := b.Index(2), packet(0xc0000000); got != want {
		t.Fatalf("words do not alias storage: got=0x%x, want=0x%x", got, want)
	}

	if Words(New[packet](0)) != nil {
		t.Fatalf("empty buffer should have nil words")
	}
}
