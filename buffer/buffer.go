// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package buffer provides a fixed capacity array with a fill count, used to
// hold readout words transferred from a board.
package buffer // import "github.com/go-lpc/caen/buffer"

import (
	"errors"
	"fmt"
	"iter"
	"unsafe"
)

// ErrOutOfRange is returned when an index or a size exceeds the fill count
// or the capacity of a buffer.
var ErrOutOfRange = errors.New("buffer: out of range")

// Buffer is a fixed capacity array of items with a fill count.
//
// Only the first Len items are logically present. Resize never clears
// memory: items past the fill count may hold stale data and are only
// reachable through Raw or Index.
type Buffer[T any] struct {
	data []T
	fill int
}

// New returns a buffer with the given capacity.
func New[T any](capacity int) *Buffer[T] {
	return &Buffer[T]{data: make([]T, capacity)}
}

// Len returns the fill count.
func (b *Buffer[T]) Len() int { return b.fill }

// Cap returns the capacity of the buffer.
func (b *Buffer[T]) Cap() int { return len(b.data) }

// Empty reports whether the fill count is zero.
func (b *Buffer[T]) Empty() bool { return b.fill == 0 }

// Resize sets the fill count to n.
func (b *Buffer[T]) Resize(n int) error {
	if n < 0 || n > len(b.data) {
		return fmt.Errorf("buffer: resize to %d (cap=%d): %w", n, len(b.data), ErrOutOfRange)
	}
	b.fill = n
	return nil
}

// At returns the i-th item, checked against the fill count.
func (b *Buffer[T]) At(i int) (T, error) {
	if i < 0 || i >= b.fill {
		var v T
		return v, fmt.Errorf("buffer: index %d (len=%d): %w", i, b.fill, ErrOutOfRange)
	}
	return b.data[i], nil
}

// Index returns the i-th item of the backing storage.
// It is not checked against the fill count.
func (b *Buffer[T]) Index(i int) T { return b.data[i] }

// Raw returns the whole backing storage, up to the capacity.
func (b *Buffer[T]) Raw() []T { return b.data }

// Items returns the filled prefix of the buffer.
func (b *Buffer[T]) Items() []T { return b.data[:b.fill] }

// Front returns the first filled item.
// Front panics if the buffer is empty.
func (b *Buffer[T]) Front() T { return b.data[:b.fill][0] }

// Back returns the last filled item.
// Back panics if the buffer is empty.
func (b *Buffer[T]) Back() T { return b.data[:b.fill][b.fill-1] }

// All iterates over the filled items.
func (b *Buffer[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i, v := range b.data[:b.fill] {
			if !yield(i, v) {
				return
			}
		}
	}
}

// Backward iterates over the filled items, last to first.
func (b *Buffer[T]) Backward() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i := b.fill - 1; i >= 0; i-- {
			if !yield(i, b.data[i]) {
				return
			}
		}
	}
}

// Fill sets every item of the backing storage to v.
func (b *Buffer[T]) Fill(v T) {
	for i := range b.data {
		b.data[i] = v
	}
}

// Swap exchanges the contents of b and o.
func (b *Buffer[T]) Swap(o *Buffer[T]) {
	b.data, o.data = o.data, b.data
	b.fill, o.fill = o.fill, b.fill
}

// Words returns the backing storage of a buffer of 32-bit words as a
// []uint32, suitable for block transfers. No copy is made.
func Words[T ~uint32](b *Buffer[T]) []uint32 {
	if len(b.data) == 0 {
		return nil
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(&b.data[0])), len(b.data))
}
