// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mmap provides access to memory mapped VME windows.
package mmap // import "github.com/go-lpc/caen/internal/mmap"

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"golang.org/x/sys/unix"
)

var (
	errClosed = errors.New("mmap: closed")
)

// Handle is a memory mapped window. VME is big-endian: the 16- and 32-bit
// accessors convert from and to the host order.
type Handle struct {
	data  []byte
	unmap func([]byte) error
}

// Map maps size bytes of the file fd, starting at offset off.
func Map(fd int, off int64, size int) (*Handle, error) {
	data, err := unix.Mmap(fd, off, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap: could not map %d bytes at 0x%x: %w", size, off, err)
	}
	h := &Handle{data: data, unmap: unix.Munmap}
	runtime.SetFinalizer(h, (*Handle).Close)
	return h, nil
}

// HandleFrom wraps a plain byte slice.
func HandleFrom(data []byte) *Handle {
	return &Handle{data: data}
}

// Close unmaps the window.
func (h *Handle) Close() error {
	if h == nil {
		return os.ErrInvalid
	}

	if h.data == nil {
		return nil
	}
	data := h.data
	h.data = nil
	runtime.SetFinalizer(h, nil)

	if h.unmap == nil {
		return nil
	}
	return h.unmap(data)
}

// Len returns the length of the window.
func (h *Handle) Len() int {
	return len(h.data)
}

func (h *Handle) check(off uint32, n int) error {
	if h == nil {
		return os.ErrInvalid
	}
	if h.data == nil {
		return errClosed
	}
	if off%uint32(n) != 0 {
		return fmt.Errorf("mmap: misaligned %d-bit access at 0x%x", 8*n, off)
	}
	if int64(off)+int64(n) > int64(len(h.data)) {
		return fmt.Errorf("mmap: offset 0x%x out of window", off)
	}
	return nil
}

func (h *Handle) Read16(off uint32) (uint16, error) {
	if err := h.check(off, 2); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(h.data[off:]), nil
}

func (h *Handle) Read32(off uint32) (uint32, error) {
	if err := h.check(off, 4); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(h.data[off:]), nil
}

func (h *Handle) Write16(off uint32, v uint16) error {
	if err := h.check(off, 2); err != nil {
		return err
	}
	binary.BigEndian.PutUint16(h.data[off:], v)
	return nil
}

func (h *Handle) Write32(off uint32, v uint32) error {
	if err := h.check(off, 4); err != nil {
		return err
	}
	binary.BigEndian.PutUint32(h.data[off:], v)
	return nil
}

// ReadAt implements the io.ReaderAt interface.
func (h *Handle) ReadAt(p []byte, off int64) (int, error) {
	if h == nil {
		return 0, os.ErrInvalid
	}

	if h.data == nil {
		return 0, errClosed
	}
	if off < 0 || int64(len(h.data)) < off {
		return 0, fmt.Errorf("mmap: invalid ReadAt offset %d", off)
	}
	n := copy(p, h.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

var (
	_ io.ReaderAt = (*Handle)(nil)
	_ io.Closer   = (*Handle)(nil)
)
