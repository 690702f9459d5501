// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package vmeuser

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/go-lpc/caen"
	"github.com/go-lpc/caen/comm"
	"github.com/go-lpc/caen/internal/mmap"
)

func TestMaster(t *testing.T) {
	m := newMaster(0xee000000)
	if got, want := binary.NativeEndian.Uint32(m[0:]), uint32(1); got != want {
		t.Fatalf("invalid enable: got=%d, want=%d", got, want)
	}
	if got, want := binary.NativeEndian.Uint64(m[4:]), uint64(0xee000000); got != want {
		t.Fatalf("invalid address: got=0x%x, want=0x%x", got, want)
	}
	if got, want := binary.NativeEndian.Uint64(m[12:]), uint64(windowSize); got != want {
		t.Fatalf("invalid size: got=0x%x, want=0x%x", got, want)
	}
	if got, want := binary.NativeEndian.Uint32(m[20:]), uint32(aspaceA32); got != want {
		t.Fatalf("invalid address space: got=0x%x, want=0x%x", got, want)
	}
}

func TestBlockRead(t *testing.T) {
	raw := make([]byte, 16)
	for i := 0; i < 4; i++ {
		binary.BigEndian.PutUint32(raw[4*i:], uint32(0x100+i))
	}
	h := mmap.HandleFrom(raw)

	buf := make([]uint32, 3)
	n, err := blockRead(h, 4, buf)
	if err != nil {
		t.Fatalf("could not read block: %+v", err)
	}
	if n != 3 || buf[0] != 0x101 || buf[2] != 0x103 {
		t.Fatalf("invalid block: n=%d, buf=%x", n, buf)
	}

	buf = make([]uint32, 8)
	n, err = blockRead(h, 8, buf)
	if !errors.Is(err, comm.Error{Code: comm.Terminated}) {
		t.Fatalf("invalid error: %+v", err)
	}
	if got, want := n, 2; got != want {
		t.Fatalf("invalid word count: got=%d, want=%d", got, want)
	}
}

func TestOpenBridge(t *testing.T) {
	_, err := driver{}.Open(caen.Connection{Bridge: caen.V3718})
	var cerr *caen.InvalidConnectionError
	if !errors.As(err, &cerr) {
		t.Fatalf("invalid error: %+v", err)
	}
}
