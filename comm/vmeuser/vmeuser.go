// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

// Package vmeuser provides a comm transport over the Linux vme_user driver,
// through a memory mapped master window.
//
// The window covers the 64 kB A32 region starting at the board base
// address. Block transfers are emulated with single cycles.
package vmeuser // import "github.com/go-lpc/caen/comm/vmeuser"

import (
	"encoding/binary"
	"fmt"
	"os"
	"unsafe"

	"github.com/go-lpc/caen"
	"github.com/go-lpc/caen/comm"
	"github.com/go-lpc/caen/internal/mmap"
	"golang.org/x/sys/unix"
)

func init() {
	comm.Register("vmeuser", driver{})
}

// Master is the device node of the first master window.
var Master = "/dev/bus/vme/m0"

const (
	windowSize = 0x10000

	ioctlSetMaster = 0x4020AE02 // _IOW(0xAE, 2, struct vme_master)

	aspaceA32 = 0x4
	cycleSCT  = 0x1
	cycleUser = 0x2000
	cycleData = 0x8000
	dwidthD32 = 0x4
)

// master is the packed struct vme_master of linux/vme_user.h.
type master [32]byte

func newMaster(base uint32) master {
	var m master
	binary.NativeEndian.PutUint32(m[0:], 1) // enable
	binary.NativeEndian.PutUint64(m[4:], uint64(base))
	binary.NativeEndian.PutUint64(m[12:], windowSize)
	binary.NativeEndian.PutUint32(m[20:], aspaceA32)
	binary.NativeEndian.PutUint32(m[24:], cycleSCT|cycleUser|cycleData)
	binary.NativeEndian.PutUint32(m[28:], dwidthD32)
	return m
}

type driver struct{}

func (driver) Open(conn caen.Connection) (comm.Transport, error) {
	if conn.IsBridge() || conn.IsEthernet() {
		return nil, &caen.InvalidConnectionError{Conn: conn}
	}

	f, err := os.OpenFile(Master, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("vmeuser: could not open master window: %w", err)
	}

	m := newMaster(conn.BaseAddress())
	_, _, errno := unix.Syscall(
		unix.SYS_IOCTL, f.Fd(), ioctlSetMaster,
		uintptr(unsafe.Pointer(&m[0])),
	)
	if errno != 0 {
		_ = f.Close()
		return nil, fmt.Errorf("vmeuser: could not configure master window: %w", errno)
	}

	h, err := mmap.Map(int(f.Fd()), 0, windowSize)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("vmeuser: %w", err)
	}
	return &transport{f: f, h: h}, nil
}

type transport struct {
	f *os.File
	h *mmap.Handle
}

func (tr *transport) Read16(addr uint32) (uint16, error)  { return tr.h.Read16(addr) }
func (tr *transport) Read32(addr uint32) (uint32, error)  { return tr.h.Read32(addr) }
func (tr *transport) Write16(addr uint32, v uint16) error { return tr.h.Write16(addr, v) }
func (tr *transport) Write32(addr uint32, v uint32) error { return tr.h.Write32(addr, v) }

func (tr *transport) BLTRead(addr uint32, buf []uint32) (int, error) {
	return blockRead(tr.h, addr, buf)
}

func (tr *transport) MBLTRead(addr uint32, buf []uint32) (int, error) {
	return blockRead(tr.h, addr, buf)
}

func (tr *transport) Close() error {
	err := tr.h.Close()
	if err != nil {
		_ = tr.f.Close()
		return fmt.Errorf("vmeuser: could not unmap window: %w", err)
	}
	return tr.f.Close()
}

// window is the part of the mmap handle block reads need.
type window interface {
	Len() int
	Read32(off uint32) (uint32, error)
}

// blockRead reads consecutive words starting at addr, stopping at the end
// of the window. Boards map their output buffer over a whole address range
// so sequential reads drain it.
func blockRead(w window, addr uint32, buf []uint32) (int, error) {
	n := 0
	for i := range buf {
		off := addr + uint32(4*i)
		if int(off)+4 > w.Len() {
			return n, comm.Error{Code: comm.Terminated}
		}
		v, err := w.Read32(off)
		if err != nil {
			return n, err
		}
		buf[i] = v
		n++
	}
	return n, nil
}
