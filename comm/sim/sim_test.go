// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sim

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/go-lpc/caen"
	"github.com/go-lpc/caen/comm"
	"github.com/go-lpc/caen/vme"
	"go.etcd.io/bbolt"
)

var conn = caen.Connection{Bridge: caen.V3718, Link: 1, Address: 0x3210}

func TestRegisters(t *testing.T) {
	dev := New(conn)

	err := dev.Write32(0x10, 0x12345678)
	if err != nil {
		t.Fatalf("could not write: %+v", err)
	}
	v16, err := dev.Read16(0x10)
	if err != nil {
		t.Fatalf("could not read: %+v", err)
	}
	if got, want := v16, uint16(0x5678); got != want {
		t.Fatalf("invalid value: got=0x%x, want=0x%x", got, want)
	}

	dev.Push(0x10, 1, 2)
	for _, want := range []uint32{1, 2, 0x12345678} {
		got, _ := dev.Read32(0x10)
		if got != want {
			t.Fatalf("invalid fifo value: got=0x%x, want=0x%x", got, want)
		}
	}

	var hooked []uint32
	dev.OnWrite(0x20, func(addr, v uint32) {
		hooked = append(hooked, v)
		dev.Set(0x22, v+1)
	})
	dev.OnRead(0x24, func(addr uint32) uint32 { return dev.Get(0x22) * 2 })

	_ = dev.Write16(0x20, 41)
	if got, want := dev.Get(0x22), uint32(42); got != want {
		t.Fatalf("write hook did not run: got=%d, want=%d", got, want)
	}
	v16, _ = dev.Read16(0x24)
	if got, want := v16, uint16(84); got != want {
		t.Fatalf("invalid hooked read: got=%d, want=%d", got, want)
	}
	if len(hooked) != 1 || hooked[0] != 41 {
		t.Fatalf("invalid hook calls: %v", hooked)
	}

	if got, want := dev.Writes(0x20), []uint32{41}; len(got) != 1 || got[0] != want[0] {
		t.Fatalf("invalid writes: got=%v, want=%v", got, want)
	}
	acc := dev.Accesses()
	if got, want := acc[len(acc)-1].String(), "r16 0x24=0x54"; got != want {
		t.Fatalf("invalid access: got=%q, want=%q", got, want)
	}
}

func TestClose(t *testing.T) {
	dev := New(conn)
	err := dev.Close()
	if err != nil {
		t.Fatalf("could not close: %+v", err)
	}
	err = dev.Close()
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("invalid second close error: %+v", err)
	}
	if got, want := dev.Closes(), 2; got != want {
		t.Fatalf("invalid closes: got=%d, want=%d", got, want)
	}
	_, err = dev.Read32(0)
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("invalid read error: %+v", err)
	}
	_, err = dev.ReadCycle(conn.BaseAddress(), vme.A32UData, vme.D32)
	if !errors.Is(err, vme.Error{Code: vme.CommError}) {
		t.Fatalf("invalid cycle error: %+v", err)
	}
}

func TestBlocks(t *testing.T) {
	dev := New(conn)
	dev.Push(0, 10, 20, 30)

	buf := make([]uint32, 2)
	n, err := dev.BLTRead(0, buf)
	if err != nil || n != 2 {
		t.Fatalf("invalid block: n=%d, err=%+v", n, err)
	}
	n, err = dev.MBLTRead(0, buf)
	if !errors.Is(err, comm.Error{Code: comm.Terminated}) {
		t.Fatalf("invalid termination: %+v", err)
	}
	if n != 1 || buf[0] != 30 {
		t.Fatalf("invalid block: n=%d, buf=%v", n, buf)
	}

	// VME cycles use absolute addresses.
	dev.Push(0x100, 1, 2, 3)
	buf = make([]uint32, 8)
	n, err = dev.FIFOBLTReadCycle(conn.BaseAddress()+0x100, vme.A32UData, vme.D32, buf)
	if !errors.Is(err, vme.Error{Code: vme.BusError}) {
		t.Fatalf("invalid bus error: %+v", err)
	}
	if got, want := n, 3; got != want {
		t.Fatalf("invalid word count: got=%d, want=%d", got, want)
	}
}

func TestVME(t *testing.T) {
	dev := New(conn)

	err := dev.WriteRegister(0x0A, 0x3)
	if err != nil {
		t.Fatalf("could not write register: %+v", err)
	}
	v, err := dev.ReadRegister(0x0A)
	if err != nil || v != 3 {
		t.Fatalf("invalid register: v=%d, err=%+v", v, err)
	}

	err = dev.WriteCycle(conn.BaseAddress()+0x1000, 0x12345, vme.A32UData, vme.D16)
	if err != nil {
		t.Fatalf("could not write cycle: %+v", err)
	}
	if got, want := dev.Get(0x1000), uint32(0x2345); got != want {
		t.Fatalf("invalid stored value: got=0x%x, want=0x%x", got, want)
	}
	v, err = dev.ReadCycle(conn.BaseAddress()+0x1000, vme.A32UData, vme.D8)
	if err != nil || v != 0x45 {
		t.Fatalf("invalid D8 read: v=0x%x, err=%+v", v, err)
	}

	dev.Firmware = "1.2"
	fw, err := dev.FirmwareRelease()
	if err != nil || fw != "1.2" {
		t.Fatalf("invalid firmware: %q, err=%+v", fw, err)
	}
	_ = dev.DeviceReset()
	if got, want := dev.Resets(), 1; got != want {
		t.Fatalf("invalid resets: got=%d, want=%d", got, want)
	}
}

func TestPersist(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "sim.db")
	db, err := bbolt.Open(fname, 0600, nil)
	if err != nil {
		t.Fatalf("could not open db: %+v", err)
	}
	defer db.Close()

	dev := New(conn)
	err = dev.Persist(db)
	if err != nil {
		t.Fatalf("could not persist: %+v", err)
	}
	_ = dev.Write32(0x1000, 0xcafe)
	_ = dev.Write16(0x1002, 0xbeef)
	_ = dev.WriteRegister(0x01, 7)
	_ = dev.Close()

	dev = New(conn)
	err = dev.Persist(db)
	if err != nil {
		t.Fatalf("could not reload: %+v", err)
	}
	if got, want := dev.Get(0x1000), uint32(0xcafe); got != want {
		t.Fatalf("invalid reloaded value: got=0x%x, want=0x%x", got, want)
	}
	if got, want := dev.Get(0x1002), uint32(0xbeef); got != want {
		t.Fatalf("invalid reloaded value: got=0x%x, want=0x%x", got, want)
	}
	if got, want := dev.Register(0x01), uint32(7); got != want {
		t.Fatalf("invalid reloaded register: got=%d, want=%d", got, want)
	}

	other := New(caen.Connection{Bridge: caen.V1718})
	err = other.Persist(db)
	if err != nil {
		t.Fatalf("could not persist: %+v", err)
	}
	if got := other.Get(0x1000); got != 0 {
		t.Fatalf("register image leaked across connections: 0x%x", got)
	}
}

func TestDriver(t *testing.T) {
	t.Setenv(EnvDB, "")

	dev, err := comm.Open("sim", conn)
	if err != nil {
		t.Fatalf("could not open: %+v", err)
	}
	defer dev.Close()

	br, err := vme.Open("sim", conn)
	if err != nil {
		t.Fatalf("could not open bridge: %+v", err)
	}
	defer br.Close()

	if got, want := br.BoardType(), vme.USBV3718; got != want {
		t.Fatalf("invalid board type: got=%v, want=%v", got, want)
	}
}
