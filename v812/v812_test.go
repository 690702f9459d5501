// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package v812

import (
	"errors"
	"reflect"
	"testing"

	"github.com/go-lpc/caen"
	"github.com/go-lpc/caen/comm"
	"github.com/go-lpc/caen/comm/sim"
)

var conn = caen.Connection{Conet: caen.A2818, Address: 0x0200}

func newSim(t *testing.T) (*V812, *sim.Device) {
	t.Helper()
	tr := sim.New(conn)
	tr.Set(0xFC, ID)
	cfd, err := New(comm.NewDevice(tr, conn, true))
	if err != nil {
		t.Fatalf("could not create V812: %+v", err)
	}
	t.Cleanup(func() { _ = cfd.Close() })
	tr.ResetLog()
	return cfd, tr
}

func TestThresholdCode(t *testing.T) {
	for _, tc := range []struct {
		v    float64
		want uint16
	}{
		{-1, 255},
		{-0.256, 255},
		{-0.255, 255},
		{-0.1004, 100},
		{-0.0996, 100},
		{-1e-3, 1},
		{-0.5e-3, 0},
		{0, 0},
		{0.1, 0},
	} {
		if got := ThresholdCode(tc.v); got != tc.want {
			t.Fatalf("invalid threshold code for %v: got=%d, want=%d", tc.v, got, tc.want)
		}
	}
}

func TestV812(t *testing.T) {
	cfd, tr := newSim(t)

	err := cfd.SetThreshold(15, -0.030)
	if err != nil {
		t.Fatalf("could not set threshold: %+v", err)
	}
	if got, want := tr.Get(15<<1), uint32(30); got != want {
		t.Fatalf("invalid threshold register: got=%d, want=%d", got, want)
	}
	err = cfd.SetThreshold(16, -0.030)
	if err == nil {
		t.Fatalf("expected an error for channel 16")
	}

	tr.ResetLog()
	for _, f := range []func() error{
		func() error { return cfd.EnableChannels(0xF00F) },
		func() error { return cfd.SetOutputWidth(Group1, 10) },
		func() error { return cfd.SetDeadTimes(20) },
		func() error { return cfd.SetMajorityThreshold(3) },
		func() error { return cfd.TestPulse() },
	} {
		err := f()
		if err != nil {
			t.Fatalf("could not configure: %+v", err)
		}
	}
	if got, want := tr.Accesses(), []sim.Access{
		{Write: true, Width: 16, Addr: 0x4A, Value: 0xF00F},
		{Write: true, Width: 16, Addr: 0x42, Value: 10},
		{Write: true, Width: 16, Addr: 0x44, Value: 20},
		{Write: true, Width: 16, Addr: 0x46, Value: 20},
		{Write: true, Width: 16, Addr: 0x48, Value: 3},
		{Write: true, Width: 16, Addr: 0x4C, Value: 1},
	}; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid accesses:\ngot= %v\nwant=%v", got, want)
	}

	tr.Set(0xFE, 0x3123)
	serial, err := cfd.Serial()
	if err != nil || serial != 0x123 {
		t.Fatalf("invalid serial: got=0x%x, err=%+v", serial, err)
	}
	vers, err := cfd.Version()
	if err != nil || vers != 3 {
		t.Fatalf("invalid version: got=%d, err=%+v", vers, err)
	}
}

func TestWrongDevice(t *testing.T) {
	tr := sim.New(conn)
	tr.Set(0xFC, 0x852)
	_, err := New(comm.NewDevice(tr, conn, false))
	var werr *comm.WrongDeviceError
	if !errors.As(err, &werr) {
		t.Fatalf("invalid error: %+v", err)
	}
	if got, want := err.Error(), "Device connected through A2818, VME address 0x200 is not a V812"; got != want {
		t.Fatalf("invalid error message:\ngot= %q\nwant=%q", got, want)
	}
}
