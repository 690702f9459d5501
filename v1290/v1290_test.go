// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package v1290

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/go-lpc/caen"
	"github.com/go-lpc/caen/comm"
	"github.com/go-lpc/caen/comm/sim"
)

var conn = caen.Connection{Bridge: caen.V3718, Conet: caen.A3818, Link: 0, Address: 0x1000}

func newSim(t *testing.T, version Version, opts ...Option) (*V1290, *sim.Device) {
	t.Helper()
	tr := sim.New(conn)
	tr.SetComposite(0x4024, 3, 4, comm.OUI)
	tr.SetComposite(0x4034, 3, 4, ID)
	tr.Set(0x4030, uint32(version))
	tr.Set(regMicroHandshake, 3)

	tdc, err := New(comm.NewDevice(tr, conn, true), opts...)
	if err != nil {
		t.Fatalf("could not create V1290: %+v", err)
	}
	t.Cleanup(func() { _ = tdc.Close() })
	tr.ResetLog()
	return tdc, tr
}

// reply queues the words the micro-controller returns.
func reply(tr *sim.Device, vs ...uint16) {
	for _, v := range vs {
		tr.Push(regMicro, uint32(v))
	}
}

func opcodes(tr *sim.Device) []uint32 { return tr.Writes(regMicro) }

func checkOpcodes(t *testing.T, tr *sim.Device, want ...uint32) {
	t.Helper()
	if got := opcodes(tr); !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid micro-controller writes:\ngot= %#x\nwant=%#x", got, want)
	}
	if n := tr.Pending(regMicro); n != 0 {
		t.Fatalf("%d replies were not read", n)
	}
	tr.ResetLog()
}

func TestNew(t *testing.T) {
	tdc, _ := newSim(t, V1290A)
	if got, want := tdc.Version(), V1290A; got != want {
		t.Fatalf("invalid version: got=%v, want=%v", got, want)
	}
	if got, want := tdc.Version().Channels(), 32; got != want {
		t.Fatalf("invalid channels: got=%d, want=%d", got, want)
	}

	tdc, _ = newSim(t, V1290N)
	if got, want := tdc.Version(), V1290N; got != want {
		t.Fatalf("invalid version: got=%v, want=%v", got, want)
	}
	if got, want := tdc.Version().Channels(), 16; got != want {
		t.Fatalf("invalid channels: got=%d, want=%d", got, want)
	}

	tr := sim.New(conn)
	tr.SetComposite(0x4024, 3, 4, 0x1234)
	tr.SetComposite(0x4034, 3, 4, ID)
	_, err := New(comm.NewDevice(tr, conn, false))
	var werr *comm.WrongDeviceError
	if !errors.As(err, &werr) {
		t.Fatalf("invalid error: %+v", err)
	}
	if got, want := werr.Expected, "V1290"; got != want {
		t.Fatalf("invalid expected device: got=%q, want=%q", got, want)
	}
}

func TestROM(t *testing.T) {
	tdc, tr := newSim(t, V1290A)
	tr.SetComposite(0x4010, 3, 4, 0x838401)
	tr.SetComposite(0x4040, 4, 4, 0x01020304)
	tr.SetComposite(0x4080, 2, 4, 0x0432)

	v, err := tdc.ROMConstant()
	if err != nil || v != 0x838401 {
		t.Fatalf("invalid ROM constant: got=0x%x, err=%+v", v, err)
	}
	rev, err := tdc.Revision()
	if err != nil || rev != 0x01020304 {
		t.Fatalf("invalid revision: got=0x%x, err=%+v", rev, err)
	}
	serial, err := tdc.Serial()
	if err != nil || serial != 0x0432 {
		t.Fatalf("invalid serial: got=0x%x, err=%+v", serial, err)
	}
	id, err := tdc.ID()
	if err != nil || id != ID {
		t.Fatalf("invalid ID: got=%d, err=%+v", id, err)
	}
}

func TestControlRegisters(t *testing.T) {
	tdc, tr := newSim(t, V1290A)

	tr.Set(0x1000, 0x0020)
	err := tdc.UpdateControl(func(c *Control) {
		c.SetETTTEnabled(true)
		c.SetCompensationEnabled(false)
	})
	if err != nil {
		t.Fatalf("could not update control: %+v", err)
	}
	if got, want := tr.Get(0x1000), uint32(0x0A00); got != want {
		t.Fatalf("invalid control: got=0x%x, want=0x%x", got, want)
	}

	err = tdc.SetAddress(0xee120000)
	if err != nil {
		t.Fatalf("could not set address: %+v", err)
	}
	if tr.Get(0x1004) != 0xee || tr.Get(0x1006) != 0x12 {
		t.Fatalf("invalid address registers: 0x%x 0x%x", tr.Get(0x1004), tr.Get(0x1006))
	}
	addr, err := tdc.Address()
	if err != nil || addr != 0xee120000 {
		t.Fatalf("invalid address: got=0x%x, err=%+v", addr, err)
	}

	tr.Set(0x100E, 0xff)
	geo, err := tdc.GeoAddress()
	if err != nil || geo != 0x1f {
		t.Fatalf("invalid geo: got=0x%x, err=%+v", geo, err)
	}

	tr.Set(0x1034, 0)
	ok, err := tdc.FlashSelected()
	if err != nil || !ok {
		t.Fatalf("flash should be selected: ok=%v, err=%+v", ok, err)
	}
	err = tdc.SelectFlash(false)
	if err != nil {
		t.Fatalf("could not deselect flash: %+v", err)
	}
	if got, want := tr.Get(0x1034), uint32(1); got != want {
		t.Fatalf("invalid flash register: got=%d, want=%d", got, want)
	}

	tr.Set(0x101C, 0xdeadbeef)
	evt, err := tdc.EventCounter()
	if err != nil || evt != 0xdeadbeef {
		t.Fatalf("invalid event counter: got=0x%x, err=%+v", evt, err)
	}
}

func TestHandshake(t *testing.T) {
	t.Run("wait", func(t *testing.T) {
		tdc, tr := newSim(t, V1290A, WithHandshakeInterval(time.Millisecond))
		n := 0
		tr.OnRead(regMicroHandshake, func(uint32) uint32 {
			n++
			if n < 3 {
				return 0
			}
			return 3
		})
		err := tdc.LoadDefaultConfig()
		if err != nil {
			t.Fatalf("could not load default configuration: %+v", err)
		}
		if n != 3 {
			t.Fatalf("invalid number of handshake polls: %d", n)
		}
		checkOpcodes(t, tr, 0x0500)
	})

	t.Run("timeout", func(t *testing.T) {
		tdc, tr := newSim(t, V1290A,
			WithHandshakeTimeout(10*time.Millisecond),
			WithHandshakeInterval(time.Millisecond),
		)
		tr.Set(regMicroHandshake, 0)

		err := tdc.SetDeadTime(10e-9)
		var terr *comm.TimeoutError
		if !errors.As(err, &terr) {
			t.Fatalf("invalid error: %+v", err)
		}
		if got, want := terr.After, 10*time.Millisecond; got != want {
			t.Fatalf("invalid timeout: got=%v, want=%v", got, want)
		}
		if got := opcodes(tr); len(got) != 0 {
			t.Fatalf("micro register written without handshake: %#x", got)
		}
	})

	t.Run("read-timeout", func(t *testing.T) {
		tdc, tr := newSim(t, V1290A,
			WithHandshakeTimeout(5*time.Millisecond),
			WithHandshakeInterval(time.Millisecond),
		)
		tr.Set(regMicroHandshake, 1) // write only

		_, err := tdc.TriggerConfig()
		var terr *comm.TimeoutError
		if !errors.As(err, &terr) {
			t.Fatalf("invalid error: %+v", err)
		}
		if got, want := terr.What, "V1290 micro-controller read"; got != want {
			t.Fatalf("invalid timeout origin: got=%q, want=%q", got, want)
		}
		// the sequence stops at the first failure.
		if got, want := opcodes(tr), []uint32{0x1600}; !reflect.DeepEqual(got, want) {
			t.Fatalf("invalid writes: got=%#x, want=%#x", got, want)
		}
	})

	t.Run("transport-error", func(t *testing.T) {
		tdc, tr := newSim(t, V1290A)
		tr.Fail(regMicroHandshake, comm.Error{Code: comm.CommError})
		err := tdc.ResetTimers()
		if !errors.Is(err, comm.Error{Code: comm.CommError}) {
			t.Fatalf("invalid error: %+v", err)
		}
	})
}

func TestTriggerConfig(t *testing.T) {
	tdc, tr := newSim(t, V1290A)

	reply(tr, 40, 0xFFEC, 8, 4, 1)
	cfg, err := tdc.TriggerConfig()
	if err != nil {
		t.Fatalf("could not read trigger configuration: %+v", err)
	}
	checkOpcodes(t, tr, 0x1600)

	for _, tc := range []struct {
		name      string
		got, want float64
	}{
		{"width", cfg.WindowWidth, 1e-6},
		{"offset", cfg.WindowOffset, -500e-9},
		{"search", cfg.SearchMargin, 200e-9},
		{"reject", cfg.RejectMargin, 100e-9},
	} {
		if math.Abs(tc.got-tc.want) > 1e-15 {
			t.Fatalf("invalid %s: got=%v, want=%v", tc.name, tc.got, tc.want)
		}
	}
	if !cfg.TimeSubtraction {
		t.Fatalf("time subtraction should be enabled")
	}

	err = tdc.SetWindowWidth(1e-6)
	if err != nil {
		t.Fatalf("could not set window width: %+v", err)
	}
	err = tdc.SetWindowOffset(-500e-9)
	if err != nil {
		t.Fatalf("could not set window offset: %+v", err)
	}
	checkOpcodes(t, tr, 0x1000, 40, 0x1100, 0xFFEC)

	err = tdc.SetTriggerConfig(TriggerConfig{
		WindowWidth:  1e-6,
		WindowOffset: -1,
		SearchMargin: 200e-9,
		RejectMargin: 100e-9,
	})
	if err != nil {
		t.Fatalf("could not set trigger configuration: %+v", err)
	}
	checkOpcodes(t, tr, 0x1000, 40, 0x1100, 0x8000, 0x1200, 8, 0x1300, 4, 0x1500)
}

func TestResolution(t *testing.T) {
	tdc, tr := newSim(t, V1290A)

	t.Run("single", func(t *testing.T) {
		reply(tr, 2, 2)
		r, err := tdc.Resolution()
		if err != nil {
			t.Fatalf("could not read resolution: %+v", err)
		}
		if got, want := r, (Resolution{Edge: 100e-12}); got != want {
			t.Fatalf("invalid resolution: got=%+v, want=%+v", got, want)
		}
		checkOpcodes(t, tr, 0x2300, 0x2600)

		reply(tr, 1)
		err = tdc.SetResolution(Resolution{Edge: 150e-12, Pulse: 1})
		if err != nil {
			t.Fatalf("could not set resolution: %+v", err)
		}
		checkOpcodes(t, tr, 0x2300, 0x2400, 2)
	})

	t.Run("pair", func(t *testing.T) {
		reply(tr, 3, 0x0302)
		r, err := tdc.Resolution()
		if err != nil {
			t.Fatalf("could not read resolution: %+v", err)
		}
		if got, want := r, (Resolution{Edge: 400e-12, Pulse: 800e-12}); got != want {
			t.Fatalf("invalid resolution: got=%+v, want=%+v", got, want)
		}
		checkOpcodes(t, tr, 0x2300, 0x2600)

		reply(tr, 3)
		err = tdc.SetResolution(Resolution{Edge: 1e-9, Pulse: 1})
		if err != nil {
			t.Fatalf("could not set resolution: %+v", err)
		}
		checkOpcodes(t, tr, 0x2300, 0x2500, 13<<8|3)

		reply(tr, 3)
		err = tdc.SetResolution(Resolution{Edge: 25e-9, Pulse: 25e-9})
		if err != nil {
			t.Fatalf("could not set resolution: %+v", err)
		}
		checkOpcodes(t, tr, 0x2300, 0x2500, 8<<8|7)

		reply(tr, 3, 8<<8|7)
		r, err = tdc.Resolution()
		if err != nil {
			t.Fatalf("could not read resolution: %+v", err)
		}
		if got, want := r, (Resolution{Edge: 12.5e-9, Pulse: 25e-9}); got != want {
			t.Fatalf("invalid resolution: got=%+v, want=%+v", got, want)
		}
		checkOpcodes(t, tr, 0x2300, 0x2600)
	})
}

func TestDeadTime(t *testing.T) {
	tdc, tr := newSim(t, V1290A)

	for _, tc := range []struct {
		v    float64
		code uint32
	}{
		{0, 0},
		{7e-9, 0},
		{25e-9, 2},
		{1, 3},
	} {
		err := tdc.SetDeadTime(tc.v)
		if err != nil {
			t.Fatalf("could not set dead time: %+v", err)
		}
		checkOpcodes(t, tr, 0x2800, tc.code)
	}

	reply(tr, 0xFFFD)
	v, err := tdc.DeadTime()
	if err != nil {
		t.Fatalf("could not read dead time: %+v", err)
	}
	if got, want := v, 10e-9; got != want {
		t.Fatalf("invalid dead time: got=%v, want=%v", got, want)
	}
	checkOpcodes(t, tr, 0x2900)
}

func TestSizes(t *testing.T) {
	tdc, tr := newSim(t, V1290A)

	for _, tc := range []struct {
		code uint16
		want int
	}{
		{0, 0},
		{1, 1},
		{4, 8},
		{8, 128},
		{9, -1},
	} {
		reply(tr, tc.code)
		n, err := tdc.EventSize()
		if err != nil {
			t.Fatalf("could not read event size: %+v", err)
		}
		if n != tc.want {
			t.Fatalf("invalid event size for code %d: got=%d, want=%d", tc.code, n, tc.want)
		}
		checkOpcodes(t, tr, 0x3400)
	}

	for _, tc := range []struct {
		n    int
		code uint32
	}{
		{-1, 9},
		{0, 0},
		{1, 1},
		{3, 3},
		{128, 8},
		{129, 9},
	} {
		err := tdc.SetEventSize(tc.n)
		if err != nil {
			t.Fatalf("could not set event size: %+v", err)
		}
		checkOpcodes(t, tr, 0x3300, tc.code)
	}

	reply(tr, 7)
	n, err := tdc.FIFOSize()
	if err != nil || n != 256 {
		t.Fatalf("invalid FIFO size: got=%d, err=%+v", n, err)
	}
	checkOpcodes(t, tr, 0x3C00)

	for _, tc := range []struct {
		n    int
		code uint32
	}{
		{1, 0},
		{2, 0},
		{3, 1},
		{100, 6},
		{256, 7},
		{1000, 7},
	} {
		err := tdc.SetFIFOSize(tc.n)
		if err != nil {
			t.Fatalf("could not set FIFO size: %+v", err)
		}
		checkOpcodes(t, tr, 0x3B00, tc.code)
	}
}

func TestChannels(t *testing.T) {
	t.Run("V1290A", func(t *testing.T) {
		tdc, tr := newSim(t, V1290A)
		reply(tr, 0x1234, 0xABCD)
		mask, err := tdc.EnabledChannels()
		if err != nil || mask != 0xABCD1234 {
			t.Fatalf("invalid channel mask: got=0x%x, err=%+v", mask, err)
		}
		checkOpcodes(t, tr, 0x4500)

		err = tdc.EnableChannels(0xABCD1234)
		if err != nil {
			t.Fatalf("could not enable channels: %+v", err)
		}
		checkOpcodes(t, tr, 0x4400, 0x1234, 0xABCD)

		err = tdc.SetChannelEnabled(31, false)
		if err != nil {
			t.Fatalf("could not disable channel: %+v", err)
		}
		checkOpcodes(t, tr, 0x411F)
	})

	t.Run("V1290N", func(t *testing.T) {
		tdc, tr := newSim(t, V1290N)
		reply(tr, 0xFFFF)
		mask, err := tdc.EnabledChannels()
		if err != nil || mask != 0xFFFF {
			t.Fatalf("invalid channel mask: got=0x%x, err=%+v", mask, err)
		}
		checkOpcodes(t, tr, 0x4500)

		err = tdc.EnableChannels(0xABCD1234)
		if err != nil {
			t.Fatalf("could not enable channels: %+v", err)
		}
		checkOpcodes(t, tr, 0x4400, 0x1234)
	})

	t.Run("tdc", func(t *testing.T) {
		tdc, tr := newSim(t, V1290N)
		reply(tr, 0x0001, 0x8000)
		mask, err := tdc.EnabledTDCChannels(2)
		if err != nil || mask != 0x80000001 {
			t.Fatalf("invalid TDC channel mask: got=0x%x, err=%+v", mask, err)
		}
		checkOpcodes(t, tr, 0x4702)
	})
}

func TestMicroQueries(t *testing.T) {
	tdc, tr := newSim(t, V1290A)

	reply(tr, 1, 2, 3, 4)
	st, err := tdc.TDCStatus(3)
	if err != nil || st != 0x0001000200030004 {
		t.Fatalf("invalid TDC status: got=0x%x, err=%+v", st, err)
	}
	checkOpcodes(t, tr, 0x7603)

	reply(tr, 0x12, 15, 6, 2009)
	rev, err := tdc.MicroRevision()
	if err != nil {
		t.Fatalf("could not read micro revision: %+v", err)
	}
	if got, want := rev, (MicroRevision{Version: 0x12, Day: 15, Month: 6, Year: 2009}); got != want {
		t.Fatalf("invalid micro revision: got=%+v, want=%+v", got, want)
	}
	checkOpcodes(t, tr, 0xC200)

	reply(tr, 0xAB)
	b, err := tdc.EEPROMRead(0x10)
	if err != nil || b != 0xAB {
		t.Fatalf("invalid EEPROM byte: got=0x%x, err=%+v", b, err)
	}
	checkOpcodes(t, tr, 0xC100, 0x10)

	path := make([]uint16, ScanPathLength)
	for i := range path {
		path[i] = uint16(i)
	}
	reply(tr, path...)
	got, err := tdc.ReadScanPath(1)
	if err != nil {
		t.Fatalf("could not read scan path: %+v", err)
	}
	if !reflect.DeepEqual(got[:], path) {
		t.Fatalf("invalid scan path: got=%v", got)
	}
	checkOpcodes(t, tr, 0xC901)

	reply(tr, 0x0100, 0x02)
	off, err := tdc.GlobalOffset()
	if err != nil || off != (GlobalOffset{Coarse: 0x100, Fine: 2}) {
		t.Fatalf("invalid global offset: got=%+v, err=%+v", off, err)
	}
	checkOpcodes(t, tr, 0x5100)

	err = tdc.EnableTestMode(0x00AB1234)
	if err != nil {
		t.Fatalf("could not enable test mode: %+v", err)
	}
	err = tdc.AdjustRC(2, 0x55)
	if err != nil {
		t.Fatalf("could not adjust RC: %+v", err)
	}
	err = tdc.SetEdgeDetection(NewEdgeDetection(true, false))
	if err != nil {
		t.Fatalf("could not set edge detection: %+v", err)
	}
	checkOpcodes(t, tr, 0xC500, 0x1234, 0x00AB, 0x5402, 0x55, 0x2200, 2)

	reply(tr, 1)
	ok, err := tdc.TriggeredMode()
	if err != nil || !ok {
		t.Fatalf("invalid triggered mode: ok=%v, err=%+v", ok, err)
	}
	err = tdc.SetTriggeredMode(false)
	if err != nil {
		t.Fatalf("could not set continuous mode: %+v", err)
	}
	checkOpcodes(t, tr, 0x0200, 0x0100)
}

func TestReadout(t *testing.T) {
	tdc, tr := newSim(t, V1290N)

	evt := []uint32{
		uint32(NewGlobalHeader(2, 1)),
		uint32(NewTDCHeader(10, 1, 0)),
		uint32(NewMeasurement(1234, 3, false)),
		uint32(NewTDCTrailer(3, 1, 0)),
		uint32(NewGlobalTrailer(2, 5, false, false, false)),
		uint32(Filler),
	}
	tr.Push(0, evt...)

	buf := NewBuffer()
	if got, want := buf.Cap(), 32*1024; got != want {
		t.Fatalf("invalid buffer capacity: got=%d, want=%d", got, want)
	}
	err := tdc.Readout(buf)
	if err != nil {
		t.Fatalf("could not readout: %+v", err)
	}
	if got, want := buf.Len(), len(evt); got != want {
		t.Fatalf("invalid readout size: got=%d, want=%d", got, want)
	}
	m, ok := buf.Index(2).Measurement()
	if !ok || m.Value() != 1234 || m.Channel() != 3 {
		t.Fatalf("invalid measurement: %v", buf.Index(2))
	}
	if !buf.Back().IsFiller() {
		t.Fatalf("last word should be a filler: %v", buf.Back())
	}
}

func TestTransfer(t *testing.T) {
	tdc, tr := newSim(t, V1290N, WithHandshakeTimeout(time.Second))
	dst := tdc.Transfer()
	if tdc.Owns() || !dst.Owns() {
		t.Fatalf("invalid ownership: src=%v, dst=%v", tdc.Owns(), dst.Owns())
	}
	if dst.Version() != V1290N || dst.cfg.timeout != time.Second {
		t.Fatalf("transfer lost the configuration: %v %v", dst.Version(), dst.cfg.timeout)
	}
	_ = dst.Close()
	if got, want := tr.Closes(), 1; got != want {
		t.Fatalf("invalid number of closes: got=%d, want=%d", got, want)
	}
}
