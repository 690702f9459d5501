// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hv

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/go-lpc/caen"
	"github.com/go-lpc/caen/comm"
	"github.com/go-lpc/caen/comm/sim"
)

var conn = caen.Connection{Link: 0, Address: 0x4000}

func setString(tr *sim.Device, addr uint32, size int, s string) {
	buf := make([]byte, size)
	copy(buf, s)
	for i := 0; i < size; i += 2 {
		tr.Set(addr+uint32(i), uint32(buf[i])|uint32(buf[i+1])<<8)
	}
}

func newSim(t *testing.T, model Model) (*Board, *sim.Device) {
	t.Helper()
	tr := sim.New(conn)
	setString(tr, 0x8116, 8, model.String())
	brd, err := New(comm.NewDevice(tr, conn, true), model)
	if err != nil {
		t.Fatalf("could not create %v: %+v", model, err)
	}
	t.Cleanup(func() { _ = brd.Close() })
	tr.ResetLog()
	return brd, tr
}

func TestNew(t *testing.T) {
	tr := sim.New(conn)
	setString(tr, 0x8116, 8, "V6534")
	setString(tr, 0x8102, 20, "6 Ch 6KV/1mA")

	brd, err := New(comm.NewDevice(tr, conn, false), V6534)
	if err != nil {
		t.Fatalf("could not create V6534: %+v", err)
	}
	if got, want := brd.Kind(), "V6534"; got != want {
		t.Fatalf("invalid kind: got=%q, want=%q", got, want)
	}
	desc, err := brd.Description()
	if err != nil {
		t.Fatalf("could not read description: %+v", err)
	}
	if got, want := desc, "6 Ch 6KV/1mA"; got != want {
		t.Fatalf("invalid description: got=%q, want=%q", got, want)
	}

	_, err = New(comm.NewDevice(tr, conn, false), V6533)
	var wrong *comm.WrongDeviceError
	if !errors.As(err, &wrong) {
		t.Fatalf("expected a wrong device error, got: %+v", err)
	}
	if got, want := err.Error(), "Device connected through VME address 0x4000 is not a V6533"; got != want {
		t.Fatalf("invalid error:\ngot= %q\nwant=%q", got, want)
	}

	m, err := ParseModel("v6533")
	if err != nil || m != V6533 {
		t.Fatalf("invalid model: got=%v, err=%+v", m, err)
	}
	_, err = ParseModel("V6535")
	if err == nil {
		t.Fatalf("expected an error")
	}
}

func TestChannelRange(t *testing.T) {
	brd, tr := newSim(t, V6534)

	for _, ch := range []int{-1, Channels, 42} {
		_, err := brd.VMon(ch)
		if err == nil {
			t.Fatalf("expected an error for channel %d", ch)
		}
		err = brd.SetPower(ch, true)
		if err == nil {
			t.Fatalf("expected an error for channel %d", ch)
		}
	}
	_, err := brd.VMon(6)
	if got, want := err.Error(), "hv: bad channel: 6"; got != want {
		t.Fatalf("invalid error: got=%q, want=%q", got, want)
	}
	if got := tr.Accesses(); len(got) != 0 {
		t.Fatalf("unexpected accesses: %v", got)
	}
}

func TestSettings(t *testing.T) {
	for _, tc := range []struct {
		model Model
		volts float64
		vset  uint16
		amps  float64
		iset  uint16
	}{
		{V6533, 100, 1000, 1e-6, 20},
		{V6533, 5000, 40000, 1, 62000},
		{V6534, 2500.06, 25001, 1e-6, 50},
		{V6534, -10, 0, -1, 0},
		{V6534, 7000, 60000, 2e-3, 52500},
	} {
		t.Run(tc.model.String(), func(t *testing.T) {
			brd, tr := newSim(t, tc.model)
			err := brd.SetVoltage(2, tc.volts)
			if err != nil {
				t.Fatalf("could not set voltage: %+v", err)
			}
			if got, want := tr.Get(0x80*2+0x80), uint32(tc.vset); got != want {
				t.Fatalf("invalid vset: got=%d, want=%d", got, want)
			}
			err = brd.SetCurrent(2, tc.amps)
			if err != nil {
				t.Fatalf("could not set current: %+v", err)
			}
			if got, want := tr.Get(0x80*2+0x84), uint32(tc.iset); got != want {
				t.Fatalf("invalid iset: got=%d, want=%d", got, want)
			}
		})
	}
}

func TestCurrent(t *testing.T) {
	brd, tr := newSim(t, V6534)

	tr.Set(0x80*3+0x8C, 100) // high range
	tr.Set(0x80*3+0xB8, 100) // low range

	cur, err := brd.Current(3)
	if err != nil {
		t.Fatalf("could not read current: %+v", err)
	}
	if got, want := cur, 2e-6; math.Abs(got-want) > 1e-12 {
		t.Fatalf("invalid high range current: got=%g, want=%g", got, want)
	}

	err = brd.SetIMonRange(3, IMonLow)
	if err != nil {
		t.Fatalf("could not set range: %+v", err)
	}
	cur, err = brd.Current(3)
	if err != nil {
		t.Fatalf("could not read current: %+v", err)
	}
	if got, want := cur, 0.2e-6; math.Abs(got-want) > 1e-12 {
		t.Fatalf("invalid low range current: got=%g, want=%g", got, want)
	}
}

func TestTrip(t *testing.T) {
	brd, tr := newSim(t, V6533)

	for _, tc := range []struct {
		v    float64
		code uint16
		back float64
	}{
		{0.5, 5, 0.5},
		{12.3, 123, 12.3},
		{999.9, 9999, 999.9},
		{1000, InfiniteTrip, math.Inf(+1)},
		{math.Inf(+1), InfiniteTrip, math.Inf(+1)},
	} {
		err := brd.SetTrip(1, tc.v)
		if err != nil {
			t.Fatalf("could not set trip: %+v", err)
		}
		if got, want := tr.Get(0x80+0x98), uint32(tc.code); got != want {
			t.Fatalf("trip=%v: invalid code: got=%d, want=%d", tc.v, got, want)
		}
		got, err := brd.Trip(1)
		if err != nil {
			t.Fatalf("could not read trip: %+v", err)
		}
		if want := tc.back; !(got == want || math.Abs(got-want) < 1e-9) {
			t.Fatalf("trip=%v: invalid round trip: got=%v, want=%v", tc.v, got, want)
		}
	}
}

func TestRegisters(t *testing.T) {
	brd, tr := newSim(t, V6534)

	err := brd.SetRampUp(0, 1000)
	if err != nil {
		t.Fatalf("could not set ramp up: %+v", err)
	}
	if got, want := tr.Get(0xA4), uint32(MaxRamp); got != want {
		t.Fatalf("invalid ramp up: got=%d, want=%d", got, want)
	}

	err = brd.SetPowerDown(5, Ramp)
	if err != nil {
		t.Fatalf("could not set power down: %+v", err)
	}
	pd, err := brd.PowerDown(5)
	if err != nil || pd != Ramp {
		t.Fatalf("invalid power down: got=%v, err=%+v", pd, err)
	}

	tr.Set(0x80*4+0xAC, 0)
	pol, err := brd.Polarity(4)
	if err != nil || pol != -1 {
		t.Fatalf("invalid polarity: got=%d, err=%+v", pol, err)
	}

	tr.Set(0x80*4+0xB0, 0xfffb)
	temp, err := brd.Temperature(4)
	if err != nil || temp != -5 {
		t.Fatalf("invalid temperature: got=%d, err=%+v", temp, err)
	}

	tr.Set(0x0054, 1000)
	imax, err := brd.CurrentHWMax()
	if err != nil || math.Abs(imax-1e-3) > 1e-12 {
		t.Fatalf("invalid hw max current: got=%g, err=%+v", imax, err)
	}
}

func TestRead(t *testing.T) {
	brd, tr := newSim(t, V6534)

	base := uint32(0x80 * 1)
	tr.Set(base+0x90, 1)
	tr.Set(base+0x94, uint32(StatusOn|StatusRampUp))
	tr.Set(base+0x80, 12000)
	tr.Set(base+0x84, 500)
	tr.Set(base+0x88, 11000)
	tr.Set(base+0x8C, 250)
	tr.Set(base+0xB0, 31)

	r, err := brd.Read(1)
	if err != nil {
		t.Fatalf("could not read channel: %+v", err)
	}
	want := Reading{
		Channel:     1,
		Power:       true,
		Status:      StatusOn | StatusRampUp,
		VSet:        1200,
		ISet:        10e-6,
		Voltage:     1100,
		Current:     5e-6,
		Temperature: 31,
	}
	const eps = 1e-9
	if r.Channel != want.Channel || r.Power != want.Power || r.Status != want.Status ||
		r.Temperature != want.Temperature ||
		math.Abs(r.VSet-want.VSet) > eps || math.Abs(r.ISet-want.ISet) > eps ||
		math.Abs(r.Voltage-want.Voltage) > eps || math.Abs(r.Current-want.Current) > eps {
		t.Fatalf("invalid reading:\ngot= %+v\nwant=%+v", r, want)
	}

	tr.Fail(0x80*4+0x90, comm.Error{Code: comm.CommTimeout})
	rs, err := brd.ReadAll()
	if !errors.Is(err, comm.Error{Code: comm.CommTimeout}) {
		t.Fatalf("expected a timeout, got: %+v", err)
	}
	if got, want := len(rs), 4; got != want {
		t.Fatalf("invalid number of readings: got=%d, want=%d", got, want)
	}
}

func TestStatus(t *testing.T) {
	for _, tc := range []struct {
		s     ChannelStatus
		alarm bool
		want  []string
		str   string
	}{
		{0, false, nil, "off"},
		{StatusOn, false, []string{"on"}, "on"},
		{StatusOn | StatusTrip, true, []string{"on", "trip"}, "on|trip"},
		{StatusOverCurrent | StatusMaxI, true, []string{"over-current", "maxi"}, "over-current|maxi"},
		{StatusUncalibrated | 0xC000, false, []string{"uncalibrated"}, "uncalibrated"},
	} {
		if got, want := tc.s.Alarm(), tc.alarm; got != want {
			t.Fatalf("0x%x: invalid alarm: got=%v, want=%v", uint16(tc.s), got, want)
		}
		if got, want := tc.s.Names(), tc.want; !reflect.DeepEqual(got, want) {
			t.Fatalf("0x%x: invalid names: got=%q, want=%q", uint16(tc.s), got, want)
		}
		if got, want := tc.s.String(), tc.str; got != want {
			t.Fatalf("0x%x: invalid string: got=%q, want=%q", uint16(tc.s), got, want)
		}
	}

	bs := BoardStatus(0b1000_0010_0001)
	if !bs.ChannelAlarm(0) || !bs.ChannelAlarm(5) || bs.ChannelAlarm(1) || bs.ChannelAlarm(6) {
		t.Fatalf("invalid channel alarms: %v", bs)
	}
	if got, want := bs.Alarms(), uint8(0b100001); got != want {
		t.Fatalf("invalid alarms: got=0b%b, want=0b%b", got, want)
	}
	if !bs.MaxIUncal() || bs.PowerFail() || !bs.Failure() {
		t.Fatalf("invalid board flags: %v", bs)
	}
	if got, want := bs.String(), "alarm-0|alarm-5|maxi-uncal"; got != want {
		t.Fatalf("invalid string: got=%q, want=%q", got, want)
	}
}
