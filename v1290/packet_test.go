// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package v1290

import "testing"

func TestPacketType(t *testing.T) {
	for _, tc := range []struct {
		p    Packet
		want Type
	}{
		{Packet(NewGlobalHeader(5, 42)), TypeGlobalHeader},
		{Packet(NewTDCHeader(0xfff, 12, 3)), TypeTDCHeader},
		{Packet(NewMeasurement(0x1fffff, 31, true)), TypeMeasurement},
		{Packet(NewTDCTrailer(10, 12, 3)), TypeTDCTrailer},
		{Packet(NewTDCError(0x7fff, 2)), TypeTDCError},
		{Packet(NewGlobalTrailer(5, 100, true, true, true)), TypeGlobalTrailer},
		{Packet(NewETTT(0x7ffffff)), TypeETTT},
		{Filler, TypeFiller},
	} {
		t.Run(tc.want.String(), func(t *testing.T) {
			if got := tc.p.Type(); got != tc.want {
				t.Fatalf("invalid type of 0x%08x: got=%v, want=%v", uint32(tc.p), got, tc.want)
			}
			if !tc.p.Type().Known() {
				t.Fatalf("type %v should be known", tc.p.Type())
			}
		})
	}

	if got, want := uint32(Filler), uint32(0xC0000000); got != want {
		t.Fatalf("invalid filler: got=0x%x, want=0x%x", got, want)
	}
	if !Filler.IsFiller() {
		t.Fatalf("filler not recognized")
	}

	unknown := Packet(0b00010 << 27)
	if unknown.Type().Known() {
		t.Fatalf("type %v should not be known", unknown.Type())
	}
	if got, want := unknown.String(), "unknown(0b00010)(0x10000000)"; got != want {
		t.Fatalf("invalid string:\ngot= %q\nwant=%q", got, want)
	}
}

func TestProjections(t *testing.T) {
	p := Packet(NewMeasurement(1000, 7, false))
	if _, ok := p.GlobalHeader(); ok {
		t.Fatalf("measurement projected to a global header")
	}
	if _, ok := p.TDCHeader(); ok {
		t.Fatalf("measurement projected to a TDC header")
	}
	if _, ok := p.TDCTrailer(); ok {
		t.Fatalf("measurement projected to a TDC trailer")
	}
	if _, ok := p.TDCError(); ok {
		t.Fatalf("measurement projected to a TDC error")
	}
	if _, ok := p.GlobalTrailer(); ok {
		t.Fatalf("measurement projected to a global trailer")
	}
	if _, ok := p.ETTT(); ok {
		t.Fatalf("measurement projected to an ETTT")
	}
	if _, ok := Filler.Measurement(); ok {
		t.Fatalf("filler projected to a measurement")
	}

	m, ok := p.Measurement()
	if !ok {
		t.Fatalf("could not project %v to a measurement", p)
	}
	if m.Value() != 1000 || m.Channel() != 7 || m.Trailing() {
		t.Fatalf("invalid measurement: %v", m)
	}

	// unchecked views reinterpret the word.
	if got, want := GlobalHeader(Filler).Geo(), uint8(0); got != want {
		t.Fatalf("invalid unchecked geo: got=%d, want=%d", got, want)
	}
}

func TestFields(t *testing.T) {
	gh, _ := Packet(NewGlobalHeader(0x1f, 0x3fffff)).GlobalHeader()
	if gh.Geo() != 0x1f || gh.Event() != 0x3fffff {
		t.Fatalf("invalid global header: %v", gh)
	}

	th, _ := Packet(NewTDCHeader(0xabc, 0x123, 2)).TDCHeader()
	if th.Bunch() != 0xabc || th.Event() != 0x123 || th.TDC() != 2 {
		t.Fatalf("invalid TDC header: %v", th)
	}

	m, _ := Packet(NewMeasurement(0x1fffff, 31, true)).Measurement()
	if m.Value() != 0x1fffff || m.Channel() != 31 || !m.Trailing() {
		t.Fatalf("invalid measurement: %v", m)
	}

	tt, _ := Packet(NewTDCTrailer(0xfff, 0x123, 3)).TDCTrailer()
	if tt.NWords() != 0xfff || tt.Event() != 0x123 || tt.TDC() != 3 {
		t.Fatalf("invalid TDC trailer: %v", tt)
	}

	var errs InternalErrors
	errs.SetVernier(true)
	errs.SetJTAG(true)
	te, _ := Packet(NewTDCError(errs, 1)).TDCError()
	if !te.Errors().Vernier() || !te.Errors().JTAG() || te.Errors().Coarse() || te.TDC() != 1 {
		t.Fatalf("invalid TDC error: %v", te)
	}

	gt, _ := Packet(NewGlobalTrailer(3, 0xffff, false, true, false)).GlobalTrailer()
	if gt.Geo() != 3 || gt.NWords() != 0xffff || gt.Errors() || !gt.Overflow() || gt.TriggerLost() {
		t.Fatalf("invalid global trailer: %v", gt)
	}
	gt, _ = Packet(NewGlobalTrailer(0, 0, false, false, true)).GlobalTrailer()
	if !gt.TriggerLost() || gt.Overflow() {
		t.Fatalf("invalid global trailer: %v", gt)
	}

	e, _ := Packet(NewETTT(0x7ffffff)).ETTT()
	if e.Value() != 0x7ffffff {
		t.Fatalf("invalid ETTT: %v", e)
	}

	if got, want := Packet(NewMeasurement(12, 3, true)).String(), "measurement{channel=3, value=12, trailing=true}"; got != want {
		t.Fatalf("invalid string:\ngot= %q\nwant=%q", got, want)
	}
}

func TestRegisters(t *testing.T) {
	var c Control
	c.SetETTTEnabled(true)
	if got, want := uint16(c), uint16(0x0A00); got != want {
		t.Fatalf("invalid control: got=0x%x, want=0x%x", got, want)
	}
	if !c.ETTTEnabled() {
		t.Fatalf("ETTT should be enabled")
	}
	c.SetBusErrorEnabled(true)
	c.SetETTTEnabled(false)
	if got, want := uint16(c), uint16(0x0001); got != want {
		t.Fatalf("invalid control: got=0x%x, want=0x%x", got, want)
	}

	s := Status(0b11<<12 | 1<<14 | 0b1010<<6)
	if got, want := s.Resolution(), 25e-12; got != want {
		t.Fatalf("invalid resolution: got=%v, want=%v", got, want)
	}
	if !s.PairMode() || s.TriggerLost() {
		t.Fatalf("invalid status bits: 0x%x", uint16(s))
	}
	if got, want := s.TDCError(), uint8(0b1010); got != want {
		t.Fatalf("invalid TDC error: got=0x%x, want=0x%x", got, want)
	}

	for _, tc := range []struct {
		leading, trailing bool
		want              uint16
		pair              bool
	}{
		{false, false, 0, false},
		{false, true, 1, false},
		{true, false, 2, false},
		{true, true, 3, true},
	} {
		e := NewEdgeDetection(tc.leading, tc.trailing)
		if uint16(e) != tc.want || e.PairMode() != tc.pair {
			t.Fatalf("invalid edge detection (%v, %v): got=%d (pair=%v)", tc.leading, tc.trailing, uint16(e), e.PairMode())
		}
	}

	h := MicroHandshake(2)
	if h.WriteOK() || !h.ReadOK() {
		t.Fatalf("invalid handshake: 0x%x", uint16(h))
	}
}
