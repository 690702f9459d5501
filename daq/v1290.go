// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package daq

import (
	"github.com/go-lpc/caen/v1290"
)

// TDCEvent is the data of one TDC chip within a V1290 event.
type TDCEvent struct {
	TDC          uint8
	Event        uint16
	Bunch        uint16
	NWords       uint16 // from the chip trailer
	Measurements []v1290.Measurement
	Errors       []v1290.InternalErrors
}

// V1290Event is an event of a V1290 board.
//
// Measurements and Errors hold the words emitted outside of a TDC header
// and trailer pair, when the board does not write chip headers.
type V1290Event struct {
	Geo          uint8
	Event        uint32
	TDCs         []TDCEvent
	Measurements []v1290.Measurement
	Errors       []v1290.InternalErrors
	TimeTag      uint32
	HasTimeTag   bool
	Trailer      v1290.GlobalTrailer
}

// Hits returns all the measurements of the event.
func (evt *V1290Event) Hits() []v1290.Measurement {
	n := len(evt.Measurements)
	for _, tdc := range evt.TDCs {
		n += len(tdc.Measurements)
	}
	out := make([]v1290.Measurement, 0, n)
	for _, tdc := range evt.TDCs {
		out = append(out, tdc.Measurements...)
	}
	return append(out, evt.Measurements...)
}

// V1290Assembler groups V1290 packets into events.
//
// The assembler keeps its state across calls: an event split over two
// readouts is completed by the second one.
type V1290Assembler struct {
	Stats Stats

	evt  *V1290Event
	chip int // index of the open chip in evt.TDCs, or -1
}

// NewV1290Assembler returns a new assembler.
func NewV1290Assembler() *V1290Assembler {
	return &V1290Assembler{chip: -1}
}

// Add feeds p to the assembler. Add returns the completed event and true
// when p is a global trailer closing an event.
func (asm *V1290Assembler) Add(p v1290.Packet) (V1290Event, bool) {
	typ := p.Type()
	switch {
	case typ == v1290.TypeFiller:
		asm.Stats.Fillers++
		return V1290Event{}, false
	case !typ.Known():
		asm.Stats.Unknown++
		return V1290Event{}, false
	case typ == v1290.TypeGlobalHeader:
		if asm.evt != nil {
			asm.Stats.Orphans++
		}
		hdr := v1290.GlobalHeader(p)
		asm.evt = &V1290Event{Geo: hdr.Geo(), Event: hdr.Event()}
		asm.chip = -1
		return V1290Event{}, false
	case asm.evt == nil:
		asm.Stats.Orphans++
		return V1290Event{}, false
	}

	evt := asm.evt
	switch typ {
	case v1290.TypeTDCHeader:
		hdr := v1290.TDCHeader(p)
		evt.TDCs = append(evt.TDCs, TDCEvent{
			TDC:   hdr.TDC(),
			Event: hdr.Event(),
			Bunch: hdr.Bunch(),
		})
		asm.chip = len(evt.TDCs) - 1

	case v1290.TypeMeasurement:
		m := v1290.Measurement(p)
		if asm.chip >= 0 {
			tdc := &evt.TDCs[asm.chip]
			tdc.Measurements = append(tdc.Measurements, m)
			break
		}
		evt.Measurements = append(evt.Measurements, m)

	case v1290.TypeTDCError:
		e := v1290.TDCError(p)
		if asm.chip >= 0 {
			tdc := &evt.TDCs[asm.chip]
			tdc.Errors = append(tdc.Errors, e.Errors())
			break
		}
		evt.Errors = append(evt.Errors, e.Errors())

	case v1290.TypeTDCTrailer:
		tr := v1290.TDCTrailer(p)
		if asm.chip < 0 || evt.TDCs[asm.chip].TDC != tr.TDC() {
			asm.Stats.Orphans++
			break
		}
		evt.TDCs[asm.chip].NWords = tr.NWords()
		asm.chip = -1

	case v1290.TypeETTT:
		evt.TimeTag = v1290.ETTT(p).Value()
		evt.HasTimeTag = true

	case v1290.TypeGlobalTrailer:
		evt.Trailer = v1290.GlobalTrailer(p)
		asm.evt = nil
		asm.chip = -1
		asm.Stats.Events++
		return *evt, true
	}
	return V1290Event{}, false
}

// AddWords feeds the words of a readout to the assembler and calls f with
// each completed event. AddWords stops at the first error returned by f.
func (asm *V1290Assembler) AddWords(words []uint32, f func(evt V1290Event) error) error {
	for _, w := range words {
		evt, ok := asm.Add(v1290.Packet(w))
		if !ok {
			continue
		}
		err := f(evt)
		if err != nil {
			return err
		}
	}
	return nil
}

// Pending reports whether an event is being assembled.
func (asm *V1290Assembler) Pending() bool { return asm.evt != nil }

// Reset drops the event being assembled.
func (asm *V1290Assembler) Reset() {
	if asm.evt != nil {
		asm.Stats.Orphans++
	}
	asm.evt = nil
	asm.chip = -1
}
