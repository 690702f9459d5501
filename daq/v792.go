// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package daq

import (
	"github.com/go-lpc/caen/v792"
)

// V792Hit is a converted channel of a V792 event.
type V792Hit struct {
	Channel   uint8
	Value     uint16
	Overflow  bool
	Underflow bool
}

// V792Event is an event of a V792 board.
type V792Event struct {
	Geo   uint8
	Crate uint8
	Count uint8 // number of data words announced by the header
	Event uint32
	Hits  []V792Hit
}

// V792Assembler groups V792 packets into events.
//
// Data words are decoded with the layout of the board model.
type V792Assembler struct {
	Stats Stats

	model v792.Model
	evt   *V792Event
}

// NewV792Assembler returns a new assembler for boards of the given model.
func NewV792Assembler(model v792.Model) *V792Assembler {
	return &V792Assembler{model: model}
}

// Model returns the board model the assembler decodes.
func (asm *V792Assembler) Model() v792.Model { return asm.model }

func (asm *V792Assembler) hit(p v792.Packet) V792Hit {
	if asm.model == v792.V792N {
		d := v792.NData(p)
		return V792Hit{Channel: d.Channel(), Value: d.Value(), Overflow: d.Overflow(), Underflow: d.Underflow()}
	}
	d := v792.Data(p)
	return V792Hit{Channel: d.Channel(), Value: d.Value(), Overflow: d.Overflow(), Underflow: d.Underflow()}
}

// Add feeds p to the assembler. Add returns the completed event and true
// when p is an end of block closing an event.
func (asm *V792Assembler) Add(p v792.Packet) (V792Event, bool) {
	switch p.Type() {
	case v792.TypeInvalid:
		asm.Stats.Fillers++

	case v792.TypeHeader:
		if asm.evt != nil {
			asm.Stats.Orphans++
		}
		hdr := v792.Header(p)
		asm.evt = &V792Event{
			Geo:   hdr.Geo(),
			Crate: hdr.Crate(),
			Count: hdr.Count(),
			Hits:  make([]V792Hit, 0, hdr.Count()),
		}

	case v792.TypeData:
		if asm.evt == nil {
			asm.Stats.Orphans++
			break
		}
		asm.evt.Hits = append(asm.evt.Hits, asm.hit(p))

	case v792.TypeEndOfBlock:
		if asm.evt == nil {
			asm.Stats.Orphans++
			break
		}
		evt := asm.evt
		evt.Event = v792.EndOfBlock(p).Event()
		asm.evt = nil
		asm.Stats.Events++
		return *evt, true

	default:
		asm.Stats.Unknown++
	}
	return V792Event{}, false
}

// AddWords feeds the words of a readout to the assembler and calls f with
// each completed event. AddWords stops at the first error returned by f.
func (asm *V792Assembler) AddWords(words []uint32, f func(evt V792Event) error) error {
	for _, w := range words {
		evt, ok := asm.Add(v792.Packet(w))
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
func (asm *V792Assembler) Pending() bool { return asm.evt != nil }
