// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xcnv

import (
	"errors"
	"fmt"
	"io"
	"log"

	"go-hep.org/x/hep/lcio"

	"github.com/go-lpc/caen/daq"
	"github.com/go-lpc/caen/v792"
)

const detector = "CAEN"

// Collection names of the LCIO events.
const (
	V792Hits  = "V792"
	V1290Hits = "V1290"
	RawPrefix = "RAW_"
)

// Raw2LCIO converts the blocks read from dec into LCIO events.
//
// V792 and V1290 blocks are assembled into events holding one generic
// object per hit: {geo, channel, value, flags}. The flags of a V792 hit
// are 1 for an overflow and 2 for an underflow, the flag of a V1290 hit is
// 1 for a trailing edge. The blocks of the other boards are stored as is,
// one event per block.
//
// Raw2LCIO returns the number of written events.
func Raw2LCIO(w *lcio.Writer, dec *daq.Decoder, run int32, model v792.Model, msg *log.Logger) (int, error) {
	cnv := converter{
		w:     w,
		run:   run,
		model: model,
		msg:   msg,
		adcs:  make(map[uint8]*daq.V792Assembler),
		tdcs:  make(map[uint8]*daq.V1290Assembler),
	}

	err := w.WriteRunHeader(&lcio.RunHeader{
		RunNumber: run,
		Detector:  detector,
		Descr:     "CAEN raw readout",
		Params: lcio.Params{
			Strings: map[string][]string{
				"V792Model": {model.String()},
			},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("could not write run header: %w", err)
	}

	var blk daq.Block
	for i := 0; ; i++ {
		if i%1000 == 0 {
			msg.Printf("processing block %d...", i)
		}
		err := dec.Decode(&blk)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return cnv.n, fmt.Errorf("could not decode block %d: %w", i, err)
		}

		err = cnv.convert(blk)
		if err != nil {
			return cnv.n, err
		}
	}

	cnv.summary()
	return cnv.n, nil
}

type converter struct {
	w     *lcio.Writer
	run   int32
	model v792.Model
	msg   *log.Logger
	n     int

	adcs map[uint8]*daq.V792Assembler
	tdcs map[uint8]*daq.V1290Assembler
}

func (cnv *converter) convert(blk daq.Block) error {
	switch blk.Kind {
	case daq.KindV792:
		asm, ok := cnv.adcs[blk.Geo]
		if !ok {
			asm = daq.NewV792Assembler(cnv.model)
			cnv.adcs[blk.Geo] = asm
		}
		return asm.AddWords(blk.Words, func(evt daq.V792Event) error {
			return cnv.writeV792(blk, evt)
		})

	case daq.KindV1290:
		asm, ok := cnv.tdcs[blk.Geo]
		if !ok {
			asm = daq.NewV1290Assembler()
			cnv.tdcs[blk.Geo] = asm
		}
		return asm.AddWords(blk.Words, func(evt daq.V1290Event) error {
			return cnv.writeV1290(blk, evt)
		})

	default:
		return cnv.writeRaw(blk)
	}
}

func (cnv *converter) event(blk daq.Block, num int32) lcio.Event {
	return lcio.Event{
		RunNumber:   cnv.run,
		EventNumber: num,
		TimeStamp:   blk.Time,
		Detector:    detector,
	}
}

func (cnv *converter) write(evt *lcio.Event) error {
	err := cnv.w.WriteEvent(evt)
	if err != nil {
		return fmt.Errorf("could not write LCIO event: %w", err)
	}
	cnv.n++
	return nil
}

func (cnv *converter) writeV792(blk daq.Block, evt daq.V792Event) error {
	hits := &lcio.GenericObject{
		Data: make([]lcio.GenericObjectData, len(evt.Hits)),
	}
	for i, hit := range evt.Hits {
		var flags int32
		if hit.Overflow {
			flags |= 1
		}
		if hit.Underflow {
			flags |= 2
		}
		hits.Data[i].I32s = []int32{
			int32(evt.Geo), int32(hit.Channel), int32(hit.Value), flags,
		}
	}

	lev := cnv.event(blk, int32(evt.Event))
	lev.Add(V792Hits, hits)
	return cnv.write(&lev)
}

func (cnv *converter) writeV1290(blk daq.Block, evt daq.V1290Event) error {
	ms := evt.Hits()
	hits := &lcio.GenericObject{
		Data: make([]lcio.GenericObjectData, len(ms)),
	}
	for i, m := range ms {
		var flags int32
		if m.Trailing() {
			flags = 1
		}
		hits.Data[i].I32s = []int32{
			int32(evt.Geo), int32(m.Channel()), int32(m.Value()), flags,
		}
	}

	lev := cnv.event(blk, int32(evt.Event))
	lev.Add(V1290Hits, hits)
	return cnv.write(&lev)
}

func (cnv *converter) writeRaw(blk daq.Block) error {
	raw := &lcio.GenericObject{
		Data: []lcio.GenericObjectData{
			{I32s: i32sFrom(blk)},
		},
	}
	lev := cnv.event(blk, int32(blk.Seq))
	lev.Add(RawPrefix+blk.Kind.String(), raw)
	return cnv.write(&lev)
}

// i32sFrom returns the geo address followed by the words of blk.
func i32sFrom(blk daq.Block) []int32 {
	out := make([]int32, 1+len(blk.Words))
	out[0] = int32(blk.Geo)
	for i, w := range blk.Words {
		out[i+1] = int32(w)
	}
	return out
}

func (cnv *converter) summary() {
	var st daq.Stats
	for _, asm := range cnv.adcs {
		st = add(st, asm.Stats)
	}
	for _, asm := range cnv.tdcs {
		st = add(st, asm.Stats)
	}
	cnv.msg.Printf(
		"events=%d, fillers=%d, unknown=%d, orphans=%d",
		st.Events, st.Fillers, st.Unknown, st.Orphans,
	)
}

func add(a, b daq.Stats) daq.Stats {
	a.Events += b.Events
	a.Fillers += b.Fillers
	a.Unknown += b.Unknown
	a.Orphans += b.Orphans
	return a
}
