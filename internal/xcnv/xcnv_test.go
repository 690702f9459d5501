// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xcnv

import (
	"bytes"
	"io"
	"log"
	"path/filepath"
	"reflect"
	"testing"

	"go-hep.org/x/hep/lcio"

	"github.com/go-lpc/caen/daq"
	"github.com/go-lpc/caen/v1290"
	"github.com/go-lpc/caen/v792"
)

func TestRaw2LCIO(t *testing.T) {
	const run = 63
	msg := log.New(io.Discard, "", 0)

	blocks := []daq.Block{
		{
			Kind: daq.KindV792, Geo: 4, Time: 1000,
			Words: []uint32{
				uint32(v792.NewHeader(2, 0, 4)),
				uint32(v792.NewData(100, false, false, 17, 4)),
				uint32(v792.NewData(4095, true, false, 31, 4)),
				uint32(v792.NewEndOfBlock(7, 4)),
				uint32(v792.NewHeader(1, 0, 4)), // continued below
			},
		},
		{
			Kind: daq.KindV1290, Geo: 2, Time: 2000,
			Words: []uint32{
				uint32(v1290.NewGlobalHeader(2, 11)),
				uint32(v1290.NewTDCHeader(10, 11, 0)),
				uint32(v1290.NewMeasurement(1234, 3, false)),
				uint32(v1290.NewMeasurement(1300, 3, true)),
				uint32(v1290.NewTDCTrailer(4, 11, 0)),
				uint32(v1290.NewGlobalTrailer(2, 6, false, false, false)),
				uint32(v1290.Filler),
			},
		},
		{
			Kind: daq.KindV792, Geo: 4, Time: 3000,
			Words: []uint32{
				uint32(v792.NewData(12, false, true, 5, 4)),
				uint32(v792.NewEndOfBlock(8, 4)),
			},
		},
		{
			Kind: daq.KindV1495, Geo: 9, Seq: 5, Time: 4000,
			Words: []uint32{0xdeadbeef, 1},
		},
	}

	raw := new(bytes.Buffer)
	enc := daq.NewEncoder(raw)
	for _, blk := range blocks {
		err := enc.Encode(blk)
		if err != nil {
			t.Fatalf("could not encode block: %+v", err)
		}
	}

	fname := filepath.Join(t.TempDir(), "run.lcio")
	lw, err := lcio.Create(fname)
	if err != nil {
		t.Fatalf("could not create LCIO file: %+v", err)
	}
	defer lw.Close()

	n, err := Raw2LCIO(lw, daq.NewDecoder(raw), run, v792.V792A, msg)
	if err != nil {
		t.Fatalf("could not convert to LCIO: %+v", err)
	}
	if got, want := n, 4; got != want {
		t.Fatalf("invalid number of events: got=%d, want=%d", got, want)
	}

	err = lw.Close()
	if err != nil {
		t.Fatalf("could not close LCIO file: %+v", err)
	}

	lr, err := lcio.Open(fname)
	if err != nil {
		t.Fatalf("could not open LCIO file: %+v", err)
	}
	defer lr.Close()

	type event struct {
		num  int32
		time int64
		coll string
		data [][]int32
	}
	want := []event{
		{7, 1000, V792Hits, [][]int32{{4, 17, 100, 0}, {4, 31, 4095, 1}}},
		{11, 2000, V1290Hits, [][]int32{{2, 3, 1234, 0}, {2, 3, 1300, 1}}},
		{8, 3000, V792Hits, [][]int32{{4, 5, 12, 2}}},
		{5, 4000, "RAW_V1495", [][]int32{{9, int32(-559038737), 1}}},
	}

	i := 0
	for lr.Next() {
		if i >= len(want) {
			t.Fatalf("too many events")
		}
		evt := lr.Event()
		if evt.RunNumber != run || evt.EventNumber != want[i].num || evt.TimeStamp != want[i].time {
			t.Fatalf("invalid event %d: run=%d, num=%d, time=%d", i, evt.RunNumber, evt.EventNumber, evt.TimeStamp)
		}
		obj, ok := evt.Get(want[i].coll).(*lcio.GenericObject)
		if !ok {
			t.Fatalf("event %d: could not find collection %q", i, want[i].coll)
		}
		var got [][]int32
		for _, d := range obj.Data {
			got = append(got, d.I32s)
		}
		if !reflect.DeepEqual(got, want[i].data) {
			t.Fatalf("event %d: invalid data:\ngot= %v\nwant=%v", i, got, want[i].data)
		}
		i++
	}
	if err := lr.Err(); err != nil && err != io.EOF {
		t.Fatalf("could not read LCIO file: %+v", err)
	}
	if i != len(want) {
		t.Fatalf("invalid number of read events: got=%d, want=%d", i, len(want))
	}
}

func TestRaw2LCIOCorrupted(t *testing.T) {
	raw := new(bytes.Buffer)
	err := daq.NewEncoder(raw).Encode(daq.Block{Kind: daq.KindV792, Words: []uint32{1, 2}})
	if err != nil {
		t.Fatalf("could not encode block: %+v", err)
	}
	p := raw.Bytes()
	p[len(p)-1] ^= 0xff

	lw, err := lcio.Create(filepath.Join(t.TempDir(), "bad.lcio"))
	if err != nil {
		t.Fatalf("could not create LCIO file: %+v", err)
	}
	defer lw.Close()

	_, err = Raw2LCIO(lw, daq.NewDecoder(bytes.NewReader(p)), 1, v792.V792A, log.New(io.Discard, "", 0))
	if err == nil {
		t.Fatalf("expected an error")
	}
}
