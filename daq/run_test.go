// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package daq

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"reflect"
	"testing"
	"time"

	"github.com/go-lpc/caen"
	"github.com/go-lpc/caen/comm"
	"github.com/go-lpc/caen/comm/sim"
	"github.com/go-lpc/caen/v1495"
	"github.com/go-lpc/caen/v792"
)

var discard = log.New(io.Discard, "", 0)

func newV792(t *testing.T, geo uint8, words ...uint32) Source {
	t.Helper()
	conn := caen.Connection{Bridge: caen.V2718, Conet: caen.A3818, Address: 0x1100}
	tr := sim.New(conn)
	tr.SetComposite(0x8026, 3, 4, comm.OUI)
	tr.SetComposite(0x8036, 3, 4, v792.ID)
	tr.Set(0x8032, 0xE1)
	tr.Set(0x1002, uint32(geo))
	tr.Push(0, words...)

	adc, err := v792.New(comm.NewDevice(tr, conn, true))
	if err != nil {
		t.Fatalf("could not create V792: %+v", err)
	}
	t.Cleanup(func() { _ = adc.Close() })

	src, err := V792Source(adc)
	if err != nil {
		t.Fatalf("could not create source: %+v", err)
	}
	return src
}

func newV1495(t *testing.T, geo uint8, words ...uint32) Source {
	t.Helper()
	conn := caen.Connection{Bridge: caen.V2718, Conet: caen.A3818, Address: 0x3210}
	tr := sim.New(conn)
	tr.Set(0x8008, 0xE0|uint32(geo))
	tr.Push(0, words...)

	brd := v1495.New(comm.NewDevice(tr, conn, true))
	t.Cleanup(func() { _ = brd.Close() })

	src, err := V1495Source(brd)
	if err != nil {
		t.Fatalf("could not create source: %+v", err)
	}
	return src
}

func TestRun(t *testing.T) {
	adcWords := []uint32{
		uint32(v792.NewHeader(1, 0, 4)),
		uint32(v792.NewNData(321, false, false, 9, 4)),
		uint32(v792.NewEndOfBlock(1, 4)),
	}
	srcs := []Source{
		newV792(t, 4, adcWords...),
		newV1495(t, 7, 0xdead, 0xbeef),
	}
	if got, want := srcs[0].Name, "V792N V2718 via A3818, VME address 0x1100"; got != want {
		t.Fatalf("invalid source name: got=%q, want=%q", got, want)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	buf := new(bytes.Buffer)
	stats, err := Run(ctx, buf, srcs, WithMaxBlocks(2), WithInterval(time.Millisecond), WithLogger(discard))
	if err != nil {
		t.Fatalf("could not run: %+v", err)
	}
	if got, want := stats, (RunStats{
		Blocks: 2, Words: 5,
		Kinds: map[Kind]int{KindV792: 1, KindV1495: 1},
	}); !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid stats:\ngot= %+v\nwant=%+v", got, want)
	}

	dec := NewDecoder(buf)
	var blk Block
	err = dec.Decode(&blk)
	if err != nil {
		t.Fatalf("could not decode block: %+v", err)
	}
	if blk.Kind != KindV792 || blk.Geo != 4 || blk.Seq != 0 || !reflect.DeepEqual(blk.Words, adcWords) {
		t.Fatalf("invalid V792 block: %+v", blk)
	}

	asm := NewV792Assembler(v792.V792N)
	var evts []V792Event
	_ = asm.AddWords(blk.Words, func(evt V792Event) error {
		evts = append(evts, evt)
		return nil
	})
	if len(evts) != 1 || !reflect.DeepEqual(evts[0].Hits, []V792Hit{{Channel: 9, Value: 321}}) {
		t.Fatalf("invalid events: %+v", evts)
	}

	err = dec.Decode(&blk)
	if err != nil {
		t.Fatalf("could not decode block: %+v", err)
	}
	if blk.Kind != KindV1495 || blk.Geo != 7 || !reflect.DeepEqual(blk.Words, []uint32{0xdead, 0xbeef}) {
		t.Fatalf("invalid V1495 block: %+v", blk)
	}

	err = dec.Decode(&blk)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("invalid end of stream: %+v", err)
	}
}

func TestRunCancel(t *testing.T) {
	var (
		ctx, cancel = context.WithCancel(context.Background())
		polls       = 0
		src         = Source{
			Name: "empty",
			Kind: KindV1290,
			Size: 16,
			Read: func(buf []uint32) (int, error) {
				polls++
				if polls == 3 {
					cancel()
				}
				return 0, nil
			},
		}
	)
	defer cancel()

	stats, err := Run(ctx, io.Discard, []Source{src}, WithInterval(time.Millisecond), WithLogger(discard))
	if err != nil {
		t.Fatalf("cancellation should not be an error: %+v", err)
	}
	if stats.Blocks != 0 {
		t.Fatalf("invalid number of blocks: %d", stats.Blocks)
	}
	if polls < 3 {
		t.Fatalf("invalid number of polls: %d", polls)
	}
}

func TestRunErrors(t *testing.T) {
	errBoard := errors.New("board failure")

	t.Run("source", func(t *testing.T) {
		src := Source{
			Name: "bad",
			Kind: KindV1290,
			Geo:  3,
			Size: 16,
			Read: func(buf []uint32) (int, error) { return 0, errBoard },
		}
		_, err := Run(context.Background(), io.Discard, []Source{src}, WithLogger(discard))
		if !errors.Is(err, errBoard) {
			t.Fatalf("invalid error: %+v", err)
		}
		if got, want := err.Error(), "daq: could not read out bad (geo=3): board failure"; got != want {
			t.Fatalf("invalid error:\ngot= %q\nwant=%q", got, want)
		}
	})

	t.Run("writer", func(t *testing.T) {
		src := Source{
			Name: "busy",
			Kind: KindV1290,
			Size: 4,
			Read: func(buf []uint32) (int, error) { return copy(buf, []uint32{1, 2}), nil },
		}
		_, err := Run(context.Background(), failWriter{}, []Source{src}, WithInterval(time.Millisecond), WithLogger(discard))
		if !errors.Is(err, io.ErrShortWrite) {
			t.Fatalf("invalid error: %+v", err)
		}
	})

	t.Run("no-source", func(t *testing.T) {
		_, err := Run(context.Background(), io.Discard, nil)
		if err == nil {
			t.Fatalf("expected an error")
		}
	})
}

func TestSourceOf(t *testing.T) {
	conn := caen.Connection{Address: 0x3210}
	tr := sim.New(conn)
	tr.Set(0x8008, 5)
	brd := v1495.New(comm.NewDevice(tr, conn, true))
	defer brd.Close()

	src, ok, err := SourceOf(brd)
	if err != nil || !ok {
		t.Fatalf("could not create source: ok=%v, err=%+v", ok, err)
	}
	if got, want := src.Kind, KindV1495; got != want {
		t.Fatalf("invalid kind: got=%v, want=%v", got, want)
	}
	if got, want := src.Geo, uint8(5); got != want {
		t.Fatalf("invalid geo: got=%d, want=%d", got, want)
	}

	_, ok, err = SourceOf(io.NopCloser(nil))
	if err != nil || ok {
		t.Fatalf("invalid source of a non board: ok=%v, err=%+v", ok, err)
	}

	tr.Fail(0x8008, errors.New("bus error"))
	_, ok, err = SourceOf(brd)
	if err == nil || ok {
		t.Fatalf("expected an error: ok=%v, err=%+v", ok, err)
	}
}
