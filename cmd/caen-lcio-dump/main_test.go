// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"path/filepath"
	"strings"
	"testing"

	"go-hep.org/x/hep/lcio"

	"github.com/go-lpc/caen/internal/xcnv"
)

func genLCIO(t *testing.T, fname string) {
	t.Helper()

	w, err := lcio.Create(fname)
	if err != nil {
		t.Fatalf("could not create LCIO file: %+v", err)
	}
	defer w.Close()

	err = w.WriteRunHeader(&lcio.RunHeader{RunNumber: 63, Detector: "CAEN"})
	if err != nil {
		t.Fatalf("could not write run header: %+v", err)
	}

	for i, coll := range []struct {
		name string
		data [][]int32
	}{
		{xcnv.V792Hits, [][]int32{{3, 15, 42, 0}, {3, 16, 4095, 1}}},
		{xcnv.V1290Hits, [][]int32{{2, 5, 1234, 1}}},
		{xcnv.RawPrefix + "V1495", [][]int32{{7, 9, -559038737}}},
	} {
		obj := &lcio.GenericObject{
			Data: make([]lcio.GenericObjectData, len(coll.data)),
		}
		for j, v := range coll.data {
			obj.Data[j].I32s = v
		}
		evt := lcio.Event{
			RunNumber:   63,
			EventNumber: int32(i + 1),
			TimeStamp:   int64(42 + i),
			Detector:    "CAEN",
		}
		evt.Add(coll.name, obj)
		err = w.WriteEvent(&evt)
		if err != nil {
			t.Fatalf("could not write event %d: %+v", i, err)
		}
	}

	err = w.Close()
	if err != nil {
		t.Fatalf("could not close LCIO file: %+v", err)
	}
}

func TestProcess(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "caen_063.slcio")
	genLCIO(t, fname)

	for _, tc := range []struct {
		name  string
		nevts int
		want  string
	}{
		{
			name:  "all",
			nevts: -1,
			want:  `=== run 63, event 1 ===
time:  1970-01-01T00:00:00.000000042Z
V792:  2 hit(s)
  geo= 3 ch=15 value=   42
  geo= 3 ch=16 value= 4095 overflow
=== run 63, event 2 ===
time:  1970-01-01T00:00:00.000000043Z
V1290:  1 hit(s)
  geo= 2 ch= 5 value= 1234 trailing
=== run 63, event 3 ===
time:  1970-01-01T00:00:00.000000044Z
RAW_V1495: 2 word(s)
  geo= 7 0x00000009 0xdeadbeef
`,
		},
		{
			name:  "first",
			nevts: 1,
			want:  `=== run 63, event 1 ===
time:  1970-01-01T00:00:00.000000042Z
V792:  2 hit(s)
  geo= 3 ch=15 value=   42
  geo= 3 ch=16 value= 4095 overflow
`,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			out := new(strings.Builder)
			err := process(out, fname, tc.nevts)
			if err != nil {
				t.Fatalf("could not dump LCIO file: %+v", err)
			}
			if got, want := out.String(), tc.want; got != want {
				t.Fatalf("invalid dump:\ngot:\n%s\nwant:\n%s", got, want)
			}
		})
	}
}

func TestXMain(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "caen_063.slcio")
	genLCIO(t, fname)

	out := new(strings.Builder)
	err := xmain(out, []string{"-n", "2", fname})
	if err != nil {
		t.Fatalf("could not run: %+v", err)
	}
	if got, want := strings.Count(out.String(), "=== run 63"), 2; got != want {
		t.Fatalf("invalid number of events: got=%d, want=%d", got, want)
	}

	err = xmain(out, []string{fname + ".missing"})
	if err == nil {
		t.Fatalf("expected an error")
	}
}

func TestFlags(t *testing.T) {
	for _, tc := range []struct {
		name string
		v    int32
		want string
	}{
		{xcnv.V792Hits, 0, ""},
		{xcnv.V792Hits, 1, " overflow"},
		{xcnv.V792Hits, 3, " overflow,underflow"},
		{xcnv.V1290Hits, 1, " trailing"},
		{xcnv.V1290Hits, 2, ""},
		{"other", 1, ""},
	} {
		if got, want := flags(tc.name, tc.v), tc.want; got != want {
			t.Fatalf("invalid flags(%s, %d): got=%q, want=%q", tc.name, tc.v, got, want)
		}
	}
}
