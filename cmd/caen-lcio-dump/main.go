// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// caen-lcio-dump displays the CAEN hits embedded in LCIO files.
//
// Usage: caen-lcio-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]
//
// Example:
//
//	$> caen-lcio-dump ./caen_063.slcio
//	=== run 63, event 1 ===
//	time:  2024-03-12T10:23:51.000000042Z
//	V792:  1 hit(s)
//	  geo= 3 ch=15 value=   42
//	=== run 63, event 2 ===
//	time:  2024-03-12T10:23:51.000000043Z
//	RAW_V1495: 2 word(s)
//	  geo= 7 0x00000009 0xdeadbeef
//	[...]
package main // import "github.com/go-lpc/caen/cmd/caen-lcio-dump"

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"go-hep.org/x/hep/lcio"

	"github.com/go-lpc/caen/internal/xcnv"
)

const usage = `caen-lcio-dump displays the CAEN hits embedded in LCIO files.

Usage: caen-lcio-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]

Example:

 $> caen-lcio-dump ./caen_063.slcio
 === run 63, event 1 ===
 time:  2024-03-12T10:23:51.000000042Z
 V792:  1 hit(s)
   geo= 3 ch=15 value=   42
 [...]

Options:
`

func main() {
	log.SetPrefix("caen-lcio-dump: ")
	log.SetFlags(0)

	err := xmain(os.Stdout, os.Args[1:])
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func xmain(w io.Writer, args []string) error {
	var (
		fset = flag.NewFlagSet("caen-lcio-dump", flag.ContinueOnError)

		nevts = fset.Int("n", -1, "number of events to display per file (-1: all)")
	)

	fset.Usage = func() {
		fmt.Fprint(fset.Output(), usage)
		fset.PrintDefaults()
	}

	err := fset.Parse(args)
	if err != nil {
		return fmt.Errorf("could not parse input arguments: %w", err)
	}

	if fset.NArg() == 0 {
		fset.Usage()
		return fmt.Errorf("missing path to input LCIO file")
	}

	for _, fname := range fset.Args() {
		err := process(w, fname, *nevts)
		if err != nil {
			return fmt.Errorf("could not dump file %q: %w", fname, err)
		}
	}
	return nil
}

func process(w io.Writer, fname string, nevts int) error {
	wbuf := bufio.NewWriter(w)
	defer wbuf.Flush()

	r, err := lcio.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open LCIO file: %w", err)
	}
	defer r.Close()

	for i := 0; nevts < 0 || i < nevts; i++ {
		if !r.Next() {
			break
		}
		evt := r.Event()
		fmt.Fprintf(wbuf, "=== run %d, event %d ===\n", evt.RunNumber, evt.EventNumber)
		fmt.Fprintf(wbuf, "time:  %s\n", time.Unix(0, evt.TimeStamp).UTC().Format(time.RFC3339Nano))
		for _, name := range evt.Names() {
			obj, ok := evt.Get(name).(*lcio.GenericObject)
			if !ok {
				fmt.Fprintf(wbuf, "%s: unknown collection type %T\n", name, evt.Get(name))
				continue
			}
			dump(wbuf, name, obj)
		}
	}

	err = r.Err()
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("could not read LCIO event: %w", err)
	}

	err = wbuf.Flush()
	if err != nil {
		return fmt.Errorf("could not flush output: %w", err)
	}
	return nil
}

func dump(w io.Writer, name string, obj *lcio.GenericObject) {
	switch {
	case name == xcnv.V792Hits || name == xcnv.V1290Hits:
		fmt.Fprintf(w, "%s:  %d hit(s)\n", name, len(obj.Data))
		for _, hit := range obj.Data {
			if len(hit.I32s) != 4 {
				fmt.Fprintf(w, "  invalid hit %v\n", hit.I32s)
				continue
			}
			fmt.Fprintf(
				w, "  geo=%2d ch=%2d value=%5d%s\n",
				hit.I32s[0], hit.I32s[1], hit.I32s[2],
				flags(name, hit.I32s[3]),
			)
		}

	case strings.HasPrefix(name, xcnv.RawPrefix):
		for _, raw := range obj.Data {
			if len(raw.I32s) == 0 {
				fmt.Fprintf(w, "%s: empty block\n", name)
				continue
			}
			fmt.Fprintf(w, "%s: %d word(s)\n", name, len(raw.I32s)-1)
			fmt.Fprintf(w, "  geo=%2d", raw.I32s[0])
			for _, v := range raw.I32s[1:] {
				fmt.Fprintf(w, " 0x%08x", uint32(v))
			}
			fmt.Fprintf(w, "\n")
		}

	default:
		fmt.Fprintf(w, "%s: %d object(s)\n", name, len(obj.Data))
	}
}

func flags(name string, v int32) string {
	var o []string
	switch name {
	case xcnv.V792Hits:
		if v&1 != 0 {
			o = append(o, "overflow")
		}
		if v&2 != 0 {
			o = append(o, "underflow")
		}
	case xcnv.V1290Hits:
		if v&1 != 0 {
			o = append(o, "trailing")
		}
	}
	if len(o) == 0 {
		return ""
	}
	return " " + strings.Join(o, ",")
}
