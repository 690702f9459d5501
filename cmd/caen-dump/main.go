// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// caen-dump decodes and displays raw CAEN readout files.
//
// Usage: caen-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]
//
// Example:
//
//	$> caen-dump ./run-42.raw
//	=== block 0: V792 geo=4 seq=0 words=4 ===
//	time:  2024-03-14T15:09:26Z
//	  0x02000200 header{count=2, crate=0, geo=0}
//	  0x00110064 data{channel=17, value=100, ov=false, un=false, geo=0}
//	[...]
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/go-lpc/caen/daq"
	"github.com/go-lpc/caen/v1290"
	"github.com/go-lpc/caen/v792"
)

func main() {
	log.SetPrefix("caen-dump: ")
	log.SetFlags(0)

	xmain(os.Stdout, os.Args[1:])
}

func xmain(stdout io.Writer, args []string) {
	fset := flag.NewFlagSet("caen-dump", flag.ExitOnError)

	var (
		v792n = fset.Bool("v792n", false, "decode V792 data words with the V792N layout")
		kind  = fset.String("kind", "", "only display blocks of this board kind")
	)

	fset.Usage = func() {
		fmt.Printf(`caen-dump decodes and displays raw CAEN readout files.

Usage: caen-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]

Example:

 $> caen-dump ./run-42.raw
 === block 0: V792 geo=4 seq=0 words=4 ===
 time:  2024-03-14T15:09:26Z
   0x02000200 header{count=2, crate=0, geo=0}
   0x00110064 data{channel=17, value=100, ov=false, un=false, geo=0}
 [...]

Options:
`)
		fset.PrintDefaults()
	}

	err := fset.Parse(args)
	if err != nil {
		log.Fatalf("could not parse input arguments: %+v", err)
	}

	if fset.NArg() == 0 {
		fset.Usage()
		log.Fatalf("missing path to input raw file")
	}

	opts := options{v792n: *v792n}
	if *kind != "" {
		opts.kind, err = daq.ParseKind(*kind)
		if err != nil {
			log.Fatalf("invalid -kind value: %+v", err)
		}
	}

	for _, fname := range fset.Args() {
		err := process(stdout, fname, opts)
		if err != nil {
			log.Fatalf("could not dump file %q: %+v", fname, err)
		}
	}
}

type options struct {
	v792n bool
	kind  daq.Kind // KindUnknown displays all the blocks.
}

func process(w io.Writer, fname string, opts options) error {
	wbuf := bufio.NewWriter(w)
	defer wbuf.Flush()

	f, err := os.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open %q: %w", fname, err)
	}
	defer f.Close()

	var (
		dec = daq.NewDecoder(bufio.NewReader(f))
		blk daq.Block
	)
	for i := 0; ; i++ {
		err := dec.Decode(&blk)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("could not decode block %d: %w", i, err)
		}
		if opts.kind != daq.KindUnknown && blk.Kind != opts.kind {
			continue
		}

		fmt.Fprintf(wbuf, "=== block %d: %v geo=%d seq=%d words=%d ===\n",
			i, blk.Kind, blk.Geo, blk.Seq, len(blk.Words),
		)
		fmt.Fprintf(wbuf, "time:  %s\n", time.Unix(0, blk.Time).UTC().Format(time.RFC3339Nano))
		for _, word := range blk.Words {
			fmt.Fprintf(wbuf, "  0x%08x %s\n", word, describe(blk.Kind, word, opts.v792n))
		}
	}

	return wbuf.Flush()
}

func describe(kind daq.Kind, word uint32, v792n bool) string {
	switch kind {
	case daq.KindV792:
		p := v792.Packet(word)
		if d, ok := p.NData(); ok && v792n {
			return d.String()
		}
		return p.String()
	case daq.KindV1290:
		return v1290.Packet(word).String()
	default:
		return fmt.Sprintf("%032b", word)
	}
}
