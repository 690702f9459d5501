// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command caen2lcio converts a raw CAEN readout file to an LCIO one.
package main // import "github.com/go-lpc/caen/cmd/caen2lcio"

import (
	"bufio"
	"compress/flate"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"go-hep.org/x/hep/lcio"

	"github.com/go-lpc/caen/daq"
	"github.com/go-lpc/caen/internal/xcnv"
	"github.com/go-lpc/caen/v792"
)

var (
	msg = log.New(os.Stdout, "caen2lcio: ", 0)
)

func main() {
	var (
		oname = flag.String("o", "out.lcio", "path to output LCIO file")
		compr = flag.Int("lvl", flate.DefaultCompression, "compression level for output LCIO file")
		run   = flag.Int("run", -1, "run number (default: inferred from the input file name)")
		v792n = flag.Bool("v792n", false, "decode V792 data words with the V792N layout")
	)

	flag.Usage = func() {
		fmt.Printf(`Usage: caen2lcio [OPTIONS] file.raw

ex:
 $> caen2lcio -o out.lcio -lvl=9 ./caen_42.raw

options:
`)
		flag.PrintDefaults()
	}

	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		msg.Fatalf("missing input raw file")
	}

	if *oname == "" {
		flag.Usage()
		msg.Fatalf("invalid output LCIO file name")
	}

	model := v792.V792A
	if *v792n {
		model = v792.V792N
	}

	err := process(*oname, *compr, flag.Arg(0), *run, model)
	if err != nil {
		msg.Fatalf("could not convert raw file: %+v", err)
	}
}

func process(oname string, lvl int, fname string, run int, model v792.Model) error {
	f, err := os.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open raw file: %w", err)
	}
	defer f.Close()

	if run < 0 {
		v, err := runNbrFrom(fname)
		if err != nil {
			return fmt.Errorf("could not infer run from %q: %w", fname, err)
		}
		run = int(v)
	}

	w, err := lcio.Create(oname)
	if err != nil {
		return fmt.Errorf("could not create output LCIO file: %w", err)
	}
	defer w.Close()

	w.SetCompressionLevel(lvl)

	dec := daq.NewDecoder(bufio.NewReader(f))
	n, err := xcnv.Raw2LCIO(w, dec, int32(run), model, msg)
	if err != nil {
		return fmt.Errorf("could not convert raw file to LCIO: %w", err)
	}

	err = w.Close()
	if err != nil {
		return fmt.Errorf("could not close output LCIO file: %w", err)
	}
	msg.Printf("wrote %d events to %q", n, oname)

	return nil
}

func runNbrFrom(fname string) (int32, error) {
	var (
		name = filepath.Base(fname)
		run  int32
	)
	_, err := fmt.Sscanf(name, "caen_%d.raw", &run)
	return run, err
}
