// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command caen-daq drives a CAEN data acquisition in stand-alone mode.
//
// caen-daq opens all the boards of a setup file, optionally configures
// them, and writes the readout of the V792, V1290, V1495 and digitizer
// boards into a raw file until interrupted.
//
// Example:
//
//	$> caen-daq -f setup.yaml -run 42 -o /data/caen -pmon
package main // import "github.com/go-lpc/caen/cmd/caen-daq"

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/sbinet/pmon"

	"github.com/go-lpc/caen/daq"
	"github.com/go-lpc/caen/internal/setup"

	_ "github.com/go-lpc/caen/comm/sim"
)

func main() {
	var (
		fname  = flag.String("f", "setup.yaml", "path to setup file")
		runnbr = flag.Int("run", -1, "run number")
		odir   = flag.String("o", ".", "output dir")
		cfg    = flag.Bool("configure", true, "apply the board settings before the run")
		dur    = flag.Duration("dur", 0, "run duration (0: until interrupted)")
		doMon  = flag.Bool("pmon", false, "enable pmon monitoring")
		doFreq = flag.Duration("freq", 1*time.Second, "pmon frequency")
	)

	log.SetPrefix("caen-daq: ")
	log.SetFlags(0)

	flag.Parse()

	if *runnbr < 0 {
		log.Fatalf("invalid run number value")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if *dur > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *dur)
		defer cancel()
	}

	if *doMon {
		stop, err := monitor(*odir, *doFreq)
		if err != nil {
			log.Fatalf("could not start pmon: %+v", err)
		}
		defer stop()
	}

	msg := log.New(os.Stdout, "caen-daq: ", 0)
	err := run(ctx, *fname, uint32(*runnbr), *odir, *cfg, msg)
	if err != nil {
		log.Fatalf("could not run caen-daq: %+v", err)
	}
}

func run(ctx context.Context, fname string, run uint32, odir string, cfg bool, msg *log.Logger) error {
	st, err := setup.Load(fname)
	if err != nil {
		return fmt.Errorf("could not load setup: %w", err)
	}

	srcs, closers, err := open(st, cfg, msg)
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()
	if err != nil {
		return err
	}
	if len(srcs) == 0 {
		return fmt.Errorf("no board to read out in %q", fname)
	}

	oname := filepath.Join(odir, st.DAQ.Output)
	if st.DAQ.Output == "" {
		oname = filepath.Join(odir, fmt.Sprintf("caen_%d.raw", run))
	}
	f, err := os.Create(oname)
	if err != nil {
		return fmt.Errorf("could not create output file: %w", err)
	}
	defer f.Close()

	msg.Printf("run %d: reading out %d board(s) into %q...", run, len(srcs), oname)
	stats, err := daq.Run(
		ctx, f, srcs,
		daq.WithInterval(st.DAQ.Interval),
		daq.WithMaxBlocks(st.DAQ.MaxBlocks),
		daq.WithLogger(msg),
	)
	if err != nil {
		return fmt.Errorf("could not run acquisition: %w", err)
	}

	err = f.Close()
	if err != nil {
		return fmt.Errorf("could not close output file: %w", err)
	}

	msg.Printf("run %d: blocks=%d words=%d", run, stats.Blocks, stats.Words)
	for _, src := range srcs {
		msg.Printf("  %v: %d blocks", src, stats.Kinds[src.Kind])
	}
	return nil
}

// open opens all the boards of the setup.
// The returned closers must be closed even when open fails.
func open(st *setup.Setup, cfg bool, msg *log.Logger) ([]daq.Source, []io.Closer, error) {
	var (
		srcs    []daq.Source
		closers []io.Closer
	)
	for _, brd := range st.Boards {
		dev, err := setup.Open(brd)
		if err != nil {
			return nil, closers, fmt.Errorf("could not open board %q: %w", brd.Name, err)
		}
		closers = append(closers, dev)

		if cfg {
			err = setup.Apply(dev, brd)
			if err != nil {
				return nil, closers, fmt.Errorf("could not configure board %q: %w", brd.Name, err)
			}
			msg.Printf("board %q: configured", brd.Name)
		}

		src, ok, err := daq.SourceOf(dev)
		if err != nil {
			return nil, closers, fmt.Errorf("could not create source for board %q: %w", brd.Name, err)
		}
		if !ok {
			continue
		}
		src.Name = brd.Name
		srcs = append(srcs, src)
	}
	return srcs, closers, nil
}

// monitor starts monitoring the resources used by the current process.
func monitor(odir string, freq time.Duration) (func(), error) {
	p, err := pmon.Monitor(os.Getpid())
	if err != nil {
		return nil, fmt.Errorf("could not monitor process: %w", err)
	}
	f, err := os.Create(filepath.Join(odir, "caen-daq-pmon.log"))
	if err != nil {
		return nil, fmt.Errorf("could not create pmon log file: %w", err)
	}
	p.W = f
	p.Freq = freq

	go func() {
		err := p.Run()
		if err != nil {
			log.Printf("could not run pmon: %+v", err)
		}
	}()

	return func() {
		err := p.Kill()
		if err != nil {
			log.Printf("could not stop pmon: %+v", err)
		}
		_ = f.Close()
	}, nil
}
