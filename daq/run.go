// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package daq

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
)

// Option configures a run.
type Option func(*config)

type config struct {
	freq time.Duration
	max  int
	msg  *log.Logger
	now  func() time.Time
}

func newConfig() config {
	return config{
		freq: 10 * time.Millisecond,
		msg:  log.New(os.Stdout, "daq: ", 0),
		now:  time.Now,
	}
}

// WithInterval sets the polling interval of the sources.
func WithInterval(d time.Duration) Option {
	return func(cfg *config) {
		if d > 0 {
			cfg.freq = d
		}
	}
}

// WithMaxBlocks stops the run after n blocks were written.
// A zero n means no limit.
func WithMaxBlocks(n int) Option {
	return func(cfg *config) {
		cfg.max = n
	}
}

// WithLogger sets the logger of the run.
func WithLogger(msg *log.Logger) Option {
	return func(cfg *config) {
		cfg.msg = msg
	}
}

// RunStats summarizes a run.
type RunStats struct {
	Blocks int
	Words  int
	Kinds  map[Kind]int // number of blocks per board kind
}

// Run polls the sources and writes their data as blocks to w, until ctx
// is canceled, a source fails or the block limit is reached.
//
// The cancellation of ctx is the normal end of a run and is not reported
// as an error.
func Run(ctx context.Context, w io.Writer, srcs []Source, opts ...Option) (RunStats, error) {
	cfg := newConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	stats := RunStats{Kinds: make(map[Kind]int)}
	if len(srcs) == 0 {
		return stats, fmt.Errorf("daq: no source to read out")
	}

	var (
		grp, gctx = errgroup.WithContext(ctx)
		blocks    = make(chan Block, 2*len(srcs))
		enc       = NewEncoder(w)
	)

	grp.Go(func() error {
		defer close(blocks)
		return poll(gctx, cfg, srcs, blocks)
	})

	grp.Go(func() error {
		for blk := range blocks {
			err := enc.Encode(blk)
			if err != nil {
				return err
			}
			stats.Blocks++
			stats.Words += len(blk.Words)
			stats.Kinds[blk.Kind]++
		}
		return nil
	})

	err := grp.Wait()
	if err != nil {
		return stats, err
	}
	cfg.msg.Printf("run done: %d blocks, %d words", stats.Blocks, stats.Words)
	return stats, nil
}

func poll(ctx context.Context, cfg config, srcs []Source, blocks chan<- Block) error {
	var (
		seqs = make([]uint32, len(srcs))
		sent = 0
		tick = time.NewTicker(cfg.freq)
	)
	defer tick.Stop()

	for {
		for i, src := range srcs {
			buf := make([]uint32, src.Size)
			n, err := src.Read(buf)
			if err != nil {
				return fmt.Errorf("daq: could not read out %v: %w", src, err)
			}
			if n == 0 {
				continue
			}
			blk := Block{
				Kind:  src.Kind,
				Geo:   src.Geo,
				Seq:   seqs[i],
				Time:  cfg.now().UnixNano(),
				Words: buf[:n],
			}
			seqs[i]++
			select {
			case <-ctx.Done():
				return nil
			case blocks <- blk:
			}
			sent++
			if cfg.max > 0 && sent >= cfg.max {
				cfg.msg.Printf("reached %d blocks", sent)
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
		}
	}
}
