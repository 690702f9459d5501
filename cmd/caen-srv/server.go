// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/go-daq/tdaq"

	"github.com/go-lpc/caen/daq"
	"github.com/go-lpc/caen/internal/setup"
)

// output is the name of the output publishing a board kind.
func output(kind daq.Kind) string {
	switch kind {
	case daq.KindV1290:
		return "/tdc"
	case daq.KindV1495:
		return "/aux"
	default:
		return "/adc"
	}
}

type server struct {
	fname string

	setup *setup.Setup
	devs  []io.Closer
	srcs  []daq.Source

	mu    sync.Mutex
	outs  map[string]chan []byte
	drops map[string]int
	stats daq.RunStats
}

func newServer(fname string) *server {
	return &server{
		fname: fname,
		outs: map[string]chan []byte{
			"/adc": make(chan []byte, 1024),
			"/tdc": make(chan []byte, 1024),
			"/aux": make(chan []byte, 1024),
		},
		drops: make(map[string]int),
	}
}

func (srv *server) OnConfig(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /config command...")

	var (
		st  *setup.Setup
		err error
	)
	switch {
	case len(req.Body) > 0:
		st, err = setup.Decode(bytes.NewReader(req.Body))
	case srv.fname != "":
		st, err = setup.Load(srv.fname)
	default:
		err = fmt.Errorf("no setup file")
	}
	if err != nil {
		ctx.Msg.Errorf("could not load setup: %+v", err)
		return fmt.Errorf("could not load setup: %w", err)
	}

	srv.setup = st
	ctx.Msg.Infof("setup with %d board(s)", len(st.Boards))
	return nil
}

func (srv *server) OnInit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /init command...")
	if srv.setup == nil {
		ctx.Msg.Errorf("no setup: missing /config command")
		return fmt.Errorf("no setup: missing /config command")
	}

	srv.close()
	for _, brd := range srv.setup.Boards {
		err := srv.initialize(ctx, brd)
		if err != nil {
			ctx.Msg.Errorf("could not initialize board %q: %+v", brd.Name, err)
			srv.close()
			return fmt.Errorf("could not initialize board %q: %w", brd.Name, err)
		}
	}
	return nil
}

func (srv *server) initialize(ctx tdaq.Context, brd setup.Board) error {
	dev, err := setup.Open(brd)
	if err != nil {
		return fmt.Errorf("could not open board: %w", err)
	}
	srv.devs = append(srv.devs, dev)

	err = setup.Apply(dev, brd)
	if err != nil {
		return fmt.Errorf("could not configure board: %w", err)
	}

	src, ok, err := daq.SourceOf(dev)
	if err != nil {
		return fmt.Errorf("could not create readout: %w", err)
	}
	if ok {
		src.Name = brd.Name
		srv.srcs = append(srv.srcs, src)
		ctx.Msg.Infof("board %q: readout on %s", brd.Name, output(src.Kind))
		return nil
	}
	ctx.Msg.Infof("board %q: configured", brd.Name)
	return nil
}

func (srv *server) OnReset(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /reset command...")
	srv.close()
	srv.mu.Lock()
	defer srv.mu.Unlock()
	srv.stats = daq.RunStats{}
	srv.drops = make(map[string]int)
	return nil
}

func (srv *server) OnStart(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /start command...")
	if len(srv.srcs) == 0 {
		ctx.Msg.Errorf("no board to read out")
		return fmt.Errorf("no board to read out")
	}
	return nil
}

func (srv *server) OnStop(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	ctx.Msg.Debugf("received /stop command... -> blocks=%d, words=%d", srv.stats.Blocks, srv.stats.Words)
	for name, n := range srv.drops {
		if n > 0 {
			ctx.Msg.Infof("output %s: dropped %d blocks", name, n)
		}
	}
	return nil
}

func (srv *server) OnQuit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /quit command...")
	srv.close()
	return nil
}

func (srv *server) close() {
	for _, dev := range srv.devs {
		_ = dev.Close()
	}
	srv.devs = nil
	srv.srcs = nil
}

func (srv *server) adc(ctx tdaq.Context, dst *tdaq.Frame) error { return srv.send(ctx, "/adc", dst) }
func (srv *server) tdc(ctx tdaq.Context, dst *tdaq.Frame) error { return srv.send(ctx, "/tdc", dst) }
func (srv *server) aux(ctx tdaq.Context, dst *tdaq.Frame) error { return srv.send(ctx, "/aux", dst) }

func (srv *server) send(ctx tdaq.Context, name string, dst *tdaq.Frame) error {
	select {
	case <-ctx.Ctx.Done():
		dst.Body = nil
		return nil
	case data := <-srv.outs[name]:
		dst.Body = data
	}
	return nil
}

func (srv *server) run(ctx tdaq.Context) error {
	interval := setup.DefaultDAQInterval
	if srv.setup != nil {
		interval = srv.setup.DAQ.Interval
	}
	stats, err := daq.Run(
		ctx.Ctx, srv, srv.srcs,
		daq.WithInterval(interval),
		daq.WithLogger(log.New(io.Discard, "", 0)),
	)

	srv.mu.Lock()
	srv.stats.Blocks += stats.Blocks
	srv.stats.Words += stats.Words
	srv.mu.Unlock()

	if err != nil {
		ctx.Msg.Errorf("could not read out boards: %+v", err)
		return fmt.Errorf("could not read out boards: %w", err)
	}
	return nil
}

// Write dispatches an encoded block to the output of its board kind.
// Blocks are dropped when the output is full.
func (srv *server) Write(p []byte) (int, error) {
	kind, ok := daq.PeekKind(p)
	if !ok {
		return 0, fmt.Errorf("invalid block")
	}
	name := output(kind)
	blk := make([]byte, len(p))
	copy(blk, p)

	select {
	case srv.outs[name] <- blk:
	default:
		srv.mu.Lock()
		srv.drops[name]++
		srv.mu.Unlock()
	}
	return len(p), nil
}
