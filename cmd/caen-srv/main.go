// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command caen-srv starts a TDAQ server reading out CAEN boards.
//
// The boards are described by a setup file, given as first argument, or
// sent as the body of the /config command. The encoded readout blocks are
// published on the /adc (V792, digitizers), /tdc (V1290) and /aux (V1495)
// outputs.
//
// Usage: caen-srv [TDAQ-OPTIONS] setup.yaml
package main // import "github.com/go-lpc/caen/cmd/caen-srv"

import (
	"context"
	"log"
	"os"

	"github.com/go-daq/tdaq"
	"github.com/go-daq/tdaq/flags"

	_ "github.com/go-lpc/caen/comm/sim"
)

func main() {
	cmd := flags.New()

	var fname string
	if len(cmd.Args) > 0 {
		fname = cmd.Args[0]
	}
	dev := newServer(fname)

	srv := tdaq.New(cmd, os.Stdout)
	srv.CmdHandle("/config", dev.OnConfig)
	srv.CmdHandle("/init", dev.OnInit)
	srv.CmdHandle("/reset", dev.OnReset)
	srv.CmdHandle("/start", dev.OnStart)
	srv.CmdHandle("/stop", dev.OnStop)
	srv.CmdHandle("/quit", dev.OnQuit)

	srv.OutputHandle("/adc", dev.adc)
	srv.OutputHandle("/tdc", dev.tdc)
	srv.OutputHandle("/aux", dev.aux)

	srv.RunHandle(dev.run)

	err := srv.Run(context.Background())
	if err != nil {
		log.Panicf("error: %+v", err)
	}
}
