// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// caen-ctl inspects and configures CAEN VME modules.
//
// Usage: caen-ctl [command] [flags]
//
// Available commands:
//
//	list       lists the known bridges, conets, links, devices or drivers
//	info       displays informations about a connection
//	hv         displays the channels of a V6533/V6534 power supply
//	configure  applies the settings of a setup file to its boards
//
// The connection flags fall back on the CAENPP_* environment variables.
package main // import "github.com/go-lpc/caen/cmd/caen-ctl"

import (
	"flag"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/go-lpc/caen"
	"github.com/go-lpc/caen/hv"
	"github.com/go-lpc/caen/internal/xconn"

	_ "github.com/go-lpc/caen/comm/sim"
)

func main() {
	err := newRootCommand(os.Stdout).Execute()
	if err != nil {
		os.Exit(1)
	}
}

// ctl holds the state shared by the caen-ctl commands.
type ctl struct {
	flags  xconn.Flags
	driver string

	getenv func(string) string
	openHV func(driver string, conn caen.Connection, m hv.Model) (*hv.Board, error)
}

func newRootCommand(out io.Writer) *cobra.Command {
	return newCommand(out, &ctl{
		getenv: os.Getenv,
		openHV: hv.Open,
	})
}

func newCommand(out io.Writer, c *ctl) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "caen-ctl",
		Short:        "Tool to inspect and configure CAEN VME modules",
		SilenceUsage: true,
	}
	cmd.SetOut(out)

	fs := flag.NewFlagSet("caen-ctl", flag.ContinueOnError)
	c.flags.Register(fs)
	cmd.PersistentFlags().AddGoFlagSet(fs)
	cmd.PersistentFlags().StringVar(&c.driver, "driver", "", "comm or vme driver name (default: caencomm, or caenvme for bridges)")

	cmd.AddCommand(newListCommand())
	cmd.AddCommand(newInfoCommand(c))
	cmd.AddCommand(newHVCommand(c))
	cmd.AddCommand(newConfigureCommand())
	return cmd
}

// connection returns the connection described by the command line flags
// and the environment.
func (c *ctl) connection() (caen.Connection, error) {
	return c.flags.WithEnv(c.getenv).Connection()
}

func (c *ctl) driverOr(def string) string {
	if c.driver == "" {
		return def
	}
	return c.driver
}
