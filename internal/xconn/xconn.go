// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package xconn builds connections from command-line flags and from the
// CAENPP_* environment variables.
package xconn // import "github.com/go-lpc/caen/internal/xconn"

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-lpc/caen"
)

// Environment variables used when the matching flag is not set.
const (
	EnvAddress    = "CAENPP_ADDRESS"
	EnvBridge     = "CAENPP_BRIDGE"
	EnvConet      = "CAENPP_CONET"
	EnvIP         = "CAENPP_IP"
	EnvLink       = "CAENPP_LINK"
	EnvNode       = "CAENPP_NODE"
	EnvAccessMode = "CAENPP_ACCESS_MODE"
)

// List is the flag value requesting the list of known bridges or conets.
const List = "list"

// Flags holds the connection parameters given on the command line.
type Flags struct {
	Address    string
	Bridge     string
	Conet      string
	IP         string
	Link       string
	Node       string
	Local      bool
	AccessMode string
}

// Register defines the connection flags in fs.
func (f *Flags) Register(fs *flag.FlagSet) {
	fs.StringVar(&f.Address, "a", "", "16 most significant bits of the VME address, in hexadecimal ($"+EnvAddress+")")
	fs.StringVar(&f.Bridge, "b", "", "CAEN bridge name, 'list' to list them ($"+EnvBridge+")")
	fs.StringVar(&f.Conet, "c", "", "CAEN Conet adapter name, 'list' to list them ($"+EnvConet+")")
	fs.StringVar(&f.IP, "i", "", "IP address of an ethernet bridge ($"+EnvIP+")")
	fs.StringVar(&f.Link, "l", "", "USB device number, or Conet PID ($"+EnvLink+")")
	fs.StringVar(&f.Node, "n", "", "number of the device in the daisy chain ($"+EnvNode+")")
	fs.BoolVar(&f.Local, "L", false, "connect to the bridge local registers (experts only)")
	fs.StringVar(&f.AccessMode, "d", "", "default register width, 16 or 32 ($"+EnvAccessMode+")")
}

// WithEnv returns a copy of f where the unset parameters are read from the
// environment through getenv.
func (f Flags) WithEnv(getenv func(string) string) Flags {
	for _, v := range []struct {
		p   *string
		env string
	}{
		{&f.Address, EnvAddress},
		{&f.Bridge, EnvBridge},
		{&f.Conet, EnvConet},
		{&f.IP, EnvIP},
		{&f.Link, EnvLink},
		{&f.Node, EnvNode},
		{&f.AccessMode, EnvAccessMode},
	} {
		if *v.p == "" {
			*v.p = getenv(v.env)
		}
	}
	return f
}

// Connection returns the connection described by f.
func (f Flags) Connection() (caen.Connection, error) {
	var conn caen.Connection

	if f.Bridge != "" {
		conn.Bridge = caen.ParseBridge(f.Bridge)
		if conn.Bridge == caen.InvalidBridge {
			return conn, fmt.Errorf("invalid bridge: %s", f.Bridge)
		}
	}
	if f.Conet != "" {
		conn.Conet = caen.ParseConet(f.Conet)
		if conn.Conet == caen.InvalidConet {
			return conn, fmt.Errorf("invalid conet: %s", f.Conet)
		}
	}
	if f.Link != "" {
		v, err := strconv.ParseUint(f.Link, 0, 32)
		if err != nil {
			return conn, fmt.Errorf("invalid link %q: %w", f.Link, err)
		}
		conn.Link = uint32(v)
	}
	conn.IP = f.IP
	if f.Node != "" {
		v, err := strconv.ParseInt(f.Node, 0, 16)
		if err != nil {
			return conn, fmt.Errorf("invalid node %q: %w", f.Node, err)
		}
		conn.Node = int16(v)
	}
	conn.Local = f.Local
	if f.Address != "" {
		v, err := strconv.ParseUint(strings.TrimPrefix(f.Address, "0x"), 16, 16)
		if err != nil {
			return conn, fmt.Errorf("invalid address %q: %w", f.Address, err)
		}
		conn.Address = uint16(v)
	}
	return conn, nil
}

// Wide reports whether the default register width is 32 bits.
func (f Flags) Wide() (bool, error) {
	switch f.AccessMode {
	case "", "16":
		return false, nil
	case "32":
		return true, nil
	default:
		return false, fmt.Errorf("invalid access mode: %s, expected 16 or 32", f.AccessMode)
	}
}
