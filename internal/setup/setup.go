// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package setup loads the YAML description of a set of CAEN boards, of
// their settings and of the services driving them.
package setup // import "github.com/go-lpc/caen/internal/setup"

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/go-lpc/caen"
	"github.com/go-lpc/caen/hv"
)

const (
	DefaultDriver          = "caencomm"
	DefaultDAQInterval     = 10 * time.Millisecond
	DefaultMonitorInterval = 10 * time.Second
)

// Models are the board models a setup may describe.
var Models = []string{"V792", "V812", "V1290", "V1495", "V6533", "V6534", "Digitizer"}

// Setup describes the boards of an experimental setup.
type Setup struct {
	Boards  []Board `yaml:"boards"`
	DAQ     DAQ     `yaml:"daq"`
	Monitor Monitor `yaml:"monitor"`
}

// Board describes a board and its settings.
type Board struct {
	Name   string `yaml:"name"`
	Model  string `yaml:"model"`
	Driver string `yaml:"driver"`
	Conn   Conn   `yaml:"conn"`

	V792  *V792       `yaml:"v792,omitempty"`
	V812  *V812       `yaml:"v812,omitempty"`
	V1290 *V1290      `yaml:"v1290,omitempty"`
	HV    []HVChannel `yaml:"hv,omitempty"`
}

// Conn is the YAML form of a caen.Connection.
type Conn struct {
	Bridge  string `yaml:"bridge"`
	Conet   string `yaml:"conet"`
	Link    uint32 `yaml:"link"`
	IP      string `yaml:"ip"`
	Node    int16  `yaml:"node"`
	Local   bool   `yaml:"local"`
	Address uint16 `yaml:"address"`
}

// Connection returns the connection described by c.
func (c Conn) Connection() (caen.Connection, error) {
	conn := caen.Connection{
		Link:    c.Link,
		IP:      c.IP,
		Node:    c.Node,
		Local:   c.Local,
		Address: c.Address,
	}
	if c.Bridge != "" {
		conn.Bridge = caen.ParseBridge(c.Bridge)
		if !conn.Bridge.Valid() {
			return conn, fmt.Errorf("setup: unknown bridge %q", c.Bridge)
		}
	}
	if c.Conet != "" {
		conn.Conet = caen.ParseConet(c.Conet)
		if !conn.Conet.Valid() {
			return conn, fmt.Errorf("setup: unknown conet %q", c.Conet)
		}
	}
	return conn, nil
}

// V792 holds the settings of a V792 QDC.
type V792 struct {
	Pedestal   *uint8  `yaml:"pedestal"`   // current pedestal code
	Thresholds []uint8 `yaml:"thresholds"` // per channel threshold codes
	Disabled   []int   `yaml:"disabled"`   // disabled channels
	FastClear  float64 `yaml:"fast-clear"` // fast clear window, in seconds

	UseThresholds *bool `yaml:"use-thresholds"` // drop the hits below threshold
}

// V812 holds the settings of a V812 discriminator.
type V812 struct {
	Thresholds []float64 `yaml:"thresholds"` // per channel thresholds, in volts
	Enabled    *uint16   `yaml:"enabled"`    // enabled channels mask
	Width      *uint8    `yaml:"width"`      // output width code of both groups
	DeadTime   *uint8    `yaml:"dead-time"`  // dead time code of both groups
	Majority   *uint8    `yaml:"majority"`
}

// V1290 holds the settings of a V1290 TDC.
type V1290 struct {
	Window   float64 `yaml:"window"`   // match window width, in seconds
	Offset   float64 `yaml:"offset"`   // match window offset, in seconds
	Edge     string  `yaml:"edge"`     // leading, trailing or both
	Channels *uint32 `yaml:"channels"` // enabled channels mask
	Headers  *bool   `yaml:"headers"`  // TDC headers and trailers
}

// HVChannel holds the settings of a high voltage channel.
type HVChannel struct {
	Channel  int     `yaml:"channel"`
	Voltage  float64 `yaml:"voltage"`   // in volts
	Current  float64 `yaml:"current"`   // in amperes
	RampUp   uint16  `yaml:"ramp-up"`   // in V/s
	RampDown uint16  `yaml:"ramp-down"` // in V/s
	Trip     float64 `yaml:"trip"`      // in seconds
	Power    bool    `yaml:"power"`
}

// DAQ holds the settings of the standalone acquisition.
type DAQ struct {
	Output    string        `yaml:"output"`
	Interval  time.Duration `yaml:"interval"`
	MaxBlocks int           `yaml:"max-blocks"`
}

// Monitor holds the settings of the high voltage monitor.
type Monitor struct {
	Interval time.Duration `yaml:"interval"`
	Addr     string        `yaml:"addr"` // HTTP API address
	DB       string        `yaml:"db"`   // conditions database DSN
	Mail     *Mail         `yaml:"mail,omitempty"`
}

// Mail holds the settings of mail alerts.
type Mail struct {
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`
	User     string   `yaml:"user"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

// Load reads, completes and validates the setup file fname.
func Load(fname string) (*Setup, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, fmt.Errorf("setup: could not open setup file: %w", err)
	}
	defer f.Close()

	setup, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("setup: could not load %q: %w", fname, err)
	}
	return setup, nil
}

// Decode reads, completes and validates a setup from r.
// Unknown fields are errors.
func Decode(r io.Reader) (*Setup, error) {
	var setup Setup
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	err := dec.Decode(&setup)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("setup: could not decode setup: %w", err)
	}

	Normalize(&setup)
	err = Validate(&setup)
	if err != nil {
		return nil, err
	}
	return &setup, nil
}

// Normalize fills the unset fields of setup with their defaults.
func Normalize(setup *Setup) {
	for i := range setup.Boards {
		brd := &setup.Boards[i]
		if m, ok := modelOf(brd.Model); ok {
			brd.Model = m
		}
		if brd.Driver == "" {
			brd.Driver = DefaultDriver
		}
	}
	if setup.DAQ.Interval == 0 {
		setup.DAQ.Interval = DefaultDAQInterval
	}
	if setup.Monitor.Interval == 0 {
		setup.Monitor.Interval = DefaultMonitorInterval
	}
	if m := setup.Monitor.Mail; m != nil && m.Port == 0 {
		m.Port = 587
	}
}

// Validate checks the consistency of setup.
// Validate does not modify setup.
func Validate(setup *Setup) error {
	names := make(map[string]struct{}, len(setup.Boards))
	for i, brd := range setup.Boards {
		if brd.Name == "" {
			return fmt.Errorf("setup: board #%d has no name", i)
		}
		if _, dup := names[brd.Name]; dup {
			return fmt.Errorf("setup: duplicate board %q", brd.Name)
		}
		names[brd.Name] = struct{}{}

		err := validateBoard(brd)
		if err != nil {
			return fmt.Errorf("setup: board %q: %w", brd.Name, err)
		}
	}

	if setup.DAQ.Interval < 0 {
		return fmt.Errorf("setup: invalid daq interval %v", setup.DAQ.Interval)
	}
	if setup.DAQ.MaxBlocks < 0 {
		return fmt.Errorf("setup: invalid daq max-blocks %d", setup.DAQ.MaxBlocks)
	}
	if setup.Monitor.Interval < 0 {
		return fmt.Errorf("setup: invalid monitor interval %v", setup.Monitor.Interval)
	}
	if m := setup.Monitor.Mail; m != nil {
		switch {
		case m.Host == "":
			return fmt.Errorf("setup: mail alerts need a host")
		case m.From == "":
			return fmt.Errorf("setup: mail alerts need a sender")
		case len(m.To) == 0:
			return fmt.Errorf("setup: mail alerts need recipients")
		}
	}
	return nil
}

func validateBoard(brd Board) error {
	model, ok := modelOf(brd.Model)
	if !ok {
		return fmt.Errorf("unknown model %q", brd.Model)
	}
	_, err := brd.Conn.Connection()
	if err != nil {
		return err
	}

	check := func(name string, set bool, want string) error {
		if set && model != want {
			return fmt.Errorf("%s settings for a %s board", name, model)
		}
		return nil
	}
	isHV := model == "V6533" || model == "V6534"
	for _, c := range []struct {
		name string
		set  bool
		want string
	}{
		{"v792", brd.V792 != nil, "V792"},
		{"v812", brd.V812 != nil, "V812"},
		{"v1290", brd.V1290 != nil, "V1290"},
	} {
		err := check(c.name, c.set, c.want)
		if err != nil {
			return err
		}
	}
	if len(brd.HV) > 0 && !isHV {
		return fmt.Errorf("hv settings for a %s board", model)
	}

	if v := brd.V1290; v != nil {
		switch strings.ToLower(v.Edge) {
		case "", "leading", "trailing", "both":
		default:
			return fmt.Errorf("invalid edge detection %q", v.Edge)
		}
	}

	seen := make(map[int]bool, len(brd.HV))
	for _, ch := range brd.HV {
		if ch.Channel < 0 || ch.Channel >= hv.Channels {
			return fmt.Errorf("invalid hv channel %d", ch.Channel)
		}
		if seen[ch.Channel] {
			return fmt.Errorf("duplicate hv channel %d", ch.Channel)
		}
		seen[ch.Channel] = true
		if ch.Voltage < 0 || ch.Current < 0 || ch.Trip < 0 {
			return fmt.Errorf("invalid negative setting for hv channel %d", ch.Channel)
		}
	}
	return nil
}

func modelOf(name string) (string, bool) {
	for _, m := range Models {
		if strings.EqualFold(m, name) {
			return m, true
		}
	}
	return "", false
}
