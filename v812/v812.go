// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package v812 drives CAEN V812 16 channels constant fraction
// discriminators.
package v812 // import "github.com/go-lpc/caen/v812"

import (
	"fmt"
	"math"

	"github.com/go-lpc/caen"
	"github.com/go-lpc/caen/comm"
)

// ID is the board identifier.
const ID = 0x851

// Channels is the number of channels of a board.
const Channels = 16

// Channels are grouped by 8 for their output width and dead time.
const (
	Group0 = 0 // channels 0 to 7
	Group1 = 1 // channels 8 to 15
)

// V812 is a V812 discriminator.
type V812 struct {
	*comm.Device
}

// Open connects to the V812 reachable through conn with the named driver.
func Open(driver string, conn caen.Connection) (*V812, error) {
	dev, err := comm.Open(driver, conn)
	if err != nil {
		return nil, err
	}
	cfd, err := New(dev)
	if err != nil {
		_ = dev.Close()
		return nil, err
	}
	return cfd, nil
}

// New checks that dev is a V812.
func New(dev *comm.Device) (*V812, error) {
	id, err := dev.Read16(0xFC)
	if err != nil {
		return nil, fmt.Errorf("v812: could not read board ID: %w", err)
	}
	if id != ID {
		return nil, dev.WrongDevice("V812")
	}
	return &V812{Device: dev}, nil
}

func (*V812) Kind() string { return "V812" }

// Transfer moves the ownership of the connection to a new V812.
func (cfd *V812) Transfer() *V812 {
	return &V812{Device: cfd.Device.Transfer()}
}

// ThresholdCode returns the register value of a threshold, in volts.
// Thresholds range from -1 mV to -255 mV by steps of 1 mV. Values out of
// range are clamped.
// The scale is linear so the code is computed directly rather than looked
// up with lut.Nearest.
func ThresholdCode(v float64) uint16 {
	switch {
	case v < -255e-3:
		return 255
	case v > -1e-3:
		return 0
	}
	return uint16(math.Round(v / -1e-3))
}

// SetThreshold sets the threshold of a channel, in volts.
func (cfd *V812) SetThreshold(ch uint8, v float64) error {
	if ch >= Channels {
		return fmt.Errorf("v812: invalid channel %d", ch)
	}
	return cfd.Write16(uint32(ch)<<1, ThresholdCode(v))
}

// EnableChannels enables the channels set in mask and disables the others.
func (cfd *V812) EnableChannels(mask uint16) error { return cfd.Write16(0x4A, mask) }

// SetOutputWidth sets the output width of a group of channels, from 0
// (12 ns) to 255 (206 ns). The relation is not linear.
func (cfd *V812) SetOutputWidth(group, v uint8) error {
	return cfd.Write16(0x40+uint32(group&1)<<1, uint16(v))
}

// SetOutputWidths sets the output width of all the channels.
func (cfd *V812) SetOutputWidths(v uint8) error {
	seq := cfd.Seq()
	seq.Write16(0x40, uint16(v))
	seq.Write16(0x42, uint16(v))
	return seq.Err()
}

// SetDeadTime sets the dead time of a group of channels, from 0 (118 ns)
// to 255 (1625 ns).
func (cfd *V812) SetDeadTime(group, v uint8) error {
	return cfd.Write16(0x44+uint32(group&1)<<1, uint16(v))
}

// SetDeadTimes sets the dead time of all the channels.
func (cfd *V812) SetDeadTimes(v uint8) error {
	seq := cfd.Seq()
	seq.Write16(0x44, uint16(v))
	seq.Write16(0x46, uint16(v))
	return seq.Err()
}

func (cfd *V812) SetMajorityThreshold(v uint8) error { return cfd.Write16(0x48, uint16(v)) }

// TestPulse generates a pulse on every enabled channel.
func (cfd *V812) TestPulse() error { return cfd.Write16(0x4C, 1) }

func (cfd *V812) Serial() (uint16, error) {
	v, err := cfd.Read16(0xFE)
	return v & 0xFFF, err
}

func (cfd *V812) Version() (uint8, error) {
	v, err := cfd.Read16(0xFE)
	return uint8(v >> 12), err
}

func (cfd *V812) ID() (uint16, error) { return cfd.Read16(0xFC) }

// FixedCode should be 0xFAF5.
func (cfd *V812) FixedCode() (uint16, error) { return cfd.Read16(0xFA) }
