// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package v1290

import (
	"github.com/go-lpc/caen/bitfield"
)

// Control is the control register.
type Control uint16

// BusErrorEnabled reports whether the board ends a block transfer with a
// bus error when data is exhausted, instead of filler words.
func (c Control) BusErrorEnabled() bool             { return bitfield.Bit(c, 0) }
func (c Control) SWTermination() bool               { return bitfield.Bit(c, 1) }
func (c Control) SWTerminationEnabled() bool        { return bitfield.Bit(c, 2) }
func (c Control) EmitEmptyEvents() bool             { return bitfield.Bit(c, 3) }
func (c Control) Align64() bool                     { return bitfield.Bit(c, 4) }
func (c Control) CompensationEnabled() bool         { return bitfield.Bit(c, 5) }
func (c Control) TestFIFOEnabled() bool             { return bitfield.Bit(c, 6) }
func (c Control) ReadCompensationSRAMEnabled() bool { return bitfield.Bit(c, 7) }
func (c Control) EventFIFOEnabled() bool            { return bitfield.Bit(c, 8) }
func (c Control) ETTTEnabled() bool                 { return bitfield.Bit(c, 9) }
func (c Control) MEBAccess16MBEnabled() bool        { return bitfield.Bit(c, 12) }

func (c *Control) SetBusErrorEnabled(v bool)             { *c = bitfield.SetBit(*c, 0, v) }
func (c *Control) SetSWTermination(v bool)               { *c = bitfield.SetBit(*c, 1, v) }
func (c *Control) SetSWTerminationEnabled(v bool)        { *c = bitfield.SetBit(*c, 2, v) }
func (c *Control) SetEmitEmptyEvents(v bool)             { *c = bitfield.SetBit(*c, 3, v) }
func (c *Control) SetAlign64(v bool)                     { *c = bitfield.SetBit(*c, 4, v) }
func (c *Control) SetCompensationEnabled(v bool)         { *c = bitfield.SetBit(*c, 5, v) }
func (c *Control) SetTestFIFOEnabled(v bool)             { *c = bitfield.SetBit(*c, 6, v) }
func (c *Control) SetReadCompensationSRAMEnabled(v bool) { *c = bitfield.SetBit(*c, 7, v) }
func (c *Control) SetEventFIFOEnabled(v bool)            { *c = bitfield.SetBit(*c, 8, v) }
func (c *Control) SetMEBAccess16MBEnabled(v bool)        { *c = bitfield.SetBit(*c, 12, v) }

// SetETTTEnabled toggles the extended trigger time tag. Bit 11, reserved
// in the manual, moves with bit 9: with both set the GEO field of the
// global trailer carries the low bits of the time tag.
func (c *Control) SetETTTEnabled(v bool) {
	*c = bitfield.SetBit(*c, 9, v)
	*c = bitfield.SetBit(*c, 11, v)
}

// Status is the status register.
type Status uint16

func (s Status) DataReady() bool         { return bitfield.Bit(s, 0) }
func (s Status) AlmostFull() bool        { return bitfield.Bit(s, 1) }
func (s Status) Full() bool              { return bitfield.Bit(s, 2) }
func (s Status) TriggeredMode() bool     { return bitfield.Bit(s, 3) }
func (s Status) TDCHeadersEnabled() bool { return bitfield.Bit(s, 4) }
func (s Status) Terminations() bool      { return bitfield.Bit(s, 5) }
func (s Status) TDCError() uint8         { return uint8(bitfield.Bits(s, 6, 9)) }
func (s Status) BusError() bool          { return bitfield.Bit(s, 10) }
func (s Status) Purged() bool            { return bitfield.Bit(s, 11) }

// Resolution returns the single edge resolution, in seconds.
func (s Status) Resolution() float64 { return SingleResolutions[bitfield.Bits(s, 12, 13)] }
func (s Status) PairMode() bool      { return bitfield.Bit(s, 14) }

// TriggerLost reports whether a trigger was not sent to the TDC chips
// since the last status read.
func (s Status) TriggerLost() bool { return bitfield.Bit(s, 15) }

// MicroHandshake is the handshake register of the micro-controller.
type MicroHandshake uint16

func (h MicroHandshake) WriteOK() bool { return bitfield.Bit(h, 0) }
func (h MicroHandshake) ReadOK() bool  { return bitfield.Bit(h, 1) }

// EventFIFOStatus is the status register of the event FIFO.
type EventFIFOStatus uint16

func (s EventFIFOStatus) DataReady() bool { return bitfield.Bit(s, 0) }
func (s EventFIFOStatus) Full() bool      { return bitfield.Bit(s, 1) }

// EdgeDetection selects the detected signal edges.
type EdgeDetection uint16

func NewEdgeDetection(leading, trailing bool) EdgeDetection {
	var e EdgeDetection
	e.SetLeading(leading)
	e.SetTrailing(trailing)
	return e
}

func (e EdgeDetection) Trailing() bool { return bitfield.Bit(e, 0) }
func (e EdgeDetection) Leading() bool  { return bitfield.Bit(e, 1) }

// PairMode reports whether both edges are detected and the pulse width is
// measured.
func (e EdgeDetection) PairMode() bool { return e&3 == 3 }

func (e *EdgeDetection) SetTrailing(v bool) { *e = bitfield.SetBit(*e, 0, v) }
func (e *EdgeDetection) SetLeading(v bool)  { *e = bitfield.SetBit(*e, 1, v) }

// InternalErrors is a set of TDC chip internal error types.
type InternalErrors uint16

func (e InternalErrors) Vernier() bool     { return bitfield.Bit(e, 0) }
func (e InternalErrors) Coarse() bool      { return bitfield.Bit(e, 1) }
func (e InternalErrors) Channel() bool     { return bitfield.Bit(e, 2) }
func (e InternalErrors) L1Parity() bool    { return bitfield.Bit(e, 3) }
func (e InternalErrors) TriggerFIFO() bool { return bitfield.Bit(e, 4) }
func (e InternalErrors) Trigger() bool     { return bitfield.Bit(e, 5) }
func (e InternalErrors) ReadoutFIFO() bool { return bitfield.Bit(e, 6) }
func (e InternalErrors) Readout() bool     { return bitfield.Bit(e, 7) }
func (e InternalErrors) Setup() bool       { return bitfield.Bit(e, 8) }
func (e InternalErrors) Control() bool     { return bitfield.Bit(e, 9) }
func (e InternalErrors) JTAG() bool        { return bitfield.Bit(e, 10) }

func (e *InternalErrors) SetVernier(v bool)     { *e = bitfield.SetBit(*e, 0, v) }
func (e *InternalErrors) SetCoarse(v bool)      { *e = bitfield.SetBit(*e, 1, v) }
func (e *InternalErrors) SetChannel(v bool)     { *e = bitfield.SetBit(*e, 2, v) }
func (e *InternalErrors) SetL1Parity(v bool)    { *e = bitfield.SetBit(*e, 3, v) }
func (e *InternalErrors) SetTriggerFIFO(v bool) { *e = bitfield.SetBit(*e, 4, v) }
func (e *InternalErrors) SetTrigger(v bool)     { *e = bitfield.SetBit(*e, 5, v) }
func (e *InternalErrors) SetReadoutFIFO(v bool) { *e = bitfield.SetBit(*e, 6, v) }
func (e *InternalErrors) SetReadout(v bool)     { *e = bitfield.SetBit(*e, 7, v) }
func (e *InternalErrors) SetSetup(v bool)       { *e = bitfield.SetBit(*e, 8, v) }
func (e *InternalErrors) SetControl(v bool)     { *e = bitfield.SetBit(*e, 9, v) }
func (e *InternalErrors) SetJTAG(v bool)        { *e = bitfield.SetBit(*e, 10, v) }

// TriggerConfig is the trigger matching configuration. Times are in
// seconds, with a 25 ns granularity.
type TriggerConfig struct {
	WindowWidth     float64
	WindowOffset    float64
	SearchMargin    float64
	RejectMargin    float64
	TimeSubtraction bool
}

// Resolution is a time resolution, in seconds. Pulse is only used in pair
// mode.
type Resolution struct {
	Edge  float64
	Pulse float64
}

// GlobalOffset is the global time offset of the TDC chips.
type GlobalOffset struct {
	Coarse uint16
	Fine   uint8
}

// MicroRevision is the firmware revision and date of the micro-controller.
type MicroRevision struct {
	Version uint16
	Day     uint16
	Month   uint16
	Year    uint16
}
