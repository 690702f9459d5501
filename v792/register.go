// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package v792

import "github.com/go-lpc/caen/bitfield"

// Status1 is the status register 1.
type Status1 uint16

func (s Status1) DataReady() bool      { return bitfield.Bit(s, 0) }
func (s Status1) GlobalReady() bool    { return bitfield.Bit(s, 1) }
func (s Status1) Busy() bool           { return bitfield.Bit(s, 2) }
func (s Status1) GlobalBusy() bool     { return bitfield.Bit(s, 3) }
func (s Status1) Amnesia() bool        { return bitfield.Bit(s, 4) }
func (s Status1) Purged() bool         { return bitfield.Bit(s, 5) }
func (s Status1) TerminationOn() bool  { return bitfield.Bit(s, 6) }
func (s Status1) TerminationOff() bool { return bitfield.Bit(s, 7) }
func (s Status1) EventsReady() bool    { return bitfield.Bit(s, 8) }

// Control1 is the control register 1.
type Control1 uint16

func (c Control1) BlockReadout() bool        { return bitfield.Bit(c, 2) }
func (c Control1) PanelResetsSoftware() bool { return bitfield.Bit(c, 4) }
func (c Control1) BusErrorEnabled() bool     { return bitfield.Bit(c, 5) }
func (c Control1) Align64() bool             { return bitfield.Bit(c, 6) }

func (c *Control1) SetBlockReadout(v bool)        { *c = bitfield.SetBit(*c, 2, v) }
func (c *Control1) SetPanelResetsSoftware(v bool) { *c = bitfield.SetBit(*c, 4, v) }
func (c *Control1) SetBusErrorEnabled(v bool)     { *c = bitfield.SetBit(*c, 5, v) }
func (c *Control1) SetAlign64(v bool)             { *c = bitfield.SetBit(*c, 6, v) }

// Status2 is the status register 2.
type Status2 uint16

func (s Status2) BufferEmpty() bool { return bitfield.Bit(s, 1) }
func (s Status2) BufferFull() bool  { return bitfield.Bit(s, 2) }

// PiggyBackType is the type of the piggy-back plugged into the board.
func (s Status2) PiggyBackType() uint8 { return uint8(bitfield.Bits(s, 4, 7)) }

// BitSet2 is the bit set 2 register. It is read through its set address;
// bits are raised through the set address and lowered through the clear
// address.
//
// ThresholdEnabled and SlideSubtractionEnabled are stored inverted.
type BitSet2 uint16

// BitSet2Mask excludes the reserved bits.
const BitSet2Mask BitSet2 = 0x79DF

const (
	bs2TestMemory       = 0
	bs2Offline          = 1
	bs2ClearData        = 2
	bs2OverflowEnabled  = 3
	bs2ThresholdEnabled = 4
	bs2TestAcquisition  = 6
	bs2SlideEnabled     = 7
	bs2ShiftThreshold   = 8
	bs2AutoIncrement    = 11
	bs2EmptyEnabled     = 12
	bs2SlideSubtraction = 13
	bs2AllTriggers      = 14
)

// NewBitSet2 returns v without its reserved bits.
func NewBitSet2(v uint16) BitSet2 { return BitSet2(v) & BitSet2Mask }

func (b BitSet2) TestMemory() bool              { return bitfield.Bit(b, bs2TestMemory) }
func (b BitSet2) Offline() bool                 { return bitfield.Bit(b, bs2Offline) }
func (b BitSet2) ClearData() bool               { return bitfield.Bit(b, bs2ClearData) }
func (b BitSet2) OverflowEnabled() bool         { return bitfield.Bit(b, bs2OverflowEnabled) }
func (b BitSet2) ThresholdEnabled() bool        { return !bitfield.Bit(b, bs2ThresholdEnabled) }
func (b BitSet2) TestAcquisition() bool         { return bitfield.Bit(b, bs2TestAcquisition) }
func (b BitSet2) SlideEnabled() bool            { return bitfield.Bit(b, bs2SlideEnabled) }
func (b BitSet2) ShiftThreshold() bool          { return bitfield.Bit(b, bs2ShiftThreshold) }
func (b BitSet2) AutoIncrement() bool           { return bitfield.Bit(b, bs2AutoIncrement) }
func (b BitSet2) EmptyEnabled() bool            { return bitfield.Bit(b, bs2EmptyEnabled) }
func (b BitSet2) SlideSubtractionEnabled() bool { return !bitfield.Bit(b, bs2SlideSubtraction) }
func (b BitSet2) AllTriggers() bool             { return bitfield.Bit(b, bs2AllTriggers) }

func (b *BitSet2) SetTestMemory(v bool)      { *b = bitfield.SetBit(*b, bs2TestMemory, v) }
func (b *BitSet2) SetOffline(v bool)         { *b = bitfield.SetBit(*b, bs2Offline, v) }
func (b *BitSet2) SetClearData(v bool)       { *b = bitfield.SetBit(*b, bs2ClearData, v) }
func (b *BitSet2) SetOverflowEnabled(v bool) { *b = bitfield.SetBit(*b, bs2OverflowEnabled, v) }
func (b *BitSet2) SetThresholdEnabled(v bool) {
	*b = bitfield.SetBit(*b, bs2ThresholdEnabled, !v)
}
func (b *BitSet2) SetTestAcquisition(v bool) { *b = bitfield.SetBit(*b, bs2TestAcquisition, v) }
func (b *BitSet2) SetSlideEnabled(v bool)    { *b = bitfield.SetBit(*b, bs2SlideEnabled, v) }
func (b *BitSet2) SetShiftThreshold(v bool)  { *b = bitfield.SetBit(*b, bs2ShiftThreshold, v) }
func (b *BitSet2) SetAutoIncrement(v bool)   { *b = bitfield.SetBit(*b, bs2AutoIncrement, v) }
func (b *BitSet2) SetEmptyEnabled(v bool)    { *b = bitfield.SetBit(*b, bs2EmptyEnabled, v) }
func (b *BitSet2) SetSlideSubtractionEnabled(v bool) {
	*b = bitfield.SetBit(*b, bs2SlideSubtraction, !v)
}
func (b *BitSet2) SetAllTriggers(v bool) { *b = bitfield.SetBit(*b, bs2AllTriggers, v) }

// SetAll raises (or lowers) every non-reserved bit.
func (b *BitSet2) SetAll(v bool) {
	if v {
		*b = BitSet2Mask
		return
	}
	*b = 0
}

// TestEvent is a word written into the test event memory.
type TestEvent uint16

func NewTestEvent(value uint16, overflow bool) TestEvent {
	ev := TestEvent(value & 0xFFF)
	return bitfield.SetBit(ev, 12, overflow)
}

func (ev TestEvent) Value() uint16  { return uint16(bitfield.Bits(ev, 0, 11)) }
func (ev TestEvent) Overflow() bool { return bitfield.Bit(ev, 12) }

// ChannelSettings holds the threshold and the kill bit of a channel.
type ChannelSettings uint16

func NewChannelSettings(threshold uint8, enabled bool) ChannelSettings {
	var s ChannelSettings
	s.SetThreshold(threshold)
	s.SetDisabled(!enabled)
	return s
}

func (s ChannelSettings) Threshold() uint8 { return uint8(bitfield.Bits(s, 0, 7)) }
func (s ChannelSettings) Disabled() bool   { return bitfield.Bit(s, 8) }

func (s *ChannelSettings) SetThreshold(v uint8) { *s = bitfield.SetBits(*s, 0, 7, ChannelSettings(v)) }
func (s *ChannelSettings) SetDisabled(v bool)   { *s = bitfield.SetBit(*s, 8, v) }
