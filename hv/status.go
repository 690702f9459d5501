// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hv

import (
	"fmt"
	"strings"

	"github.com/go-lpc/caen/bitfield"
)

// ChannelStatus is the status register of a channel.
type ChannelStatus uint16

const (
	StatusOn ChannelStatus = 1 << iota
	StatusRampUp
	StatusRampDown
	StatusOverCurrent
	StatusOverVoltage
	StatusUnderVoltage
	StatusMaxV
	StatusMaxI
	StatusTrip
	StatusOverPower
	StatusOverTemperature
	StatusDisabled
	StatusInterlock
	StatusUncalibrated
)

var chanStatusNames = [...]string{
	"on",
	"ramp-up",
	"ramp-down",
	"over-current",
	"over-voltage",
	"under-voltage",
	"maxv",
	"maxi",
	"trip",
	"over-power",
	"over-temperature",
	"disabled",
	"interlock",
	"uncalibrated",
}

func (s ChannelStatus) On() bool              { return bitfield.Bit(s, 0) }
func (s ChannelStatus) RampUp() bool          { return bitfield.Bit(s, 1) }
func (s ChannelStatus) RampDown() bool        { return bitfield.Bit(s, 2) }
func (s ChannelStatus) OverCurrent() bool     { return bitfield.Bit(s, 3) }
func (s ChannelStatus) OverVoltage() bool     { return bitfield.Bit(s, 4) }
func (s ChannelStatus) UnderVoltage() bool    { return bitfield.Bit(s, 5) }
func (s ChannelStatus) MaxV() bool            { return bitfield.Bit(s, 6) }
func (s ChannelStatus) MaxI() bool            { return bitfield.Bit(s, 7) }
func (s ChannelStatus) Trip() bool            { return bitfield.Bit(s, 8) }
func (s ChannelStatus) OverPower() bool       { return bitfield.Bit(s, 9) }
func (s ChannelStatus) OverTemperature() bool { return bitfield.Bit(s, 10) }
func (s ChannelStatus) Disabled() bool        { return bitfield.Bit(s, 11) }
func (s ChannelStatus) Interlock() bool       { return bitfield.Bit(s, 12) }
func (s ChannelStatus) Uncalibrated() bool    { return bitfield.Bit(s, 13) }

// Alarm reports whether any of the failure conditions is raised.
func (s ChannelStatus) Alarm() bool {
	return s&(StatusOverCurrent|StatusOverVoltage|StatusUnderVoltage|StatusTrip|StatusOverPower|StatusOverTemperature|StatusInterlock) != 0
}

// Names returns the names of the raised flags.
func (s ChannelStatus) Names() []string {
	var names []string
	for i, name := range chanStatusNames {
		if bitfield.Bit(s, uint(i)) {
			names = append(names, name)
		}
	}
	return names
}

func (s ChannelStatus) String() string {
	names := s.Names()
	if len(names) == 0 {
		return "off"
	}
	return strings.Join(names, "|")
}

// BoardStatus is the status register of the board.
type BoardStatus uint16

// ChannelAlarm reports whether channel ch is in alarm.
func (s BoardStatus) ChannelAlarm(ch int) bool {
	if ch < 0 || ch >= Channels {
		return false
	}
	return bitfield.Bit(s, uint(ch))
}

// Alarms returns the bit mask of the channels in alarm.
func (s BoardStatus) Alarms() uint8   { return uint8(bitfield.Bits(s, 0, 5)) }
func (s BoardStatus) PowerFail() bool { return bitfield.Bit(s, 8) }
func (s BoardStatus) OverPower() bool { return bitfield.Bit(s, 9) }
func (s BoardStatus) MaxVUncal() bool { return bitfield.Bit(s, 10) }
func (s BoardStatus) MaxIUncal() bool { return bitfield.Bit(s, 11) }

// Failure reports whether one of the board level flags is raised.
func (s BoardStatus) Failure() bool { return bitfield.Bits(s, 8, 11) != 0 }

func (s BoardStatus) String() string {
	var o []string
	for ch := 0; ch < Channels; ch++ {
		if s.ChannelAlarm(ch) {
			o = append(o, fmt.Sprintf("alarm-%d", ch))
		}
	}
	for i, name := range []string{"power-fail", "over-power", "maxv-uncal", "maxi-uncal"} {
		if bitfield.Bit(s, uint(8+i)) {
			o = append(o, name)
		}
	}
	if len(o) == 0 {
		return "ok"
	}
	return strings.Join(o, "|")
}
