// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package hv drives CAEN V6533 and V6534 six channel high voltage power
// supplies.
//
// Voltages are in volts, currents in amperes and times in seconds.
// The raw register codes are available through the methods named after
// the registers (VSet, ISet, VMon, ...).
package hv // import "github.com/go-lpc/caen/hv"

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/go-lpc/caen"
	"github.com/go-lpc/caen/comm"
)

// Channels is the number of channels of a board.
const Channels = 6

// InfiniteTrip is the trip time code disabling the trip.
const InfiniteTrip = 10000

// MaxRamp is the maximum ramp rate, in V/s.
const MaxRamp = 500

// Model is a power supply model.
type Model int

const (
	V6533 Model = iota // 6 Ch 4KV/3mA
	V6534              // 6 Ch 6KV/1mA
)

func (m Model) String() string {
	switch m {
	case V6533:
		return "V6533"
	case V6534:
		return "V6534"
	}
	return fmt.Sprintf("Model(%d)", int(m))
}

// ParseModel returns the model with the given (case insensitive) name.
func ParseModel(name string) (Model, error) {
	for _, m := range []Model{V6533, V6534} {
		if strings.EqualFold(m.String(), name) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("hv: unknown model %q", name)
}

type rating struct {
	vmax  uint16  // maximum voltage code, 0.1 V
	imax  uint16  // maximum current setting code
	iset  float64 // current setting unit, A
	imonH float64 // current monitor unit in high range, A
	imonL float64 // current monitor unit in low range, A
}

var ratings = [...]rating{
	V6533: {vmax: 40000, imax: 62000, iset: 0.05e-6, imonH: 0.05e-6, imonL: 0.005e-6},
	V6534: {vmax: 60000, imax: 52500, iset: 0.02e-6, imonH: 0.02e-6, imonL: 0.002e-6},
}

// IMonRange is the range of the current monitor.
type IMonRange uint16

const (
	IMonHigh IMonRange = 0
	IMonLow  IMonRange = 1
)

func (r IMonRange) String() string {
	if r == IMonLow {
		return "low"
	}
	return "high"
}

// PowerDownMode is the way a channel is switched off.
type PowerDownMode uint16

const (
	Kill PowerDownMode = 0
	Ramp PowerDownMode = 1
)

func (m PowerDownMode) String() string {
	if m == Ramp {
		return "ramp"
	}
	return "kill"
}

// Board is a V6533 or V6534 power supply.
type Board struct {
	*comm.Device
	model Model
	rate  rating
}

// Open connects to the power supply reachable through conn with the named
// driver.
func Open(driver string, conn caen.Connection, model Model) (*Board, error) {
	dev, err := comm.Open(driver, conn)
	if err != nil {
		return nil, err
	}
	brd, err := New(dev, model)
	if err != nil {
		_ = dev.Close()
		return nil, err
	}
	return brd, nil
}

// New checks that the model name stored in the board matches model.
func New(dev *comm.Device, model Model) (*Board, error) {
	if model != V6533 && model != V6534 {
		return nil, fmt.Errorf("hv: invalid model %v", model)
	}
	brd := &Board{Device: dev, model: model, rate: ratings[model]}
	name, err := brd.ModelName()
	if err != nil {
		return nil, fmt.Errorf("hv: could not read model name: %w", err)
	}
	if !strings.HasPrefix(name, model.String()) {
		return nil, dev.WrongDevice(model.String())
	}
	return brd, nil
}

func (brd *Board) Kind() string { return brd.model.String() }

// Model returns the model of the power supply.
func (brd *Board) Model() Model { return brd.model }

// Transfer moves the ownership of the connection to a new Board.
func (brd *Board) Transfer() *Board {
	return &Board{Device: brd.Device.Transfer(), model: brd.model, rate: brd.rate}
}

func checkChannel(ch int) error {
	if ch < 0 || ch >= Channels {
		return fmt.Errorf("hv: bad channel: %d", ch)
	}
	return nil
}

func (brd *Board) readChannel(ch int, offset uint32) (uint16, error) {
	if err := checkChannel(ch); err != nil {
		return 0, err
	}
	return brd.Read16(0x80*uint32(ch) + offset)
}

func (brd *Board) writeChannel(ch int, offset uint32, v uint16) error {
	if err := checkChannel(ch); err != nil {
		return err
	}
	return brd.Write16(0x80*uint32(ch)+offset, v)
}

func (brd *Board) readString(addr uint32, size int) (string, error) {
	buf := make([]byte, 0, size)
	for len(buf) < size {
		v, err := brd.Read16(addr)
		if err != nil {
			return "", err
		}
		buf = append(buf, byte(v), byte(v>>8))
		addr += 2
	}
	buf = buf[:size]
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		buf = buf[:i]
	}
	return strings.TrimSpace(string(buf)), nil
}

// code converts a physical value to a register code, clamped to [0, max].
// Settings are linear in unit so lut.Nearest is not needed.
func code(v, unit float64, max uint16) uint16 {
	c := math.Round(v / unit)
	switch {
	case c < 0 || math.IsNaN(c):
		return 0
	case c > float64(max):
		return max
	}
	return uint16(c)
}

func clamp(v, max uint16) uint16 {
	if v > max {
		return max
	}
	return v
}

// VMax returns the hardware maximum voltage, in V.
func (brd *Board) VMax() (uint16, error) { return brd.Read16(0x0050) }

// IMax returns the hardware maximum current, in μA.
func (brd *Board) IMax() (uint16, error) { return brd.Read16(0x0054) }

func (brd *Board) VoltageHWMax() (float64, error) {
	v, err := brd.VMax()
	return float64(v), err
}

func (brd *Board) CurrentHWMax() (float64, error) {
	v, err := brd.IMax()
	return float64(v) * 1e-6, err
}

func (brd *Board) Status() (BoardStatus, error) {
	v, err := brd.Read16(0x0058)
	return BoardStatus(v), err
}

func (brd *Board) FirmwareRelease() (uint16, error) { return brd.Read16(0x005C) }

// VSet returns the voltage setting code, in 0.1 V.
func (brd *Board) VSet(ch int) (uint16, error) { return brd.readChannel(ch, 0x80) }
func (brd *Board) SetVSet(ch int, v uint16) error {
	return brd.writeChannel(ch, 0x80, clamp(v, brd.rate.vmax))
}

func (brd *Board) VoltageSetting(ch int) (float64, error) {
	v, err := brd.VSet(ch)
	return float64(v) * 0.1, err
}

func (brd *Board) SetVoltage(ch int, v float64) error {
	return brd.SetVSet(ch, code(v, 0.1, brd.rate.vmax))
}

// ISet returns the current setting code.
func (brd *Board) ISet(ch int) (uint16, error) { return brd.readChannel(ch, 0x84) }
func (brd *Board) SetISet(ch int, v uint16) error {
	return brd.writeChannel(ch, 0x84, clamp(v, brd.rate.imax))
}

func (brd *Board) CurrentSetting(ch int) (float64, error) {
	v, err := brd.ISet(ch)
	return float64(v) * brd.rate.iset, err
}

func (brd *Board) SetCurrent(ch int, v float64) error {
	return brd.SetISet(ch, code(v, brd.rate.iset, brd.rate.imax))
}

// VMon returns the monitored voltage code, in 0.1 V.
func (brd *Board) VMon(ch int) (uint16, error) { return brd.readChannel(ch, 0x88) }

func (brd *Board) Voltage(ch int) (float64, error) {
	v, err := brd.VMon(ch)
	return float64(v) * 0.1, err
}

func (brd *Board) IMonRange(ch int) (IMonRange, error) {
	v, err := brd.readChannel(ch, 0xB4)
	return IMonRange(v & 1), err
}

func (brd *Board) SetIMonRange(ch int, r IMonRange) error {
	return brd.writeChannel(ch, 0xB4, uint16(r&1))
}

// IMonLow returns the monitored current code of the low range.
// It is only meaningful when the low range is selected.
func (brd *Board) IMonLow(ch int) (uint16, error) { return brd.readChannel(ch, 0xB8) }

// IMonHigh returns the monitored current code of the high range.
// It is only meaningful when the high range is selected.
func (brd *Board) IMonHigh(ch int) (uint16, error) { return brd.readChannel(ch, 0x8C) }

// Current returns the monitored current, read in the selected range.
func (brd *Board) Current(ch int) (float64, error) {
	r, err := brd.IMonRange(ch)
	if err != nil {
		return 0, err
	}
	if r == IMonLow {
		v, err := brd.IMonLow(ch)
		return float64(v) * brd.rate.imonL, err
	}
	v, err := brd.IMonHigh(ch)
	return float64(v) * brd.rate.imonH, err
}

func (brd *Board) Power(ch int) (bool, error) {
	v, err := brd.readChannel(ch, 0x90)
	return v != 0, err
}

func (brd *Board) SetPower(ch int, on bool) error {
	var v uint16
	if on {
		v = 1
	}
	return brd.writeChannel(ch, 0x90, v)
}

func (brd *Board) ChannelStatus(ch int) (ChannelStatus, error) {
	v, err := brd.readChannel(ch, 0x94)
	return ChannelStatus(v), err
}

// TripTime returns the trip time code, in 0.1 s.
func (brd *Board) TripTime(ch int) (uint16, error) { return brd.readChannel(ch, 0x98) }
func (brd *Board) SetTripTime(ch int, v uint16) error {
	return brd.writeChannel(ch, 0x98, clamp(v, InfiniteTrip))
}

// Trip returns the trip time. A disabled trip is +Inf.
func (brd *Board) Trip(ch int) (float64, error) {
	v, err := brd.TripTime(ch)
	if err != nil {
		return 0, err
	}
	if v >= InfiniteTrip {
		return math.Inf(+1), nil
	}
	return float64(v) * 0.1, nil
}

// SetTrip sets the trip time. Times of 1000 s or more disable the trip.
func (brd *Board) SetTrip(ch int, v float64) error {
	return brd.SetTripTime(ch, code(v, 0.1, InfiniteTrip))
}

// SVMax returns the software maximum voltage code, in 0.1 V.
func (brd *Board) SVMax(ch int) (uint16, error) { return brd.readChannel(ch, 0x9C) }
func (brd *Board) SetSVMax(ch int, v uint16) error {
	return brd.writeChannel(ch, 0x9C, clamp(v, brd.rate.vmax))
}

func (brd *Board) VoltageMax(ch int) (float64, error) {
	v, err := brd.SVMax(ch)
	return float64(v) * 0.1, err
}

func (brd *Board) SetVoltageMax(ch int, v float64) error {
	return brd.SetSVMax(ch, code(v, 0.1, brd.rate.vmax))
}

// RampDown returns the ramp down rate, in V/s.
func (brd *Board) RampDown(ch int) (uint16, error) { return brd.readChannel(ch, 0xA0) }
func (brd *Board) SetRampDown(ch int, v uint16) error {
	return brd.writeChannel(ch, 0xA0, clamp(v, MaxRamp))
}

// RampUp returns the ramp up rate, in V/s.
func (brd *Board) RampUp(ch int) (uint16, error) { return brd.readChannel(ch, 0xA4) }
func (brd *Board) SetRampUp(ch int, v uint16) error {
	return brd.writeChannel(ch, 0xA4, clamp(v, MaxRamp))
}

func (brd *Board) PowerDown(ch int) (PowerDownMode, error) {
	v, err := brd.readChannel(ch, 0xA8)
	return PowerDownMode(v & 1), err
}

func (brd *Board) SetPowerDown(ch int, m PowerDownMode) error {
	return brd.writeChannel(ch, 0xA8, uint16(m&1))
}

// Polarity returns +1 for a positive channel and -1 for a negative one.
func (brd *Board) Polarity(ch int) (int, error) {
	v, err := brd.readChannel(ch, 0xAC)
	if err != nil {
		return 0, err
	}
	if v != 0 {
		return +1, nil
	}
	return -1, nil
}

// Temperature returns the channel temperature, in °C.
func (brd *Board) Temperature(ch int) (int16, error) {
	v, err := brd.readChannel(ch, 0xB0)
	return int16(v), err
}

// NumChannels returns the number of channels reported by the board.
func (brd *Board) NumChannels() (uint16, error) { return brd.Read16(0x8100) }

// Description returns the board description, e.g. "6 Ch 6KV/1mA".
func (brd *Board) Description() (string, error) { return brd.readString(0x8102, 20) }

// ModelName returns the model name stored in the board.
func (brd *Board) ModelName() (string, error) { return brd.readString(0x8116, 8) }

func (brd *Board) Serial() (uint16, error)             { return brd.Read16(0x811E) }
func (brd *Board) VMEFirmwareRelease() (uint16, error) { return brd.Read16(0x8120) }

// Reading is a snapshot of the monitored values of a channel.
type Reading struct {
	Channel     int           `json:"channel"`
	Power       bool          `json:"power"`
	Status      ChannelStatus `json:"status"`
	VSet        float64       `json:"vset"` // V
	ISet        float64       `json:"iset"` // A
	Voltage     float64       `json:"vmon"` // V
	Current     float64       `json:"imon"` // A
	Temperature int16         `json:"temperature"`
}

// Read returns a snapshot of channel ch.
func (brd *Board) Read(ch int) (Reading, error) {
	if err := checkChannel(ch); err != nil {
		return Reading{}, err
	}
	var (
		r   = Reading{Channel: ch}
		err error
	)
	r.Power, err = brd.Power(ch)
	if err != nil {
		return r, fmt.Errorf("hv: could not read power of channel %d: %w", ch, err)
	}
	r.Status, err = brd.ChannelStatus(ch)
	if err != nil {
		return r, fmt.Errorf("hv: could not read status of channel %d: %w", ch, err)
	}
	r.VSet, err = brd.VoltageSetting(ch)
	if err != nil {
		return r, fmt.Errorf("hv: could not read vset of channel %d: %w", ch, err)
	}
	r.ISet, err = brd.CurrentSetting(ch)
	if err != nil {
		return r, fmt.Errorf("hv: could not read iset of channel %d: %w", ch, err)
	}
	r.Voltage, err = brd.Voltage(ch)
	if err != nil {
		return r, fmt.Errorf("hv: could not read vmon of channel %d: %w", ch, err)
	}
	r.Current, err = brd.Current(ch)
	if err != nil {
		return r, fmt.Errorf("hv: could not read imon of channel %d: %w", ch, err)
	}
	r.Temperature, err = brd.Temperature(ch)
	if err != nil {
		return r, fmt.Errorf("hv: could not read temperature of channel %d: %w", ch, err)
	}
	return r, nil
}

// ReadAll returns a snapshot of all the channels.
func (brd *Board) ReadAll() ([]Reading, error) {
	rs := make([]Reading, 0, Channels)
	for ch := 0; ch < Channels; ch++ {
		r, err := brd.Read(ch)
		if err != nil {
			return rs, err
		}
		rs = append(rs, r)
	}
	return rs, nil
}
