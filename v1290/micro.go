// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package v1290

import (
	"fmt"
	"math"

	"github.com/go-lpc/caen/comm"
	"github.com/go-lpc/caen/internal/lut"
)

const (
	regMicro          = 0x102E
	regMicroHandshake = 0x1030
)

// ScanPathLength is the number of 16-bit words of a TDC scan path.
const ScanPathLength = 41

// micro is a sequence of micro-controller transfers. Once a transfer
// failed, the following ones are skipped.
type micro struct {
	tdc *V1290
	err error
}

func (tdc *V1290) micro() *micro { return &micro{tdc: tdc} }

func (m *micro) wait(ready func(MicroHandshake) bool, what string) {
	cfg := m.tdc.cfg
	m.err = comm.Poll(cfg.timeout, cfg.interval, what, func() (bool, error) {
		h, err := m.tdc.MicroHandshake()
		if err != nil {
			return false, err
		}
		return ready(h), nil
	})
}

func (m *micro) write(v uint16) {
	if m.err != nil {
		return
	}
	m.wait(MicroHandshake.WriteOK, "V1290 micro-controller write")
	if m.err != nil {
		m.err = fmt.Errorf("v1290: could not write 0x%04x to micro-controller: %w", v, m.err)
		return
	}
	m.err = m.tdc.Write16(regMicro, v)
}

func (m *micro) read() uint16 {
	if m.err != nil {
		return 0
	}
	m.wait(MicroHandshake.ReadOK, "V1290 micro-controller read")
	if m.err != nil {
		m.err = fmt.Errorf("v1290: could not read from micro-controller: %w", m.err)
		return 0
	}
	var v uint16
	v, m.err = m.tdc.Read16(regMicro)
	return v
}

// opcode sends op followed by its parameters.
func (tdc *V1290) opcode(op uint16, params ...uint16) error {
	m := tdc.micro()
	m.write(op)
	for _, p := range params {
		m.write(p)
	}
	return m.err
}

// query sends op and reads back one word.
func (tdc *V1290) query(op uint16) (uint16, error) {
	m := tdc.micro()
	m.write(op)
	v := m.read()
	return v, m.err
}

func choose(v bool, yes, no uint16) uint16 {
	if v {
		return yes
	}
	return no
}

const cycle = 25e-9

func cyclesToSeconds(c uint16) float64 { return float64(int16(c)) * cycle }

func secondsToCycles(s float64) uint16 {
	c := math.Round(s / cycle)
	c = max(math.MinInt16, min(c, math.MaxInt16))
	return uint16(int16(c))
}

// SetTriggeredMode selects the trigger matching mode, or the continuous
// storage mode.
func (tdc *V1290) SetTriggeredMode(v bool) error {
	return tdc.opcode(choose(v, 0x0000, 0x0100))
}

func (tdc *V1290) TriggeredMode() (bool, error) {
	v, err := tdc.query(0x0200)
	return v&1 != 0, err
}

func (tdc *V1290) SetKeepToken(v bool) error {
	return tdc.opcode(choose(v, 0x0300, 0x0400))
}

func (tdc *V1290) LoadDefaultConfig() error { return tdc.opcode(0x0500) }
func (tdc *V1290) SaveUserConfig() error    { return tdc.opcode(0x0600) }
func (tdc *V1290) LoadUserConfig() error    { return tdc.opcode(0x0700) }

// SetAutoloadUserConfig selects whether the user configuration, instead
// of the default one, is loaded at power on.
func (tdc *V1290) SetAutoloadUserConfig(v bool) error {
	return tdc.opcode(choose(v, 0x0800, 0x0900))
}

func (tdc *V1290) SetWindowWidth(s float64) error {
	return tdc.opcode(0x1000, secondsToCycles(s))
}

func (tdc *V1290) SetWindowOffset(s float64) error {
	return tdc.opcode(0x1100, secondsToCycles(s))
}

func (tdc *V1290) SetSearchMargin(s float64) error {
	return tdc.opcode(0x1200, secondsToCycles(s))
}

func (tdc *V1290) SetRejectMargin(s float64) error {
	return tdc.opcode(0x1300, secondsToCycles(s))
}

func (tdc *V1290) SetTriggerTimeSubtraction(v bool) error {
	return tdc.opcode(choose(v, 0x1400, 0x1500))
}

func (tdc *V1290) TriggerConfig() (TriggerConfig, error) {
	m := tdc.micro()
	m.write(0x1600)
	cfg := TriggerConfig{
		WindowWidth:  cyclesToSeconds(m.read()),
		WindowOffset: cyclesToSeconds(m.read()),
		SearchMargin: cyclesToSeconds(m.read()),
		RejectMargin: cyclesToSeconds(m.read()),
	}
	cfg.TimeSubtraction = m.read()&1 != 0
	return cfg, m.err
}

// SetTriggerConfig programs the trigger matching windows and the trigger
// time subtraction.
func (tdc *V1290) SetTriggerConfig(cfg TriggerConfig) error {
	m := tdc.micro()
	for _, v := range []struct {
		op uint16
		s  float64
	}{
		{0x1000, cfg.WindowWidth},
		{0x1100, cfg.WindowOffset},
		{0x1200, cfg.SearchMargin},
		{0x1300, cfg.RejectMargin},
	} {
		m.write(v.op)
		m.write(secondsToCycles(v.s))
	}
	m.write(choose(cfg.TimeSubtraction, 0x1400, 0x1500))
	return m.err
}

func (tdc *V1290) EdgeDetection() (EdgeDetection, error) {
	v, err := tdc.query(0x2300)
	return EdgeDetection(v), err
}

func (tdc *V1290) SetEdgeDetection(e EdgeDetection) error {
	return tdc.opcode(0x2200, uint16(e&3))
}

// Resolution returns the time resolution. The resolution code is
// interpreted according to the current edge detection mode.
func (tdc *V1290) Resolution() (Resolution, error) {
	edge, err := tdc.EdgeDetection()
	if err != nil {
		return Resolution{}, err
	}
	code, err := tdc.query(0x2600)
	if err != nil {
		return Resolution{}, err
	}
	if edge.PairMode() {
		return Resolution{
			Edge:  PairResolutions[code&0x7],
			Pulse: PairResolutions[code>>8&0xF],
		}, nil
	}
	return Resolution{Edge: SingleResolutions[code&0x3]}, nil
}

// SetResolution selects the resolutions closest to r. r.Pulse is ignored
// unless the board is in pair mode.
func (tdc *V1290) SetResolution(r Resolution) error {
	edge, err := tdc.EdgeDetection()
	if err != nil {
		return err
	}
	if edge.PairMode() {
		// the edge code is 3 bits wide, the pulse code 4 bits.
		var (
			iedge = lut.Nearest(PairResolutions[:8], r.Edge)
			ipuls = lut.Nearest(PairResolutions[:14], r.Pulse)
		)
		return tdc.opcode(0x2500, uint16(ipuls<<8|iedge))
	}
	return tdc.opcode(0x2400, uint16(lut.Nearest(SingleResolutions[:], r.Edge)))
}

// DeadTime returns the double hit resolution, in seconds.
func (tdc *V1290) DeadTime() (float64, error) {
	v, err := tdc.query(0x2900)
	return DeadTimes[v&3], err
}

// SetDeadTime selects the double hit resolution closest to s.
func (tdc *V1290) SetDeadTime(s float64) error {
	return tdc.opcode(0x2800, uint16(lut.Nearest(DeadTimes[:], s)))
}

// HeaderAndTrailerEnabled reports whether the TDC headers and trailers are
// written into the output buffer.
func (tdc *V1290) HeaderAndTrailerEnabled() (bool, error) {
	v, err := tdc.query(0x3200)
	return v != 0, err
}

func (tdc *V1290) SetHeaderAndTrailerEnabled(v bool) error {
	return tdc.opcode(choose(v, 0x3000, 0x3100))
}

// EventSize returns the maximum number of hits per event, or -1 when
// unlimited.
func (tdc *V1290) EventSize() (int, error) {
	code, err := tdc.query(0x3400)
	if err != nil {
		return 0, err
	}
	switch code {
	case 9:
		return -1, nil
	case 0:
		return 0, nil
	}
	return 1 << (code - 1), nil
}

// SetEventSize sets the maximum number of hits per event, rounded up to a
// power of two. Negative sizes, or sizes above 128, remove the limit.
func (tdc *V1290) SetEventSize(n int) error {
	var code uint16
	switch {
	case n < 0 || n > 128:
		code = 9
	case n == 0:
		code = 0
	default:
		code = uint16(lut.Log2Ceil(uint(n))) + 1
	}
	return tdc.opcode(0x3300, code)
}

func (tdc *V1290) SetErrorMark(v bool) error {
	return tdc.opcode(choose(v, 0x3500, 0x3600))
}

// SetErrorBypass enables the TDCs bypass when a global error occurs.
func (tdc *V1290) SetErrorBypass(v bool) error {
	return tdc.opcode(choose(v, 0x3700, 0x3800))
}

// InternalErrors returns the internal error types the chips report.
func (tdc *V1290) InternalErrors() (InternalErrors, error) {
	v, err := tdc.query(0x3A00)
	return InternalErrors(v), err
}

func (tdc *V1290) SetInternalErrors(e InternalErrors) error {
	return tdc.opcode(0x3900, uint16(e))
}

// FIFOSize returns the size, in words, of the chip readout FIFO.
func (tdc *V1290) FIFOSize() (int, error) {
	code, err := tdc.query(0x3C00)
	return 2 << (code & 0x7), err
}

// SetFIFOSize sets the chip readout FIFO size to n words, rounded up to a
// power of two between 2 and 256.
func (tdc *V1290) SetFIFOSize(n int) error {
	var code uint16
	switch {
	case n <= 2:
		code = 0
	case n >= 256:
		code = 7
	default:
		code = uint16(lut.Log2Ceil(uint(n))) - 1
	}
	return tdc.opcode(0x3B00, code)
}

func (tdc *V1290) SetChannelEnabled(ch uint8, v bool) error {
	return tdc.opcode(choose(v, 0x4000, 0x4100) | uint16(ch))
}

func (tdc *V1290) SetChannelsEnabled(v bool) error {
	return tdc.opcode(choose(v, 0x4200, 0x4300))
}

// EnabledChannels returns the mask of enabled channels.
func (tdc *V1290) EnabledChannels() (uint32, error) {
	m := tdc.micro()
	m.write(0x4500)
	mask := uint32(m.read())
	if tdc.version == V1290A {
		mask |= uint32(m.read()) << 16
	}
	return mask, m.err
}

func (tdc *V1290) EnableChannels(mask uint32) error {
	if tdc.version == V1290A {
		return tdc.opcode(0x4400, uint16(mask), uint16(mask>>16))
	}
	return tdc.opcode(0x4400, uint16(mask))
}

// EnabledTDCChannels returns the mask of the enabled internal channels of
// a TDC chip. Each measurement is performed by 4 cascaded chip channels.
func (tdc *V1290) EnabledTDCChannels(chip uint8) (uint32, error) {
	m := tdc.micro()
	m.write(0x4700 | uint16(chip))
	lo := m.read()
	hi := m.read()
	return uint32(hi)<<16 | uint32(lo), m.err
}

func (tdc *V1290) EnableTDCChannels(chip uint8, mask uint32) error {
	return tdc.opcode(0x4600|uint16(chip), uint16(mask), uint16(mask>>16))
}

func (tdc *V1290) GlobalOffset() (GlobalOffset, error) {
	m := tdc.micro()
	m.write(0x5100)
	coarse := m.read()
	fine := m.read()
	return GlobalOffset{Coarse: coarse, Fine: uint8(fine)}, m.err
}

func (tdc *V1290) SetGlobalOffset(o GlobalOffset) error {
	return tdc.opcode(0x5000, o.Coarse, uint16(o.Fine))
}

func (tdc *V1290) ChannelAdjust(ch uint8) (uint8, error) {
	v, err := tdc.query(0x5300 | uint16(ch))
	return uint8(v), err
}

func (tdc *V1290) AdjustChannel(ch, v uint8) error {
	return tdc.opcode(0x5200|uint16(ch), uint16(v))
}

func (tdc *V1290) RCAdjust(chip uint8) (uint16, error) {
	return tdc.query(0x5500 | uint16(chip))
}

func (tdc *V1290) AdjustRC(chip uint8, v uint16) error {
	return tdc.opcode(0x5400|uint16(chip), v)
}

func (tdc *V1290) SaveRCAdjust() error { return tdc.opcode(0x5600) }

func (tdc *V1290) TDCID(chip uint8) (uint16, error) {
	return tdc.query(0x6000 | uint16(chip))
}

// MicroFirmware returns the firmware revision of the micro-controller.
func (tdc *V1290) MicroFirmware() (uint16, error) { return tdc.query(0x6100) }

// ResetTimers resets the PLL and DLL of the TDC chips.
func (tdc *V1290) ResetTimers() error { return tdc.opcode(0x6200) }

func (tdc *V1290) ScanPathWrite(addr uint8, w uint16) error {
	return tdc.opcode(0x7000|uint16(addr), w)
}

func (tdc *V1290) ScanPathRead(addr uint8) (uint16, error) {
	return tdc.query(0x7100 | uint16(addr))
}

func (tdc *V1290) ScanPathLoadAll() error { return tdc.opcode(0x7200) }
func (tdc *V1290) ScanPathReload() error  { return tdc.opcode(0x7300) }

func (tdc *V1290) ScanPathLoad(chip uint8) error {
	return tdc.opcode(0x7700 | uint16(chip))
}

// ReadScanPath reads the whole scan path of a TDC chip.
func (tdc *V1290) ReadScanPath(chip uint8) ([ScanPathLength]uint16, error) {
	var path [ScanPathLength]uint16
	m := tdc.micro()
	m.write(0xC900 | uint16(chip))
	for i := range path {
		path[i] = m.read()
	}
	return path, m.err
}

func (tdc *V1290) TDCErrors(chip uint8) (InternalErrors, error) {
	v, err := tdc.query(0x7400 | uint16(chip))
	return InternalErrors(v), err
}

func (tdc *V1290) DLLLocked(chip uint8) (bool, error) {
	v, err := tdc.query(0x7500 | uint16(chip))
	return v&1 != 0, err
}

// TDCStatus returns the 64-bit status word of a TDC chip.
func (tdc *V1290) TDCStatus(chip uint8) (uint64, error) {
	m := tdc.micro()
	m.write(0x7600 | uint16(chip))
	var v uint64
	for i := 0; i < 4; i++ {
		v = v<<16 | uint64(m.read())
	}
	return v, m.err
}

func (tdc *V1290) EEPROMWrite(addr uint16, b uint8) error {
	return tdc.opcode(0xC000, addr, uint16(b))
}

func (tdc *V1290) EEPROMRead(addr uint16) (uint8, error) {
	m := tdc.micro()
	m.write(0xC100)
	m.write(addr)
	v := m.read()
	return uint8(v), m.err
}

func (tdc *V1290) MicroRevision() (MicroRevision, error) {
	m := tdc.micro()
	m.write(0xC200)
	var rev MicroRevision
	rev.Version = m.read()
	rev.Day = m.read()
	rev.Month = m.read()
	rev.Year = m.read()
	return rev, m.err
}

func (tdc *V1290) SpareWrite(v uint16) error  { return tdc.opcode(0xC300, v) }
func (tdc *V1290) SpareRead() (uint16, error) { return tdc.query(0xC400) }

// EnableTestMode makes the chips output word instead of measurements.
func (tdc *V1290) EnableTestMode(word uint32) error {
	return tdc.opcode(0xC500, uint16(word), uint16(word>>16))
}

func (tdc *V1290) DisableTestMode() error { return tdc.opcode(0xC600) }

func (tdc *V1290) TDCTestOutput(chip, output uint8) error {
	return tdc.opcode(0xC700|uint16(chip), uint16(output))
}

// SetDLLClock selects the DLL clock source:
// 0 direct 40 MHz, 1 PLL 40 MHz, 2 PLL 160 MHz, 3 PLL 320 MHz.
func (tdc *V1290) SetDLLClock(clock uint8) error {
	return tdc.opcode(0xC800, uint16(clock))
}
