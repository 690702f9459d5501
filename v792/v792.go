// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package v792 drives CAEN V792 (32 channels) and V792N (16 channels) charge
// integrating ADCs.
package v792 // import "github.com/go-lpc/caen/v792"

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-lpc/caen"
	"github.com/go-lpc/caen/buffer"
	"github.com/go-lpc/caen/comm"
	"github.com/go-lpc/caen/vme"
)

// ID is the board identifier stored in the configuration ROM.
const ID = 792

// BufferSize is the number of words of the output buffer.
const BufferSize = 34 * 32

// Model is a board variant. The variants differ by their channel count and
// by the layout of their data packets.
type Model int

const (
	V792A Model = iota
	V792N
)

func (m Model) String() string {
	switch m {
	case V792A:
		return "V792A"
	case V792N:
		return "V792N"
	}
	return fmt.Sprintf("Model(%d)", int(m))
}

// Channels returns the number of channels of the variant.
func (m Model) Channels() int {
	if m == V792N {
		return 16
	}
	return 32
}

// Stride returns the address step between channel registers.
func (m Model) Stride() uint32 {
	if m == V792N {
		return 4
	}
	return 2
}

// ModelOf returns the variant corresponding to a ROM version byte.
// Known versions are 0x11 (V792AA), 0x13 (V792AC), 0xE1 (V792NA) and
// 0xE3 (V792NC).
func ModelOf(version uint8) Model {
	if version&0xF0 == 0xE0 {
		return V792N
	}
	return V792A
}

// Buffer holds the packets of a readout.
type Buffer = buffer.Buffer[Packet]

// NewBuffer returns a buffer large enough for the whole output buffer.
func NewBuffer() *Buffer { return buffer.New[Packet](BufferSize) }

// Option configures a V792.
type Option func(*config)

type config struct {
	model    Model
	detected bool
}

// WithModel overrides the variant detected from the ROM version byte.
func WithModel(m Model) Option {
	return func(cfg *config) {
		cfg.model = m
		cfg.detected = false
	}
}

// V792 is a V792 ADC.
type V792 struct {
	*comm.Device
	model Model
}

// Open connects to the V792 reachable through conn with the named driver.
func Open(driver string, conn caen.Connection, opts ...Option) (*V792, error) {
	dev, err := comm.Open(driver, conn)
	if err != nil {
		return nil, err
	}
	adc, err := New(dev, opts...)
	if err != nil {
		_ = dev.Close()
		return nil, err
	}
	return adc, nil
}

// New checks that dev is a V792 and detects its variant.
func New(dev *comm.Device, opts ...Option) (*V792, error) {
	cfg := config{detected: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	err := dev.Identify("V792", 0x8026, 0x8036, ID)
	if err != nil {
		return nil, err
	}

	adc := &V792{Device: dev, model: cfg.model}
	if cfg.detected {
		vers, err := adc.Version()
		if err != nil {
			return nil, fmt.Errorf("v792: could not read board version: %w", err)
		}
		adc.model = ModelOf(vers)
	}
	return adc, nil
}

func (*V792) Kind() string { return "V792" }

// Model returns the board variant.
func (adc *V792) Model() Model { return adc.model }

// Transfer moves the ownership of the connection to a new V792.
func (adc *V792) Transfer() *V792 {
	return &V792{Device: adc.Device.Transfer(), model: adc.model}
}

func (adc *V792) read8(addr uint32) (uint8, error) {
	v, err := adc.Read16(addr)
	return uint8(v), err
}

func (adc *V792) FirmwareRevision() (uint16, error) { return adc.Read16(0x1000) }

func (adc *V792) GeoAddress() (uint8, error)     { return adc.read8(0x1002) }
func (adc *V792) SetGeoAddress(geo uint8) error  { return adc.Write16(0x1002, uint16(geo)) }
func (adc *V792) MCSTAddress() (uint8, error)    { return adc.read8(0x1004) }
func (adc *V792) SetMCSTAddress(v uint8) error   { return adc.Write16(0x1004, uint16(v)) }
func (adc *V792) InterruptLevel() (uint8, error) { return adc.read8(0x100A) }
func (adc *V792) SetInterruptLevel(v uint8) error {
	return adc.Write16(0x100A, uint16(v))
}
func (adc *V792) InterruptVector() (uint8, error) { return adc.read8(0x100C) }
func (adc *V792) SetInterruptVector(v uint8) error {
	return adc.Write16(0x100C, uint16(v))
}

// bit set 1 register
const (
	bs1BusError      = 0x08
	bs1SelAddr       = 0x10
	bs1SoftwareReset = 0x80
)

func (adc *V792) bitSet1(mask uint16) (bool, error) {
	v, err := adc.Read16(0x1006)
	return v&mask != 0, err
}

func (adc *V792) setBitSet1(mask uint16, v bool) error {
	if v {
		return adc.Write16(0x1006, mask)
	}
	return adc.Write16(0x1008, mask)
}

// BusError reports whether the board raised a VME bus error.
func (adc *V792) BusError() (bool, error)         { return adc.bitSet1(bs1BusError) }
func (adc *V792) SetBusError(v bool) error        { return adc.setBitSet1(bs1BusError, v) }
func (adc *V792) SWAddressEnabled() (bool, error) { return adc.bitSet1(bs1SelAddr) }
func (adc *V792) SetSWAddressEnabled(v bool) error {
	return adc.setBitSet1(bs1SelAddr, v)
}
func (adc *V792) SoftwareReset() (bool, error)  { return adc.bitSet1(bs1SoftwareReset) }
func (adc *V792) SetSoftwareReset(v bool) error { return adc.setBitSet1(bs1SoftwareReset, v) }

// Reset pulses the software reset.
func (adc *V792) Reset() error {
	seq := adc.Seq()
	seq.Write16(0x1006, bs1SoftwareReset)
	seq.Write16(0x1008, bs1SoftwareReset)
	return seq.Err()
}

func (adc *V792) Status1() (Status1, error) {
	v, err := adc.Read16(0x100E)
	return Status1(v), err
}

func (adc *V792) Control1() (Control1, error) {
	v, err := adc.Read16(0x1010)
	return Control1(v), err
}

func (adc *V792) SetControl1(c Control1) error {
	return adc.Write16(0x1010, uint16(c))
}

// UpdateControl1 reads the control register 1, applies fn and writes it
// back.
func (adc *V792) UpdateControl1(fn func(c *Control1)) error {
	c, err := adc.Control1()
	if err != nil {
		return err
	}
	fn(&c)
	return adc.SetControl1(c)
}

// Address returns the high 16 bits of the software VME base address.
func (adc *V792) Address() (uint16, error) {
	v, err := adc.ReadComposite(0x1012, 2, 2)
	return uint16(v), err
}

func (adc *V792) SetAddress(addr uint16) error {
	seq := adc.Seq()
	seq.Write16(0x1012, addr>>8)
	seq.Write16(0x1014, addr&0xFF)
	return seq.Err()
}

func (adc *V792) SingleShotReset() error { return adc.Write16(0x1016, 1) }

func (adc *V792) SetMCSTControl(first, last bool) error {
	var v uint16
	if first {
		v |= 0x2
	}
	if last {
		v |= 0x1
	}
	return adc.Write16(0x101A, v)
}

func (adc *V792) EventTrigger() (uint8, error)  { return adc.read8(0x1020) }
func (adc *V792) SetEventTrigger(v uint8) error { return adc.Write16(0x1020, uint16(v)) }

func (adc *V792) Status2() (Status2, error) {
	v, err := adc.Read16(0x1022)
	return Status2(v), err
}

// EventCounter returns the 24-bit event counter (low and high registers).
func (adc *V792) EventCounter() (uint32, error) {
	seq := adc.Seq()
	lo := seq.Read16(0x1024)
	hi := seq.Read16(0x1026)
	return uint32(lo) | uint32(hi)<<16, seq.Err()
}

func (adc *V792) IncrementEvent() error  { return adc.Write16(0x1028, 1) }
func (adc *V792) IncrementOffset() error { return adc.Write16(0x102A, 1) }

const (
	fclrClock  = 32e6
	fclrOffset = 7e-6
)

// FastClearWindow returns the fast clear window, in seconds.
func (adc *V792) FastClearWindow() (float64, error) {
	v, err := adc.Read16(0x102E)
	if err != nil {
		return 0, err
	}
	return float64(v)/fclrClock + fclrOffset, nil
}

// SetFastClearWindow sets the fast clear window, in seconds.
func (adc *V792) SetFastClearWindow(w float64) error {
	v := math.Round((w - fclrOffset) * fclrClock)
	v = max(0, min(v, math.MaxUint16))
	return adc.Write16(0x102E, uint16(v))
}

func (adc *V792) BitSet2() (BitSet2, error) {
	v, err := adc.Read16(0x1032)
	return NewBitSet2(v), err
}

// SetBitSet2 raises the bits set in b.
func (adc *V792) SetBitSet2(b BitSet2) error {
	return adc.Write16(0x1032, uint16(b&BitSet2Mask))
}

// ClearBitSet2 lowers the bits set in b.
func (adc *V792) ClearBitSet2(b BitSet2) error {
	return adc.Write16(0x1034, uint16(b&BitSet2Mask))
}

// UpdateBitSet2 applies fn to the bit set 2 register, raising and lowering
// the bits fn changed.
func (adc *V792) UpdateBitSet2(fn func(b *BitSet2)) error {
	old, err := adc.BitSet2()
	if err != nil {
		return err
	}
	cur := old
	fn(&cur)

	var (
		set = cur &^ old
		clr = old &^ cur
	)
	if set != 0 {
		err = adc.SetBitSet2(set)
		if err != nil {
			return err
		}
	}
	if clr != 0 {
		err = adc.ClearBitSet2(clr)
		if err != nil {
			return err
		}
	}
	return nil
}

// Clear clears the data, the event counter and the output buffer.
func (adc *V792) Clear() error {
	seq := adc.Seq()
	seq.Write16(0x1032, 1<<bs2ClearData)
	seq.Write16(0x1034, 1<<bs2ClearData)
	return seq.Err()
}

// TestMemoryWrite stores word at addr in the test memory.
func (adc *V792) TestMemoryWrite(addr uint16, word uint32) error {
	seq := adc.Seq()
	seq.Write16(0x1036, addr)
	seq.Write16(0x1038, uint16(word>>16))
	seq.Write16(0x103A, uint16(word))
	return seq.Err()
}

func (adc *V792) SetTestMemoryReadAddress(addr uint16) error {
	return adc.Write16(0x1064, addr)
}

func (adc *V792) CrateNumber() (uint8, error)  { return adc.read8(0x103C) }
func (adc *V792) SetCrateNumber(n uint8) error { return adc.Write16(0x103C, uint16(n)) }

// TestEventWrite fills the test event memory. The board expects the events
// of channels i and i+16 in turn.
func (adc *V792) TestEventWrite(events [32]TestEvent) error {
	seq := adc.Seq()
	for i := 0; i < 16; i++ {
		seq.Write16(0x103E, uint16(events[i]))
		seq.Write16(0x103E, uint16(events[i+16]))
	}
	return seq.Err()
}

func (adc *V792) ResetEventCounter() error { return adc.Write16(0x1040, 1) }

func (adc *V792) CurrentPedestal() (uint8, error)  { return adc.read8(0x1060) }
func (adc *V792) SetCurrentPedestal(v uint8) error { return adc.Write16(0x1060, uint16(v)) }

// Trigger issues a software trigger.
func (adc *V792) Trigger() error { return adc.Write16(0x1068, 1) }

func (adc *V792) SlideConstant() (uint8, error)  { return adc.read8(0x106A) }
func (adc *V792) SetSlideConstant(v uint8) error { return adc.Write16(0x106A, uint16(v)) }

// AAD and BAD return the raw ADC conversions of the sliding scale
// channels A and B.
func (adc *V792) AAD() (uint16, error) { return adc.Read16(0x1070) }
func (adc *V792) BAD() (uint16, error) { return adc.Read16(0x1072) }

func (adc *V792) channel(ch int) (uint32, error) {
	if ch < 0 || ch >= adc.model.Channels() {
		return 0, fmt.Errorf("v792: invalid %v channel %d", adc.model, ch)
	}
	return 0x1080 + uint32(ch)*adc.model.Stride(), nil
}

func (adc *V792) ChannelSettings(ch int) (ChannelSettings, error) {
	addr, err := adc.channel(ch)
	if err != nil {
		return 0, err
	}
	v, err := adc.Read16(addr)
	return ChannelSettings(v), err
}

func (adc *V792) SetChannelSettings(ch int, s ChannelSettings) error {
	addr, err := adc.channel(ch)
	if err != nil {
		return err
	}
	return adc.Write16(addr, uint16(s))
}

func (adc *V792) ChannelThreshold(ch int) (uint8, error) {
	s, err := adc.ChannelSettings(ch)
	return s.Threshold(), err
}

func (adc *V792) SetChannelThreshold(ch int, threshold uint8) error {
	s, err := adc.ChannelSettings(ch)
	if err != nil {
		return err
	}
	s.SetThreshold(threshold)
	return adc.SetChannelSettings(ch, s)
}

func (adc *V792) ChannelEnabled(ch int) (bool, error) {
	s, err := adc.ChannelSettings(ch)
	return !s.Disabled(), err
}

func (adc *V792) SetChannelEnabled(ch int, enabled bool) error {
	s, err := adc.ChannelSettings(ch)
	if err != nil {
		return err
	}
	s.SetDisabled(!enabled)
	return adc.SetChannelSettings(ch, s)
}

// OUI returns the manufacturer identifier.
func (adc *V792) OUI() (uint32, error) { return adc.ReadComposite(0x8026, 3, 4) }

// Version returns the ROM version byte.
func (adc *V792) Version() (uint8, error) { return adc.read8(0x8032) }

func (adc *V792) ID() (uint32, error)       { return adc.ReadComposite(0x8036, 3, 4) }
func (adc *V792) Revision() (uint16, error) { return adc.Read16(0x804E) }

func (adc *V792) Serial() (uint16, error) {
	v, err := adc.ReadComposite(0x8F02, 2, 4)
	return uint16(v), err
}

// ReadoutWords reads the output buffer into buf with a MBLT transfer and
// returns the number of words read.
func (adc *V792) ReadoutWords(buf []uint32) (int, error) {
	return adc.MBLTRead(0, buf)
}

// Readout fills buf with the content of the output buffer.
func (adc *V792) Readout(buf *Buffer) error {
	n, err := adc.ReadoutWords(buffer.Words(buf))
	if err != nil {
		return err
	}
	return buf.Resize(n)
}

// ReadoutFIFO reads the output buffer with single data cycles issued by
// the bridge, working around boards with old firmwares duplicating packets
// during block transfers. The board does not raise the bus error in this
// mode.
//
// br must reach the VME crate of the board.
func (adc *V792) ReadoutFIFO(br *vme.Bridge, buf *Buffer) error {
	words := buffer.Words(buf)
	n, err := br.FIFOBLTReadCycle(adc.Conn().BaseAddress(), vme.A32UData, vme.D32, words)
	var verr vme.Error
	switch {
	case err == nil:
	case errors.As(err, &verr):
		if verr.Code != vme.BusError {
			return fmt.Errorf("v792: could not read output buffer: %w", comm.Error{Code: verr.Code.CommCode()})
		}
	default:
		return fmt.Errorf("v792: could not read output buffer: %w", err)
	}
	return buf.Resize(n)
}
