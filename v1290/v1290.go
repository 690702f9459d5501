// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package v1290 drives CAEN V1290A (32 channels) and V1290N (16 channels)
// multi-hit TDCs.
//
// Most of the acquisition settings are handled by the on-board
// micro-controller. Opcodes and their parameters are exchanged through
// the micro register, each transfer waiting for the handshake register to
// report the micro-controller ready. The wait is bounded, see
// WithHandshakeTimeout.
package v1290 // import "github.com/go-lpc/caen/v1290"

import (
	"fmt"
	"time"

	"github.com/go-lpc/caen"
	"github.com/go-lpc/caen/buffer"
	"github.com/go-lpc/caen/comm"
)

// ID is the board identifier stored in the configuration ROM.
const ID = 1290

// BufferSize is the number of words of a readout buffer.
const BufferSize = 32 * 1024

// Version is the board variant stored in the configuration ROM.
type Version uint16

const (
	V1290A Version = 0
	V1290N Version = 2
)

func (v Version) String() string {
	switch v {
	case V1290A:
		return "V1290A"
	case V1290N:
		return "V1290N"
	}
	return fmt.Sprintf("Version(%d)", uint16(v))
}

// Channels returns the number of channels of the variant.
func (v Version) Channels() int {
	if v == V1290N {
		return 16
	}
	return 32
}

// Time resolutions and dead times, in seconds, indexed by their code.
var (
	// SingleResolutions are the resolutions when a single edge is detected.
	SingleResolutions = [4]float64{800e-12, 200e-12, 100e-12, 25e-12}

	// PairResolutions are the edge and pulse width resolutions in pair
	// mode. The last two codes are invalid.
	PairResolutions = [16]float64{
		100e-12, 200e-12, 400e-12, 800e-12,
		1.6e-9, 3.2e-9, 6.25e-9, 12.5e-9,
		25e-9, 50e-9, 100e-9, 200e-9,
		400e-9, 800e-9, 0, 0,
	}

	// DeadTimes are the double hit resolutions.
	DeadTimes = [4]float64{5e-9, 10e-9, 30e-9, 100e-9}
)

// Buffer holds the packets of a readout.
type Buffer = buffer.Buffer[Packet]

// NewBuffer returns a readout buffer.
func NewBuffer() *Buffer { return buffer.New[Packet](BufferSize) }

const (
	defaultHandshakeTimeout  = 5 * time.Second
	defaultHandshakeInterval = 100 * time.Millisecond
)

// Option configures a V1290.
type Option func(*config)

type config struct {
	timeout  time.Duration
	interval time.Duration
}

func newConfig(opts []Option) config {
	cfg := config{
		timeout:  defaultHandshakeTimeout,
		interval: defaultHandshakeInterval,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithHandshakeTimeout sets how long a micro-controller transfer waits for
// the handshake register, 5s by default.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(cfg *config) { cfg.timeout = d }
}

// WithHandshakeInterval sets the poll interval of the handshake register,
// 100ms by default.
func WithHandshakeInterval(d time.Duration) Option {
	return func(cfg *config) { cfg.interval = d }
}

// V1290 is a V1290 TDC.
type V1290 struct {
	*comm.Device
	version Version
	cfg     config
}

// Open connects to the V1290 reachable through conn with the named driver.
func Open(driver string, conn caen.Connection, opts ...Option) (*V1290, error) {
	dev, err := comm.Open(driver, conn)
	if err != nil {
		return nil, err
	}
	tdc, err := New(dev, opts...)
	if err != nil {
		_ = dev.Close()
		return nil, err
	}
	return tdc, nil
}

// New checks that dev is a V1290 and reads its variant.
func New(dev *comm.Device, opts ...Option) (*V1290, error) {
	err := dev.Identify("V1290", 0x4024, 0x4034, ID)
	if err != nil {
		return nil, err
	}
	vers, err := dev.Read16(0x4030)
	if err != nil {
		return nil, fmt.Errorf("v1290: could not read board version: %w", err)
	}
	return &V1290{Device: dev, version: Version(vers), cfg: newConfig(opts)}, nil
}

func (*V1290) Kind() string { return "V1290" }

// Version returns the board variant.
func (tdc *V1290) Version() Version { return tdc.version }

// Transfer moves the ownership of the connection to a new V1290.
func (tdc *V1290) Transfer() *V1290 {
	return &V1290{Device: tdc.Device.Transfer(), version: tdc.version, cfg: tdc.cfg}
}

func (tdc *V1290) read8(addr uint32) (uint8, error) {
	v, err := tdc.Read16(addr)
	return uint8(v), err
}

func (tdc *V1290) flag(addr uint32, v bool) error {
	var w uint16
	if v {
		w = 1
	}
	return tdc.Write16(addr, w)
}

// ROMChecksum returns the checksum of the configuration ROM.
func (tdc *V1290) ROMChecksum() (uint16, error) { return tdc.Read16(0x4000) }

// ROMChecksumLength should be 0x20.
func (tdc *V1290) ROMChecksumLength() (uint32, error) { return tdc.ReadComposite(0x4004, 3, 4) }

// ROMConstant should be 0x838401.
func (tdc *V1290) ROMConstant() (uint32, error) { return tdc.ReadComposite(0x4010, 3, 4) }

// ROMCCode should be 0x43.
func (tdc *V1290) ROMCCode() (uint16, error) { return tdc.Read16(0x401C) }

// ROMRCode should be 0x52.
func (tdc *V1290) ROMRCode() (uint16, error) { return tdc.Read16(0x4020) }

func (tdc *V1290) OUI() (uint32, error)      { return tdc.ReadComposite(0x4024, 3, 4) }
func (tdc *V1290) ID() (uint32, error)       { return tdc.ReadComposite(0x4034, 3, 4) }
func (tdc *V1290) Revision() (uint32, error) { return tdc.ReadComposite(0x4040, 4, 4) }

func (tdc *V1290) Serial() (uint16, error) {
	v, err := tdc.ReadComposite(0x4080, 2, 4)
	return uint16(v), err
}

func (tdc *V1290) Control() (Control, error) {
	v, err := tdc.Read16(0x1000)
	return Control(v), err
}

func (tdc *V1290) SetControl(c Control) error {
	return tdc.Write16(0x1000, uint16(c))
}

// UpdateControl reads the control register, applies fn and writes it back.
func (tdc *V1290) UpdateControl(fn func(c *Control)) error {
	c, err := tdc.Control()
	if err != nil {
		return err
	}
	fn(&c)
	return tdc.SetControl(c)
}

// Status reads the status register. Reading the register resets its
// trigger lost bit.
func (tdc *V1290) Status() (Status, error) {
	v, err := tdc.Read16(0x1002)
	return Status(v), err
}

// Address returns the software VME base address.
func (tdc *V1290) Address() (uint32, error) {
	v, err := tdc.ReadComposite(0x1004, 2, 2)
	return v << 16, err
}

func (tdc *V1290) SetAddress(addr uint32) error {
	seq := tdc.Seq()
	seq.Write16(0x1004, uint16(addr>>24))
	seq.Write16(0x1006, uint16(addr>>16&0xFF))
	return seq.Err()
}

// SetSWAddressEnabled selects the base address set with SetAddress instead
// of the rotary switches.
func (tdc *V1290) SetSWAddressEnabled(v bool) error { return tdc.flag(0x1008, v) }

func (tdc *V1290) InterruptLevel() (uint8, error) {
	v, err := tdc.read8(0x100A)
	return v & 0x7, err
}

func (tdc *V1290) SetInterruptLevel(v uint8) error { return tdc.Write16(0x100A, uint16(v)) }

func (tdc *V1290) InterruptVector() (uint8, error)  { return tdc.read8(0x100C) }
func (tdc *V1290) SetInterruptVector(v uint8) error { return tdc.Write16(0x100C, uint16(v)) }

func (tdc *V1290) GeoAddress() (uint8, error) {
	v, err := tdc.read8(0x100E)
	return v & 0x1F, err
}

func (tdc *V1290) SetGeoAddress(geo uint8) error { return tdc.Write16(0x100E, uint16(geo)) }

func (tdc *V1290) MCSTBaseAddress() (uint8, error)  { return tdc.read8(0x1010) }
func (tdc *V1290) SetMCSTBaseAddress(v uint8) error { return tdc.Write16(0x1010, uint16(v)) }

// MCSTControl returns the MCST/CBLT position of the board:
// 0 disabled, 1 last, 2 first, 3 intermediate.
func (tdc *V1290) MCSTControl() (uint8, error) {
	v, err := tdc.read8(0x1012)
	return v & 0x3, err
}

func (tdc *V1290) SetMCSTControl(v uint8) error { return tdc.Write16(0x1012, uint16(v)) }

func (tdc *V1290) Reset() error      { return tdc.Write16(0x1014, 1) }
func (tdc *V1290) Clear() error      { return tdc.Write16(0x1016, 1) }
func (tdc *V1290) ResetEvent() error { return tdc.Write16(0x1018, 1) }
func (tdc *V1290) Trigger() error    { return tdc.Write16(0x101A, 1) }

func (tdc *V1290) EventCounter() (uint32, error) { return tdc.Read32(0x101C) }

// EventStored returns the number of events in the output buffer.
func (tdc *V1290) EventStored() (uint16, error) { return tdc.Read16(0x1020) }

func (tdc *V1290) AlmostFullLevel() (uint16, error)  { return tdc.Read16(0x1022) }
func (tdc *V1290) SetAlmostFullLevel(v uint16) error { return tdc.Write16(0x1022, v) }

func (tdc *V1290) BLTEventNumber() (uint8, error)  { return tdc.read8(0x1024) }
func (tdc *V1290) SetBLTEventNumber(n uint8) error { return tdc.Write16(0x1024, uint16(n)) }

func (tdc *V1290) FirmwareRevision() (uint8, error) { return tdc.read8(0x1026) }

func (tdc *V1290) Test() (uint32, error)  { return tdc.Read32(0x1028) }
func (tdc *V1290) SetTest(v uint32) error { return tdc.Write32(0x1028, v) }

// OutProg returns the function of the OUT_PROG output:
// 0 data ready, 1 full, 2 almost full, 3 error.
func (tdc *V1290) OutProg() (uint8, error) {
	v, err := tdc.read8(0x102C)
	return v & 0x7, err
}

func (tdc *V1290) SetOutProg(v uint8) error { return tdc.Write16(0x102C, uint16(v)) }

func (tdc *V1290) MicroHandshake() (MicroHandshake, error) {
	v, err := tdc.Read16(regMicroHandshake)
	return MicroHandshake(v & 0x3), err
}

func (tdc *V1290) Dummy32() (uint32, error)  { return tdc.Read32(0x1200) }
func (tdc *V1290) SetDummy32(v uint32) error { return tdc.Write32(0x1200, v) }
func (tdc *V1290) Dummy16() (uint16, error)  { return tdc.Read16(0x1204) }
func (tdc *V1290) SetDummy16(v uint16) error { return tdc.Write16(0x1204, v) }

func (tdc *V1290) FlashSelected() (bool, error) {
	v, err := tdc.Read16(0x1034)
	return v&1 == 0, err
}

func (tdc *V1290) SelectFlash(v bool) error { return tdc.flag(0x1034, !v) }

// EventFIFOStored returns the number of events in the event FIFO.
func (tdc *V1290) EventFIFOStored() (uint16, error) {
	v, err := tdc.Read16(0x103C)
	return v & 0x3FF, err
}

func (tdc *V1290) EventFIFOStatus() (EventFIFOStatus, error) {
	v, err := tdc.Read16(0x103E)
	return EventFIFOStatus(v & 0x3), err
}

// ReadoutWords reads the output buffer into buf with a MBLT transfer and
// returns the number of words read.
func (tdc *V1290) ReadoutWords(buf []uint32) (int, error) {
	return tdc.MBLTRead(0, buf)
}

// Readout fills buf with the content of the output buffer.
func (tdc *V1290) Readout(buf *Buffer) error {
	n, err := tdc.ReadoutWords(buffer.Words(buf))
	if err != nil {
		return err
	}
	return buf.Resize(n)
}
