// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package digitizer drives CAEN digitizers (x720, x724, x725, x730, x742,
// x751, ...) running the standard or a DPP firmware.
//
// A Digitizer talks to its board through a Handle: either the CAEN
// digitizer library (driver "caendgtz", with the caen build tag) or plain
// register accesses over a comm.Device (driver "comm:<name>").
package digitizer // import "github.com/go-lpc/caen/digitizer"

import (
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/go-lpc/caen"
	"github.com/go-lpc/caen/bitfield"
	"github.com/go-lpc/caen/comm"
)

// Handle is an opened connection to a digitizer.
type Handle interface {
	ReadRegister(addr uint32) (uint32, error)
	WriteRegister(addr, v uint32) error

	// ReadData reads the board output buffer into buf and returns the
	// number of words read.
	ReadData(buf []uint32) (int, error)

	Info() (Info, error)
	Reset() error
	ClearData() error
	SendSWTrigger() error
	StartAcquisition() error
	StopAcquisition() error
	Calibrate() error
	ReadTemperature(ch int) (uint32, error)

	Close() error
}

// Driver opens digitizer handles.
type Driver interface {
	Open(conn caen.Connection) (Handle, error)
}

var drivers = struct {
	sync.RWMutex
	m map[string]Driver
}{
	m: make(map[string]Driver),
}

// Register makes a driver available under the provided name.
// Register panics if called twice with the same name or if drv is nil.
func Register(name string, drv Driver) {
	drivers.Lock()
	defer drivers.Unlock()

	if drv == nil {
		panic("digitizer: register driver is nil")
	}
	if _, dup := drivers.m[name]; dup {
		panic("digitizer: register called twice for driver " + name)
	}
	drivers.m[name] = drv
}

// Drivers returns the sorted list of registered drivers.
func Drivers() []string {
	drivers.RLock()
	defer drivers.RUnlock()

	names := make([]string, 0, len(drivers.m))
	for name := range drivers.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func openHandle(driver string, conn caen.Connection) (Handle, error) {
	if name, ok := strings.CutPrefix(driver, "comm:"); ok {
		dev, err := comm.Open(name, conn)
		if err != nil {
			return nil, err
		}
		return NewRegisterHandle(dev), nil
	}

	drivers.RLock()
	drv, ok := drivers.m[driver]
	drivers.RUnlock()
	if !ok {
		return nil, fmt.Errorf("digitizer: unknown driver %q (forgotten import?)", driver)
	}
	return drv.Open(conn)
}

// Info describes a digitizer.
type Info struct {
	ModelName   string
	Channels    int
	FormFactor  FormFactor
	Family      Family
	ROCFirmware string // mother board FPGA release
	AMCFirmware string // channel FPGA release
	Serial      uint32
	PCBRevision uint32
	ADCBits     int
}

// Digitizer is a CAEN digitizer.
type Digitizer struct {
	h    Handle
	conn caen.Connection
	info Info
	own  bool
}

// Open opens the digitizer reachable through conn with the named driver.
func Open(driver string, conn caen.Connection) (*Digitizer, error) {
	h, err := openHandle(driver, conn)
	if err != nil {
		return nil, fmt.Errorf("digitizer: could not open %s: %w", conn, err)
	}
	dgtz, err := New(h, conn, true)
	if err != nil {
		_ = h.Close()
		return nil, err
	}
	return dgtz, nil
}

// New wraps an opened handle and reads the board information.
// If own is true, closing the returned Digitizer closes h.
func New(h Handle, conn caen.Connection, own bool) (*Digitizer, error) {
	info, err := h.Info()
	if err != nil {
		return nil, fmt.Errorf("digitizer: could not read board info: %w", err)
	}
	dgtz := &Digitizer{h: h, conn: conn, info: info, own: own}
	if own {
		runtime.SetFinalizer(dgtz, (*Digitizer).Close)
	}
	return dgtz, nil
}

func (*Digitizer) Kind() string { return "Digitizer" }

// Conn returns the connection the digitizer was opened with.
func (dgtz *Digitizer) Conn() caen.Connection { return dgtz.conn }

// Info returns the board information read when the digitizer was opened.
func (dgtz *Digitizer) Info() Info { return dgtz.info }

// Owns reports whether dgtz is responsible for closing its handle.
func (dgtz *Digitizer) Owns() bool { return dgtz.own }

// Transfer moves the ownership of the handle to a new Digitizer.
func (dgtz *Digitizer) Transfer() *Digitizer {
	own := dgtz.own
	if own {
		dgtz.own = false
		runtime.SetFinalizer(dgtz, nil)
	}
	o := &Digitizer{h: dgtz.h, conn: dgtz.conn, info: dgtz.info, own: own}
	if own {
		runtime.SetFinalizer(o, (*Digitizer).Close)
	}
	return o
}

// Close releases the handle if dgtz owns it.
func (dgtz *Digitizer) Close() error {
	if dgtz == nil {
		return os.ErrInvalid
	}
	if dgtz.h == nil {
		return nil
	}
	h := dgtz.h
	own := dgtz.own
	dgtz.h = nil
	dgtz.own = false
	runtime.SetFinalizer(dgtz, nil)

	if !own {
		return nil
	}
	err := h.Close()
	if err != nil {
		return fmt.Errorf("digitizer: could not close %s: %w", dgtz.conn, err)
	}
	return nil
}

func (dgtz *Digitizer) handle() (Handle, error) {
	if dgtz.h == nil {
		return nil, Error{Code: InvalidHandle}
	}
	return dgtz.h, nil
}

func (dgtz *Digitizer) ReadRegister(addr uint32) (uint32, error) {
	h, err := dgtz.handle()
	if err != nil {
		return 0, err
	}
	return h.ReadRegister(addr)
}

func (dgtz *Digitizer) WriteRegister(addr, v uint32) error {
	h, err := dgtz.handle()
	if err != nil {
		return err
	}
	return h.WriteRegister(addr, v)
}

// ReadRegisterBits returns bits start..end (inclusive) of a register.
func (dgtz *Digitizer) ReadRegisterBits(addr uint32, start, end uint) (uint32, error) {
	v, err := dgtz.ReadRegister(addr)
	if err != nil {
		return 0, err
	}
	return bitfield.Bits(v, start, end), nil
}

// WriteRegisterBits replaces bits start..end (inclusive) of a register
// with the low bits of v, leaving the other bits untouched.
func (dgtz *Digitizer) WriteRegisterBits(addr, v uint32, start, end uint) error {
	old, err := dgtz.ReadRegister(addr)
	if err != nil {
		return err
	}
	return dgtz.WriteRegister(addr, bitfield.SetBits(old, start, end, v))
}

// DPPFirmware returns the firmware code of the FPGA of channel ch.
// Firmwares without the DPP flag are reported as StandardFirmware.
func (dgtz *Digitizer) DPPFirmware(ch uint8) (Firmware, error) {
	if ch > 0xF {
		return 0, Error{Func: "DPPFirmware", Code: InvalidChannelNumber}
	}
	v, err := dgtz.ReadRegisterBits(regAMCFirmware|uint32(ch)<<8, 8, 15)
	if err != nil {
		return 0, err
	}
	fw := Firmware(v)
	if !fw.IsDPP() {
		return StandardFirmware, nil
	}
	return fw, nil
}

func (dgtz *Digitizer) call(name string, f func(h Handle) error) error {
	h, err := dgtz.handle()
	if err != nil {
		return err
	}
	err = f(h)
	if err != nil {
		return fmt.Errorf("digitizer: %s failed: %w", name, err)
	}
	return nil
}

func (dgtz *Digitizer) Reset() error         { return dgtz.call("reset", Handle.Reset) }
func (dgtz *Digitizer) ClearData() error     { return dgtz.call("clear", Handle.ClearData) }
func (dgtz *Digitizer) SendSWTrigger() error { return dgtz.call("trigger", Handle.SendSWTrigger) }
func (dgtz *Digitizer) Calibrate() error     { return dgtz.call("calibrate", Handle.Calibrate) }

func (dgtz *Digitizer) StartAcquisition() error {
	return dgtz.call("start acquisition", Handle.StartAcquisition)
}

func (dgtz *Digitizer) StopAcquisition() error {
	return dgtz.call("stop acquisition", Handle.StopAcquisition)
}

// ReadTemperature returns the temperature of the ADC of channel ch, in °C.
func (dgtz *Digitizer) ReadTemperature(ch int) (uint32, error) {
	h, err := dgtz.handle()
	if err != nil {
		return 0, err
	}
	if ch < 0 || (dgtz.info.Channels > 0 && ch >= dgtz.info.Channels) {
		return 0, Error{Func: "ReadTemperature", Code: InvalidChannelNumber}
	}
	return h.ReadTemperature(ch)
}

// ReadData reads the output buffer into buf and returns the number of
// words read.
func (dgtz *Digitizer) ReadData(buf []uint32) (int, error) {
	h, err := dgtz.handle()
	if err != nil {
		return 0, err
	}
	return h.ReadData(buf)
}

func (dgtz *Digitizer) ChannelEnableMask() (uint32, error) {
	v, err := dgtz.ReadRegister(regChannelEnableMask)
	return v & 0xFFFF, err
}

func (dgtz *Digitizer) SetChannelEnableMask(mask uint32) error {
	return dgtz.WriteRegister(regChannelEnableMask, mask&0xFFFF)
}

// PostTriggerSize returns the post trigger size register, in units of
// samples depending on the family.
func (dgtz *Digitizer) PostTriggerSize() (uint32, error) { return dgtz.ReadRegister(regPostTrigger) }
func (dgtz *Digitizer) SetPostTriggerSize(v uint32) error {
	return dgtz.WriteRegister(regPostTrigger, v)
}

// MaxNumEventsBLT returns the maximum number of events read by a block
// transfer.
func (dgtz *Digitizer) MaxNumEventsBLT() (uint32, error) {
	v, err := dgtz.ReadRegister(regMaxEventsBLT)
	return v & 0x3FF, err
}

func (dgtz *Digitizer) SetMaxNumEventsBLT(v uint32) error {
	return dgtz.WriteRegister(regMaxEventsBLT, v&0x3FF)
}

// AcquisitionStatus returns the acquisition status register.
func (dgtz *Digitizer) AcquisitionStatus() (AcquisitionStatus, error) {
	v, err := dgtz.ReadRegister(regAcqStatus)
	return AcquisitionStatus(v), err
}

// AcquisitionStatus is the acquisition status register.
type AcquisitionStatus uint32

func (s AcquisitionStatus) Running() bool      { return bitfield.Bit(s, 2) }
func (s AcquisitionStatus) EventReady() bool   { return bitfield.Bit(s, 3) }
func (s AcquisitionStatus) EventFull() bool    { return bitfield.Bit(s, 4) }
func (s AcquisitionStatus) PLLLocked() bool    { return bitfield.Bit(s, 7) }
func (s AcquisitionStatus) BoardReady() bool   { return bitfield.Bit(s, 8) }
func (s AcquisitionStatus) ChannelsDown() bool { return bitfield.Bit(s, 19) }
