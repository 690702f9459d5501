// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package vme provides access to CAEN VME bridges (V1718, V2718, V3718,
// V4718, A2719) and to raw VME cycles issued through them.
package vme // import "github.com/go-lpc/caen/vme"

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"sort"
	"sync"

	"github.com/go-lpc/caen"
)

// Controller is a connection to a VME bridge.
//
// Block read cycles fill buf from index 0 and return the number of 32-bit
// words transferred. A bus error terminating a block transfer is reported
// as Error{Code: BusError} together with the word count.
type Controller interface {
	ReadRegister(addr uint8) (uint32, error)
	WriteRegister(addr uint8, v uint32) error

	ReadCycle(addr uint32, am AddressModifier, dw DataWidth) (uint32, error)
	WriteCycle(addr uint32, v uint32, am AddressModifier, dw DataWidth) error

	BLTReadCycle(addr uint32, am AddressModifier, dw DataWidth, buf []uint32) (int, error)
	MBLTReadCycle(addr uint32, am AddressModifier, buf []uint32) (int, error)
	FIFOBLTReadCycle(addr uint32, am AddressModifier, dw DataWidth, buf []uint32) (int, error)

	FirmwareRelease() (string, error)
	DeviceReset() error

	Close() error
}

// Driver opens controllers.
type Driver interface {
	Open(bt BoardType, conn caen.Connection) (Controller, error)
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
		panic("vme: register driver is nil")
	}
	if _, dup := drivers.m[name]; dup {
		panic("vme: register called twice for driver " + name)
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

var errClosed = errors.New("vme: bridge closed")

// Bridge is a handle to a VME bridge.
//
// A Bridge either owns its controller or borrows it. Closing an owning
// Bridge releases the controller exactly once.
type Bridge struct {
	ctl  Controller
	conn caen.Connection
	bt   BoardType
	own  bool
}

// Open opens a connection to the bridge described by conn, with the named
// driver. The returned Bridge owns the controller.
func Open(driver string, conn caen.Connection) (*Bridge, error) {
	bt, err := BoardTypeOf(conn)
	if err != nil {
		return nil, err
	}

	drivers.RLock()
	drv, ok := drivers.m[driver]
	drivers.RUnlock()
	if !ok {
		return nil, fmt.Errorf("vme: unknown driver %q (forgotten import?)", driver)
	}

	ctl, err := drv.Open(bt, conn)
	if err != nil {
		return nil, fmt.Errorf("vme: could not open %s with driver %q: %w", conn, driver, err)
	}
	return NewBridge(ctl, conn, true), nil
}

// NewBridge wraps an already opened controller.
// If own is true, closing the returned Bridge closes ctl.
func NewBridge(ctl Controller, conn caen.Connection, own bool) *Bridge {
	bt, _ := BoardTypeOf(conn)
	br := &Bridge{ctl: ctl, conn: conn, bt: bt, own: own}
	if own {
		runtime.SetFinalizer(br, (*Bridge).Close)
	}
	return br
}

// Conn returns the connection the bridge was opened with.
func (br *Bridge) Conn() caen.Connection { return br.conn }

// BoardType returns the way the bridge is reached.
func (br *Bridge) BoardType() BoardType { return br.bt }

// Controller returns the underlying controller.
func (br *Bridge) Controller() Controller { return br.ctl }

// Owns reports whether br is responsible for closing its controller.
func (br *Bridge) Owns() bool { return br.own }

// Transfer moves the ownership of the controller to a new Bridge.
// br keeps a borrowed access to the controller.
func (br *Bridge) Transfer() *Bridge {
	own := br.own
	if own {
		br.own = false
		runtime.SetFinalizer(br, nil)
	}
	return NewBridge(br.ctl, br.conn, own)
}

// Close releases the controller if br owns it.
func (br *Bridge) Close() error {
	if br == nil {
		return os.ErrInvalid
	}
	if br.ctl == nil {
		return nil
	}
	ctl := br.ctl
	own := br.own
	br.ctl = nil
	br.own = false
	runtime.SetFinalizer(br, nil)

	if !own {
		return nil
	}
	err := ctl.Close()
	if err != nil {
		return fmt.Errorf("vme: could not close %s: %w", br.conn, err)
	}
	return nil
}

func (br *Bridge) ReadRegister(addr uint8) (uint32, error) {
	if br.ctl == nil {
		return 0, errClosed
	}
	v, err := br.ctl.ReadRegister(addr)
	if err != nil {
		return 0, fmt.Errorf("vme: could not read bridge register 0x%02x: %w", addr, err)
	}
	return v, nil
}

func (br *Bridge) WriteRegister(addr uint8, v uint32) error {
	if br.ctl == nil {
		return errClosed
	}
	err := br.ctl.WriteRegister(addr, v)
	if err != nil {
		return fmt.Errorf("vme: could not write bridge register 0x%02x: %w", addr, err)
	}
	return nil
}

func (br *Bridge) ReadCycle(addr uint32, am AddressModifier, dw DataWidth) (uint32, error) {
	if br.ctl == nil {
		return 0, errClosed
	}
	v, err := br.ctl.ReadCycle(addr, am, dw)
	if err != nil {
		return 0, fmt.Errorf("vme: could not read at 0x%08x: %w", addr, err)
	}
	return v, nil
}

func (br *Bridge) WriteCycle(addr uint32, v uint32, am AddressModifier, dw DataWidth) error {
	if br.ctl == nil {
		return errClosed
	}
	err := br.ctl.WriteCycle(addr, v, am, dw)
	if err != nil {
		return fmt.Errorf("vme: could not write at 0x%08x: %w", addr, err)
	}
	return nil
}

// BLTReadCycle performs a block transfer read. A bus error ending the
// transfer is returned as is: callers decide whether it is the normal end
// of the data.
func (br *Bridge) BLTReadCycle(addr uint32, am AddressModifier, dw DataWidth, buf []uint32) (int, error) {
	if br.ctl == nil {
		return 0, errClosed
	}
	return br.ctl.BLTReadCycle(addr, am, dw, buf)
}

func (br *Bridge) MBLTReadCycle(addr uint32, am AddressModifier, buf []uint32) (int, error) {
	if br.ctl == nil {
		return 0, errClosed
	}
	return br.ctl.MBLTReadCycle(addr, am, buf)
}

func (br *Bridge) FIFOBLTReadCycle(addr uint32, am AddressModifier, dw DataWidth, buf []uint32) (int, error) {
	if br.ctl == nil {
		return 0, errClosed
	}
	return br.ctl.FIFOBLTReadCycle(addr, am, dw, buf)
}

// FirmwareRelease returns the firmware release of the bridge.
func (br *Bridge) FirmwareRelease() (string, error) {
	if br.ctl == nil {
		return "", errClosed
	}
	return br.ctl.FirmwareRelease()
}

// Reset resets the bridge.
func (br *Bridge) Reset() error {
	if br.ctl == nil {
		return errClosed
	}
	return br.ctl.DeviceReset()
}
