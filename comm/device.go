// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package comm

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/go-lpc/caen"
)

var errClosed = errors.New("comm: device closed")

// Device is a handle to a board reached through a transport.
//
// A Device either owns its transport or borrows it. Closing an owning
// Device releases the transport exactly once; closing a borrowing Device
// is a no-op.
type Device struct {
	tr   Transport
	conn caen.Connection
	own  bool
}

// Open opens a connection to a board with the named driver.
// The returned Device owns the transport.
func Open(driver string, conn caen.Connection) (*Device, error) {
	tr, err := openTransport(driver, conn)
	if err != nil {
		return nil, err
	}
	return NewDevice(tr, conn, true), nil
}

// NewDevice wraps an already opened transport.
// If own is true, closing the returned Device closes tr.
func NewDevice(tr Transport, conn caen.Connection, own bool) *Device {
	dev := &Device{tr: tr, conn: conn, own: own}
	if own {
		runtime.SetFinalizer(dev, (*Device).Close)
	}
	return dev
}

// Conn returns the connection the device was opened with.
func (dev *Device) Conn() caen.Connection { return dev.conn }

// Transport returns the underlying transport.
func (dev *Device) Transport() Transport { return dev.tr }

// Owns reports whether dev is responsible for closing its transport.
func (dev *Device) Owns() bool { return dev.own }

// Transfer moves the ownership of the transport to a new Device.
// dev keeps a borrowed access to the transport.
func (dev *Device) Transfer() *Device {
	own := dev.own
	if own {
		dev.own = false
		runtime.SetFinalizer(dev, nil)
	}
	return NewDevice(dev.tr, dev.conn, own)
}

// Close releases the transport if dev owns it.
func (dev *Device) Close() error {
	if dev == nil {
		return os.ErrInvalid
	}
	if dev.tr == nil {
		return nil
	}
	tr := dev.tr
	own := dev.own
	dev.tr = nil
	dev.own = false
	runtime.SetFinalizer(dev, nil)

	if !own {
		return nil
	}
	err := tr.Close()
	if err != nil {
		return fmt.Errorf("comm: could not close %s: %w", dev.conn, err)
	}
	return nil
}

func (dev *Device) Read16(addr uint32) (uint16, error) {
	if dev.tr == nil {
		return 0, errClosed
	}
	v, err := dev.tr.Read16(addr)
	if err != nil {
		return 0, fmt.Errorf("comm: could not read16 register 0x%x: %w", addr, err)
	}
	return v, nil
}

func (dev *Device) Read32(addr uint32) (uint32, error) {
	if dev.tr == nil {
		return 0, errClosed
	}
	v, err := dev.tr.Read32(addr)
	if err != nil {
		return 0, fmt.Errorf("comm: could not read32 register 0x%x: %w", addr, err)
	}
	return v, nil
}

func (dev *Device) Write16(addr uint32, v uint16) error {
	if dev.tr == nil {
		return errClosed
	}
	err := dev.tr.Write16(addr, v)
	if err != nil {
		return fmt.Errorf("comm: could not write16 register 0x%x: %w", addr, err)
	}
	return nil
}

func (dev *Device) Write32(addr uint32, v uint32) error {
	if dev.tr == nil {
		return errClosed
	}
	err := dev.tr.Write32(addr, v)
	if err != nil {
		return fmt.Errorf("comm: could not write32 register 0x%x: %w", addr, err)
	}
	return nil
}

// BLTRead reads a block of data with a 32-bit block transfer and returns the
// number of words read. An early termination by the board is not an error.
func (dev *Device) BLTRead(addr uint32, buf []uint32) (int, error) {
	if dev.tr == nil {
		return 0, errClosed
	}
	n, err := dev.tr.BLTRead(addr, buf)
	if err != nil && !errors.Is(err, Error{Code: Terminated}) {
		return n, fmt.Errorf("comm: could not BLT read at 0x%x: %w", addr, err)
	}
	return n, nil
}

// MBLTRead reads a block of data with a 64-bit block transfer and returns
// the number of words read. An early termination by the board is not an
// error.
func (dev *Device) MBLTRead(addr uint32, buf []uint32) (int, error) {
	if dev.tr == nil {
		return 0, errClosed
	}
	n, err := dev.tr.MBLTRead(addr, buf)
	if err != nil && !errors.Is(err, Error{Code: Terminated}) {
		return n, fmt.Errorf("comm: could not MBLT read at 0x%x: %w", addr, err)
	}
	return n, nil
}

// ReadComposite reads a value stored big-endian in the low byte of n
// sequential 16-bit registers, stride bytes apart. n must be 4 or less.
func (dev *Device) ReadComposite(addr uint32, n int, stride uint32) (uint32, error) {
	if n < 0 || n > 4 {
		return 0, fmt.Errorf("comm: invalid composite read of %d registers: %w", n, Error{Code: InvalidParam})
	}
	var v uint32
	for i := 0; i < n; i++ {
		w, err := dev.Read16(addr)
		if err != nil {
			return 0, err
		}
		v = v<<8 | uint32(w&0xff)
		addr += stride
	}
	return v, nil
}

// Identify compares the OUI and board ID, both 3 bytes stored as composite
// values with a stride of 4, with the expected ones.
// It returns a *WrongDeviceError on mismatch.
func (dev *Device) Identify(name string, ouiAddr, idAddr uint32, id uint32) error {
	oui, err := dev.ReadComposite(ouiAddr, 3, 4)
	if err != nil {
		return fmt.Errorf("comm: could not read OUI: %w", err)
	}
	bid, err := dev.ReadComposite(idAddr, 3, 4)
	if err != nil {
		return fmt.Errorf("comm: could not read board ID: %w", err)
	}
	if oui != OUI || bid != id {
		return dev.WrongDevice(name)
	}
	return nil
}

// WrongDevice returns the error reporting dev is not the expected model.
func (dev *Device) WrongDevice(expected string) error {
	return &WrongDeviceError{Conn: dev.conn, Expected: expected}
}
