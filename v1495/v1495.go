// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package v1495 drives CAEN V1495 general purpose FPGA boards.
//
// The user firmware of a V1495 may overwrite its identification ROM, so
// New accepts any board.
package v1495 // import "github.com/go-lpc/caen/v1495"

import (
	"github.com/go-lpc/caen"
	"github.com/go-lpc/caen/comm"
)

// ID is the board identifier of the CAEN firmware.
const ID = 1495

// BufferSize is the number of words of the readout window.
const BufferSize = 0x1000 / 4

// V1495 is a V1495 board.
type V1495 struct {
	*comm.Device
}

// Open connects to the V1495 reachable through conn with the named driver.
func Open(driver string, conn caen.Connection) (*V1495, error) {
	dev, err := comm.Open(driver, conn)
	if err != nil {
		return nil, err
	}
	return New(dev), nil
}

func New(dev *comm.Device) *V1495 { return &V1495{Device: dev} }

func (*V1495) Kind() string { return "V1495" }

// Transfer moves the ownership of the connection to a new V1495.
func (brd *V1495) Transfer() *V1495 {
	return &V1495{Device: brd.Device.Transfer()}
}

// Readout reads the user FPGA data window into buf with a MBLT transfer
// and returns the number of words read. buf should hold at most
// BufferSize words.
func (brd *V1495) Readout(buf []uint32) (int, error) {
	if len(buf) > BufferSize {
		buf = buf[:BufferSize]
	}
	return brd.MBLTRead(0, buf)
}

func (brd *V1495) ROMChecksum() (uint32, error)       { return brd.Read32(0x8100) }
func (brd *V1495) ROMChecksumLength() (uint32, error) { return brd.ReadComposite(0x8104, 3, 4) }
func (brd *V1495) ROMConstant() (uint32, error)       { return brd.ReadComposite(0x8110, 3, 4) }
func (brd *V1495) ROMCCode() (uint32, error)          { return brd.Read32(0x811C) }
func (brd *V1495) ROMRCode() (uint32, error)          { return brd.Read32(0x8120) }

// OUI should be 0x40E6, unless overwritten by the user firmware.
func (brd *V1495) OUI() (uint32, error)      { return brd.ReadComposite(0x8124, 3, 4) }
func (brd *V1495) Version() (uint32, error)  { return brd.Read32(0x8130) }
func (brd *V1495) ID() (uint32, error)       { return brd.ReadComposite(0x8134, 3, 4) }
func (brd *V1495) Revision() (uint32, error) { return brd.ReadComposite(0x8140, 4, 4) }
func (brd *V1495) Serial() (uint32, error)   { return brd.ReadComposite(0x8180, 2, 4) }

func (brd *V1495) Geo() (uint8, error) {
	v, err := brd.Read16(0x8008)
	return uint8(v & 0x1F), err
}

func (brd *V1495) Reset() error { return brd.Write16(0x800C, 1) }

// FirmwareRevision shares its address with the reset register.
func (brd *V1495) FirmwareRevision() (uint16, error) { return brd.Read16(0x800C) }

// Reload reloads the user FPGA firmware from the flash memory.
func (brd *V1495) Reload() error { return brd.Write16(0x8016, 1) }

func (brd *V1495) Scratch16() (uint16, error)  { return brd.Read16(0x8018) }
func (brd *V1495) SetScratch16(v uint16) error { return brd.Write16(0x8018, v) }
func (brd *V1495) Scratch32() (uint32, error)  { return brd.Read32(0x8020) }
func (brd *V1495) SetScratch32(v uint32) error { return brd.Write32(0x8020, v) }
