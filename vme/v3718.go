// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vme

import (
	"fmt"

	"github.com/go-lpc/caen"
)

// Internal registers of the V1718/V3718 family.
const (
	RegStatus      uint8 = 0x00
	RegVMEControl  uint8 = 0x01
	RegFwRelease   uint8 = 0x02
	RegInput       uint8 = 0x08
	RegOutputSet   uint8 = 0x0A
	RegOutputClear uint8 = 0x10
)

// Status is the content of the bridge status register.
type Status uint32

func (s Status) SystemController() bool { return s&0x0001 != 0 }
func (s Status) BusError() bool         { return s&0x0010 != 0 }
func (s Status) USBType() bool          { return s&0x8000 != 0 }

// V3718 is a V3718 bridge.
type V3718 struct {
	*Bridge
}

// OpenV3718 opens the V3718 reached through conn.
// The bridge field of conn is forced to V3718.
func OpenV3718(driver string, conn caen.Connection) (*V3718, error) {
	conn.Bridge = caen.V3718
	br, err := Open(driver, conn)
	if err != nil {
		return nil, err
	}
	return &V3718{Bridge: br}, nil
}

// Status returns the status register of the bridge.
func (br *V3718) Status() (Status, error) {
	v, err := br.ReadRegister(RegStatus)
	return Status(v), err
}

// Input returns the state of the front panel inputs.
func (br *V3718) Input() (uint32, error) {
	return br.ReadRegister(RegInput)
}

// SetOutputs raises the front panel outputs selected by mask.
func (br *V3718) SetOutputs(mask uint16) error {
	return br.WriteRegister(RegOutputSet, uint32(mask))
}

// ClearOutputs lowers the front panel outputs selected by mask.
func (br *V3718) ClearOutputs(mask uint16) error {
	return br.WriteRegister(RegOutputClear, uint32(mask))
}

// PulseOutputs raises then lowers the outputs selected by mask.
func (br *V3718) PulseOutputs(mask uint16) error {
	err := br.SetOutputs(mask)
	if err != nil {
		return fmt.Errorf("vme: could not pulse outputs: %w", err)
	}
	return br.ClearOutputs(mask)
}
