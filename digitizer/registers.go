// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package digitizer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-lpc/caen/bitfield"
	"github.com/go-lpc/caen/comm"
)

const (
	regOutputBuffer      = 0x0000
	regAMCFirmware       = 0x108C // + 0x100*ch
	regTemperature       = 0x10A8 // + 0x100*ch
	regAcqControl        = 0x8100
	regAcqStatus         = 0x8104
	regSWTrigger         = 0x8108
	regPostTrigger       = 0x8114
	regChannelEnableMask = 0x8120
	regROCFirmware       = 0x8124
	regBoardInfo         = 0x8140
	regCalibrate         = 0x809C
	regMaxEventsBLT      = 0xEF1C
	regSWReset           = 0xEF24
	regSWClear           = 0xEF28

	romFormFactor  = 0xF034
	romPCBRevision = 0xF04C
	romSerial      = 0xF080
)

// RegisterHandle implements Handle with register accesses over a
// comm.Device.
type RegisterHandle struct {
	dev *comm.Device
}

// NewRegisterHandle returns a handle accessing the digitizer through dev.
// Closing the handle closes dev.
func NewRegisterHandle(dev *comm.Device) *RegisterHandle {
	return &RegisterHandle{dev: dev}
}

// Device returns the underlying device.
func (h *RegisterHandle) Device() *comm.Device { return h.dev }

func (h *RegisterHandle) ReadRegister(addr uint32) (uint32, error) {
	v, err := h.dev.Read32(addr)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", Error{Func: "ReadRegister", Code: ReadDeviceRegisterFail}, err)
	}
	return v, nil
}

func (h *RegisterHandle) WriteRegister(addr, v uint32) error {
	err := h.dev.Write32(addr, v)
	if err != nil {
		return fmt.Errorf("%w: %w", Error{Func: "WriteRegister", Code: WriteDeviceRegisterFail}, err)
	}
	return nil
}

// ReadData reads the output buffer with a block transfer.
func (h *RegisterHandle) ReadData(buf []uint32) (int, error) {
	n, err := h.dev.MBLTRead(regOutputBuffer, buf)
	if err != nil {
		var cerr comm.Error
		if errors.As(err, &cerr) && cerr.Code == comm.CommTimeout {
			return n, fmt.Errorf("%w: %w", Error{Func: "ReadData", Code: Timeout}, err)
		}
		return n, fmt.Errorf("%w: %w", Error{Func: "ReadData", Code: CommError}, err)
	}
	return n, nil
}

// Info builds the board information from the board info register, the
// firmware releases and the configuration ROM.
func (h *RegisterHandle) Info() (Info, error) {
	seq := h.dev.Seq()
	var (
		board = seq.Read32(regBoardInfo)
		roc   = seq.Read32(regROCFirmware)
		amc   = seq.Read32(regAMCFirmware)
		ff    = seq.Read32(romFormFactor)
		pcb   = seq.Read32(romPCBRevision)
		sn    = seq.ReadComposite(romSerial, 2, 4)
	)
	if err := seq.Err(); err != nil {
		return Info{}, fmt.Errorf("%w: %w", Error{Func: "GetInfo", Code: CommError}, err)
	}

	info := Info{
		Family:      Family(bitfield.Bits(board, 0, 7)),
		Channels:    int(bitfield.Bits(board, 16, 23)),
		FormFactor:  FormFactor(ff & 0xFF),
		ROCFirmware: release(roc),
		AMCFirmware: release(amc),
		Serial:      sn,
		PCBRevision: pcb & 0xFF,
	}
	info.ADCBits = adcBits[info.Family]
	if info.Family.Known() {
		prefix := "V1"
		switch info.FormFactor {
		case Desktop:
			prefix = "DT5"
		case NIM:
			prefix = "N6"
		}
		info.ModelName = prefix + strings.TrimPrefix(info.Family.String(), "XX")
	}
	return info, nil
}

var adcBits = map[Family]int{
	XX724: 14,
	XX721: 8,
	XX731: 8,
	XX720: 12,
	XX740: 12,
	XX751: 10,
	XX742: 12,
	XX761: 10,
	XX743: 12,
	XX730: 14,
	XX725: 14,
}

// release formats a firmware revision register: minor in bits 0-7, major in
// bits 8-15 and the build date in bits 16-31.
func release(v uint32) string {
	return fmt.Sprintf("%02d.%02d - Build %04X",
		bitfield.Bits(v, 8, 15), bitfield.Bits(v, 0, 7), bitfield.Bits(v, 16, 31),
	)
}

func (h *RegisterHandle) Reset() error     { return h.WriteRegister(regSWReset, 1) }
func (h *RegisterHandle) ClearData() error { return h.WriteRegister(regSWClear, 1) }

func (h *RegisterHandle) SendSWTrigger() error { return h.WriteRegister(regSWTrigger, 1) }
func (h *RegisterHandle) Calibrate() error     { return h.WriteRegister(regCalibrate, 1) }

func (h *RegisterHandle) setRun(run bool) error {
	v, err := h.ReadRegister(regAcqControl)
	if err != nil {
		return err
	}
	return h.WriteRegister(regAcqControl, bitfield.SetBit(v, 2, run))
}

func (h *RegisterHandle) StartAcquisition() error { return h.setRun(true) }
func (h *RegisterHandle) StopAcquisition() error  { return h.setRun(false) }

func (h *RegisterHandle) ReadTemperature(ch int) (uint32, error) {
	v, err := h.ReadRegister(regTemperature | uint32(ch)<<8)
	return v & 0xFF, err
}

func (h *RegisterHandle) Close() error { return h.dev.Close() }

var _ Handle = (*RegisterHandle)(nil)
