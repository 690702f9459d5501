// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build caen && cgo

package digitizer

/*
#cgo LDFLAGS: -lCAENDigitizer
#include <stdlib.h>
#include <stdint.h>
#include <CAENDigitizer.h>
*/
import "C"

import (
	"unsafe"

	"github.com/go-lpc/caen"
	"github.com/go-lpc/caen/comm"
)

func init() {
	Register("caendgtz", cdriver{})
}

type cdriver struct{}

func clink(lt comm.LinkType) C.CAEN_DGTZ_ConnectionType {
	switch lt {
	case comm.USB:
		return C.CAEN_DGTZ_USB
	case comm.OpticalLink:
		return C.CAEN_DGTZ_OpticalLink
	case comm.USBA4818V2718:
		return C.CAEN_DGTZ_USB_A4818_V2718
	case comm.USBA4818V3718:
		return C.CAEN_DGTZ_USB_A4818_V3718
	case comm.USBA4818V4718:
		return C.CAEN_DGTZ_USB_A4818_V4718
	case comm.USBA4818:
		return C.CAEN_DGTZ_USB_A4818
	case comm.ETHV4718:
		return C.CAEN_DGTZ_ETH_V4718
	case comm.USBV4718:
		return C.CAEN_DGTZ_USB_V4718
	}
	panic("digitizer: invalid link type")
}

func cerr(fct string, status C.CAEN_DGTZ_ErrorCode) error {
	if status == C.CAEN_DGTZ_Success {
		return nil
	}
	return Error{Func: fct, Code: Code(status)}
}

func (cdriver) Open(conn caen.Connection) (Handle, error) {
	lt, err := comm.LinkOf(conn)
	if err != nil {
		return nil, err
	}

	var h C.int
	switch lt {
	case comm.ETHV4718:
		ip := C.CString(conn.IP)
		defer C.free(unsafe.Pointer(ip))
		err = cerr("OpenDigitizer2", C.CAEN_DGTZ_OpenDigitizer2(
			clink(lt), unsafe.Pointer(ip), 0, C.uint32_t(conn.BaseAddress()), &h,
		))
	default:
		arg := C.uint32_t(conn.Link)
		err = cerr("OpenDigitizer2", C.CAEN_DGTZ_OpenDigitizer2(
			clink(lt), unsafe.Pointer(&arg), C.int(conn.Node), C.uint32_t(conn.BaseAddress()), &h,
		))
	}
	if err != nil {
		return nil, err
	}
	return &chandle{h: h}, nil
}

type chandle struct {
	h   C.int
	buf *C.char // readout buffer allocated by the library
	cap C.uint32_t
}

func (h *chandle) ReadRegister(addr uint32) (uint32, error) {
	var v C.uint32_t
	err := cerr("ReadRegister", C.CAEN_DGTZ_ReadRegister(h.h, C.uint32_t(addr), &v))
	return uint32(v), err
}

func (h *chandle) WriteRegister(addr, v uint32) error {
	return cerr("WriteRegister", C.CAEN_DGTZ_WriteRegister(h.h, C.uint32_t(addr), C.uint32_t(v)))
}

func (h *chandle) ReadData(buf []uint32) (int, error) {
	if h.buf == nil {
		err := cerr("MallocReadoutBuffer", C.CAEN_DGTZ_MallocReadoutBuffer(h.h, &h.buf, &h.cap))
		if err != nil {
			return 0, err
		}
	}
	var size C.uint32_t
	err := cerr("ReadData", C.CAEN_DGTZ_ReadData(
		h.h, C.CAEN_DGTZ_SLAVE_TERMINATED_READOUT_MBLT, h.buf, &size,
	))
	if err != nil {
		return 0, err
	}
	src := unsafe.Slice((*uint32)(unsafe.Pointer(h.buf)), int(size)/4)
	n := copy(buf, src)
	if n < len(src) {
		return n, Error{Func: "ReadData", Code: InvalidBuffer}
	}
	return n, nil
}

func (h *chandle) Info() (Info, error) {
	var info C.CAEN_DGTZ_BoardInfo_t
	err := cerr("GetInfo", C.CAEN_DGTZ_GetInfo(h.h, &info))
	if err != nil {
		return Info{}, err
	}
	return Info{
		ModelName:   C.GoString(&info.ModelName[0]),
		Channels:    int(info.Channels),
		FormFactor:  FormFactor(info.FormFactor),
		Family:      Family(info.FamilyCode),
		ROCFirmware: C.GoString(&info.ROC_FirmwareRel[0]),
		AMCFirmware: C.GoString(&info.AMC_FirmwareRel[0]),
		Serial:      uint32(info.SerialNumber),
		PCBRevision: uint32(info.PCB_Revision),
		ADCBits:     int(info.ADC_NBits),
	}, nil
}

func (h *chandle) Reset() error     { return cerr("Reset", C.CAEN_DGTZ_Reset(h.h)) }
func (h *chandle) ClearData() error { return cerr("ClearData", C.CAEN_DGTZ_ClearData(h.h)) }
func (h *chandle) Calibrate() error { return cerr("Calibrate", C.CAEN_DGTZ_Calibrate(h.h)) }

func (h *chandle) SendSWTrigger() error {
	return cerr("SendSWtrigger", C.CAEN_DGTZ_SendSWtrigger(h.h))
}

func (h *chandle) StartAcquisition() error {
	return cerr("SWStartAcquisition", C.CAEN_DGTZ_SWStartAcquisition(h.h))
}

func (h *chandle) StopAcquisition() error {
	return cerr("SWStopAcquisition", C.CAEN_DGTZ_SWStopAcquisition(h.h))
}

func (h *chandle) ReadTemperature(ch int) (uint32, error) {
	var v C.uint32_t
	err := cerr("ReadTemperature", C.CAEN_DGTZ_ReadTemperature(h.h, C.int32_t(ch), &v))
	return uint32(v), err
}

func (h *chandle) Close() error {
	if h.buf != nil {
		_ = C.CAEN_DGTZ_FreeReadoutBuffer(&h.buf)
		h.buf = nil
	}
	return cerr("CloseDigitizer", C.CAEN_DGTZ_CloseDigitizer(h.h))
}
