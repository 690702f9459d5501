// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build caen && cgo

package comm

/*
#cgo LDFLAGS: -lCAENComm
#include <stdlib.h>
#include <stdint.h>
#include <CAENComm.h>
*/
import "C"

import (
	"unsafe"

	"github.com/go-lpc/caen"
)

func init() {
	Register("caencomm", cdriver{})
}

type cdriver struct{}

func clink(lt LinkType) C.CAENComm_ConnectionType {
	switch lt {
	case USB:
		return C.CAENComm_USB
	case OpticalLink:
		return C.CAENComm_OpticalLink
	case USBA4818V2718:
		return C.CAENComm_USB_A4818_V2718
	case USBA4818V3718:
		return C.CAENComm_USB_A4818_V3718
	case USBA4818V4718:
		return C.CAENComm_USB_A4818_V4718
	case USBA4818:
		return C.CAENComm_USB_A4818
	case ETHV4718:
		return C.CAENComm_ETH_V4718
	case USBV4718:
		return C.CAENComm_USB_V4718
	}
	panic("comm: invalid link type")
}

func cerr(status C.CAENComm_ErrorCode) error {
	if status == C.CAENComm_Success {
		return nil
	}
	return Error{Code: Code(status)}
}

func (cdriver) Open(conn caen.Connection) (Transport, error) {
	lt, err := LinkOf(conn)
	if err != nil {
		return nil, err
	}

	var h C.int
	switch lt {
	case ETHV4718:
		ip := C.CString(conn.IP)
		defer C.free(unsafe.Pointer(ip))
		err = cerr(C.CAENComm_OpenDevice2(
			clink(lt), unsafe.Pointer(ip), 0, C.uint32_t(conn.BaseAddress()), &h,
		))
	default:
		arg := C.uint32_t(conn.Link)
		err = cerr(C.CAENComm_OpenDevice2(
			clink(lt), unsafe.Pointer(&arg), C.int(conn.Node), C.uint32_t(conn.BaseAddress()), &h,
		))
	}
	if err != nil {
		return nil, err
	}
	return &ctransport{h: h}, nil
}

type ctransport struct {
	h C.int
}

func (tr *ctransport) Read16(addr uint32) (uint16, error) {
	var v C.uint16_t
	err := cerr(C.CAENComm_Read16(tr.h, C.uint32_t(addr), &v))
	return uint16(v), err
}

func (tr *ctransport) Read32(addr uint32) (uint32, error) {
	var v C.uint32_t
	err := cerr(C.CAENComm_Read32(tr.h, C.uint32_t(addr), &v))
	return uint32(v), err
}

func (tr *ctransport) Write16(addr uint32, v uint16) error {
	return cerr(C.CAENComm_Write16(tr.h, C.uint32_t(addr), C.uint16_t(v)))
}

func (tr *ctransport) Write32(addr uint32, v uint32) error {
	return cerr(C.CAENComm_Write32(tr.h, C.uint32_t(addr), C.uint32_t(v)))
}

func (tr *ctransport) BLTRead(addr uint32, buf []uint32) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	var nw C.int
	err := cerr(C.CAENComm_BLTRead(
		tr.h, C.uint32_t(addr),
		(*C.uint32_t)(unsafe.Pointer(&buf[0])), C.int(4*len(buf)),
		&nw,
	))
	return int(nw), err
}

func (tr *ctransport) MBLTRead(addr uint32, buf []uint32) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	var nw C.int
	err := cerr(C.CAENComm_MBLTRead(
		tr.h, C.uint32_t(addr),
		(*C.uint32_t)(unsafe.Pointer(&buf[0])), C.int(4*len(buf)),
		&nw,
	))
	return int(nw), err
}

func (tr *ctransport) Close() error {
	return cerr(C.CAENComm_CloseDevice(tr.h))
}

// VMEHandle returns the CAENVMELib handle used by the CAENComm handle, to
// share a connection with the vme package.
func (tr *ctransport) VMEHandle() (int32, error) {
	var h C.int
	err := cerr(C.CAENComm_Info(tr.h, C.CAENComm_VMELIB_handle, unsafe.Pointer(&h)))
	return int32(h), err
}
