// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build caen && cgo

package vme

/*
#cgo LDFLAGS: -lCAENVME
#include <stdlib.h>
#include <stdint.h>
#include <CAENVMElib.h>
*/
import "C"

import (
	"unsafe"

	"github.com/go-lpc/caen"
)

func init() {
	Register("caenvme", cdriver{})
}

type cdriver struct{}

func cboard(bt BoardType) C.CVBoardTypes {
	switch bt {
	case V1718:
		return C.cvV1718
	case V2718:
		return C.cvV2718
	case A2818:
		return C.cvA2818
	case A2719:
		return C.cvA2719
	case A3818:
		return C.cvA3818
	case A5818:
		return C.cvA5818
	case USBA4818:
		return C.cvUSB_A4818
	case USBA4818Local:
		return C.cvUSB_A4818_LOCAL
	case USBA4818V2718:
		return C.cvUSB_A4818_V2718
	case USBA4818V2718Local:
		return C.cvUSB_A4818_V2718_LOCAL
	case USBA4818V3718:
		return C.cvUSB_A4818_V3718
	case USBA4818V3718Local:
		return C.cvUSB_A4818_V3718_LOCAL
	case USBA4818V4718:
		return C.cvUSB_A4818_V4718
	case USBA4818V4718Local:
		return C.cvUSB_A4818_V4718_LOCAL
	case USBA4818A2719Local:
		return C.cvUSB_A4818_A2719_LOCAL
	case USBV3718:
		return C.cvUSB_V3718
	case USBV3718Local:
		return C.cvUSB_V3718_LOCAL
	case USBV4718:
		return C.cvUSB_V4718
	case USBV4718Local:
		return C.cvUSB_V4718_LOCAL
	case ETHV4718:
		return C.cvETH_V4718
	case ETHV4718Local:
		return C.cvETH_V4718_LOCAL
	case PCIA2818V3718:
		return C.cvPCI_A2818_V3718
	case PCIA2818V3718Local:
		return C.cvPCI_A2818_V3718_LOCAL
	case PCIA2818V4718:
		return C.cvPCI_A2818_V4718
	case PCIA2818V4718Local:
		return C.cvPCI_A2818_V4718_LOCAL
	case PCIeA3818V3718:
		return C.cvPCIE_A3818_V3718
	case PCIeA3818V3718Local:
		return C.cvPCIE_A3818_V3718_LOCAL
	case PCIeA3818V4718:
		return C.cvPCIE_A3818_V4718
	case PCIeA3818V4718Local:
		return C.cvPCIE_A3818_V4718_LOCAL
	case PCIeA5818V3718:
		return C.cvPCIE_A5818_V3718
	case PCIeA5818V3718Local:
		return C.cvPCIE_A5818_V3718_LOCAL
	case PCIeA5818V4718:
		return C.cvPCIE_A5818_V4718
	case PCIeA5818V4718Local:
		return C.cvPCIE_A5818_V4718_LOCAL
	}
	panic("vme: invalid board type")
}

func cerr(status C.CVErrorCodes) error {
	if status == C.cvSuccess {
		return nil
	}
	return Error{Code: Code(status)}
}

func (cdriver) Open(bt BoardType, conn caen.Connection) (Controller, error) {
	var (
		h   C.int32_t
		err error
	)
	if conn.IsEthernet() {
		ip := C.CString(conn.IP)
		defer C.free(unsafe.Pointer(ip))
		err = cerr(C.CAENVME_Init2(cboard(bt), unsafe.Pointer(ip), C.short(conn.Node), &h))
	} else {
		arg := C.uint32_t(conn.Link)
		err = cerr(C.CAENVME_Init2(cboard(bt), unsafe.Pointer(&arg), C.short(conn.Node), &h))
	}
	if err != nil {
		return nil, err
	}
	return &controller{h: h}, nil
}

// NewController wraps a CAENVMELib handle obtained elsewhere (e.g. from a
// CAENComm connection). The controller must be wrapped in a borrowing
// Bridge when the handle belongs to someone else.
func NewController(h int32) Controller {
	return &controller{h: C.int32_t(h)}
}

type controller struct {
	h C.int32_t
}

func (c *controller) ReadRegister(addr uint8) (uint32, error) {
	var v C.uint
	err := cerr(C.CAENVME_ReadRegister(c.h, C.CVRegisters(addr), &v))
	return uint32(v), err
}

func (c *controller) WriteRegister(addr uint8, v uint32) error {
	return cerr(C.CAENVME_WriteRegister(c.h, C.CVRegisters(addr), C.uint(v)))
}

func (c *controller) ReadCycle(addr uint32, am AddressModifier, dw DataWidth) (uint32, error) {
	var v C.uint32_t
	err := cerr(C.CAENVME_ReadCycle(
		c.h, C.uint32_t(addr), unsafe.Pointer(&v),
		C.CVAddressModifier(am), C.CVDataWidth(dw),
	))
	switch dw {
	case D8:
		return uint32(v) & 0xff, err
	case D16:
		return uint32(v) & 0xffff, err
	}
	return uint32(v), err
}

func (c *controller) WriteCycle(addr uint32, v uint32, am AddressModifier, dw DataWidth) error {
	w := C.uint32_t(v)
	return cerr(C.CAENVME_WriteCycle(
		c.h, C.uint32_t(addr), unsafe.Pointer(&w),
		C.CVAddressModifier(am), C.CVDataWidth(dw),
	))
}

func (c *controller) BLTReadCycle(addr uint32, am AddressModifier, dw DataWidth, buf []uint32) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	var n C.int
	err := cerr(C.CAENVME_BLTReadCycle(
		c.h, C.uint32_t(addr), unsafe.Pointer(&buf[0]), C.int(4*len(buf)),
		C.CVAddressModifier(am), C.CVDataWidth(dw), &n,
	))
	return int(n) / 4, err
}

func (c *controller) MBLTReadCycle(addr uint32, am AddressModifier, buf []uint32) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	var n C.int
	err := cerr(C.CAENVME_MBLTReadCycle(
		c.h, C.uint32_t(addr), unsafe.Pointer(&buf[0]), C.int(4*len(buf)),
		C.CVAddressModifier(am), &n,
	))
	return int(n) / 4, err
}

func (c *controller) FIFOBLTReadCycle(addr uint32, am AddressModifier, dw DataWidth, buf []uint32) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	var n C.int
	err := cerr(C.CAENVME_FIFOBLTReadCycle(
		c.h, C.uint32_t(addr), unsafe.Pointer(&buf[0]), C.int(4*len(buf)),
		C.CVAddressModifier(am), C.CVDataWidth(dw), &n,
	))
	return int(n) / 4, err
}

func (c *controller) FirmwareRelease() (string, error) {
	var s [100]C.char
	err := cerr(C.CAENVME_BoardFWRelease(c.h, &s[0]))
	if err != nil {
		return "", err
	}
	return C.GoString(&s[0]), nil
}

func (c *controller) DeviceReset() error {
	return cerr(C.CAENVME_DeviceReset(c.h))
}

func (c *controller) Close() error {
	return cerr(C.CAENVME_End(c.h))
}
