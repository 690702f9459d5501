// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vme

import "github.com/go-lpc/caen"

// AddressModifier is a VME address modifier code.
type AddressModifier uint8

const (
	A16S      AddressModifier = 0x2D // A16 supervisory access
	A16U      AddressModifier = 0x29 // A16 non-privileged
	A24SData  AddressModifier = 0x3D
	A24UData  AddressModifier = 0x39
	A24UBLT   AddressModifier = 0x3B
	A24UMBLT  AddressModifier = 0x38
	A32SData  AddressModifier = 0x0D
	A32UData  AddressModifier = 0x09
	A32UBLT   AddressModifier = 0x0B
	A32UMBLT  AddressModifier = 0x08
	A32SBLT   AddressModifier = 0x0F
	A32SMBLT  AddressModifier = 0x0C
	CRCSR     AddressModifier = 0x2F
	LockCycle AddressModifier = 0x05
)

// DataWidth is the width of a VME data cycle.
type DataWidth uint8

const (
	D8  DataWidth = 0x01
	D16 DataWidth = 0x02
	D32 DataWidth = 0x04
	D64 DataWidth = 0x08
)

// Bytes returns the number of bytes transferred per cycle.
func (dw DataWidth) Bytes() int { return int(dw & 0x0f) }

// BoardType is the CAENVME identifier of the way a bridge is reached.
type BoardType int

const (
	InvalidBoard BoardType = iota
	V1718
	V2718
	A2818
	A2719
	A3818
	A5818
	USBA4818
	USBA4818Local
	USBA4818V2718
	USBA4818V2718Local
	USBA4818V3718
	USBA4818V3718Local
	USBA4818V4718
	USBA4818V4718Local
	USBA4818A2719Local
	USBV3718
	USBV3718Local
	USBV4718
	USBV4718Local
	ETHV4718
	ETHV4718Local
	PCIA2818V3718
	PCIA2818V3718Local
	PCIA2818V4718
	PCIA2818V4718Local
	PCIeA3818V3718
	PCIeA3818V3718Local
	PCIeA3818V4718
	PCIeA3818V4718Local
	PCIeA5818V3718
	PCIeA5818V3718Local
	PCIeA5818V4718
	PCIeA5818V4718Local
)

var boardNames = [...]string{
	InvalidBoard:        "invalid",
	V1718:               "V1718",
	V2718:               "V2718",
	A2818:               "A2818",
	A2719:               "A2719",
	A3818:               "A3818",
	A5818:               "A5818",
	USBA4818:            "USB_A4818",
	USBA4818Local:       "USB_A4818_LOCAL",
	USBA4818V2718:       "USB_A4818_V2718",
	USBA4818V2718Local:  "USB_A4818_V2718_LOCAL",
	USBA4818V3718:       "USB_A4818_V3718",
	USBA4818V3718Local:  "USB_A4818_V3718_LOCAL",
	USBA4818V4718:       "USB_A4818_V4718",
	USBA4818V4718Local:  "USB_A4818_V4718_LOCAL",
	USBA4818A2719Local:  "USB_A4818_A2719_LOCAL",
	USBV3718:            "USB_V3718",
	USBV3718Local:       "USB_V3718_LOCAL",
	USBV4718:            "USB_V4718",
	USBV4718Local:       "USB_V4718_LOCAL",
	ETHV4718:            "ETH_V4718",
	ETHV4718Local:       "ETH_V4718_LOCAL",
	PCIA2818V3718:       "PCI_A2818_V3718",
	PCIA2818V3718Local:  "PCI_A2818_V3718_LOCAL",
	PCIA2818V4718:       "PCI_A2818_V4718",
	PCIA2818V4718Local:  "PCI_A2818_V4718_LOCAL",
	PCIeA3818V3718:      "PCIE_A3818_V3718",
	PCIeA3818V3718Local: "PCIE_A3818_V3718_LOCAL",
	PCIeA3818V4718:      "PCIE_A3818_V4718",
	PCIeA3818V4718Local: "PCIE_A3818_V4718_LOCAL",
	PCIeA5818V3718:      "PCIE_A5818_V3718",
	PCIeA5818V3718Local: "PCIE_A5818_V3718_LOCAL",
	PCIeA5818V4718:      "PCIE_A5818_V4718",
	PCIeA5818V4718Local: "PCIE_A5818_V4718_LOCAL",
}

func (bt BoardType) String() string {
	if bt < 0 || int(bt) >= len(boardNames) {
		return boardNames[InvalidBoard]
	}
	return boardNames[bt]
}

func local(b bool, remote, loc BoardType) BoardType {
	if b {
		return loc
	}
	return remote
}

// BoardTypeOf returns the board type used to reach the bridge described by
// conn. It returns a *caen.InvalidConnectionError for combinations the
// CAENVME library does not support.
func BoardTypeOf(conn caen.Connection) (BoardType, error) {
	var (
		bt  = InvalidBoard
		loc = conn.Local
		eth = conn.IsEthernet()
	)

	switch conn.Bridge {
	case caen.V1718:
		if conn.Conet == caen.NoConet {
			bt = V1718
		}
	case caen.V2718:
		switch conn.Conet {
		case caen.NoConet:
			bt = V2718
		case caen.A4818:
			bt = local(loc, USBA4818V2718, USBA4818V2718Local)
		}
	case caen.V3718:
		switch conn.Conet {
		case caen.NoConet:
			bt = local(loc, USBV3718, USBV3718Local)
		case caen.A2818:
			bt = local(loc, PCIA2818V3718, PCIA2818V3718Local)
		case caen.A3818:
			bt = local(loc, PCIeA3818V3718, PCIeA3818V3718Local)
		case caen.A4818:
			bt = local(loc, USBA4818V3718, USBA4818V3718Local)
		case caen.A5818:
			bt = local(loc, PCIeA5818V3718, PCIeA5818V3718Local)
		}
	case caen.V4718:
		switch conn.Conet {
		case caen.NoConet:
			if eth {
				bt = local(loc, ETHV4718, ETHV4718Local)
			} else {
				bt = local(loc, USBV4718, USBV4718Local)
			}
		case caen.A2818:
			bt = local(loc, PCIA2818V4718, PCIA2818V4718Local)
		case caen.A3818:
			bt = local(loc, PCIeA3818V4718, PCIeA3818V4718Local)
		case caen.A4818:
			bt = local(loc, USBA4818V4718, USBA4818V4718Local)
		case caen.A5818:
			bt = local(loc, PCIeA5818V4718, PCIeA5818V4718Local)
		}
	case caen.A2719:
		switch conn.Conet {
		case caen.NoConet:
			bt = A2719
		case caen.A4818:
			bt = USBA4818A2719Local
		}
	case caen.NoBridge:
		switch conn.Conet {
		case caen.A2818:
			bt = A2818
		case caen.A3818:
			bt = A3818
		case caen.A4818:
			bt = local(loc, USBA4818, USBA4818Local)
		case caen.A5818:
			bt = A5818
		}
	}

	if bt == InvalidBoard {
		return bt, &caen.InvalidConnectionError{Conn: conn}
	}
	return bt, nil
}
