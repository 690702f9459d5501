// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package caen

import (
	"fmt"
	"strconv"
	"strings"
)

// Bridge identifies a CAEN VME bridge model.
type Bridge uint8

const (
	NoBridge Bridge = iota
	V1718
	V2718
	V3718
	V4718
	A2719
	InvalidBridge
)

var bridgeNames = [...]string{"None", "V1718", "V2718", "V3718", "V4718", "A2719"}

func (b Bridge) String() string {
	if int(b) >= len(bridgeNames) {
		return "invalid"
	}
	return bridgeNames[b]
}

// Valid reports whether b names an actual bridge.
func (b Bridge) Valid() bool { return b > NoBridge && b < InvalidBridge }

// ParseBridge returns the bridge with the given (case insensitive) name.
// It returns InvalidBridge when name is not known.
func ParseBridge(name string) Bridge {
	for i, v := range bridgeNames {
		if strings.EqualFold(v, name) {
			return Bridge(i)
		}
	}
	return InvalidBridge
}

// Bridges returns the list of supported bridges.
func Bridges() []Bridge {
	var out []Bridge
	for b := NoBridge + 1; b < InvalidBridge; b++ {
		out = append(out, b)
	}
	return out
}

// Conet identifies a CONET (optical daisy chain) adapter.
type Conet uint8

const (
	NoConet Conet = iota
	Optical       // plain CAENComm optical link
	A2818
	A3818
	A4818
	A5818
	InvalidConet
)

var conetNames = [...]string{"None", "Optical", "A2818", "A3818", "A4818", "A5818"}

func (c Conet) String() string {
	if int(c) >= len(conetNames) {
		return "invalid"
	}
	return conetNames[c]
}

// Valid reports whether c names an actual adapter.
func (c Conet) Valid() bool { return c > NoConet && c < InvalidConet }

// ParseConet returns the adapter with the given (case insensitive) name.
// It returns InvalidConet when name is not known.
func ParseConet(name string) Conet {
	for i, v := range conetNames {
		if strings.EqualFold(v, name) {
			return Conet(i)
		}
	}
	return InvalidConet
}

// Conets returns the list of supported adapters.
func Conets() []Conet {
	var out []Conet
	for c := NoConet + 1; c < InvalidConet; c++ {
		out = append(out, c)
	}
	return out
}

// Connection describes how to reach a physical device.
//
// A Connection is filled once by the caller and then only read: it is
// consumed when a transport is opened and kept around for error messages.
type Connection struct {
	Bridge  Bridge
	Conet   Conet
	Link    uint32 // USB device number or PID of the CONET adapter
	IP      string // when connecting through ethernet
	Node    int16  // CONET daisy chain node number
	Local   bool   // access to the internal registers of a bridge
	Address uint16 // most significant 16 bits of the VME base address
}

// BaseAddress returns the 32-bit VME base address of the device.
func (c Connection) BaseAddress() uint32 {
	return uint32(c.Address) << 16
}

// IsEthernet reports whether the connection goes through an ethernet link.
func (c Connection) IsEthernet() bool {
	return c.IP != ""
}

// IsBridge reports whether the connection targets the registers of the
// bridge itself rather than a VME board behind it.
func (c Connection) IsBridge() bool {
	if c.Local {
		return true
	}
	return c.Bridge.Valid() && c.Address == 0
}

func (c Connection) String() string {
	var (
		o     strings.Builder
		first = true
		sep   = func() {
			if !first {
				o.WriteString(", ")
			}
			first = false
		}
	)

	if c.Bridge.Valid() {
		o.WriteString(c.Bridge.String())
		first = false
	}

	if c.Conet.Valid() {
		if !first {
			o.WriteString(" via ")
		}
		first = false
		o.WriteString(c.Conet.String())
	}

	if c.Link != 0 {
		if !c.Conet.Valid() {
			sep()
			o.WriteString("USB device ")
		} else {
			o.WriteString(" ")
		}
		first = false
		o.WriteString(strconv.FormatUint(uint64(c.Link), 10))
	}

	if c.IP != "" {
		sep()
		o.WriteString("IP " + c.IP)
	}

	if c.Node != 0 {
		sep()
		fmt.Fprintf(&o, "daisy chain node %d", c.Node)
	}

	if c.Local {
		sep()
		o.WriteString("local")
	}

	if c.Address != 0 {
		sep()
		fmt.Fprintf(&o, "VME address 0x%x", c.Address)
	}

	if first {
		return "<unspecified>"
	}
	return o.String()
}

// InvalidConnectionError is returned when a Connection does not describe a
// supported way to reach a device.
type InvalidConnectionError struct {
	Conn Connection
}

func (e *InvalidConnectionError) Error() string {
	return "caen: invalid connection: " + e.Conn.String()
}

// DeviceInfo describes a known device model.
type DeviceInfo struct {
	Name     string
	IsBridge bool
}

// DeviceDB is the database of known devices.
var DeviceDB = []DeviceInfo{
	{Name: "V792"},
	{Name: "V812"},
	{Name: "V1290"},
	{Name: "V1495"},
	{Name: "V3718", IsBridge: true},
	{Name: "V6533"},
	{Name: "V6534"},
}

// LookupDevice returns the device info for the given (case insensitive) model name.
func LookupDevice(name string) (DeviceInfo, bool) {
	for _, dev := range DeviceDB {
		if strings.EqualFold(dev.Name, name) {
			return dev, true
		}
	}
	return DeviceInfo{}, false
}
