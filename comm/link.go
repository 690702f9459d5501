// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package comm

import (
	"fmt"
	"strings"

	"github.com/go-lpc/caen"
)

// LinkType is a CAENComm connection type.
type LinkType int

const (
	USB LinkType = iota
	OpticalLink
	USBA4818V2718
	USBA4818V3718
	USBA4818V4718
	USBA4818
	ETHV4718
	USBV4718
)

var links = [...]struct {
	name   string
	pretty string
}{
	USB:           {"usb", "USB"},
	OpticalLink:   {"optical", "optical link"},
	USBA4818V2718: {"a4818-v2718", "USB A4818 - V2718"},
	USBA4818V3718: {"a4818-v3718", "USB A4818 - V3718"},
	USBA4818V4718: {"a4818-v4718", "USB A4818 - V4718"},
	USBA4818:      {"a4818", "USB A4818"},
	ETHV4718:      {"eth-v4718", "ETH V4718"},
	USBV4718:      {"usb-v4718", "USB V4718"},
}

// Name returns the short name of the link type.
func (lt LinkType) Name() string {
	if lt < 0 || int(lt) >= len(links) {
		return "unknown"
	}
	return links[lt].name
}

func (lt LinkType) String() string {
	if lt < 0 || int(lt) >= len(links) {
		return "unknown"
	}
	return links[lt].pretty
}

// Links returns the list of link types.
func Links() []LinkType {
	out := make([]LinkType, len(links))
	for i := range links {
		out[i] = LinkType(i)
	}
	return out
}

// ParseLink returns the link type with the given (case insensitive) short name.
func ParseLink(name string) (LinkType, error) {
	for i, v := range links {
		if strings.EqualFold(v.name, name) {
			return LinkType(i), nil
		}
	}
	return -1, fmt.Errorf("comm: invalid link type %q", name)
}

// LinkOf returns the link type used to reach a board through conn.
func LinkOf(conn caen.Connection) (LinkType, error) {
	invalid := &caen.InvalidConnectionError{Conn: conn}

	if conn.IsEthernet() {
		if conn.Bridge == caen.V4718 && !conn.Conet.Valid() {
			return ETHV4718, nil
		}
		return -1, invalid
	}

	switch conn.Conet {
	case caen.NoConet:
		switch conn.Bridge {
		case caen.V1718, caen.V3718:
			return USB, nil
		case caen.V4718:
			return USBV4718, nil
		}
	case caen.Optical, caen.A2818, caen.A3818, caen.A5818:
		switch conn.Bridge {
		case caen.NoBridge, caen.V2718, caen.V3718, caen.V4718:
			return OpticalLink, nil
		}
	case caen.A4818:
		switch conn.Bridge {
		case caen.NoBridge:
			return USBA4818, nil
		case caen.V2718:
			return USBA4818V2718, nil
		case caen.V3718:
			return USBA4818V3718, nil
		case caen.V4718:
			return USBA4818V4718, nil
		}
	}
	return -1, invalid
}
