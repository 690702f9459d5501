// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package comm

import (
	"fmt"
	"time"

	"github.com/go-lpc/caen"
)

// Code is a CAENComm status code.
type Code int32

const (
	Success                Code = 0
	VMEBusError            Code = -1
	CommError              Code = -2
	GenericError           Code = -3
	InvalidParam           Code = -4
	InvalidLinkType        Code = -5
	InvalidHandler         Code = -6
	CommTimeout            Code = -7
	DeviceNotFound         Code = -8
	MaxDevicesError        Code = -9
	DeviceAlreadyOpen      Code = -10
	NotSupported           Code = -11
	UnusedBridge           Code = -12
	Terminated             Code = -13
	UnsupportedBaseAddress Code = -14
)

func (c Code) String() string {
	switch c {
	case Success:
		return "success"
	case VMEBusError:
		return "VME bus error"
	case CommError:
		return "communication error"
	case GenericError:
		return "generic error"
	case InvalidParam:
		return "invalid parameters"
	case InvalidLinkType:
		return "invalid link type"
	case InvalidHandler:
		return "invalid device handler"
	case CommTimeout:
		return "communication timeout"
	case DeviceNotFound:
		return "unable to open device"
	case MaxDevicesError:
		return "max. number of devices exceeded"
	case DeviceAlreadyOpen:
		return "device already open"
	case NotSupported:
		return "request not supported"
	case UnusedBridge:
		return "no boards are controlled by the bridge"
	case Terminated:
		return "communication terminated by the device"
	case UnsupportedBaseAddress:
		return "unsupported base address"
	default:
		return fmt.Sprintf("unknown error (%d)", int32(c))
	}
}

// Error is a failure reported by the transport.
type Error struct {
	Code Code
}

func (e Error) Error() string { return e.Code.String() }

// WrongDeviceError is returned when the identification data of the board
// reached through a connection does not match the expected model.
type WrongDeviceError struct {
	Conn     caen.Connection
	Expected string
}

func (e *WrongDeviceError) Error() string {
	return fmt.Sprintf("Device connected through %s is not a %s", e.Conn, e.Expected)
}

// TimeoutError is returned when a device never became ready.
type TimeoutError struct {
	What  string
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("comm: timeout after %v waiting for %s", e.After, e.What)
}

// Timeout reports whether the error is a timeout.
func (e *TimeoutError) Timeout() bool { return true }
