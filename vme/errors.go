// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vme

import (
	"fmt"

	"github.com/go-lpc/caen/comm"
)

// Code is a CAENVME status code.
type Code int32

const (
	Success          Code = 0
	BusError         Code = -1
	CommError        Code = -2
	GenericError     Code = -3
	InvalidParam     Code = -4
	TimeoutError     Code = -5
	AlreadyOpenError Code = -6
	MaxBoardCount    Code = -7
	NotSupported     Code = -8
)

func (c Code) String() string {
	switch c {
	case Success:
		return "Operation completed successfully"
	case BusError:
		return "VME bus error during the cycle"
	case CommError:
		return "Communication error"
	case GenericError:
		return "Unspecified error"
	case InvalidParam:
		return "Invalid parameter"
	case TimeoutError:
		return "Timeout error"
	case AlreadyOpenError:
		return "Device already open"
	case MaxBoardCount:
		return "Maximum number of boards reached"
	case NotSupported:
		return "Not supported by the device"
	default:
		return fmt.Sprintf("Unknown error (%d)", int32(c))
	}
}

// CommCode returns the CAENComm code corresponding to c.
func (c Code) CommCode() comm.Code {
	switch c {
	case Success:
		return comm.Success
	case BusError:
		return comm.VMEBusError
	case CommError:
		return comm.CommError
	case GenericError:
		return comm.GenericError
	case InvalidParam:
		return comm.InvalidParam
	case TimeoutError:
		return comm.CommTimeout
	case AlreadyOpenError:
		return comm.DeviceAlreadyOpen
	case MaxBoardCount:
		return comm.MaxDevicesError
	case NotSupported:
		return comm.NotSupported
	default:
		return comm.Code(int32(c) - 100)
	}
}

// Error is a failure reported by the VME library.
type Error struct {
	Code Code
}

func (e Error) Error() string { return e.Code.String() }
