// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package digitizer

import "fmt"

// Code is a CAEN digitizer library status code.
type Code int32

const (
	Success                  Code = 0
	CommError                Code = -1
	GenericError             Code = -2
	InvalidParam             Code = -3
	InvalidLinkType          Code = -4
	InvalidHandle            Code = -5
	MaxDevicesError          Code = -6
	BadBoardType             Code = -7
	BadInterruptLev          Code = -8
	BadEventNumber           Code = -9
	ReadDeviceRegisterFail   Code = -10
	WriteDeviceRegisterFail  Code = -11
	InvalidChannelNumber     Code = -13
	ChannelBusy              Code = -14
	FPIOModeInvalid          Code = -15
	WrongAcqMode             Code = -16
	FunctionNotAllowed       Code = -17
	Timeout                  Code = -18
	InvalidBuffer            Code = -19
	EventNotFound            Code = -20
	InvalidEvent             Code = -21
	OutOfMemory              Code = -22
	CalibrationError         Code = -23
	DigitizerNotFound        Code = -24
	DigitizerAlreadyOpen     Code = -25
	DigitizerNotReady        Code = -26
	InterruptNotConfigured   Code = -27
	DigitizerMemoryCorrupted Code = -28
	DPPFirmwareNotSupported  Code = -29
	InvalidLicense           Code = -30
	InvalidDigitizerStatus   Code = -31
	UnsupportedTrace         Code = -32
	InvalidProbe             Code = -33
	UnsupportedBaseAddress   Code = -34
	NotYetImplemented        Code = -99
)

var codeMessages = map[Code]string{
	Success:                  "Operation completed successfully",
	CommError:                "Communication error",
	GenericError:             "Unspecified error",
	InvalidParam:             "Invalid parameter",
	InvalidLinkType:          "Invalid link type",
	InvalidHandle:            "Invalid device handler",
	MaxDevicesError:          "Maximum number of devices exceeded",
	BadBoardType:             "Operation not allowed on this type of board",
	BadInterruptLev:          "The interrupt level is not allowed",
	BadEventNumber:           "The event number is bad",
	ReadDeviceRegisterFail:   "Unable to read the registry",
	WriteDeviceRegisterFail:  "Unable to write into the registry",
	InvalidChannelNumber:     "The channel number is invalid",
	ChannelBusy:              "The channel is busy",
	FPIOModeInvalid:          "Invalid FPIO mode",
	WrongAcqMode:             "Wrong acquisition mode",
	FunctionNotAllowed:       "This function is not allowed for this module",
	Timeout:                  "Communication timeout",
	InvalidBuffer:            "The buffer is invalid",
	EventNotFound:            "The event is not found",
	InvalidEvent:             "The event is invalid",
	OutOfMemory:              "Out of memory",
	CalibrationError:         "Unable to calibrate the board",
	DigitizerNotFound:        "Unable to open the digitizer",
	DigitizerAlreadyOpen:     "The digitizer is already open",
	DigitizerNotReady:        "The digitizer is not ready to operate",
	InterruptNotConfigured:   "The digitizer has not the IRQ configured",
	DigitizerMemoryCorrupted: "The digitizer flash memory is corrupted",
	DPPFirmwareNotSupported:  "The digitizer DPP firmware is not supported in this lib version",
	InvalidLicense:           "Invalid firmware license",
	InvalidDigitizerStatus:   "The digitizer is found in a corrupted status",
	UnsupportedTrace:         "The given trace is not supported by the digitizer",
	InvalidProbe:             "The given probe is not supported for the given digitizer's trace",
	UnsupportedBaseAddress:   "The base address is not supported, as in the case of DT and NIM devices",
	NotYetImplemented:        "The function is not yet implemented",
}

func (c Code) String() string {
	if msg, ok := codeMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// Error is a failure reported by the digitizer library.
type Error struct {
	Func string // name of the failing library function, if any
	Code Code
}

func (e Error) Error() string {
	if e.Func == "" {
		return e.Code.String()
	}
	return e.Func + ": " + e.Code.String()
}

// Is matches errors with the same code, whatever the function.
func (e Error) Is(target error) bool {
	t, ok := target.(Error)
	return ok && t.Code == e.Code && (t.Func == "" || t.Func == e.Func)
}

// Family is a digitizer family code.
type Family uint32

const (
	XX724 Family = 0
	XX721 Family = 1
	XX731 Family = 2
	XX720 Family = 3
	XX740 Family = 4
	XX751 Family = 5
	XX742 Family = 6
	XX780 Family = 7
	XX761 Family = 8
	XX743 Family = 9
	XX730 Family = 11
	XX790 Family = 12
	XX781 Family = 13
	XX725 Family = 14
	XX782 Family = 16
)

var familyNames = map[Family]string{
	XX724: "XX724",
	XX721: "XX721",
	XX731: "XX731",
	XX720: "XX720",
	XX740: "XX740",
	XX751: "XX751",
	XX742: "XX742",
	XX780: "XX780",
	XX761: "XX761",
	XX743: "XX743",
	XX730: "XX730",
	XX790: "XX790",
	XX781: "XX781",
	XX725: "XX725",
	XX782: "XX782",
}

func (f Family) Known() bool {
	_, ok := familyNames[f]
	return ok
}

func (f Family) String() string {
	if name, ok := familyNames[f]; ok {
		return name
	}
	return "unknown family code"
}

// Firmware is the code of the firmware loaded in the channel FPGAs.
type Firmware uint8

const (
	StandardFirmware Firmware = 0x00
	V1724DPPPHA      Firmware = 0x80
	V1720DPPCI       Firmware = 0x82
	V1720DPPPSD      Firmware = 0x83
	V1751DPPPSD      Firmware = 0x84
	V1751DPPZLE      Firmware = 0x85
	V1743DPPCI       Firmware = 0x86
	V1740DPPQDC      Firmware = 0x87
	V1730DPPPSD      Firmware = 0x88
	V1724DPPDAW      Firmware = 0x89
	V1730DPPPHA      Firmware = 0x8B
	V1730DPPZLE      Firmware = 0x8C
	V1730DPPDAW      Firmware = 0x8D
)

var firmwareNames = map[Firmware]string{
	StandardFirmware: "STANDARD_FW",
	V1724DPPPHA:      "V1724_DPP_PHA",
	V1720DPPCI:       "V1720_DPP_CI",
	V1720DPPPSD:      "V1720_DPP_PSD",
	V1751DPPPSD:      "V1751_DPP_PSD",
	V1751DPPZLE:      "V1751_DPP_ZLE",
	V1743DPPCI:       "V1743_DPP_CI",
	V1740DPPQDC:      "V1740_DPP_QDC",
	V1730DPPPSD:      "V1730_DPP_PSD",
	V1724DPPDAW:      "V1724_DPP_DAW",
	V1730DPPPHA:      "V1730_DPP_PHA",
	V1730DPPZLE:      "V1730_DPP_ZLE",
	V1730DPPDAW:      "V1730_DPP_DAW",
}

func (fw Firmware) String() string {
	if name, ok := firmwareNames[fw]; ok {
		return name
	}
	return "unknown firmware code"
}

// IsDPP reports whether fw is a digital pulse processing firmware.
func (fw Firmware) IsDPP() bool { return fw&0x80 != 0 }

// IsPSD reports whether fw is a pulse shape discrimination firmware.
func (fw Firmware) IsPSD() bool {
	switch fw {
	case V1720DPPPSD, V1730DPPPSD, V1751DPPPSD:
		return true
	}
	return false
}

// FormFactor is the mechanical form factor of a board.
type FormFactor uint32

const (
	VME64   FormFactor = 0
	VME64X  FormFactor = 1
	Desktop FormFactor = 2
	NIM     FormFactor = 3
)

func (ff FormFactor) String() string {
	switch ff {
	case VME64:
		return "VME64"
	case VME64X:
		return "VME64X"
	case Desktop:
		return "desktop"
	case NIM:
		return "NIM"
	}
	return fmt.Sprintf("FormFactor(%d)", uint32(ff))
}
