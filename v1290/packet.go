// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package v1290

import (
	"fmt"

	"github.com/go-lpc/caen/bitfield"
)

// Type is the packet type code, stored in bits 27-31 of a word.
type Type uint8

const (
	TypeGlobalHeader  Type = 0b01000
	TypeTDCHeader     Type = 0b00001
	TypeMeasurement   Type = 0b00000
	TypeTDCTrailer    Type = 0b00011
	TypeTDCError      Type = 0b00100
	TypeGlobalTrailer Type = 0b10000
	TypeETTT          Type = 0b10001
	TypeFiller        Type = 0b11000
)

func (t Type) String() string {
	switch t {
	case TypeGlobalHeader:
		return "global-header"
	case TypeTDCHeader:
		return "tdc-header"
	case TypeMeasurement:
		return "measurement"
	case TypeTDCTrailer:
		return "tdc-trailer"
	case TypeTDCError:
		return "tdc-error"
	case TypeGlobalTrailer:
		return "global-trailer"
	case TypeETTT:
		return "ettt"
	case TypeFiller:
		return "filler"
	default:
		return fmt.Sprintf("unknown(0b%05b)", uint8(t))
	}
}

// Known reports whether t is one of the documented type codes.
func (t Type) Known() bool {
	switch t {
	case TypeGlobalHeader, TypeTDCHeader, TypeMeasurement, TypeTDCTrailer,
		TypeTDCError, TypeGlobalTrailer, TypeETTT, TypeFiller:
		return true
	}
	return false
}

// Packet is a 32-bit word of the output buffer.
//
// The checked projections (GlobalHeader, Measurement, ...) report whether
// the word has the matching type. A direct conversion, e.g.
// Measurement(p), reinterprets the word without any check.
type Packet uint32

// Filler is the word the board emits when a block transfer outlasts the
// data and bus errors are disabled.
const Filler Packet = 0xC0000000

func newPacket(t Type) Packet { return Packet(uint32(t) << 27) }

func (p Packet) bits(start, end uint) uint32 { return bitfield.Bits(uint32(p), start, end) }
func (p Packet) bit(i uint) bool             { return bitfield.Bit(uint32(p), i) }

func (p *Packet) setBits(start, end uint, v uint32) {
	*p = Packet(bitfield.SetBits(uint32(*p), start, end, v))
}

func (p *Packet) setBit(i uint, v bool) {
	*p = Packet(bitfield.SetBit(uint32(*p), i, v))
}

// Type returns the type code of the packet.
func (p Packet) Type() Type { return Type(p.bits(27, 31)) }

func (p Packet) IsFiller() bool { return p.Type() == TypeFiller }

func (p Packet) GlobalHeader() (GlobalHeader, bool) {
	return GlobalHeader(p), p.Type() == TypeGlobalHeader
}

func (p Packet) TDCHeader() (TDCHeader, bool) {
	return TDCHeader(p), p.Type() == TypeTDCHeader
}

func (p Packet) Measurement() (Measurement, bool) {
	return Measurement(p), p.Type() == TypeMeasurement
}

func (p Packet) TDCTrailer() (TDCTrailer, bool) {
	return TDCTrailer(p), p.Type() == TypeTDCTrailer
}

func (p Packet) TDCError() (TDCError, bool) {
	return TDCError(p), p.Type() == TypeTDCError
}

func (p Packet) GlobalTrailer() (GlobalTrailer, bool) {
	return GlobalTrailer(p), p.Type() == TypeGlobalTrailer
}

func (p Packet) ETTT() (ETTT, bool) {
	return ETTT(p), p.Type() == TypeETTT
}

func (p Packet) String() string {
	switch p.Type() {
	case TypeGlobalHeader:
		return GlobalHeader(p).String()
	case TypeTDCHeader:
		return TDCHeader(p).String()
	case TypeMeasurement:
		return Measurement(p).String()
	case TypeTDCTrailer:
		return TDCTrailer(p).String()
	case TypeTDCError:
		return TDCError(p).String()
	case TypeGlobalTrailer:
		return GlobalTrailer(p).String()
	case TypeETTT:
		return ETTT(p).String()
	default:
		return fmt.Sprintf("%v(0x%08x)", p.Type(), uint32(p))
	}
}

// GlobalHeader opens an event.
type GlobalHeader Packet

func NewGlobalHeader(geo uint8, event uint32) GlobalHeader {
	p := newPacket(TypeGlobalHeader)
	p.setBits(0, 4, uint32(geo))
	p.setBits(5, 26, event)
	return GlobalHeader(p)
}

func (h GlobalHeader) Geo() uint8 { return uint8(Packet(h).bits(0, 4)) }

// Event is the event counter value.
func (h GlobalHeader) Event() uint32 { return Packet(h).bits(5, 26) }

func (h GlobalHeader) String() string {
	return fmt.Sprintf("global-header{geo=%d, event=%d}", h.Geo(), h.Event())
}

// TDCHeader opens the data of one TDC chip.
type TDCHeader Packet

func NewTDCHeader(bunch, event uint16, tdc uint8) TDCHeader {
	p := newPacket(TypeTDCHeader)
	p.setBits(0, 11, uint32(bunch))
	p.setBits(12, 23, uint32(event))
	p.setBits(24, 25, uint32(tdc))
	return TDCHeader(p)
}

// Bunch is the bunch ID, the trigger time tag of the chip.
func (h TDCHeader) Bunch() uint16 { return uint16(Packet(h).bits(0, 11)) }
func (h TDCHeader) Event() uint16 { return uint16(Packet(h).bits(12, 23)) }
func (h TDCHeader) TDC() uint8    { return uint8(Packet(h).bits(24, 25)) }

func (h TDCHeader) String() string {
	return fmt.Sprintf("tdc-header{tdc=%d, event=%d, bunch=%d}", h.TDC(), h.Event(), h.Bunch())
}

// Measurement is a hit time of a channel, in resolution units.
type Measurement Packet

func NewMeasurement(value uint32, channel uint8, trailing bool) Measurement {
	p := newPacket(TypeMeasurement)
	p.setBits(0, 20, value)
	p.setBits(21, 25, uint32(channel))
	p.setBit(26, trailing)
	return Measurement(p)
}

func (m Measurement) Value() uint32  { return Packet(m).bits(0, 20) }
func (m Measurement) Channel() uint8 { return uint8(Packet(m).bits(21, 25)) }
func (m Measurement) Trailing() bool { return Packet(m).bit(26) }

func (m Measurement) String() string {
	return fmt.Sprintf("measurement{channel=%d, value=%d, trailing=%v}", m.Channel(), m.Value(), m.Trailing())
}

// TDCTrailer closes the data of one TDC chip.
type TDCTrailer Packet

func NewTDCTrailer(nwords, event uint16, tdc uint8) TDCTrailer {
	p := newPacket(TypeTDCTrailer)
	p.setBits(0, 11, uint32(nwords))
	p.setBits(12, 23, uint32(event))
	p.setBits(24, 25, uint32(tdc))
	return TDCTrailer(p)
}

// NWords is the number of words of the chip data, header and trailer
// included.
func (t TDCTrailer) NWords() uint16 { return uint16(Packet(t).bits(0, 11)) }
func (t TDCTrailer) Event() uint16  { return uint16(Packet(t).bits(12, 23)) }
func (t TDCTrailer) TDC() uint8     { return uint8(Packet(t).bits(24, 25)) }

func (t TDCTrailer) String() string {
	return fmt.Sprintf("tdc-trailer{tdc=%d, event=%d, nwords=%d}", t.TDC(), t.Event(), t.NWords())
}

// TDCError reports the internal errors of a TDC chip.
type TDCError Packet

func NewTDCError(errs InternalErrors, tdc uint8) TDCError {
	p := newPacket(TypeTDCError)
	p.setBits(0, 14, uint32(errs))
	p.setBits(24, 25, uint32(tdc))
	return TDCError(p)
}

func (e TDCError) Errors() InternalErrors { return InternalErrors(Packet(e).bits(0, 14)) }
func (e TDCError) TDC() uint8             { return uint8(Packet(e).bits(24, 25)) }

func (e TDCError) String() string {
	return fmt.Sprintf("tdc-error{tdc=%d, errors=0x%04x}", e.TDC(), uint16(e.Errors()))
}

// GlobalTrailer closes an event.
type GlobalTrailer Packet

func NewGlobalTrailer(geo uint8, nwords uint16, errs, overflow, triggerLost bool) GlobalTrailer {
	p := newPacket(TypeGlobalTrailer)
	p.setBits(0, 4, uint32(geo))
	p.setBits(5, 20, uint32(nwords))
	p.setBit(24, errs)
	p.setBit(25, overflow)
	p.setBit(26, triggerLost)
	return GlobalTrailer(p)
}

// Geo is the GEO address, or the low bits of the extended trigger time tag
// when the latter is enabled.
func (t GlobalTrailer) Geo() uint8 { return uint8(Packet(t).bits(0, 4)) }

// NWords is the number of words of the event, global header and trailer
// included.
func (t GlobalTrailer) NWords() uint16    { return uint16(Packet(t).bits(5, 20)) }
func (t GlobalTrailer) Errors() bool      { return Packet(t).bit(24) }
func (t GlobalTrailer) Overflow() bool    { return Packet(t).bit(25) }
func (t GlobalTrailer) TriggerLost() bool { return Packet(t).bit(26) }

func (t GlobalTrailer) String() string {
	return fmt.Sprintf(
		"global-trailer{geo=%d, nwords=%d, errors=%v, overflow=%v, trigger-lost=%v}",
		t.Geo(), t.NWords(), t.Errors(), t.Overflow(), t.TriggerLost(),
	)
}

// ETTT is the extended trigger time tag of an event.
type ETTT Packet

func NewETTT(value uint32) ETTT {
	p := newPacket(TypeETTT)
	p.setBits(0, 26, value)
	return ETTT(p)
}

func (e ETTT) Value() uint32 { return Packet(e).bits(0, 26) }

func (e ETTT) String() string {
	return fmt.Sprintf("ettt{value=%d}", e.Value())
}
