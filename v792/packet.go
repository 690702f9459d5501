// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package v792

import (
	"fmt"

	"github.com/go-lpc/caen/bitfield"
)

// Type is the packet type code, stored in bits 24-26 of a word.
type Type uint8

const (
	TypeData       Type = 0b000
	TypeHeader     Type = 0b010
	TypeEndOfBlock Type = 0b100
	TypeInvalid    Type = 0b110
)

func (t Type) String() string {
	switch t {
	case TypeData:
		return "data"
	case TypeHeader:
		return "header"
	case TypeEndOfBlock:
		return "end-of-block"
	case TypeInvalid:
		return "invalid"
	default:
		return fmt.Sprintf("unknown(0b%03b)", uint8(t))
	}
}

// Known reports whether t is one of the documented type codes.
func (t Type) Known() bool {
	switch t {
	case TypeData, TypeHeader, TypeEndOfBlock, TypeInvalid:
		return true
	}
	return false
}

// Packet is a 32-bit word of the output buffer.
//
// The checked projections (Header, Data, ...) report whether the word has
// the matching type. A direct conversion, e.g. Header(p), reinterprets the
// word without any check.
type Packet uint32

// InvalidWord is the word the board returns when its output buffer holds
// no valid datum.
const InvalidWord = Packet(uint32(TypeInvalid) << 24)

func newPacket(t Type) Packet { return Packet(uint32(t) << 24) }

func (p Packet) bits(start, end uint) uint32 { return bitfield.Bits(uint32(p), start, end) }
func (p Packet) bit(i uint) bool             { return bitfield.Bit(uint32(p), i) }

func (p *Packet) setBits(start, end uint, v uint32) {
	*p = Packet(bitfield.SetBits(uint32(*p), start, end, v))
}

func (p *Packet) setBit(i uint, v bool) {
	*p = Packet(bitfield.SetBit(uint32(*p), i, v))
}

// Type returns the type code of the packet.
func (p Packet) Type() Type { return Type(p.bits(24, 26)) }

func (p Packet) Header() (Header, bool)         { return Header(p), p.Type() == TypeHeader }
func (p Packet) Data() (Data, bool)             { return Data(p), p.Type() == TypeData }
func (p Packet) NData() (NData, bool)           { return NData(p), p.Type() == TypeData }
func (p Packet) EndOfBlock() (EndOfBlock, bool) { return EndOfBlock(p), p.Type() == TypeEndOfBlock }

func (p Packet) String() string {
	switch p.Type() {
	case TypeHeader:
		return Header(p).String()
	case TypeData:
		return Data(p).String()
	case TypeEndOfBlock:
		return EndOfBlock(p).String()
	default:
		return fmt.Sprintf("%v(0x%08x)", p.Type(), uint32(p))
	}
}

// Header opens an event.
type Header Packet

func NewHeader(count, crate, geo uint8) Header {
	p := newPacket(TypeHeader)
	p.setBits(8, 13, uint32(count))
	p.setBits(16, 23, uint32(crate))
	p.setBits(27, 31, uint32(geo))
	return Header(p)
}

// Count is the number of data words of the event.
func (h Header) Count() uint8 { return uint8(Packet(h).bits(8, 13)) }
func (h Header) Crate() uint8 { return uint8(Packet(h).bits(16, 23)) }
func (h Header) Geo() uint8   { return uint8(Packet(h).bits(27, 31)) }

func (h Header) String() string {
	return fmt.Sprintf("header{count=%d, crate=%d, geo=%d}", h.Count(), h.Crate(), h.Geo())
}

// Data is a converted channel of a V792A board.
// Use NData for V792N boards: the channel field is one bit narrower.
type Data Packet

func NewData(value uint16, overflow, underflow bool, channel, geo uint8) Data {
	p := newPacket(TypeData)
	p.setBits(0, 11, uint32(value))
	p.setBit(12, overflow)
	p.setBit(13, underflow)
	p.setBits(16, 20, uint32(channel))
	p.setBits(27, 31, uint32(geo))
	return Data(p)
}

func (d Data) Value() uint16   { return uint16(Packet(d).bits(0, 11)) }
func (d Data) Overflow() bool  { return Packet(d).bit(12) }
func (d Data) Underflow() bool { return Packet(d).bit(13) }
func (d Data) Channel() uint8  { return uint8(Packet(d).bits(16, 20)) }
func (d Data) Geo() uint8      { return uint8(Packet(d).bits(27, 31)) }

func (d Data) String() string {
	return fmt.Sprintf(
		"data{channel=%d, value=%d, ov=%v, un=%v, geo=%d}",
		d.Channel(), d.Value(), d.Overflow(), d.Underflow(), d.Geo(),
	)
}

// NData is a converted channel of a V792N board.
type NData Packet

func NewNData(value uint16, overflow, underflow bool, channel, geo uint8) NData {
	p := newPacket(TypeData)
	p.setBits(0, 11, uint32(value))
	p.setBit(12, overflow)
	p.setBit(13, underflow)
	p.setBits(17, 20, uint32(channel))
	p.setBits(27, 31, uint32(geo))
	return NData(p)
}

func (d NData) Value() uint16   { return uint16(Packet(d).bits(0, 11)) }
func (d NData) Overflow() bool  { return Packet(d).bit(12) }
func (d NData) Underflow() bool { return Packet(d).bit(13) }
func (d NData) Channel() uint8  { return uint8(Packet(d).bits(17, 20)) }
func (d NData) Geo() uint8      { return uint8(Packet(d).bits(27, 31)) }

func (d NData) String() string {
	return fmt.Sprintf(
		"ndata{channel=%d, value=%d, ov=%v, un=%v, geo=%d}",
		d.Channel(), d.Value(), d.Overflow(), d.Underflow(), d.Geo(),
	)
}

// EndOfBlock closes an event.
type EndOfBlock Packet

func NewEndOfBlock(event uint32, geo uint8) EndOfBlock {
	p := newPacket(TypeEndOfBlock)
	p.setBits(0, 23, event)
	p.setBits(27, 31, uint32(geo))
	return EndOfBlock(p)
}

// Event is the event counter value.
func (e EndOfBlock) Event() uint32 { return Packet(e).bits(0, 23) }
func (e EndOfBlock) Geo() uint8    { return uint8(Packet(e).bits(27, 31)) }

func (e EndOfBlock) String() string {
	return fmt.Sprintf("eob{event=%d, geo=%d}", e.Event(), e.Geo())
}
