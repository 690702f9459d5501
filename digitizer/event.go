// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package digitizer

import (
	"errors"
	"fmt"

	"github.com/go-lpc/caen/bitfield"
)

// HeaderSize is the number of words of an event header.
const HeaderSize = 4

const headerTag = 0xA

var ErrNoEvent = errors.New("digitizer: no event")

// EventHeader is the header of an event of the output buffer.
type EventHeader [HeaderSize]uint32

// Valid reports whether the header starts with the event tag.
func (h EventHeader) Valid() bool { return bitfield.Bits(h[0], 28, 31) == headerTag }

// Size returns the event size in words, header included.
func (h EventHeader) Size() int { return int(bitfield.Bits(h[0], 0, 27)) }

func (h EventHeader) BoardID() uint8  { return uint8(bitfield.Bits(h[1], 27, 31)) }
func (h EventHeader) BoardFail() bool { return bitfield.Bit(h[1], 26) }
func (h EventHeader) Pattern() uint16 { return uint16(bitfield.Bits(h[1], 8, 23)) }
func (h EventHeader) Counter() uint32 { return bitfield.Bits(h[2], 0, 23) }
func (h EventHeader) TimeTag() uint32 { return h[3] }

// ChannelMask returns the mask of the channels present in the event.
// 16 channel boards carry the upper 8 bits in the third word.
func (h EventHeader) ChannelMask() uint16 {
	return uint16(bitfield.Bits(h[1], 0, 7)) | uint16(bitfield.Bits(h[2], 24, 31))<<8
}

func (h EventHeader) String() string {
	return fmt.Sprintf(
		"event{size=%d, board=%d, fail=%v, mask=0x%04x, counter=%d, ttt=%d}",
		h.Size(), h.BoardID(), h.BoardFail(), h.ChannelMask(), h.Counter(), h.TimeTag(),
	)
}

// Event is an event of the output buffer.
// Data aliases the buffer the event was read from.
type Event struct {
	Header EventHeader
	Data   []uint32
}

// NextEvent decodes the first event of buf and returns it together with
// the remaining words. It returns ErrNoEvent when buf is empty.
func NextEvent(buf []uint32) (Event, []uint32, error) {
	if len(buf) == 0 {
		return Event{}, buf, ErrNoEvent
	}
	if len(buf) < HeaderSize {
		return Event{}, buf, fmt.Errorf("digitizer: short event header (%d words)", len(buf))
	}
	var evt Event
	copy(evt.Header[:], buf)
	if !evt.Header.Valid() {
		return Event{}, buf, fmt.Errorf("digitizer: invalid event header 0x%08x", buf[0])
	}
	n := evt.Header.Size()
	switch {
	case n < HeaderSize:
		return Event{}, buf, fmt.Errorf("digitizer: invalid event size %d", n)
	case n > len(buf):
		return Event{}, buf, fmt.Errorf("digitizer: truncated event (size=%d, words=%d)", n, len(buf))
	}
	evt.Data = buf[HeaderSize:n:n]
	return evt, buf[n:], nil
}

// Events decodes all the events of buf.
func Events(buf []uint32) ([]Event, error) {
	var evts []Event
	for len(buf) > 0 {
		var (
			evt Event
			err error
		)
		evt, buf, err = NextEvent(buf)
		if err != nil {
			return evts, err
		}
		evts = append(evts, evt)
	}
	return evts, nil
}
