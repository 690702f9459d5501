// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package daq

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-lpc/caen/internal/crc16"
)

// Magic starts every block of a raw file.
const Magic uint32 = 0xCAE0B10C

// Version is the version of the block layout.
const Version = 1

const hdrSize = 4 + 1 + 1 + 1 + 1 + 4 + 8 + 4 // magic, version, kind, geo, pad, seq, time, nwords

// MaxWords is the largest number of words a block may carry.
const MaxWords = 1 << 20

// ErrChecksum is returned when a block does not match its checksum.
var ErrChecksum = errors.New("daq: invalid block checksum")

// Kind identifies the board a block was read from.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindV792
	KindV1290
	KindV1495
	KindDigitizer
)

var kindNames = [...]string{
	KindUnknown:   "unknown",
	KindV792:      "V792",
	KindV1290:     "V1290",
	KindV1495:     "V1495",
	KindDigitizer: "Digitizer",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// ParseKind returns the kind with the given (case insensitive) name.
func ParseKind(name string) (Kind, error) {
	for i, v := range kindNames[1:] {
		if strings.EqualFold(v, name) {
			return Kind(i + 1), nil
		}
	}
	return KindUnknown, fmt.Errorf("daq: unknown board kind %q", name)
}

// Block is the content of one readout of one board.
type Block struct {
	Kind  Kind
	Geo   uint8
	Seq   uint32 // readout sequence number of the board
	Time  int64  // readout time, in ns since the epoch
	Words []uint32
}

// Encoder writes blocks to an output stream.
//
// A block is stored little-endian: magic, version, kind, geo, padding,
// sequence number, time, number of words, words and a CRC-16 of
// everything after the magic.
type Encoder struct {
	w   io.Writer
	buf []byte
	err error
	crc crc16.Hash16
}

// NewEncoder returns a new Encoder that writes to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{
		w:   w,
		buf: make([]byte, hdrSize),
		crc: crc16.New(nil),
	}
}

// Encode writes blk to the stream, with a single call to Write.
func (enc *Encoder) Encode(blk Block) error {
	if enc.err != nil {
		return enc.err
	}
	if len(blk.Words) > MaxWords {
		return fmt.Errorf("daq: block too large (%d words)", len(blk.Words))
	}

	n := hdrSize + 4*len(blk.Words)
	if cap(enc.buf) < n+crc16.Size {
		enc.buf = make([]byte, n+crc16.Size)
	}
	p := enc.buf[:n+crc16.Size]

	binary.LittleEndian.PutUint32(p[0:], Magic)
	p[4] = Version
	p[5] = byte(blk.Kind)
	p[6] = blk.Geo
	p[7] = 0
	binary.LittleEndian.PutUint32(p[8:], blk.Seq)
	binary.LittleEndian.PutUint64(p[12:], uint64(blk.Time))
	binary.LittleEndian.PutUint32(p[20:], uint32(len(blk.Words)))
	for i, w := range blk.Words {
		binary.LittleEndian.PutUint32(p[hdrSize+4*i:], w)
	}

	enc.crc.Reset()
	_, _ = enc.crc.Write(p[4:n]) // can not fail.
	binary.LittleEndian.PutUint16(p[n:], enc.crc.Sum16())

	_, enc.err = enc.w.Write(p)
	if enc.err != nil {
		return fmt.Errorf("daq: could not write block: %w", enc.err)
	}
	return nil
}

// PeekKind returns the board kind of the encoded block starting p.
func PeekKind(p []byte) (Kind, bool) {
	if len(p) < hdrSize || binary.LittleEndian.Uint32(p) != Magic {
		return KindUnknown, false
	}
	return Kind(p[5]), true
}

// Decoder reads and validates blocks from an input stream.
type Decoder struct {
	r   io.Reader
	buf []byte
	crc crc16.Hash16
}

// NewDecoder returns a new Decoder that reads from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		r:   r,
		buf: make([]byte, hdrSize),
		crc: crc16.New(nil),
	}
}

// Decode reads the next block into blk, reusing its Words slice.
// Decode returns io.EOF at the clean end of the stream.
func (dec *Decoder) Decode(blk *Block) error {
	hdr := dec.buf[:hdrSize]
	_, err := io.ReadFull(dec.r, hdr)
	switch {
	case err == io.EOF:
		return io.EOF
	case err != nil:
		return fmt.Errorf("daq: could not read block header: %w", err)
	}

	if v := binary.LittleEndian.Uint32(hdr); v != Magic {
		return fmt.Errorf("daq: invalid block magic 0x%08x", v)
	}
	if v := hdr[4]; v != Version {
		return fmt.Errorf("daq: invalid block version %d", v)
	}
	nw := binary.LittleEndian.Uint32(hdr[20:])
	if nw > MaxWords {
		return fmt.Errorf("daq: block too large (%d words)", nw)
	}

	n := hdrSize + 4*int(nw)
	if cap(dec.buf) < n+crc16.Size {
		buf := make([]byte, n+crc16.Size)
		copy(buf, hdr)
		dec.buf = buf
	}
	p := dec.buf[:n+crc16.Size]
	_, err = io.ReadFull(dec.r, p[hdrSize:])
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return fmt.Errorf("daq: could not read block payload: %w", err)
	}

	dec.crc.Reset()
	_, _ = dec.crc.Write(p[4:n])
	if got, want := binary.LittleEndian.Uint16(p[n:]), dec.crc.Sum16(); got != want {
		return fmt.Errorf("%w (got=0x%04x, want=0x%04x)", ErrChecksum, got, want)
	}

	blk.Kind = Kind(p[5])
	blk.Geo = p[6]
	blk.Seq = binary.LittleEndian.Uint32(p[8:])
	blk.Time = int64(binary.LittleEndian.Uint64(p[12:]))
	if cap(blk.Words) < int(nw) {
		blk.Words = make([]uint32, nw)
	}
	blk.Words = blk.Words[:nw]
	for i := range blk.Words {
		blk.Words[i] = binary.LittleEndian.Uint32(p[hdrSize+4*i:])
	}
	return nil
}
