// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package comm

// Seq runs a sequence of register accesses and remembers the first error.
// Once an access failed, the following ones are not issued and return 0.
type Seq struct {
	dev *Device
	err error
}

// Seq returns a new register access sequence on dev.
func (dev *Device) Seq() *Seq { return &Seq{dev: dev} }

// Err returns the first error of the sequence.
func (s *Seq) Err() error { return s.err }

func (s *Seq) Read16(addr uint32) uint16 {
	if s.err != nil {
		return 0
	}
	var v uint16
	v, s.err = s.dev.Read16(addr)
	return v
}

func (s *Seq) Read32(addr uint32) uint32 {
	if s.err != nil {
		return 0
	}
	var v uint32
	v, s.err = s.dev.Read32(addr)
	return v
}

func (s *Seq) ReadComposite(addr uint32, n int, stride uint32) uint32 {
	if s.err != nil {
		return 0
	}
	var v uint32
	v, s.err = s.dev.ReadComposite(addr, n, stride)
	return v
}

func (s *Seq) Write16(addr uint32, v uint16) {
	if s.err != nil {
		return
	}
	s.err = s.dev.Write16(addr, v)
}

func (s *Seq) Write32(addr uint32, v uint32) {
	if s.err != nil {
		return
	}
	s.err = s.dev.Write32(addr, v)
}
