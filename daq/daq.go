// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package daq reads out CAEN boards into raw files and assembles the
// events stored in them.
//
// A raw file is a sequence of blocks, one per board readout.
// Assemblers turn the packets of V792 and V1290 blocks back into events.
package daq // import "github.com/go-lpc/caen/daq"

// Stats counts the words an assembler did not turn into events.
type Stats struct {
	Events  int // completed events
	Fillers int // filler and invalid words
	Unknown int // words with an undocumented type code
	Orphans int // words outside of an event, or dropped with a truncated event
}
