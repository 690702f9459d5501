// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package daq

import (
	"fmt"
	"io"

	"github.com/go-lpc/caen/digitizer"
	"github.com/go-lpc/caen/v1290"
	"github.com/go-lpc/caen/v1495"
	"github.com/go-lpc/caen/v792"
)

// DigitizerBufferSize is the number of words of a digitizer readout.
const DigitizerBufferSize = 1 << 18

// Source is a board polled by Run.
type Source struct {
	Name string
	Kind Kind
	Geo  uint8
	Size int // number of words of a readout buffer

	// Read fills buf with the pending data of the board and returns the
	// number of words read. Read returns 0 when no data is pending.
	Read func(buf []uint32) (int, error)
}

func (src Source) String() string {
	return fmt.Sprintf("%s (geo=%d)", src.Name, src.Geo)
}

// V792Source returns a source reading out adc.
func V792Source(adc *v792.V792) (Source, error) {
	geo, err := adc.GeoAddress()
	if err != nil {
		return Source{}, fmt.Errorf("daq: could not read V792 GEO address: %w", err)
	}
	return Source{
		Name: fmt.Sprintf("%v %v", adc.Model(), adc.Conn()),
		Kind: KindV792,
		Geo:  geo,
		Size: v792.BufferSize,
		Read: adc.ReadoutWords,
	}, nil
}

// V1290Source returns a source reading out tdc.
func V1290Source(tdc *v1290.V1290) (Source, error) {
	geo, err := tdc.GeoAddress()
	if err != nil {
		return Source{}, fmt.Errorf("daq: could not read V1290 GEO address: %w", err)
	}
	return Source{
		Name: fmt.Sprintf("%s %v", tdc.Kind(), tdc.Conn()),
		Kind: KindV1290,
		Geo:  geo,
		Size: v1290.BufferSize,
		Read: tdc.ReadoutWords,
	}, nil
}

// V1495Source returns a source reading out the user FPGA of brd.
func V1495Source(brd *v1495.V1495) (Source, error) {
	geo, err := brd.Geo()
	if err != nil {
		return Source{}, fmt.Errorf("daq: could not read V1495 GEO address: %w", err)
	}
	return Source{
		Name: fmt.Sprintf("%s %v", brd.Kind(), brd.Conn()),
		Kind: KindV1495,
		Geo:  geo,
		Size: v1495.BufferSize,
		Read: brd.Readout,
	}, nil
}

// DigitizerSource returns a source reading out dgtz.
func DigitizerSource(dgtz *digitizer.Digitizer) Source {
	return Source{
		Name: fmt.Sprintf("%s %v", dgtz.Info().ModelName, dgtz.Conn()),
		Kind: KindDigitizer,
		Size: DigitizerBufferSize,
		Read: dgtz.ReadData,
	}
}

// SourceOf returns the readout source of a board opened by one of the
// board packages. ok is false for boards without a readout buffer.
func SourceOf(dev io.Closer) (src Source, ok bool, err error) {
	switch dev := dev.(type) {
	case *v792.V792:
		src, err = V792Source(dev)
	case *v1290.V1290:
		src, err = V1290Source(dev)
	case *v1495.V1495:
		src, err = V1495Source(dev)
	case *digitizer.Digitizer:
		src = DigitizerSource(dev)
	default:
		return Source{}, false, nil
	}
	return src, err == nil, err
}
