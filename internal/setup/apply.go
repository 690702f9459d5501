// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package setup

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-lpc/caen/digitizer"
	"github.com/go-lpc/caen/hv"
	"github.com/go-lpc/caen/v1290"
	"github.com/go-lpc/caen/v1495"
	"github.com/go-lpc/caen/v792"
	"github.com/go-lpc/caen/v812"
)

// Open opens the board described by brd, with its driver.
// The returned value is one of *v792.V792, *v812.V812, *v1290.V1290,
// *v1495.V1495, *hv.Board or *digitizer.Digitizer.
func Open(brd Board) (io.Closer, error) {
	conn, err := brd.Conn.Connection()
	if err != nil {
		return nil, err
	}
	model, ok := modelOf(brd.Model)
	if !ok {
		return nil, fmt.Errorf("setup: unknown model %q", brd.Model)
	}

	switch model {
	case "V792":
		return closer(v792.Open(brd.Driver, conn))
	case "V812":
		return closer(v812.Open(brd.Driver, conn))
	case "V1290":
		return closer(v1290.Open(brd.Driver, conn))
	case "V1495":
		return closer(v1495.Open(brd.Driver, conn))
	case "V6533", "V6534":
		m, err := hv.ParseModel(model)
		if err != nil {
			return nil, err
		}
		return closer(hv.Open(brd.Driver, conn, m))
	case "Digitizer":
		return closer(digitizer.Open(brd.Driver, conn))
	}
	panic("setup: unhandled model " + model)
}

func closer[T io.Closer](dev T, err error) (io.Closer, error) {
	if err != nil {
		return nil, err
	}
	return dev, nil
}

// Configure opens the board described by brd and applies its settings.
func Configure(brd Board) error {
	dev, err := Open(brd)
	if err != nil {
		return fmt.Errorf("setup: could not open board %q: %w", brd.Name, err)
	}
	defer dev.Close()

	err = Apply(dev, brd)
	if err != nil {
		return fmt.Errorf("setup: could not configure board %q: %w", brd.Name, err)
	}

	err = dev.Close()
	if err != nil {
		return fmt.Errorf("setup: could not close board %q: %w", brd.Name, err)
	}
	return nil
}

// Apply applies the settings of brd to the opened board dev.
func Apply(dev io.Closer, brd Board) error {
	switch dev := dev.(type) {
	case *v792.V792:
		if brd.V792 != nil {
			return ApplyV792(dev, *brd.V792)
		}
	case *v812.V812:
		if brd.V812 != nil {
			return ApplyV812(dev, *brd.V812)
		}
	case *v1290.V1290:
		if brd.V1290 != nil {
			return ApplyV1290(dev, *brd.V1290)
		}
	case *hv.Board:
		return ApplyHV(dev, brd.HV)
	}
	return nil
}

// ApplyV792 programs the pedestal, thresholds and channels of adc.
func ApplyV792(adc *v792.V792, cfg V792) error {
	if cfg.Pedestal != nil {
		err := adc.SetCurrentPedestal(*cfg.Pedestal)
		if err != nil {
			return fmt.Errorf("could not set pedestal: %w", err)
		}
	}
	n := adc.Model().Channels()
	if len(cfg.Thresholds) > n {
		return fmt.Errorf("too many thresholds for a %v (%d > %d)", adc.Model(), len(cfg.Thresholds), n)
	}

	disabled := make(map[int]bool, len(cfg.Disabled))
	for _, ch := range cfg.Disabled {
		if ch < 0 || ch >= n {
			return fmt.Errorf("invalid disabled channel %d", ch)
		}
		disabled[ch] = true
	}
	for ch := 0; ch < n; ch++ {
		s, err := adc.ChannelSettings(ch)
		if err != nil {
			return fmt.Errorf("could not read channel %d settings: %w", ch, err)
		}
		if ch < len(cfg.Thresholds) {
			s.SetThreshold(cfg.Thresholds[ch])
		}
		s.SetDisabled(disabled[ch])
		err = adc.SetChannelSettings(ch, s)
		if err != nil {
			return fmt.Errorf("could not set channel %d settings: %w", ch, err)
		}
	}

	if cfg.FastClear > 0 {
		err := adc.SetFastClearWindow(cfg.FastClear)
		if err != nil {
			return fmt.Errorf("could not set fast clear window: %w", err)
		}
	}

	if cfg.UseThresholds != nil {
		err := adc.UpdateBitSet2(func(b *v792.BitSet2) {
			b.SetThresholdEnabled(*cfg.UseThresholds)
		})
		if err != nil {
			return fmt.Errorf("could not set threshold mode: %w", err)
		}
	}
	return nil
}

// ApplyV812 programs the thresholds, enabled channels, widths, dead times
// and majority of cfd.
func ApplyV812(cfd *v812.V812, cfg V812) error {
	for i, v := range cfg.Thresholds {
		err := cfd.SetThreshold(uint8(i), v)
		if err != nil {
			return fmt.Errorf("could not set threshold: %w", err)
		}
	}
	if cfg.Enabled != nil {
		err := cfd.EnableChannels(*cfg.Enabled)
		if err != nil {
			return fmt.Errorf("could not enable channels: %w", err)
		}
	}
	if cfg.Width != nil {
		err := cfd.SetOutputWidths(*cfg.Width)
		if err != nil {
			return fmt.Errorf("could not set output widths: %w", err)
		}
	}
	if cfg.DeadTime != nil {
		err := cfd.SetDeadTimes(*cfg.DeadTime)
		if err != nil {
			return fmt.Errorf("could not set dead times: %w", err)
		}
	}
	if cfg.Majority != nil {
		err := cfd.SetMajorityThreshold(*cfg.Majority)
		if err != nil {
			return fmt.Errorf("could not set majority: %w", err)
		}
	}
	return nil
}

// ApplyV1290 programs the match window, edge detection, channels and
// headers of tdc.
func ApplyV1290(tdc *v1290.V1290, cfg V1290) error {
	if cfg.Window > 0 {
		err := tdc.SetWindowWidth(cfg.Window)
		if err != nil {
			return fmt.Errorf("could not set window width: %w", err)
		}
		err = tdc.SetWindowOffset(cfg.Offset)
		if err != nil {
			return fmt.Errorf("could not set window offset: %w", err)
		}
	}
	if cfg.Edge != "" {
		var edge v1290.EdgeDetection
		switch strings.ToLower(cfg.Edge) {
		case "leading":
			edge = v1290.NewEdgeDetection(true, false)
		case "trailing":
			edge = v1290.NewEdgeDetection(false, true)
		case "both":
			edge = v1290.NewEdgeDetection(true, true)
		default:
			return fmt.Errorf("invalid edge detection %q", cfg.Edge)
		}
		err := tdc.SetEdgeDetection(edge)
		if err != nil {
			return fmt.Errorf("could not set edge detection: %w", err)
		}
	}
	if cfg.Channels != nil {
		err := tdc.EnableChannels(*cfg.Channels)
		if err != nil {
			return fmt.Errorf("could not enable channels: %w", err)
		}
	}
	if cfg.Headers != nil {
		err := tdc.SetHeaderAndTrailerEnabled(*cfg.Headers)
		if err != nil {
			return fmt.Errorf("could not set headers: %w", err)
		}
	}
	return nil
}

// ApplyHV programs the channels of brd.
// Ramps and trip times are only written when set.
func ApplyHV(brd *hv.Board, chans []HVChannel) error {
	for _, ch := range chans {
		err := applyHVChannel(brd, ch)
		if err != nil {
			return fmt.Errorf("could not configure hv channel %d: %w", ch.Channel, err)
		}
	}
	return nil
}

func applyHVChannel(brd *hv.Board, ch HVChannel) error {
	err := brd.SetVoltage(ch.Channel, ch.Voltage)
	if err != nil {
		return err
	}
	err = brd.SetCurrent(ch.Channel, ch.Current)
	if err != nil {
		return err
	}
	if ch.RampUp > 0 {
		err = brd.SetRampUp(ch.Channel, ch.RampUp)
		if err != nil {
			return err
		}
	}
	if ch.RampDown > 0 {
		err = brd.SetRampDown(ch.Channel, ch.RampDown)
		if err != nil {
			return err
		}
	}
	if ch.Trip > 0 {
		err = brd.SetTrip(ch.Channel, ch.Trip)
		if err != nil {
			return err
		}
	}
	return brd.SetPower(ch.Channel, ch.Power)
}
