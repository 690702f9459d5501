// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/go-lpc/caen/hv"
)

func newHVCommand(c *ctl) *cobra.Command {
	var (
		model  string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "hv",
		Short: "Display the channels of a V6533/V6534 power supply",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := hv.ParseModel(model)
			if err != nil {
				return err
			}
			conn, err := c.connection()
			if err != nil {
				return err
			}
			brd, err := c.openHV(c.driverOr("caencomm"), conn, m)
			if err != nil {
				return fmt.Errorf("could not open %v at %v: %w", m, conn, err)
			}
			defer brd.Close()

			rs, err := brd.ReadAll()
			if err != nil {
				return fmt.Errorf("could not read channels: %w", err)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				err = enc.Encode(rs)
			} else {
				err = printReadings(cmd.OutOrStdout(), rs)
			}
			if err != nil {
				return err
			}
			return brd.Close()
		},
	}
	cmd.Flags().StringVar(&model, "model", "V6533", "power supply model (V6533 or V6534)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "display the readings as JSON")
	return cmd
}

func printReadings(w io.Writer, rs []hv.Reading) error {
	tw := tabwriter.NewWriter(w, 0, 8, 1, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "ch\tpower\tvset[V]\tvmon[V]\tiset[uA]\timon[uA]\ttemp[C]\tstatus\t\n")
	for _, r := range rs {
		power := "off"
		if r.Power {
			power = "on"
		}
		fmt.Fprintf(
			tw, "%d\t%s\t%.1f\t%.1f\t%.2f\t%.2f\t%d\t%v\t\n",
			r.Channel, power, r.VSet, r.Voltage,
			r.ISet*1e6, r.Current*1e6, r.Temperature, r.Status,
		)
	}
	return tw.Flush()
}
