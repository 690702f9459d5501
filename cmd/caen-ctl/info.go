// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/go-lpc/caen"
	"github.com/go-lpc/caen/comm"
	"github.com/go-lpc/caen/vme"
)

func newInfoCommand(c *ctl) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Display informations about a connection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := c.connection()
			if err != nil {
				return err
			}
			return c.info(cmd.OutOrStdout(), conn)
		},
	}
	return cmd
}

func (c *ctl) info(w io.Writer, conn caen.Connection) error {
	version, _ := caen.Version()
	if version == "" {
		version = "(unknown)"
	}
	fmt.Fprintf(w, "library:    %s\n", version)
	fmt.Fprintf(w, "connection: %v\n", conn)

	if conn.IsBridge() {
		bt, err := vme.BoardTypeOf(conn)
		if err != nil {
			return err
		}
		br, err := vme.Open(c.driverOr("caenvme"), conn)
		if err != nil {
			return err
		}
		defer br.Close()

		fw, err := br.FirmwareRelease()
		if err != nil {
			return fmt.Errorf("could not read firmware release: %w", err)
		}
		fmt.Fprintf(w, "board type: %v\n", bt)
		fmt.Fprintf(w, "firmware:   %s\n", fw)
		return br.Close()
	}

	lt, err := comm.LinkOf(conn)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "link:       %v\n", lt)
	fmt.Fprintf(w, "base:       0x%08x\n", conn.BaseAddress())
	return nil
}
