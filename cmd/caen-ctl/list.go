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

var listers = map[string]func(w io.Writer){
	"bridges": func(w io.Writer) {
		for _, b := range caen.Bridges() {
			fmt.Fprintln(w, b)
		}
	},
	"conets": func(w io.Writer) {
		for _, c := range caen.Conets() {
			fmt.Fprintln(w, c)
		}
	},
	"links": func(w io.Writer) {
		for _, lt := range comm.Links() {
			fmt.Fprintf(w, "%-16s %v\n", lt.Name(), lt)
		}
	},
	"devices": func(w io.Writer) {
		for _, dev := range caen.DeviceDB {
			kind := "board"
			if dev.IsBridge {
				kind = "bridge"
			}
			fmt.Fprintf(w, "%-8s %s\n", dev.Name, kind)
		}
	},
	"drivers": func(w io.Writer) {
		for _, name := range comm.Drivers() {
			fmt.Fprintf(w, "comm %s\n", name)
		}
		for _, name := range vme.Drivers() {
			fmt.Fprintf(w, "vme  %s\n", name)
		}
	},
}

func newListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "list bridges|conets|links|devices|drivers",
		Short:     "List the known bridges, conets, links, devices or drivers",
		ValidArgs: []string{"bridges", "conets", "links", "devices", "drivers"},
		Args:      cobra.ExactValidArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			listers[args[0]](cmd.OutOrStdout())
			return nil
		},
	}
	return cmd
}
