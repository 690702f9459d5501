// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-lpc/caen/internal/setup"
)

func newConfigureCommand() *cobra.Command {
	var fname string
	cmd := &cobra.Command{
		Use:   "configure [board...]",
		Short: "Apply the settings of a setup file to its boards",
		Long:  `configure applies the settings of a setup file to its boards.

Without board names, all the boards of the setup are configured.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := setup.Load(fname)
			if err != nil {
				return err
			}
			brds, err := selectBoards(st, args)
			if err != nil {
				return err
			}
			for _, brd := range brds {
				err = setup.Configure(brd)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "configured board %q (%s)\n", brd.Name, brd.Model)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&fname, "file", "f", "setup.yaml", "path to the setup file")
	return cmd
}

func selectBoards(st *setup.Setup, names []string) ([]setup.Board, error) {
	if len(names) == 0 {
		return st.Boards, nil
	}
	brds := make([]setup.Board, 0, len(names))
loop:
	for _, name := range names {
		for _, brd := range st.Boards {
			if brd.Name == name {
				brds = append(brds, brd)
				continue loop
			}
		}
		return nil, fmt.Errorf("unknown board %q", name)
	}
	return brds, nil
}
