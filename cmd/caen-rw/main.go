// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// caen-rw reads and writes registers of a CAEN VME module.
//
// Usage: caen-rw [OPTIONS] < registers
//
// Each input line should have the following syntax:
//
//	<access-mode>? <address> <value>?
//
// where <access-mode> is 'a' for 16 bits, 'A' for 32 bits or omitted for
// the default width, <address> is a 16-bit hexadecimal register address and
// <value> is written to the register, in decimal (optionally with a 0d
// prefix), hexadecimal (0x prefix) or binary (0b prefix).
// Without <value>, the register is printed as:
//
//	<address> <hexadecimal> <decimal> <binary>
//
// Bridge connections access the 8-bit addressed bridge registers.
package main // import "github.com/go-lpc/caen/cmd/caen-rw"

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/peterh/liner"

	"github.com/go-lpc/caen"
	"github.com/go-lpc/caen/comm"
	"github.com/go-lpc/caen/internal/xconn"
	"github.com/go-lpc/caen/vme"

	_ "github.com/go-lpc/caen/comm/sim"
)

func main() {
	log.SetPrefix("caen-rw: ")
	log.SetFlags(0)

	var (
		fs     = flag.NewFlagSet("caen-rw", flag.ExitOnError)
		cflags xconn.Flags
		driver = fs.String("driver", "", "comm or vme driver name (default: caencomm, or caenvme for bridges)")
	)
	cflags.Register(fs)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `caen-rw reads and writes registers of a CAEN VME module.

Usage: caen-rw [OPTIONS] < registers

Each input line should have the following syntax:
  <access-mode>? <address> <value>?

Options:
`)
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[1:])

	if list(os.Stdout, cflags) {
		return
	}

	cflags = cflags.WithEnv(os.Getenv)
	conn, err := cflags.Connection()
	if err != nil {
		log.Fatalf("%+v", err)
	}
	wide, err := cflags.Wide()
	if err != nil {
		log.Fatalf("%+v", err)
	}

	regs, err := connect(*driver, conn)
	if err != nil {
		log.Fatalf("could not connect to %v: %+v", conn, err)
	}
	defer regs.Close()

	in, done := input()
	defer done()

	process(in, os.Stdout, log.Default(), regs, wide)
}

// list prints the known bridges or conets when requested.
func list(w io.Writer, f xconn.Flags) bool {
	switch {
	case f.Bridge == xconn.List:
		for _, b := range caen.Bridges() {
			fmt.Fprintln(w, b)
		}
		return true
	case f.Conet == xconn.List:
		for _, c := range caen.Conets() {
			fmt.Fprintln(w, c)
		}
		return true
	}
	return false
}

type registers interface {
	read(addr uint16, wide bool) (uint32, error)
	write(addr uint16, v uint32, wide bool) error
	Close() error
}

func connect(driver string, conn caen.Connection) (registers, error) {
	if conn.IsBridge() {
		if driver == "" {
			driver = "caenvme"
		}
		br, err := vme.Open(driver, conn)
		if err != nil {
			return nil, err
		}
		return &bridge{br}, nil
	}

	if driver == "" {
		driver = "caencomm"
	}
	dev, err := comm.Open(driver, conn)
	if err != nil {
		return nil, err
	}
	return &device{dev}, nil
}

type device struct {
	dev *comm.Device
}

func (d *device) read(addr uint16, wide bool) (uint32, error) {
	if wide {
		return d.dev.Read32(uint32(addr))
	}
	v, err := d.dev.Read16(uint32(addr))
	return uint32(v), err
}

func (d *device) write(addr uint16, v uint32, wide bool) error {
	if wide {
		return d.dev.Write32(uint32(addr), v)
	}
	if v > 0xffff {
		return fmt.Errorf("value is too big for 16 bits: %d", v)
	}
	return d.dev.Write16(uint32(addr), uint16(v))
}

func (d *device) Close() error { return d.dev.Close() }

type bridge struct {
	br *vme.Bridge
}

func (b *bridge) read(addr uint16, wide bool) (uint32, error) {
	if addr > 0xff {
		return 0, fmt.Errorf("address is too big for 8 bits: %d", addr)
	}
	return b.br.ReadRegister(uint8(addr))
}

func (b *bridge) write(addr uint16, v uint32, wide bool) error {
	if addr > 0xff {
		return fmt.Errorf("address is too big for 8 bits: %d", addr)
	}
	return b.br.WriteRegister(uint8(addr), v)
}

func (b *bridge) Close() error { return b.br.Close() }

type prompter interface {
	Prompt(prompt string) (string, error)
}

// input returns the source of the command lines: an interactive prompt
// with history when stdin is a terminal, stdin otherwise.
func input() (prompter, func()) {
	fi, err := os.Stdin.Stat()
	if err != nil || fi.Mode()&os.ModeCharDevice == 0 || !liner.TerminalSupported() {
		return &scanner{bufio.NewScanner(os.Stdin)}, func() {}
	}

	term := liner.NewLiner()
	term.SetCtrlCAborts(true)

	fname := ""
	if home, err := os.UserHomeDir(); err == nil {
		fname = filepath.Join(home, ".caen-rw.history")
		if f, err := os.Open(fname); err == nil {
			_, _ = term.ReadHistory(f)
			f.Close()
		}
	}

	return &history{term}, func() {
		if fname != "" {
			if f, err := os.Create(fname); err == nil {
				_, _ = term.WriteHistory(f)
				f.Close()
			}
		}
		_ = term.Close()
		fmt.Println()
	}
}

type history struct {
	*liner.State
}

func (h *history) Prompt(prompt string) (string, error) {
	line, err := h.State.Prompt(prompt)
	if err != nil {
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", io.EOF
		}
		return "", err
	}
	if line != "" {
		h.AppendHistory(line)
	}
	return line, nil
}

type scanner struct {
	*bufio.Scanner
}

func (s *scanner) Prompt(string) (string, error) {
	if !s.Scan() {
		if err := s.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return s.Text(), nil
}

// process executes the register accesses read from in until its end.
// Errors are reported to msg and do not stop the processing.
func process(in prompter, w io.Writer, msg *log.Logger, regs registers, wide bool) {
	for {
		line, err := in.Prompt("> ")
		if err != nil {
			if !errors.Is(err, io.EOF) {
				msg.Printf("could not read input: %+v", err)
			}
			return
		}

		err = exec(w, regs, line, wide)
		if err != nil {
			msg.Printf("%v", err)
		}
	}
}

func exec(w io.Writer, regs registers, line string, wide bool) error {
	acc, ok, err := parseLine(line, wide)
	if err != nil || !ok {
		return err
	}

	if acc.write {
		return regs.write(acc.addr, acc.value, acc.wide)
	}

	v, err := regs.read(acc.addr, acc.wide)
	if err != nil {
		return err
	}
	if acc.wide {
		fmt.Fprintf(w, "%04x %08x %10d %032b\n", acc.addr, v, v, v)
	} else {
		fmt.Fprintf(w, "%04x %04x %5d %016b\n", acc.addr, v, v, v)
	}
	return nil
}
