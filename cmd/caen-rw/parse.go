// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"strings"
)

// access is a register access request.
type access struct {
	wide  bool // 32-bit access
	addr  uint16
	value uint32
	write bool
}

// parseLine parses a line of the form:
//
//	<access-mode>? <address> <value>?
//
// A leading 'a' or 'A' is always an access mode: addresses starting with
// these digits need the 0x prefix. ok is false for blank lines.
func parseLine(line string, wide bool) (acc access, ok bool, err error) {
	s := strings.TrimSpace(line)
	if s == "" {
		return acc, false, nil
	}

	acc.wide = wide
	switch s[0] {
	case 'a':
		acc.wide = false
		s = s[1:]
	case 'A':
		acc.wide = true
		s = s[1:]
	}

	fields := strings.Fields(s)
	switch len(fields) {
	case 0:
		return acc, false, fmt.Errorf("%s: expected address", line)
	case 1, 2:
	default:
		return acc, false, fmt.Errorf("%s: unexpected trailing data", line)
	}

	acc.addr, err = parseAddress(fields[0])
	if err != nil {
		return acc, false, fmt.Errorf("%s: %w", line, err)
	}
	if len(fields) == 1 {
		return acc, true, nil
	}

	acc.value, err = parseValue(fields[1])
	if err != nil {
		return acc, false, fmt.Errorf("%s: %w", line, err)
	}
	acc.write = true
	return acc, true, nil
}

// parseAddress parses a hexadecimal address of at most 4 significant
// digits, with an optional 0x prefix.
func parseAddress(s string) (uint16, error) {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return 0, fmt.Errorf("expected address")
	}
	s = strings.TrimLeft(s, "0")

	var addr uint16
	for i, c := range s {
		d, ok := digit(c)
		if !ok || d >= 16 {
			return 0, fmt.Errorf("invalid address")
		}
		if i >= 4 {
			return 0, fmt.Errorf("address is too large")
		}
		addr = addr<<4 | uint16(d)
	}
	return addr, nil
}

// parseValue parses a decimal value, optionally prefixed with 0d, or a
// value prefixed with 0x (hexadecimal) or 0b (binary).
func parseValue(s string) (uint32, error) {
	base := uint64(10)
	if len(s) > 1 && s[0] == '0' {
		switch s[1] {
		case 'b':
			base = 2
			s = s[2:]
		case 'd':
			s = s[2:]
		case 'x':
			base = 16
			s = s[2:]
		}
	}
	if s == "" {
		return 0, fmt.Errorf("expected value")
	}

	var v uint64
	for _, c := range s {
		d, ok := digit(c)
		if !ok || uint64(d) >= base {
			return 0, fmt.Errorf("invalid value")
		}
		v = v*base + uint64(d)
		if v > 0xffffffff {
			return 0, fmt.Errorf("invalid value")
		}
	}
	return uint32(v), nil
}

func digit(c rune) (uint8, bool) {
	switch {
	case '0' <= c && c <= '9':
		return uint8(c - '0'), true
	case 'a' <= c && c <= 'z':
		return uint8(c-'a') + 10, true
	case 'A' <= c && c <= 'Z':
		return uint8(c-'A') + 10, true
	}
	return 0, false
}
