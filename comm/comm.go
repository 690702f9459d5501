// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package comm provides register access to CAEN VME boards through a
// transport collaborator (the CAENComm library, a memory mapped VME window,
// a simulated register image, ...).
//
// Every operation is a blocking round-trip to the transport. A Device may
// be used from several goroutines only if the caller serializes access.
package comm // import "github.com/go-lpc/caen/comm"

import (
	"fmt"
	"sort"
	"sync"

	"github.com/go-lpc/caen"
)

// OUI is the CAEN organizationally unique identifier stored in board ROMs.
const OUI = 0x40E6

// Transport is the register access layer a Device talks through.
//
// Block reads fill buf from index 0 and return the number of 32-bit words
// transferred. An early termination reported by the board is returned as
// Error{Code: Terminated} together with the word count.
type Transport interface {
	Read16(addr uint32) (uint16, error)
	Read32(addr uint32) (uint32, error)
	Write16(addr uint32, v uint16) error
	Write32(addr uint32, v uint32) error

	BLTRead(addr uint32, buf []uint32) (int, error)
	MBLTRead(addr uint32, buf []uint32) (int, error)

	Close() error
}

// Driver opens transports to devices.
type Driver interface {
	Open(conn caen.Connection) (Transport, error)
}

var drivers = struct {
	sync.RWMutex
	m map[string]Driver
}{
	m: make(map[string]Driver),
}

// Register makes a driver available under the provided name.
// Register panics if called twice with the same name or if drv is nil.
func Register(name string, drv Driver) {
	drivers.Lock()
	defer drivers.Unlock()

	if drv == nil {
		panic("comm: register driver is nil")
	}
	if _, dup := drivers.m[name]; dup {
		panic("comm: register called twice for driver " + name)
	}
	drivers.m[name] = drv
}

// Drivers returns the sorted list of registered drivers.
func Drivers() []string {
	drivers.RLock()
	defer drivers.RUnlock()

	names := make([]string, 0, len(drivers.m))
	for name := range drivers.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func openTransport(driver string, conn caen.Connection) (Transport, error) {
	drivers.RLock()
	drv, ok := drivers.m[driver]
	drivers.RUnlock()

	if !ok {
		return nil, fmt.Errorf("comm: unknown driver %q (forgotten import?)", driver)
	}

	tr, err := drv.Open(conn)
	if err != nil {
		return nil, fmt.Errorf("comm: could not open %s with driver %q: %w", conn, driver, err)
	}
	return tr, nil
}
