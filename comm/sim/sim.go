// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sim provides an in-memory board image usable as a comm transport
// and as a vme controller.
//
// Registers hold 32-bit values. Read16 and 16-bit cycles return the low
// 16 bits of a register. Values queued with Push are returned, first in
// first out, before the stored register value, and feed block transfers.
package sim // import "github.com/go-lpc/caen/comm/sim"

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-lpc/caen"
	"github.com/go-lpc/caen/comm"
	"github.com/go-lpc/caen/vme"
)

// ErrClosed is returned by operations on a closed device.
var ErrClosed = errors.New("sim: device closed")

// Access is a register access recorded by a Device.
type Access struct {
	Write bool
	Width int // in bits
	Addr  uint32
	Value uint32
}

func (a Access) String() string {
	op := "r"
	if a.Write {
		op = "w"
	}
	return fmt.Sprintf("%s%d 0x%x=0x%x", op, a.Width, a.Addr, a.Value)
}

// Device is a simulated board, or bridge, register image.
//
// Read hooks replace the value returned for an address. Write hooks run
// after the written value was stored. Hooks run without the device lock
// held and may call back into the device.
type Device struct {
	mu     sync.Mutex
	conn   caen.Connection
	regs   map[uint32]uint32
	bregs  map[uint8]uint32
	fifos  map[uint32][]uint32
	rhooks map[uint32]func(addr uint32) uint32
	whooks map[uint32]func(addr, v uint32)
	fails  map[uint32]error
	log    []Access
	closes int
	resets int
	closed bool
	store  *store

	// Firmware is the firmware release reported to vme clients.
	Firmware string
}

// New returns a new simulated device reached through conn.
func New(conn caen.Connection) *Device {
	return &Device{
		conn:     conn,
		regs:     make(map[uint32]uint32),
		bregs:    make(map[uint8]uint32),
		fifos:    make(map[uint32][]uint32),
		rhooks:   make(map[uint32]func(uint32) uint32),
		whooks:   make(map[uint32]func(uint32, uint32)),
		fails:    make(map[uint32]error),
		Firmware: "0.0",
	}
}

// Conn returns the connection the device simulates.
func (d *Device) Conn() caen.Connection { return d.conn }

// Set stores v at addr without recording an access.
func (d *Device) Set(addr, v uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.regs[addr] = v
}

// Get returns the value stored at addr without recording an access.
func (d *Device) Get(addr uint32) uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.regs[addr]
}

// SetComposite stores v big-endian into the low byte of n registers, stride
// bytes apart.
func (d *Device) SetComposite(addr uint32, n int, stride uint32, v uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := n - 1; i >= 0; i-- {
		d.regs[addr+uint32(i)*stride] = v & 0xff
		v >>= 8
	}
}

// SetRegister stores v in the bridge register addr.
func (d *Device) SetRegister(addr uint8, v uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bregs[addr] = v
}

// Register returns the bridge register addr.
func (d *Device) Register(addr uint8) uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bregs[addr]
}

// Push queues values to be read from addr.
func (d *Device) Push(addr uint32, vs ...uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fifos[addr] = append(d.fifos[addr], vs...)
}

// Pending returns the number of queued values at addr.
func (d *Device) Pending(addr uint32) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.fifos[addr])
}

// OnRead installs a hook providing the values read at addr.
func (d *Device) OnRead(addr uint32, fn func(addr uint32) uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rhooks[addr] = fn
}

// OnWrite installs a hook called after each write at addr.
func (d *Device) OnWrite(addr uint32, fn func(addr, v uint32)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.whooks[addr] = fn
}

// Fail makes every access to addr fail with err.
// A nil err removes the failure.
func (d *Device) Fail(addr uint32, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err == nil {
		delete(d.fails, addr)
		return
	}
	d.fails[addr] = err
}

// Accesses returns the recorded register accesses.
func (d *Device) Accesses() []Access {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Access(nil), d.log...)
}

// Writes returns the recorded write accesses to addr.
func (d *Device) Writes(addr uint32) []uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []uint32
	for _, a := range d.log {
		if a.Write && a.Addr == addr {
			out = append(out, a.Value)
		}
	}
	return out
}

// ResetLog clears the recorded accesses.
func (d *Device) ResetLog() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.log = d.log[:0]
}

// Closes returns the number of times Close was called.
func (d *Device) Closes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closes
}

// Resets returns the number of device resets.
func (d *Device) Resets() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.resets
}

func (d *Device) read(addr uint32, width int) (uint32, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return 0, ErrClosed
	}
	if err := d.fails[addr]; err != nil {
		d.mu.Unlock()
		return 0, err
	}
	var (
		v    uint32
		hook = d.rhooks[addr]
	)
	switch q := d.fifos[addr]; {
	case len(q) > 0:
		v = q[0]
		d.fifos[addr] = q[1:]
	default:
		v = d.regs[addr]
	}
	d.mu.Unlock()

	if hook != nil {
		v = hook(addr)
	}
	if width == 16 {
		v &= 0xffff
	}

	d.mu.Lock()
	d.log = append(d.log, Access{Width: width, Addr: addr, Value: v})
	d.mu.Unlock()
	return v, nil
}

func (d *Device) write(addr, v uint32, width int) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	if err := d.fails[addr]; err != nil {
		d.mu.Unlock()
		return err
	}
	d.regs[addr] = v
	d.log = append(d.log, Access{Write: true, Width: width, Addr: addr, Value: v})
	hook := d.whooks[addr]
	st := d.store
	d.mu.Unlock()

	if st != nil {
		err := st.put(regKey(addr), v)
		if err != nil {
			return err
		}
	}
	if hook != nil {
		hook(addr, v)
	}
	return nil
}

func (d *Device) block(addr uint32, buf []uint32) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, ErrClosed
	}
	if err := d.fails[addr]; err != nil {
		return 0, err
	}
	q := d.fifos[addr]
	n := copy(buf, q)
	d.fifos[addr] = q[n:]
	for _, v := range buf[:n] {
		d.log = append(d.log, Access{Width: 32, Addr: addr, Value: v})
	}
	return n, nil
}

func (d *Device) Read16(addr uint32) (uint16, error) {
	v, err := d.read(addr, 16)
	return uint16(v), err
}

func (d *Device) Read32(addr uint32) (uint32, error) {
	return d.read(addr, 32)
}

func (d *Device) Write16(addr uint32, v uint16) error {
	return d.write(addr, uint32(v), 16)
}

func (d *Device) Write32(addr uint32, v uint32) error {
	return d.write(addr, v, 32)
}

// BLTRead transfers queued values. A transfer shorter than buf ends with
// a comm termination error.
func (d *Device) BLTRead(addr uint32, buf []uint32) (int, error) {
	n, err := d.block(addr, buf)
	if err == nil && n < len(buf) {
		err = comm.Error{Code: comm.Terminated}
	}
	return n, err
}

func (d *Device) MBLTRead(addr uint32, buf []uint32) (int, error) {
	return d.BLTRead(addr, buf)
}

// Close closes the device. Closing twice is an error.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closes++
	if d.closed {
		return ErrClosed
	}
	d.closed = true
	d.store = nil
	return nil
}

func (d *Device) offset(addr uint32) uint32 {
	base := d.conn.BaseAddress()
	if addr >= base {
		return addr - base
	}
	return addr
}

func (d *Device) ReadRegister(addr uint8) (uint32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, ErrClosed
	}
	v := d.bregs[addr]
	d.log = append(d.log, Access{Width: 8, Addr: uint32(addr), Value: v})
	return v, nil
}

func (d *Device) WriteRegister(addr uint8, v uint32) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	d.bregs[addr] = v
	d.log = append(d.log, Access{Write: true, Width: 8, Addr: uint32(addr), Value: v})
	st := d.store
	d.mu.Unlock()

	if st != nil {
		return st.put(bridgeKey(addr), v)
	}
	return nil
}

func (d *Device) ReadCycle(addr uint32, am vme.AddressModifier, dw vme.DataWidth) (uint32, error) {
	v, err := d.read(d.offset(addr), 8*dw.Bytes())
	switch dw {
	case vme.D8:
		v &= 0xff
	}
	return v, vmeError(err)
}

func (d *Device) WriteCycle(addr uint32, v uint32, am vme.AddressModifier, dw vme.DataWidth) error {
	switch dw {
	case vme.D8:
		v &= 0xff
	case vme.D16:
		v &= 0xffff
	}
	return vmeError(d.write(d.offset(addr), v, 8*dw.Bytes()))
}

// BLTReadCycle transfers queued values. A transfer shorter than buf ends
// with a VME bus error, as a board does when its buffer is drained.
func (d *Device) BLTReadCycle(addr uint32, am vme.AddressModifier, dw vme.DataWidth, buf []uint32) (int, error) {
	n, err := d.block(d.offset(addr), buf)
	if err != nil {
		return n, vmeError(err)
	}
	if n < len(buf) {
		return n, vme.Error{Code: vme.BusError}
	}
	return n, nil
}

func (d *Device) MBLTReadCycle(addr uint32, am vme.AddressModifier, buf []uint32) (int, error) {
	return d.BLTReadCycle(addr, am, vme.D64, buf)
}

func (d *Device) FIFOBLTReadCycle(addr uint32, am vme.AddressModifier, dw vme.DataWidth, buf []uint32) (int, error) {
	return d.BLTReadCycle(addr, am, dw, buf)
}

func (d *Device) FirmwareRelease() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return "", vme.Error{Code: vme.CommError}
	}
	return d.Firmware, nil
}

func (d *Device) DeviceReset() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return vme.Error{Code: vme.CommError}
	}
	d.resets++
	return nil
}

func vmeError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrClosed):
		return vme.Error{Code: vme.CommError}
	default:
		return err
	}
}

var (
	_ comm.Transport = (*Device)(nil)
	_ vme.Controller = (*Device)(nil)
)
