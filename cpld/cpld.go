// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package cpld provides register access to the switch board CPLDs. CPLD1-4
// share the "CPLD" port, CPLD_B has a port of its own.
package cpld

import (
	"errors"
	"fmt"

	"github.com/platinasystems/i2c"
	"github.com/platinasystems/midstone/fpgai2c"
)

const (
	RegVersion = 0x00
	RegScratch = 0x01
)

var ErrRange = errors.New("register range exceeds 0xff")

// Layout places each CPLD on its logical port.
var Layout = []struct {
	Name   string
	Port   string
	Addr   uint8
	Window int
}{
	{"cpld1", "CPLD", 0x30, 0x20},
	{"cpld2", "CPLD", 0x31, 0x20},
	{"cpld3", "CPLD", 0x32, 0x20},
	{"cpld4", "CPLD", 0x33, 0x20},
	{"cpld_b", "CPLD_B", 0x0d, 0x77},
}

type Device struct {
	Name string
	Addr uint8
	// Window is the Dump length used when none is given.
	Window int

	bus fpgai2c.Bus
}

func New(name string, addr uint8, window int, bus fpgai2c.Bus) *Device {
	return &Device{Name: name, Addr: addr, Window: window, bus: bus}
}

// Probe returns a Device for every Layout entry whose port is registered.
func Probe(r *fpgai2c.Registry) ([]*Device, error) {
	var l []*Device
	for _, x := range Layout {
		a, found := r.ByName(x.Port)
		if !found {
			return l, fmt.Errorf("%s: %s: no adapter", x.Name, x.Port)
		}
		l = append(l, New(x.Name, x.Addr, x.Window, a))
	}
	return l, nil
}

func (d *Device) String() string { return d.Name }

func (d *Device) GetReg(reg uint8) (uint8, error) {
	var data i2c.SMBusData
	err := d.bus.Do(d.Addr, i2c.Read, reg, i2c.ByteData, &data)
	if err != nil {
		return 0, fmt.Errorf("%s: get %#02x: %w", d.Name, reg, err)
	}
	return data[0], nil
}

func (d *Device) SetReg(reg, v uint8) error {
	var data i2c.SMBusData
	data[0] = v
	err := d.bus.Do(d.Addr, i2c.Write, reg, i2c.ByteData, &data)
	if err != nil {
		return fmt.Errorf("%s: set %#02x: %w", d.Name, reg, err)
	}
	return nil
}

func (d *Device) Version() (uint8, error) { return d.GetReg(RegVersion) }

func (d *Device) Scratch() (uint8, error) { return d.GetReg(RegScratch) }

func (d *Device) SetScratch(v uint8) error { return d.SetReg(RegScratch, v) }

// Dump reads n registers from start; n of zero is the device Window.
func (d *Device) Dump(start uint8, n int) ([]byte, error) {
	if n == 0 {
		n = d.Window
	}
	if n < 0 || int(start)+n > 0x100 {
		return nil, fmt.Errorf("%s: %#x+%#x: %w", d.Name, start, n,
			ErrRange)
	}
	buf := make([]byte, n)
	for i := range buf {
		v, err := d.GetReg(start + uint8(i))
		if err != nil {
			return buf[:i], err
		}
		buf[i] = v
	}
	return buf, nil
}
