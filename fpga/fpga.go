// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package fpga provides the midstone100th2 FPGA top level registers: the
// version, scratch and transceiver ready registers, raw register access
// and the transceiver port block dump.
//
// The FPGA I2C masters share the same BAR but are serialized per bus by
// package fpgai2c, not by the FPGA lock here.
package fpga

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrWidth = errors.New("register width must be 8 or 32")
	ErrRange = errors.New("out of range")
)

type FPGA struct {
	mutex sync.Mutex
	regs  Regs
}

func New(regs Regs) *FPGA {
	return &FPGA{regs: regs}
}

// Regs returns the unlocked register window.
func (f *FPGA) Regs() Regs { return f.regs }

func (f *FPGA) Version() uint32 {
	return f.Read32(Version)
}

func (f *FPGA) Scratch() uint32 {
	return f.Read32(Scratch)
}

func (f *FPGA) SetScratch(v uint32) {
	f.Write32(Scratch, v)
}

func (f *FPGA) XcvrReady() bool {
	return f.Read32(XcvrReady)&1 == 1
}

// CpldRunning reports whether the switch CPLDs are out of reset.
func (f *FPGA) CpldRunning() bool {
	return f.Read32(CpldReset)&1 == 1
}

// SetCpldRunning releases (true) or asserts (false) the CPLD reset.
func (f *FPGA) SetCpldRunning(run bool) {
	f.Update32(CpldReset, func(v uint32) uint32 {
		if run {
			return v | 1
		}
		return v &^ 1
	})
}

func (f *FPGA) Read32(offset uint32) uint32 {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.regs.Read32(offset)
}

func (f *FPGA) Write32(offset uint32, v uint32) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.regs.Write32(offset, v)
}

// Update32 does a locked read-modify-write and returns the written value.
func (f *FPGA) Update32(offset uint32, fn func(uint32) uint32) uint32 {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	v := fn(f.regs.Read32(offset))
	f.regs.Write32(offset, v)
	return v
}

func (f *FPGA) GetReg(offset uint32, width int) (uint32, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	switch width {
	case 8:
		return uint32(f.regs.Read8(offset)), nil
	case 32:
		return f.regs.Read32(offset), nil
	}
	return 0, fmt.Errorf("%d: %w", width, ErrWidth)
}

func (f *FPGA) SetReg(offset, v uint32, width int) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	switch width {
	case 8:
		f.regs.Write8(offset, uint8(v))
	case 32:
		f.regs.Write32(offset, v)
	default:
		return fmt.Errorf("%d: %w", width, ErrWidth)
	}
	return nil
}

// Dump reads n bytes of the transceiver port block starting at offset
// from the beginning of that block.
func (f *FPGA) Dump(offset, n uint32) ([]byte, error) {
	if offset+n > PortBlockSize || offset+n < offset {
		return nil, fmt.Errorf("dump %#x+%#x: %w", offset, n, ErrRange)
	}
	buf := make([]byte, n)
	f.mutex.Lock()
	defer f.mutex.Unlock()
	for i := range buf {
		buf[i] = f.regs.Read8(PortCtrl + offset + uint32(i))
	}
	return buf, nil
}
