// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package platform assembles the midstone100th2 FPGA, its virtual adapters
// and the devices behind them, and tears them down in reverse.
package platform

import (
	"fmt"

	"github.com/platinasystems/log"
	"github.com/platinasystems/midstone/cpld"
	"github.com/platinasystems/midstone/eeprom"
	"github.com/platinasystems/midstone/fpga"
	"github.com/platinasystems/midstone/fpgai2c"
	"github.com/platinasystems/midstone/sff"
)

type Config struct {
	Board fpgai2c.Board
	// Table overrides the board table if not nil.
	Table fpgai2c.Table
	// Offset is the first adapter number, or fpgai2c.Dynamic.
	Offset int
	// Budget is the status poll limit per acknowledge.
	Budget     int
	EepromAddr uint8
	// Release is called as each adapter is unregistered.
	Release func(*fpgai2c.Adapter)
}

var DefaultConfig = Config{
	Board:      fpgai2c.EVT,
	Offset:     fpgai2c.BusOffset,
	Budget:     fpgai2c.DefaultBudget,
	EepromAddr: eeprom.DefaultAddress,
}

type Platform struct {
	Config
	FPGA     *fpga.FPGA
	Fabric   *fpgai2c.Fabric
	Registry *fpgai2c.Registry
	Cplds    []*cpld.Device
	Ports    []*sff.Port
	Eeprom   *eeprom.Device

	undo []func() error
}

// Open finds and maps the FPGA then probes it.
func Open(c Config) (*Platform, error) {
	addr, err := fpga.Find(fpga.VendorXilinx, fpga.DeviceID,
		fpga.TestDeviceID)
	if err != nil {
		return nil, err
	}
	bar, err := fpga.Open(addr)
	if err != nil {
		return nil, err
	}
	p, err := Probe(bar, c)
	if err != nil {
		bar.Close()
		return nil, err
	}
	p.push(bar.Close)
	log.Printf("daemon", "info", "fpga %s version %#x", addr,
		p.FPGA.Version())
	return p, nil
}

// Probe brings up everything behind regs. If any step fails, the steps
// already done are undone in reverse order.
func Probe(regs fpga.Regs, c Config) (p *Platform, err error) {
	p = &Platform{Config: c}
	defer func() {
		if err != nil {
			p.Close()
			p = nil
		}
	}()
	if p.Table == nil {
		p.Table = fpgai2c.Midstone100th2(p.Board)
	}
	p.FPGA = fpga.New(regs)
	p.Fabric = fpgai2c.NewFabric(regs, p.Budget)

	p.Registry = fpgai2c.NewRegistry(p.Fabric, p.Table, p.Offset)
	p.Registry.Release = p.Release
	p.push(p.Registry.Close)
	if n := p.Registry.AddAll(); n == 0 {
		return p, fmt.Errorf("no adapters registered")
	}

	if p.Cplds, err = cpld.Probe(p.Registry); err != nil {
		return
	}
	if p.Ports, err = sff.Ports(p.FPGA, p.Registry); err != nil {
		return
	}
	a, found := p.Registry.ByName("EEPROM")
	if !found {
		return p, fmt.Errorf("EEPROM: no adapter")
	}
	p.Eeprom = eeprom.New(a)
	if p.EepromAddr != 0 {
		p.Eeprom.Address = p.EepromAddr
	}
	return p, nil
}

func (p *Platform) push(f func() error) {
	p.undo = append(p.undo, f)
}

// Close undoes the probe in reverse and returns the first error.
func (p *Platform) Close() error {
	var first error
	for i := len(p.undo) - 1; i >= 0; i-- {
		if err := p.undo[i](); err != nil && first == nil {
			first = err
		}
	}
	p.undo = nil
	return first
}

// Cpld returns the named CPLD device.
func (p *Platform) Cpld(name string) (*cpld.Device, bool) {
	for _, d := range p.Cplds {
		if d.Name == name {
			return d, true
		}
	}
	return nil, false
}
