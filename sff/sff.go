// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package sff controls the front panel transceiver ports through their FPGA
// port registers and reaches the module EEPROM through the port's adapter.
package sff

import (
	"errors"
	"fmt"
	"strings"

	"github.com/platinasystems/i2c"
	"github.com/platinasystems/midstone/fpga"
	"github.com/platinasystems/midstone/fpgai2c"
)

var (
	ErrAttr     = errors.New("no such attribute")
	ErrReadOnly = errors.New("read only attribute")
)

type Kind int

const (
	Qsfp Kind = iota
	Sfp
)

func (k Kind) String() string {
	if k == Sfp {
		return "sfp"
	}
	return "qsfp"
}

// Offsets of a port's registers from its block.
const (
	regCtrl      uint32 = 0x0
	regStatus    uint32 = 0x4
	regIntStatus uint32 = 0x8
	regIntMask   uint32 = 0xc
)

// ModuleAddr is the SFF-8436/8472 module EEPROM address.
const ModuleAddr = 0x50

// Attr is one bit of a port register.
type Attr struct {
	Name     string
	reg      uint32
	bit      uint
	Writable bool
}

var QsfpAttrs = []Attr{
	{"modprssta", regStatus, 4, false},
	{"modprsirq", regIntStatus, 4, true},
	{"modprsmsk", regIntMask, 4, true},
	{"intsta", regStatus, 5, false},
	{"intirq", regIntStatus, 5, true},
	{"intmsk", regIntMask, 5, true},
	{"lpmode", regCtrl, 6, true},
	{"reset", regCtrl, 4, true},
}

var SfpAttrs = []Attr{
	{"modabssta", regStatus, 0, false},
	{"modabsirq", regIntStatus, 0, true},
	{"modabsmsk", regIntMask, 0, true},
	{"rxlossta", regStatus, 1, false},
	{"rxlosirq", regIntStatus, 1, true},
	{"rxlosmsk", regIntMask, 1, true},
	{"txfault", regStatus, 2, false},
	{"txdisable", regCtrl, 0, true},
}

// Port is front panel port ID, 1 based; 1-64 are QSFP, 65-66 SFP.
type Port struct {
	ID   int
	Name string
	Kind Kind

	fpga *fpga.FPGA
	bus  fpgai2c.Bus
}

func NewPort(f *fpga.FPGA, id int, bus fpgai2c.Bus) *Port {
	p := &Port{ID: id, fpga: f, bus: bus}
	if id > fpgai2c.NumQsfp {
		p.Kind = Sfp
		p.Name = fmt.Sprint("sfp", id-fpgai2c.NumQsfp)
	} else {
		p.Name = fmt.Sprint("qsfp", id)
	}
	return p
}

// Ports returns every front panel port, with the adapter of its table
// entry of the same name.
func Ports(f *fpga.FPGA, r *fpgai2c.Registry) ([]*Port, error) {
	l := make([]*Port, 0, fpgai2c.NumSff)
	for id := 1; id <= fpgai2c.NumSff; id++ {
		p := NewPort(f, id, nil)
		a, found := r.ByName(strings.ToUpper(p.Name))
		if !found {
			return l, fmt.Errorf("%s: no adapter", p.Name)
		}
		p.bus = a
		l = append(l, p)
	}
	return l, nil
}

func (p *Port) String() string { return p.Name }

func (p *Port) Attrs() []Attr {
	if p.Kind == Sfp {
		return SfpAttrs
	}
	return QsfpAttrs
}

func (p *Port) attr(name string) (Attr, error) {
	for _, a := range p.Attrs() {
		if a.Name == name {
			return a, nil
		}
	}
	return Attr{}, fmt.Errorf("%s: %s: %w", p.Name, name, ErrAttr)
}

func (p *Port) offset(a Attr) uint32 {
	return fpga.PortCtrl + a.reg + uint32(p.ID-1)*fpga.PortStride
}

func (p *Port) Get(name string) (bool, error) {
	a, err := p.attr(name)
	if err != nil {
		return false, err
	}
	return (p.fpga.Read32(p.offset(a))>>a.bit)&1 == 1, nil
}

func (p *Port) Set(name string, v bool) error {
	a, err := p.attr(name)
	if err != nil {
		return err
	}
	if !a.Writable {
		return fmt.Errorf("%s: %s: %w", p.Name, name, ErrReadOnly)
	}
	p.fpga.Update32(p.offset(a), func(x uint32) uint32 {
		if v {
			return x | 1<<a.bit
		}
		return x &^ (1 << a.bit)
	})
	return nil
}

// Present reports whether a module is plugged; both present signals are
// active low.
func (p *Port) Present() (bool, error) {
	name := "modprssta"
	if p.Kind == Sfp {
		name = "modabssta"
	}
	absent, err := p.Get(name)
	return !absent, err
}

// Identifier reads byte 0 of the module EEPROM.
func (p *Port) Identifier() (uint8, error) {
	if p.bus == nil {
		return 0, fmt.Errorf("%s: no adapter", p.Name)
	}
	var data i2c.SMBusData
	err := p.bus.Do(ModuleAddr, i2c.Read, 0, i2c.ByteData, &data)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", p.Name, err)
	}
	return data[0], nil
}
