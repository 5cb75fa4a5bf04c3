// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package cpld

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/platinasystems/midstone/fpgai2c"
	"github.com/platinasystems/midstone/internal/i2csim"
)

func probe(t *testing.T) ([]*Device, map[string]*i2csim.Regs) {
	sim := i2csim.New()
	regs := make(map[string]*i2csim.Regs)
	for i, x := range Layout {
		r := new(i2csim.Regs)
		r.Mem[RegVersion] = uint8(0x10 + i)
		regs[x.Name] = r
		bus := 4
		if x.Port == "CPLD_B" {
			bus = 5
		}
		sim.Bus(bus).Attach(x.Addr, r)
	}
	reg, _ := fpgai2c.Register(fpgai2c.NewFabric(sim, 1000),
		fpgai2c.Midstone100th2(fpgai2c.EVT), fpgai2c.BusOffset)
	devs, err := Probe(reg)
	if err != nil {
		t.Fatal(err)
	}
	return devs, regs
}

func TestScratch(t *testing.T) {
	devs, regs := probe(t)
	cpld1 := devs[0]
	if err := cpld1.SetScratch(0x55); err != nil {
		t.Fatal(err)
	}
	v, err := cpld1.Scratch()
	if err != nil {
		t.Fatal(err)
	}
	if v != 0x55 {
		t.Errorf("scratch: got %#x want 0x55", v)
	}
	if regs["cpld1"].Mem[RegScratch] != 0x55 {
		t.Error("scratch not in cpld1")
	}
	if regs["cpld2"].Mem[RegScratch] != 0 {
		t.Error("scratch leaked into cpld2")
	}
}

func TestVersions(t *testing.T) {
	devs, _ := probe(t)
	if len(devs) != len(Layout) {
		t.Fatalf("%d devices", len(devs))
	}
	for i, d := range devs {
		v, err := d.Version()
		if err != nil {
			t.Errorf("%v: %v", d, err)
			continue
		}
		if v != uint8(0x10+i) {
			t.Errorf("%v: version %#x", d, v)
		}
	}
}

func TestDump(t *testing.T) {
	devs, regs := probe(t)
	cpldb := devs[len(devs)-1]
	for i := range regs["cpld_b"].Mem {
		regs["cpld_b"].Mem[i] = uint8(i)
	}
	buf, err := cpldb.Dump(0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(buf) != 0x77 {
		t.Errorf("default window: %d bytes", len(buf))
	}
	buf, err = cpldb.Dump(0x10, 4)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]byte{0x10, 0x11, 0x12, 0x13}, buf); diff != "" {
		t.Errorf("dump (-want +got):\n%s", diff)
	}
	if _, err = cpldb.Dump(0xf0, 0x20); !errors.Is(err, ErrRange) {
		t.Errorf("overrun: got %v", err)
	}
}

func TestAbsent(t *testing.T) {
	sim := i2csim.New()
	reg, _ := fpgai2c.Register(fpgai2c.NewFabric(sim, 1000),
		fpgai2c.Midstone100th2(fpgai2c.EVT), fpgai2c.BusOffset)
	devs, err := Probe(reg)
	if err != nil {
		t.Fatal(err)
	}
	if _, err = devs[0].Version(); !errors.Is(err, fpgai2c.NoAck) {
		t.Errorf("got %v want %v", err, fpgai2c.NoAck)
	}
}
