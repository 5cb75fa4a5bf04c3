// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package fpgai2c

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/platinasystems/i2c"
	"github.com/platinasystems/midstone/internal/i2csim"
)

func TestRegisterOffset(t *testing.T) {
	sim := i2csim.New()
	f := NewFabric(sim, testBudget)
	r, n := Register(f, Midstone100th2(EVT), BusOffset)
	if n != 77 {
		t.Fatalf("registered %d adapters", n)
	}
	for _, tc := range []struct {
		name string
		nr   int
	}{
		{"QSFP1", 10},
		{"SFP1", 74},
		{"CPLD", 76},
		{"EEPROM", 86},
	} {
		a, found := r.ByName(tc.name)
		if !found {
			t.Errorf("%s: not registered", tc.name)
			continue
		}
		if a.Nr != tc.nr {
			t.Errorf("%s: nr %d want %d", tc.name, a.Nr, tc.nr)
		}
		if want := "SMBus I2C Adapter PortID: " + tc.name; a.Name != want {
			t.Errorf("name %q want %q", a.Name, want)
		}
		if b, _ := r.ByNr(tc.nr); b != a {
			t.Errorf("%d: ByNr mismatch", tc.nr)
		}
	}
	for bus := 1; bus <= NumBuses; bus++ {
		if got := sim.Bus(bus).Freq(); got != Freq100kHz {
			t.Errorf("bus %d freq %#x want %#x", bus, got, Freq100kHz)
		}
	}
	if r.Port(CpldIndex).Entry.Bus != 4 {
		t.Error("CPLD adapter lost its entry")
	}
}

func TestRegisterDynamic(t *testing.T) {
	f := NewFabric(i2csim.New(), testBudget)
	tbl := Midstone100th2(Production)[:3]
	r, n := Register(f, tbl, Dynamic)
	if n != 3 {
		t.Fatalf("registered %d", n)
	}
	var nrs []int
	for _, a := range r.Adapters() {
		nrs = append(nrs, a.Nr)
	}
	if diff := cmp.Diff([]int{0, 1, 2}, nrs); diff != "" {
		t.Errorf("numbers (-want +got):\n%s", diff)
	}
}

func TestRegisterSkipsBadEntry(t *testing.T) {
	f := NewFabric(i2csim.New(), testBudget)
	tbl := Table{
		{4, Direct, 0, "CPLD"},
		{0, Direct, 0, "NOWHERE"},
		{8, 0x77, 9, "FAN9"},
		{5, Direct, 0, "CPLD_B"},
	}
	r, n := Register(f, tbl, 0)
	if n != 2 {
		t.Fatalf("registered %d want 2", n)
	}
	if r.Port(1) != nil || r.Port(2) != nil {
		t.Error("bad entries registered")
	}
	if _, found := r.ByName("CPLD_B"); !found {
		t.Error("entry after a failure was not registered")
	}
	if _, err := r.Add(0); err == nil {
		t.Error("duplicate port registered")
	}
	if _, err := r.Add(len(tbl)); !errors.Is(err, InvalidRange) {
		t.Errorf("out of table: got %v", err)
	}
}

func TestRegistryCloseReverse(t *testing.T) {
	f := NewFabric(i2csim.New(), testBudget)
	tbl := Midstone100th2(EVT)
	r := NewRegistry(f, tbl, BusOffset)
	var released []string
	r.Release = func(a *Adapter) { released = append(released, a.Entry.Name) }
	for _, name := range []string{"CPLD", "QSFP1", "EEPROM"} {
		port, _ := tbl.Index(name)
		if _, err := r.Add(port); err != nil {
			t.Fatal(err)
		}
	}
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"EEPROM", "QSFP1", "CPLD"}, released); diff != "" {
		t.Errorf("release order (-want +got):\n%s", diff)
	}
	if len(r.Adapters()) != 0 {
		t.Error("adapters left after close")
	}
}

func TestAdapterDo(t *testing.T) {
	sim := i2csim.New()
	dev := new(i2csim.Regs)
	dev.Mem[0] = 0x11
	mux := sim.Bus(3).AddMux(0x72)
	mux.Attach(0, 0x50, dev)
	f := NewFabric(sim, testBudget)
	r, _ := Register(f, Midstone100th2(EVT), BusOffset)
	a, _ := r.ByName("QSFP33")
	var d i2c.SMBusData
	if err := a.Do(0x50, i2c.Read, 0, i2c.ByteData, &d); err != nil {
		t.Fatal(err)
	}
	if d[0] != 0x11 {
		t.Errorf("got %#x want 0x11", d[0])
	}
	if got := sim.Bus(3).PortID(); got != 32 {
		t.Errorf("port id %d want 32", got)
	}
	if err := a.Do(0x50, i2c.Write, 0, i2c.Quick, nil); err != nil {
		t.Errorf("quick without data: %v", err)
	}
	if err := a.Do(0x50, i2c.Write, 0, i2c.Byte, nil); err != nil {
		t.Errorf("byte write without data: %v", err)
	}
	err := a.Do(0x50, i2c.Read, 0, i2c.ByteData, nil)
	if !errors.Is(err, BlockLength) {
		t.Errorf("byte data read without data: got %v", err)
	}
	want := FuncSMBusQuick | FuncSMBusByte | FuncSMBusByteData |
		FuncSMBusWordData | FuncSMBusBlockData
	if a.Functionality() != want {
		t.Errorf("functionality %#x", a.Functionality())
	}
}
