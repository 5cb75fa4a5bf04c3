// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package platform

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/platinasystems/midstone/fpgai2c"
	"github.com/platinasystems/midstone/internal/i2csim"
)

func TestProbe(t *testing.T) {
	c := DefaultConfig
	c.Budget = 1000
	var released int
	c.Release = func(*fpgai2c.Adapter) { released++ }
	p, err := Probe(i2csim.New(), c)
	if err != nil {
		t.Fatal(err)
	}
	if n := len(p.Registry.Adapters()); n != 77 {
		t.Errorf("%d adapters", n)
	}
	if len(p.Cplds) != 5 || len(p.Ports) != fpgai2c.NumSff {
		t.Errorf("%d cplds %d ports", len(p.Cplds), len(p.Ports))
	}
	if _, found := p.Cpld("cpld_b"); !found {
		t.Error("no cpld_b")
	}
	if p.Eeprom == nil || p.Eeprom.Address != 0x56 {
		t.Error("eeprom not probed")
	}
	if err = p.Close(); err != nil {
		t.Fatal(err)
	}
	if released != 77 {
		t.Errorf("released %d", released)
	}
}

func TestProbeUnwinds(t *testing.T) {
	c := DefaultConfig
	c.Budget = 1000
	full := fpgai2c.Midstone100th2(fpgai2c.EVT)
	// no CPLD entries, so the CPLD step fails after registration
	c.Table = append(fpgai2c.Table{}, full[:fpgai2c.CpldIndex]...)
	var released []string
	c.Release = func(a *fpgai2c.Adapter) {
		released = append(released, a.Entry.Name)
	}
	p, err := Probe(i2csim.New(), c)
	if err == nil {
		t.Fatal("probe succeeded without a CPLD port")
	}
	if p != nil {
		t.Error("failed probe returned a platform")
	}
	if len(released) != fpgai2c.CpldIndex {
		t.Fatalf("released %d adapters", len(released))
	}
	want := []string{"SFP2", "SFP1", "QSFP64"}
	if diff := cmp.Diff(want, released[:3]); diff != "" {
		t.Errorf("release order (-want +got):\n%s", diff)
	}
}
