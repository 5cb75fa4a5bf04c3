// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package cpldcmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/platinasystems/midstone/cpld"
	"github.com/platinasystems/midstone/fpgai2c"
	"github.com/platinasystems/midstone/internal/i2csim"
)

type local struct{ r *fpgai2c.Registry }

func (l local) Bus(port string) fpgai2c.Bus {
	a, _ := l.r.ByName(port)
	return a
}

func (local) Close() error { return nil }

// setup attaches cpld1 to cpld4; cpld_b is left absent.
func setup() ([]*cpld.Device, []*i2csim.Regs) {
	sim := i2csim.New()
	var regs []*i2csim.Regs
	for i := 0; i < 4; i++ {
		r := new(i2csim.Regs)
		r.Mem[cpld.RegVersion] = uint8(i + 1)
		sim.Bus(4).Attach(uint8(0x30+i), r)
		regs = append(regs, r)
	}
	reg, _ := fpgai2c.Register(fpgai2c.NewFabric(sim, 1000),
		fpgai2c.Midstone100th2(fpgai2c.Production), fpgai2c.BusOffset)
	return devices(local{reg}), regs
}

func TestVersions(t *testing.T) {
	devs, _ := setup()
	var buf bytes.Buffer
	if err := run(&buf, devs); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("%q", lines)
	}
	if lines[2] != "cpld3: version 0x03" {
		t.Errorf("cpld3: %q", lines[2])
	}
	if !strings.HasPrefix(lines[4], "cpld_b: ") ||
		!strings.Contains(lines[4], fpgai2c.NoAck.Error()) {
		t.Errorf("cpld_b: %q", lines[4])
	}
	for _, args := range [][]string{{"cpld2"}, {"cpld2", "version"}} {
		buf.Reset()
		if err := run(&buf, devs, args...); err != nil {
			t.Fatal(err)
		}
		if got := buf.String(); got != "cpld2: version 0x02\n" {
			t.Errorf("%q: got %q", args, got)
		}
	}
	if err := run(&buf, devs, "cpld9"); err == nil {
		t.Error("cpld9 found")
	}
}

func TestReg(t *testing.T) {
	devs, regs := setup()
	var buf bytes.Buffer
	for _, tc := range []struct {
		args []string
		out  string
	}{
		{[]string{"cpld4", "scratch", "0x55"}, "cpld4.01 = 55\n"},
		{[]string{"cpld4", "scratch"}, "cpld4.01 = 55\n"},
		{[]string{"cpld4", "setreg", "0x10", "0xa5"}, "cpld4.10 = a5\n"},
		{[]string{"cpld4", "getreg", "0"}, "cpld4.00 = 04\n"},
	} {
		buf.Reset()
		if err := run(&buf, devs, tc.args...); err != nil {
			t.Fatalf("%q: %v", tc.args, err)
		}
		if got := buf.String(); got != tc.out {
			t.Errorf("%q: got %q want %q", tc.args, got, tc.out)
		}
	}
	if regs[3].Mem[cpld.RegScratch] != 0x55 || regs[3].Mem[0x10] != 0xa5 {
		t.Error("registers not written")
	}
	if regs[2].Mem[cpld.RegScratch] != 0 {
		t.Error("scratch written to cpld3")
	}
	for _, args := range [][]string{
		{"cpld4", "bogus"},
		{"cpld4", "version", "1"},
		{"cpld4", "scratch", "1", "2"},
		{"cpld4", "getreg"},
		{"cpld4", "getreg", "0x100"},
		{"cpld4", "setreg", "1"},
		{"cpld4", "setreg", "1", "x"},
	} {
		if err := run(&buf, devs, args...); err == nil {
			t.Errorf("%q: accepted", args)
		}
	}
}

func TestDump(t *testing.T) {
	devs, regs := setup()
	regs[0].Mem[0x1f] = 0xaa
	start, b, err := dump(devs[0])
	if err != nil {
		t.Fatal(err)
	}
	if start != 0 || len(b) != 0x20 || b[0] != 1 || b[0x1f] != 0xaa {
		t.Errorf("dump at %#x: % x", start, b)
	}
	if _, b, err = dump(devs[0], "0x1f", "1"); err != nil || len(b) != 1 {
		t.Errorf("one register: % x, %v", b, err)
	}
	if _, _, err = dump(devs[0], "0xf0", "0x20"); err == nil {
		t.Error("dump past 0xff")
	}
	if _, _, err = dump(devs[0], "0", "1", "2"); err == nil {
		t.Error("extra args accepted")
	}
}
