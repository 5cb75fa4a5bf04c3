// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package vi2c

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/platinasystems/midstone/fpgai2c"
	"github.com/platinasystems/midstone/internal/i2csim"
)

// local reaches the adapters in process instead of through the daemon.
type local struct {
	r *fpgai2c.Registry
	f *fpgai2c.Fabric
}

func (l local) Bus(port string) fpgai2c.Bus {
	a, _ := l.r.ByName(port)
	return a
}

func (l local) Adapters() ([]string, error) {
	var s []string
	for _, a := range l.r.Adapters() {
		s = append(s, fmt.Sprint(a.Nr, " ", a.Entry))
	}
	return s, nil
}

func (l local) Stats(bus int) (fpgai2c.Stats, error) { return l.f.Stats(bus) }

func (local) Close() error { return nil }

func newLocal() (local, *i2csim.FPGA) {
	sim := i2csim.New()
	f := fpgai2c.NewFabric(sim, 1000)
	r, _ := fpgai2c.Register(f, fpgai2c.Midstone100th2(fpgai2c.EVT),
		fpgai2c.BusOffset)
	return local{r, f}, sim
}

func TestParseTarget(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want target
	}{
		{"CPLD.30", target{port: "CPLD", addr: 0x30}},
		{"CPLD.30.1", target{"CPLD", 0x30, 1, 1, true}},
		{"CPLD_B.d.0-1f", target{"CPLD_B", 0x0d, 0, 0x1f, true}},
		{"12.50.7f", target{"12", 0x50, 0x7f, 0x7f, true}},
	} {
		got, err := parseTarget(tc.in)
		if err != nil {
			t.Errorf("%s: %v", tc.in, err)
			continue
		}
		if diff := cmp.Diff(tc.want, got, cmp.AllowUnexported(target{})); diff != "" {
			t.Errorf("%s (-want +got):\n%s", tc.in, diff)
		}
	}
	for _, in := range []string{"CPLD", ".30", "CPLD.zz", "CPLD.80", "CPLD.30.5-2"} {
		if _, err := parseTarget(in); err == nil {
			t.Errorf("%s: parsed", in)
		}
	}
}

func TestAccess(t *testing.T) {
	l, sim := newLocal()
	dev := new(i2csim.Regs)
	copy(dev.Mem[:], []byte{0x11, 0x22, 0x34, 0x12})
	sim.Bus(4).Attach(0x30, dev)
	plain := new(i2csim.Regs)
	plain.Mem[0] = 0x77
	sim.Bus(4).Attach(0x31, plain)

	var buf bytes.Buffer
	for _, tc := range []struct {
		m    mode
		args []string
		out  string
	}{
		{byteMode, []string{"CPLD.30.0-1"}, "CPLD.30.00 = 11\nCPLD.30.01 = 22\n"},
		{wordMode, []string{"CPLD.30.2"}, "CPLD.30.02 = 1234\n"},
		{byteMode, []string{"CPLD.30.1", "5a"}, "CPLD.30.01 = 5a\n"},
		{byteMode, []string{"CPLD.31"}, "CPLD.31 = 77\n"},
		{blockMode, []string{"CPLD.30.8", "aa", "bb"}, "CPLD.30.08 = aa bb\n"},
		{blockMode, []string{"CPLD.30.8"}, "CPLD.30.08 = aa bb\n"},
		{quickMode, []string{"CPLD.31"}, "CPLD.31: ack\n"},
	} {
		buf.Reset()
		if err := access(&buf, l, tc.m, tc.args...); err != nil {
			t.Fatalf("%v: %v", tc.args, err)
		}
		if got := buf.String(); got != tc.out {
			t.Errorf("%v: got %q want %q", tc.args, got, tc.out)
		}
	}
	if dev.Mem[1] != 0x5a {
		t.Errorf("register 1 %#x after write", dev.Mem[1])
	}
	if diff := cmp.Diff([]byte{2, 0xaa, 0xbb}, dev.Mem[8:11]); diff != "" {
		t.Errorf("block write (-want +got):\n%s", diff)
	}
	if err := access(&buf, l, byteMode, "CPLD.40.0"); !errors.Is(err, fpgai2c.NoAck) {
		t.Errorf("absent device: got %v", err)
	}
	if err := access(&buf, l, quickMode, "CPLD.40"); !errors.Is(err, fpgai2c.NoAck) {
		t.Errorf("quick absent device: got %v", err)
	}
	for _, tc := range []struct {
		m    mode
		args []string
	}{
		{byteMode, nil},
		{byteMode, []string{"CPLD.30.0", "1", "2"}},
		{blockMode, []string{"CPLD.30"}},
		{blockMode, []string{"CPLD.30.0-3"}},
		{quickMode, []string{"CPLD.30.0"}},
	} {
		if err := access(&buf, l, tc.m, tc.args...); err == nil {
			t.Errorf("%v %q: accepted", tc.m, tc.args)
		}
	}
}

func TestListStats(t *testing.T) {
	l, _ := newLocal()
	var buf bytes.Buffer
	if err := list(&buf, l); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 77 || lines[76] != "86 EEPROM: bus 11 direct" {
		t.Errorf("%d adapters, last %q", len(lines), lines[len(lines)-1])
	}
	buf.Reset()
	if err := stats(&buf, l); err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(buf.String(), "\n"); n != fpgai2c.NumBuses+1 {
		t.Errorf("%d stats lines", n)
	}
}

func TestMainDialError(t *testing.T) {
	c := Command{dial: func() (conn, error) {
		return nil, errors.New("fpgai2cd: not running")
	}}
	if err := c.Main("CPLD.30"); err == nil {
		t.Error("ran without a daemon")
	}
}
