// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package cpldcmd reads and writes the switch CPLD registers.
package cpldcmd

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/platinasystems/midstone/cmd/fpgai2cd"
	"github.com/platinasystems/midstone/cpld"
	"github.com/platinasystems/midstone/fpgai2c"
	"github.com/platinasystems/midstone/internal/hexdump"
	"github.com/platinasystems/midstone/lang"
)

type conn interface {
	Bus(port string) fpgai2c.Bus
	Close() error
}

type Command struct {
	dial func() (conn, error)
}

func (Command) String() string { return "cpld" }

func (Command) Usage() string {
	return `
	cpld [NAME]
	cpld NAME version
	cpld NAME scratch [VALUE]
	cpld NAME getreg REG
	cpld NAME setreg REG VALUE
	cpld NAME dump [REG [COUNT]]`
}

func (Command) Apropos() lang.Alt {
	return lang.Alt{
		lang.EnUS: "switch cpld registers",
	}
}

func (Command) Man() lang.Alt {
	return lang.Alt{
		lang.EnUS: `
DESCRIPTION
	Without a command, print the version of the named, or every,
	CPLD: cpld1 to cpld4 and cpld_b.

	dump prints COUNT registers from REG, as hex rows to a terminal
	and raw otherwise; the default count is the CPLD's register
	window.`,
	}
}

func (c Command) Main(args ...string) error {
	dial := c.dial
	if dial == nil {
		dial = func() (conn, error) { return fpgai2cd.Dial() }
	}
	cl, err := dial()
	if err != nil {
		return err
	}
	defer cl.Close()
	devs := devices(cl)
	if len(args) > 1 && args[1] == "dump" {
		d, err := find(devs, args[0])
		if err != nil {
			return err
		}
		start, b, err := dump(d, args[2:]...)
		if err != nil {
			return err
		}
		return hexdump.Stdout(uint32(start), b)
	}
	return run(os.Stdout, devs, args...)
}

func devices(cl conn) []*cpld.Device {
	l := make([]*cpld.Device, 0, len(cpld.Layout))
	for _, x := range cpld.Layout {
		l = append(l, cpld.New(x.Name, x.Addr, x.Window, cl.Bus(x.Port)))
	}
	return l
}

func find(devs []*cpld.Device, name string) (*cpld.Device, error) {
	for _, d := range devs {
		if d.Name == name {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%s: no such cpld", name)
}

func byteArg(s string) (uint8, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid", s)
	}
	return uint8(v), nil
}

func versions(w io.Writer, devs []*cpld.Device) {
	for _, d := range devs {
		v, err := d.Version()
		if err != nil {
			fmt.Fprintf(w, "%s: %v\n", d, err)
			continue
		}
		fmt.Fprintf(w, "%s: version %#02x\n", d, v)
	}
}

func run(w io.Writer, devs []*cpld.Device, args ...string) error {
	if len(args) == 0 {
		versions(w, devs)
		return nil
	}
	d, err := find(devs, args[0])
	if err != nil {
		return err
	}
	if len(args) == 1 {
		versions(w, []*cpld.Device{d})
		return nil
	}
	name, args := args[1], args[2:]
	var reg, v uint8
	max := map[string]int{"version": 0, "scratch": 1, "getreg": 1, "setreg": 2}
	min := map[string]int{"getreg": 1, "setreg": 2}
	n, found := max[name]
	switch {
	case !found:
		return fmt.Errorf("%s: unknown", name)
	case len(args) > n:
		return fmt.Errorf("%v: unexpected", args[n:])
	case len(args) < min[name]:
		return fmt.Errorf("%s: missing arguments", name)
	}
	switch name {
	case "version":
		versions(w, []*cpld.Device{d})
		return nil
	case "scratch":
		reg = cpld.RegScratch
		if len(args) == 1 {
			if v, err = byteArg(args[0]); err != nil {
				return err
			}
			if err = d.SetReg(reg, v); err != nil {
				return err
			}
		}
	case "getreg", "setreg":
		if reg, err = byteArg(args[0]); err != nil {
			return err
		}
		if name == "setreg" {
			if v, err = byteArg(args[1]); err != nil {
				return err
			}
			if err = d.SetReg(reg, v); err != nil {
				return err
			}
		}
	}
	if v, err = d.GetReg(reg); err != nil {
		return err
	}
	fmt.Fprintf(w, "%s.%02x = %02x\n", d, reg, v)
	return nil
}

func dump(d *cpld.Device, args ...string) (start uint8, b []byte, err error) {
	if len(args) > 2 {
		return 0, nil, fmt.Errorf("%v: unexpected", args[2:])
	}
	n := 0
	if len(args) > 0 {
		if start, err = byteArg(args[0]); err != nil {
			return
		}
	}
	if len(args) > 1 {
		v, err := strconv.ParseUint(args[1], 0, 9)
		if err != nil {
			return 0, nil, fmt.Errorf("%s: invalid count", args[1])
		}
		n = int(v)
	}
	b, err = d.Dump(start, n)
	return
}
