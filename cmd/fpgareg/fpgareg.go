// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package fpgareg

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/platinasystems/midstone/cmd/fpgai2cd"
	"github.com/platinasystems/midstone/fpga"
	"github.com/platinasystems/midstone/internal/hexdump"
	"github.com/platinasystems/midstone/lang"
)

type regs interface {
	GetReg(offset uint32, width int) (uint32, error)
	SetReg(offset, v uint32, width int) error
	Dump(offset, n uint32) ([]byte, error)
	Close() error
}

type Command struct {
	dial func() (regs, error)
}

func (Command) String() string { return "fpgareg" }

func (Command) Usage() string {
	return `
	fpgareg version
	fpgareg scratch [VALUE]
	fpgareg ready
	fpgareg getreg OFFSET [8|32]
	fpgareg setreg OFFSET VALUE [8|32]
	fpgareg dump [OFFSET [COUNT]]`
}

func (Command) Apropos() lang.Alt {
	return lang.Alt{
		lang.EnUS: "read and write fpga registers",
	}
}

func (Command) Man() lang.Alt {
	return lang.Alt{
		lang.EnUS: `
DESCRIPTION
	getreg and setreg access a 32 bit register unless the width is
	given as 8.

	dump prints COUNT bytes, default 0x100, of the transceiver port
	block from OFFSET, as hex rows to a terminal and raw otherwise.`,
	}
}

func (c Command) Main(args ...string) error {
	if len(args) == 0 {
		return fmt.Errorf("COMMAND: missing")
	}
	dial := c.dial
	if dial == nil {
		dial = func() (regs, error) { return fpgai2cd.Dial() }
	}
	r, err := dial()
	if err != nil {
		return err
	}
	defer r.Close()
	if args[0] == "dump" {
		off, b, err := dump(r, args[1:]...)
		if err != nil {
			return err
		}
		return hexdump.Stdout(off, b)
	}
	return run(os.Stdout, r, args...)
}

func number(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid number", s)
	}
	return uint32(v), nil
}

func width(args []string, i int) (int, error) {
	if len(args) <= i {
		return 32, nil
	}
	if len(args) > i+1 {
		return 0, fmt.Errorf("%v: unexpected", args[i+1:])
	}
	switch args[i] {
	case "8":
		return 8, nil
	case "32":
		return 32, nil
	}
	return 0, fmt.Errorf("%s: %w", args[i], fpga.ErrWidth)
}

func run(w io.Writer, r regs, args ...string) error {
	name, args := args[0], args[1:]
	nargs := func(max int) error {
		if len(args) > max {
			return fmt.Errorf("%v: unexpected", args[max:])
		}
		return nil
	}
	switch name {
	case "version":
		if err := nargs(0); err != nil {
			return err
		}
		v, err := r.GetReg(fpga.Version, 32)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%#08x\n", v)
	case "scratch":
		if err := nargs(1); err != nil {
			return err
		}
		if len(args) == 1 {
			v, err := number(args[0])
			if err != nil {
				return err
			}
			if err = r.SetReg(fpga.Scratch, v, 32); err != nil {
				return err
			}
		}
		v, err := r.GetReg(fpga.Scratch, 32)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%#08x\n", v)
	case "ready":
		if err := nargs(0); err != nil {
			return err
		}
		v, err := r.GetReg(fpga.XcvrReady, 32)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, v&1 == 1)
	case "getreg", "setreg":
		need := 1
		if name == "setreg" {
			need = 2
		}
		if len(args) < need {
			return fmt.Errorf("%s: missing arguments", name)
		}
		wd, err := width(args, need)
		if err != nil {
			return err
		}
		off, err := number(args[0])
		if err != nil {
			return err
		}
		if name == "setreg" {
			v, err := number(args[1])
			if err != nil {
				return err
			}
			if err = r.SetReg(off, v, wd); err != nil {
				return err
			}
		}
		v, err := r.GetReg(off, wd)
		if err != nil {
			return err
		}
		if wd == 8 {
			fmt.Fprintf(w, "%#04x = %#02x\n", off, v)
		} else {
			fmt.Fprintf(w, "%#04x = %#08x\n", off, v)
		}
	default:
		return fmt.Errorf("%s: unknown", name)
	}
	return nil
}

func dump(r regs, args ...string) (off uint32, b []byte, err error) {
	n := uint32(0x100)
	if len(args) > 2 {
		return 0, nil, fmt.Errorf("%v: unexpected", args[2:])
	}
	if len(args) > 0 {
		if off, err = number(args[0]); err != nil {
			return
		}
	}
	if len(args) > 1 {
		if n, err = number(args[1]); err != nil {
			return
		}
	} else if off < fpga.PortBlockSize && off+n > fpga.PortBlockSize {
		n = fpga.PortBlockSize - off
	}
	b, err = r.Dump(off, n)
	return
}
