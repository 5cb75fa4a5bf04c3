// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package vi2c reads and writes devices behind the FPGA virtual adapters
// through fpgai2cd.
package vi2c

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/platinasystems/flags"
	"github.com/platinasystems/i2c"
	"github.com/platinasystems/midstone/cmd/fpgai2cd"
	"github.com/platinasystems/midstone/fpgai2c"
	"github.com/platinasystems/midstone/lang"
)

type conn interface {
	Bus(port string) fpgai2c.Bus
	Adapters() ([]string, error)
	Stats(bus int) (fpgai2c.Stats, error)
	Close() error
}

type Command struct {
	// dial is replaced by tests.
	dial func() (conn, error)
}

func (Command) String() string { return "vi2c" }

func (Command) Usage() string {
	return `
	vi2c [-w | -b] PORT.ADDR[.BEGIN][-END] [VALUE]...
	vi2c -q PORT.ADDR
	vi2c -l
	vi2c -n`
}

func (Command) Apropos() lang.Alt {
	return lang.Alt{
		lang.EnUS: "access devices on the fpga virtual i2c adapters",
	}
}

func (Command) Man() lang.Alt {
	return lang.Alt{
		lang.EnUS: `
DESCRIPTION
	PORT is a logical port name, e.g. QSFP3 or CPLD, or an adapter
	number. ADDR, BEGIN, END and VALUE are hex.

	Without a register this is a byte transaction; with one, byte data
	or, with -w, word data. A VALUE writes each register of the range.

OPTIONS
	-w	word data
	-b	block data; the VALUEs are the block to write
	-q	quick write, only checks that ADDR acknowledges
	-l	list the adapters
	-n	print the transaction, mux select and cache hit counters
		of each physical bus

EXAMPLES
	vi2c CPLD.30.0
	vi2c CPLD_B.d.0-7
	vi2c QSFP3.50.7f 0`,
	}
}

type mode int

const (
	byteMode mode = iota
	wordMode
	blockMode
	quickMode
)

func (c Command) Main(args ...string) error {
	flag, args := flags.New(args, "-w", "-b", "-q", "-l", "-n")
	m := byteMode
	switch {
	case flag.ByName["-w"]:
		m = wordMode
	case flag.ByName["-b"]:
		m = blockMode
	case flag.ByName["-q"]:
		m = quickMode
	}
	dial := c.dial
	if dial == nil {
		dial = func() (conn, error) { return fpgai2cd.Dial() }
	}
	cl, err := dial()
	if err != nil {
		return err
	}
	defer cl.Close()
	switch {
	case flag.ByName["-l"]:
		return list(os.Stdout, cl)
	case flag.ByName["-n"]:
		return stats(os.Stdout, cl)
	}
	return access(os.Stdout, cl, m, args...)
}

func list(w io.Writer, cl conn) error {
	l, err := cl.Adapters()
	if err != nil {
		return err
	}
	for _, s := range l {
		fmt.Fprintln(w, s)
	}
	return nil
}

func stats(w io.Writer, cl conn) error {
	fmt.Fprintf(w, "%-4s %12s %12s %12s %8s\n", "bus", "transactions",
		"selects", "hits", "errors")
	for bus := 1; bus <= fpgai2c.NumBuses; bus++ {
		st, err := cl.Stats(bus)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%-4d %12d %12d %12d %8d\n", bus,
			st.Transactions, st.Selects, st.Hits, st.Errors)
	}
	return nil
}

type target struct {
	port       string
	addr       uint8
	begin, end uint8
	hasReg     bool
}

func parseTarget(s string) (t target, err error) {
	dot := strings.IndexByte(s, '.')
	if dot <= 0 {
		return t, fmt.Errorf("%s: invalid PORT.ADDR[.REG]", s)
	}
	t.port = s[:dot]
	s = s[dot+1:]
	_, err = fmt.Sscanf(s, "%x.%x-%x", &t.addr, &t.begin, &t.end)
	if err == nil {
		t.hasReg = true
	} else if _, err = fmt.Sscanf(s, "%x.%x", &t.addr, &t.begin); err == nil {
		t.end = t.begin
		t.hasReg = true
	} else if _, err = fmt.Sscanf(s, "%x", &t.addr); err != nil {
		return t, fmt.Errorf("%s: invalid PORT.ADDR[.REG]: %v", s, err)
	}
	if t.addr > 0x7f {
		return t, fmt.Errorf("%#x: invalid address", t.addr)
	}
	if t.end < t.begin {
		return t, fmt.Errorf("%x-%x: invalid range", t.begin, t.end)
	}
	return t, nil
}

func access(w io.Writer, cl conn, m mode, args ...string) error {
	if len(args) == 0 {
		return fmt.Errorf("PORT.ADDR[.REG]: missing")
	}
	if len(args) > 2 && m != blockMode {
		return fmt.Errorf("%v: unexpected", args[2:])
	}
	t, err := parseTarget(args[0])
	if err != nil {
		return err
	}
	bus := cl.Bus(t.port)
	var data i2c.SMBusData
	if m == quickMode {
		if t.hasReg || len(args) > 1 {
			return fmt.Errorf("%v: unexpected", args)
		}
		if err = bus.Do(t.addr, i2c.Write, 0, i2c.Quick, &data); err != nil {
			return err
		}
		fmt.Fprintf(w, "%s.%02x: ack\n", t.port, t.addr)
		return nil
	}
	rw := i2c.Read
	if m == blockMode {
		if !t.hasReg || t.end != t.begin {
			return fmt.Errorf("%s: block needs one register", args[0])
		}
		if len(args)-1 > i2c.BlockMax {
			return fmt.Errorf("%d values: block too long", len(args)-1)
		}
		for i, s := range args[1:] {
			if _, err = fmt.Sscanf(s, "%x", &data[1+i]); err != nil {
				return fmt.Errorf("%s: invalid value: %v", s, err)
			}
		}
		if len(args) > 1 {
			rw = i2c.Write
			data[0] = uint8(len(args) - 1)
		}
		err = bus.Do(t.addr, rw, t.begin, i2c.BlockData, &data)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s.%02x.%02x = % x\n", t.port, t.addr, t.begin,
			data[1:1+int(data[0])])
		return nil
	}
	if len(args) > 1 {
		var v uint16
		if _, err = fmt.Sscanf(args[1], "%x", &v); err != nil {
			return fmt.Errorf("%s: invalid value: %v", args[1], err)
		}
		rw = i2c.Write
		data[0], data[1] = uint8(v), uint8(v>>8)
	}
	if !t.hasReg {
		if err = bus.Do(t.addr, rw, data[0], i2c.Byte, &data); err != nil {
			return err
		}
		fmt.Fprintf(w, "%s.%02x = %02x\n", t.port, t.addr, data[0])
		return nil
	}
	size := i2c.ByteData
	if m == wordMode {
		size = i2c.WordData
	}
	for reg := int(t.begin); reg <= int(t.end); reg++ {
		if err = bus.Do(t.addr, rw, uint8(reg), size, &data); err != nil {
			return err
		}
		if m == wordMode {
			fmt.Fprintf(w, "%s.%02x.%02x = %04x\n", t.port, t.addr,
				reg, uint16(data[1])<<8|uint16(data[0]))
		} else {
			fmt.Fprintf(w, "%s.%02x.%02x = %02x\n", t.port, t.addr,
				reg, data[0])
		}
	}
	return nil
}
