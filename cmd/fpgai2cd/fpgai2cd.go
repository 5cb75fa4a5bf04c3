// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package fpgai2cd owns the midstone100th2 FPGA. It registers the virtual
// I2C adapters, publishes FPGA, CPLD, EEPROM and transceiver port state to
// redis, and serves device access to the other commands over RPC.
package fpgai2cd

import (
	"context"
	"fmt"
	"net/rpc"
	"sync"
	"time"

	"github.com/platinasystems/atsock"
	"github.com/platinasystems/flags"
	"github.com/platinasystems/log"
	"github.com/platinasystems/midstone/cmd"
	"github.com/platinasystems/midstone/fpgai2c"
	"github.com/platinasystems/midstone/lang"
	"github.com/platinasystems/midstone/platform"
	"github.com/platinasystems/parms"
	"github.com/platinasystems/redis"
	"github.com/platinasystems/redis/publisher"
)

const Name = "fpgai2cd"

var DefaultPoll = 5 * time.Second

type Command struct {
	Info
	// Config is used in place of platform.DefaultConfig if its Budget
	// is set.
	Config platform.Config
	// MuxReset names the gpio pin, active low, that resets the muxes
	// of a hung bus.
	MuxReset string
	Init     func()
	init     sync.Once
}

func (*Command) String() string { return Name }

func (*Command) Usage() string {
	return Name + " [-board evt|production] [-poll DURATION] [-dynamic]"
}

func (*Command) Apropos() lang.Alt {
	return lang.Alt{
		lang.EnUS: "midstone100th2 fpga i2c daemon",
	}
}

func (*Command) Man() lang.Alt {
	return lang.Alt{
		lang.EnUS: `
DESCRIPTION
	Map the FPGA, register a virtual I2C adapter for every logical
	port and poll the transceiver ports, publishing changes to redis.

	Adapters are numbered from 10 in table order unless -dynamic is
	given, which takes the lowest free numbers instead.

OPTIONS
	-board	evt (default) or production mux channel order
	-poll	port poll interval, e.g. 5s
	-dynamic
		dynamic adapter numbering

REDIS
	fpgai2cd.poll, fpga.scratch, fpga.cpld_run, CPLD.scratch and the
	writable PORT.ATTR fields may be set with hset.`,
	}
}

func (*Command) Kind() cmd.Kind { return cmd.Daemon }

func (c *Command) Main(args ...string) error {
	if c.Init != nil {
		c.init.Do(c.Init)
	}

	flag, args := flags.New(args, "-dynamic")
	parm, args := parms.New(args, "-board", "-poll")
	if len(args) > 0 {
		return fmt.Errorf("%v: unexpected", args)
	}

	conf := c.Config
	if conf.Budget == 0 {
		conf = platform.DefaultConfig
	}
	var err error
	if s := parm.ByName["-board"]; len(s) > 0 {
		if conf.Board, err = fpgai2c.ParseBoard(s); err != nil {
			return err
		}
	}
	if flag.ByName["-dynamic"] {
		conf.Offset = fpgai2c.Dynamic
	}
	poll := DefaultPoll
	if s := parm.ByName["-poll"]; len(s) > 0 {
		if poll, err = parsePoll(s); err != nil {
			return err
		}
	}

	if err = redis.IsReady(); err != nil {
		return err
	}

	stop := c.stopper()

	p, err := platform.Open(conf)
	if err != nil {
		return err
	}
	defer p.Close()

	pub, err := publisher.New()
	if err != nil {
		return err
	}
	defer pub.Close()

	c.Info.setup(p, pub, poll, c.MuxReset)

	if c.rpc, err = atsock.NewRpcServer(Name); err != nil {
		return err
	}
	defer c.rpc.Close()

	rpc.Register(&c.Info)
	rpc.Register(&Req{&c.Info})
	for _, prefix := range c.prefixes() {
		err = redis.Assign(redis.DefaultHash+":"+prefix+".", Name, "Info")
		if err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-stop
		cancel()
	}()

	c.inventory()

	t := time.NewTimer(poll)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return nil
		case <-t.C:
			if err = c.update(ctx); err != nil {
				log.Print("daemon", "err", err)
			}
			t.Reset(c.interval())
		}
	}
}

func (c *Command) Close() error {
	close(c.stopper())
	return nil
}
