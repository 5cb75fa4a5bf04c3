// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package fpgai2cd

import (
	"fmt"
	"net/rpc"
	"strconv"
	"strings"

	"github.com/platinasystems/atsock"
	"github.com/platinasystems/i2c"
	"github.com/platinasystems/midstone/fpgai2c"
)

// Req serves adapter transactions and FPGA register access.
type Req struct {
	i *Info
}

type DoArgs struct {
	// Port is an entry name, e.g. QSFP3, or an adapter number.
	Port string
	Addr uint8
	RW   i2c.RW
	Cmd  uint8
	Size i2c.SMBusSize
	Data i2c.SMBusData
}

type DoReply struct {
	Data i2c.SMBusData
}

type RegArgs struct {
	Offset uint32
	Value  uint32
	Width  int
	Write  bool
	// Len, if non-zero, dumps that many bytes of the port block.
	Len uint32
}

type RegReply struct {
	Value uint32
	Data  []byte
}

func (r *Req) adapter(port string) (*fpgai2c.Adapter, error) {
	if nr, err := strconv.Atoi(port); err == nil {
		if a, found := r.i.plat.Registry.ByNr(nr); found {
			return a, nil
		}
	} else if a, found := r.i.plat.Registry.ByName(strings.ToUpper(port)); found {
		return a, nil
	}
	return nil, fmt.Errorf("%s: no such adapter", port)
}

func (r *Req) Do(args DoArgs, reply *DoReply) error {
	a, err := r.adapter(args.Port)
	if err != nil {
		return err
	}
	reply.Data = args.Data
	return r.i.retry(a.Entry.Bus, func() error {
		return a.Do(args.Addr, args.RW, args.Cmd, args.Size, &reply.Data)
	})
}

func (r *Req) Reg(args RegArgs, reply *RegReply) (err error) {
	f := r.i.plat.FPGA
	switch {
	case args.Len > 0:
		reply.Data, err = f.Dump(args.Offset, args.Len)
	case args.Write:
		err = f.SetReg(args.Offset, args.Value, args.Width)
	default:
		reply.Value, err = f.GetReg(args.Offset, args.Width)
	}
	return
}

func (r *Req) Stats(bus int, reply *fpgai2c.Stats) (err error) {
	*reply, err = r.i.plat.Fabric.Stats(bus)
	return
}

// Adapters lists the registered adapters as "NR ENTRY" lines.
func (r *Req) Adapters(_ int, reply *[]string) error {
	for _, a := range r.i.plat.Registry.Adapters() {
		*reply = append(*reply, fmt.Sprint(a.Nr, " ", a.Entry))
	}
	return nil
}

// Client is an RPC connection to the daemon.
type Client struct {
	*rpc.Client
}

func Dial() (*Client, error) {
	c, err := atsock.NewRpcClient(Name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", Name, err)
	}
	return &Client{c}, nil
}

// Bus returns the named port or adapter number as an fpgai2c.Bus.
func (c *Client) Bus(port string) fpgai2c.Bus {
	return &remoteBus{c, port}
}

func (c *Client) GetReg(offset uint32, width int) (uint32, error) {
	var reply RegReply
	err := c.Call("Req.Reg", RegArgs{Offset: offset, Width: width}, &reply)
	return reply.Value, err
}

func (c *Client) SetReg(offset, v uint32, width int) error {
	var reply RegReply
	return c.Call("Req.Reg", RegArgs{
		Offset: offset,
		Value:  v,
		Width:  width,
		Write:  true,
	}, &reply)
}

func (c *Client) Dump(offset, n uint32) ([]byte, error) {
	var reply RegReply
	err := c.Call("Req.Reg", RegArgs{Offset: offset, Len: n}, &reply)
	return reply.Data, err
}

func (c *Client) Stats(bus int) (fpgai2c.Stats, error) {
	var st fpgai2c.Stats
	err := c.Call("Req.Stats", bus, &st)
	return st, err
}

func (c *Client) Adapters() ([]string, error) {
	var l []string
	err := c.Call("Req.Adapters", 0, &l)
	return l, err
}

type remoteBus struct {
	c    *Client
	port string
}

func (b *remoteBus) Do(addr uint8, rw i2c.RW, cmd uint8, size i2c.SMBusSize,
	data *i2c.SMBusData) error {
	var reply DoReply
	err := b.c.Call("Req.Do", DoArgs{
		Port: b.port,
		Addr: addr,
		RW:   rw,
		Cmd:  cmd,
		Size: size,
		Data: *data,
	}, &reply)
	if err != nil {
		return err
	}
	*data = reply.Data
	return nil
}
