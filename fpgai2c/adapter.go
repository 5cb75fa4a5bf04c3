// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package fpgai2c

import (
	"fmt"
	"sort"

	"github.com/platinasystems/i2c"
	"github.com/platinasystems/log"
)

// Bus is a logical port as seen by device code. Adapters and RPC clients
// of the daemon satisfy it.
type Bus interface {
	Do(addr uint8, rw i2c.RW, cmd uint8, size i2c.SMBusSize,
		data *i2c.SMBusData) error
}

// Functionality bits, as reported by the kernel adapter.
const (
	FuncSMBusQuick     uint32 = 0x00010000
	FuncSMBusByte      uint32 = 0x00060000
	FuncSMBusByteData  uint32 = 0x00180000
	FuncSMBusWordData  uint32 = 0x00600000
	FuncSMBusBlockData uint32 = 0x03000000
)

// Dynamic requests the lowest free adapter number instead of
// offset + port id.
const Dynamic = -1

// Adapter is the virtual bus of one logical port.
type Adapter struct {
	Name  string
	Nr    int
	Port  int
	Entry Entry

	fabric *Fabric
}

func (a *Adapter) String() string { return a.Name }

func (a *Adapter) Do(addr uint8, rw i2c.RW, cmd uint8, size i2c.SMBusSize,
	data *i2c.SMBusData) error {
	var buf []byte
	if data != nil {
		buf = data[:]
	}
	return a.fabric.Access(a.Entry, a.Port, addr, rw, cmd, size, buf)
}

// Transfer is Do with a caller sized buffer for blocks longer than
// i2c.BlockMax.
func (a *Adapter) Transfer(addr uint8, rw i2c.RW, cmd uint8,
	size i2c.SMBusSize, buf []byte) error {
	return a.fabric.Access(a.Entry, a.Port, addr, rw, cmd, size, buf)
}

func (*Adapter) Functionality() uint32 {
	return FuncSMBusQuick | FuncSMBusByte | FuncSMBusByteData |
		FuncSMBusWordData | FuncSMBusBlockData
}

// Registry holds the adapters created for a table.
type Registry struct {
	Table  Table
	Offset int
	// Release, if set, is called as each adapter is unregistered.
	Release func(*Adapter)

	fabric *Fabric
	byPort []*Adapter
	byNr   map[int]*Adapter
	order  []*Adapter
}

func NewRegistry(f *Fabric, t Table, offset int) *Registry {
	return &Registry{
		Table:  t,
		Offset: offset,
		fabric: f,
		byPort: make([]*Adapter, len(t)),
		byNr:   make(map[int]*Adapter),
	}
}

// Register creates an adapter for every entry of the table. An entry that
// fails is logged and skipped; the returned count is of those added.
func Register(f *Fabric, t Table, offset int) (*Registry, int) {
	r := NewRegistry(f, t, offset)
	return r, r.AddAll()
}

// AddAll adds every port of the table not yet registered.
func (r *Registry) AddAll() int {
	n := 0
	for port := range r.Table {
		if r.byPort[port] != nil {
			continue
		}
		if _, err := r.Add(port); err != nil {
			log.Print("daemon", "err", err)
			continue
		}
		n++
	}
	return n
}

// Add creates and registers the adapter of one port and sets its bus to
// 100kHz.
func (r *Registry) Add(port int) (*Adapter, error) {
	if port < 0 || port >= len(r.Table) {
		return nil, fmt.Errorf("port %d: %w", port, InvalidRange)
	}
	if r.byPort[port] != nil {
		return nil, fmt.Errorf("port %d: already registered", port)
	}
	e := r.Table[port]
	if err := e.Valid(); err != nil {
		return nil, fmt.Errorf("port %d: %w", port, err)
	}
	a := &Adapter{
		Name:   "SMBus I2C Adapter PortID: " + e.Name,
		Port:   port,
		Entry:  e,
		fabric: r.fabric,
	}
	if r.Offset == Dynamic {
		for a.Nr = 0; r.byNr[a.Nr] != nil; a.Nr++ {
		}
	} else {
		a.Nr = r.Offset + port
		if r.byNr[a.Nr] != nil {
			return nil, fmt.Errorf("%s: adapter %d busy", e.Name, a.Nr)
		}
	}
	if err := r.fabric.SetFreq(e.Bus, Freq100kHz); err != nil {
		return nil, fmt.Errorf("%s: %w", e.Name, err)
	}
	r.byPort[port] = a
	r.byNr[a.Nr] = a
	r.order = append(r.order, a)
	return a, nil
}

// Port returns the adapter of a port id, or nil if it isn't registered.
func (r *Registry) Port(port int) *Adapter {
	if port < 0 || port >= len(r.byPort) {
		return nil
	}
	return r.byPort[port]
}

func (r *Registry) ByName(name string) (*Adapter, bool) {
	port, found := r.Table.Index(name)
	if !found || r.byPort[port] == nil {
		return nil, false
	}
	return r.byPort[port], true
}

func (r *Registry) ByNr(nr int) (*Adapter, bool) {
	a, found := r.byNr[nr]
	return a, found
}

// Adapters lists the registered adapters by number.
func (r *Registry) Adapters() []*Adapter {
	l := make([]*Adapter, 0, len(r.byNr))
	for _, a := range r.byNr {
		l = append(l, a)
	}
	sort.Slice(l, func(i, j int) bool { return l[i].Nr < l[j].Nr })
	return l
}

// Close unregisters all adapters in reverse order of registration.
func (r *Registry) Close() error {
	for i := len(r.order) - 1; i >= 0; i-- {
		a := r.order[i]
		if r.Release != nil {
			r.Release(a)
		}
		delete(r.byNr, a.Nr)
		r.byPort[a.Port] = nil
	}
	r.order = r.order[:0]
	return nil
}
