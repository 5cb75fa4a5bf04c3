// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package fpgai2c

import (
	"sync"

	"github.com/platinasystems/i2c"
	"github.com/platinasystems/log"
	"github.com/platinasystems/midstone/fpga"
)

// Direct is the mux address of an entry wired straight to its physical
// bus.
const Direct uint8 = 0xff

// Stats counts the traffic of one physical bus.
type Stats struct {
	Transactions uint64
	Selects      uint64 // mux channel select and clear writes
	Hits         uint64 // accesses that found their channel selected
	Errors       uint64
}

// PhysicalBus is one FPGA I2C master with its lock and the mux channel
// it last selected.
type PhysicalBus struct {
	mutex sync.Mutex
	id    int
	m     master
	// mux is the address of the last mux written, Direct if none may
	// have a channel connected. channel is valid only if selected.
	mux      uint8
	channel  uint8
	selected bool
	stats    Stats
}

// Fabric owns the physical buses behind one FPGA.
type Fabric struct {
	buses [NumBuses]PhysicalBus
}

// NewFabric returns a fabric polling at most budget times per acknowledge;
// zero means DefaultBudget.
func NewFabric(regs fpga.Regs, budget int) *Fabric {
	if budget <= 0 {
		budget = DefaultBudget
	}
	f := new(Fabric)
	for i := range f.buses {
		pb := &f.buses[i]
		pb.id = i + 1
		pb.mux = Direct
		pb.m = master{
			regs:   regs,
			base:   Block(i + 1),
			budget: budget,
		}
	}
	return f
}

func (f *Fabric) bus(id int) (*PhysicalBus, error) {
	if id < 1 || id > NumBuses {
		return nil, InvalidRange
	}
	return &f.buses[id-1], nil
}

// Access runs one transaction for the logical port, first selecting the
// port's mux channel unless the bus already has it selected.
func (f *Fabric) Access(e Entry, port int, addr uint8, rw i2c.RW, cmd uint8,
	size i2c.SMBusSize, buf []byte) error {
	if !supported(size) {
		return &Error{"access", int(e.Bus), port, addr, Unsupported}
	}
	pb, err := f.bus(int(e.Bus))
	if err != nil {
		return &Error{"access", int(e.Bus), port, addr, err}
	}
	pb.mutex.Lock()
	defer pb.mutex.Unlock()

	pb.stats.Transactions++
	if e.Mux != Direct {
		if err = pb.selectChannel(uint8(port), e); err != nil {
			pb.stats.Errors++
			log.Print("daemon", "err", e.Name, ": ", err)
			return err
		}
	}
	if err = pb.m.transfer(uint8(port), addr, rw, cmd, size, buf); err != nil {
		pb.stats.Errors++
		return &Error{"access", pb.id, port, addr, err}
	}
	return nil
}

// selectChannel leaves only the entry's channel connected. Any other mux
// that may have a channel connected, even after a failed write, is
// cleared first.
func (pb *PhysicalBus) selectChannel(port uint8, e Entry) error {
	if pb.selected && pb.mux == e.Mux && pb.channel == e.Channel {
		pb.stats.Hits++
		return nil
	}
	pb.selected = false
	if pb.mux != Direct && pb.mux != e.Mux {
		prev := pb.mux
		pb.stats.Selects++
		err := pb.m.transfer(port, prev, i2c.Write, 0, i2c.Byte, nil)
		if err != nil {
			return &Error{"clear mux", pb.id, int(port), prev, err}
		}
	}
	pb.mux = e.Mux
	pb.stats.Selects++
	err := pb.m.transfer(port, e.Mux, i2c.Write, 1<<e.Channel, i2c.Byte, nil)
	if err != nil {
		return &Error{"select mux", pb.id, int(port), e.Mux, err}
	}
	pb.channel = e.Channel
	pb.selected = true
	return nil
}

// Stats returns a copy of the bus counters.
func (f *Fabric) Stats(bus int) (Stats, error) {
	pb, err := f.bus(bus)
	if err != nil {
		return Stats{}, err
	}
	pb.mutex.Lock()
	defer pb.mutex.Unlock()
	return pb.stats, nil
}

// Selected returns the cached mux address and channel of a bus.
func (f *Fabric) Selected(bus int) (mux, channel uint8, ok bool) {
	pb, err := f.bus(bus)
	if err != nil {
		return
	}
	pb.mutex.Lock()
	defer pb.mutex.Unlock()
	return pb.mux, pb.channel, pb.selected
}

// Invalidate forgets the selected channel but not its mux, so the next
// access to another mux still clears it first.
func (f *Fabric) Invalidate(bus int) error {
	pb, err := f.bus(bus)
	if err != nil {
		return err
	}
	pb.mutex.Lock()
	defer pb.mutex.Unlock()
	pb.selected = false
	return nil
}

// Reset forgets the selection of every bus after the muxes were reset
// and so have no channel connected.
func (f *Fabric) Reset() {
	for i := range f.buses {
		pb := &f.buses[i]
		pb.mutex.Lock()
		pb.mux = Direct
		pb.selected = false
		pb.mutex.Unlock()
	}
}

// SetFreq writes the frequency divider of a bus.
func (f *Fabric) SetFreq(bus int, div uint8) error {
	pb, err := f.bus(bus)
	if err != nil {
		return err
	}
	pb.mutex.Lock()
	defer pb.mutex.Unlock()
	pb.m.put(RegFreq, div)
	return nil
}
