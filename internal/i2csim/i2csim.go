// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package i2csim models the midstone100th2 FPGA register window: the
// eleven I2C masters, the PCA9548 muxes hanging off them, and the SMBus
// devices behind those, plus plain memory for every other register.
//
// The master model follows the register protocol closely enough to run
// the fpgai2c engine unmodified: a rising MEN with MSTA starts, a DATA
// write transmits, dropping MTX while addressed for read arms receive, a
// DATA read while MSTA is still set fetches the next byte, and dropping
// MSTA stops.
package i2csim

import (
	"encoding/binary"
	"sync"
)

const (
	masterBase   = 0x0100
	masterStride = 0x0100
	numMasters   = 11
	memSize      = 0x5000

	regFreq   = 0x00
	regCtrl   = 0x04
	regStatus = 0x08
	regData   = 0x0c
	regPortID = 0x10
)

const (
	srRXAK = 1 << 0
	srMIF  = 1 << 1
	srMAL  = 1 << 4
	srMCF  = 1 << 7

	crMTX  = 1 << 4
	crMSTA = 1 << 5
	crMEN  = 1 << 7
)

// Device is an SMBus target.
type Device interface {
	// Start is called when the device acknowledges its address.
	Start(read bool)
	Write(b byte)
	Read() byte
	Stop()
}

// FPGA implements fpga.Regs.
type FPGA struct {
	mutex sync.Mutex
	mem   [memSize]byte
	buses [numMasters]*Bus
}

func New() *FPGA {
	s := new(FPGA)
	for i := range s.buses {
		s.buses[i] = &Bus{
			id:      i + 1,
			devices: make(map[uint8]Device),
			muxes:   make(map[uint8]*Mux),
		}
	}
	return s
}

// Bus returns the model of physical master n, 1 based.
func (s *FPGA) Bus(n int) *Bus { return s.buses[n-1] }

// ResetMuxes models a pulse of the board mux reset line: every mux on
// every bus disconnects all of its channels.
func (s *FPGA) ResetMuxes() {
	for _, b := range s.buses {
		b.mutex.Lock()
		for _, m := range b.muxes {
			m.mask = 0
		}
		b.mutex.Unlock()
	}
}

func (s *FPGA) master(offset uint32) (*Bus, uint32) {
	if offset < masterBase || offset >= masterBase+numMasters*masterStride {
		return nil, 0
	}
	rel := offset - masterBase
	reg := rel % masterStride
	switch reg {
	case regFreq, regCtrl, regStatus, regData, regPortID:
		return s.buses[rel/masterStride], reg
	}
	return nil, 0
}

func (s *FPGA) Read8(offset uint32) uint8 {
	if b, reg := s.master(offset); b != nil {
		return b.read(reg)
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.mem[offset]
}

func (s *FPGA) Write8(offset uint32, v uint8) {
	if b, reg := s.master(offset); b != nil {
		b.write(reg, v)
		return
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.mem[offset] = v
}

func (s *FPGA) Read32(offset uint32) uint32 {
	if b, reg := s.master(offset); b != nil {
		return uint32(b.read(reg))
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return binary.LittleEndian.Uint32(s.mem[offset:])
}

func (s *FPGA) Write32(offset uint32, v uint32) {
	if b, reg := s.master(offset); b != nil {
		b.write(reg, uint8(v))
		return
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	binary.LittleEndian.PutUint32(s.mem[offset:], v)
}

type state int

const (
	idle state = iota
	addressing
	addressed
	nacked
)

// Bus is one modeled I2C master with its attached devices.
type Bus struct {
	mutex sync.Mutex
	id    int

	freq, ctrl, status, data, port uint8

	state   state
	dev     Device
	reading bool

	devices map[uint8]Device
	muxes   map[uint8]*Mux

	hang       bool
	lose       int
	polls      uint64
	contention int
	log        []Transfer
}

// Transfer records one addressed exchange.
type Transfer struct {
	Port uint8
	Addr uint8
	Read bool
}

// Attach places a device directly on the bus.
func (b *Bus) Attach(addr uint8, dev Device) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.devices[addr] = dev
}

// AddMux places a PCA9548 at addr.
func (b *Bus) AddMux(addr uint8) *Mux {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	m := &Mux{}
	b.muxes[addr] = m
	return m
}

// Hang stops the master from ever reporting completion.
func (b *Bus) Hang(hang bool) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.hang = hang
}

// LoseArbitration flags arbitration lost on the next n bytes.
func (b *Bus) LoseArbitration(n int) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.lose = n
}

// Polls counts status register reads.
func (b *Bus) Polls() uint64 {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.polls
}

func (b *Bus) Freq() uint8 {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.freq
}

func (b *Bus) Ctrl() uint8 {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.ctrl
}

func (b *Bus) PortID() uint8 {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.port
}

// Contention counts addresses answered on more than one open channel.
func (b *Bus) Contention() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.contention
}

// Selects counts control writes to every mux on the bus.
func (b *Bus) Selects() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	n := 0
	for _, m := range b.muxes {
		n += len(m.writes)
	}
	return n
}

// Log returns the addressed transfers so far.
func (b *Bus) Log() []Transfer {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return append([]Transfer(nil), b.log...)
}

func (b *Bus) read(reg uint32) uint8 {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	switch reg {
	case regFreq:
		return b.freq
	case regCtrl:
		return b.ctrl
	case regStatus:
		b.polls++
		return b.status
	case regData:
		v := b.data
		if b.state == addressed && b.reading && !b.hang &&
			b.ctrl&crMTX == 0 && b.ctrl&crMSTA != 0 {
			b.data = b.dev.Read()
			b.done(0)
		}
		return v
	case regPortID:
		return b.port
	}
	return 0
}

func (b *Bus) write(reg uint32, v uint8) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	switch reg {
	case regFreq:
		b.freq = v
	case regCtrl:
		b.writeCtrl(v)
	case regStatus:
		b.status = v
	case regData:
		b.writeData(v)
	case regPortID:
		b.port = v
	}
}

func (b *Bus) writeCtrl(v uint8) {
	prev := b.ctrl
	b.ctrl = v
	if v&crMEN == 0 {
		return
	}
	switch {
	case prev&crMEN == 0 && v&crMSTA != 0:
		b.state = addressing
	case prev&crMSTA != 0 && v&crMSTA == 0:
		b.stop()
	case prev&crMTX != 0 && v&crMTX == 0 && b.state == addressed && b.reading:
		if !b.hang {
			b.done(0)
		}
	}
}

func (b *Bus) writeData(v uint8) {
	b.data = v
	if b.ctrl&crMTX == 0 || b.hang {
		return
	}
	switch b.state {
	case addressing:
		addr, read := v>>1, v&1 == 1
		b.log = append(b.log, Transfer{b.port, addr, read})
		dev := b.resolve(addr)
		if dev == nil {
			b.state = nacked
			b.done(srRXAK)
			return
		}
		b.dev, b.reading, b.state = dev, read, addressed
		dev.Start(read)
		b.done(0)
	case addressed:
		if b.reading {
			b.done(srRXAK)
			return
		}
		b.dev.Write(v)
		b.done(0)
	default:
		b.done(srRXAK)
	}
}

func (b *Bus) done(flags uint8) {
	b.status = srMCF | srMIF | flags
	if b.lose > 0 {
		b.lose--
		b.status |= srMAL
	}
}

func (b *Bus) stop() {
	if b.dev != nil {
		b.dev.Stop()
	}
	b.dev, b.reading, b.state = nil, false, idle
}

func (b *Bus) resolve(addr uint8) Device {
	if dev, found := b.devices[addr]; found {
		return dev
	}
	if m, found := b.muxes[addr]; found {
		return m
	}
	var dev Device
	n := 0
	for _, m := range b.muxes {
		for ch := uint(0); ch < 8; ch++ {
			if m.mask&(1<<ch) == 0 {
				continue
			}
			if d, found := m.channels[ch][addr]; found {
				dev = d
				n++
			}
		}
	}
	if n > 1 {
		b.contention++
		return nil
	}
	return dev
}

// Mux is a PCA9548; its control register is the channel mask.
type Mux struct {
	mask     uint8
	channels [8]map[uint8]Device
	writes   []uint8
}

// Attach places a device on a mux channel.
func (m *Mux) Attach(channel int, addr uint8, dev Device) {
	if m.channels[channel] == nil {
		m.channels[channel] = make(map[uint8]Device)
	}
	m.channels[channel][addr] = dev
}

func (m *Mux) Start(bool) {}
func (m *Mux) Stop()      {}
func (m *Mux) Read() byte { return m.mask }

func (m *Mux) Write(v byte) {
	m.mask = v
	m.writes = append(m.writes, v)
}

// Writes returns the control values written so far. Call only while no
// transaction is in flight.
func (m *Mux) Writes() []uint8 { return append([]uint8(nil), m.writes...) }

// Mask returns the current channel mask.
func (m *Mux) Mask() uint8 { return m.mask }
