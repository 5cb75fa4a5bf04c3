// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package i2csim

// Regs is a 256 byte register file; the first byte written after the
// address sets the register pointer, which increments on every access.
type Regs struct {
	Mem     [256]byte
	ptr     uint8
	pointer bool
	Starts  int
}

func (r *Regs) Start(read bool) {
	r.Starts++
	r.pointer = !read
}

func (r *Regs) Write(b byte) {
	if r.pointer {
		r.ptr, r.pointer = b, false
		return
	}
	r.Mem[r.ptr] = b
	r.ptr++
}

func (r *Regs) Read() byte {
	b := r.Mem[r.ptr]
	r.ptr++
	return b
}

func (r *Regs) Stop() {}

// Eeprom is a 16 bit addressed serial eeprom.
type Eeprom struct {
	Mem  []byte
	ptr  int
	nptr int
}

func NewEeprom(size int) *Eeprom {
	return &Eeprom{Mem: make([]byte, size)}
}

func (e *Eeprom) Start(read bool) {
	if !read {
		e.nptr = 0
	}
}

func (e *Eeprom) Write(b byte) {
	switch e.nptr {
	case 0:
		e.ptr = int(b) << 8
		e.nptr++
	case 1:
		e.ptr |= int(b)
		e.nptr++
	default:
		e.Mem[e.ptr%len(e.Mem)] = b
		e.ptr++
	}
}

func (e *Eeprom) Read() byte {
	b := e.Mem[e.ptr%len(e.Mem)]
	e.ptr++
	return b
}

func (e *Eeprom) Stop() {}

// Gate is a device whose writes block until Open is closed. Entered is
// signaled on each blocked write.
type Gate struct {
	Regs
	Entered chan struct{}
	Open    chan struct{}
}

func NewGate() *Gate {
	return &Gate{
		Entered: make(chan struct{}, 1),
		Open:    make(chan struct{}),
	}
}

func (g *Gate) Write(b byte) {
	select {
	case g.Entered <- struct{}{}:
	default:
	}
	<-g.Open
	g.Regs.Write(b)
}
