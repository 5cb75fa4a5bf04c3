// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package fpgai2c

import (
	"github.com/platinasystems/i2c"
	"github.com/platinasystems/midstone/fpga"
)

// DefaultBudget is the number of status polls before a wait for
// acknowledge gives up.
const DefaultBudget = 50000

// master drives one FPGA I2C master register block. The caller must hold
// the physical bus lock.
type master struct {
	regs   fpga.Regs
	base   uint32
	budget int
}

func (m *master) get(reg uint32) uint8     { return m.regs.Read8(m.base + reg) }
func (m *master) put(reg uint32, v uint8)  { m.regs.Write8(m.base+reg, v) }
func (m *master) set(reg uint32, n uint)   { m.put(reg, m.get(reg)|bit(n)) }
func (m *master) clear(reg uint32, n uint) { m.put(reg, m.get(reg)&^bit(n)) }

func supported(size i2c.SMBusSize) bool {
	switch size {
	case i2c.Quick, i2c.Byte, i2c.ByteData, i2c.WordData, i2c.BlockData:
		return true
	}
	return false
}

// check validates a transaction before any register is touched.
func check(rw i2c.RW, size i2c.SMBusSize, buf []byte) error {
	if !supported(size) {
		return Unsupported
	}
	var need int
	if rw == i2c.Write {
		switch size {
		case i2c.ByteData:
			need = 1
		case i2c.WordData:
			need = 2
		case i2c.BlockData:
			if len(buf) < 1 {
				return BlockLength
			}
			need = 1 + int(buf[0])
		}
	} else {
		switch size {
		case i2c.Byte, i2c.ByteData:
			need = 1
		case i2c.WordData:
			need = 2
		case i2c.BlockData:
			need = 1
		}
	}
	if len(buf) < need {
		return BlockLength
	}
	return nil
}

// waitAck polls status until the master signals an interrupt, or, while
// receiving, a completed transfer. Status is cleared on every exit.
func (m *master) waitAck(writing bool) error {
	var status uint8
	timedout := false
	for tick := 1; ; tick++ {
		status = m.get(RegStatus)
		if tick > m.budget {
			timedout = true
			break
		}
		if status&bit(StatusMIF) != 0 {
			break
		}
		if !writing && status&bit(StatusMCF) != 0 {
			break
		}
	}
	status = m.get(RegStatus)
	m.put(RegStatus, 0)
	switch {
	case timedout:
		return Timeout
	case status&bit(StatusMCF) == 0:
		return IncompleteTransfer
	case status&bit(StatusMAL) != 0:
		return ArbitrationLost
	case status&bit(StatusRXAK) != 0 && writing:
		m.put(RegCtrl, bit(CtrlMEN))
		return NoAck
	}
	return nil
}

// transfer runs one SMBus transaction. Block data is buf[0] for the count
// followed by the data bytes; other sizes use buf[0:1] or buf[0:2].
func (m *master) transfer(port uint8, addr uint8, rw i2c.RW, cmd uint8,
	size i2c.SMBusSize, buf []byte) (err error) {
	if err = check(rw, size, buf); err != nil {
		return
	}
	defer m.put(RegCtrl, bit(CtrlMEN))

	m.put(RegPortID, port)
	m.put(RegStatus, 0)
	m.put(RegCtrl, bit(CtrlMIEN)|bit(CtrlMTX)|bit(CtrlMSTA))
	m.set(RegCtrl, CtrlMEN)

	if rw == i2c.Read && (size == i2c.Quick || size == i2c.Byte) {
		m.put(RegData, addr<<1|1)
	} else {
		m.put(RegData, addr<<1)
	}
	if err = m.waitAck(true); err != nil {
		return
	}

	if size == i2c.ByteData || size == i2c.WordData ||
		size == i2c.BlockData || (size == i2c.Byte && rw == i2c.Write) {
		m.put(RegData, cmd)
		if err = m.waitAck(true); err != nil {
			return
		}
	}

	if rw == i2c.Write {
		var out []byte
		switch size {
		case i2c.ByteData:
			out = buf[:1]
		case i2c.WordData:
			out = buf[:2]
		case i2c.BlockData:
			out = buf[:1+int(buf[0])]
		}
		for _, b := range out {
			m.put(RegData, b)
			if err = m.waitAck(true); err != nil {
				return
			}
		}
	} else {
		switch size {
		case i2c.ByteData, i2c.WordData, i2c.BlockData:
			m.clear(RegCtrl, CtrlMEN)
			m.put(RegCtrl, bit(CtrlMIEN)|bit(CtrlMTX)|
				bit(CtrlMSTA)|bit(CtrlRSTA))
			m.set(RegCtrl, CtrlMEN)
			m.put(RegData, addr<<1|1)
			if err = m.waitAck(true); err != nil {
				return
			}
		}
		if size != i2c.Quick {
			err = m.receive(size, buf)
		}
	}
	m.clear(RegCtrl, CtrlMSTA)
	return
}

// receive reads the data phase. The NACK goes out with the second to last
// byte and the stop with the last; a block's count is its first byte.
func (m *master) receive(size i2c.SMBusSize, buf []byte) error {
	cnt := 1
	switch size {
	case i2c.WordData:
		cnt = 2
	case i2c.BlockData:
		cnt = 3
	}
	m.put(RegCtrl, bit(CtrlMEN)|bit(CtrlMIEN)|bit(CtrlMSTA))
	for i := -1; i < cnt; i++ {
		if err := m.waitAck(false); err != nil {
			return err
		}
		if i == cnt-2 {
			m.set(RegCtrl, CtrlTXAK)
		}
		if i < 0 {
			m.get(RegData)
			continue
		}
		if i == cnt-1 {
			m.clear(RegCtrl, CtrlMSTA)
		}
		buf[i] = m.get(RegData)
		if size == i2c.BlockData && i == 0 {
			cnt = int(buf[0]) + 1
			if cnt > len(buf) {
				return BlockLength
			}
		}
	}
	return nil
}
