// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package fpgai2c

// Register offsets of physical bus 1; bus N is at +(N-1)*BusStride.
const (
	RegFreq   uint32 = 0x0100
	RegCtrl   uint32 = 0x0104
	RegStatus uint32 = 0x0108
	RegData   uint32 = 0x010c
	RegPortID uint32 = 0x0110

	BusStride uint32 = 0x0100
	NumBuses         = 11
)

// Freq100kHz is the divider written to the frequency register when an
// adapter is created.
const Freq100kHz uint8 = 0x1f

// Status register bits.
const (
	StatusRXAK  uint = iota // received no acknowledge
	StatusMIF               // interrupt pending
	StatusSRW               // slave read/write
	StatusBCSTM             // broadcast match
	StatusMAL               // arbitration lost
	StatusMBB               // bus busy
	StatusMAAS              // addressed as slave
	StatusMCF               // transfer complete
)

// Control register bits.
const (
	CtrlBCST uint = 0 // broadcast
	CtrlRSTA uint = 2 // repeated start
	CtrlTXAK uint = 3 // no acknowledge on receive
	CtrlMTX  uint = 4 // transmit
	CtrlMSTA uint = 5 // master, clear for stop
	CtrlMIEN uint = 6 // interrupt enable
	CtrlMEN  uint = 7 // master enable
)

func bit(n uint) uint8 { return 1 << n }

// Block returns the register base of the given physical bus.
func Block(bus int) uint32 {
	return uint32(bus-1) * BusStride
}
