// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package fpga

// Regs is the memory mapped register window of the FPGA BAR. Offsets are
// byte offsets from the start of BAR 0.
type Regs interface {
	Read8(offset uint32) uint8
	Write8(offset uint32, v uint8)
	Read32(offset uint32) uint32
	Write32(offset uint32, v uint32)
}

const (
	Version   uint32 = 0x0000
	Scratch   uint32 = 0x0004
	XcvrReady uint32 = 0x000c
	// Bit 0 clear holds the switch CPLDs in reset.
	CpldReset uint32 = 0x0030

	// Front panel port management block, one 0x10 stride per port.
	PortCtrl      uint32 = 0x4000
	PortStatus    uint32 = 0x4004
	PortIntStatus uint32 = 0x4008
	PortIntMask   uint32 = 0x400c
	PortStride    uint32 = 0x10
	PortBlockSize uint32 = 0x1000
)

const (
	VendorXilinx = 0x10ee
	DeviceID     = 0x7021
	TestDeviceID = 0x1110
)
