// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package eeprom reads the ONIE TLV formatted system EEPROM behind the
// FPGA "EEPROM" port.
//
// The device is 16 bit addressed: each random read writes the high byte
// of the offset as the command and the low byte as data, then reads one
// byte. GetInfo collects the header and every TLV into Fields and checks
// the CRC-32 TLV against the data that precedes its value.
package eeprom

import (
	"errors"
	"fmt"
	"hash/crc32"
	"net"
	"time"

	"github.com/platinasystems/i2c"
	"github.com/platinasystems/midstone/fpgai2c"
)

// EEPROM TLV codes
const (
	product_name          = 0x21
	part_number           = 0x22
	serial_number         = 0x23
	base_ethernet_address = 0x24
	manufacture_date      = 0x25
	device_version        = 0x26
	label_revision        = 0x27
	platform_name         = 0x28
	onie_version          = 0x29
	n_ethernet_address    = 0x2a
	manufacturer          = 0x2b
	country_code          = 0x2c
	vendor                = 0x2d
	diag_version          = 0x2e
	service_tag           = 0x2f
	vendor_extension      = 0xfd
	crc                   = 0xfe
)

const (
	DefaultAddress = 0x56

	ONIEId        = "TlvInfo\x00"
	ONIEVer uint8 = 0x01

	lengthOffset = 9
	headerLen    = 11
)

var (
	ErrNotOnie = errors.New("not in ONIE format")
	ErrCrc     = errors.New("crc mismatch")
	ErrTlv     = errors.New("malformed tlv")
)

// Fields are the decoded TLVs.
type Fields struct {
	ONIEData            [8]byte
	ONIEDataVersion     byte
	ProductName         string
	PartNumber          string
	SerialNumber        string
	BaseEthernetAddress net.HardwareAddr
	ManufactureDate     string
	DeviceVersion       byte
	LabelRevision       string
	PlatformName        string
	ONIEVersion         string
	NEthernetAddress    uint
	Manufacturer        string
	CountryCode         string
	Vendor              string
	DiagVersion         string
	ServiceTag          string
	VendorExtension     []byte
	CRC32               uint32
}

// Device is the EEPROM at Address on a logical port.
type Device struct {
	Bus     fpgai2c.Bus
	Address uint8
	Fields  Fields
	// WriteDelay is the pause after each byte write for the device's
	// internal write cycle.
	WriteDelay time.Duration
	rawData    []byte
}

func New(bus fpgai2c.Bus) *Device {
	return &Device{
		Bus:        bus,
		Address:    DefaultAddress,
		WriteDelay: 10 * time.Millisecond,
	}
}

func (d *Device) getByte(i uint16) (byte, error) {
	var data i2c.SMBusData
	data[0] = uint8(i)
	err := d.Bus.Do(d.Address, i2c.Write, uint8(i>>8), i2c.ByteData,
		&data)
	if err != nil {
		return 0, err
	}
	if err = d.Bus.Do(d.Address, i2c.Read, 0, i2c.Byte, &data); err != nil {
		return 0, err
	}
	return data[0], nil
}

func (d *Device) getBytes(i, n uint16) ([]byte, error) {
	buf := make([]byte, n)
	for j := range buf {
		b, err := d.getByte(i + uint16(j))
		if err != nil {
			return nil, fmt.Errorf("eeprom %#x: %w", i+uint16(j), err)
		}
		buf[j] = b
	}
	return buf, nil
}

// SetByte writes one byte at offset a.
func (d *Device) SetByte(a uint16, v uint8) error {
	var data i2c.SMBusData
	data[0] = uint8(a)
	data[1] = v
	err := d.Bus.Do(d.Address, i2c.Write, uint8(a>>8), i2c.WordData, &data)
	if d.WriteDelay > 0 {
		time.Sleep(d.WriteDelay)
	}
	return err
}

// Dump returns the whole ONIE image: header, TLVs and CRC.
func (d *Device) Dump() ([]byte, error) {
	hdr, err := d.getBytes(0, headerLen)
	if err != nil {
		return nil, err
	}
	if string(hdr[:len(ONIEId)]) != ONIEId {
		return nil, ErrNotOnie
	}
	n := uint16(hdr[lengthOffset])<<8 | uint16(hdr[lengthOffset+1])
	tlvs, err := d.getBytes(headerLen, n)
	if err != nil {
		return nil, err
	}
	return append(hdr, tlvs...), nil
}

func (d *Device) GetInfo() error {
	raw, err := d.Dump()
	if err != nil {
		return err
	}
	d.rawData = raw
	return d.Fields.parse(raw)
}

func (f *Fields) parse(raw []byte) error {
	copy(f.ONIEData[:], raw)
	f.ONIEDataVersion = raw[len(ONIEId)]
	sawCrc := false
	for i := headerLen; i < len(raw); {
		if i+2 > len(raw) {
			return fmt.Errorf("%#x: %w", i, ErrTlv)
		}
		tlv, tlen := raw[i], int(raw[i+1])
		if i+2+tlen > len(raw) {
			return fmt.Errorf("%#x: %#x: %w", i, tlv, ErrTlv)
		}
		v := raw[i+2 : i+2+tlen]
		switch tlv {
		case product_name:
			f.ProductName = string(v)
		case part_number:
			f.PartNumber = string(v)
		case serial_number:
			f.SerialNumber = string(v)
		case base_ethernet_address:
			f.BaseEthernetAddress = append(net.HardwareAddr(nil), v...)
		case manufacture_date:
			f.ManufactureDate = string(v)
		case device_version:
			if len(v) > 0 {
				f.DeviceVersion = v[0]
			}
		case label_revision:
			f.LabelRevision = string(v)
		case platform_name:
			f.PlatformName = string(v)
		case onie_version:
			f.ONIEVersion = string(v)
		case n_ethernet_address:
			if len(v) != 2 {
				return fmt.Errorf("mac count: %w", ErrTlv)
			}
			f.NEthernetAddress = uint(v[0])<<8 | uint(v[1])
		case manufacturer:
			f.Manufacturer = string(v)
		case country_code:
			f.CountryCode = string(v)
		case vendor:
			f.Vendor = string(v)
		case diag_version:
			f.DiagVersion = string(v)
		case service_tag:
			f.ServiceTag = string(v)
		case vendor_extension:
			f.VendorExtension = append([]byte(nil), v...)
		case crc:
			if len(v) != 4 {
				return fmt.Errorf("crc: %w", ErrTlv)
			}
			f.CRC32 = uint32(v[0])<<24 | uint32(v[1])<<16 |
				uint32(v[2])<<8 | uint32(v[3])
			if sum := crc32.ChecksumIEEE(raw[:i+2]); sum != f.CRC32 {
				return fmt.Errorf("%08x, computed %08x: %w",
					f.CRC32, sum, ErrCrc)
			}
			sawCrc = true
		default:
			return fmt.Errorf("unknown tlv %#x: %w", tlv, ErrTlv)
		}
		i += 2 + tlen
	}
	if !sawCrc {
		return fmt.Errorf("no crc: %w", ErrTlv)
	}
	return nil
}

// UpdateCrc rewrites the value of the trailing CRC TLV to match the
// current contents.
func (d *Device) UpdateCrc() error {
	raw, err := d.Dump()
	if err != nil {
		return err
	}
	l := len(raw)
	if l < headerLen+6 || raw[l-6] != crc || raw[l-5] != 4 {
		return fmt.Errorf("no trailing crc: %w", ErrTlv)
	}
	sum := crc32.ChecksumIEEE(raw[:l-4])
	for i := 0; i < 4; i++ {
		err = d.SetByte(uint16(l-4+i), uint8(sum>>uint(24-8*i)))
		if err != nil {
			return err
		}
	}
	return nil
}

// Each calls fn with the name and printable value of every set field.
func (f *Fields) Each(fn func(name, value string)) {
	str := func(name, v string) {
		if len(v) > 0 {
			fn(name, v)
		}
	}
	str("product_name", f.ProductName)
	str("part_number", f.PartNumber)
	str("serial_number", f.SerialNumber)
	if len(f.BaseEthernetAddress) > 0 {
		fn("base_ethernet_address", f.BaseEthernetAddress.String())
	}
	str("manufacture_date", f.ManufactureDate)
	fn("device_version", fmt.Sprint(f.DeviceVersion))
	str("label_revision", f.LabelRevision)
	str("platform_name", f.PlatformName)
	str("onie_version", f.ONIEVersion)
	if f.NEthernetAddress > 0 {
		fn("n_ethernet_address", fmt.Sprint(f.NEthernetAddress))
	}
	str("manufacturer", f.Manufacturer)
	str("country_code", f.CountryCode)
	str("vendor", f.Vendor)
	str("diag_version", f.DiagVersion)
	str("service_tag", f.ServiceTag)
	if len(f.VendorExtension) > 0 {
		fn("vendor_extension", fmt.Sprintf("% x", f.VendorExtension))
	}
	fn("crc", fmt.Sprintf("0x%08x", f.CRC32))
}
