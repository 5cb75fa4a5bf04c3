// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package fpga

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"
)

var SysBusPciPath = "/sys/bus/pci/devices"

// Bar is BAR 0 of the FPGA mapped from its sysfs resource file.
type Bar struct {
	Addr string
	mem  []byte
}

// Find returns the PCI address of the first device matching vendor and
// any of the given device ids.
func Find(vendor uint, devices ...uint) (string, error) {
	fis, err := ioutil.ReadDir(SysBusPciPath)
	if err != nil {
		return "", err
	}
	for _, fi := range fis {
		v, err := readHex(fi.Name(), "vendor")
		if err != nil || v != vendor {
			continue
		}
		d, err := readHex(fi.Name(), "device")
		if err != nil {
			continue
		}
		for _, want := range devices {
			if d == want {
				return fi.Name(), nil
			}
		}
	}
	return "", fmt.Errorf("pci %04x:%v: %w", vendor, devices, os.ErrNotExist)
}

func readHex(addr, name string) (v uint, err error) {
	buf, err := ioutil.ReadFile(filepath.Join(SysBusPciPath, addr, name))
	if err != nil {
		return
	}
	_, err = fmt.Sscanf(strings.TrimSpace(string(buf)), "0x%x", &v)
	return
}

// Open maps resource0 of the PCI device at addr, e.g. "0000:09:00.0".
func Open(addr string) (*Bar, error) {
	fn := filepath.Join(SysBusPciPath, addr, "resource0")
	f, err := os.OpenFile(fn, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if fi.Size() < int64(PortCtrl+PortBlockSize) {
		return nil, fmt.Errorf("%s: %d bytes: too small", fn, fi.Size())
	}
	mem, err := unix.Mmap(int(f.Fd()), 0, int(fi.Size()),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %v", fn, err)
	}
	return &Bar{Addr: addr, mem: mem}, nil
}

func (bar *Bar) Close() error {
	if bar.mem == nil {
		return nil
	}
	err := unix.Munmap(bar.mem)
	bar.mem = nil
	if err != nil {
		return fmt.Errorf("munmap %s: %v", bar.Addr, err)
	}
	return nil
}

func (bar *Bar) Read8(offset uint32) uint8 {
	return *(*uint8)(unsafe.Pointer(&bar.mem[offset]))
}

func (bar *Bar) Write8(offset uint32, v uint8) {
	*(*uint8)(unsafe.Pointer(&bar.mem[offset])) = v
}

func (bar *Bar) Read32(offset uint32) uint32 {
	return *(*uint32)(unsafe.Pointer(&bar.mem[offset]))
}

func (bar *Bar) Write32(offset uint32, v uint32) {
	*(*uint32)(unsafe.Pointer(&bar.mem[offset])) = v
}
