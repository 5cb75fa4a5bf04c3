// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package fpga_test

import (
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/platinasystems/midstone/fpga"
	"github.com/platinasystems/midstone/internal/i2csim"
)

func TestRegisters(t *testing.T) {
	sim := i2csim.New()
	sim.Write32(fpga.Version, 0x20200107)
	f := fpga.New(sim)
	if v := f.Version(); v != 0x20200107 {
		t.Errorf("version %#x", v)
	}
	f.SetScratch(0xdeadbeef)
	if v := f.Scratch(); v != 0xdeadbeef {
		t.Errorf("scratch %#x", v)
	}
	if f.XcvrReady() {
		t.Error("ready before set")
	}
	sim.Write32(fpga.XcvrReady, 1)
	if !f.XcvrReady() {
		t.Error("not ready")
	}
	f.SetCpldRunning(true)
	if !f.CpldRunning() {
		t.Error("cpld reset still asserted")
	}
	f.SetCpldRunning(false)
	if f.CpldRunning() {
		t.Error("cpld reset not asserted")
	}
}

func TestGetSetReg(t *testing.T) {
	f := fpga.New(i2csim.New())
	if err := f.SetReg(0x4010, 0x12345678, 32); err != nil {
		t.Fatal(err)
	}
	v, err := f.GetReg(0x4010, 8)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0x78 {
		t.Errorf("low byte %#x", v)
	}
	if _, err = f.GetReg(0, 16); !errors.Is(err, fpga.ErrWidth) {
		t.Errorf("width 16: got %v", err)
	}
	if err = f.SetReg(0, 0, 64); !errors.Is(err, fpga.ErrWidth) {
		t.Errorf("width 64: got %v", err)
	}
}

func TestDump(t *testing.T) {
	f := fpga.New(i2csim.New())
	f.Write32(fpga.PortCtrl+fpga.PortStride, 0x04030201)
	buf, err := f.Dump(fpga.PortStride, 4)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]byte{1, 2, 3, 4}, buf); diff != "" {
		t.Errorf("dump (-want +got):\n%s", diff)
	}
	if _, err = f.Dump(0xff0, 0x20); !errors.Is(err, fpga.ErrRange) {
		t.Errorf("overrun: got %v", err)
	}
}

func TestFind(t *testing.T) {
	dir, err := ioutil.TempDir("", "pci")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	for addr, ids := range map[string][2]string{
		"0000:00:1f.0": {"0x8086", "0x1f38"},
		"0000:09:00.0": {"0x10ee", "0x7021"},
	} {
		d := filepath.Join(dir, addr)
		if err = os.Mkdir(d, 0755); err != nil {
			t.Fatal(err)
		}
		ioutil.WriteFile(filepath.Join(d, "vendor"), []byte(ids[0]+"\n"), 0644)
		ioutil.WriteFile(filepath.Join(d, "device"), []byte(ids[1]+"\n"), 0644)
	}
	save := fpga.SysBusPciPath
	defer func() { fpga.SysBusPciPath = save }()
	fpga.SysBusPciPath = dir

	addr, err := fpga.Find(fpga.VendorXilinx, fpga.DeviceID,
		fpga.TestDeviceID)
	if err != nil {
		t.Fatal(err)
	}
	if addr != "0000:09:00.0" {
		t.Errorf("found %s", addr)
	}
	if _, err = fpga.Find(fpga.VendorXilinx, 0x9999); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("absent: got %v", err)
	}
}
