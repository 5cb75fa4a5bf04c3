// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package main

import (
	"github.com/platinasystems/midstone"
	"github.com/platinasystems/midstone/cmd"
	"github.com/platinasystems/midstone/cmd/cpldcmd"
	"github.com/platinasystems/midstone/cmd/fpgai2cd"
	"github.com/platinasystems/midstone/cmd/fpgareg"
	"github.com/platinasystems/midstone/cmd/vi2c"
	"github.com/platinasystems/midstone/cmd/watch"
	"github.com/platinasystems/midstone/lang"
)

const (
	Name = "goes-midstone100th2"
	// MuxResetPin is the active low reset of the FPGA side I2C muxes.
	MuxResetPin = "FPGA_I2C_MUX_RST_L"
)

func mkgoes() *midstone.Goes {
	return &midstone.Goes{
		NAME: Name,
		APROPOS: lang.Alt{
			lang.EnUS: "midstone100th2 fpga i2c tools",
		},
		ByName: map[string]cmd.Cmd{
			"cpld":     cpldcmd.Command{},
			"fpgai2cd": &fpgai2cd.Command{MuxReset: MuxResetPin},
			"fpgareg":  fpgareg.Command{},
			"vi2c":     vi2c.Command{},
			"watch":    watch.Command{},
		},
	}
}
