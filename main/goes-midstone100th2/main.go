// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// This is the midstone100th2 platform tool set: the fpgai2cd daemon and
// the commands that reach the FPGA, CPLDs and transceivers through it.
package main

import (
	"fmt"
	"os"

	"github.com/platinasystems/redis"
)

func main() {
	redis.DefaultHash = "midstone100th2"
	if err := mkgoes().Main(os.Args...); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
