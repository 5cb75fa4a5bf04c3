// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package fpgai2c drives the I2C masters of the midstone100th2 FPGA and
// presents every device behind them as its own virtual SMBus adapter.
//
// The FPGA has eleven polled masters. Most logical ports sit behind a
// PCA9548 channel on one of them, so a transaction first connects the
// port's channel and then runs the SMBus sequence on the master:
//
//	f := fpgai2c.NewFabric(bar, 0)
//	r, _ := fpgai2c.Register(f, fpgai2c.Midstone100th2(fpgai2c.EVT),
//		fpgai2c.BusOffset)
//	qsfp, _ := r.ByName("QSFP7")
//	var data i2c.SMBusData
//	err := qsfp.Do(0x50, i2c.Read, 0, i2c.ByteData, &data)
//
// Each physical bus is serialized by its own lock, held across the
// channel select and the transaction, and remembers the channel it last
// connected so repeated accesses to one port skip the mux write.
// Distinct physical buses never block one another.
//
// Failures are Status values, wrapped in an *Error carrying the bus,
// port and address; use errors.Is to test for a Status and Errno for the
// equivalent kernel return code.
package fpgai2c
