// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package fpgai2c

import (
	"fmt"
	"syscall"
)

type Status int

const (
	Ok Status = iota
	Unsupported
	Timeout
	ArbitrationLost
	IncompleteTransfer
	NoAck
	InvalidRange
	BlockLength
)

var statusStrings = []string{
	Ok:                 "OK",
	Unsupported:        "operation not supported",
	Timeout:            "timeout waiting for transfer complete",
	ArbitrationLost:    "lost arbitration",
	IncompleteTransfer: "transfer incomplete",
	NoAck:              "no acknowledge, device not present",
	InvalidRange:       "physical bus out of range",
	BlockLength:        "block length exceeds buffer",
}

var statusErrnos = []syscall.Errno{
	Ok:                 0,
	Unsupported:        syscall.EOPNOTSUPP,
	Timeout:            syscall.ETIMEDOUT,
	ArbitrationLost:    syscall.EAGAIN,
	IncompleteTransfer: syscall.EIO,
	NoAck:              syscall.ENXIO,
	InvalidRange:       syscall.ENXIO,
	BlockLength:        syscall.EMSGSIZE,
}

func (x Status) ToError() error {
	if x == Ok {
		return nil
	}
	return x
}

func (x Status) Error() string {
	if x < 0 || int(x) >= len(statusStrings) {
		return fmt.Sprintf("status %d", int(x))
	}
	return statusStrings[x]
}

// Errno is the negated return code of the kernel driver.
func (x Status) Errno() syscall.Errno {
	if x < 0 || int(x) >= len(statusErrnos) {
		return syscall.EIO
	}
	return statusErrnos[x]
}

// Retryable reports whether a higher level may reissue the transaction.
func (x Status) Retryable() bool { return x == ArbitrationLost }

// Error adds the transaction context to a Status.
type Error struct {
	Op   string
	Bus  int
	Port int
	Addr uint8
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s bus %d port %d addr %#02x: %v",
		e.Op, e.Bus, e.Port, e.Addr, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Errno maps any error returned by this package to an errno.
func Errno(err error) syscall.Errno {
	for err != nil {
		switch t := err.(type) {
		case Status:
			return t.Errno()
		case syscall.Errno:
			return t
		case interface{ Unwrap() error }:
			err = t.Unwrap()
		default:
			return syscall.EIO
		}
	}
	return 0
}
