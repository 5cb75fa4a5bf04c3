// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package hexdump prints register dumps, as rows of 16 bytes to a terminal
// or raw otherwise.
package hexdump

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// Rows writes b as hex rows, each prefixed with its offset from base.
func Rows(w io.Writer, base uint32, b []byte) error {
	for i := 0; i < len(b); i += 16 {
		end := i + 16
		if end > len(b) {
			end = len(b)
		}
		_, err := fmt.Fprintf(w, "%04x: % x\n", base+uint32(i), b[i:end])
		if err != nil {
			return err
		}
	}
	return nil
}

// Stdout writes rows to a terminal and the bytes themselves to a pipe or
// file.
func Stdout(base uint32, b []byte) error {
	if isatty.IsTerminal(os.Stdout.Fd()) {
		return Rows(os.Stdout, base, b)
	}
	_, err := os.Stdout.Write(b)
	return err
}
