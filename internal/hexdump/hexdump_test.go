// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package hexdump

import (
	"bytes"
	"testing"
)

func TestRows(t *testing.T) {
	b := make([]byte, 18)
	for i := range b {
		b[i] = byte(i)
	}
	var buf bytes.Buffer
	if err := Rows(&buf, 0x20, b); err != nil {
		t.Fatal(err)
	}
	want := "0020: 00 01 02 03 04 05 06 07 08 09 0a 0b 0c 0d 0e 0f\n" +
		"0030: 10 11\n"
	if got := buf.String(); got != want {
		t.Errorf("got %q want %q", got, want)
	}
}
