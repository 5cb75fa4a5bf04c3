// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package fpgai2c

import (
	"fmt"
	"testing"
)

func TestMidstone100th2Table(t *testing.T) {
	for _, board := range []Board{EVT, Production} {
		tbl := Midstone100th2(board)
		if len(tbl) != 77 {
			t.Fatalf("%v: %d entries", board, len(tbl))
		}
		for i, e := range tbl {
			if err := e.Valid(); err != nil {
				t.Errorf("%v: %d: %v", board, i, err)
			}
		}
		for _, tc := range []struct {
			name string
			port int
			want Entry
		}{
			{"QSFP1", 0, Entry{2, 0x72, 0, "QSFP1"}},
			{"QSFP2", 1, Entry{2, 0x72, 1, "QSFP2"}},
			{"QSFP32", 31, Entry{2, 0x75, 6, "QSFP32"}},
			{"QSFP33", 32, Entry{3, 0x72, 0, "QSFP33"}},
			{"SFP2", 65, Entry{1, 0x72, 1, "SFP2"}},
			{"CPLD", CpldIndex, Entry{4, Direct, 0, "CPLD"}},
			{"CPLD_B", CpldBIndex, Entry{5, Direct, 0, "CPLD_B"}},
			{"FAN1", 73, Entry{8, 0x77, 4, "FAN1"}},
			{"EEPROM", 76, Entry{11, Direct, 0, "EEPROM"}},
		} {
			port, found := tbl.Index(tc.name)
			if !found || port != tc.port {
				t.Errorf("%v: %s: port %d want %d", board, tc.name,
					port, tc.port)
				continue
			}
			want := tc.want
			if board == Production && tc.name == "QSFP32" {
				want.Channel = 7
			}
			if tbl[port] != want {
				t.Errorf("%v: %s: got %v want %v", board, tc.name,
					tbl[port], want)
			}
		}
	}
}

func TestBoardChannelOrder(t *testing.T) {
	evt, prod := Midstone100th2(EVT), Midstone100th2(Production)
	for i := 0; i < NumQsfp; i++ {
		if prod[i].Channel != uint8(i%8) {
			t.Errorf("production %s: channel %d", prod[i].Name,
				prod[i].Channel)
		}
		if evt[i].Channel != evtOrder[i%8] {
			t.Errorf("evt %s: channel %d", evt[i].Name, evt[i].Channel)
		}
	}
}

func TestParseBoard(t *testing.T) {
	for _, b := range []Board{EVT, Production} {
		got, err := ParseBoard(b.String())
		if err != nil || got != b {
			t.Errorf("%v: got %v, %v", b, got, err)
		}
	}
	if _, err := ParseBoard("dvt"); err == nil {
		t.Error("dvt: no error")
	}
}

func TestEntryValid(t *testing.T) {
	for _, e := range []Entry{
		{0, Direct, 0, "zero"},
		{12, Direct, 0, "twelve"},
		{2, 0x72, 8, "channel"},
	} {
		if e.Valid() == nil {
			t.Errorf("%v: valid", e)
		}
	}
}

func ExampleEntry_String() {
	tbl := Midstone100th2(EVT)
	for _, name := range []string{"QSFP3", "CPLD"} {
		port, _ := tbl.Index(name)
		fmt.Println(port, tbl[port])
	}
	// Output:
	// 2 QSFP3: bus 2 mux 0x72 channel 3
	// 66 CPLD: bus 4 direct
}
