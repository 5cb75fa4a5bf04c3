// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package fpgai2c

import "fmt"

// Entry places one logical port on a physical bus, behind mux channel
// Channel of the PCA9548 at Mux, or directly if Mux is Direct.
type Entry struct {
	Bus     int
	Mux     uint8
	Channel uint8
	Name    string
}

func (e Entry) String() string {
	if e.Mux == Direct {
		return fmt.Sprintf("%s: bus %d direct", e.Name, e.Bus)
	}
	return fmt.Sprintf("%s: bus %d mux %#02x channel %d",
		e.Name, e.Bus, e.Mux, e.Channel)
}

func (e Entry) Valid() error {
	if e.Bus < 1 || e.Bus > NumBuses {
		return fmt.Errorf("%s: bus %d: %w", e.Name, e.Bus, InvalidRange)
	}
	if e.Mux != Direct && e.Channel > 7 {
		return fmt.Errorf("%s: channel %d: %w", e.Name, e.Channel,
			InvalidRange)
	}
	return nil
}

// Table is the ordered list of logical ports; the index is the port id.
type Table []Entry

// Index returns the port id of the named entry.
func (t Table) Index(name string) (int, bool) {
	for i, e := range t {
		if e.Name == name {
			return i, true
		}
	}
	return -1, false
}

const (
	NumQsfp   = 64
	NumSfp    = 2
	NumSff    = NumQsfp + NumSfp
	BusOffset = 10

	CpldIndex  = 66
	CpldBIndex = 67
)

type Board int

const (
	EVT Board = iota
	Production
)

var boardNames = []string{
	EVT:        "evt",
	Production: "production",
}

func (b Board) String() string {
	if b < 0 || int(b) >= len(boardNames) {
		return fmt.Sprint("board", int(b))
	}
	return boardNames[b]
}

func ParseBoard(s string) (Board, error) {
	for i, name := range boardNames {
		if s == name {
			return Board(i), nil
		}
	}
	return EVT, fmt.Errorf("%s: unknown board", s)
}

// EVT boards cross channels 2/3 and 6/7 of every QSFP mux.
var (
	evtOrder    = [8]uint8{0, 1, 3, 2, 4, 5, 7, 6}
	linearOrder = [8]uint8{0, 1, 2, 3, 4, 5, 6, 7}
)

// Midstone100th2 returns the logical port table of the given board.
func Midstone100th2(b Board) Table {
	order := evtOrder
	if b == Production {
		order = linearOrder
	}
	t := make(Table, 0, 80)
	qsfp := 1
	for _, bus := range []int{2, 3} {
		for mux := uint8(0x72); mux <= 0x75; mux++ {
			for _, ch := range order {
				t = append(t, Entry{bus, mux, ch,
					fmt.Sprint("QSFP", qsfp)})
				qsfp++
			}
		}
	}
	return append(t,
		Entry{1, 0x72, 0, "SFP1"},
		Entry{1, 0x72, 1, "SFP2"},
		Entry{4, Direct, 0, "CPLD"},
		Entry{5, Direct, 0, "CPLD_B"},
		Entry{6, Direct, 0, "POWER"},
		Entry{7, Direct, 0, "PSU"},
		// channel 2 has nothing connected
		Entry{8, 0x77, 0, "FAN5"},
		Entry{8, 0x77, 1, "FAN4"},
		Entry{8, 0x77, 3, "FAN2"},
		Entry{8, 0x77, 4, "FAN1"},
		Entry{9, Direct, 0, "UCD90120"},
		Entry{10, Direct, 0, "LM75"},
		Entry{11, Direct, 0, "EEPROM"},
	)
}
