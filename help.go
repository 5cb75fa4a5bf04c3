// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package midstone

import (
	"fmt"
	"strings"

	"github.com/platinasystems/midstone/cmd"
)

type helper interface {
	Help(...string) string
}

// Help returns the usage of the named command, or of the machine followed
// by its visible commands, daemons marked.
func (g *Goes) Help(args ...string) string {
	args = g.shift(args)
	g.swap(args)
	if len(args) > 0 {
		if v, found := g.ByName[args[0]]; found {
			if method, found := v.(helper); found {
				return method.Help(args[1:]...)
			}
			return Usage(v)
		}
	}
	names := g.Names()
	if len(names) == 0 {
		return Usage(g)
	}
	var sb strings.Builder
	sb.WriteString(Usage(g))
	sb.WriteString("\n\nCOMMANDS")
	for _, name := range names {
		v := g.ByName[name]
		fmt.Fprintf(&sb, "\n\t%-12s%s", name, v.Apropos())
		if cmd.WhatKind(v).IsDaemon() {
			sb.WriteString(" (daemon)")
		}
	}
	return sb.String()
}

func (g *Goes) help(args ...string) error {
	h := g.Help(args...)
	if len(h) > 0 {
		fmt.Println(h)
	}
	return nil
}
