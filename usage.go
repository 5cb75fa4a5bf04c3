// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package midstone

import (
	"fmt"
	"strings"
)

func Usage(v Usager) string {
	return fmt.Sprint("usage:\t", strings.TrimSpace(v.Usage()))
}

type Usager interface {
	Usage() string
}

func (g *Goes) Usage() string {
	usage := g.USAGE
	if len(usage) == 0 {
		usage = g.NAME + ` COMMAND [ ARGS ]...
	` + g.NAME + ` COMMAND -[-]HELPER [ ARGS ]...
	` + g.NAME + ` HELPER [ COMMAND ] [ ARGS ]...

	HELPER := { apropos | help | man | usage }`
	}
	return usage
}

func (g *Goes) usage(args ...string) error {
	var u Usager = g
	if len(args) > 0 {
		v, found := g.ByName[args[0]]
		if !found {
			return fmt.Errorf("%s: not found", args[0])
		}
		u = v
	}
	fmt.Println(Usage(u))
	return nil
}
