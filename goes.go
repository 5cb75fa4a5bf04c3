// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package midstone is a busybox-style command dispatcher for the
// midstone100th2 FPGA platform tools.
package midstone

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"

	"github.com/platinasystems/log"
	"github.com/platinasystems/midstone/cmd"
	"github.com/platinasystems/midstone/lang"
	"golang.org/x/sys/unix"
)

type Goes struct {
	NAME, USAGE  string
	APROPOS, MAN lang.Alt
	ByName       map[string]cmd.Cmd
}

func (g *Goes) String() string { return g.NAME }

// Names returns the sorted names of all visible commands.
func (g *Goes) Names() []string {
	names := make([]string, 0, len(g.ByName))
	for name, v := range g.ByName {
		if !cmd.WhatKind(v).IsHidden() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (g *Goes) swap(args []string) { cmd.Swap(args) }

// shift drops a leading program name, and reduces a command invoked
// through a link to its name.
func (g *Goes) shift(args []string) []string {
	if len(args) == 0 {
		return args
	}
	name := filepath.Base(args[0])
	if name == g.NAME {
		return args[1:]
	}
	if _, found := g.ByName[name]; found {
		args[0] = name
	}
	return args
}

// Main runs the command named by args[0] after any program name. Helpers
// run in place; a daemon runs until SIGTERM or SIGINT, then is closed.
func (g *Goes) Main(args ...string) error {
	args = g.shift(args)
	if len(args) == 0 {
		return fmt.Errorf("%s", Usage(g))
	}
	g.swap(args)
	switch args[0] {
	case "apropos":
		return g.apropos(args[1:]...)
	case "help":
		return g.help(args[1:]...)
	case "man":
		return g.man(args[1:]...)
	case "usage":
		return g.usage(args[1:]...)
	}
	v, found := g.ByName[args[0]]
	if !found {
		return fmt.Errorf("%s: command not found", args[0])
	}
	if !cmd.WhatKind(v).IsDaemon() {
		return v.Main(args[1:]...)
	}
	closer, ok := v.(interface{ Close() error })
	if !ok {
		return v.Main(args[1:]...)
	}
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, unix.SIGTERM, unix.SIGINT)
	defer signal.Stop(sig)
	done := make(chan error, 1)
	go func() { done <- v.Main(args[1:]...) }()
	select {
	case err := <-done:
		return err
	case s := <-sig:
		log.Print("daemon", "notice", v, ": ", s)
		if err := closer.Close(); err != nil {
			log.Print("daemon", "err", v, ": close: ", err)
		}
		return <-done
	}
}
