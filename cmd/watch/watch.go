// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package watch

import (
	"fmt"
	"strings"

	redigo "github.com/garyburd/redigo/redis"
	"github.com/platinasystems/midstone/lang"
	"github.com/platinasystems/redis"
)

type Command struct{}

func (Command) String() string { return "watch" }

func (Command) Usage() string { return "watch [PREFIX]..." }

func (Command) Apropos() lang.Alt {
	return lang.Alt{
		lang.EnUS: "print published platform changes",
	}
}

func (Command) Man() lang.Alt {
	return lang.Alt{
		lang.EnUS: `
DESCRIPTION
	Print the "FIELD: VALUE" messages published by fpgai2cd, only
	those of fields beginning with one of the given prefixes if any,
	e.g. watch qsfp3. cpld`,
	}
}

func (Command) Main(args ...string) error {
	psc, err := redis.Subscribe(redis.DefaultHash)
	if err != nil {
		return err
	}
	defer psc.Close()
	for {
		switch t := psc.Receive().(type) {
		case redigo.Message:
			if s := string(t.Data); match(s, args) {
				fmt.Println(s)
			}
		case error:
			return t
		}
	}
}

func match(s string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
