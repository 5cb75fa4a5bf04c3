// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package fpgai2cd

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jpillora/backoff"
	"github.com/platinasystems/atsock"
	"github.com/platinasystems/gpio"
	"github.com/platinasystems/log"
	"github.com/platinasystems/midstone/fpgai2c"
	"github.com/platinasystems/midstone/platform"
	"github.com/platinasystems/midstone/sff"
	"github.com/platinasystems/redis/rpc/args"
	"github.com/platinasystems/redis/rpc/reply"
	"golang.org/x/sync/errgroup"
)

const (
	// retries of a transaction that lost arbitration
	maxRetries = 4
	// consecutive timeouts on a bus before its muxes are reset
	hungLimit = 3
)

type printer interface {
	Print(a ...interface{}) (int, error)
}

type Info struct {
	mutex    sync.Mutex
	rpc      *atsock.RpcServer
	pub      printer
	once     sync.Once
	stop     chan struct{}
	plat     *platform.Platform
	poll     time.Duration
	muxReset string
	last     map[string]string
	timeouts [fpgai2c.NumBuses]int32
}

func (i *Info) setup(p *platform.Platform, pub printer, poll time.Duration,
	muxReset string) {
	i.mutex.Lock()
	defer i.mutex.Unlock()
	i.plat = p
	i.pub = pub
	i.poll = poll
	i.muxReset = muxReset
	i.last = make(map[string]string)
}

func (i *Info) stopper() chan struct{} {
	i.once.Do(func() { i.stop = make(chan struct{}) })
	return i.stop
}

func (i *Info) interval() time.Duration {
	i.mutex.Lock()
	defer i.mutex.Unlock()
	return i.poll
}

// prefixes are the redis field prefixes settable through Hset.
func (i *Info) prefixes() []string {
	l := []string{Name, "fpga"}
	for _, d := range i.plat.Cplds {
		l = append(l, d.Name)
	}
	for _, p := range i.plat.Ports {
		l = append(l, p.Name)
	}
	return l
}

// publish prints k only when its value changed; the caller holds mutex.
func (i *Info) publish(k, v string) {
	if last, found := i.last[k]; found && last == v {
		return
	}
	i.pub.Print(k, ": ", v)
	i.last[k] = v
}

// retry runs op, again after a backoff while it loses arbitration, and
// resets the bus muxes after repeated timeouts.
func (i *Info) retry(bus int, op func() error) error {
	if bus < 1 || bus > fpgai2c.NumBuses {
		return op()
	}
	b := &backoff.Backoff{
		Min:    500 * time.Microsecond,
		Max:    10 * time.Millisecond,
		Factor: 2,
	}
	for n := 0; ; n++ {
		err := op()
		switch {
		case err == nil:
			atomic.StoreInt32(&i.timeouts[bus-1], 0)
		case errors.Is(err, fpgai2c.ArbitrationLost) && n < maxRetries:
			time.Sleep(b.Duration())
			continue
		case errors.Is(err, fpgai2c.Timeout):
			i.hung(bus)
		}
		return err
	}
}

// resetMuxes pulses the named active low reset pin of every mux on the
// board; it returns false if there is no such pin.
var resetMuxes = func(name string) bool {
	pin, found := gpio.Pins[name]
	if !found {
		return false
	}
	pin.SetValue(false)
	time.Sleep(10 * time.Microsecond)
	pin.SetValue(true)
	return true
}

func (i *Info) hung(bus int) {
	if atomic.AddInt32(&i.timeouts[bus-1], 1) < hungLimit {
		return
	}
	atomic.StoreInt32(&i.timeouts[bus-1], 0)
	if len(i.muxReset) > 0 && resetMuxes(i.muxReset) {
		log.Print("daemon", "warning", "bus ", bus, " hung, muxes reset")
		i.plat.Fabric.Reset()
		return
	}
	log.Print("daemon", "warning", "bus ", bus, " hung")
	i.plat.Fabric.Invalidate(bus)
}

func (i *Info) busOf(name string) int {
	a, found := i.plat.Registry.ByName(strings.ToUpper(name))
	if !found {
		return 0
	}
	return a.Entry.Bus
}

// inventory publishes what doesn't change while running.
func (i *Info) inventory() {
	i.mutex.Lock()
	defer i.mutex.Unlock()
	p := i.plat
	i.publish("fpga.version", fmt.Sprintf("%#x", p.FPGA.Version()))
	i.publish(Name+".board", p.Board.String())
	i.publish(Name+".adapters", fmt.Sprint(len(p.Registry.Adapters())))
	for _, d := range p.Cplds {
		var v uint8
		err := i.retry(i.busOf(portOf(d.Name)), func() (err error) {
			v, err = d.Version()
			return
		})
		if err != nil {
			log.Print("daemon", "err", d, ": ", err)
			continue
		}
		i.publish(d.Name+".version", fmt.Sprintf("%#02x", v))
	}
	bus := i.busOf("EEPROM")
	err := i.retry(bus, p.Eeprom.GetInfo)
	if err != nil {
		log.Print("daemon", "err", "eeprom: ", err)
		return
	}
	p.Eeprom.Fields.Each(func(name, value string) {
		i.publish("eeprom."+name, value)
	})
}

func portOf(cpldName string) string {
	if cpldName == "cpld_b" {
		return "CPLD_B"
	}
	return "CPLD"
}

// update samples every port, in parallel across physical buses, and
// publishes what changed.
func (i *Info) update(ctx context.Context) error {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	groups := make(map[int][]*sff.Port)
	var buses []int
	for _, p := range i.plat.Ports {
		bus := i.busOf(p.Name)
		if _, found := groups[bus]; !found {
			buses = append(buses, bus)
		}
		groups[bus] = append(groups[bus], p)
	}
	sort.Ints(buses)

	samples := make([]map[string]string, len(buses))
	g, ctx := errgroup.WithContext(ctx)
	for j, bus := range buses {
		j, bus := j, bus
		samples[j] = make(map[string]string)
		g.Go(func() error {
			for _, p := range groups[bus] {
				if err := ctx.Err(); err != nil {
					return err
				}
				i.sample(bus, p, samples[j])
			}
			return nil
		})
	}
	err := g.Wait()

	for _, m := range samples {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			i.publish(k, m[k])
		}
	}
	for bus := 1; bus <= fpgai2c.NumBuses; bus++ {
		st, _ := i.plat.Fabric.Stats(bus)
		i.publish(fmt.Sprint("i2c", bus, ".errors"), fmt.Sprint(st.Errors))
	}
	return err
}

func (i *Info) sample(bus int, p *sff.Port, m map[string]string) {
	for _, a := range p.Attrs() {
		v, err := p.Get(a.Name)
		if err != nil {
			continue
		}
		m[p.Name+"."+a.Name] = fmt.Sprint(v)
	}
	present, _ := p.Present()
	if !present {
		m[p.Name+".identifier"] = "none"
		return
	}
	var id uint8
	err := i.retry(bus, func() (err error) {
		id, err = p.Identifier()
		return
	})
	if err != nil {
		log.Print("daemon", "err", err)
		return
	}
	m[p.Name+".identifier"] = fmt.Sprintf("%#02x", id)
}

func (i *Info) Hset(args args.Hset, reply *reply.Hset) error {
	i.mutex.Lock()
	defer i.mutex.Unlock()
	v := strings.TrimRight(string(args.Value), "\n")
	v, err := i.set(args.Field, v)
	if err != nil {
		return err
	}
	i.publish(args.Field, v)
	*reply = 1
	return nil
}

// set returns the value as it will next be published.
func (i *Info) set(field, v string) (string, error) {
	switch field {
	case Name + ".poll":
		d, err := parsePoll(v)
		if err != nil {
			return "", err
		}
		i.poll = d
		return d.String(), nil
	case "fpga.scratch":
		x, err := strconv.ParseUint(v, 0, 32)
		if err != nil {
			return "", fmt.Errorf("%s: %v", field, err)
		}
		i.plat.FPGA.SetScratch(uint32(x))
		return fmt.Sprintf("%#x", x), nil
	case "fpga.cpld_run":
		run, err := strconv.ParseBool(v)
		if err != nil {
			return "", fmt.Errorf("%s: %v", field, err)
		}
		i.plat.FPGA.SetCpldRunning(run)
		return fmt.Sprint(run), nil
	}
	dot := strings.IndexByte(field, '.')
	if dot < 0 {
		return "", fmt.Errorf("%s: can't set", field)
	}
	name, attr := field[:dot], field[dot+1:]
	if d, found := i.plat.Cpld(name); found && attr == "scratch" {
		x, err := strconv.ParseUint(v, 0, 8)
		if err != nil {
			return "", fmt.Errorf("%s: %v", field, err)
		}
		err = i.retry(i.busOf(portOf(name)), func() error {
			return d.SetScratch(uint8(x))
		})
		return fmt.Sprintf("%#02x", x), err
	}
	for _, p := range i.plat.Ports {
		if p.Name == name {
			on, err := strconv.ParseBool(v)
			if err != nil {
				return "", fmt.Errorf("%s: %v", field, err)
			}
			return fmt.Sprint(on), p.Set(attr, on)
		}
	}
	return "", fmt.Errorf("%s: can't set", field)
}

func parsePoll(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 100*time.Millisecond {
		return 0, fmt.Errorf("%s: poll interval too short", s)
	}
	return d, nil
}
