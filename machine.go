package main

import (
	"context"
	"log/slog"
)

// KBC is an 8042 style keyboard controller: two PS/2 links, the command
// interpreter and the host bus, driven by one cooperative loop plus the
// clock edge interrupt.
type KBC struct {
	hw   Hardware
	ps2  *PS2
	host *HostBus
	ctl  I8042
	log  *slog.Logger

	seen        [2]PortStats // counters already reported
	seenDropped uint32       // host queue drops already reported
}

// New powers up a controller on hw. timeout is the stalled frame limit in
// scheduler passes; zero selects the default.
func New(hw Hardware, store Store, log *slog.Logger, timeout int) *KBC {
	k := &KBC{
		hw:   hw,
		ps2:  newPS2(hw, timeout),
		host: newHostBus(hw),
		log:  log,
	}
	k.ctl = I8042{
		ps2:   k.ps2,
		host:  k.host,
		store: store,
		log:   log,
		reset: k.Reset,
	}
	k.ctl.init()
	return k
}

// Edge is the clock edge interrupt for port.
func (k *KBC) Edge(port int) { k.ps2.edge(port) }

// Step runs one scheduler pass.
func (k *KBC) Step() {
	k.ps2.task()
	k.ctl.task()
	if k.host.pending() {
		k.host.pump()
	}
	if k.host.inputReady() {
		b, cmd := k.host.readInput()
		k.ctl.process(b, cmd)
	}
	k.report()
}

// Run steps the controller until ctx is cancelled.
func (k *KBC) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			k.Step()
		}
	}
}

// Reset reinitialises the controller as at power on.
func (k *KBC) Reset() {
	k.ps2.reset()
	k.host.reset()
	k.ctl.init()
}

// Quiet reports whether nothing is in flight inside the controller.
func (k *KBC) Quiet() bool {
	return k.ps2.quiet() && !k.host.pending() && !k.host.inputReady()
}

func (k *KBC) Stats(port int) PortStats { return k.ps2.stats(port) }

// report logs link faults and host queue drops counted since the last pass.
func (k *KBC) report() {
	for port := range k.seen {
		s := k.ps2.stats(port)
		old := k.seen[port]
		if s == old {
			continue
		}
		if s.FramingErrors != old.FramingErrors {
			k.log.Debug("ps2: frame dropped", "port", portName(port), "errors", s.FramingErrors)
		}
		if s.Timeouts != old.Timeouts {
			k.log.Debug("ps2: frame timed out", "port", portName(port), "timeouts", s.Timeouts)
		}
		if s.RxDropped != old.RxDropped || s.TxDropped != old.TxDropped {
			k.log.Debug("ps2: queue overflow", "port", portName(port), "rx", s.RxDropped, "tx", s.TxDropped)
		}
		k.seen[port] = s
	}
	if d := k.host.dropped; d != k.seenDropped {
		k.log.Debug("host: queue overflow", "dropped", d)
		k.seenDropped = d
	}
}
