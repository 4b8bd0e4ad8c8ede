package main

import "log/slog"

// Controller commands, written with A0 high.
const (
	cmdReadConfig  = 0x20 // 0x21-0x3f read store address cmd&0x1f
	cmdWriteConfig = 0x60 // 0x61-0x7f write store address cmd&0x1f
	cmdAuxDisable  = 0xa7
	cmdAuxEnable   = 0xa8
	cmdAuxTest     = 0xa9
	cmdSelfTest    = 0xaa
	cmdKbdTest     = 0xab
	cmdKbdDisable  = 0xad
	cmdKbdEnable   = 0xae
	cmdReadInput   = 0xc0
	cmdReadOutput  = 0xd0
	cmdWriteOutput = 0xd1
	cmdWriteKbdOut = 0xd2
	cmdWriteAuxOut = 0xd3
	cmdWriteAuxDev = 0xd4
	cmdPulseReset  = 0xfe // 0xf0-0xff pulse output lines, bit 0 is reset
)

// Configuration byte bits.
const (
	cfgKbdInt      = 0x01
	cfgAuxInt      = 0x02
	cfgSysFlag     = 0x04
	cfgKbdDisabled = 0x10
	cfgAuxDisabled = 0x20
	cfgTranslate   = 0x40

	cfgDefault = cfgSysFlag | cfgTranslate
)

// Fixed responses.
const (
	respPortOK     = 0x00
	respSelfTestOK = 0x55
	inputPortValue = 0x00
	// A20 released, reset inactive, both output buffers idle.
	outputPortValue = 0xcf
)

// pendingCmd is a two phase command waiting for its data byte. A nil
// pendingCmd means the next byte is dispatched normally.
type pendingCmd interface {
	complete(c *I8042, b byte)
}

type (
	awaitConfig        struct{}
	awaitOutputPort    struct{}
	awaitPrimaryOutput struct{}
	awaitAuxOutput     struct{}
	awaitAuxDevice     struct{}
	awaitStoreWrite    struct{ addr byte }
)

func (awaitConfig) complete(c *I8042, b byte)        { c.setConfig(b) }
func (awaitOutputPort) complete(c *I8042, b byte)    {} // no A20, no reset line
func (awaitPrimaryOutput) complete(c *I8042, b byte) { c.host.enqueue(b, false) }
func (awaitAuxOutput) complete(c *I8042, b byte)     { c.host.enqueue(b, true) }
func (awaitAuxDevice) complete(c *I8042, b byte)     { c.ps2.txWrite(portAux, b) }
func (w awaitStoreWrite) complete(c *I8042, b byte)  { c.store.Save(w.addr, b) }

// I8042 interprets the controller command set.
type I8042 struct {
	ps2   *PS2
	host  *HostBus
	store Store
	log   *slog.Logger

	// reset performs a full controller reset. Wired by the owner.
	reset func()

	config  byte
	pending pendingCmd
}

func (c *I8042) init() {
	c.config = cfgDefault
	c.pending = nil
	c.ps2.inhibit(portKbd, false)
	c.ps2.inhibit(portAux, false)
}

// process handles one byte written by the host. cmd is its address tag.
func (c *I8042) process(b byte, cmd bool) {
	if p := c.pending; p != nil {
		c.pending = nil
		c.log.Debug("i8042: data", "byte", hex8(b))
		p.complete(c, b)
		return
	}
	if cmd {
		c.command(b)
		return
	}
	// data with nothing pending goes to the keyboard
	c.ps2.txWrite(portKbd, b)
}

func (c *I8042) command(b byte) {
	c.log.Debug("i8042: command", "cmd", hex8(b))

	switch b {
	case cmdReadConfig:
		c.host.enqueue(c.config, false)
	case cmdWriteConfig:
		c.pending = awaitConfig{}
	case cmdAuxDisable:
		c.config |= cfgAuxDisabled
		c.ps2.inhibit(portAux, true)
	case cmdAuxEnable:
		c.config &^= cfgAuxDisabled
		c.ps2.inhibit(portAux, false)
	case cmdAuxTest, cmdKbdTest:
		c.host.enqueue(respPortOK, false)
	case cmdSelfTest:
		c.host.enqueue(respSelfTestOK, false)
	case cmdKbdDisable:
		c.config |= cfgKbdDisabled
		c.ps2.inhibit(portKbd, true)
	case cmdKbdEnable:
		c.config &^= cfgKbdDisabled
		c.ps2.inhibit(portKbd, false)
	case cmdReadInput:
		c.host.enqueue(inputPortValue, false)
	case cmdReadOutput:
		c.host.enqueue(outputPortValue, false)
	case cmdWriteOutput:
		c.pending = awaitOutputPort{}
	case cmdWriteKbdOut:
		c.pending = awaitPrimaryOutput{}
	case cmdWriteAuxOut:
		c.pending = awaitAuxOutput{}
	case cmdWriteAuxDev:
		c.pending = awaitAuxDevice{}
	default:
		switch {
		case b > cmdReadConfig && b <= 0x3f:
			c.host.enqueue(c.store.Load(b&0x1f), false)
		case b > cmdWriteConfig && b <= 0x7f:
			c.pending = awaitStoreWrite{addr: b & 0x1f}
		case b >= 0xf0:
			if b&1 == 0 {
				c.log.Info("i8042: reset pulse", "cmd", hex8(b))
				c.reset()
			}
		default:
			c.log.Debug("i8042: unknown command", "cmd", hex8(b))
		}
	}
}

// setConfig replaces the configuration byte and applies its disable bits.
func (c *I8042) setConfig(b byte) {
	c.config = b
	c.ps2.inhibit(portKbd, b&cfgKbdDisabled != 0)
	c.ps2.inhibit(portAux, b&cfgAuxDisabled != 0)
}

// task forwards at most one received byte per port to the host. Bytes pass
// through as received; cfgTranslate is recorded but not applied.
func (c *I8042) task() {
	for port := range 2 {
		if b, ok := c.ps2.rxRead(port); ok {
			c.host.enqueue(b, port == portAux)
		}
	}
}
