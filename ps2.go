package main

import (
	"fmt"
	"sync"
	"time"
)

const (
	ps2QueueSize = 16

	// defaultTimeout is the number of scheduler passes a port may spend
	// mid-frame without seeing a clock edge.
	defaultTimeout = 200

	rtsHold  = 150 * time.Microsecond // clock held low, must be >= 100us
	rtsGuard = 10 * time.Microsecond  // data low before the clock is released
)

type portState uint8

const (
	idle portState = iota
	receiving
	transmitting
	transmitAck
)

func (s portState) String() string {
	switch s {
	case idle:
		return "idle"
	case receiving:
		return "rx"
	case transmitting:
		return "tx"
	case transmitAck:
		return "txack"
	default:
		return fmt.Sprintf("portState(%d)", uint8(s))
	}
}

// PortStats counts link events. None of these are visible to the host.
type PortStats struct {
	Frames        uint32 // frames received and queued
	FramingErrors uint32 // frames dropped for bad parity or stop bit
	Sent          uint32 // frames transmitted
	Timeouts      uint32 // stalled frames abandoned
	RxDropped     uint32 // good frames lost to a full receive queue
	TxDropped     uint32 // bytes lost to a full transmit queue
}

// Port is the link layer state of one PS/2 channel.
type Port struct {
	state     portState
	bitCount  uint8
	shift     byte // receive accumulator
	txByte    byte // remaining bits of the byte being sent
	parity    byte
	timeout   int
	inhibited bool

	rx, tx queue[byte]
	stats  PortStats
}

// PS2 runs the 11 bit PS/2 frame protocol on both channels. edge is the
// interrupt side; everything else runs from the scheduler loop.
type PS2 struct {
	hw Hardware

	// mu masks the edge interrupt. The edge handler holds it for one step;
	// the loop holds it around any update the handler can observe.
	mu      sync.Mutex
	ports   [2]Port
	timeout int
}

func newPS2(hw Hardware, timeout int) *PS2 {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	p := &PS2{hw: hw, timeout: timeout}
	for i := range p.ports {
		p.ports[i].rx = newQueue[byte](ps2QueueSize)
		p.ports[i].tx = newQueue[byte](ps2QueueSize)
	}
	p.reset()
	return p
}

// reset returns both ports to idle with empty queues and released lines.
func (p *PS2) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.ports {
		pt := &p.ports[i]
		pt.state = idle
		pt.bitCount = 0
		pt.shift = 0
		pt.txByte = 0
		pt.parity = 0
		pt.timeout = 0
		pt.inhibited = false
		pt.rx.reset()
		pt.tx.reset()
		p.hw.DriveLine(i, Clock, true)
		p.hw.DriveLine(i, Data, true)
	}
}

// edge advances port by one bit. It is called on every falling clock edge
// and must stay short: no allocation, no waiting, no loops.
func (p *PS2) edge(port int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pt := &p.ports[port]
	if pt.inhibited {
		return
	}
	pt.timeout = 0

	switch pt.state {
	case idle:
		if !p.hw.ReadLine(port, Data) {
			// start bit
			pt.state = receiving
			pt.bitCount = 0
			pt.shift = 0
			pt.parity = 0
		}

	case receiving:
		switch {
		case pt.bitCount < 8:
			pt.shift >>= 1
			if p.hw.ReadLine(port, Data) {
				pt.shift |= 0x80
				pt.parity ^= 1
			}
			pt.bitCount++
		case pt.bitCount == 8:
			if p.hw.ReadLine(port, Data) {
				pt.parity ^= 1
			}
			pt.bitCount++
		default:
			// stop bit; data and parity together must hold an odd
			// number of ones
			if p.hw.ReadLine(port, Data) && pt.parity != 0 {
				if pt.rx.push(pt.shift) {
					pt.stats.Frames++
				} else {
					pt.stats.RxDropped++
				}
			} else {
				pt.stats.FramingErrors++
			}
			pt.state = idle
		}

	case transmitting:
		switch {
		case pt.bitCount < 8:
			bit := pt.txByte&1 != 0
			p.hw.DriveLine(port, Data, bit)
			pt.txByte >>= 1
			if bit {
				pt.parity ^= 1
			}
			pt.bitCount++
		case pt.bitCount == 8:
			p.hw.DriveLine(port, Data, pt.parity == 0)
			pt.bitCount++
		case pt.bitCount == 9:
			p.hw.DriveLine(port, Data, true) // stop
			pt.bitCount++
		default:
			pt.state = transmitAck
		}

	case transmitAck:
		// The device's ack bit is not checked.
		p.hw.DriveLine(port, Data, true)
		pt.state = idle
		pt.stats.Sent++
	}
}

// task runs once per scheduler pass. It abandons stalled frames and starts
// transmitting queued bytes on idle ports.
func (p *PS2) task() {
	for port := range p.ports {
		p.taskPort(port)
	}
}

func (p *PS2) taskPort(port int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pt := &p.ports[port]
	if pt.state != idle {
		pt.timeout++
		if pt.timeout > p.timeout {
			p.hw.DriveLine(port, Data, true)
			p.hw.DriveLine(port, Clock, !pt.inhibited)
			pt.state = idle
			pt.timeout = 0
			pt.stats.Timeouts++
		}
	}

	// An inhibited port keeps its transmit queue until it is enabled again;
	// a request to send would have to release the clock the host is holding.
	if pt.state != idle || pt.inhibited || pt.tx.empty() {
		return
	}
	pt.txByte, _ = pt.tx.pop()
	pt.parity = 0
	pt.bitCount = 0

	// request to send
	p.hw.DriveLine(port, Clock, false)
	p.hw.Delay(rtsHold)
	p.hw.DriveLine(port, Data, false)
	p.hw.Delay(rtsGuard)
	p.hw.DriveLine(port, Clock, true)

	pt.state = transmitting
}

// inhibit holds the clock of port low so the device cannot start a frame,
// and makes the edge handler ignore the port.
func (p *PS2) inhibit(port int, on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ports[port].inhibited = on
	p.hw.DriveLine(port, Clock, !on)
}

func (p *PS2) rxAvailable(port int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.ports[port].rx.empty()
}

func (p *PS2) rxRead(port int) (byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ports[port].rx.pop()
}

func (p *PS2) txWrite(port int, b byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pt := &p.ports[port]
	if !pt.tx.push(b) {
		pt.stats.TxDropped++
	}
}

// quiet reports whether both ports are idle with nothing left to move.
// Bytes waiting on an inhibited port do not count.
func (p *PS2) quiet() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.ports {
		pt := &p.ports[i]
		if pt.state != idle || !pt.rx.empty() || (!pt.tx.empty() && !pt.inhibited) {
			return false
		}
	}
	return true
}

func (p *PS2) stats(port int) PortStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ports[port].stats
}

func (p *PS2) state(port int) portState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ports[port].state
}

func (p *PS2) inhibited(port int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ports[port].inhibited
}
