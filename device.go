package main

import "math/bits"

// PS/2 device responses.
const (
	ps2Ack    = 0xfa
	ps2Resend = 0xfe
	ps2TestOK = 0xaa
	ps2Echo   = 0xee
)

// frame returns the 11 bits of a PS/2 frame for b, first bit in bit 0.
func frame(b byte) uint16 {
	f := uint16(b) << 1 // start bit is 0
	if bits.OnesCount8(b)%2 == 0 {
		f |= 1 << 9 // odd parity
	}
	return f | 1<<10 // stop
}

// Responder answers bytes a device receives from the controller.
type Responder interface {
	Respond(b byte) []byte
}

// Device is a simulated PS/2 peripheral. Like a real one it generates the
// clock, so the controller only sees edges when Tick is called.
type Device struct {
	link *link
	edge func() // the controller's interrupt for this port
	resp Responder

	out []byte // waiting to be sent

	sending bool
	nbits   int
	bits    uint16

	receiving bool
	rxBit     int
	rxShift   uint16

	Received []byte // good frames from the controller
	Errors   int    // bad frames from the controller
}

// Attach connects a device to port of s. edge is called on every falling
// clock edge. resp may be nil.
func (s *SimHardware) Attach(port int, edge func(), resp Responder) *Device {
	return &Device{link: &s.links[port], edge: edge, resp: resp}
}

// Send queues bytes for the controller.
func (d *Device) Send(p ...byte) {
	d.out = append(d.out, p...)
}

// Quiet reports whether the device has nothing it can do right now.
func (d *Device) Quiet() bool {
	return !d.receiving && (len(d.out) == 0 || !d.link.level(Clock))
}

// Tick runs at most one clock cycle and reports whether it did.
func (d *Device) Tick() bool {
	l := d.link
	switch {
	case d.receiving:
		return d.receiveBit()
	case !l.level(Clock):
		// inhibited; a frame cut short is sent again later
		if d.sending {
			d.sending = false
			l.dev[Data] = true
		}
		return false
	case !d.sending && !l.level(Data):
		// request to send
		d.receiving = true
		d.rxBit = 0
		d.rxShift = 0
		return d.receiveBit()
	}

	if !d.sending {
		if len(d.out) == 0 {
			return false
		}
		d.sending = true
		d.bits = frame(d.out[0])
		d.nbits = 0
	}
	l.dev[Data] = d.bits>>d.nbits&1 != 0
	d.pulse()
	d.nbits++
	if d.nbits == 11 {
		d.sending = false
		d.out = d.out[1:]
		l.dev[Data] = true
	}
	return true
}

// pulse drives one clock cycle. The controller acts on the falling edge.
func (d *Device) pulse() {
	d.link.dev[Clock] = false
	d.edge()
	d.link.dev[Clock] = true
}

func (d *Device) receiveBit() bool {
	l := d.link
	if !l.level(Clock) {
		d.receiving = false
		l.dev[Data] = true
		return false
	}
	switch {
	case d.rxBit < 10:
		// data, parity and stop are sampled while the clock is high
		d.pulse()
		if l.level(Data) {
			d.rxShift |= 1 << d.rxBit
		}
		d.rxBit++
	case d.rxBit == 10:
		l.dev[Data] = false // ack
		d.pulse()
		l.dev[Data] = true
		d.rxBit++
	default:
		// one more cycle with the bus released so the controller leaves
		// its ack state
		d.pulse()
		d.receiving = false
		d.accept()
	}
	return true
}

func (d *Device) accept() {
	b := byte(d.rxShift)
	parity := int(d.rxShift>>8) & 1
	stop := d.rxShift>>9&1 != 0
	if !stop || (bits.OnesCount8(b)+parity)%2 != 1 {
		d.Errors++
		d.Send(ps2Resend)
		return
	}
	d.Received = append(d.Received, b)
	if d.resp != nil {
		d.Send(d.resp.Respond(b)...)
	}
}

// Keyboard answers the common keyboard commands.
type Keyboard struct {
	arg       byte // command waiting for its argument
	LEDs      byte
	Typematic byte
}

func (k *Keyboard) Respond(b byte) []byte {
	if cmd := k.arg; cmd != 0 {
		k.arg = 0
		switch cmd {
		case 0xed:
			k.LEDs = b
		case 0xf3:
			k.Typematic = b
		}
		return []byte{ps2Ack}
	}
	switch b {
	case 0xff: // reset
		k.LEDs = 0
		return []byte{ps2Ack, ps2TestOK}
	case 0xee:
		return []byte{ps2Echo}
	case 0xf2: // identify
		return []byte{ps2Ack, 0xab, 0x83}
	case 0xed, 0xf3:
		k.arg = b
	}
	return []byte{ps2Ack}
}

// Mouse answers the common mouse commands.
type Mouse struct {
	arg        byte
	SampleRate byte
	Resolution byte
	Streaming  bool
}

func (m *Mouse) Respond(b byte) []byte {
	if cmd := m.arg; cmd != 0 {
		m.arg = 0
		switch cmd {
		case 0xf3:
			m.SampleRate = b
		case 0xe8:
			m.Resolution = b
		}
		return []byte{ps2Ack}
	}
	switch b {
	case 0xff: // reset
		m.Streaming = false
		return []byte{ps2Ack, ps2TestOK, 0x00}
	case 0xf2: // identify
		return []byte{ps2Ack, 0x00}
	case 0xe9: // status request
		var status byte
		if m.Streaming {
			status |= 0x20
		}
		return []byte{ps2Ack, status, m.Resolution, m.SampleRate}
	case 0xf4:
		m.Streaming = true
	case 0xf5:
		m.Streaming = false
	case 0xf3, 0xe8:
		m.arg = b
	}
	return []byte{ps2Ack}
}
