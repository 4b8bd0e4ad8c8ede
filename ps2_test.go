package main

import (
	"log/slog"
	"testing"

	"github.com/matryer/is"
)

func newTestKBC(timeout int) (*SimHardware, *KBC) {
	hw := NewSimHardware()
	return hw, New(hw, newMemStore(), slog.New(slog.DiscardHandler), timeout)
}

// clockBits plays the first n bits of f onto port as a device would,
// bypassing any Device.
func clockBits(hw *SimHardware, k *KBC, port int, f uint16, n int) {
	l := &hw.links[port]
	for i := range n {
		l.dev[Data] = f>>i&1 != 0
		l.dev[Clock] = false
		k.Edge(port)
		l.dev[Clock] = true
	}
	l.dev[Data] = true
}

func TestDeviceToControllerEveryByte(t *testing.T) {
	is := is.New(t)
	hw, k := newTestKBC(0)
	dev := hw.Attach(portKbd, func() { k.Edge(portKbd) }, nil)

	var got []byte
	for b := range 256 {
		dev.Send(byte(b))
		for range 20 {
			dev.Tick()
			k.Step()
			if v, aux, ok := hw.HostRead(); ok {
				is.True(!aux) // keyboard bytes are not tagged aux
				got = append(got, v)
			}
		}
	}

	is.Equal(len(got), 256)
	for i, b := range got {
		is.Equal(b, byte(i))
	}
	st := k.Stats(portKbd)
	is.Equal(st.Frames, uint32(256))
	is.Equal(st.FramingErrors, uint32(0))
	is.Equal(hw.Overruns(), 0)
}

func TestControllerToDeviceEveryByte(t *testing.T) {
	is := is.New(t)
	hw, k := newTestKBC(0)
	dev := hw.Attach(portAux, func() { k.Edge(portAux) }, nil)

	for b := range 256 {
		k.ps2.txWrite(portAux, byte(b))
		for range 20 {
			k.Step()
			dev.Tick()
		}
		is.Equal(len(dev.Received), b+1)
		is.Equal(k.ps2.state(portAux), idle)
	}

	for i, b := range dev.Received {
		is.Equal(b, byte(i))
	}
	is.Equal(dev.Errors, 0)
	is.Equal(k.Stats(portAux).Sent, uint32(256))
}

func TestRequestToSendHoldsClock(t *testing.T) {
	is := is.New(t)
	hw, k := newTestKBC(0)

	k.ps2.txWrite(portKbd, 0xff)
	k.Step()

	is.Equal(k.ps2.state(portKbd), transmitting)
	is.True(hw.Elapsed() >= rtsHold+rtsGuard)
	is.True(hw.ReadLine(portKbd, Clock)) // clock released after the request
	is.True(!hw.ReadLine(portKbd, Data)) // data held low as the start bit
}

func TestBadParityDropped(t *testing.T) {
	is := is.New(t)
	hw, k := newTestKBC(0)

	clockBits(hw, k, portKbd, frame(0x1c)^1<<9, 11)
	k.Step()
	k.Step()

	_, _, ok := hw.HostRead()
	is.True(!ok) // nothing forwarded
	is.Equal(k.Stats(portKbd).FramingErrors, uint32(1))
	is.Equal(k.ps2.state(portKbd), idle)

	// the next good frame still gets through
	clockBits(hw, k, portKbd, frame(0x1c), 11)
	k.Step()
	b, _, ok := hw.HostRead()
	is.True(ok)
	is.Equal(b, byte(0x1c))
}

func TestFlippedDataBitDropped(t *testing.T) {
	for bit := 1; bit <= 8; bit++ {
		is := is.New(t)
		hw, k := newTestKBC(0)

		// parity left as sent for the original byte
		clockBits(hw, k, portKbd, frame(0x1c)^1<<bit, 11)
		k.Step()
		k.Step()

		_, _, ok := hw.HostRead()
		is.True(!ok)
		is.Equal(k.Stats(portKbd).FramingErrors, uint32(1))
		is.Equal(k.Stats(portKbd).Frames, uint32(0))
	}
}

func TestMissingStopBitDropped(t *testing.T) {
	is := is.New(t)
	hw, k := newTestKBC(0)

	clockBits(hw, k, portKbd, frame(0x1c)&^(1<<10), 11)
	k.Step()

	is.Equal(k.Stats(portKbd).FramingErrors, uint32(1))
	is.Equal(k.Stats(portKbd).Frames, uint32(0))
}

func TestStalledFrameTimesOut(t *testing.T) {
	is := is.New(t)
	const timeout = 5
	hw, k := newTestKBC(timeout)

	clockBits(hw, k, portKbd, frame(0x1c), 3)
	is.Equal(k.ps2.state(portKbd), receiving)

	for range timeout {
		k.Step()
	}
	is.Equal(k.ps2.state(portKbd), receiving) // not yet
	k.Step()
	is.Equal(k.ps2.state(portKbd), idle)
	is.Equal(k.Stats(portKbd).Timeouts, uint32(1))
	is.True(hw.ReadLine(portKbd, Clock))
	is.True(hw.ReadLine(portKbd, Data))

	clockBits(hw, k, portKbd, frame(0x2a), 11)
	k.Step()
	b, _, ok := hw.HostRead()
	is.True(ok)
	is.Equal(b, byte(0x2a))
}

func TestInhibitedPortIgnoresEdges(t *testing.T) {
	is := is.New(t)
	hw, k := newTestKBC(0)

	k.ps2.inhibit(portAux, true)
	is.True(!hw.ReadLine(portAux, Clock))

	clockBits(hw, k, portAux, frame(0x08), 11)
	k.Step()
	is.Equal(k.ps2.state(portAux), idle)
	is.Equal(k.Stats(portAux).Frames, uint32(0))

	k.ps2.inhibit(portAux, false)
	is.True(hw.ReadLine(portAux, Clock))
}

func TestInhibitedPortKeepsTransmitQueue(t *testing.T) {
	is := is.New(t)
	hw, k := newTestKBC(0)
	dev := hw.Attach(portKbd, func() { k.Edge(portKbd) }, nil)

	k.ps2.inhibit(portKbd, true)
	k.ps2.txWrite(portKbd, 0xf4)
	for range 20 {
		k.Step()
		dev.Tick()
	}
	is.Equal(len(dev.Received), 0)
	is.True(k.ps2.quiet()) // waiting bytes on an inhibited port do not count

	k.ps2.inhibit(portKbd, false)
	for range 20 {
		k.Step()
		dev.Tick()
	}
	is.Equal(dev.Received, []byte{0xf4})
}

func TestReceiveQueueOverflow(t *testing.T) {
	is := is.New(t)
	hw, k := newTestKBC(0)

	// no Step, so nothing drains the queue
	for i := range ps2QueueSize + 4 {
		clockBits(hw, k, portKbd, frame(byte(i)), 11)
	}
	st := k.Stats(portKbd)
	is.Equal(st.Frames, uint32(ps2QueueSize-1))
	is.Equal(st.RxDropped, uint32(5))

	// the oldest bytes survive
	b, ok := k.ps2.rxRead(portKbd)
	is.True(ok)
	is.Equal(b, byte(0))
}

func TestTransmitQueueOverflow(t *testing.T) {
	is := is.New(t)
	_, k := newTestKBC(0)
	for range ps2QueueSize {
		k.ps2.txWrite(portKbd, 0xee)
	}
	is.Equal(k.Stats(portKbd).TxDropped, uint32(1))
}

func TestPortStateString(t *testing.T) {
	is := is.New(t)
	is.Equal(idle.String(), "idle")
	is.Equal(transmitAck.String(), "txack")
	is.Equal(portState(9).String(), "portState(9)")
}
