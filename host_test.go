package main

import (
	"testing"

	"github.com/matryer/is"
)

func TestHostPumpTagsChannel(t *testing.T) {
	is := is.New(t)
	hw := NewSimHardware()
	h := newHostBus(hw)

	h.enqueue(0x1c, false)
	h.enqueue(0x08, true)
	is.True(h.pending())

	h.pump()
	b, aux, ok := hw.HostRead()
	is.True(ok)
	is.Equal(b, byte(0x1c))
	is.True(!aux)

	h.pump()
	b, aux, ok = hw.HostRead()
	is.True(ok)
	is.Equal(b, byte(0x08))
	is.True(aux)

	is.True(!h.pending())
	is.True(!hw.ReadSignal(Strobe)) // strobe returned low
	is.Equal(hw.Elapsed(), 2*strobeHold)
}

func TestHostPumpOverwritesUnreadByte(t *testing.T) {
	is := is.New(t)
	hw := NewSimHardware()
	h := newHostBus(hw)

	h.enqueue(0x01, false)
	h.enqueue(0x02, false)
	h.pump()
	h.pump()

	is.Equal(hw.Overruns(), 1)
	b, _, ok := hw.HostRead()
	is.True(ok)
	is.Equal(b, byte(0x02)) // the newer byte wins
	is.Equal(hw.latched, []hostEntry{{b: 0x01}, {b: 0x02}})
}

func TestHostQueueDropsWhenFull(t *testing.T) {
	is := is.New(t)
	h := newHostBus(NewSimHardware())
	for i := range 40 {
		h.enqueue(byte(i), false)
	}
	is.Equal(h.dropped, uint32(40-(hostQueueSize-1)))
}

func TestHostReadInput(t *testing.T) {
	is := is.New(t)
	hw := NewSimHardware()
	h := newHostBus(hw)

	is.True(!h.inputReady())
	is.True(hw.HostWrite(0xaa, true))
	is.True(!hw.HostWrite(0x00, false)) // latch still full
	is.True(h.inputReady())

	b, cmd := h.readInput()
	is.Equal(b, byte(0xaa))
	is.True(cmd)
	is.True(!h.inputReady())

	// bus back to driving the output latch
	is.True(!hw.busInput)
	is.True(hw.ReadSignal(InputEnable))
	is.True(hw.ReadSignal(InputClear))

	is.True(hw.HostWrite(0x55, false))
	b, cmd = h.readInput()
	is.Equal(b, byte(0x55))
	is.True(!cmd)
}

func TestHostResetClearsQueue(t *testing.T) {
	is := is.New(t)
	hw := NewSimHardware()
	h := newHostBus(hw)
	h.enqueue(0x55, true)
	h.reset()
	is.True(!h.pending())
	is.True(!hw.ReadSignal(AuxFlag))
}
