package main

import "time"

const (
	hostQueueSize = 32

	strobeHold = 1 * time.Microsecond
	oeSettle   = 1 * time.Microsecond
)

// hostEntry is a byte waiting for the host, tagged with the channel that
// produced it.
type hostEntry struct {
	b   byte
	aux bool
}

// HostBus is the only part of the controller that touches the parallel bus.
// Outbound bytes go through an output latch that sets OBF for the host;
// inbound bytes arrive in an input latch that raises IBF together with the
// A0 address tag.
type HostBus struct {
	hw      Hardware
	out     queue[hostEntry]
	dropped uint32
}

func newHostBus(hw Hardware) *HostBus {
	h := &HostBus{hw: hw, out: newQueue[hostEntry](hostQueueSize)}
	h.reset()
	return h
}

func (h *HostBus) reset() {
	h.out.reset()
	h.hw.SetBusInput(false)
	h.hw.WriteBus(0x00)
	h.hw.SetSignal(Strobe, false)
	h.hw.SetSignal(InputEnable, true)
	h.hw.SetSignal(InputClear, true)
	h.hw.SetSignal(AuxFlag, false)
}

// enqueue queues b for the host. It is dropped if the queue is full.
func (h *HostBus) enqueue(b byte, aux bool) {
	if !h.out.push(hostEntry{b: b, aux: aux}) {
		h.dropped++
	}
}

func (h *HostBus) pending() bool { return !h.out.empty() }

// pump moves one queued byte into the output latch. It does not wait for the
// host to read the previous byte; a byte still sitting in the latch is
// overwritten.
func (h *HostBus) pump() {
	e, ok := h.out.pop()
	if !ok {
		return
	}
	h.hw.SetSignal(AuxFlag, e.aux)
	h.hw.SetSignal(InputEnable, true) // input latch off the bus
	h.hw.WriteBus(e.b)
	h.hw.SetSignal(Strobe, true)
	h.hw.Delay(strobeHold)
	h.hw.SetSignal(Strobe, false)
}

func (h *HostBus) inputReady() bool { return h.hw.ReadSignal(InputFull) }

// readInput takes the byte out of the input latch and re-arms it. cmd is the
// address tag latched with the byte: true for the command port.
func (h *HostBus) readInput() (b byte, cmd bool) {
	cmd = h.hw.ReadSignal(Command)

	h.hw.SetBusInput(true)
	h.hw.SetSignal(InputEnable, false)
	h.hw.Delay(oeSettle)
	b = h.hw.ReadBus()
	h.hw.SetSignal(InputEnable, true)
	h.hw.SetBusInput(false)

	h.hw.SetSignal(InputClear, false)
	h.hw.SetSignal(InputClear, true)
	return b, cmd
}
