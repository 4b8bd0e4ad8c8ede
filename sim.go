package main

import "time"

// link is one simulated PS/2 cable. Each side can only pull a line low; the
// level seen by both is the wired AND.
type link struct {
	ctl, dev [2]bool // released, indexed by Line
}

func newLink() link {
	return link{ctl: [2]bool{true, true}, dev: [2]bool{true, true}}
}

func (l *link) level(line Line) bool { return l.ctl[line] && l.dev[line] }

// SimHardware is a Hardware with simulated PS/2 cables and the pair of host
// latches. It is not safe for concurrent use; whoever steps the controller
// owns it.
type SimHardware struct {
	links [2]link

	bus      byte // value driven by the controller
	busInput bool
	signals  [Command + 1]bool

	in struct {
		b         byte
		cmd, full bool
	}
	out struct {
		e    hostEntry
		full bool
	}

	latched  []hostEntry // every output latch capture, oldest first
	overruns int         // captures over a byte the host had not read
	elapsed  time.Duration
}

func NewSimHardware() *SimHardware {
	s := &SimHardware{}
	for i := range s.links {
		s.links[i] = newLink()
	}
	s.signals[InputEnable] = true
	s.signals[InputClear] = true
	return s
}

func (s *SimHardware) ReadLine(port int, l Line) bool { return s.links[port].level(l) }

func (s *SimHardware) DriveLine(port int, l Line, release bool) { s.links[port].ctl[l] = release }

func (s *SimHardware) WriteBus(v byte) { s.bus = v }

func (s *SimHardware) ReadBus() byte {
	switch {
	case !s.busInput:
		return s.bus
	case !s.signals[InputEnable]:
		return s.in.b
	default:
		return 0xff // floating
	}
}

func (s *SimHardware) SetBusInput(input bool) { s.busInput = input }

func (s *SimHardware) SetSignal(sig Signal, high bool) {
	prev := s.signals[sig]
	s.signals[sig] = high
	switch sig {
	case Strobe:
		if high && !prev {
			s.capture()
		}
	case InputClear:
		if !high {
			s.in.full = false
		}
	}
}

func (s *SimHardware) ReadSignal(sig Signal) bool {
	switch sig {
	case InputFull:
		return s.in.full
	case Command:
		return s.in.cmd
	default:
		return s.signals[sig]
	}
}

func (s *SimHardware) Delay(d time.Duration) { s.elapsed += d }

// capture clocks the bus into the output latch.
func (s *SimHardware) capture() {
	if s.out.full {
		s.overruns++
	}
	s.out.e = hostEntry{b: s.bus, aux: s.signals[AuxFlag]}
	s.out.full = true
	s.latched = append(s.latched, s.out.e)
}

// HostWrite is the host writing b to the data port, or to the command port
// if cmd is set. It fails while the previous byte is still unread.
func (s *SimHardware) HostWrite(b byte, cmd bool) bool {
	if s.in.full {
		return false
	}
	s.in.b, s.in.cmd, s.in.full = b, cmd, true
	return true
}

// HostRead is the host reading the output latch.
func (s *SimHardware) HostRead() (b byte, aux, ok bool) {
	if !s.out.full {
		return 0, false, false
	}
	s.out.full = false
	return s.out.e.b, s.out.e.aux, true
}

func (s *SimHardware) InputFull() bool  { return s.in.full }
func (s *SimHardware) OutputFull() bool { return s.out.full }
func (s *SimHardware) Overruns() int    { return s.overruns }

// Elapsed is the total time spent in Delay.
func (s *SimHardware) Elapsed() time.Duration { return s.elapsed }
