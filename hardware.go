package main

import (
	"fmt"
	"time"
)

// PS/2 channels.
const (
	portKbd = 0 // primary, keyboard
	portAux = 1 // auxiliary, mouse
)

func portName(port int) string {
	if port == portAux {
		return "aux"
	}
	return "kbd"
}

// Line is one of the two open-drain wires of a PS/2 link.
type Line int

const (
	Clock Line = iota
	Data
)

func (l Line) String() string {
	switch l {
	case Clock:
		return "clock"
	case Data:
		return "data"
	default:
		return fmt.Sprintf("Line(%d)", int(l))
	}
}

// Signal is a handshake line between the controller and the host latches.
type Signal int

const (
	// Outputs.
	Strobe      Signal = iota // rising edge clocks the bus into the output latch
	AuxFlag                   // high while the latched byte came from the aux channel
	InputEnable               // active low, input latch drives the bus
	InputClear                // active low, clears the input buffer full flag

	// Inputs.
	InputFull // host wrote a byte that has not been read yet
	Command   // address tag latched with InputFull, high for the command port
)

func (s Signal) String() string {
	switch s {
	case Strobe:
		return "strobe"
	case AuxFlag:
		return "aux"
	case InputEnable:
		return "oe#"
	case InputClear:
		return "ibfclr#"
	case InputFull:
		return "ibf"
	case Command:
		return "a0"
	default:
		return fmt.Sprintf("Signal(%d)", int(s))
	}
}

// Hardware is everything the controller needs from the board. The protocol
// and command logic depend on nothing else.
type Hardware interface {
	// ReadLine samples the wired level of a PS/2 line.
	ReadLine(port int, l Line) bool
	// DriveLine pulls a PS/2 line low, or releases it to float high.
	DriveLine(port int, l Line, release bool)

	WriteBus(v byte)
	ReadBus() byte
	// SetBusInput turns the parallel bus around.
	SetBusInput(input bool)

	SetSignal(s Signal, high bool)
	ReadSignal(s Signal) bool

	// Delay busy waits for d. Only ever called with short, bounded
	// durations.
	Delay(d time.Duration)
}
