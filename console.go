package main

import (
	"fmt"
	"io"
)

// Console is the host end of the output latch. It reads every byte the
// controller latches, prints it and keeps it for expect lines.
type Console struct {
	hw   *SimHardware
	w    io.Writer
	seen []hostEntry
}

func newConsole(hw *SimHardware, w io.Writer) *Console {
	return &Console{hw: hw, w: w}
}

// poll reads the output latch if it is full.
func (c *Console) poll() error {
	b, aux, ok := c.hw.HostRead()
	if !ok {
		return nil
	}
	e := hostEntry{b: b, aux: aux}
	c.seen = append(c.seen, e)
	_, err := fmt.Fprintln(c.w, e)
	return err
}

// take removes the oldest n entries not yet taken.
func (c *Console) take(n int) []hostEntry {
	n = min(n, len(c.seen))
	got := c.seen[:n:n]
	c.seen = c.seen[n:]
	return got
}

func (e hostEntry) String() string {
	if e.aux {
		return fmt.Sprintf("aux %02x", e.b)
	}
	return fmt.Sprintf("kbd %02x", e.b)
}
