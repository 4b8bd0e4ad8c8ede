package main

import (
	"os"

	"golang.org/x/term"
)

// interactive reports whether f is a terminal, in which case mistakes are
// reported and skipped instead of ending the session.
func interactive(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
