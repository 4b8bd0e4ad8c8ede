package main

import (
	"errors"
	"fmt"
)

var (
	// ErrStalled means the simulated system kept moving bytes for longer
	// than the session allows.
	ErrStalled = errors.New("controller did not settle")

	// ErrUnexpectedOutput means the host saw something an expect line did
	// not allow for.
	ErrUnexpectedOutput = errors.New("unexpected host output")
)

// ScriptError is an error tied to a line of an event script.
type ScriptError struct {
	Line int
	Err  error
}

func (e *ScriptError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }
func (e *ScriptError) Unwrap() error { return e.Err }
