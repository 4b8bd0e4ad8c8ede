package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
)

const defaultMaxPasses = 10000

// session runs a controller on simulated hardware with a keyboard and a
// mouse attached, driven by script events.
type session struct {
	hw       *SimHardware
	kbc      *KBC
	devs     [2]*Device
	con      *Console
	pace     *pacer
	log      *slog.Logger
	lenient  bool
	maxPass  int
	keyboard Keyboard
	mouse    Mouse
}

type sessionConfig struct {
	Store     Store
	Out       io.Writer
	Log       *slog.Logger
	Timeout   int // stalled frame limit, scheduler passes
	MaxPasses int // per event
	Pacer     *pacer
	Lenient   bool // log failed events and carry on
}

func newSession(cfg sessionConfig) *session {
	s := &session{
		hw:      NewSimHardware(),
		log:     cfg.Log,
		pace:    cfg.Pacer,
		lenient: cfg.Lenient,
		maxPass: cfg.MaxPasses,
	}
	if s.pace == nil {
		s.pace = newPacer(0)
	}
	if s.maxPass <= 0 {
		s.maxPass = defaultMaxPasses
	}
	if cfg.Store == nil {
		cfg.Store = newMemStore()
	}
	s.kbc = New(s.hw, cfg.Store, cfg.Log, cfg.Timeout)
	s.devs[portKbd] = s.hw.Attach(portKbd, func() { s.kbc.Edge(portKbd) }, &s.keyboard)
	s.devs[portAux] = s.hw.Attach(portAux, func() { s.kbc.Edge(portAux) }, &s.mouse)
	s.con = newConsole(s.hw, cfg.Out)
	return s
}

// run applies events until the channel is closed or ctx is done.
func (s *session) run(ctx context.Context, events <-chan event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			err := s.apply(ctx, ev)
			if err == nil {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			err = &ScriptError{Line: ev.line, Err: err}
			if !s.lenient {
				return err
			}
			s.log.Error("session: event failed", "err", err)
		}
	}
}

func (s *session) apply(ctx context.Context, ev event) error {
	switch ev.op {
	case opCmd, opData:
		for _, b := range ev.bytes {
			if err := s.write(ctx, b, ev.op == opCmd); err != nil {
				return err
			}
		}
	case opSend:
		s.devs[ev.port].Send(ev.bytes...)
	case opWait:
		for range ev.n {
			if err := s.pass(ctx); err != nil {
				return err
			}
		}
		return nil
	case opExpect:
		return s.expect(ev.port == portAux, ev.bytes)
	}
	return s.settle(ctx)
}

// write hands b to the input latch once the host may write again.
func (s *session) write(ctx context.Context, b byte, cmd bool) error {
	for range s.maxPass {
		if s.hw.HostWrite(b, cmd) {
			return nil
		}
		if err := s.pass(ctx); err != nil {
			return err
		}
	}
	return fmt.Errorf("input buffer still full: %w", ErrStalled)
}

// settle steps until the controller, both devices and both latches are quiet.
func (s *session) settle(ctx context.Context) error {
	for range s.maxPass {
		if s.quiet() {
			return nil
		}
		if err := s.pass(ctx); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w after %d passes", ErrStalled, s.maxPass)
}

func (s *session) quiet() bool {
	return s.kbc.Quiet() &&
		s.devs[portKbd].Quiet() && s.devs[portAux].Quiet() &&
		!s.hw.InputFull() && !s.hw.OutputFull()
}

// pass is one scheduler pass with at most one clock cycle per device.
func (s *session) pass(ctx context.Context) error {
	if err := s.pace.wait(ctx); err != nil {
		return err
	}
	for _, d := range s.devs {
		d.Tick()
	}
	s.kbc.Step()
	return s.con.poll()
}

// expect checks the oldest unchecked host output against want.
func (s *session) expect(aux bool, want []byte) error {
	wantEntries := make([]hostEntry, len(want))
	for i, b := range want {
		wantEntries[i] = hostEntry{b: b, aux: aux}
	}
	got := s.con.take(len(want))
	if !slices.Equal(got, wantEntries) {
		return fmt.Errorf("%w: got %v, want %v", ErrUnexpectedOutput, got, wantEntries)
	}
	return nil
}
