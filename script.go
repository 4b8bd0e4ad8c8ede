package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/buildkite/shellwords"
)

type op int

const (
	opCmd    op = iota // host writes the command port
	opData             // host writes the data port
	opSend             // a device sends bytes
	opWait             // run scheduler passes
	opExpect           // check host output
)

// event is one parsed script line.
type event struct {
	line  int
	op    op
	port  int // opSend, opExpect
	bytes []byte
	n     int // opWait
}

// parseLine parses one script line. ok is false for blank and comment lines.
//
//	cmd <b>...
//	data <b>...
//	kbd <b>...
//	aux <b>...
//	wait <n>
//	expect kbd|aux <b>...
func parseLine(s string) (ev event, ok bool, err error) {
	if i := strings.IndexByte(s, '#'); i >= 0 {
		s = s[:i]
	}
	words, err := shellwords.SplitPosix(s)
	if err != nil {
		return ev, false, err
	}
	if len(words) == 0 {
		return ev, false, nil
	}

	verb, args := words[0], words[1:]
	switch verb {
	case "cmd", "data":
		ev.op = opData
		if verb == "cmd" {
			ev.op = opCmd
		}
		ev.bytes, err = parseBytes(args)
	case "kbd", "aux":
		ev.op = opSend
		ev.port, _ = parsePort(verb)
		ev.bytes, err = parseBytes(args)
	case "wait":
		ev.op = opWait
		if len(args) != 1 {
			return ev, false, errors.New("wait takes one pass count")
		}
		n, perr := strconv.ParseUint(args[0], 0, 31)
		if perr != nil {
			return ev, false, fmt.Errorf("wait: %w", perr)
		}
		ev.n = int(n)
	case "expect":
		ev.op = opExpect
		if len(args) == 0 {
			return ev, false, errors.New("expect needs a channel")
		}
		port, perr := parsePort(args[0])
		if perr != nil {
			return ev, false, perr
		}
		ev.port = port
		ev.bytes, err = parseBytes(args[1:])
	default:
		return ev, false, fmt.Errorf("unknown verb %q", verb)
	}
	if err != nil {
		return ev, false, fmt.Errorf("%s: %w", verb, err)
	}
	return ev, true, nil
}

func parsePort(s string) (int, error) {
	switch s {
	case "kbd":
		return portKbd, nil
	case "aux":
		return portAux, nil
	default:
		return 0, fmt.Errorf("unknown channel %q", s)
	}
}

// parseBytes accepts Go integer literals: 0x1c, 28, 0b11100, 0o34.
func parseBytes(args []string) ([]byte, error) {
	if len(args) == 0 {
		return nil, errors.New("no bytes")
	}
	p := make([]byte, 0, len(args))
	for _, a := range args {
		v, err := strconv.ParseUint(a, 0, 8)
		if err != nil {
			return nil, err
		}
		p = append(p, byte(v))
	}
	return p, nil
}

// readScript parses r line by line and sends the events in order. It returns
// at EOF, on the first bad line unless lenient, or when ctx is done.
func readScript(ctx context.Context, r io.Reader, events chan<- event, lenient bool, report func(error)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- sc.Err()
	}()

	for n := 1; ; n++ {
		var line string
		select {
		case <-ctx.Done():
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				select {
				case err := <-errc:
					return err
				default:
					return ctx.Err()
				}
			}
			line = l
		}

		ev, ok, err := parseLine(line)
		if err != nil {
			err = &ScriptError{Line: n, Err: err}
			if !lenient {
				return err
			}
			report(err)
			continue
		}
		if !ok {
			continue
		}
		ev.line = n
		select {
		case events <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
