// kbc emulates an 8042 keyboard controller with a PS/2 keyboard and mouse.
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/alecthomas/kong"
	"golang.org/x/sync/errgroup"
)

type Globals struct {
	Debug bool `help:"log controller activity" env:"KBC_DEBUG"`
	JSON  bool `name:"json" help:"log as JSON"`
}

func main() {
	var cli struct {
		Globals

		Run   runCmd   `cmd:"" default:"withargs" help:"drive the controller from an event script"`
		Store storeCmd `cmd:"" help:"print a store image"`
	}

	ctx := kong.Parse(&cli,
		kong.Name("kbc"),
		kong.Description("8042 keyboard controller with simulated PS/2 devices."),
		kong.UsageOnError(),
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}

type runCmd struct {
	Script    string        `arg:"" optional:"" type:"existingfile" help:"event script, stdin if omitted"`
	Store     string        `name:"store" type:"path" env:"KBC_STORE" help:"non-volatile store image, created if missing"`
	Timeout   int           `name:"timeout" default:"200" env:"KBC_TIMEOUT" help:"scheduler passes before a stalled frame is dropped"`
	MaxPasses int           `name:"max-passes" default:"10000" help:"scheduler passes allowed per event"`
	Rate      time.Duration `name:"rate" default:"0s" help:"minimum time between scheduler passes"`
}

func (r *runCmd) Run(globals *Globals) error {
	log := newLogger(os.Stderr, globals.Debug, globals.JSON)

	var store Store = newMemStore()
	if r.Store != "" {
		fs, err := openFileStore(r.Store, log)
		if err != nil {
			return err
		}
		defer fs.Close()
		store = fs
	}

	in := os.Stdin
	if r.Script != "" {
		f, err := os.Open(r.Script)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	lenient := r.Script == "" && interactive(os.Stdin)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	pace := newPacer(r.Rate)
	defer pace.Stop()

	s := newSession(sessionConfig{
		Store:     store,
		Out:       os.Stdout,
		Log:       log,
		Timeout:   r.Timeout,
		MaxPasses: r.MaxPasses,
		Pacer:     pace,
		Lenient:   lenient,
	})

	events := make(chan event)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(events)
		return readScript(ctx, in, events, lenient, func(err error) {
			log.Error("script: bad line", "err", err)
		})
	})
	g.Go(func() error {
		return s.run(ctx, events)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		log.Info("interrupted")
		return nil
	}
	return err
}

type storeCmd struct {
	Path string `arg:"" type:"existingfile" help:"store image"`
}

func (c *storeCmd) Run(globals *Globals) error {
	buf, err := os.ReadFile(c.Path)
	if err != nil {
		return err
	}
	if len(buf) != storeSize {
		return fmt.Errorf("%s: image is %d bytes, want %d", c.Path, len(buf), storeSize)
	}
	fmt.Print(hex.Dump(buf))
	if err := image(buf).verify(); err != nil {
		return fmt.Errorf("%s: %w", c.Path, err)
	}
	fmt.Printf("checksum %02x ok\n", buf[storeSum])
	return nil
}
