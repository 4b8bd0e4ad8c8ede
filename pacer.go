package main

import (
	"context"
	"time"
)

// pacer spaces scheduler passes out in wall clock time. A zero pacer does
// not wait.
type pacer struct {
	ticks <-chan time.Time
	stop  func()
}

func newPacer(every time.Duration) *pacer {
	if every <= 0 {
		return &pacer{}
	}
	t := time.NewTicker(every)
	return &pacer{ticks: t.C, stop: t.Stop}
}

// wait blocks until the next tick or until ctx is done.
func (p *pacer) wait(ctx context.Context) error {
	if p.ticks == nil {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ticks:
		return nil
	}
}

func (p *pacer) Stop() {
	if p.stop != nil {
		p.stop()
	}
}
