// Package schedule runs a stage's tick function on a fixed interval.
package schedule

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"pipeline-workers/logging"
)

// Tick is one polling cycle of a stage.
type Tick func(ctx context.Context) error

// Scheduler runs a Tick immediately and then once per Interval plus a random
// jitter in [0, Jitter).
type Scheduler struct {
	Interval time.Duration
	Jitter   time.Duration

	// After and Int63n default to time.After and math/rand; tests replace them
	// to drive ticks without waiting on the wall clock.
	After  func(time.Duration) <-chan time.Time
	Int63n func(int64) int64
	Logger *zap.SugaredLogger
}

func New(interval, jitter time.Duration, logger *zap.SugaredLogger) *Scheduler {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Scheduler{Interval: interval, Jitter: jitter, Logger: logger}
}

// Next returns the delay before the following tick.
func (s *Scheduler) Next() time.Duration {
	d := s.Interval
	if s.Jitter > 0 {
		n := s.Int63n
		if n == nil {
			n = rand.Int63n
		}
		d += time.Duration(n(int64(s.Jitter)))
	}
	return d
}

// Run loops until ctx is done. A tick that has started always runs to
// completion: it receives a context that is not cancelled with ctx. Tick
// errors are logged and the loop carries on.
func (s *Scheduler) Run(ctx context.Context, tick Tick) {
	after := s.After
	if after == nil {
		after = time.After
	}
	log := s.Logger
	if log == nil {
		log = logging.Nop()
	}

	for n := 1; ; n++ {
		started := time.Now()
		if err := tick(context.WithoutCancel(ctx)); err != nil {
			log.Warnw("tick failed", "tick", n, "error", err)
		} else {
			log.Debugw("tick completed", "tick", n, "took", time.Since(started))
		}

		if ctx.Err() != nil {
			return
		}
		wait := s.Next()
		log.Debugw("waiting for next tick", "in", wait)
		select {
		case <-ctx.Done():
			return
		case <-after(wait):
		}
	}
}
