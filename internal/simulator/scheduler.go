package simulator

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// DefaultInterval is the reference tick cadence.
const DefaultInterval = 5 * time.Second

// Ticker is anything advanced by the scheduler (the zone store).
type Ticker interface {
	Tick()
}

// Scheduler drives a Ticker at a fixed cadence from a single goroutine.
type Scheduler struct {
	target   Ticker
	interval time.Duration
	log      zerolog.Logger
}

func NewScheduler(target Ticker, interval time.Duration, logger zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{target: target, interval: interval, log: logger}
}

// Interval returns the effective cadence.
func (s *Scheduler) Interval() time.Duration { return s.interval }

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()

	s.log.Info().Dur("interval", s.interval).Msg("scheduler: started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("scheduler: stopped")
			return
		case <-t.C:
			s.target.Tick()
		}
	}
}
