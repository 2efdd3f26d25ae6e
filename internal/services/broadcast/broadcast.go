// Package broadcast fans zone snapshots out to message buses after every tick.
package broadcast

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/LeonardoBeccarini/hydroponics/internal/metrics"
	"github.com/LeonardoBeccarini/hydroponics/internal/model"
	"github.com/LeonardoBeccarini/hydroponics/internal/zonestore"
)

// Sink delivers one encoded snapshot keyed by zone id.
type Sink interface {
	Name() string
	Publish(ctx context.Context, zoneID string, payload []byte) error
	Close() error
}

// Broadcaster is a zone store subscriber. Sink failures are logged and
// counted; they never reach the store.
type Broadcaster struct {
	sinks   []Sink
	timeout time.Duration
	log     zerolog.Logger
}

func New(logger zerolog.Logger, timeout time.Duration, sinks ...Sink) *Broadcaster {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Broadcaster{sinks: sinks, timeout: timeout, log: logger}
}

func (b *Broadcaster) Sinks() int { return len(b.sinks) }

func (b *Broadcaster) Handle(u zonestore.Update) {
	if len(b.sinks) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	for _, z := range u.Zones {
		ev := model.ZoneSnapshotEvent{
			ZoneID:    z.ID,
			Name:      z.Name,
			CropName:  z.CropName,
			Status:    z.Status,
			Reading:   z.CurrentReading,
			Tick:      u.Tick,
			Timestamp: u.At,
		}
		payload, err := json.Marshal(ev)
		if err != nil {
			b.log.Error().Err(err).Str("zone", z.ID).Msg("broadcast: marshal snapshot")
			continue
		}
		for _, s := range b.sinks {
			if err := s.Publish(ctx, z.ID, payload); err != nil {
				metrics.SinkErrorsTotal.WithLabelValues(s.Name()).Inc()
				b.log.Warn().Err(err).Str("sink", s.Name()).Str("zone", z.ID).Uint64("tick", u.Tick).Msg("broadcast: publish failed")
			}
		}
	}
}

func (b *Broadcaster) Close() {
	for _, s := range b.sinks {
		if err := s.Close(); err != nil {
			b.log.Warn().Err(err).Str("sink", s.Name()).Msg("broadcast: close")
		}
	}
}
