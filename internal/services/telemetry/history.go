package telemetry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/LeonardoBeccarini/hydroponics/internal/model/entities"
	"github.com/LeonardoBeccarini/hydroponics/internal/zonestore"
)

// HistorySource yields bucketed averages; an empty zoneID means every zone.
type HistorySource interface {
	Points(ctx context.Context, zoneID string) ([]entities.HistoryPoint, error)
}

type bucket struct {
	start time.Time
	n     int
	sumT  float64
	sumH  float64
	sumPH float64
}

// History buffers readings per zone and folds them into fixed-width buckets,
// keeping only the most recent ones.
type History struct {
	mu    sync.RWMutex
	width time.Duration
	keep  int
	zones map[string][]*bucket
}

func NewHistory(width time.Duration, keep int) *History {
	if width <= 0 {
		width = time.Hour
	}
	if keep <= 0 {
		keep = 24
	}
	return &History{width: width, keep: keep, zones: make(map[string][]*bucket)}
}

// Handle is a zone store subscriber.
func (h *History) Handle(u zonestore.Update) {
	for _, z := range u.Zones {
		h.Add(z.ID, z.CurrentReading)
	}
}

func (h *History) Add(zoneID string, r entities.SensorReading) {
	start := r.Timestamp.UTC().Truncate(h.width)

	h.mu.Lock()
	defer h.mu.Unlock()

	bs := h.zones[zoneID]
	var b *bucket
	if n := len(bs); n > 0 && bs[n-1].start.Equal(start) {
		b = bs[n-1]
	} else if n > 0 && start.Before(bs[n-1].start) {
		// late reading: fold into its bucket if still kept
		for _, old := range bs {
			if old.start.Equal(start) {
				b = old
				break
			}
		}
		if b == nil {
			return
		}
	} else {
		b = &bucket{start: start}
		bs = append(bs, b)
		if len(bs) > h.keep {
			bs = bs[len(bs)-h.keep:]
		}
		h.zones[zoneID] = bs
	}

	b.n++
	b.sumT += r.TemperatureC
	b.sumH += r.HumidityPct
	b.sumPH += r.PH
}

func (h *History) Points(_ context.Context, zoneID string) ([]entities.HistoryPoint, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []entities.HistoryPoint
	for id, bs := range h.zones {
		if zoneID != "" && id != zoneID {
			continue
		}
		for _, b := range bs {
			n := float64(b.n)
			out = append(out, entities.HistoryPoint{
				ZoneID:       id,
				Time:         b.start,
				TemperatureC: b.sumT / n,
				HumidityPct:  b.sumH / n,
				PH:           b.sumPH / n,
				Samples:      b.n,
			})
		}
	}
	sortPoints(out)
	return out, nil
}

func sortPoints(ps []entities.HistoryPoint) {
	sort.Slice(ps, func(i, j int) bool {
		if !ps[i].Time.Equal(ps[j].Time) {
			return ps[i].Time.Before(ps[j].Time)
		}
		return ps[i].ZoneID < ps[j].ZoneID
	})
}

// Fallback prova la sorgente primaria e ripiega sulla secondaria se fallisce o è vuota.
type Fallback struct {
	Primary   HistorySource
	Secondary HistorySource
}

func (f Fallback) Points(ctx context.Context, zoneID string) ([]entities.HistoryPoint, error) {
	if f.Primary != nil {
		if pts, err := f.Primary.Points(ctx, zoneID); err == nil && len(pts) > 0 {
			return pts, nil
		}
	}
	if f.Secondary == nil {
		return nil, nil
	}
	return f.Secondary.Points(ctx, zoneID)
}
