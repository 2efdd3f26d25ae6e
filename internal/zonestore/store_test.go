package zonestore

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/LeonardoBeccarini/hydroponics/internal/model/entities"
	"github.com/LeonardoBeccarini/hydroponics/internal/simulator"
)

var t0 = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func fixedClock(at time.Time) func() time.Time { return func() time.Time { return at } }

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{WithRandomSource(simulator.ConstantSource(0.5)), WithClock(fixedClock(t0))}, opts...)
	s, err := New(simulator.DefaultZones(t0), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestNewRejectsBadSeeds(t *testing.T) {
	good := simulator.DefaultZones(t0)[0]
	blank := good
	blank.ID = ""

	cases := map[string][]entities.Zone{
		"empty":     nil,
		"duplicate": {good, good},
		"blank id":  {blank},
	}
	for name, seed := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := New(seed)
			if !errors.Is(err, ErrConfig) {
				t.Fatalf("want ErrConfig, got %v", err)
			}
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("want *ConfigError, got %T", err)
			}
		})
	}
}

func TestNewDerivesStatus(t *testing.T) {
	seed := simulator.DefaultZones(t0)
	seed[0].Status = entities.StatusCritical
	s, err := New(seed)
	if err != nil {
		t.Fatal(err)
	}
	snap := s.Snapshot()
	if snap[0].Status != entities.StatusOptimal {
		t.Fatalf("zone A status %s, want OPTIMAL", snap[0].Status)
	}
	if snap[1].Status != entities.StatusWarning {
		t.Fatalf("zone B status %s, want WARNING", snap[1].Status)
	}
}

func TestTickWithMidpointRandomness(t *testing.T) {
	s := newTestStore(t)
	s.Tick()

	b, ok := s.Zone("z2")
	if !ok {
		t.Fatal("zone z2 missing")
	}
	if b.CurrentReading.PH != 5.4 || b.Status != entities.StatusWarning {
		t.Fatalf("zone B after tick: pH=%v status=%s", b.CurrentReading.PH, b.Status)
	}
	if !b.CurrentReading.Timestamp.Equal(b.LastSync) {
		t.Fatalf("reading timestamp %v != last sync %v", b.CurrentReading.Timestamp, b.LastSync)
	}
}

func TestManyTicksKeepInvariants(t *testing.T) {
	seed := simulator.DefaultZones(t0)
	s, err := New(seed, WithRandomSource(simulator.NewSeededSource(1)), WithClock(fixedClock(t0)))
	if err != nil {
		t.Fatal(err)
	}

	prev := s.Snapshot()
	for i := 0; i < 500; i++ {
		s.Tick()
		cur := s.Snapshot()
		if len(cur) != len(seed) {
			t.Fatalf("tick %d: %d zones", i, len(cur))
		}
		for j := range cur {
			if cur[j].ID != seed[j].ID {
				t.Fatalf("tick %d: id changed %s -> %s", i, seed[j].ID, cur[j].ID)
			}
			if !cur[j].LastSync.After(prev[j].LastSync) {
				t.Fatalf("tick %d: last sync did not advance (%v -> %v)", i, prev[j].LastSync, cur[j].LastSync)
			}
			if ph := cur[j].CurrentReading.PH; ph < 0 || ph > 14 {
				t.Fatalf("tick %d: pH %v", i, ph)
			}
		}
		prev = cur
	}
	if s.Ticks() != 500 {
		t.Fatalf("ticks = %d", s.Ticks())
	}
}

func TestSnapshotIsIsolated(t *testing.T) {
	s := newTestStore(t)
	snap := s.Snapshot()
	snap[0].Name = "mutated"
	snap[0].CurrentReading.PH = 1

	again := s.Snapshot()
	if again[0].Name == "mutated" || again[0].CurrentReading.PH == 1 {
		t.Fatal("snapshot shares memory with the store")
	}
}

func TestSubscribersSeeTicksInOrder(t *testing.T) {
	s := newTestStore(t)

	var mu sync.Mutex
	var seen []uint64
	unsub := s.Subscribe(func(u Update) {
		mu.Lock()
		seen = append(seen, u.Tick)
		mu.Unlock()
		u.Zones[0].Name = "scribbled"
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Tick()
		}()
	}
	wg.Wait()

	unsub()
	unsub()
	s.Tick()

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 20 {
		t.Fatalf("handler called %d times", len(seen))
	}
	for i, tick := range seen {
		if tick != uint64(i+1) {
			t.Fatalf("out of order: %v", seen)
		}
	}
	if s.Snapshot()[0].Name == "scribbled" {
		t.Fatal("subscriber modified store state")
	}
}

func TestPanickingSubscriberDoesNotBreakTick(t *testing.T) {
	s := newTestStore(t, WithLogger(zerolog.Nop()))
	s.Subscribe(func(Update) { panic("boom") })

	var got uint64
	s.Subscribe(func(u Update) { got = u.Tick })

	s.Tick()
	if got != 1 {
		t.Fatalf("second subscriber saw tick %d", got)
	}
}

func TestLastSyncAdvancesWithRealClock(t *testing.T) {
	now := t0
	s, err := New(simulator.DefaultZones(t0), WithClock(func() time.Time {
		now = now.Add(5 * time.Second)
		return now
	}))
	if err != nil {
		t.Fatal(err)
	}
	s.Tick()
	if z, _ := s.Zone("z1"); !z.LastSync.Equal(t0.Add(5 * time.Second)) {
		t.Fatalf("last sync %v", z.LastSync)
	}
}
