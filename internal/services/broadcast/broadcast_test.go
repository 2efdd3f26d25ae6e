package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/LeonardoBeccarini/hydroponics/internal/metrics"
	"github.com/LeonardoBeccarini/hydroponics/internal/model"
	"github.com/LeonardoBeccarini/hydroponics/internal/simulator"
	"github.com/LeonardoBeccarini/hydroponics/internal/zonestore"
)

var t0 = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

type recordingSink struct {
	name string
	mu   sync.Mutex
	keys []string
	msgs [][]byte
	err  error
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Publish(_ context.Context, key string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, key)
	s.msgs = append(s.msgs, payload)
	return s.err
}

func (s *recordingSink) Close() error { return nil }

func TestBroadcasterEncodesSnapshots(t *testing.T) {
	sink := &recordingSink{name: "rec"}
	b := New(zerolog.Nop(), 0, sink)
	b.Handle(zonestore.Update{Tick: 4, At: t0, Zones: simulator.DefaultZones(t0)})

	if len(sink.msgs) != 2 || sink.keys[0] != "z1" || sink.keys[1] != "z2" {
		t.Fatalf("keys %v", sink.keys)
	}
	var ev model.ZoneSnapshotEvent
	if err := json.Unmarshal(sink.msgs[1], &ev); err != nil {
		t.Fatal(err)
	}
	if ev.ZoneID != "z2" || ev.Tick != 4 || ev.Reading.PH != 5.4 || !ev.Timestamp.Equal(t0) {
		t.Fatalf("event %+v", ev)
	}
}

func TestBroadcasterCountsSinkErrors(t *testing.T) {
	bad := &recordingSink{name: "flaky", err: errors.New("broker down")}
	good := &recordingSink{name: "steady"}
	b := New(zerolog.Nop(), 0, bad, good)

	before := testutil.ToFloat64(metrics.SinkErrorsTotal.WithLabelValues("flaky"))
	b.Handle(zonestore.Update{Tick: 1, At: t0, Zones: simulator.DefaultZones(t0)})

	if got := testutil.ToFloat64(metrics.SinkErrorsTotal.WithLabelValues("flaky")) - before; got != 2 {
		t.Fatalf("errors counted %v", got)
	}
	if len(good.msgs) != 2 {
		t.Fatalf("healthy sink starved: %d", len(good.msgs))
	}
}

func TestStoreDrivesBroadcaster(t *testing.T) {
	store, err := zonestore.New(simulator.DefaultZones(t0), zonestore.WithRandomSource(simulator.ConstantSource(0.5)))
	if err != nil {
		t.Fatal(err)
	}
	sink := &recordingSink{name: "rec"}
	store.Subscribe(New(zerolog.Nop(), 0, sink).Handle)

	store.Tick()
	store.Tick()
	if len(sink.msgs) != 4 {
		t.Fatalf("messages %d", len(sink.msgs))
	}
}

type fakePublisher struct {
	topic    string
	qos      byte
	retained bool
	payload  any
}

func (f *fakePublisher) PublishMessage(any) error { return nil }

func (f *fakePublisher) PublishMessageQos(byte, bool, any) error { return nil }

func (f *fakePublisher) PublishToQos(topic string, qos byte, retained bool, message any) error {
	f.topic, f.qos, f.retained, f.payload = topic, qos, retained, message
	return nil
}

func (f *fakePublisher) Close() {}

func TestMQTTSinkTopic(t *testing.T) {
	pub := &fakePublisher{}
	s := NewMQTTSink(pub, "")
	if err := s.Publish(context.Background(), "z2", []byte("{}")); err != nil {
		t.Fatal(err)
	}
	if pub.topic != "hydro/zones/z2" || pub.qos != 0 || !pub.retained {
		t.Fatalf("published %+v", pub)
	}
}

type fakeWriter struct {
	msgs []kafka.Message
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestKafkaSinkKeysByZone(t *testing.T) {
	w := &fakeWriter{}
	s := NewKafkaSinkWithWriter(w)
	if err := s.Publish(context.Background(), "z1", []byte(`{"zone_id":"z1"}`)); err != nil {
		t.Fatal(err)
	}
	if len(w.msgs) != 1 || string(w.msgs[0].Key) != "z1" || string(w.msgs[0].Value) != `{"zone_id":"z1"}` {
		t.Fatalf("messages %+v", w.msgs)
	}
}
