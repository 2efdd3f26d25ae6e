package broadcast

import (
	"context"
	"strings"

	"github.com/LeonardoBeccarini/hydroponics/pkg/rabbitmq"
)

const DefaultSnapshotTopic = "hydro/zones/{zone}"

// MQTTSink publishes each snapshot retained at QoS 0 on a per-zone topic.
type MQTTSink struct {
	pub   rabbitmq.IPublisher
	topic string
}

// NewMQTTSink: topic may contain "{zone}", replaced by the zone id.
func NewMQTTSink(pub rabbitmq.IPublisher, topic string) *MQTTSink {
	if topic == "" {
		topic = DefaultSnapshotTopic
	}
	return &MQTTSink{pub: pub, topic: topic}
}

func (s *MQTTSink) Name() string { return "mqtt" }

func (s *MQTTSink) Topic(zoneID string) string {
	return strings.ReplaceAll(s.topic, "{zone}", zoneID)
}

func (s *MQTTSink) Publish(_ context.Context, zoneID string, payload []byte) error {
	return s.pub.PublishToQos(s.Topic(zoneID), 0, true, payload)
}

// Close is a no-op: the client is shared and closed by its owner.
func (s *MQTTSink) Close() error { return nil }
