package advisory

import (
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/LeonardoBeccarini/hydroponics/internal/model"
	"github.com/LeonardoBeccarini/hydroponics/internal/model/entities"
	"github.com/LeonardoBeccarini/hydroponics/pkg/rabbitmq"
)

const DefaultDecidedTopic = "hydro/recommendations/decided/{zone}"

// EventPublisher emits a DecisionEvent (QoS 1) for every decided recommendation.
type EventPublisher struct {
	pub   rabbitmq.IPublisher
	topic string
	now   func() time.Time
	log   zerolog.Logger
}

func NewEventPublisher(pub rabbitmq.IPublisher, topic string, logger zerolog.Logger) *EventPublisher {
	if topic == "" {
		topic = DefaultDecidedTopic
	}
	return &EventPublisher{pub: pub, topic: topic, now: time.Now, log: logger}
}

// OnDecision is registered with Aggregator.OnDecision.
func (p *EventPublisher) OnDecision(r entities.Recommendation) {
	ts := p.now().UTC()
	if r.DecidedAt != nil {
		ts = *r.DecidedAt
	}
	ev := model.DecisionEvent{
		RecommendationID: r.ID,
		ZoneID:           r.ZoneID,
		Parameter:        r.Parameter,
		Status:           string(r.Status),
		Timestamp:        ts,
	}
	topic := strings.ReplaceAll(p.topic, "{zone}", r.ZoneID)
	if err := p.pub.PublishToQos(topic, 1, false, ev); err != nil {
		p.log.Warn().Err(err).Str("id", r.ID).Str("topic", topic).Msg("advisory: decision event not published")
	}
}
