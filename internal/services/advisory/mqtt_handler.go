package advisory

import (
	"encoding/json"
	"fmt"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/LeonardoBeccarini/hydroponics/internal/model"
	"github.com/LeonardoBeccarini/hydroponics/internal/model/entities"
	"github.com/LeonardoBeccarini/hydroponics/pkg/dedup"
)

const DefaultDecisionTopic = "hydro/recommendations/decide"

// DecisionHandler applies DecisionCommand messages. Commands arrive at QoS 1
// and may be redelivered; identical payloads are applied once.
type DecisionHandler struct {
	decider Decider
	dedup   *dedup.Deduper
	log     zerolog.Logger
}

func NewDecisionHandler(d Decider, dd *dedup.Deduper, logger zerolog.Logger) *DecisionHandler {
	if dd == nil {
		dd = dedup.New(0, 0)
	}
	return &DecisionHandler{decider: d, dedup: dd, log: logger}
}

// Handle matches rabbitmq.MessageHandler.
func (h *DecisionHandler) Handle(topic string, m mqtt.Message) error {
	payload := m.Payload()
	if !h.dedup.ShouldProcessPayload(payload) {
		h.log.Debug().Str("topic", topic).Bool("dup_flag", m.Duplicate()).Msg("advisory: duplicate command dropped")
		return nil
	}
	return h.apply(payload)
}

func (h *DecisionHandler) apply(payload []byte) error {
	var cmd model.DecisionCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return fmt.Errorf("decode decision command: %w", err)
	}
	id := strings.TrimSpace(cmd.RecommendationID)
	if id == "" {
		return fmt.Errorf("decision command without recommendation_id")
	}
	outcome, ok := entities.ParseOutcome(cmd.Outcome)
	if !ok {
		return fmt.Errorf("decision command %s: unknown outcome %q", id, cmd.Outcome)
	}

	rec, err := h.decider.Decide(id, outcome)
	if err != nil {
		return fmt.Errorf("decision command %s: %w", id, err)
	}
	h.log.Info().
		Str("id", rec.ID).
		Str("zone", rec.ZoneID).
		Str("status", string(rec.Status)).
		Str("operator", cmd.Operator).
		Msg("advisory: decision applied from mqtt")
	return nil
}
