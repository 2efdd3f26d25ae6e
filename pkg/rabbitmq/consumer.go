package rabbitmq

import (
	"context"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

type MessageHandler func(topic string, message mqtt.Message) error

// IConsumer subscribes a handler and blocks until ctx ends.
type IConsumer interface {
	ConsumeMessage(ctx context.Context) error
	SetHandler(handler MessageHandler)
}

// Consumer holds the client, topic and handler for one subscription.
type Consumer struct {
	client  mqtt.Client
	handler MessageHandler
	topic   string
	log     zerolog.Logger
}

func NewConsumer(client mqtt.Client, topic string, handler MessageHandler, logger zerolog.Logger) *Consumer {
	return &Consumer{
		client:  client,
		topic:   topic,
		handler: handler,
		log:     logger,
	}
}

func (c *Consumer) SetHandler(handler MessageHandler) {
	c.handler = handler
}

// qosFor: comandi e eventi di decisione viaggiano a QoS 1, gli snapshot a QoS 0.
func qosFor(topic string) byte {
	t := strings.TrimSpace(topic)
	if strings.HasPrefix(t, "hydro/recommendations/") {
		return 1
	}
	return 0
}

// ConsumeMessage subscribes and blocks until ctx is cancelled.
func (c *Consumer) ConsumeMessage(ctx context.Context) error {
	token := c.client.Subscribe(
		c.topic,
		qosFor(c.topic),
		func(_ mqtt.Client, message mqtt.Message) {
			if c.handler == nil {
				c.log.Warn().Str("topic", c.topic).Msg("mqtt: no handler set")
				return
			}
			if err := c.handler(message.Topic(), message); err != nil {
				c.log.Warn().Err(err).Str("topic", message.Topic()).Msg("mqtt: handler error")
			}
		},
	)
	if token.Wait() && token.Error() != nil {
		c.log.Error().Err(token.Error()).Str("topic", c.topic).Msg("mqtt: subscribe failed")
		return token.Error()
	}

	c.log.Info().Str("topic", c.topic).Msg("mqtt: subscribed")

	<-ctx.Done()

	c.client.Unsubscribe(c.topic).Wait()
	return nil
}
