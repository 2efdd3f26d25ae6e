package rabbitmq

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const publishTimeout = 5 * time.Second

// IPublisher publishes to a default topic or to an explicit one.
type IPublisher interface {
	PublishMessage(message any) error
	PublishMessageQos(qos byte, retained bool, message any) error
	PublishToQos(topic string, qos byte, retained bool, message any) error
	Close()
}

// Publisher holds the shared client and its default topic.
type Publisher struct {
	client mqtt.Client
	topic  string
	qos    byte
}

func NewPublisher(client mqtt.Client, topic string) *Publisher {
	return &Publisher{client: client, topic: topic, qos: qosFor(topic)}
}

func (p *Publisher) PublishMessage(message any) error {
	return p.PublishToQos(p.topic, p.qos, false, message)
}

func (p *Publisher) PublishMessageQos(qos byte, retained bool, message any) error {
	return p.PublishToQos(p.topic, qos, retained, message)
}

// PublishToQos accepts string, []byte or any JSON-encodable value.
func (p *Publisher) PublishToQos(topic string, qos byte, retained bool, message any) error {
	if p.client == nil {
		return fmt.Errorf("publish %s: no mqtt client", topic)
	}
	payload, err := encode(message)
	if err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}

	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timed out", topic)
	}
	if token.Error() != nil {
		return fmt.Errorf("failed to publish message on %s: %w", topic, token.Error())
	}
	return nil
}

// Close disconnects the shared client.
func (p *Publisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}

func encode(message any) ([]byte, error) {
	switch m := message.(type) {
	case []byte:
		return m, nil
	case string:
		return []byte(m), nil
	default:
		return json.Marshal(m)
	}
}
