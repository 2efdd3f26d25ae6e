package rabbitmq

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RabbitMQConfig describes the MQTT listener of the broker (RabbitMQ mqtt plugin or Mosquitto).
type RabbitMQConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	ClientID string // a random suffix is appended so replicas never collide

	ConnectRetries int
	MaxElapsed     time.Duration
}

func (c *RabbitMQConfig) brokerURL() string {
	return fmt.Sprintf("tcp://%s:%d", c.Host, c.Port)
}

// NewRabbitMQConn connects with exponential backoff and disconnects when ctx ends.
func NewRabbitMQConn(ctx context.Context, cfg *RabbitMQConfig, logger zerolog.Logger) (mqtt.Client, error) {
	connAddr := cfg.brokerURL()

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "hydroponics"
	}
	clientID = clientID + "-" + uuid.NewString()[:8]

	opts := mqtt.NewClientOptions()
	opts.AddBroker(connAddr)
	opts.SetUsername(cfg.User)
	opts.SetPassword(cfg.Password)
	opts.SetClientID(clientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn().Err(err).Str("broker", connAddr).Msg("mqtt: connection lost")
	})

	// Exponential backoff per le retry in caso di fail
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = cfg.MaxElapsed
	if bo.MaxElapsedTime <= 0 {
		bo.MaxElapsedTime = 10 * time.Second
	}
	maxRetries := cfg.ConnectRetries
	if maxRetries <= 0 {
		maxRetries = 5
	}

	var client mqtt.Client
	err := backoff.Retry(func() error {
		client = mqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			logger.Warn().Err(token.Error()).Str("broker", connAddr).Msg("mqtt: connect failed")
			return token.Error()
		}
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(maxRetries-1)), ctx))
	if err != nil {
		return nil, fmt.Errorf("could not establish MQTT connection after retries: %w", err)
	}

	logger.Info().Str("broker", connAddr).Str("client_id", clientID).Msg("mqtt: connected")

	go func() {
		<-ctx.Done()
		CloseRabbitMQConn(client, logger)
	}()

	return client, nil
}

func CloseRabbitMQConn(client mqtt.Client, logger zerolog.Logger) {
	if client != nil && client.IsConnected() {
		client.Disconnect(250)
		logger.Info().Msg("mqtt: connection closed")
	}
}
