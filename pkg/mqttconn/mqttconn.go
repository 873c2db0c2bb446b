// Package mqttconn wraps the paho MQTT client with backoff-retried
// connection setup and a handler-injectable consumer.
package mqttconn

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	ClientID string
}

// NewConn connects to the broker, retrying with exponential backoff, and
// disconnects when ctx is cancelled. An empty ClientID gets a unique suffix
// so two instances never evict each other's session.
func NewConn(cfg *Config, ctx context.Context) (mqtt.Client, error) {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "soilmon-" + uuid.NewString()[:8]
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port))
	opts.SetUsername(cfg.User)
	opts.SetPassword(cfg.Password)
	opts.SetClientID(clientID)
	opts.SetCleanSession(true)

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 10 * time.Second
	maxRetries := 5

	var client mqtt.Client
	err := backoff.Retry(func() error {
		client = mqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			slog.Warn("mqtt connect failed, retrying", "err", token.Error())
			return token.Error()
		}
		return nil
	}, backoff.WithMaxRetries(bo, uint64(maxRetries-1)))
	if err != nil {
		return nil, fmt.Errorf("could not establish MQTT connection after retries: %w", err)
	}

	slog.Info("connected to MQTT broker", "host", cfg.Host, "port", cfg.Port, "client_id", clientID)

	go func() {
		<-ctx.Done()
		client.Disconnect(250)
		slog.Info("mqtt connection closed")
	}()

	return client, nil
}

func CloseConn(client mqtt.Client) {
	if client.IsConnected() {
		client.Disconnect(250)
	}
}
