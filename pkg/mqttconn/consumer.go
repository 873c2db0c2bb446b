package mqttconn

import (
	"context"
	"log/slog"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// IConsumer is the subscription loop the services depend on.
type IConsumer interface {
	ConsumeMessage(ctx context.Context)
	SetHandler(handler func(topic string, message mqtt.Message) error)
}

// Consumer subscribes to one topic filter and feeds messages to its handler.
type Consumer struct {
	client  mqtt.Client
	topic   string
	qos     byte
	handler func(topic string, message mqtt.Message) error
}

func NewConsumer(client mqtt.Client, topic string, qos byte, handler func(topic string, message mqtt.Message) error) *Consumer {
	return &Consumer{client: client, topic: topic, qos: qos, handler: handler}
}

func (c *Consumer) SetHandler(handler func(topic string, message mqtt.Message) error) {
	c.handler = handler
}

// ConsumeMessage subscribes and blocks until ctx is cancelled, then
// unsubscribes.
func (c *Consumer) ConsumeMessage(ctx context.Context) {
	token := c.client.Subscribe(c.topic, c.qos, func(_ mqtt.Client, message mqtt.Message) {
		if c.handler == nil {
			slog.Warn("no handler set", "topic", c.topic)
			return
		}
		if err := c.handler(message.Topic(), message); err != nil {
			slog.Error("message handling failed", "topic", message.Topic(), "err", err)
		}
	})
	if token.Wait() && token.Error() != nil {
		slog.Error("subscribe failed", "topic", c.topic, "err", token.Error())
		return
	}
	slog.Info("subscribed", "topic", c.topic)

	<-ctx.Done()

	unsub := c.client.Unsubscribe(c.topic)
	unsub.Wait()
}
