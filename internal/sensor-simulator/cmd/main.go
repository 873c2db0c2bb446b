package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	simulator "github.com/compostlab/soilmon/internal/sensor-simulator"
	"github.com/compostlab/soilmon/pkg/mqttconn"
)

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func main() {
	slog.SetDefault(slog.New(tint.NewHandler(os.Stdout, nil)))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := mqttconn.NewConn(&mqttconn.Config{
		Host:     env("MQTT_HOST", "localhost"),
		Port:     envInt("MQTT_PORT", 1883),
		User:     env("MQTT_USER", ""),
		Password: env("MQTT_PASSWORD", ""),
	}, ctx)
	if err != nil {
		slog.Error("mqtt connect failed", "err", err)
		os.Exit(1)
	}
	defer mqttconn.CloseConn(client)

	topic := env("MQTT_TOPIC", "soil/reading")
	interval := time.Duration(envInt("PUBLISH_INTERVAL_SECONDS", 60)) * time.Second
	gen := simulator.NewGenerator(time.Now().UnixNano())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("simulator publishing", "topic", topic, "interval", interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			payload := gen.Next()
			if token := client.Publish(topic, 1, false, payload); token.Wait() && token.Error() != nil {
				slog.Error("publish failed", "err", token.Error())
			}
		}
	}
}
