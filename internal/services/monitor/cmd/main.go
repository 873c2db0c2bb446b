package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"github.com/compostlab/soilmon/internal/model"
	"github.com/compostlab/soilmon/internal/services/alert"
	"github.com/compostlab/soilmon/internal/services/export"
	"github.com/compostlab/soilmon/internal/services/ingest"
	"github.com/compostlab/soilmon/internal/services/monitor"
	"github.com/compostlab/soilmon/internal/services/store"
	"github.com/compostlab/soilmon/pkg/mqttconn"
	"github.com/compostlab/soilmon/pkg/qcache"
)

func main() {
	slog.SetDefault(slog.New(tint.NewHandler(os.Stdout, nil)))
	_ = godotenv.Load()
	cfg := loadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// === Store ===
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		slog.Error("store open failed", "path", cfg.DBPath, "err", err)
		os.Exit(1)
	}
	defer st.Close()

	svc := monitor.NewService(st, ingest.NewNormalizer(), qcache.New(cfg.CacheTTL))

	// === Optional Influx mirror ===
	if cfg.InfluxURL != "" {
		influx := influxdb2.NewClient(cfg.InfluxURL, cfg.InfluxToken)
		defer influx.Close()
		writer := export.NewWriter(influx.WriteAPI(cfg.InfluxOrg, cfg.InfluxBucket))
		svc.SetMirror(writer)
		slog.Info("influx mirror enabled", "url", cfg.InfluxURL, "bucket", cfg.InfluxBucket)
	}

	// === Optional alert webhook ===
	var notifier monitor.AlertNotifier
	if cfg.AlertWebhookURL != "" {
		notifier = alert.NewNotifier(cfg.AlertWebhookURL, time.Duration(cfg.AlertTimeoutMs)*time.Millisecond)
		slog.Info("alert webhook enabled", "url", cfg.AlertWebhookURL)
	}

	// === Optional MQTT ingest ===
	if cfg.MQTTHost != "" {
		client, err := mqttconn.NewConn(&mqttconn.Config{
			Host:     cfg.MQTTHost,
			Port:     cfg.MQTTPort,
			User:     cfg.MQTTUser,
			Password: cfg.MQTTPassword,
			ClientID: "soil-monitor",
		}, ctx)
		if err != nil {
			slog.Error("mqtt connect failed", "err", err)
			os.Exit(1)
		}
		consumer := mqttconn.NewConsumer(client, cfg.MQTTTopic, 1, func(topic string, m mqtt.Message) error {
			var p model.IngestPayload
			if err := json.Unmarshal(m.Payload(), &p); err != nil {
				slog.Warn("invalid JSON on mqtt ingest", "topic", topic, "err", err)
				return nil // do not block the stream
			}
			if _, err := svc.Ingest(ctx, p); err != nil {
				if errors.Is(err, ingest.ErrNoValidTemperature) {
					slog.Warn("mqtt reading rejected", "topic", topic)
					return nil
				}
				return err
			}
			return nil
		})
		go consumer.ConsumeMessage(ctx)
	}

	// === HTTP ===
	router := monitor.NewRouter(svc, notifier, monitor.RouterConfig{
		IngestToken:       cfg.IngestToken,
		DashboardUser:     cfg.DashboardUser,
		DashboardPassword: cfg.DashboardPassword,
	})
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("soil-monitor HTTP listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "err", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	stop()

	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shCtx)
	slog.Info("soil-monitor: shutdown complete")
}
