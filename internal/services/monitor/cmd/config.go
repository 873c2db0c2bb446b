package main

import (
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port    string
	DataDir string
	DBPath  string

	IngestToken       string
	DashboardUser     string
	DashboardPassword string

	CacheTTL time.Duration

	// Optional device-side MQTT ingest; enabled when MQTTHost is set.
	MQTTHost     string
	MQTTPort     int
	MQTTUser     string
	MQTTPassword string
	MQTTTopic    string

	// Optional Influx mirror; enabled when InfluxURL is set.
	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string

	// Optional battery-alert webhook; enabled when set.
	AlertWebhookURL string
	AlertTimeoutMs  int
}

func envStr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func loadConfig() Config {
	dataDir := envStr("SOIL_MONITOR_DATA_DIR", ".")
	return Config{
		Port:    envStr("PORT", "5050"),
		DataDir: dataDir,
		DBPath:  envStr("SOIL_MONITOR_DB", filepath.Join(dataDir, "temperature_data.db")),

		IngestToken:       loadOrCreateSecret("SOIL_MONITOR_INGEST_TOKEN", filepath.Join(dataDir, ".ingest_token"), 32),
		DashboardUser:     envStr("SOIL_MONITOR_USER", "admin"),
		DashboardPassword: loadOrCreateSecret("SOIL_MONITOR_PASSWORD", filepath.Join(dataDir, ".dashboard_password"), 24),

		CacheTTL: time.Duration(envInt("CACHE_TTL_SECONDS", 60)) * time.Second,

		MQTTHost:     os.Getenv("MQTT_HOST"),
		MQTTPort:     envInt("MQTT_PORT", 1883),
		MQTTUser:     envStr("MQTT_USER", ""),
		MQTTPassword: envStr("MQTT_PASSWORD", ""),
		MQTTTopic:    envStr("MQTT_TOPIC", "soil/reading"),

		InfluxURL:    os.Getenv("INFLUX_URL"),
		InfluxToken:  os.Getenv("INFLUX_TOKEN"),
		InfluxOrg:    envStr("INFLUX_ORG", "soilmon"),
		InfluxBucket: envStr("INFLUX_BUCKET", "readings"),

		AlertWebhookURL: os.Getenv("ALERT_WEBHOOK_URL"),
		AlertTimeoutMs:  envInt("ALERT_TIMEOUT_MS", 3000),
	}
}

// loadOrCreateSecret resolves a secret from the environment, then from the
// given file, and finally generates one and persists it with mode 0600, so a
// bare first start still comes up with working auth.
func loadOrCreateSecret(envVar, path string, length int) string {
	if v := strings.TrimSpace(os.Getenv(envVar)); v != "" {
		return v
	}
	if b, err := os.ReadFile(path); err == nil {
		if s := strings.TrimSpace(string(b)); s != "" {
			return s
		}
	}
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		slog.Error("secret generation failed", "err", err)
		os.Exit(1)
	}
	secret := base64.RawURLEncoding.EncodeToString(buf)
	if err := os.WriteFile(path, []byte(secret), 0o600); err != nil {
		slog.Warn("could not persist generated secret", "path", path, "err", err)
	}
	return secret
}
