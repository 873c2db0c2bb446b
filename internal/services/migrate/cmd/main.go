package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"github.com/compostlab/soilmon/internal/services/ingest"
	"github.com/compostlab/soilmon/internal/services/migrate"
	"github.com/compostlab/soilmon/internal/services/monitor"
	"github.com/compostlab/soilmon/internal/services/store"
	"github.com/compostlab/soilmon/pkg/qcache"
)

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	slog.SetDefault(slog.New(tint.NewHandler(os.Stdout, nil)))
	_ = godotenv.Load()

	dbPath := env("SOIL_MONITOR_DB", "temperature_data.db")
	logDir := env("SOIL_MONITOR_LOG_DIR", "logs")

	st, err := store.Open(dbPath)
	if err != nil {
		slog.Error("store open failed", "path", dbPath, "err", err)
		os.Exit(1)
	}
	defer st.Close()

	svc := monitor.NewService(st, ingest.NewNormalizer(), qcache.New(time.Minute))

	imported, skipped, err := migrate.ImportDir(context.Background(), svc, logDir)
	if err != nil {
		slog.Error("migration failed", "dir", logDir, "err", err)
		os.Exit(1)
	}
	slog.Info("migration complete", "imported", imported, "skipped", skipped)
}
