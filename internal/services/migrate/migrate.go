// Package migrate replays archived JSON log files through the core ingest
// operation. One-shot tooling for moving pre-database installs over.
package migrate

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/compostlab/soilmon/internal/model"
	"github.com/compostlab/soilmon/internal/services/monitor"
)

// ImportDir ingests every entry of every *.json file in dir. Each file holds
// an array of raw payloads; rejected entries are counted, not fatal.
func ImportDir(ctx context.Context, svc *monitor.Service, dir string) (imported, skipped int, err error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0, err
	}
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, f.Name())
		ok, bad, err := importFile(ctx, svc, path)
		if err != nil {
			slog.Error("migration file failed", "file", f.Name(), "err", err)
			continue
		}
		imported += ok
		skipped += bad
		slog.Info("migrated file", "file", f.Name(), "imported", ok, "skipped", bad)
	}
	return imported, skipped, nil
}

func importFile(ctx context.Context, svc *monitor.Service, path string) (ok, bad int, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, err
	}
	var entries []model.IngestPayload
	if err := json.Unmarshal(b, &entries); err != nil {
		return 0, 0, err
	}
	for _, e := range entries {
		if _, err := svc.Ingest(ctx, e); err != nil {
			bad++
			continue
		}
		ok++
	}
	return ok, bad, nil
}
