// Package monitor wires the ingest normalizer, the store, the aggregator and
// the query cache into the operations the transport layer calls.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/compostlab/soilmon/internal/model"
	"github.com/compostlab/soilmon/internal/services/analytics"
	"github.com/compostlab/soilmon/internal/services/ingest"
	"github.com/compostlab/soilmon/internal/services/store"
	"github.com/compostlab/soilmon/pkg/qcache"
)

// ReadingSink receives accepted readings for mirroring to an external
// system. Implementations must not block the ingest path.
type ReadingSink interface {
	WriteReading(r model.Reading)
}

type Service struct {
	store  *store.Store
	norm   *ingest.Normalizer
	cache  *qcache.Cache
	now    func() time.Time
	mirror ReadingSink
}

func NewService(st *store.Store, norm *ingest.Normalizer, cache *qcache.Cache) *Service {
	return &Service{store: st, norm: norm, cache: cache, now: time.Now}
}

// SetMirror attaches an optional downstream sink for accepted readings.
func (s *Service) SetMirror(sink ReadingSink) { s.mirror = sink }

// Ingest validates the payload, appends it, and clears the query cache so
// the very next poll sees the new row. Returns the assigned reading id.
func (s *Service) Ingest(ctx context.Context, p model.IngestPayload) (int64, error) {
	r, err := s.norm.Accept(p)
	if err != nil {
		ingestTotal.WithLabelValues("rejected").Inc()
		return 0, err
	}
	id, err := s.store.Append(ctx, r)
	if err != nil {
		ingestTotal.WithLabelValues("error").Inc()
		return 0, err
	}
	s.cache.InvalidateAll()
	ingestTotal.WithLabelValues("accepted").Inc()

	if s.mirror != nil {
		r.ID = id
		s.mirror.WriteReading(r)
	}
	slog.Debug("reading stored", "id", id, "ts", r.Timestamp)
	return id, nil
}

// ReadingRow is one row of the recent-readings view.
type ReadingRow struct {
	Time          string   `json:"time"`
	TS            string   `json:"ts"`
	T1            *float64 `json:"t1"`
	T2            *float64 `json:"t2"`
	T3            *float64 `json:"t3"`
	Battery       *float64 `json:"battery"`
	BatteryStatus *string  `json:"battery_status"`
}

// RecentReadings returns up to limit readings from the trailing window,
// newest first, memoized per (hours, limit) until the TTL or the next write.
func (s *Service) RecentReadings(ctx context.Context, hours, limit int) ([]ReadingRow, error) {
	key := fmt.Sprintf("recent_%d_%d", hours, limit)
	if v, ok := s.cache.Get(key); ok {
		cacheTotal.WithLabelValues("hit").Inc()
		return v.([]ReadingRow), nil
	}
	cacheTotal.WithLabelValues("miss").Inc()

	since := s.now().Add(-time.Duration(hours) * time.Hour)
	readings, err := s.store.QueryWindow(ctx, since, limit)
	if err != nil {
		return nil, err
	}

	rows := make([]ReadingRow, 0, len(readings))
	for _, r := range readings {
		rows = append(rows, ReadingRow{
			Time:          r.Timestamp.Format("15:04"),
			TS:            r.Timestamp.Format(model.TimestampLayout),
			T1:            r.T1,
			T2:            r.T2,
			T3:            r.T3,
			Battery:       r.Battery,
			BatteryStatus: r.BatteryStatus,
		})
	}
	s.cache.Put(key, rows)
	return rows, nil
}

// Statistics computes the per-sensor snapshot for the trailing window,
// memoized the same way as RecentReadings.
func (s *Service) Statistics(ctx context.Context, hours int) (map[string]*analytics.SensorStats, error) {
	key := fmt.Sprintf("stats_%d", hours)
	if v, ok := s.cache.Get(key); ok {
		cacheTotal.WithLabelValues("hit").Inc()
		return v.(map[string]*analytics.SensorStats), nil
	}
	cacheTotal.WithLabelValues("miss").Inc()

	since := s.now().Add(-time.Duration(hours) * time.Hour)
	readings, err := s.store.QueryWindowAsc(ctx, since)
	if err != nil {
		return nil, err
	}
	stats := analytics.ComputeStats(readings)
	s.cache.Put(key, stats)
	return stats, nil
}

// LatestDiagnostics returns the newest diagnostic bundle, or store.ErrNoData.
func (s *Service) LatestDiagnostics(ctx context.Context) (*store.DiagnosticsReport, error) {
	return s.store.LatestDiagnostics(ctx)
}

// Health reports storage reachability plus the total reading count.
type Health struct {
	StorageReachable bool  `json:"storage_reachable"`
	TotalReadings    int64 `json:"total_readings"`
}

func (s *Service) Health(ctx context.Context) Health {
	n, err := s.store.Count(ctx)
	if err != nil {
		return Health{StorageReachable: false}
	}
	return Health{StorageReachable: true, TotalReadings: n}
}
