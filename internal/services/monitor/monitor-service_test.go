package monitor

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/compostlab/soilmon/internal/model"
	"github.com/compostlab/soilmon/internal/services/ingest"
	"github.com/compostlab/soilmon/internal/services/store"
	"github.com/compostlab/soilmon/pkg/qcache"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return NewService(st, ingest.NewNormalizer(), qcache.New(time.Minute))
}

func tsAgo(d time.Duration) *string {
	s := time.Now().Add(-d).Format(model.TimestampLayout)
	return &s
}

func TestIngestRejectedAppendsNothing(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, model.IngestPayload{})
	require.ErrorIs(t, err, ingest.ErrNoValidTemperature)

	// Out-of-range only: still a rejection, still no row.
	_, err = svc.Ingest(ctx, model.IngestPayload{T1: 95.0})
	require.ErrorIs(t, err, ingest.ErrNoValidTemperature)

	h := svc.Health(ctx)
	require.True(t, h.StorageReachable)
	require.Zero(t, h.TotalReadings)
}

func TestIngestNullTimestampGetsServerTime(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	id, err := svc.Ingest(ctx, model.IngestPayload{T1: 25.0})
	require.NoError(t, err)
	require.Positive(t, id)

	rows, err := svc.RecentReadings(ctx, 24, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NotEmpty(t, rows[0].TS, "server must have assigned a timestamp")
	require.Equal(t, 25.0, *rows[0].T1)
	require.Nil(t, rows[0].T2)
}

// Any successful ingest must be visible to the very next query, even when a
// cached result for that window is still inside its TTL.
func TestCacheCoherenceAfterIngest(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, model.IngestPayload{T1: 20.0, Timestamp: tsAgo(2 * time.Hour)})
	require.NoError(t, err)

	rows, err := svc.RecentReadings(ctx, 24, 100)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	stats, err := svc.Statistics(ctx, 24)
	require.NoError(t, err)
	require.Equal(t, 20.0, stats["t1"].Current)

	_, err = svc.Ingest(ctx, model.IngestPayload{T1: 60.0, Timestamp: tsAgo(time.Hour)})
	require.NoError(t, err)

	rows, err = svc.RecentReadings(ctx, 24, 100)
	require.NoError(t, err)
	require.Len(t, rows, 2, "cached pre-write result must not be served")

	stats, err = svc.Statistics(ctx, 24)
	require.NoError(t, err)
	require.Equal(t, 60.0, stats["t1"].Current)
}

func TestRecentReadingsServedFromCache(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, model.IngestPayload{T1: 20.0, Timestamp: tsAgo(time.Hour)})
	require.NoError(t, err)

	first, err := svc.RecentReadings(ctx, 24, 100)
	require.NoError(t, err)
	second, err := svc.RecentReadings(ctx, 24, 100)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestStatisticsWindowScenario(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	t1 := time.Now().Add(-3 * time.Hour)
	t2 := time.Now().Add(-1 * time.Hour)
	for _, in := range []struct {
		val float64
		at  time.Time
	}{{20, t1}, {60, t2}} {
		s := in.at.Format(model.TimestampLayout)
		_, err := svc.Ingest(ctx, model.IngestPayload{T1: in.val, Timestamp: &s})
		require.NoError(t, err)
	}

	stats, err := svc.Statistics(ctx, 24)
	require.NoError(t, err)

	snap := stats["t1"]
	require.NotNil(t, snap)
	require.Equal(t, 20.0, snap.Min.Val)
	require.Equal(t, t1.Format("15:04"), snap.Min.Time)
	require.Equal(t, 60.0, snap.Max.Val)
	require.Equal(t, t2.Format("15:04"), snap.Max.Time)
	require.Equal(t, 60.0, snap.Current)
	require.Equal(t, 40.0, snap.Avg)
	require.Nil(t, stats["t2"])
	require.Nil(t, stats["t3"])
}

type recordingSink struct{ got []model.Reading }

func (r *recordingSink) WriteReading(reading model.Reading) { r.got = append(r.got, reading) }

func TestMirrorReceivesAcceptedReadings(t *testing.T) {
	svc := newTestService(t)
	sink := &recordingSink{}
	svc.SetMirror(sink)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, model.IngestPayload{})
	require.Error(t, err)
	require.Empty(t, sink.got, "rejected payloads are not mirrored")

	id, err := svc.Ingest(ctx, model.IngestPayload{T1: 33.0})
	require.NoError(t, err)
	require.Len(t, sink.got, 1)
	require.Equal(t, id, sink.got[0].ID)
	require.Equal(t, 33.0, *sink.got[0].T1)
}
