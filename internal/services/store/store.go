// Package store persists readings in a local SQLite database. Every
// operation runs on its own short-lived pooled connection; nothing is held
// across calls. WAL journaling lets dashboard reads proceed while an ingest
// write is in flight.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/mattn/go-sqlite3"

	"github.com/compostlab/soilmon/internal/model"
)

// ErrStorageUnavailable means the database could not be opened or stayed
// locked past the bounded wait. The caller may retry the whole ingest.
var ErrStorageUnavailable = errors.New("storage unavailable")

// ErrNoData is returned by lookups over an empty (or never-diagnosed) table.
var ErrNoData = errors.New("no data")

const busyTimeout = 5 * time.Second

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and runs Init.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=%d", path, busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	s := &Store{db: db}
	if err := s.Init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Init creates the readings table and timestamp index, then applies the
// additive column migrations. Idempotent: running it against an up-to-date
// schema is a no-op and never raises.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("%w: init schema: %v", ErrStorageUnavailable, err)
	}
	for _, col := range evolvedColumns {
		stmt := fmt.Sprintf("ALTER TABLE temperature_readings ADD COLUMN %s %s", col.name, col.typ)
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			if isDuplicateColumn(err) {
				continue
			}
			return fmt.Errorf("%w: add column %s: %v", ErrStorageUnavailable, col.name, err)
		}
		slog.Info("schema evolved", "column", col.name)
	}
	return nil
}

// isDuplicateColumn matches SQLite's "duplicate column name: x" error, which
// Init expects when the column migration already ran.
func isDuplicateColumn(err error) bool {
	return err != nil && strings.Contains(err.Error(), "duplicate column name")
}

// Append inserts one normalized reading and returns its assigned id. Lock
// contention is retried with exponential backoff for at most the busy
// timeout before surfacing ErrStorageUnavailable; it is never retried
// silently beyond that.
func (s *Store) Append(ctx context.Context, r model.Reading) (int64, error) {
	// Nil diagnostics bundles map to NULL in every diagnostic column.
	var (
		wakeCause, resetReason, bootCount, lastBootCount *int64
		wakeCauseName, resetReasonName                   *string
		pmc, srp, pdtc, rtcArmed, unsafeWake             any
	)
	if d := r.Diagnostics; d != nil {
		wakeCause, wakeCauseName = d.WakeCause, d.WakeCauseName
		resetReason, resetReasonName = d.ResetReason, d.ResetReasonName
		bootCount, lastBootCount = d.BootCount, d.LastBootCount
		pmc, srp, pdtc = d.ProbeModeCompleted, d.ShouldRunProbe, d.ProbeDoneThisCycle
		rtcArmed, unsafeWake = d.RTCSleepArmed, d.UnsafeWake
	}

	var id int64
	op := func() error {
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO temperature_readings (timestamp, t1, t2, t3, battery, battery_status,
				wake_cause, wake_cause_name, reset_reason, reset_reason_name, boot_count,
				last_boot_count, probe_mode_completed, should_run_probe, probe_done_this_cycle,
				rtc_sleep_armed, unsafe_wake)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.Timestamp.Format(model.TimestampLayout), r.T1, r.T2, r.T3, r.Battery, r.BatteryStatus,
			wakeCause, wakeCauseName, resetReason, resetReasonName, bootCount,
			lastBootCount, pmc, srp, pdtc, rtcArmed, unsafeWake,
		)
		if err != nil {
			if isBusy(err) {
				return err // retryable
			}
			return backoff.Permanent(err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = busyTimeout
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return 0, fmt.Errorf("%w: append: %v", ErrStorageUnavailable, err)
	}
	return id, nil
}

func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked")
}

// Nil diagnostics bundles map to NULL in every diagnostic column.
// QueryWindow returns readings since the cutoff, newest first, capped at
// limit. This backs the recent-readings view.
func (s *Store) QueryWindow(ctx context.Context, since time.Time, limit int) ([]model.Reading, error) {
	return s.queryReadings(ctx, `
		SELECT id, timestamp, t1, t2, t3, battery, battery_status
		FROM temperature_readings
		WHERE timestamp >= ?
		ORDER BY timestamp DESC
		LIMIT ?`, since.Format(model.TimestampLayout), limit)
}

// QueryWindowAsc returns every reading since the cutoff in chronological
// order. Statistics need full window coverage, so there is no limit here.
func (s *Store) QueryWindowAsc(ctx context.Context, since time.Time) ([]model.Reading, error) {
	return s.queryReadings(ctx, `
		SELECT id, timestamp, t1, t2, t3, battery, battery_status
		FROM temperature_readings
		WHERE timestamp >= ?
		ORDER BY timestamp ASC`, since.Format(model.TimestampLayout))
}

func (s *Store) queryReadings(ctx context.Context, query string, args ...any) ([]model.Reading, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var out []model.Reading
	for rows.Next() {
		var (
			r          model.Reading
			ts         string
			t1, t2, t3 sql.NullFloat64
			batt       sql.NullFloat64
			battStatus sql.NullString
		)
		if err := rows.Scan(&r.ID, &ts, &t1, &t2, &t3, &batt, &battStatus); err != nil {
			return nil, err
		}
		r.Timestamp, _ = time.ParseInLocation(model.TimestampLayout, ts, time.Local)
		r.T1 = nullFloat(t1)
		r.T2 = nullFloat(t2)
		r.T3 = nullFloat(t3)
		r.Battery = nullFloat(batt)
		r.BatteryStatus = nullStr(battStatus)
		out = append(out, r)
	}
	return out, rows.Err()
}

// DiagnosticsReport is the latest diagnostic bundle plus the battery state
// recorded alongside it.
type DiagnosticsReport struct {
	model.Diagnostics
	Battery       *float64 `json:"battery"`
	BatteryStatus *string  `json:"battery_status"`
}

// LatestDiagnostics returns the most recent reading that carried a
// diagnostics bundle, or ErrNoData when no such reading exists.
func (s *Store) LatestDiagnostics(ctx context.Context) (*DiagnosticsReport, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT wake_cause, wake_cause_name, reset_reason, reset_reason_name,
		       boot_count, last_boot_count, probe_mode_completed,
		       should_run_probe, probe_done_this_cycle, rtc_sleep_armed, unsafe_wake,
		       battery, battery_status
		FROM temperature_readings
		WHERE wake_cause IS NOT NULL
		ORDER BY timestamp DESC
		LIMIT 1`)

	var (
		rep                           DiagnosticsReport
		wake, reset, boot, lastBoot   sql.NullInt64
		wakeName, resetName           sql.NullString
		pmc, srp, pdtc, rtc, unsafeWk sql.NullBool
		batt                          sql.NullFloat64
		battStatus                    sql.NullString
	)
	err := row.Scan(&wake, &wakeName, &reset, &resetName, &boot, &lastBoot,
		&pmc, &srp, &pdtc, &rtc, &unsafeWk, &batt, &battStatus)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoData
	}
	if err != nil {
		return nil, fmt.Errorf("%w: latest diagnostics: %v", ErrStorageUnavailable, err)
	}

	rep.WakeCause = nullInt(wake)
	rep.WakeCauseName = nullStr(wakeName)
	rep.ResetReason = nullInt(reset)
	rep.ResetReasonName = nullStr(resetName)
	rep.BootCount = nullInt(boot)
	rep.LastBootCount = nullInt(lastBoot)
	rep.ProbeModeCompleted = pmc.Valid && pmc.Bool
	rep.ShouldRunProbe = srp.Valid && srp.Bool
	rep.ProbeDoneThisCycle = pdtc.Valid && pdtc.Bool
	rep.RTCSleepArmed = rtc.Valid && rtc.Bool
	rep.UnsafeWake = unsafeWk.Valid && unsafeWk.Bool
	rep.Battery = nullFloat(batt)
	rep.BatteryStatus = nullStr(battStatus)
	return &rep, nil
}

// Count returns the total number of stored readings.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM temperature_readings").Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count: %v", ErrStorageUnavailable, err)
	}
	return n, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func nullStr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
