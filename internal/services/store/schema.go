package store

// Base schema. CREATE ... IF NOT EXISTS keeps Init safe to run on every
// process start; databases created by older builds are upgraded by the
// column list below instead.
const schema = `
CREATE TABLE IF NOT EXISTS temperature_readings (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
    t1 REAL,
    t2 REAL,
    t3 REAL,
    battery REAL,
    battery_status TEXT,
    sensor_status TEXT DEFAULT 'active',
    wake_cause INTEGER,
    wake_cause_name TEXT,
    reset_reason INTEGER,
    reset_reason_name TEXT,
    boot_count INTEGER,
    last_boot_count INTEGER,
    probe_mode_completed BOOLEAN,
    should_run_probe BOOLEAN,
    probe_done_this_cycle BOOLEAN,
    rtc_sleep_armed BOOLEAN,
    unsafe_wake BOOLEAN
);

CREATE INDEX IF NOT EXISTS idx_timestamp ON temperature_readings(timestamp);
`

// Columns added after the table first shipped. Init re-issues these ALTERs on
// every start and swallows the "duplicate column name" error, so old
// databases pick them up without touching existing rows.
var evolvedColumns = []struct {
	name string
	typ  string
}{
	{"battery", "REAL"},
	{"battery_status", "TEXT"},
	{"wake_cause", "INTEGER"},
	{"wake_cause_name", "TEXT"},
	{"reset_reason", "INTEGER"},
	{"reset_reason_name", "TEXT"},
	{"boot_count", "INTEGER"},
	{"last_boot_count", "INTEGER"},
	{"probe_mode_completed", "BOOLEAN"},
	{"should_run_probe", "BOOLEAN"},
	{"probe_done_this_cycle", "BOOLEAN"},
	{"rtc_sleep_armed", "BOOLEAN"},
	{"unsafe_wake", "BOOLEAN"},
}
