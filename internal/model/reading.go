package model

import "time"

// TimestampLayout is the server-local, second-precision representation
// readings are stored with.
const TimestampLayout = "2006-01-02 15:04:05"

// Reading is one accepted multi-sensor sample. Absent fields stay nil all the
// way down to the database, they are never coerced to zero.
type Reading struct {
	ID            int64
	Timestamp     time.Time
	T1            *float64
	T2            *float64
	T3            *float64
	Battery       *float64
	BatteryStatus *string
	SensorStatus  string
	Diagnostics   *Diagnostics
}

// Diagnostics is the optional device-health bundle attached to a reading.
// The five operational flags are only true when the device sent the literal
// string "true"; anything else (including "false" or a missing key) is false.
type Diagnostics struct {
	WakeCause          *int64  `json:"wake_cause"`
	WakeCauseName      *string `json:"wake_cause_name"`
	ResetReason        *int64  `json:"reset_reason"`
	ResetReasonName    *string `json:"reset_reason_name"`
	BootCount          *int64  `json:"boot_count"`
	LastBootCount      *int64  `json:"last_boot_count"`
	ProbeModeCompleted bool    `json:"probe_mode_completed"`
	ShouldRunProbe     bool    `json:"should_run_probe"`
	ProbeDoneThisCycle bool    `json:"probe_done_this_cycle"`
	RTCSleepArmed      bool    `json:"rtc_sleep_armed"`
	UnsafeWake         bool    `json:"unsafe_wake"`
}
