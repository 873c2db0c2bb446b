// Package ingest turns untrusted device payloads into validated readings.
// Loose typing stops here: everything downstream works with model.Reading.
package ingest

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/compostlab/soilmon/internal/model"
)

// ErrNoValidTemperature rejects a payload whose three temperature fields all
// normalized to absent. A client error, never a system fault.
var ErrNoValidTemperature = errors.New("no valid temperature data")

// Plausible sensor range, inclusive. Values outside are dropped per-field.
const (
	MinTemp = -10.0
	MaxTemp = 80.0
)

// Normalizer validates and canonicalizes ingest payloads. The clock is
// injectable so the server-time fallback is testable.
type Normalizer struct {
	now func() time.Time
}

func NewNormalizer() *Normalizer { return &Normalizer{now: time.Now} }

// NewNormalizerWithClock is used by tests to pin "server time".
func NewNormalizerWithClock(now func() time.Time) *Normalizer {
	return &Normalizer{now: now}
}

// Accept produces a Reading from a raw payload, or ErrNoValidTemperature
// when none of t1/t2/t3 survives validation.
func (n *Normalizer) Accept(p model.IngestPayload) (model.Reading, error) {
	t1 := ValidateTemperature(p.T1)
	t2 := ValidateTemperature(p.T2)
	t3 := ValidateTemperature(p.T3)
	if t1 == nil && t2 == nil && t3 == nil {
		return model.Reading{}, ErrNoValidTemperature
	}

	return model.Reading{
		Timestamp:     n.NormalizeTimestamp(p.Timestamp),
		T1:            t1,
		T2:            t2,
		T3:            t3,
		Battery:       p.Battery,
		BatteryStatus: p.BatteryStatus,
		SensorStatus:  "active",
		Diagnostics:   ExtractDiagnostics(p.Debug),
	}, nil
}

// ValidateTemperature parses raw as a real number and accepts it only within
// [MinTemp, MaxTemp]. Parse failures and out-of-range values yield nil, not
// an error: one bad sensor must not sink the rest of the reading.
func ValidateTemperature(raw any) *float64 {
	var v float64
	switch x := raw.(type) {
	case float64:
		v = x
	case int:
		v = float64(x)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return nil
		}
		v = f
	default:
		return nil
	}
	if v < MinTemp || v > MaxTemp {
		return nil
	}
	return &v
}

// NormalizeTimestamp parses an ISO-8601-ish timestamp, tolerating either a
// 'T' or a space separator, truncated to seconds in server-local time. A
// missing, "null", or unparsable value falls back to the server clock: the
// device RTC is not trusted when it cannot produce a timestamp.
func (n *Normalizer) NormalizeTimestamp(raw *string) time.Time {
	if raw == nil {
		return n.now().Truncate(time.Second)
	}
	s := strings.TrimSpace(*raw)
	if s == "" || s == "null" {
		return n.now().Truncate(time.Second)
	}
	s = strings.Replace(s, "T", " ", 1)
	t, err := time.ParseInLocation(model.TimestampLayout, s, time.Local)
	if err != nil {
		return n.now().Truncate(time.Second)
	}
	return t
}

// ExtractDiagnostics pulls the diagnostic bundle out of the optional debug
// object. Returns nil when the payload carried no debug object at all.
//
// Flag fields follow the device protocol quirk: only the literal string
// "true" counts as true. "false", booleans, numbers, and missing keys all
// come out false. Intentional, do not "fix".
func ExtractDiagnostics(debug map[string]any) *model.Diagnostics {
	if debug == nil {
		return nil
	}
	return &model.Diagnostics{
		WakeCause:          debugInt(debug, "wake_cause"),
		WakeCauseName:      debugStr(debug, "wake_cause_name"),
		ResetReason:        debugInt(debug, "reset_reason"),
		ResetReasonName:    debugStr(debug, "reset_reason_name"),
		BootCount:          debugInt(debug, "boot_count"),
		LastBootCount:      debugInt(debug, "last_boot_count"),
		ProbeModeCompleted: debugFlag(debug, "probe_mode_completed"),
		ShouldRunProbe:     debugFlag(debug, "should_run_probe"),
		ProbeDoneThisCycle: debugFlag(debug, "probe_done_this_cycle"),
		RTCSleepArmed:      debugFlag(debug, "rtc_sleep_armed"),
		UnsafeWake:         debugFlag(debug, "unsafe_wake"),
	}
}

func debugFlag(m map[string]any, key string) bool {
	s, ok := m[key].(string)
	return ok && s == "true"
}

func debugInt(m map[string]any, key string) *int64 {
	switch x := m[key].(type) {
	case float64:
		n := int64(x)
		return &n
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64); err == nil {
			return &n
		}
	}
	return nil
}

func debugStr(m map[string]any, key string) *string {
	if s, ok := m[key].(string); ok && s != "" {
		return &s
	}
	return nil
}
