// Package simulator fakes the ESP32 probe for local development: three
// correlated compost temperatures, a slowly draining battery, and the
// occasional diagnostics bundle with the firmware's string-encoded flags.
package simulator

import (
	"encoding/json"
	"math/rand"
	"time"
)

type Generator struct {
	rng      *rand.Rand
	core     float64 // pile core temperature the sensors drift around
	battery  float64
	bootTime time.Time
	boots    int64
}

func NewGenerator(seed int64) *Generator {
	return &Generator{
		rng:      rand.New(rand.NewSource(seed)),
		core:     45.0,
		battery:  4.15,
		bootTime: time.Now(),
		boots:    1,
	}
}

// Next produces one wire payload, advancing the internal state. The shapes
// and quirks match the real firmware: temperatures as numbers, flags as the
// strings "true"/"false", ts in ISO format with a 'T' separator.
func (g *Generator) Next() []byte {
	// Pile core wanders slowly; probes sit at different depths.
	g.core += g.rng.Float64()*1.2 - 0.6
	if g.core < 15 {
		g.core = 15
	}
	if g.core > 68 {
		g.core = 68
	}
	g.battery -= 0.0004 + g.rng.Float64()*0.0002
	g.boots++

	payload := map[string]any{
		"t1":             round1(g.core + g.rng.Float64()*2 - 1),
		"t2":             round1(g.core - 5 + g.rng.Float64()*2 - 1),
		"t3":             round1(g.core - 12 + g.rng.Float64()*2 - 1),
		"battery":        round2(g.battery),
		"battery_status": batteryStatus(g.battery),
		"ts":             time.Now().Format("2006-01-02T15:04:05"),
	}

	// A dead RTC sends literal null, the server falls back to its own clock.
	if g.rng.Intn(20) == 0 {
		payload["ts"] = nil
	}

	// Firmware attaches diagnostics on roughly every fourth wake.
	if g.rng.Intn(4) == 0 {
		payload["debug"] = map[string]any{
			"wake_cause":            2,
			"wake_cause_name":       "ESP_SLEEP_WAKEUP_TIMER",
			"reset_reason":          5,
			"reset_reason_name":     "DEEPSLEEP_RESET",
			"boot_count":            g.boots,
			"last_boot_count":       g.boots - 1,
			"probe_mode_completed":  flag(g.rng.Intn(2) == 0),
			"should_run_probe":      flag(g.rng.Intn(6) == 0),
			"probe_done_this_cycle": flag(true),
			"rtc_sleep_armed":       flag(true),
			"unsafe_wake":           flag(g.rng.Intn(10) == 0),
		}
	}

	b, _ := json.Marshal(payload)
	return b
}

// flag renders a boolean the way the firmware does: as a string.
func flag(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

func batteryStatus(v float64) string {
	switch {
	case v > 3.9:
		return "good"
	case v > 3.6:
		return "ok"
	default:
		return "low"
	}
}

func round1(v float64) float64 { return float64(int(v*10+0.5)) / 10 }
func round2(v float64) float64 { return float64(int(v*100+0.5)) / 100 }
