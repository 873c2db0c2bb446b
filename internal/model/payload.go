package model

// IngestPayload is the untrusted wire shape the device POSTs (or publishes).
// Temperatures arrive as numbers, strings, or null depending on firmware
// version, so they stay loosely typed here; the ingest normalizer owns all
// coercion and nothing past it sees an `any`.
type IngestPayload struct {
	T1            any            `json:"t1"`
	T2            any            `json:"t2"`
	T3            any            `json:"t3"`
	Battery       *float64       `json:"battery"`
	BatteryStatus *string        `json:"battery_status"`
	Timestamp     *string        `json:"ts"`
	Debug         map[string]any `json:"debug"`
}

// BatteryAlert is the payload of the device's low-battery POST.
type BatteryAlert struct {
	Alert   string   `json:"alert"`
	Battery *float64 `json:"battery"`
	Message string   `json:"message"`
}
