package export

import (
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/compostlab/soilmon/internal/model"
)

// ReadingToPoint maps a reading onto a soil_temperature point. Only present
// fields are written; absent sensors simply do not appear in the series.
func ReadingToPoint(r model.Reading) *write.Point {
	tags := map[string]string{}
	if r.BatteryStatus != nil {
		tags["battery_status"] = *r.BatteryStatus
	}
	if r.SensorStatus != "" {
		tags["sensor_status"] = r.SensorStatus
	}

	fields := map[string]interface{}{
		"reading_id": r.ID,
	}
	if r.T1 != nil {
		fields["t1"] = *r.T1
	}
	if r.T2 != nil {
		fields["t2"] = *r.T2
	}
	if r.T3 != nil {
		fields["t3"] = *r.T3
	}
	if r.Battery != nil {
		fields["battery"] = *r.Battery
	}

	return influxdb2.NewPoint("soil_temperature", tags, fields, r.Timestamp)
}

// WriteReading enqueues the point on the async write API. Never blocks the
// ingest path; failures surface on the error channel.
func (w *Writer) WriteReading(r model.Reading) {
	w.api.WritePoint(ReadingToPoint(r))
	w.mu.Lock()
	w.written++
	w.mu.Unlock()
}
