// Package analytics computes windowed per-sensor statistics. It owns the
// whole computation: one linear pass per sensor over chronologically ordered
// readings, no query-engine help.
package analytics

import (
	"math"

	"github.com/compostlab/soilmon/internal/model"
)

// ValueAt pairs an extreme value with the wall-clock time it occurred,
// formatted HH:MM for the dashboard.
type ValueAt struct {
	Val  float64 `json:"val"`
	Time string  `json:"time"`
}

// SensorStats is the snapshot for one sensor over one window. Current is the
// chronologically last retained sample, which is not necessarily the max.
type SensorStats struct {
	Min     ValueAt `json:"min"`
	Max     ValueAt `json:"max"`
	Avg     float64 `json:"avg"`
	Current float64 `json:"current"`
}

// Sensors enumerates the snapshot keys, in dashboard order.
var Sensors = []string{"t1", "t2", "t3"}

// ComputeStats derives per-sensor statistics from readings sorted ascending
// by timestamp. A sensor with no non-null value in the slice maps to nil,
// never to a zeroed snapshot. Ties on min/max keep the earliest sample.
func ComputeStats(readings []model.Reading) map[string]*SensorStats {
	out := map[string]*SensorStats{"t1": nil, "t2": nil, "t3": nil}
	for _, sensor := range Sensors {
		out[sensor] = computeOne(readings, sensor)
	}
	return out
}

func computeOne(readings []model.Reading, sensor string) *SensorStats {
	var (
		count        int
		sum          float64
		minV, maxV   float64
		minAt, maxAt string
		current      float64
	)
	for _, r := range readings {
		v := sensorValue(r, sensor)
		if v == nil {
			continue
		}
		at := r.Timestamp.Format("15:04")
		if count == 0 || *v < minV {
			minV, minAt = *v, at
		}
		if count == 0 || *v > maxV {
			maxV, maxAt = *v, at
		}
		sum += *v
		count++
		current = *v
	}
	if count == 0 {
		return nil
	}
	return &SensorStats{
		Min:     ValueAt{Val: minV, Time: minAt},
		Max:     ValueAt{Val: maxV, Time: maxAt},
		Avg:     round2(sum / float64(count)),
		Current: current,
	}
}

func sensorValue(r model.Reading, sensor string) *float64 {
	switch sensor {
	case "t1":
		return r.T1
	case "t2":
		return r.T2
	case "t3":
		return r.T3
	}
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
