package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ingestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "soilmon_ingest_total",
		Help: "Ingest outcomes by result (accepted, rejected, error).",
	}, []string{"result"})

	cacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "soilmon_query_cache_total",
		Help: "Query cache lookups by result (hit, miss).",
	}, []string{"result"})
)
