package metric

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var RunningQueriesGauge = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "regroup_running_queries",
		Help: "The current number of running groupby queries",
	},
)

var QueriesCounter = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "regroup_queries_total",
		Help: "The total number of finished queries per final status",
	},
	[]string{"status"},
)

var ShuffledItemsCounter = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "regroup_shuffled_items_total",
		Help: "The total number of items moved through shuffle exchanges",
	},
)

var StageDurationHistogram = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "regroup_stage_duration_seconds",
		Help:    "Wall time spent in each query stage",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 16),
	},
	[]string{"stage"},
)
