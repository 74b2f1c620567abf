package reorg

import (
	"time"

	"github.com/goran-ethernal/EventIndexor/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reorgChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventindexor_reorg_checks_total",
			Help: "Total number of block linkage checks by outcome",
		},
		[]string{"result"},
	)

	reorgsDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventindexor_reorgs_detected_total",
			Help: "Total number of blockchain reorganizations detected",
		},
	)

	reorgDepth = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "eventindexor_reorg_depth_blocks",
			Help:    "Depth of blockchain reorganizations in blocks",
			Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
		},
	)

	reorgLastDetected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "eventindexor_reorg_last_detected_timestamp",
			Help: "Unix timestamp of last reorg detection",
		},
	)

	reorgForkPoint = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "eventindexor_reorg_last_fork_point",
			Help: "Fork point of the last handled reorg",
		},
	)

	blockRecordsRolledBack = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventindexor_block_records_rolled_back_total",
			Help: "Total number of block records deleted by reorg rollback",
		},
	)
)

func ReorgCheckInc(kind types.ReorgCheckKind) {
	reorgChecks.WithLabelValues(kind.String()).Inc()
}

func ReorgHandledLog(stats types.ReorgStats, deleted int64) {
	reorgsDetected.Inc()
	reorgDepth.Observe(float64(stats.Depth))
	reorgLastDetected.Set(float64(time.Now().UTC().Unix()))
	reorgForkPoint.Set(float64(stats.ForkPoint))
	blockRecordsRolledBack.Add(float64(deleted))
}
