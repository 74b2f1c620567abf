package metrics

import (
	"maps"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Database metrics
	dbQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventindexor_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"db", "operation"},
	)

	dbQueryTime = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eventindexor_db_query_duration_seconds",
			Help:    "Duration of database queries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"db", "operation"},
	)

	dbErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventindexor_db_errors_total",
			Help: "Total number of database errors",
		},
		[]string{"db", "operation"},
	)

	// Ingestion metrics
	LastProcessedBlock = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "eventindexor_last_processed_block",
			Help: "The last block number fully processed",
		},
	)

	ChainHead = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "eventindexor_chain_head_block",
			Help: "The last observed head block at the configured finality",
		},
	)

	BlocksProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventindexor_blocks_processed_total",
			Help: "Total number of blocks processed",
		},
		[]string{"mode"},
	)

	LogsFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventindexor_logs_fetched_total",
			Help: "Total number of logs fetched per contract",
		},
		[]string{"contract"},
	)

	ContractFetchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventindexor_contract_fetch_failures_total",
			Help: "Total number of skipped per-contract log fetches",
		},
		[]string{"contract"},
	)

	BatchProcessingTime = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eventindexor_batch_processing_duration_seconds",
			Help:    "Time taken to process a batch of blocks",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	CycleFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventindexor_cycle_failures_total",
			Help: "Total number of failed processing cycles",
		},
		[]string{"mode"},
	)

	IndexingRate = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "eventindexor_indexing_rate_blocks_per_second",
			Help: "Current indexing rate in blocks per second",
		},
		[]string{"mode"},
	)

	// Routing metrics
	LogsRouted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventindexor_logs_routed_total",
			Help: "Total number of logs delivered to a handler",
		},
		[]string{"family", "event"},
	)

	UnknownLogs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventindexor_unknown_logs_total",
			Help: "Total number of logs whose signature matched no known event",
		},
		[]string{"contract"},
	)

	DispatchLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "eventindexor_dispatch_latency_seconds",
			Help:    "Time between a log entering the dispatch queue and its handler returning",
			Buckets: prometheus.DefBuckets,
		},
	)

	// System metrics
	Uptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "eventindexor_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)

	Errors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventindexor_errors_total",
			Help: "Total number of errors by component and severity",
		},
		[]string{"component", "severity"},
	)

	ComponentHealth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "eventindexor_component_health",
			Help: "Component health status (1=healthy, 0=unhealthy)",
		},
		[]string{"component"},
	)

	Goroutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "eventindexor_goroutines",
			Help: "Number of active goroutines",
		},
	)

	MemoryUsage = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "eventindexor_memory_usage_bytes",
			Help: "Memory usage statistics",
		},
		[]string{"type"},
	)

	startTime = time.Now()

	healthMu sync.RWMutex
	health   = make(map[string]bool)
)

// DBQuery records one query and its duration. A non-nil err is counted as a failure.
func DBQuery(db, operation string, start time.Time, err error) {
	dbQueries.WithLabelValues(db, operation).Inc()
	dbQueryTime.WithLabelValues(db, operation).Observe(time.Since(start).Seconds())
	if err != nil {
		dbErrors.WithLabelValues(db, operation).Inc()
	}
}

func LastProcessedBlockSet(blockNum uint64) {
	LastProcessedBlock.Set(float64(blockNum))
}

func ChainHeadSet(blockNum uint64) {
	ChainHead.Set(float64(blockNum))
}

func BlocksProcessedInc(mode string, count uint64) {
	BlocksProcessed.WithLabelValues(mode).Add(float64(count))
}

func LogsFetchedInc(contract string, count int) {
	LogsFetched.WithLabelValues(contract).Add(float64(count))
}

func ContractFetchFailureInc(contract string) {
	ContractFetchFailures.WithLabelValues(contract).Inc()
}

func BatchProcessingTimeLog(mode string, duration time.Duration) {
	BatchProcessingTime.WithLabelValues(mode).Observe(duration.Seconds())
}

func CycleFailureInc(mode string) {
	CycleFailures.WithLabelValues(mode).Inc()
}

func IndexingRateLog(mode string, rate float64) {
	IndexingRate.WithLabelValues(mode).Set(rate)
}

func LogRoutedInc(family, event string) {
	LogsRouted.WithLabelValues(family, event).Inc()
}

func UnknownLogInc(contract string) {
	UnknownLogs.WithLabelValues(contract).Inc()
}

func DispatchLatencyLog(duration time.Duration) {
	DispatchLatency.Observe(duration.Seconds())
}

func ErrorInc(component, severity string) {
	Errors.WithLabelValues(component, severity).Inc()
}

func ComponentHealthSet(component string, healthy bool) {
	boolAsFloat := float64(1)
	if !healthy {
		boolAsFloat = 0
	}

	ComponentHealth.WithLabelValues(component).Set(boolAsFloat)

	healthMu.Lock()
	health[component] = healthy
	healthMu.Unlock()
}

// Health returns the last reported health of every component.
func Health() map[string]bool {
	healthMu.RLock()
	defer healthMu.RUnlock()

	return maps.Clone(health)
}

// UpdateSystemMetrics updates runtime system metrics.
// This should be called periodically (e.g., every 15 seconds).
func UpdateSystemMetrics() {
	Uptime.Set(time.Since(startTime).Seconds())
	Goroutines.Set(float64(runtime.NumGoroutine()))

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	MemoryUsage.WithLabelValues("alloc").Set(float64(m.Alloc))
	MemoryUsage.WithLabelValues("total_alloc").Set(float64(m.TotalAlloc))
	MemoryUsage.WithLabelValues("sys").Set(float64(m.Sys))
	MemoryUsage.WithLabelValues("heap_inuse").Set(float64(m.HeapInuse))
}
