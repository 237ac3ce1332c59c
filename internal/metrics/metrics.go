package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Run metrics
var (
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_json_runs_total",
			Help: "Total number of aggregation runs",
		},
		[]string{"status"}, // "written", "empty", "failed"
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_json_run_duration_seconds",
			Help:    "Aggregation run duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	LastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_json_last_run_timestamp",
			Help: "Unix timestamp of the last completed run",
		},
	)

	LastRunAssets = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_json_last_run_assets",
			Help: "Number of assets observed by the last run",
		},
	)

	DocumentBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_json_document_size_bytes",
			Help: "Size of the last serialized document in bytes",
		},
	)
)

// Asset metrics
var (
	AssetsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_json_assets_total",
			Help: "Total number of assets processed by type and outcome",
		},
		[]string{"type", "status"}, // status: "ok", "decode_error", "rejected", "skipped"
	)

	DecodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_json_decode_duration_seconds",
			Help:    "Image header decode duration in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"backend"}, // "native", "vips"
	)

	DecodeByFormat = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_json_decode_by_format_total",
			Help: "Decoded images by detected format",
		},
		[]string{"format"},
	)

	DecoderCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_json_decoder_cache_hits_total",
			Help: "Dimension lookups served from the cross-run decoder cache",
		},
	)

	DecoderCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_json_decoder_cache_misses_total",
			Help: "Dimension lookups that required a decode",
		},
	)

	WarningsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_json_warnings_total",
			Help: "Total number of per-asset warnings",
		},
		[]string{"kind"}, // "decode", "encode", "namespace"
	)

	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_json_errors_total",
			Help: "Total number of per-asset errors",
		},
		[]string{"kind"}, // "unsupported_input"
	)
)

// Placeholder metrics
var (
	RatioCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_json_ratio_cache_hits_total",
			Help: "Placeholder requests served from the ratio cache",
		},
	)

	RatioCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_json_ratio_cache_misses_total",
			Help: "Placeholder requests that triggered a generation",
		},
	)

	PlaceholderGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_json_placeholder_generations_total",
			Help: "Total number of placeholder generations",
		},
		[]string{"status"}, // "success", "error"
	)

	PlaceholderGenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_json_placeholder_generation_duration_seconds",
			Help:    "Placeholder synthesis and encoding duration in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
	)
)

// Filesystem metrics
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_json_filesystem_retry_attempts_total",
			Help: "Total number of filesystem retry attempts after stale file handle errors",
		},
		[]string{"operation"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_json_filesystem_retry_success_total",
			Help: "Filesystem operations that succeeded after at least one retry",
		},
		[]string{"operation"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_json_filesystem_retry_failures_total",
			Help: "Filesystem operations that failed after exhausting retries",
		},
		[]string{"operation"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_json_filesystem_stale_errors_total",
			Help: "Total number of stale file handle errors encountered",
		},
		[]string{"operation"},
	)
)

// Watch metrics
var (
	WatchEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_json_watch_events_total",
			Help: "Total number of filesystem watcher events",
		},
		[]string{"event_type"},
	)

	WatchRebuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_json_watch_rebuilds_total",
			Help: "Total number of rebuilds triggered by the watcher",
		},
		[]string{"status"}, // "success", "error"
	)

	WatchErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_json_watch_errors_total",
			Help: "Total number of filesystem watcher errors",
		},
	)

	WatchedDirectories = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_json_watched_directories",
			Help: "Number of directories currently being watched",
		},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_json_memory_usage_ratio",
			Help: "Heap allocation as a fraction of the memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_json_memory_paused",
			Help: "Whether decoding is paused for memory (1) or not (0)",
		},
	)

	MemoryPausesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_json_memory_pauses_total",
			Help: "Total number of times decoding was paused for memory",
		},
	)
)

// Dimension cache database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_json_db_queries_total",
			Help: "Total number of dimension cache database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_json_db_query_duration_seconds",
			Help:    "Dimension cache database query duration in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"operation"},
	)

	DBEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_json_db_entries",
			Help: "Number of images in the dimension cache database",
		},
	)
)

// HTTP metrics for the watch-mode server
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_json_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_json_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_json_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)
)

// AppInfo exposes build information as labels on a constant gauge.
var AppInfo = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "media_json_app_info",
		Help: "Application build information",
	},
	[]string{"version", "commit", "go_version"},
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}

// WriteTextfile writes every registered metric to path in the Prometheus
// text exposition format, for the node_exporter textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
