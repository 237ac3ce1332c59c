// Package metrics provides Prometheus instrumentation for media-json.
//
// All metrics are prefixed with "media_json_" and registered on the default
// registry at package initialization.
//
// # Metric Categories
//
// ## Run Metrics
//
//   - RunsTotal: Counter of runs by outcome (written, empty, failed)
//   - RunDuration: Histogram of run duration
//   - LastRunTimestamp, LastRunAssets, DocumentBytes: Gauges about the last run
//
// ## Asset Metrics
//
//   - AssetsTotal: Counter of assets by type and outcome
//   - DecodeDuration: Histogram of header decode time by backend
//   - DecodeByFormat: Counter of decoded images by detected format
//   - DecoderCacheHits / DecoderCacheMisses: Cross-run decoder cache (watch mode)
//   - WarningsTotal / ErrorsTotal: Per-asset warnings and errors by kind
//
// ## Placeholder Metrics
//
//   - RatioCacheHits / RatioCacheMisses: Per-run ratio cache lookups
//   - PlaceholderGenerationsTotal: Generations by status
//   - PlaceholderGenerationDuration: Synthesis and encoding time
//
// ## Filesystem and Watch Metrics
//
//   - FilesystemRetry*: Stale file handle retries when opening assets
//   - WatchEventsTotal, WatchRebuildsTotal, WatchErrors, WatchedDirectories
//
// ## Memory and HTTP Metrics
//
//   - MemoryUsageRatio, MemoryPaused, MemoryPausesTotal: Decode backpressure
//   - HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight: Watch-mode server
//
// # Export
//
// A one-shot build writes the registry with WriteTextfile; watch mode serves
// it over HTTP with promhttp.
package metrics
