// Package startup handles configuration loading, build information and
// lifecycle logging.
//
// # Configuration
//
// [LoadConfig] merges, in increasing precedence:
//
//   - built-in defaults
//   - media-json.{yaml,yml,toml,json} in the working directory, or the file
//     given with --config
//   - MEDIAJSON_* environment variables (nested keys use "_", e.g.
//     MEDIAJSON_IMAGEPROPS_MIME=false)
//   - command-line flags that were set explicitly
//
// Recognized keys:
//
//   - src: glob patterns; "!" excludes (default: none)
//   - dest: output directory, "-" for stdout (default: .)
//   - fileName: artifact name (default: media.json)
//   - basePath: prefix stripped from directories (default: "")
//   - escapeNamespace: camel, none or ext-suffix (default: camel)
//   - getImageInfo: decode images (default: true)
//   - imageProps: map of src, ext, mime, type, w, h, ratio, ratioValue to bool
//   - imageRatioValueTrim: decimals for ratioValue, negative disables (default: -1)
//   - emptyImageBase64: add placeholders (default: true)
//   - emptyImageBase64Namespace: dotted path of a shared placeholder table;
//     empty stores placeholders inline (default: "")
//   - startObj, endObj: JSON object literals
//   - exportModule: false, true (module.exports) or a name (default: false)
//   - jsonReplacer: list of keys to keep
//   - jsonSpace: indent string or number of spaces (default: tab)
//   - decoder: native or vips (default: native)
//   - autoOrient, workers, gzip, failOnWarnings, metricsTextfile,
//     metricsAddr, watchDebounce, logLevel, decoderCacheSize
//   - cacheFile: SQLite file remembering image dimensions between runs
//
// A .env file in the working directory is loaded into the environment by
// the CLI before configuration is read.
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo]:
//   - Version: Application version
//   - Commit: Git commit hash
//   - BuildTime: Build timestamp
//   - GoVersion: Go compiler version
//
// # Lifecycle Logging
//
// Watch mode prints [PrintBanner], [LogSystemInfo], [LogConfig] and
// [LogWatchStarted] at startup and the LogShutdown* family on exit.
package startup
