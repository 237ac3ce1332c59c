// Package main provides the media-json command.
//
// media-json aggregates metadata about media files into a single JSON
// document: asset type, MIME type and source path for every file, plus
// width, height, aspect ratio and an optional transparent PNG placeholder for
// images. Each file is stored under a namespace derived from its directory
// and base name, so "img/hero-banner.jpg" becomes
//
//	{ "img": { "heroBanner": { "type": "image", "w": 1600, "h": 900, ... } } }
//
// # Commands
//
//   - build (default): glob, aggregate and write the document once
//   - watch: build, then rebuild whenever a matching source file changes,
//     optionally serving the document, health probes and metrics over HTTP
//   - version: print build information
//
// # Configuration
//
// Settings come from, in increasing precedence, built-in defaults, a config
// file (--config, or media-json.{yaml,yml,json,toml} in the working
// directory), MEDIAJSON_* environment variables and flags given on the
// command line. A .env file in the working directory is loaded first.
// Positional arguments replace the configured source patterns.
//
// # Exit Status
//
// build exits non-zero when configuration is invalid, the document cannot be
// written, or any asset was rejected. An undecodable image is a warning: it
// is dropped from the document and only fails the build with
// --fail-on-warnings. Matching no files is not an error; nothing is written.
//
// # Memory
//
// MEMORY_LIMIT and MEMORY_RATIO set GOMEMLIMIT when it is not already set.
// With a limit in place, image decoding pauses while the heap is above its
// critical water mark.
package main
