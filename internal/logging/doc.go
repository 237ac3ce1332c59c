// Package logging provides a simple leveled logging interface for media-json.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information
//   - INFO: General operational messages
//   - WARN: Warning conditions, including per-asset warnings of a run
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the process
//
// The log level is read once from the DEBUG or LOG_LEVEL environment
// variables and can be overridden with SetLevel (the --log-level flag).
package logging
