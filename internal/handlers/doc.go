// Package handlers provides the HTTP endpoints of watch mode.
//
// It includes handlers for:
//   - Health, liveness and readiness probes based on the latest build
//   - The latest document, with ETag revalidation
//   - Build information and Prometheus metrics
//
// The rebuild loop reports every build to a shared [Status]; the handlers
// only read it.
package handlers
