// Package middleware provides HTTP middleware for the watch-mode server.
//
// It includes:
//   - Request logging in W3C Extended Log Format
//   - Request metrics labeled by route template
//   - gzip response compression
package middleware
