package handlers

import (
	"net/http"
	"runtime"
	"time"

	"media-json/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusStarting = "starting"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Ready     bool   `json:"ready"`
	Version   string `json:"version"`
	Uptime    string `json:"uptime"`
	Builds    int64  `json:"builds"`
	Failures  int64  `json:"failures"`
	LastBuild string `json:"lastBuild,omitempty"`
	LastError string `json:"lastError,omitempty"`
	// LastRun is the run ID of the latest successful build, as logged.
	LastRun string `json:"lastRun,omitempty"`

	// Latest build
	Assets   int `json:"assets"`
	Warnings int `json:"warnings"`
	Bytes    int `json:"bytes"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck reports the outcome of the latest build. It answers 503 until
// a document has been built.
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	s := h.status.snapshot()
	ready := s.document != nil

	response := HealthResponse{
		Ready:        ready,
		Version:      startup.Version,
		Uptime:       s.uptime.Round(time.Second).String(),
		Builds:       s.builds,
		Failures:     s.failures,
		LastError:    s.lastError,
		LastRun:      s.lastRun,
		Assets:       s.assets,
		Warnings:     s.warnings,
		Bytes:        len(s.document),
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}
	if !s.lastBuild.IsZero() {
		response.LastBuild = s.lastBuild.Format(time.RFC3339)
	}

	switch {
	case s.lastError != "":
		response.Status = statusDegraded
	case ready:
		response.Status = statusHealthy
	default:
		response.Status = statusStarting
	}

	w.Header().Set("Content-Type", "application/json")
	if !ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	writeJSON(w, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{"status": "alive"})
	}
}

// ReadinessCheck returns 200 once a document has been built.
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	if h.status.Ready() {
		writeJSONStatus(w, http.StatusOK, "ready")
		return
	}
	writeJSONStatus(w, http.StatusServiceUnavailable, "not_ready")
}
