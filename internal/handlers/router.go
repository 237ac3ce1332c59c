package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// DocumentPath is where the latest document is served.
const DocumentPath = "/document"

// NewRouter registers every endpoint of the watch-mode server.
func NewRouter(h *Handlers) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", h.HealthCheck).Methods(http.MethodGet).Name("health")
	r.HandleFunc("/livez", h.LivenessCheck).Methods(http.MethodGet, http.MethodHead).Name("liveness")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods(http.MethodGet).Name("readiness")
	r.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet).Name("version")
	r.Handle("/metrics", h.MetricsHandler()).Methods(http.MethodGet).Name("metrics")
	r.HandleFunc(DocumentPath, h.GetDocument).Methods(http.MethodGet, http.MethodHead).Name("document")

	return r
}
