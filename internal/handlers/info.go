package handlers

import (
	"fmt"
	"net/http"

	"media-json/internal/logging"
	"media-json/internal/startup"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// GetVersion serves startup.BuildInfo.
func (h *Handlers) GetVersion(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, startup.GetBuildInfo())
}

// promLogger routes promhttp errors to the application log.
type promLogger struct{}

func (promLogger) Println(v ...interface{}) {
	logging.Warn("metrics: %s", fmt.Sprint(v...))
}

// MetricsHandler serves the default registry. A collector failing to gather
// does not hide the others.
func (h *Handlers) MetricsHandler() http.Handler {
	return promhttp.InstrumentMetricHandler(
		prometheus.DefaultRegisterer,
		promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
			ErrorLog:          promLogger{},
			ErrorHandling:     promhttp.ContinueOnError,
			EnableOpenMetrics: true,
		}),
	)
}
