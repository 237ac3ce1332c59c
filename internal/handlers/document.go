package handlers

import (
	"net/http"
	"strings"
)

// GetDocument serves the latest built document. Clients revalidate with
// If-None-Match.
func (h *Handlers) GetDocument(w http.ResponseWriter, r *http.Request) {
	s := h.status.snapshot()
	if s.document == nil {
		writeJSONError(w, "no document built yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("ETag", s.etag)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Last-Modified", s.lastWritten.UTC().Format(http.TimeFormat))
	if s.javascript {
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	} else {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	}

	if etagMatches(r.Header.Get("If-None-Match"), s.etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		if _, err := w.Write(s.document); err != nil {
			logWriteError(err)
		}
	}
}

func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}
