package handlers

import (
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Status is the outcome of the latest build in watch mode. The rebuild loop
// writes it; the HTTP handlers read it.
type Status struct {
	mu sync.RWMutex

	started   time.Time
	builds    int64
	failures  int64
	lastBuild time.Time
	lastError string
	lastRun   string

	assets      int
	warnings    int
	document    []byte
	etag        string
	javascript  bool
	lastWritten time.Time
}

// NewStatus returns a Status with no builds yet.
func NewStatus() *Status {
	return &Status{started: time.Now()}
}

// Build is the outcome of one successful build.
type Build struct {
	RunID string
	// Document may be nil when no assets were found; the previous document
	// is then kept.
	Document []byte
	Assets   int
	Warnings int
	// JavaScript marks a document with an export wrapper.
	JavaScript bool
}

// Succeeded records a successful build.
func (s *Status) Succeeded(b Build) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.builds++
	s.lastBuild = time.Now()
	s.lastError = ""
	s.lastRun = b.RunID
	s.assets = b.Assets
	s.warnings = b.Warnings
	if b.Document != nil {
		s.document = b.Document
		s.etag = `"` + strconv.FormatUint(xxhash.Sum64(b.Document), 16) + `"`
		s.javascript = b.JavaScript
		s.lastWritten = s.lastBuild
	}
}

// Failed records a failed build.
func (s *Status) Failed(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.builds++
	s.failures++
	s.lastBuild = time.Now()
	s.lastError = err.Error()
}

// Ready reports whether a document is available.
func (s *Status) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.document != nil
}

type snapshot struct {
	uptime      time.Duration
	builds      int64
	failures    int64
	lastBuild   time.Time
	lastError   string
	lastRun     string
	assets      int
	warnings    int
	document    []byte
	etag        string
	javascript  bool
	lastWritten time.Time
}

func (s *Status) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshot{
		uptime:      time.Since(s.started),
		builds:      s.builds,
		failures:    s.failures,
		lastBuild:   s.lastBuild,
		lastError:   s.lastError,
		lastRun:     s.lastRun,
		assets:      s.assets,
		warnings:    s.warnings,
		document:    s.document,
		etag:        s.etag,
		javascript:  s.javascript,
		lastWritten: s.lastWritten,
	}
}

// Handlers serves the watch-mode HTTP endpoints.
type Handlers struct {
	status *Status
}

// New creates Handlers reporting status.
func New(status *Status) *Handlers {
	return &Handlers{status: status}
}
