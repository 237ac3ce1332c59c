package memory

import (
	"context"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"media-json/internal/logging"
	"media-json/internal/metrics"
)

// Config holds memory management configuration
type Config struct {
	// LimitBytes is the soft memory limit (0 = use GOMEMLIMIT or no limit)
	LimitBytes int64

	// HighWaterMark is the fraction of the limit below which paused decoding
	// resumes (0.0-1.0)
	HighWaterMark float64

	// CriticalWaterMark is the fraction at which decoding pauses (0.0-1.0)
	CriticalWaterMark float64

	// CheckInterval is how often to sample memory usage
	CheckInterval time.Duration
}

// DefaultConfig returns the defaults used by the CLI.
func DefaultConfig() Config {
	return Config{
		HighWaterMark:     0.7,
		CriticalWaterMark: 0.85,
		CheckInterval:     time.Second,
	}
}

// Monitor samples heap usage and pauses image decoding while it is above
// the critical water mark.
type Monitor struct {
	config Config
	limit  int64
	sample func() uint64

	mu      sync.RWMutex
	current uint64
	paused  bool
	resume  chan struct{}

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMonitor creates a Monitor. Without an explicit limit it uses
// GOMEMLIMIT; with neither, Wait never blocks.
func NewMonitor(config Config) *Monitor {
	limit := config.LimitBytes
	if limit == 0 {
		if goMemLimit := debug.SetMemoryLimit(-1); goMemLimit > 0 && goMemLimit < 1<<62 {
			limit = goMemLimit
			logging.Debug("Memory monitor using GOMEMLIMIT: %s", formatBytes(limit))
		}
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = DefaultConfig().CheckInterval
	}

	return &Monitor{
		config: config,
		limit:  limit,
		sample: heapAlloc,
		resume: make(chan struct{}),
		stop:   make(chan struct{}),
	}
}

func heapAlloc() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.Alloc
}

// Enabled reports whether a memory limit is known.
func (m *Monitor) Enabled() bool {
	return m.limit > 0
}

// Start begins sampling in the background. It does nothing without a limit.
func (m *Monitor) Start() {
	if !m.Enabled() {
		return
	}
	go m.loop()
}

// Stop ends sampling and releases every waiter.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.check()
		case <-m.stop:
			return
		}
	}
}

func (m *Monitor) check() {
	alloc := m.sample()
	usage := float64(alloc) / float64(m.limit)
	metrics.MemoryUsageRatio.Set(usage)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = alloc

	switch {
	case usage >= m.config.CriticalWaterMark && !m.paused:
		logging.Warn("Memory critical (%.1f%% of limit), pausing decoding", usage*100)
		m.paused = true
		metrics.MemoryPaused.Set(1)
		metrics.MemoryPausesTotal.Inc()
		go runtime.GC()
	case usage < m.config.HighWaterMark && m.paused:
		logging.Info("Memory recovered (%.1f%% of limit), resuming decoding", usage*100)
		m.paused = false
		metrics.MemoryPaused.Set(0)
		close(m.resume)
		m.resume = make(chan struct{})
	}
}

// Wait blocks while decoding is paused. It returns ctx.Err() if ctx ends
// first and nil once decoding may proceed or the monitor is stopped.
func (m *Monitor) Wait(ctx context.Context) error {
	m.mu.RLock()
	if !m.paused {
		m.mu.RUnlock()
		return nil
	}
	resume := m.resume
	m.mu.RUnlock()

	select {
	case <-resume:
		return nil
	case <-m.stop:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsPaused reports whether decoding is paused.
func (m *Monitor) IsPaused() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paused
}

// Usage returns the last sampled heap allocation as a fraction of the
// limit, or 0 without a limit.
func (m *Monitor) Usage() float64 {
	if !m.Enabled() {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return float64(m.current) / float64(m.limit)
}
