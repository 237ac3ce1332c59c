package memory

import (
	"context"
	"runtime/debug"
	"sync/atomic"
	"testing"
	"time"
)

func newTestMonitor(limit int64, alloc *atomic.Uint64) *Monitor {
	m := NewMonitor(Config{
		LimitBytes:        limit,
		HighWaterMark:     0.5,
		CriticalWaterMark: 0.8,
		CheckInterval:     time.Millisecond,
	})
	m.sample = alloc.Load
	return m
}

func TestMonitorWithoutLimit(t *testing.T) {
	old := debug.SetMemoryLimit(-1)
	debug.SetMemoryLimit(1 << 62)
	t.Cleanup(func() { debug.SetMemoryLimit(old) })

	m := NewMonitor(DefaultConfig())
	if m.Enabled() {
		t.Fatal("monitor without a limit should be disabled")
	}
	m.Start()
	defer m.Stop()

	if err := m.Wait(context.Background()); err != nil {
		t.Errorf("Wait() = %v, want nil", err)
	}
	if m.Usage() != 0 {
		t.Errorf("Usage() = %v, want 0", m.Usage())
	}
}

func TestMonitorPausesAndResumes(t *testing.T) {
	var alloc atomic.Uint64
	m := newTestMonitor(1000, &alloc)

	alloc.Store(900)
	m.check()
	if !m.IsPaused() {
		t.Fatal("expected pause above the critical water mark")
	}
	if got := m.Usage(); got != 0.9 {
		t.Errorf("Usage() = %v, want 0.9", got)
	}

	done := make(chan error, 1)
	go func() { done <- m.Wait(context.Background()) }()

	select {
	case <-done:
		t.Fatal("Wait returned while paused")
	case <-time.After(20 * time.Millisecond):
	}

	alloc.Store(600)
	m.check()
	if !m.IsPaused() {
		t.Fatal("must stay paused between the water marks")
	}

	alloc.Store(100)
	m.check()
	if m.IsPaused() {
		t.Fatal("expected resume below the high water mark")
	}

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Wait() = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after resume")
	}
}

func TestMonitorWaitHonorsContext(t *testing.T) {
	var alloc atomic.Uint64
	alloc.Store(1000)
	m := newTestMonitor(1000, &alloc)
	m.check()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := m.Wait(ctx); err != context.DeadlineExceeded {
		t.Errorf("Wait() = %v, want %v", err, context.DeadlineExceeded)
	}
}

func TestMonitorStopReleasesWaiters(t *testing.T) {
	var alloc atomic.Uint64
	alloc.Store(1000)
	m := newTestMonitor(1000, &alloc)
	m.check()

	done := make(chan error, 1)
	go func() { done <- m.Wait(context.Background()) }()

	m.Stop()
	m.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Wait() = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Stop did not release the waiter")
	}
}

func TestMonitorLoop(t *testing.T) {
	var alloc atomic.Uint64
	alloc.Store(950)
	m := newTestMonitor(1000, &alloc)
	m.Start()
	defer m.Stop()

	deadline := time.Now().Add(time.Second)
	for !m.IsPaused() {
		if time.Now().After(deadline) {
			t.Fatal("background sampling never paused the monitor")
		}
		time.Sleep(time.Millisecond)
	}
}
