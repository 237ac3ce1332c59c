package ratiocache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"media-json/internal/logging"
	"media-json/internal/media"
	"media-json/internal/metrics"
)

// Generator synthesizes and encodes a placeholder of the given size.
type Generator func(width, height int) (string, error)

// Entry is one generated placeholder.
type Entry struct {
	Key     string
	Payload string
}

type entry struct {
	ready   chan struct{}
	payload string
	err     error
}

// Cache memoizes placeholder generation per reduced aspect ratio. For any
// key the generator runs at most once, even under concurrent callers; a
// failure is remembered as well and returned to every later caller.
type Cache struct {
	mu          sync.Mutex
	entries     map[string]*entry
	order       []string
	generations int
}

// New creates an empty cache. A cache lives for exactly one run.
func New() *Cache {
	return &Cache{entries: make(map[string]*entry)}
}

// GetOrCreate returns the payload for ratio, calling gen with the reduced
// width and height if no entry exists yet. Callers racing on the same key
// wait for the first one to finish.
func (c *Cache) GetOrCreate(ctx context.Context, ratio media.Ratio, gen Generator) (string, error) {
	key := ratio.Key()

	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		c.mu.Unlock()
		metrics.RatioCacheHits.Inc()
		select {
		case <-e.ready:
			return e.payload, e.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	e := &entry{ready: make(chan struct{})}
	c.entries[key] = e
	c.generations++
	c.mu.Unlock()
	metrics.RatioCacheMisses.Inc()

	start := time.Now()
	generate(e, ratio, gen)

	if e.err != nil {
		metrics.PlaceholderGenerationsTotal.WithLabelValues("error").Inc()
		logging.Debug("Placeholder generation for %s failed: %v", key, e.err)
		return "", e.err
	}

	metrics.PlaceholderGenerationsTotal.WithLabelValues("success").Inc()
	logging.Debug("Generated placeholder for %s in %v (%d bytes)", key, time.Since(start), len(e.payload))

	c.mu.Lock()
	c.order = append(c.order, key)
	c.mu.Unlock()
	return e.payload, nil
}

// generate fills e and releases its waiters, also when gen panics.
func generate(e *entry, ratio media.Ratio, gen Generator) {
	defer close(e.ready)
	defer func() {
		if r := recover(); r != nil {
			e.payload = ""
			e.err = fmt.Errorf("placeholder generator panicked: %v", r)
		}
	}()
	e.payload, e.err = gen(ratio.W, ratio.H)
}

// Entries returns the successful entries in the order they finished
// generating.
func (c *Cache) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Entry, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, Entry{Key: key, Payload: c.entries[key].payload})
	}
	return out
}

// Len returns the number of successful entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

// Generations returns how many times a generator has been invoked.
func (c *Cache) Generations() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations
}
