package media

import (
	"context"
	"fmt"

	"media-json/internal/logging"
	"media-json/internal/metrics"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CacheKey identifies one version of an image file.
type CacheKey struct {
	Path    string
	Size    int64
	ModTime int64 // unix nanoseconds
}

// DimensionStore persists dimensions beyond the lifetime of the process.
type DimensionStore interface {
	LoadDimensions(ctx context.Context, key CacheKey) (Dimensions, bool, error)
	SaveDimensions(ctx context.Context, key CacheKey, dims Dimensions) error
}

// CachingDecoder remembers dimensions across runs, keyed by path, size and
// modification time. Watch mode rebuilds the whole document on every change;
// this keeps unchanged images from being decoded again. Inputs without a
// modification time, or with in-memory contents, bypass the cache.
//
// With a DimensionStore attached, misses in memory fall through to the store
// before decoding, and decoded dimensions are written back to it. Store
// failures are logged and treated as misses.
type CachingDecoder struct {
	next  Decoder
	cache *lru.Cache[CacheKey, Dimensions]
	store DimensionStore
}

// NewCachingDecoder wraps next with an LRU cache of the given size.
func NewCachingDecoder(next Decoder, size int) (*CachingDecoder, error) {
	cache, err := lru.New[CacheKey, Dimensions](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder cache: %w", err)
	}
	return &CachingDecoder{next: next, cache: cache}, nil
}

// WithStore attaches a persistent store and returns c.
func (c *CachingDecoder) WithStore(store DimensionStore) *CachingDecoder {
	c.store = store
	return c
}

// Decode implements Decoder.
func (c *CachingDecoder) Decode(ctx context.Context, in Input) (Dimensions, error) {
	if in.Reader != nil || in.ModTime.IsZero() {
		return c.next.Decode(ctx, in)
	}

	key := CacheKey{Path: in.Path, Size: in.Size, ModTime: in.ModTime.UnixNano()}
	if dims, ok := c.cache.Get(key); ok {
		metrics.DecoderCacheHits.Inc()
		logging.Debug("Decoder cache hit: %s", in.Path)
		return dims, nil
	}

	if c.store != nil {
		dims, ok, err := c.store.LoadDimensions(ctx, key)
		switch {
		case err != nil:
			logging.Warn("Dimension store lookup failed for %s: %v", in.Path, err)
		case ok:
			metrics.DecoderCacheHits.Inc()
			logging.Debug("Dimension store hit: %s", in.Path)
			c.cache.Add(key, dims)
			return dims, nil
		}
	}
	metrics.DecoderCacheMisses.Inc()

	dims, err := c.next.Decode(ctx, in)
	if err != nil {
		return Dimensions{}, err
	}
	c.cache.Add(key, dims)

	if c.store != nil {
		if err := c.store.SaveDimensions(ctx, key, dims); err != nil {
			logging.Warn("Failed to store dimensions of %s: %v", in.Path, err)
		}
	}
	return dims, nil
}

// Len returns the number of entries cached in memory.
func (c *CachingDecoder) Len() int {
	return c.cache.Len()
}
