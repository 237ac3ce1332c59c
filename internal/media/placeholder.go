package media

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image/color"
	"time"

	"media-json/internal/metrics"

	"github.com/disintegration/imaging"
)

// PNGDataURIPrefix prefixes every payload produced by PNGPlaceholder.
const PNGDataURIPrefix = "data:image/png;base64,"

// ErrInvalidPlaceholderSize is returned for non-positive sizes.
var ErrInvalidPlaceholderSize = errors.New("placeholder size must be positive")

// ErrPlaceholderTooLarge is returned when width*height exceeds MaxPixels.
var ErrPlaceholderTooLarge = errors.New("placeholder too large")

// PNGPlaceholder synthesizes a solid image and encodes it as a base64 PNG
// data URI. The default fill is fully transparent.
type PNGPlaceholder struct {
	Fill      color.Color
	MaxPixels int
}

// NewPNGPlaceholder returns a transparent placeholder encoder limited to
// MaxImagePixels.
func NewPNGPlaceholder() *PNGPlaceholder {
	return &PNGPlaceholder{
		Fill:      color.NRGBA{},
		MaxPixels: MaxImagePixels,
	}
}

// Encode implements PlaceholderEncoder.
func (p *PNGPlaceholder) Encode(width, height int) (string, error) {
	if width <= 0 || height <= 0 {
		return "", fmt.Errorf("%dx%d: %w", width, height, ErrInvalidPlaceholderSize)
	}
	if p.MaxPixels > 0 && width*height > p.MaxPixels {
		return "", fmt.Errorf("%dx%d exceeds %d pixels: %w", width, height, p.MaxPixels, ErrPlaceholderTooLarge)
	}

	start := time.Now()
	defer func() {
		metrics.PlaceholderGenerationDuration.Observe(time.Since(start).Seconds())
	}()

	fill := p.Fill
	if fill == nil {
		fill = color.NRGBA{}
	}
	img := imaging.New(width, height, fill)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return "", fmt.Errorf("failed to encode placeholder: %w", err)
	}

	return PNGDataURIPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
