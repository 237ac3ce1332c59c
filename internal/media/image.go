package media

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"time"

	"media-json/internal/filesystem"
	"media-json/internal/logging"
	"media-json/internal/metrics"

	// Image format decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp" // WebP format support
)

// ErrDegenerateDimensions is returned for images that decode to a zero width
// or height. Such an image has no aspect ratio.
var ErrDegenerateDimensions = errors.New("image has zero width or height")

// NativeDecoder reads image headers with the Go image decoders.
type NativeDecoder struct {
	// AutoOrient reports the EXIF-oriented size of JPEGs. It requires a full
	// decode and is therefore much slower than a header read.
	AutoOrient bool
	Retry      filesystem.RetryConfig
}

// NewNativeDecoder creates a NativeDecoder with the default retry policy.
func NewNativeDecoder(autoOrient bool) *NativeDecoder {
	return &NativeDecoder{
		AutoOrient: autoOrient,
		Retry:      filesystem.DefaultRetryConfig(),
	}
}

// Decode returns the dimensions of the image without decoding pixel data,
// unless AutoOrient is set and the image is a JPEG.
func (d *NativeDecoder) Decode(ctx context.Context, in Input) (Dimensions, error) {
	if err := ctx.Err(); err != nil {
		return Dimensions{}, err
	}

	start := time.Now()
	defer func() {
		metrics.DecodeDuration.WithLabelValues("native").Observe(time.Since(start).Seconds())
	}()

	r, closeFn, err := d.open(in)
	if err != nil {
		return Dimensions{}, err
	}
	defer closeFn()

	config, format, err := image.DecodeConfig(r)
	if err != nil {
		return Dimensions{}, fmt.Errorf("decode %s: %w", in.Path, err)
	}
	metrics.DecodeByFormat.WithLabelValues(format).Inc()

	dims := Dimensions{Width: config.Width, Height: config.Height, Format: format}
	if !d.AutoOrient || format != "jpeg" {
		return dims, nil
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return Dimensions{}, fmt.Errorf("rewind %s: %w", in.Path, err)
	}
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return Dimensions{}, fmt.Errorf("decode %s: %w", in.Path, err)
	}
	b := img.Bounds()
	if b.Dx() != dims.Width {
		logging.Debug("EXIF orientation of %s swaps dimensions to %dx%d", in.Path, b.Dx(), b.Dy())
	}
	dims.Width, dims.Height = b.Dx(), b.Dy()
	return dims, nil
}

func (d *NativeDecoder) open(in Input) (io.ReadSeeker, func(), error) {
	if in.Reader != nil {
		if _, err := in.Reader.Seek(0, io.SeekStart); err != nil {
			return nil, nil, fmt.Errorf("rewind %s: %w", in.Path, err)
		}
		return in.Reader, func() {}, nil
	}

	file, err := filesystem.OpenWithRetry(in.Path, d.Retry)
	if err != nil {
		return nil, nil, err
	}
	return file, func() {
		if err := file.Close(); err != nil {
			logging.Warn("failed to close image file %s: %v", in.Path, err)
		}
	}, nil
}

// Metadata is what the engine records for an image.
type Metadata struct {
	Width      int
	Height     int
	Format     string
	Ratio      Ratio
	RatioValue float64
}

// Extract decodes the image and derives its reduced ratio and ratio value.
// Zero-sized images are rejected with ErrDegenerateDimensions so that no
// NaN or Inf ever reaches a document.
func Extract(ctx context.Context, dec Decoder, in Input) (Metadata, error) {
	dims, err := dec.Decode(ctx, in)
	if err != nil {
		return Metadata{}, err
	}
	if dims.Width <= 0 || dims.Height <= 0 {
		return Metadata{}, fmt.Errorf("%s (%dx%d): %w", in.Path, dims.Width, dims.Height, ErrDegenerateDimensions)
	}

	return Metadata{
		Width:      dims.Width,
		Height:     dims.Height,
		Format:     dims.Format,
		Ratio:      Reduce(dims.Width, dims.Height),
		RatioValue: RatioValue(dims.Width, dims.Height),
	}, nil
}
