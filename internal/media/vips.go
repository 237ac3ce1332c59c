package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"media-json/internal/logging"
	"media-json/internal/metrics"

	"github.com/davidbyttow/govips/v2/vips"
)

// ErrVipsUnavailable is returned by VipsDecoder before InitVips has run.
var ErrVipsUnavailable = errors.New("libvips not available")

var (
	vipsInitialized bool
	vipsInitMutex   sync.Mutex
	vipsAvailable   bool
)

// InitVips initializes the libvips library
// This should be called once at startup, before the first VipsDecoder.Decode
func InitVips(concurrency int) error {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		return nil
	}

	// Configure vips logging BEFORE Startup() so it follows our level
	vipsLogLevel, logHandler := vipsLogging(logging.GetLevel())
	vips.LoggingSettings(logHandler, vipsLogLevel)

	if concurrency < 1 {
		concurrency = 1
	}
	vips.Startup(&vips.Config{
		ConcurrencyLevel: concurrency,
		MaxCacheMem:      50 * 1024 * 1024, // 50MB cache
		MaxCacheSize:     100,
		ReportLeaks:      false,
		CacheTrace:       false,
		CollectStats:     false,
	})

	vipsInitialized = true
	vipsAvailable = true
	logging.Info("libvips initialized successfully (version: %s)", vips.Version)
	return nil
}

func vipsLogging(level logging.LogLevel) (vips.LogLevel, func(string, vips.LogLevel, string)) {
	switch level {
	case logging.LevelDebug:
		return vips.LogLevelInfo, func(domain string, l vips.LogLevel, msg string) {
			switch l {
			case vips.LogLevelError, vips.LogLevelCritical:
				logging.Error("[%s] %s", domain, msg)
			case vips.LogLevelWarning:
				logging.Warn("[%s] %s", domain, msg)
			default:
				logging.Debug("[%s] %s", domain, msg)
			}
		}
	case logging.LevelInfo:
		return vips.LogLevelWarning, func(domain string, l vips.LogLevel, msg string) {
			switch l {
			case vips.LogLevelError, vips.LogLevelCritical:
				logging.Error("[%s] %s", domain, msg)
			case vips.LogLevelWarning:
				logging.Warn("[%s] %s", domain, msg)
			}
		}
	case logging.LevelWarn:
		return vips.LogLevelError, func(domain string, l vips.LogLevel, msg string) {
			if l >= vips.LogLevelError {
				logging.Error("[%s] %s", domain, msg)
			}
		}
	default:
		return vips.LogLevelCritical, func(domain string, l vips.LogLevel, msg string) {
			if l >= vips.LogLevelCritical {
				logging.Error("[%s] %s", domain, msg)
			}
		}
	}
}

// ShutdownVips cleans up libvips resources. libvips cannot be started again
// in the same process afterwards.
func ShutdownVips() {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		vips.Shutdown()
		vipsInitialized = false
		vipsAvailable = false
		logging.Info("libvips shutdown complete")
	}
}

// IsVipsAvailable returns whether libvips is initialized and available
func IsVipsAvailable() bool {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()
	return vipsAvailable
}

// VipsDecoder reads image dimensions through libvips. It understands formats
// the Go decoders do not, such as HEIF and AVIF, when libvips was built with
// them.
type VipsDecoder struct{}

// Decode implements Decoder.
func (VipsDecoder) Decode(ctx context.Context, in Input) (Dimensions, error) {
	if err := ctx.Err(); err != nil {
		return Dimensions{}, err
	}
	if !IsVipsAvailable() {
		return Dimensions{}, ErrVipsUnavailable
	}

	start := time.Now()
	defer func() {
		metrics.DecodeDuration.WithLabelValues("vips").Observe(time.Since(start).Seconds())
	}()

	ref, err := loadWithVips(in)
	if err != nil {
		return Dimensions{}, fmt.Errorf("vips failed to load %s: %w", in.Path, err)
	}
	defer ref.Close()

	format := vips.ImageTypes[ref.Format()]
	if format == "" {
		format = "unknown"
	}
	metrics.DecodeByFormat.WithLabelValues(format).Inc()

	logging.Debug("Vips loaded %s: %dx%d (%s)", filepath.Base(in.Path), ref.Width(), ref.Height(), format)
	return Dimensions{Width: ref.Width(), Height: ref.Height(), Format: format}, nil
}

func loadWithVips(in Input) (*vips.ImageRef, error) {
	importParams := vips.NewImportParams()
	if in.Reader == nil {
		return vips.LoadImageFromFile(in.Path, importParams)
	}

	if _, err := in.Reader.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	buf, err := io.ReadAll(in.Reader)
	if err != nil {
		return nil, err
	}
	return vips.LoadImageFromBuffer(buf, importParams)
}
