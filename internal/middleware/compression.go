package middleware

import (
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
)

// CompressionConfig holds configuration for the compression middleware
type CompressionConfig struct {
	// MinSize is the minimum response size in bytes before compression is applied
	MinSize int
	// CompressibleTypes are the media types that are compressed
	CompressibleTypes []string
}

// DefaultCompressionConfig compresses documents and metrics above 1KB.
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		MinSize: 1024,
		CompressibleTypes: []string{
			"application/json",
			"application/javascript",
			"text/plain",
		},
	}
}

var gzipWriterPool = sync.Pool{
	New: func() interface{} {
		w, _ := gzip.NewWriterLevel(io.Discard, gzip.DefaultCompression)
		return w
	},
}

// gzipResponseWriter buffers up to MinSize bytes before deciding whether to
// compress.
type gzipResponseWriter struct {
	http.ResponseWriter
	config     CompressionConfig
	gz         *gzip.Writer
	buffer     []byte
	statusCode int
	decided    bool
}

func (g *gzipResponseWriter) WriteHeader(statusCode int) {
	if !g.decided {
		g.statusCode = statusCode
	}
}

func (g *gzipResponseWriter) Write(data []byte) (int, error) {
	if g.decided {
		if g.gz != nil {
			return g.gz.Write(data)
		}
		return g.ResponseWriter.Write(data)
	}

	g.buffer = append(g.buffer, data...)
	if len(g.buffer) >= g.config.MinSize {
		if err := g.decide(); err != nil {
			return 0, err
		}
	}
	return len(data), nil
}

func (g *gzipResponseWriter) compressible() bool {
	if g.Header().Get("Content-Encoding") != "" {
		return false
	}
	mediaType, _, _ := strings.Cut(g.Header().Get("Content-Type"), ";")
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	for _, t := range g.config.CompressibleTypes {
		if mediaType == t {
			return true
		}
	}
	return false
}

// decide writes the status line and the buffered body, compressed or not.
func (g *gzipResponseWriter) decide() error {
	g.decided = true
	buffered := g.buffer
	g.buffer = nil

	bodyAllowed := g.statusCode != http.StatusNotModified && g.statusCode != http.StatusNoContent
	if bodyAllowed && len(buffered) >= g.config.MinSize && g.compressible() {
		g.Header().Del("Content-Length")
		g.Header().Set("Content-Encoding", "gzip")
		g.Header().Add("Vary", "Accept-Encoding")
		g.gz = gzipWriterPool.Get().(*gzip.Writer)
		g.gz.Reset(g.ResponseWriter)
		g.ResponseWriter.WriteHeader(g.statusCode)
		_, err := g.gz.Write(buffered)
		return err
	}

	g.ResponseWriter.WriteHeader(g.statusCode)
	if len(buffered) == 0 {
		return nil
	}
	_, err := g.ResponseWriter.Write(buffered)
	return err
}

// Close flushes the response and returns the gzip writer to the pool.
func (g *gzipResponseWriter) Close() error {
	if !g.decided {
		if err := g.decide(); err != nil {
			return err
		}
	}
	if g.gz == nil {
		return nil
	}
	err := g.gz.Close()
	gzipWriterPool.Put(g.gz)
	g.gz = nil
	return err
}

// Compression gzips responses for clients that accept it.
func Compression(config CompressionConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}

			gzw := &gzipResponseWriter{
				ResponseWriter: w,
				config:         config,
				statusCode:     http.StatusOK,
			}
			defer gzw.Close()
			next.ServeHTTP(gzw, r)
		})
	}
}
