package media

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// createTestImage creates a gradient test image and saves it to the given path
func createTestImage(t testing.TB, path string, width, height int, format string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create test image file: %v", err)
	}
	defer f.Close()

	if err := encodeTestImage(f, width, height, format); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
}

func encodeTestImage(w interface{ Write([]byte) (int, error) }, width, height int, format string) error {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8((x * 255) / width),
				G: uint8((y * 255) / height),
				B: 128,
				A: 255,
			})
		}
	}

	switch format {
	case "jpeg", "jpg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 90})
	default:
		return png.Encode(w, img)
	}
}

func TestNativeDecoderFiles(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name       string
		width      int
		height     int
		format     string
		wantFormat string
	}{
		{name: "Small JPEG", width: 100, height: 100, format: "jpeg", wantFormat: "jpeg"},
		{name: "Wide JPEG", width: 1920, height: 1080, format: "jpeg", wantFormat: "jpeg"},
		{name: "Small PNG", width: 200, height: 150, format: "png", wantFormat: "png"},
		{name: "Tall PNG", width: 9, height: 16, format: "png", wantFormat: "png"},
	}

	dec := NewNativeDecoder(false)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(tmpDir, strings.ReplaceAll(tt.name, " ", "_")+"."+tt.format)
			createTestImage(t, path, tt.width, tt.height, tt.format)

			dims, err := dec.Decode(context.Background(), Input{Path: path})
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if dims.Width != tt.width || dims.Height != tt.height {
				t.Errorf("Decode() = %dx%d, want %dx%d", dims.Width, dims.Height, tt.width, tt.height)
			}
			if dims.Format != tt.wantFormat {
				t.Errorf("Decode() format = %q, want %q", dims.Format, tt.wantFormat)
			}
		})
	}
}

func TestNativeDecoderReader(t *testing.T) {
	var buf bytes.Buffer
	if err := encodeTestImage(&buf, 640, 360, "png"); err != nil {
		t.Fatalf("encode: %v", err)
	}
	r := bytes.NewReader(buf.Bytes())

	dec := NewNativeDecoder(true)
	// Decoding twice exercises the rewind of a shared reader.
	for i := 0; i < 2; i++ {
		dims, err := dec.Decode(context.Background(), Input{Path: "mem.png", Reader: r})
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if dims.Width != 640 || dims.Height != 360 {
			t.Errorf("Decode() = %dx%d, want 640x360", dims.Width, dims.Height)
		}
	}
}

func TestNativeDecoderAutoOrientJPEG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo.jpg")
	createTestImage(t, path, 300, 200, "jpeg")

	dims, err := NewNativeDecoder(true).Decode(context.Background(), Input{Path: path})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	// No EXIF orientation tag, so the size is unchanged.
	if dims.Width != 300 || dims.Height != 200 {
		t.Errorf("Decode() = %dx%d, want 300x200", dims.Width, dims.Height)
	}
}

func TestNativeDecoderErrors(t *testing.T) {
	tmpDir := t.TempDir()

	corrupt := filepath.Join(tmpDir, "corrupt.jpg")
	if err := os.WriteFile(corrupt, []byte("this is not an image"), 0o644); err != nil {
		t.Fatalf("Failed to write corrupt file: %v", err)
	}

	dec := NewNativeDecoder(false)
	dec.Retry.MaxRetries = 0

	tests := []struct {
		name string
		path string
	}{
		{name: "corrupt file", path: corrupt},
		{name: "missing file", path: filepath.Join(tmpDir, "missing.png")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := dec.Decode(context.Background(), Input{Path: tt.path}); err == nil {
				t.Error("Decode() expected error, got nil")
			}
		})
	}
}

func TestNativeDecoderCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewNativeDecoder(false).Decode(ctx, Input{Path: "whatever.png"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Decode() error = %v, want context.Canceled", err)
	}
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name      string
		dims      Dimensions
		wantRatio string
		wantValue float64
		wantErr   error
	}{
		{name: "16/9", dims: Dimensions{Width: 1920, Height: 1080}, wantRatio: "16/9", wantValue: 1920.0 / 1080.0},
		{name: "square", dims: Dimensions{Width: 10, Height: 10}, wantRatio: "1/1", wantValue: 1},
		{name: "coprime", dims: Dimensions{Width: 7, Height: 3}, wantRatio: "7/3", wantValue: 7.0 / 3.0},
		{name: "zero width", dims: Dimensions{Width: 0, Height: 10}, wantErr: ErrDegenerateDimensions},
		{name: "zero height", dims: Dimensions{Width: 10, Height: 0}, wantErr: ErrDegenerateDimensions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec := DecoderFunc(func(context.Context, Input) (Dimensions, error) { return tt.dims, nil })
			md, err := Extract(context.Background(), dec, Input{Path: "x.png"})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Extract() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if md.Ratio.Key() != tt.wantRatio {
				t.Errorf("Ratio = %s, want %s", md.Ratio.Key(), tt.wantRatio)
			}
			if md.RatioValue != tt.wantValue {
				t.Errorf("RatioValue = %v, want %v", md.RatioValue, tt.wantValue)
			}
		})
	}
}

func TestExtractPropagatesDecodeError(t *testing.T) {
	boom := errors.New("boom")
	dec := DecoderFunc(func(context.Context, Input) (Dimensions, error) { return Dimensions{}, boom })

	if _, err := Extract(context.Background(), dec, Input{}); !errors.Is(err, boom) {
		t.Errorf("Extract() error = %v, want %v", err, boom)
	}
}

func BenchmarkNativeDecoder(b *testing.B) {
	path := filepath.Join(b.TempDir(), "bench.jpg")
	createTestImage(b, path, 1920, 1080, "jpeg")
	dec := NewNativeDecoder(false)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := dec.Decode(ctx, Input{Path: path}); err != nil {
			b.Fatal(err)
		}
	}
}
