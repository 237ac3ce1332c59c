package media

import (
	"context"
	"io"
	"time"
)

const (
	// MaxImagePixels bounds the size of a synthesized placeholder. A reduced
	// ratio of two large coprime dimensions is as big as the image itself.
	MaxImagePixels = 20_000_000
)

// Input identifies the bytes of one image for a Decoder. When Reader is set
// it is used instead of opening Path.
type Input struct {
	Path    string
	Reader  io.ReadSeeker
	Size    int64
	ModTime time.Time
}

// Dimensions holds image width and height and the detected format name.
type Dimensions struct {
	Width  int
	Height int
	Format string
}

// Decoder reads the dimensions of an image.
type Decoder interface {
	Decode(ctx context.Context, in Input) (Dimensions, error)
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc func(ctx context.Context, in Input) (Dimensions, error)

// Decode calls f(ctx, in).
func (f DecoderFunc) Decode(ctx context.Context, in Input) (Dimensions, error) {
	return f(ctx, in)
}

// PlaceholderEncoder synthesizes a blank image of the given size and returns
// its encoded payload.
type PlaceholderEncoder interface {
	Encode(width, height int) (string, error)
}

// PlaceholderFunc adapts a function to the PlaceholderEncoder interface.
type PlaceholderFunc func(width, height int) (string, error)

// Encode calls f(width, height).
func (f PlaceholderFunc) Encode(width, height int) (string, error) {
	return f(width, height)
}
