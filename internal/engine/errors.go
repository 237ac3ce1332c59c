package engine

import (
	"errors"
	"fmt"

	"media-json/internal/namespace"
)

// ErrEmptyNamespace is reported for assets whose namespace escapes to
// nothing, e.g. a file named "###.png" at the base path.
var ErrEmptyNamespace = errors.New("namespace is empty after escaping")

// UnsupportedInputError rejects assets whose contents are a plain stream.
type UnsupportedInputError struct {
	Path string
}

func (e *UnsupportedInputError) Error() string {
	return fmt.Sprintf("%s: streaming not supported", e.Path)
}

// DecodeError is reported when an image cannot be measured. The asset's
// namespace entry is removed from the document.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("error while processing image %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError is reported when a placeholder cannot be generated. The asset
// is kept without its "empty" field.
type EncodeError struct {
	Path  string
	Ratio string
	Err   error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("placeholder %s for %s: %v", e.Ratio, e.Path, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// Issue is one warning or error raised while processing an asset.
type Issue struct {
	Path string
	Key  namespace.Key
	Err  error
}

func (i Issue) Error() string {
	if i.Key == "" {
		return i.Err.Error()
	}
	return fmt.Sprintf("[%s] %v", i.Key, i.Err)
}

func (i Issue) Unwrap() error { return i.Err }

// Reporter receives issues as they happen. Warnings never stop a run;
// errors abort only the asset they belong to.
type Reporter interface {
	Warning(Issue)
	Error(Issue)
}

func issueKind(err error) string {
	var (
		decodeErr      *DecodeError
		encodeErr      *EncodeError
		unsupportedErr *UnsupportedInputError
	)
	switch {
	case errors.As(err, &decodeErr):
		return "decode"
	case errors.As(err, &encodeErr):
		return "encode"
	case errors.As(err, &unsupportedErr):
		return "unsupported_input"
	case errors.Is(err, ErrEmptyNamespace):
		return "namespace"
	default:
		return "other"
	}
}
