package output

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"media-json/internal/logging"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/term"
)

// Stdout as a destination writes the document to standard output.
const Stdout = "-"

// GzipExt is appended to the file name of compressed documents.
const GzipExt = ".gz"

// ErrTerminal is returned when compressed output would go to a terminal.
var ErrTerminal = errors.New("refusing to write gzip data to a terminal")

// Options control how a document is written.
type Options struct {
	Gzip bool
	// Stdout receives the document when the destination is "-". Nil means
	// os.Stdout.
	Stdout io.Writer
	Mode   os.FileMode
}

// Result describes a written document.
type Result struct {
	// Path is the file written, or "-" for standard output.
	Path  string
	Bytes int
	// Unchanged is set when the file already held identical content and was
	// left alone.
	Unchanged bool
}

// Write stores data as dest/name, or dest/name.gz when compressing. The file
// is replaced atomically and left untouched when its content would not
// change. dest "-" writes to standard output.
func Write(dest, name string, data []byte, opts Options) (Result, error) {
	payload, err := encode(name, data, opts.Gzip)
	if err != nil {
		return Result{}, err
	}

	if dest == Stdout {
		return writeStdout(payload, opts)
	}

	if opts.Gzip {
		name += GzipExt
	}
	path := filepath.Join(dest, name)
	res := Result{Path: path, Bytes: len(payload)}

	if existing, err := os.ReadFile(path); err == nil && bytes.Equal(existing, payload) {
		logging.Debug("%s unchanged, not rewriting", path)
		res.Unchanged = true
		return res, nil
	}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return Result{}, fmt.Errorf("failed to create %s: %w", dest, err)
	}

	mode := opts.Mode
	if mode == 0 {
		mode = 0o644
	}
	if err := writeAtomic(path, payload, mode); err != nil {
		return Result{}, err
	}
	logging.Debug("Wrote %s (%d bytes)", path, len(payload))
	return res, nil
}

// Path returns the file Write would produce, or "-" for standard output.
func Path(dest, name string, gzipped bool) string {
	if dest == Stdout {
		return Stdout
	}
	if gzipped {
		name += GzipExt
	}
	return filepath.Join(dest, name)
}

func writeStdout(payload []byte, opts Options) (Result, error) {
	w := opts.Stdout
	if w == nil {
		w = os.Stdout
	}
	if opts.Gzip && isTerminal(w) {
		return Result{}, ErrTerminal
	}
	if _, err := w.Write(payload); err != nil {
		return Result{}, fmt.Errorf("failed to write to stdout: %w", err)
	}
	return Result{Path: Stdout, Bytes: len(payload)}, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// encode returns data as is, or gzip-compressed. The gzip header carries the
// name but no timestamp, so equal documents compress to equal bytes.
func encode(name string, data []byte, gzipped bool) ([]byte, error) {
	if !gzipped {
		return data, nil
	}

	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	zw.Name = name
	if _, err := zw.Write(data); err != nil {
		return nil, fmt.Errorf("failed to compress %s: %w", name, err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

func writeAtomic(path string, payload []byte, mode os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	cleanup := func() {
		if err := os.Remove(tmpName); err != nil && !os.IsNotExist(err) {
			logging.Warn("failed to remove temp file %s: %v", tmpName, err)
		}
	}

	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		cleanup()
		return fmt.Errorf("failed to set mode on %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
