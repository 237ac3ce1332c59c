package source

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"media-json/internal/filesystem"
	"media-json/internal/logging"
	"media-json/internal/mediatypes"

	"github.com/bmatcuk/doublestar/v4"
)

// Asset is one input file. Assets are immutable once created.
type Asset struct {
	Path     string
	Dir      string
	Base     string
	Stem     string
	Ext      string // with leading dot, as filepath.Ext
	MimeType string
	Size     int64
	ModTime  time.Time
	// Contents, when set, is read instead of Path. It must be an
	// io.ReadSeeker; plain streams are rejected by the engine.
	Contents io.Reader
	// Null marks entries without contents, such as directories matched by a
	// glob. They are skipped.
	Null bool
}

// NewAsset describes the file at path without touching the filesystem.
func NewAsset(path string) Asset {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	return Asset{
		Path:     path,
		Dir:      filepath.Dir(path),
		Base:     base,
		Stem:     strings.TrimSuffix(base, ext),
		Ext:      ext,
		MimeType: mediatypes.LookupMimeType(base),
	}
}

// NewReaderAsset describes an in-memory or streamed asset. The path is only
// used for naming.
func NewReaderAsset(path string, contents io.Reader) Asset {
	a := NewAsset(path)
	a.Contents = contents
	return a
}

// IsNull reports whether the asset has no contents to process.
func (a Asset) IsNull() bool {
	return a.Null
}

// IsStream reports whether the asset's contents cannot be rewound.
func (a Asset) IsStream() bool {
	if a.Contents == nil {
		return false
	}
	_, ok := a.Contents.(io.ReadSeeker)
	return !ok
}

// ReadSeeker returns the asset's in-memory contents, if any.
func (a Asset) ReadSeeker() io.ReadSeeker {
	rs, _ := a.Contents.(io.ReadSeeker)
	return rs
}

// GlobOptions configure Glob.
type GlobOptions struct {
	// IncludeDirs reports matched directories as null assets.
	IncludeDirs bool
	Retry       filesystem.RetryConfig
}

// Glob expands doublestar patterns ("images/**/*.jpg") into assets sorted by
// path. Patterns starting with "!" exclude matches of the other patterns.
func Glob(patterns []string, opts GlobOptions) ([]Asset, error) {
	include, exclude := splitPatterns(patterns)
	if len(include) == 0 {
		return nil, errors.New("no source patterns given")
	}
	for _, p := range exclude {
		if !doublestar.ValidatePathPattern(p) {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", p, doublestar.ErrBadPattern)
		}
	}

	seen := make(map[string]struct{})
	var paths []string
	for _, pattern := range include {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		for _, m := range matches {
			if _, dup := seen[m]; dup || excluded(m, exclude) {
				continue
			}
			seen[m] = struct{}{}
			paths = append(paths, m)
		}
	}
	slices.Sort(paths)

	assets := make([]Asset, 0, len(paths))
	for _, p := range paths {
		info, err := filesystem.StatWithRetry(p, opts.Retry)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				logging.Debug("Skipping %s: removed during glob", p)
				continue
			}
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
		if info.IsDir() && !opts.IncludeDirs {
			continue
		}

		a := NewAsset(p)
		a.Size = info.Size()
		a.ModTime = info.ModTime()
		a.Null = info.IsDir()
		assets = append(assets, a)
	}

	logging.Debug("Glob %v matched %d assets", patterns, len(assets))
	return assets, nil
}

// Roots returns the static directory prefix of every include pattern, for
// watching. "images/**/*.jpg" has root "images".
func Roots(patterns []string) []string {
	include, _ := splitPatterns(patterns)
	var roots []string
	for _, p := range include {
		base, _ := doublestar.SplitPattern(filepath.ToSlash(p))
		root := filepath.FromSlash(base)
		if !slices.Contains(roots, root) {
			roots = append(roots, root)
		}
	}
	slices.Sort(roots)
	return roots
}

// Matches reports whether path is selected by patterns.
func Matches(patterns []string, path string) bool {
	include, exclude := splitPatterns(patterns)
	if excluded(path, exclude) {
		return false
	}
	for _, p := range include {
		if ok, _ := doublestar.PathMatch(p, path); ok {
			return true
		}
	}
	return false
}

func splitPatterns(patterns []string) (include, exclude []string) {
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		switch {
		case p == "":
		case strings.HasPrefix(p, "!"):
			exclude = append(exclude, filepath.Clean(p[1:]))
		default:
			include = append(include, filepath.Clean(p))
		}
	}
	return include, exclude
}

func excluded(path string, exclude []string) bool {
	for _, p := range exclude {
		if ok, _ := doublestar.PathMatch(p, path); ok {
			return true
		}
	}
	return false
}
