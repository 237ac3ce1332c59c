package namespace

import (
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/iancoleman/strcase"
)

// Key is a dotted path into the aggregation tree, e.g. "gallery.summer._2019".
type Key string

// Segments splits the key on "." and drops empty segments.
func (k Key) Segments() []string {
	parts := strings.Split(string(k), ".")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (k Key) String() string { return string(k) }

// EscapeFunc turns the raw dotted path of an asset into a safe key. It
// receives the joined path and the asset's extension without the leading dot.
type EscapeFunc func(path, ext string) string

// Build derives the namespace key of an asset from its directory, the
// configured base path and its stem.
func Build(directory, basePath, stem, ext string, escape EscapeFunc) Key {
	if escape == nil {
		escape = Escape
	}
	ns := strings.ReplaceAll(RelativeDir(directory, basePath), "/", ".")
	ns = strings.TrimLeft(ns, ".")
	if ns == "" {
		ns = stem
	} else {
		ns += "." + stem
	}
	return Key(escape(ns, strings.TrimPrefix(ext, ".")))
}

// RelativeDir strips basePath from directory. Both are normalized to forward
// slashes first so Windows-style configuration works on any platform.
func RelativeDir(directory, basePath string) string {
	dir := toSlash(directory)
	base := strings.TrimRight(toSlash(basePath), "/")
	if base == "" || base == "." {
		if dir == "." {
			return ""
		}
		return strings.TrimPrefix(dir, "./")
	}
	if dir == base {
		return ""
	}
	if strings.HasPrefix(dir, base+"/") {
		return dir[len(base)+1:]
	}
	return dir
}

// SourcePath is the "src" value of a record: the base-relative directory and
// file name joined with "/".
func SourcePath(directory, basePath, baseName string) string {
	rel := RelativeDir(directory, basePath)
	if rel == "" {
		return baseName
	}
	return path.Join(rel, baseName)
}

func toSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

var illegalChars = regexp.MustCompile(`[^A-Za-z0-9_.\-]`)

// Escape is the default EscapeFunc. It removes characters outside
// [A-Za-z0-9_.-], camel-cases every dot-separated segment, prefixes segments
// that start with a digit with "_" and drops segments left empty.
//
// Escape is idempotent: Escape(Escape(s, e), e) == Escape(s, e).
func Escape(s, _ string) string {
	s = illegalChars.ReplaceAllString(s, "")

	parts := strings.Split(s, ".")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		seg := CamelCase(part)
		if seg == "" {
			continue
		}
		if seg[0] >= '0' && seg[0] <= '9' {
			seg = "_" + seg
		}
		out = append(out, seg)
	}
	return strings.Join(out, ".")
}

// EscapeNone returns the path unchanged.
func EscapeNone(s, _ string) string {
	return s
}

// EscapeWithExtension applies Escape and appends "-<ext>" to the last
// segment, so "hero.jpg" and "hero.png" get distinct keys. A suffix that is
// already present is not appended twice.
func EscapeWithExtension(s, ext string) string {
	suffix := illegalChars.ReplaceAllString(ext, "")
	if suffix == "" {
		return Escape(s, ext)
	}
	suffix = "-" + strings.ToLower(suffix)
	s = strings.TrimSuffix(s, suffix)
	escaped := Escape(s, ext)
	if escaped == "" {
		return ""
	}
	return escaped + suffix
}

var escapers = map[string]EscapeFunc{
	"camel":      Escape,
	"none":       EscapeNone,
	"ext-suffix": EscapeWithExtension,
}

// Lookup returns a named EscapeFunc. The empty name selects Escape.
func Lookup(name string) (EscapeFunc, error) {
	if name == "" {
		return Escape, nil
	}
	fn, ok := escapers[name]
	if !ok {
		return nil, fmt.Errorf("unknown namespace escaper %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return fn, nil
}

// Names lists the registered escaper names.
func Names() []string {
	names := make([]string, 0, len(escapers))
	for name := range escapers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CamelCase joins the words of s in lower camel case: "hero-image_2x"
// becomes "heroImage2X". Words break on "_", "-", "." and spaces, and a
// letter following a digit starts a new word. Upper-case runs are folded
// to lower case after their first letter, so "XMLHttp" becomes "xmlhttp".
//
// The result is a fixed point: CamelCase(CamelCase(s)) == CamelCase(s).
func CamelCase(s string) string {
	s = strings.TrimLeft(s, separators)
	for {
		next := strcase.ToLowerCamel(s)
		if next == s {
			return s
		}
		// Passes only lower letters, except right after a digit, so this
		// settles quickly.
		s = next
	}
}

const separators = " _-."
