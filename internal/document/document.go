package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"media-json/internal/tree"
)

// DefaultExportName is used when the export wrapper is enabled without a name.
const DefaultExportName = "module.exports"

// maxIndent matches the clamp JSON.stringify applies to its space argument.
const maxIndent = 10

// Replacer filters or rewrites object members during serialization. Returning
// false drops the member. It is not called for the root object or for array
// elements.
type Replacer func(key string, value any) (any, bool)

// Options control the shape of the serialized document.
type Options struct {
	// Indent is the per-level indentation; empty means compact output.
	Indent   string
	Replacer Replacer
	// Export, when set, wraps the JSON as "<Export> = <json>;".
	Export string
}

// KeepKeys returns a Replacer that keeps only members named in keys, at
// every depth.
func KeepKeys(keys ...string) Replacer {
	allowed := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		allowed[k] = struct{}{}
	}
	return func(key string, value any) (any, bool) {
		_, ok := allowed[key]
		return value, ok
	}
}

// IndentFromSpace converts a configured space value into an indent string.
// Numbers give that many spaces, clamped to 10; strings are truncated to 10
// characters. Anything else means compact output.
func IndentFromSpace(space any) (string, error) {
	switch v := space.(type) {
	case nil:
		return "", nil
	case string:
		if r := []rune(v); len(r) > maxIndent {
			v = string(r[:maxIndent])
		}
		return v, nil
	case int:
		return spaces(v), nil
	case int64:
		return spaces(int(v)), nil
	case float64:
		return spaces(int(v)), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return "", fmt.Errorf("invalid indent %q: %w", v, err)
		}
		return spaces(int(f)), nil
	default:
		return "", fmt.Errorf("unsupported indent type %T", space)
	}
}

func spaces(n int) string {
	n = min(max(n, 0), maxIndent)
	return strings.Repeat(" ", n)
}

// ExportName converts a configured export value into a wrapper name: true
// selects DefaultExportName, false or "" disables wrapping, and any other
// string is used as given.
func ExportName(export any) (string, error) {
	switch v := export.(type) {
	case nil:
		return "", nil
	case bool:
		if v {
			return DefaultExportName, nil
		}
		return "", nil
	case string:
		v = strings.TrimSpace(v)
		switch strings.ToLower(v) {
		case "true":
			return DefaultExportName, nil
		case "false":
			return "", nil
		}
		return v, nil
	default:
		return "", fmt.Errorf("unsupported export type %T", export)
	}
}

// Serialize renders root as JSON in key insertion order. HTML characters are
// not escaped, so data URIs and paths come out exactly as stored.
func Serialize(root *tree.Node, opts Options) ([]byte, error) {
	var compact bytes.Buffer
	if err := writeValue(&compact, root, opts.Replacer); err != nil {
		return nil, err
	}

	out := compact.Bytes()
	if opts.Indent != "" {
		var indented bytes.Buffer
		if err := json.Indent(&indented, out, "", opts.Indent); err != nil {
			return nil, fmt.Errorf("failed to indent document: %w", err)
		}
		out = indented.Bytes()
	}

	if opts.Export == "" {
		return out, nil
	}
	wrapped := make([]byte, 0, len(out)+len(opts.Export)+4)
	wrapped = append(wrapped, opts.Export...)
	wrapped = append(wrapped, " = "...)
	wrapped = append(wrapped, out...)
	wrapped = append(wrapped, ';')
	return wrapped, nil
}

func writeValue(buf *bytes.Buffer, v any, replacer Replacer) error {
	switch t := v.(type) {
	case *tree.Node:
		buf.WriteByte('{')
		first := true
		for _, key := range t.Keys() {
			value, _ := t.Get(key)
			if replacer != nil {
				var keep bool
				if value, keep = replacer(key, value); !keep {
					continue
				}
			}
			if !first {
				buf.WriteByte(',')
			}
			first = false
			if err := writeLeaf(buf, key); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeValue(buf, value, replacer); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
		}
		buf.WriteByte('}')
		return nil
	case []any:
		buf.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeValue(buf, e, replacer); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return fmt.Errorf("unsupported number %v", t)
		}
		return writeLeaf(buf, t)
	default:
		return writeLeaf(buf, v)
	}
}

func writeLeaf(buf *bytes.Buffer, v any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	// Encode terminates every value with a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}
