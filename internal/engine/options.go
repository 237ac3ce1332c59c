package engine

import (
	"context"
	"fmt"
	"sort"

	"media-json/internal/document"
	"media-json/internal/media"
	"media-json/internal/namespace"
	"media-json/internal/tree"
)

// Fields selects which record fields are written.
type Fields struct {
	Src        bool
	Ext        bool
	Mime       bool
	Type       bool
	W          bool
	H          bool
	Ratio      bool
	RatioValue bool
}

// AllFields enables every field.
func AllFields() Fields {
	return Fields{Src: true, Ext: true, Mime: true, Type: true, W: true, H: true, Ratio: true, RatioValue: true}
}

// FieldNames lists the configurable field names in output order.
var FieldNames = []string{"src", "ext", "mime", "type", "w", "h", "ratio", "ratioValue"}

// FieldsFromMap applies an inclusion map on top of AllFields. Unknown names
// are an error.
func FieldsFromMap(m map[string]bool) (Fields, error) {
	f := AllFields()
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		on := m[name]
		switch name {
		case "src":
			f.Src = on
		case "ext":
			f.Ext = on
		case "mime":
			f.Mime = on
		case "type":
			f.Type = on
		case "w":
			f.W = on
		case "h":
			f.H = on
		case "ratio":
			f.Ratio = on
		case "ratiovalue", "ratioValue":
			f.RatioValue = on
		default:
			return Fields{}, fmt.Errorf("unknown image property %q", name)
		}
	}
	return f, nil
}

// Options configure a run.
type Options struct {
	BasePath string
	Escape   namespace.EscapeFunc

	// ImageInfo enables decoding of images.
	ImageInfo bool
	Fields    Fields
	// RatioValueTrim rounds ratioValue to that many decimals; negative
	// disables rounding.
	RatioValueTrim int

	// Placeholder adds the "empty" field to images.
	Placeholder bool
	// PlaceholderNamespace, when set, collects placeholders into one table
	// at that dotted path and stores the ratio key in "empty" instead.
	PlaceholderNamespace string

	// StartObj seeds the document; EndObj fields are assigned at the end.
	// Both are cloned per run.
	StartObj *tree.Node
	EndObj   *tree.Node
	Document document.Options

	Decoder media.Decoder
	Encoder media.PlaceholderEncoder
	// Workers above 1 decode images concurrently. Output is the same for
	// every value.
	Workers  int
	Reporter Reporter
	// Backpressure, when set, is waited on before each decode.
	Backpressure Backpressure
}

// Backpressure delays decoding while memory is short.
type Backpressure interface {
	Wait(ctx context.Context) error
}

// DefaultOptions mirrors the defaults of the configuration layer.
func DefaultOptions() Options {
	return Options{
		Escape:         namespace.Escape,
		ImageInfo:      true,
		Fields:         AllFields(),
		RatioValueTrim: -1,
		Placeholder:    true,
		Document:       document.Options{Indent: "\t"},
		Decoder:        media.NewNativeDecoder(false),
		Encoder:        media.NewPNGPlaceholder(),
		Workers:        1,
	}
}

func (o *Options) normalize() {
	if o.Escape == nil {
		o.Escape = namespace.Escape
	}
	if o.Decoder == nil {
		o.Decoder = media.NewNativeDecoder(false)
	}
	if o.Encoder == nil {
		o.Encoder = media.NewPNGPlaceholder()
	}
	if o.Workers < 1 {
		o.Workers = 1
	}
}
