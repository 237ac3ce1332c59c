package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"media-json/internal/document"
	"media-json/internal/media"
	"media-json/internal/source"
	"media-json/internal/tree"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errCorrupt = errors.New("corrupt image")

// fakeDecoder returns fixed dimensions per path; unknown paths are corrupt.
type fakeDecoder struct {
	mu    sync.Mutex
	dims  map[string]media.Dimensions
	calls int
}

func newFakeDecoder() *fakeDecoder {
	return &fakeDecoder{dims: make(map[string]media.Dimensions)}
}

func (f *fakeDecoder) add(path string, w, h int) source.Asset {
	f.dims[path] = media.Dimensions{Width: w, Height: h, Format: "png"}
	return source.NewAsset(path)
}

func (f *fakeDecoder) Decode(_ context.Context, in media.Input) (media.Dimensions, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	d, ok := f.dims[in.Path]
	if !ok {
		return media.Dimensions{}, errCorrupt
	}
	return d, nil
}

type countingEncoder struct {
	calls atomic.Int32
	fail  bool
}

func (e *countingEncoder) Encode(w, h int) (string, error) {
	e.calls.Add(1)
	if e.fail {
		return "", errors.New("cannot synthesize")
	}
	return fmt.Sprintf("data:image/png;base64,%dx%d", w, h), nil
}

type recorder struct {
	warnings []Issue
	errors   []Issue
}

func (r *recorder) Warning(i Issue) { r.warnings = append(r.warnings, i) }
func (r *recorder) Error(i Issue)   { r.errors = append(r.errors, i) }

func testOptions(dec media.Decoder, enc media.PlaceholderEncoder) Options {
	opts := DefaultOptions()
	opts.Decoder = dec
	opts.Encoder = enc
	opts.Document = document.Options{}
	return opts
}

func parseDoc(t *testing.T, res *Result) *tree.Node {
	t.Helper()
	require.NotNil(t, res.Document, "expected a document")
	root, err := tree.Parse(res.Document)
	require.NoError(t, err)
	return root
}

func field(t *testing.T, root *tree.Node, path ...string) any {
	t.Helper()
	v, ok := tree.GetPath(root, path)
	require.True(t, ok, "missing %s", strings.Join(path, "."))
	return v
}

func TestHeroThumbShareOnePlaceholder(t *testing.T) {
	dec := newFakeDecoder()
	enc := &countingEncoder{}
	assets := []source.Asset{
		dec.add(filepath.Join("images", "hero.jpg"), 1920, 1080),
		dec.add(filepath.Join("images", "thumb.jpg"), 960, 540),
	}

	opts := testOptions(dec, enc)
	opts.BasePath = "images/"
	res, err := Run(context.Background(), assets, opts)
	require.NoError(t, err)

	root := parseDoc(t, res)
	assert.Equal(t, []string{"hero", "thumb"}, root.Keys())
	assert.Equal(t, "16/9", field(t, root, "hero", "ratio"))
	assert.Equal(t, "16/9", field(t, root, "thumb", "ratio"))
	assert.Equal(t, "hero.jpg", field(t, root, "hero", "src"))
	assert.Equal(t, json.Number("1920"), field(t, root, "hero", "w"))

	assert.Equal(t, int32(1), enc.calls.Load(), "placeholder must be generated once")
	assert.Equal(t, field(t, root, "hero", "empty"), field(t, root, "thumb", "empty"))
	assert.Equal(t, "data:image/png;base64,16x9", field(t, root, "hero", "empty"))
	assert.Equal(t, 1, res.Placeholders)
	assert.Empty(t, res.Warnings)
}

func TestRatioValueTrim(t *testing.T) {
	dec := newFakeDecoder()
	assets := []source.Asset{dec.add(filepath.Join("a", "1.png"), 100, 100)}

	opts := testOptions(dec, &countingEncoder{})
	opts.RatioValueTrim = 2
	res, err := Run(context.Background(), assets, opts)
	require.NoError(t, err)

	root := parseDoc(t, res)
	assert.Equal(t, json.Number("1"), field(t, root, "a", "_1", "ratioValue"))
	assert.Equal(t, "1/1", field(t, root, "a", "_1", "ratio"))
}

func TestRatioValueRounding(t *testing.T) {
	dec := newFakeDecoder()
	assets := []source.Asset{dec.add("wide.png", 1920, 1080)}

	opts := testOptions(dec, &countingEncoder{})
	opts.RatioValueTrim = 2
	res, err := Run(context.Background(), assets, opts)
	require.NoError(t, err)
	assert.Equal(t, json.Number("1.78"), field(t, parseDoc(t, res), "wide", "ratioValue"))

	opts.RatioValueTrim = -1
	res, err = Run(context.Background(), assets, opts)
	require.NoError(t, err)
	assert.Equal(t, json.Number("1.7777777777777777"), field(t, parseDoc(t, res), "wide", "ratioValue"))

	opts.RatioValueTrim = 400
	res, err = Run(context.Background(), assets, opts)
	require.NoError(t, err)
	assert.Equal(t, json.Number("1.7777777777777777"), field(t, parseDoc(t, res), "wide", "ratioValue"))
}

func TestVideoGetsBasicFieldsOnly(t *testing.T) {
	dec := newFakeDecoder()
	enc := &countingEncoder{}
	assets := []source.Asset{source.NewAsset(filepath.Join("video", "clip.mp4"))}

	res, err := Run(context.Background(), assets, testOptions(dec, enc))
	require.NoError(t, err)

	rec, ok := field(t, parseDoc(t, res), "video", "clip").(*tree.Node)
	require.True(t, ok)
	assert.Equal(t, []string{"src", "ext", "mime", "type"}, rec.Keys())
	v, _ := rec.Get("type")
	assert.Equal(t, "video", v)
	v, _ = rec.Get("ext")
	assert.Equal(t, "mp4", v)
	v, _ = rec.Get("mime")
	assert.Equal(t, "video/mp4", v)

	assert.Equal(t, 0, dec.calls)
	assert.Equal(t, int32(0), enc.calls.Load())
}

func TestCorruptImageIsIsolated(t *testing.T) {
	for _, workers := range []int{1, 4} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			dec := newFakeDecoder()
			assets := []source.Asset{
				dec.add(filepath.Join("img", "a.png"), 10, 10),
				dec.add(filepath.Join("img", "b.png"), 20, 10),
				source.NewAsset(filepath.Join("img", "broken.png")),
				dec.add(filepath.Join("img", "c.png"), 30, 10),
				dec.add(filepath.Join("img", "d.png"), 40, 10),
			}

			rep := &recorder{}
			opts := testOptions(dec, &countingEncoder{})
			opts.Workers = workers
			opts.Reporter = rep
			res, err := Run(context.Background(), assets, opts)
			require.NoError(t, err)

			img, ok := field(t, parseDoc(t, res), "img").(*tree.Node)
			require.True(t, ok)
			assert.Equal(t, []string{"a", "b", "c", "d"}, img.Keys())

			require.Len(t, res.Warnings, 1)
			assert.Empty(t, res.Errors)
			var decodeErr *DecodeError
			require.ErrorAs(t, res.Warnings[0], &decodeErr)
			assert.ErrorIs(t, res.Warnings[0], errCorrupt)
			assert.Equal(t, filepath.Join("img", "broken.png"), decodeErr.Path)
			assert.Len(t, rep.warnings, 1)
			assert.Equal(t, 1, res.State.DecodeFailures)
		})
	}
}

func TestCorruptImageKeepsSeededObjects(t *testing.T) {
	for _, workers := range []int{1, 4} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			start, err := tree.Parse([]byte(`{"img": {}, "keep": 1}`))
			require.NoError(t, err)

			dec := newFakeDecoder()
			assets := []source.Asset{
				source.NewAsset(filepath.Join("img", "bad.png")),
				source.NewAsset(filepath.Join("other", "nested", "bad.png")),
				dec.add("ok.png", 2, 1),
			}

			opts := testOptions(dec, &countingEncoder{})
			opts.StartObj = start
			opts.Workers = workers
			res, err := Run(context.Background(), assets, opts)
			require.NoError(t, err)
			require.Len(t, res.Warnings, 2)

			root := parseDoc(t, res)
			assert.Equal(t, []string{"img", "keep", "ok"}, root.Keys())
			img, ok := field(t, root, "img").(*tree.Node)
			require.True(t, ok)
			assert.Equal(t, 0, img.Len(), "seeded object stays, empty")
			_, ok = tree.GetPath(root, []string{"other"})
			assert.False(t, ok, "objects created for the failed asset are removed")
		})
	}
}

func TestDegenerateImageIsRemoved(t *testing.T) {
	dec := newFakeDecoder()
	assets := []source.Asset{
		dec.add("ok.png", 4, 3),
		dec.add("flat.png", 10, 0),
	}

	res, err := Run(context.Background(), assets, testOptions(dec, &countingEncoder{}))
	require.NoError(t, err)

	root := parseDoc(t, res)
	assert.Equal(t, []string{"ok"}, root.Keys())
	require.Len(t, res.Warnings, 1)
	assert.ErrorIs(t, res.Warnings[0], media.ErrDegenerateDimensions)
}

func TestEmptyRun(t *testing.T) {
	opts := testOptions(newFakeDecoder(), &countingEncoder{})

	res, err := Run(context.Background(), nil, opts)
	require.NoError(t, err)
	assert.True(t, res.Empty())

	dir := source.NewAsset("images")
	dir.Null = true
	res, err = Run(context.Background(), []source.Asset{dir}, opts)
	require.NoError(t, err)
	assert.True(t, res.Empty())
	assert.Equal(t, 1, res.State.Skipped)
	assert.Equal(t, 0, res.State.Observed)
}

type streamOnly struct{}

func (streamOnly) Read([]byte) (int, error) { return 0, nil }

func TestStreamInputIsRejected(t *testing.T) {
	dec := newFakeDecoder()
	rep := &recorder{}
	opts := testOptions(dec, &countingEncoder{})
	opts.Reporter = rep

	assets := []source.Asset{
		source.NewReaderAsset("live.png", streamOnly{}),
		dec.add("still.png", 2, 1),
	}
	res, err := Run(context.Background(), assets, opts)
	require.NoError(t, err)

	require.Len(t, res.Errors, 1)
	var unsupported *UnsupportedInputError
	assert.ErrorAs(t, res.Errors[0], &unsupported)
	assert.Len(t, rep.errors, 1)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, []string{"still"}, parseDoc(t, res).Keys())

	// A run of nothing but streams observes nothing.
	res, err = Run(context.Background(), assets[:1], opts)
	require.NoError(t, err)
	assert.True(t, res.Empty())
	assert.Len(t, res.Errors, 1)
}

func TestDeterministicOutput(t *testing.T) {
	dec := newFakeDecoder()
	var assets []source.Asset
	for i := 0; i < 40; i++ {
		dir := fmt.Sprintf("set%d", i%3)
		assets = append(assets, dec.add(filepath.Join("media", dir, fmt.Sprintf("img-%02d.png", i)), 100+i*7, 50+i%5))
	}
	assets = append(assets, source.NewAsset(filepath.Join("media", "set1", "missing.png")))
	assets = append(assets, source.NewAsset(filepath.Join("media", "audio", "theme.mp3")))

	var outputs [][]byte
	for _, workers := range []int{1, 1, 3, 8} {
		opts := testOptions(dec, media.NewPNGPlaceholder())
		opts.BasePath = "media"
		opts.Workers = workers
		opts.Document = document.Options{Indent: "\t"}
		opts.PlaceholderNamespace = "emptyImages"

		res, err := Run(context.Background(), assets, opts)
		require.NoError(t, err)
		outputs = append(outputs, res.Document)
	}
	for i := 1; i < len(outputs); i++ {
		assert.Equal(t, string(outputs[0]), string(outputs[i]), "run %d differs", i)
	}
}

func TestNamespaceCollisionLastWriteWins(t *testing.T) {
	dec := newFakeDecoder()
	assets := []source.Asset{
		dec.add(filepath.Join("a", "b.jpg"), 100, 100),
		dec.add("a.b.png", 200, 100),
	}

	res, err := Run(context.Background(), assets, testOptions(dec, &countingEncoder{}))
	require.NoError(t, err)

	root := parseDoc(t, res)
	rec, ok := field(t, root, "a", "b").(*tree.Node)
	require.True(t, ok)
	assert.Equal(t, []string{"src", "ext", "mime", "type", "w", "h", "ratio", "ratioValue", "empty"}, rec.Keys())
	assert.Equal(t, "a.b.png", field(t, root, "a", "b", "src"))
	assert.Equal(t, "png", field(t, root, "a", "b", "ext"))
	assert.Equal(t, json.Number("200"), field(t, root, "a", "b", "w"))
	assert.Equal(t, "2/1", field(t, root, "a", "b", "ratio"))
}

func TestPlaceholderNamespace(t *testing.T) {
	dec := newFakeDecoder()
	enc := &countingEncoder{}
	assets := []source.Asset{
		dec.add("wide.png", 1920, 1080),
		dec.add("square.png", 50, 50),
		dec.add("small.png", 16, 9),
	}

	opts := testOptions(dec, enc)
	opts.PlaceholderNamespace = "assets.emptyImages"
	res, err := Run(context.Background(), assets, opts)
	require.NoError(t, err)

	root := parseDoc(t, res)
	assert.Equal(t, "16/9", field(t, root, "wide", "empty"))
	assert.Equal(t, "1/1", field(t, root, "square", "empty"))

	table, ok := field(t, root, "assets", "emptyImages").(*tree.Node)
	require.True(t, ok)
	assert.Equal(t, []string{"16/9", "1/1"}, table.Keys())
	v, _ := table.Get("16/9")
	assert.Equal(t, "data:image/png;base64,16x9", v)
	assert.Equal(t, int32(2), enc.calls.Load())
}

func TestEncodeFailureOmitsEmpty(t *testing.T) {
	dec := newFakeDecoder()
	enc := &countingEncoder{fail: true}
	assets := []source.Asset{
		dec.add("a.png", 4, 3),
		dec.add("b.png", 8, 6),
	}

	res, err := Run(context.Background(), assets, testOptions(dec, enc))
	require.NoError(t, err)

	root := parseDoc(t, res)
	_, ok := tree.GetPath(root, []string{"a", "empty"})
	assert.False(t, ok)
	assert.Equal(t, "4/3", field(t, root, "a", "ratio"))

	require.Len(t, res.Warnings, 2)
	var encodeErr *EncodeError
	require.ErrorAs(t, res.Warnings[0], &encodeErr)
	assert.Equal(t, "4/3", encodeErr.Ratio)
	assert.Equal(t, int32(1), enc.calls.Load(), "failed generation is not retried")
	assert.Empty(t, res.Errors)
}

func TestStartAndEndObjects(t *testing.T) {
	start, err := tree.Parse([]byte(`{"title": "gallery", "images": {"legacy": true}}`))
	require.NoError(t, err)
	end, err := tree.Parse([]byte(`{"version": 2, "title": "final"}`))
	require.NoError(t, err)

	dec := newFakeDecoder()
	assets := []source.Asset{dec.add(filepath.Join("images", "x.png"), 1, 1)}

	opts := testOptions(dec, &countingEncoder{})
	opts.StartObj = start
	opts.EndObj = end
	opts.Placeholder = false

	for i := 0; i < 2; i++ {
		res, err := Run(context.Background(), assets, opts)
		require.NoError(t, err)

		root := parseDoc(t, res)
		assert.Equal(t, []string{"title", "images", "version"}, root.Keys())
		assert.Equal(t, "final", field(t, root, "title"))
		images := field(t, root, "images").(*tree.Node)
		assert.Equal(t, []string{"legacy", "x"}, images.Keys())
	}

	_, ok := tree.GetPath(start, []string{"images", "x"})
	assert.False(t, ok, "start object must not be modified")
}

func TestFieldSelection(t *testing.T) {
	dec := newFakeDecoder()
	assets := []source.Asset{dec.add("photo.jpg", 30, 20)}

	opts := testOptions(dec, &countingEncoder{})
	opts.Fields = Fields{W: true, H: true}
	opts.Placeholder = false

	res, err := Run(context.Background(), assets, opts)
	require.NoError(t, err)

	rec := field(t, parseDoc(t, res), "photo").(*tree.Node)
	assert.Equal(t, []string{"w", "h"}, rec.Keys())
}

func TestImageInfoDisabled(t *testing.T) {
	dec := newFakeDecoder()
	assets := []source.Asset{dec.add("photo.jpg", 30, 20)}

	opts := testOptions(dec, &countingEncoder{})
	opts.ImageInfo = false

	res, err := Run(context.Background(), assets, opts)
	require.NoError(t, err)

	rec := field(t, parseDoc(t, res), "photo").(*tree.Node)
	assert.Equal(t, []string{"src", "ext", "mime", "type"}, rec.Keys())
	assert.Equal(t, 0, dec.calls)
}

func TestEmptyNamespaceWarns(t *testing.T) {
	dec := newFakeDecoder()
	assets := []source.Asset{
		dec.add("###.png", 1, 1),
		dec.add("ok.png", 1, 1),
	}

	res, err := Run(context.Background(), assets, testOptions(dec, &countingEncoder{}))
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.ErrorIs(t, res.Warnings[0], ErrEmptyNamespace)
	assert.Equal(t, []string{"ok"}, parseDoc(t, res).Keys())
}

func TestExportWrapper(t *testing.T) {
	dec := newFakeDecoder()
	opts := testOptions(dec, &countingEncoder{})
	opts.Document.Export = document.DefaultExportName

	res, err := Run(context.Background(), []source.Asset{source.NewAsset("song.mp3")}, opts)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(res.Document), "module.exports = {"))
	assert.True(t, strings.HasSuffix(string(res.Document), "};"))
}

func TestCanceledRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dec := newFakeDecoder()
	assets := []source.Asset{dec.add("a.png", 1, 1)}
	for _, workers := range []int{1, 2} {
		opts := testOptions(dec, &countingEncoder{})
		opts.Workers = workers
		_, err := Run(ctx, assets, opts)
		assert.True(t, IsCanceled(err), "workers=%d: got %v", workers, err)
	}
}

type gate struct {
	waits atomic.Int32
	err   error
}

func (g *gate) Wait(context.Context) error {
	g.waits.Add(1)
	return g.err
}

func TestBackpressure(t *testing.T) {
	dec := newFakeDecoder()
	assets := []source.Asset{
		dec.add("a.png", 4, 3),
		dec.add("b.png", 16, 9),
		source.NewAsset("c.mp4"),
	}

	for _, workers := range []int{1, 3} {
		g := &gate{}
		opts := testOptions(dec, &countingEncoder{})
		opts.Workers = workers
		opts.Backpressure = g

		_, err := Run(context.Background(), assets, opts)
		require.NoError(t, err)
		assert.Equal(t, int32(2), g.waits.Load(), "workers=%d: one wait per decode", workers)

		g = &gate{err: context.DeadlineExceeded}
		opts.Backpressure = g
		_, err = Run(context.Background(), assets, opts)
		assert.True(t, IsCanceled(err), "workers=%d: got %v", workers, err)
	}
}

func TestRunIDPerRun(t *testing.T) {
	dec := newFakeDecoder()
	assets := []source.Asset{dec.add("a.png", 1, 1)}
	opts := testOptions(dec, &countingEncoder{})

	first, err := Run(context.Background(), assets, opts)
	require.NoError(t, err)
	second, err := Run(context.Background(), assets, opts)
	require.NoError(t, err)

	_, err = uuid.Parse(first.RunID)
	require.NoError(t, err)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestFieldsFromMap(t *testing.T) {
	f, err := FieldsFromMap(map[string]bool{"src": false, "ratiovalue": false})
	require.NoError(t, err)
	assert.False(t, f.Src)
	assert.False(t, f.RatioValue)
	assert.True(t, f.W)

	_, err = FieldsFromMap(map[string]bool{"depth": true})
	assert.Error(t, err)
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, w, h))))
}

func TestRunWithRealFiles(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "images", "hero.png"), 192, 108)
	writePNG(t, filepath.Join(root, "images", "gallery", "2019 summer.png"), 64, 36)
	require.NoError(t, os.WriteFile(filepath.Join(root, "images", "broken.png"), []byte("nope"), 0o644))

	assets, err := source.Glob([]string{filepath.Join(root, "images", "**", "*.png")}, source.GlobOptions{})
	require.NoError(t, err)
	require.Len(t, assets, 3)

	opts := DefaultOptions()
	opts.BasePath = filepath.Join(root, "images")
	res, err := Run(context.Background(), assets, opts)
	require.NoError(t, err)

	doc := parseDoc(t, res)
	assert.Equal(t, []string{"gallery", "hero"}, doc.Keys())
	assert.Equal(t, "gallery/2019 summer.png", field(t, doc, "gallery", "_2019Summer", "src"))

	heroEmpty, ok := field(t, doc, "hero", "empty").(string)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(heroEmpty, media.PNGDataURIPrefix))
	assert.Equal(t, heroEmpty, field(t, doc, "gallery", "_2019Summer", "empty"))
	assert.Len(t, res.Warnings, 1)
}
