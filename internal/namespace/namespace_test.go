package namespace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	tests := []struct {
		name     string
		dir      string
		basePath string
		stem     string
		ext      string
		want     Key
	}{
		{name: "base path with trailing slash", dir: "images", basePath: "images/", stem: "hero", ext: ".jpg", want: "hero"},
		{name: "nested directory", dir: "images/gallery/summer", basePath: "images", stem: "beach", ext: ".png", want: "gallery.summer.beach"},
		{name: "windows separators", dir: `test\data\icons`, basePath: `test\data\`, stem: "logo", ext: ".svg", want: "icons.logo"},
		{name: "numeric stem", dir: "a", basePath: "", stem: "1", ext: ".png", want: "a._1"},
		{name: "dashes and underscores", dir: "photo-album", basePath: "", stem: "my_best-shot", ext: ".jpg", want: "photoAlbum.myBestShot"},
		{name: "dots in stem split", dir: "img", basePath: "img", stem: "hero.large", ext: ".jpg", want: "hero.large"},
		{name: "dir outside base keeps full path", dir: "other/dir", basePath: "images", stem: "x", ext: ".gif", want: "other.dir.x"},
		{name: "absolute dir with leading slash", dir: "/srv/assets/img", basePath: "/srv/assets", stem: "a", ext: ".png", want: "img.a"},
		{name: "current directory", dir: ".", basePath: "", stem: "icon", ext: ".png", want: "icon"},
		{name: "illegal characters removed", dir: "über fotos", basePath: "", stem: "bild (1)", ext: ".jpg", want: "berfotos.bild1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Build(tt.dir, tt.basePath, tt.stem, tt.ext, nil)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildPassesRawPathAndExtension(t *testing.T) {
	var gotPath, gotExt string
	escape := func(p, ext string) string {
		gotPath, gotExt = p, ext
		return "custom"
	}

	key := Build("media/photos", "media", "Sunset View", ".JPG", escape)

	assert.Equal(t, Key("custom"), key)
	assert.Equal(t, "photos.Sunset View", gotPath)
	assert.Equal(t, "JPG", gotExt)
}

func TestEscape(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "hero", want: "hero"},
		{in: "Hero", want: "hero"},
		{in: "hero-image", want: "heroImage"},
		{in: "hero_image", want: "heroImage"},
		{in: "HeroImage", want: "heroImage"},
		{in: "XMLHttpRequest", want: "xmlhttpRequest"},
		{in: "a-B-C", want: "aBc"},
		{in: "icon2x", want: "icon2X"},
		{in: "1", want: "_1"},
		{in: "2019.summer", want: "_2019.summer"},
		{in: "a..b", want: "a.b"},
		{in: "-", want: ""},
		{in: "", want: ""},
		{in: "...", want: ""},
		{in: "$$$.ok", want: "ok"},
		{in: "_1Abc", want: "_1Abc"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Escape(tt.in, ""))
		})
	}
}

func TestEscapeEmptySegmentDoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		Escape("a.$.b", "png")
		Escape(".", "")
		EscapeWithExtension("$", "png")
	})
}

var idempotencySeeds = []string{
	"hero", "Hero-Image", "1920x1080", "a.b.c", "2019.summer_vacation", "XMLHttp",
	"aBCd", "AB2", "x--y__z", "_1Abc", "__init__", "UPPER.lower.MiXeD", "ünïcödé.ok",
	"icon@2x", "a..b...", "9lives.10", "foo2bar", "-leading.-dash", "trailing_.",
	"a-B-C", "x-Y2z-W", "1a-B",
}

func TestEscapeIdempotent(t *testing.T) {
	for _, s := range idempotencySeeds {
		once := Escape(s, "")
		assert.Equal(t, once, Escape(once, ""), "Escape not idempotent for %q", s)
	}
}

func TestEscapeWithExtensionIdempotent(t *testing.T) {
	for _, s := range idempotencySeeds {
		once := EscapeWithExtension(s, "jpg")
		assert.Equal(t, once, EscapeWithExtension(once, "jpg"), "EscapeWithExtension not idempotent for %q", s)
	}
}

func FuzzEscapeIdempotent(f *testing.F) {
	for _, s := range idempotencySeeds {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, s string) {
		once := Escape(s, "")
		if twice := Escape(once, ""); twice != once {
			t.Fatalf("Escape(%q) = %q, Escape again = %q", s, once, twice)
		}
	})
}

func TestEscapeWithExtension(t *testing.T) {
	assert.Equal(t, "images.hero-jpg", EscapeWithExtension("images.hero", "jpg"))
	assert.Equal(t, "images.hero-png", EscapeWithExtension("images.hero", "PNG"))
	assert.Equal(t, "hero", EscapeWithExtension("hero", ""))
}

func TestLookup(t *testing.T) {
	fn, err := Lookup("")
	require.NoError(t, err)
	assert.Equal(t, "heroImage", fn("hero-image", "jpg"))

	fn, err = Lookup("none")
	require.NoError(t, err)
	assert.Equal(t, "hero-image", fn("hero-image", "jpg"))

	fn, err = Lookup("ext-suffix")
	require.NoError(t, err)
	assert.Equal(t, "heroImage-jpg", fn("hero-image", "jpg"))

	_, err = Lookup("kebab")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "camel")
}

func TestKeySegments(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, Key("a.b.c").Segments())
	assert.Equal(t, []string{"a", "b"}, Key(".a..b.").Segments())
	assert.Empty(t, Key("").Segments())
}

func TestSourcePath(t *testing.T) {
	assert.Equal(t, "hero.jpg", SourcePath("images", "images/", "hero.jpg"))
	assert.Equal(t, "gallery/beach.png", SourcePath(`images\gallery`, `images\`, "beach.png"))
	assert.Equal(t, "video/clip.mp4", SourcePath("video", "", "clip.mp4"))
}

func TestCamelCase(t *testing.T) {
	assert.Equal(t, "fooBarBaz", CamelCase("foo bar baz"))
	assert.Equal(t, "fooBar", CamelCase("--foo-bar--"))
	assert.Equal(t, "fooBar", CamelCase("__FOO_BAR__"))
	assert.Equal(t, "", CamelCase("___"))
	assert.Equal(t, "heroImage2X", CamelCase("hero-image_2x"))

	for _, seed := range idempotencySeeds {
		once := CamelCase(seed)
		assert.Equal(t, once, CamelCase(once), "CamelCase not a fixed point for %q", seed)
	}
}
