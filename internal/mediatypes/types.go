package mediatypes

import (
	"mime"
	"path/filepath"
	"strings"
)

// AssetType is the coarse classification of an asset, written to the
// "type" field of its record.
type AssetType string

const (
	// AssetTypeImage is any image/* asset. Only images are decoded.
	AssetTypeImage AssetType = "image"
	// AssetTypeVideo is any video/* asset.
	AssetTypeVideo AssetType = "video"
	// AssetTypeAudio is any audio/* asset.
	AssetTypeAudio AssetType = "audio"
	// AssetTypeUnknown is everything else.
	AssetTypeUnknown AssetType = "unknown"
)

// DefaultMimeType is returned when no table knows the extension.
const DefaultMimeType = "application/octet-stream"

// MimeTypes maps lowercase file extensions to their MIME types.
var MimeTypes = map[string]string{
	// Images
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
	".heic": "image/heic",
	".heif": "image/heif",
	".avif": "image/avif",

	// Videos
	".mp4":  "video/mp4",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".wmv":  "video/x-ms-wmv",
	".flv":  "video/x-flv",
	".webm": "video/webm",
	".m4v":  "video/x-m4v",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
	".3gp":  "video/3gpp",
	".ogv":  "video/ogg",

	// Audio
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".flac": "audio/flac",
	".aac":  "audio/aac",
	".m4a":  "audio/mp4",
	".opus": "audio/opus",
	".weba": "audio/webm",
}

// LookupMimeType returns the MIME type for a file name, consulting the
// built-in table first and the platform registry second. Parameters such
// as "; charset=utf-8" are stripped. Unknown extensions yield
// DefaultMimeType.
func LookupMimeType(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	if ext == "" {
		return DefaultMimeType
	}
	if m, ok := MimeTypes[ext]; ok {
		return m
	}
	if m := mime.TypeByExtension(ext); m != "" {
		if i := strings.IndexByte(m, ';'); i >= 0 {
			m = strings.TrimSpace(m[:i])
		}
		return m
	}
	return DefaultMimeType
}

// Classify maps a MIME type to an AssetType by looking at its major type.
// It never fails: anything unrecognized is AssetTypeUnknown.
func Classify(mimeType string) AssetType {
	major := strings.ToLower(mimeType)
	if i := strings.IndexByte(major, '/'); i >= 0 {
		major = major[:i]
	}
	switch {
	case strings.Contains(major, "image"):
		return AssetTypeImage
	case strings.Contains(major, "video"):
		return AssetTypeVideo
	case strings.Contains(major, "audio"):
		return AssetTypeAudio
	default:
		return AssetTypeUnknown
	}
}
