// Package media reads image dimensions and derives aspect ratios.
//
// Dimensions come from a Decoder:
//   - NativeDecoder: Go image decoders (JPEG, PNG, GIF, WebP, BMP, TIFF)
//   - VipsDecoder: libvips, for everything libvips was built with
//   - CachingDecoder: an LRU in front of either, used by watch mode and
//     optionally backed by a DimensionStore such as the SQLite cache file
//
// Extract turns dimensions into Metadata: the ratio reduced by the GCD and
// the width/height quotient. PNGPlaceholder synthesizes transparent images
// of a reduced ratio's size and encodes them as data URIs.
package media
