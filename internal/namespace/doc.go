// Package namespace derives the dotted key under which an asset's record is
// stored in the output document.
//
// A key is built from the asset's directory relative to the configured base
// path plus its stem, then passed through an EscapeFunc:
//
//	key := namespace.Build("images/gallery", "images", "beach-01", ".jpg", namespace.Escape)
//	// key == "gallery.beach01"
//
// The default Escape keeps every segment usable as a property name in
// JavaScript dot notation and is idempotent.
package namespace
