// Package mediatypes provides the asset classification and MIME lookup shared
// by the source, media and engine packages.
//
// This package exists as a dependency-free foundation that can be imported by
// other packages without creating import cycles.
//
// # MIME Types
//
// LookupMimeType resolves a MIME type from a file name:
//
//	mimeType := mediatypes.LookupMimeType("hero.jpg") // "image/jpeg"
//
// # Classification
//
// Classify maps a MIME type to one of the four asset types written to the
// "type" field of a record:
//
//	switch mediatypes.Classify(mimeType) {
//	case mediatypes.AssetTypeImage:
//	    // decode dimensions
//	case mediatypes.AssetTypeVideo, mediatypes.AssetTypeAudio:
//	    // recorded, never decoded
//	}
package mediatypes
