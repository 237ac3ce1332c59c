// Package engine aggregates media assets into the metadata document.
//
// Each asset is classified, given a namespace key derived from its path,
// measured if it is an image, and written into the aggregation tree:
//
//	{"gallery": {"hero": {"src": "gallery/hero.jpg", "ext": "jpg",
//	  "mime": "image/jpeg", "type": "image", "w": 1920, "h": 1080,
//	  "ratio": "16/9", "ratioValue": 1.7777777777777777,
//	  "empty": "data:image/png;base64,..."}}}
//
// Per-asset problems never stop a run. Undecodable images and failed
// placeholders are warnings; stream inputs are errors. Both are returned in
// the Result and sent to an optional Reporter.
package engine
