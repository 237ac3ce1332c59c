// Package source turns glob patterns into the ordered list of assets the
// engine processes. Directories can be reported as null assets, which the
// engine skips; in-memory contents can be attached with NewReaderAsset.
package source
