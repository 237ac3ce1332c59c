// Package tree implements the aggregation tree: a nested JSON object whose
// keys keep their insertion order, addressed by namespace paths.
package tree
