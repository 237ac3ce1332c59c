// Package ratiocache holds the placeholder images of one run, keyed by
// reduced aspect ratio ("16/9"). Every image of a given ratio shares a single
// generated payload.
package ratiocache
