// Package output writes serialized documents to disk or standard output.
//
// Files are written to a temporary file in the destination directory and
// renamed into place, so readers never observe a partial document. A file
// whose content would not change is not rewritten, which keeps its
// modification time stable for build tools watching it.
//
// With gzip enabled the document is compressed at the best compression
// level and ".gz" is appended to the file name. Compressed output is refused
// when standard output is a terminal.
package output
