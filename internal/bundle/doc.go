// Package bundle maps a directory tree onto the in-memory form of a web
// bundle: a versioned set of HTTP exchanges (request/response pairs) plus
// the bundle's primary and manifest URLs.
//
// The core components are:
//   - [Builder]: accumulates bundle metadata and exchanges, then finalizes an immutable [Bundle]
//   - [Collector]: walks a base directory and turns every regular file into an [Exchange]
//     addressed at the base URL joined with the file's relative path
//   - [NewInventory]: a per-exchange listing (url, type, length, digest) of a finished bundle
//
// Traversal is sequential and every file is read fully into memory, so peak
// memory grows with the total size of the tree being collected. Symbolic
// links are never followed below the base directory: they are logged and
// skipped. Any read or walk failure aborts the whole traversal.
//
// Nothing in this package encodes a bundle to its binary wire format.
package bundle
