// Package source fetches a site's content from S3 and lays it out on disk
// for bundling.
//
// The digest of the current release is read from an SSM parameter. The
// archive {prefix}/{sha256}.tar.gz is then downloaded from S3, checked
// against that digest, optionally checked against a detached KMS signature
// ({sha256}.tar.gz.sig), and extracted under a directory named for the
// digest.
//
// Extraction is strict: archive, per-file and total sizes are capped,
// entries may only be regular files or directories, and every path must
// stay inside the destination.
package source
