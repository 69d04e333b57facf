// Package cryptoutil provides the integrity checks applied to remote
// content archives before they are expanded into bundle exchanges.
//
// It supports:
//   - streaming and in-memory SHA-256 digests, hex encoded
//   - constant-time comparison of hex digests
//   - detached archive signatures verified against an AWS KMS public key
//     (ECDSA P-256/P-384, RSA-PSS with optional PKCS1v15 fallback)
package cryptoutil
