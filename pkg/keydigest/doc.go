// Package keydigest computes and compares token content digests.
//
// Digest Format:
//
//   - SHA-256 over at most MaxKeyBytes of token content
//   - Lowercase hex encoding, 64 characters
//
// Security:
//
//   - Comparison is constant-time
//   - Content beyond MaxKeyBytes never contributes to the digest
package keydigest
