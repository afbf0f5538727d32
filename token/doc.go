// Package token encodes session claims into a compact HMAC-SHA256 token and decodes
// and verifies it.
//
// The wire form is three unpadded base64url segments joined by dots:
// header, claims, and MAC. The header is always {"alg":"HS256","typ":"JWT"}; the
// verifier never selects an algorithm from the token, so a header naming any other
// algorithm fails with [ErrInvalidSignature].
//
// # Architecture boundaries
//
// The codec is pure: it reads secrets from a [KeySource] and time from a clock.Clock
// and performs no I/O. Revocation and cookie handling belong to the caller.
//
// # What this package must NOT do
//
//   - Trust the alg or kid header of an incoming token.
//   - Return errors other than the package sentinels (wrapped) from Decode.
package token
