// Package password hashes and verifies the demo account credentials used by
// `authcore serve` and `authcore hash-password`.
//
// Hashes use the PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<key>
//
// [Hasher.NeedsRehash] reports hashes produced with weaker parameters so callers
// can re-hash after the next successful login.
//
// This package never stores or logs plaintext. Session tokens are not its concern.
package password
