// Package revocation stores server-side revocation entries for session ids.
//
// An entry marks a session id invalid before its token expires. Entries only need to
// live until the token's expiry (plus clock skew) because verification rejects expired
// tokens anyway, so every backend prunes them after [Entry.ExpiresAt]:
//
//   - [RedisStore] sets a key TTL and lets Redis evict the entry.
//   - [MemoryStore] and [PostgresStore] skip stale rows on lookup and implement [Pruner].
//
// Entries in Redis use a compact versioned binary encoding (see [Encode]).
//
// # Architecture boundaries
//
// This package owns persistence only. It does NOT decode tokens or decide whether a
// request is authenticated; that belongs to the Engine.
//
// # What this package must NOT do
//
//   - Import authcore, token, or cookie (no upward imports).
//   - Swallow backend failures: every I/O error is reported as [ErrStoreUnavailable].
package revocation
