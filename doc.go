// Package authcore is the session core of the booking web app. It issues, transports,
// verifies and invalidates the signed session credential that identifies a logged-in
// user across stateless HTTP requests.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder], [Config], and value types
// (Identity, Outcome, MetricsSnapshot). Token encoding lives in token/, secrets in keyring/,
// the cookie in cookie/ and server-side revocation in revocation/.
//
// # What this package must NOT do
//
//   - Log or audit token strings or secrets.
//   - Treat a revocation store failure as "not revoked".
//   - Perform I/O outside of Engine methods (construction via Builder only connects the
//     stores it is handed).
//
// # Performance contract
//
// Resolve is the hot path. Without revocation it is a pure HMAC check plus JSON decode.
// With revocation enabled it costs exactly one store lookup.
package authcore
