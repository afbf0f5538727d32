// Package middleware adapts authcore.Engine.Authenticate to net/http and gin
// request pipelines.
//
// # Guards
//
//   - [Guard] / [GinGuard]: only authenticated requests reach the handler.
//   - [Optional] / [GinOptional]: attach the identity when present, let everyone through.
//
// Authenticated requests carry the identity in the request context; read it with
// authcore.IdentityFromContext. A request whose cookie no longer resolves gets the
// cookie cleared before it is denied (Guard) or passed on as anonymous (Optional).
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT decode
// tokens or touch revocation stores; every decision comes from Engine.Authenticate.
package middleware
