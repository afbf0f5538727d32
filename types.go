package authcore

import (
	"time"

	"github.com/bookwell/authcore/token"
)

// Identity is the authenticated principal attached to a request.
type Identity struct {
	Subject   string
	Role      string
	SessionID string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func identityFromClaims(c token.Claims) Identity {
	return Identity{
		Subject:   c.Subject,
		Role:      c.Role,
		SessionID: c.SessionID,
		IssuedAt:  time.Unix(c.IssuedAt, 0).UTC(),
		ExpiresAt: time.Unix(c.ExpiresAt, 0).UTC(),
	}
}

// Status is the request guard decision.
type Status int

const (
	// StatusAnonymous means the request carried no session cookie.
	StatusAnonymous Status = iota
	// StatusAuthenticated means the cookie resolved to a live session.
	StatusAuthenticated
	// StatusUnauthenticated means a cookie was present but could not be resolved.
	StatusUnauthenticated
)

// String returns the lower-case status name.
func (s Status) String() string {
	switch s {
	case StatusAnonymous:
		return "anonymous"
	case StatusAuthenticated:
		return "authenticated"
	case StatusUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Outcome is the result of Engine.Authenticate. Identity is set only for
// StatusAuthenticated; Err only for StatusUnauthenticated.
type Outcome struct {
	Status   Status
	Identity Identity
	Err      error
}

// Authenticated reports whether the outcome carries an identity.
func (o Outcome) Authenticated() bool {
	return o.Status == StatusAuthenticated
}
