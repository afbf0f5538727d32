package authcore

import (
	"errors"

	"github.com/bookwell/authcore/revocation"
	"github.com/bookwell/authcore/token"
)

var (
	// ErrMalformedToken is returned for tokens that cannot be parsed.
	ErrMalformedToken = token.ErrMalformed
	// ErrInvalidSignature is returned when no accepted secret verifies the token.
	ErrInvalidSignature = token.ErrInvalidSignature
	// ErrExpired is returned for tokens past their expiry plus clock skew.
	ErrExpired = token.ErrExpired
	// ErrInvalidClaims is returned by Issue for claims that violate the token invariants.
	ErrInvalidClaims = token.ErrInvalidClaims
	// ErrStoreUnavailable is returned when the revocation store cannot answer.
	ErrStoreUnavailable = revocation.ErrStoreUnavailable

	// ErrRevoked is returned for tokens whose session id has been revoked.
	ErrRevoked = errors.New("session revoked")
	// ErrUnauthenticated is the umbrella error for every request-guard rejection.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrRevocationDisabled is returned by Revoke when no store is configured.
	ErrRevocationDisabled = errors.New("revocation disabled")
	// ErrNoSession is returned when a request carries no session cookie.
	ErrNoSession = errors.New("no session cookie")
	// ErrEngineNotReady is returned by methods called on an unbuilt Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// UnauthenticatedError wraps the reason a request was rejected. It matches both
// ErrUnauthenticated and its Cause under errors.Is.
type UnauthenticatedError struct {
	Cause error
}

// Error implements error.
func (e *UnauthenticatedError) Error() string {
	if e == nil || e.Cause == nil {
		return ErrUnauthenticated.Error()
	}
	return ErrUnauthenticated.Error() + ": " + e.Cause.Error()
}

// Unwrap returns the underlying rejection.
func (e *UnauthenticatedError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches ErrUnauthenticated.
func (e *UnauthenticatedError) Is(target error) bool {
	return target == ErrUnauthenticated
}

// IsTokenRejection reports whether err means the token itself is no longer usable,
// as opposed to an infrastructure failure.
func IsTokenRejection(err error) bool {
	return errors.Is(err, ErrMalformedToken) ||
		errors.Is(err, ErrInvalidSignature) ||
		errors.Is(err, ErrExpired) ||
		errors.Is(err, ErrRevoked)
}
