package revocation

import (
	"context"
	"errors"
	"math"
	"time"
)

var (
	// ErrStoreUnavailable is returned when the backing store cannot be reached or fails.
	ErrStoreUnavailable = errors.New("revocation store unavailable")
	// ErrInvalidEntry is returned for entries missing a session id or retention deadline.
	ErrInvalidEntry = errors.New("invalid revocation entry")
	// ErrSchemaMissing marks a Postgres store whose table was never migrated. It is
	// always reported together with ErrStoreUnavailable.
	ErrSchemaMissing = errors.New("revocation schema missing")
)

// MaxFieldLength bounds SessionID and Subject. Issued tokens travel in a cookie, so
// real values are far shorter.
const MaxFieldLength = math.MaxUint16

// Entry records one revoked session. Timestamps are Unix seconds. ExpiresAt is the
// retention deadline: the token's expiry plus the verifier's clock skew.
type Entry struct {
	SessionID string
	Subject   string
	RevokedAt int64
	ExpiresAt int64
}

// Validate checks the fields every backend requires.
func (e Entry) Validate() error {
	if e.SessionID == "" {
		return errors.Join(ErrInvalidEntry, errors.New("empty session id"))
	}
	if len(e.SessionID) > MaxFieldLength || len(e.Subject) > MaxFieldLength {
		return errors.Join(ErrInvalidEntry, errors.New("field too long"))
	}
	if e.ExpiresAt < e.RevokedAt {
		return errors.Join(ErrInvalidEntry, errors.New("retention ends before revocation"))
	}
	return nil
}

// retention returns how long the entry must be kept, measured from the moment of
// revocation. Tokens verify until the end of second ExpiresAt, and RevokedAt is
// truncated to whole seconds, so the window runs one second past the difference.
func (e Entry) retention() time.Duration {
	d := time.Duration(e.ExpiresAt-e.RevokedAt+1) * time.Second
	if d < time.Second {
		return time.Second
	}
	return d
}

// Store persists revocation entries. Implementations must be safe for concurrent use.
//
// Revoke is idempotent: revoking a session id that is already present succeeds and
// keeps the first entry. Lookup reports whether a live entry exists.
type Store interface {
	Revoke(ctx context.Context, entry Entry) error
	Lookup(ctx context.Context, sessionID string) (Entry, bool, error)
}

// Pruner is implemented by stores that need explicit removal of stale entries.
type Pruner interface {
	Prune(ctx context.Context, now time.Time) (int64, error)
}

// Pinger is implemented by stores backed by a network service.
type Pinger interface {
	Ping(ctx context.Context) error
}
