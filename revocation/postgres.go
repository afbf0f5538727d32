package revocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bookwell/authcore/clock"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"
)

// pgExecutor is the subset of *pgxpool.Pool the store uses.
type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PostgresStore keeps entries in the session_revocations table created by
// RunMigrations.
type PostgresStore struct {
	pool  pgExecutor
	clock clock.Clock
}

// NewPostgresStore returns a store over pool. A nil clock means the system clock.
func NewPostgresStore(pool pgExecutor, clk clock.Clock) *PostgresStore {
	if clk == nil {
		clk = clock.System{}
	}
	return &PostgresStore{pool: pool, clock: clk}
}

// Revoke inserts the entry; a conflicting session id is left untouched.
func (s *PostgresStore) Revoke(ctx context.Context, entry Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO session_revocations (session_id, subject, revoked_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_id) DO NOTHING
	`, entry.SessionID, entry.Subject, entry.RevokedAt, entry.ExpiresAt)
	if err != nil {
		return pgFailure("REVOCATION_INSERT_FAILED", err).
			With("session_id", entry.SessionID).
			Wrap(classifyPgError(err))
	}
	return nil
}

// Lookup returns the live entry for sessionID.
func (s *PostgresStore) Lookup(ctx context.Context, sessionID string) (Entry, bool, error) {
	now := s.clock.Now().Unix()

	entry := Entry{SessionID: sessionID}
	err := s.pool.QueryRow(ctx, `
		SELECT subject, revoked_at, expires_at
		FROM session_revocations
		WHERE session_id = $1 AND expires_at >= $2
	`, sessionID, now).Scan(&entry.Subject, &entry.RevokedAt, &entry.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, pgFailure("REVOCATION_LOOKUP_FAILED", err).
			With("session_id", sessionID).
			Wrap(classifyPgError(err))
	}
	return entry, true, nil
}

// Prune deletes entries whose retention deadline is before now.
func (s *PostgresStore) Prune(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM session_revocations WHERE expires_at < $1`, now.Unix())
	if err != nil {
		return 0, pgFailure("REVOCATION_PRUNE_FAILED", err).
			With("operation", "delete expired revocations").
			Wrap(classifyPgError(err))
	}
	return tag.RowsAffected(), nil
}

// Ping checks connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return oops.Code("REVOCATION_PING_FAILED").Wrap(fmt.Errorf("%w: %v", ErrStoreUnavailable, err))
	}
	return nil
}

// pgFailure picks the oops code for a failed statement. A missing table means the
// schema was never migrated, which operators fix differently from an outage.
func pgFailure(code string, err error) oops.OopsErrorBuilder {
	if pgCode(err) == pgerrcode.UndefinedTable {
		return oops.Code("REVOCATION_SCHEMA_MISSING").Hint("run `authcore migrate`")
	}
	return oops.Code(code)
}

// classifyPgError maps a driver error onto the store sentinels. Rejected data is
// ErrInvalidEntry; everything else, a missing schema included, fails closed as
// ErrStoreUnavailable.
func classifyPgError(err error) error {
	code := pgCode(err)
	switch {
	case code == pgerrcode.UndefinedTable:
		return fmt.Errorf("%w: %w: %v", ErrStoreUnavailable, ErrSchemaMissing, err)
	case pgerrcode.IsDataException(code), pgerrcode.IsIntegrityConstraintViolation(code):
		return fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
