package authcore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bookwell/authcore/internal"
	"github.com/bookwell/authcore/revocation"
	"github.com/bookwell/authcore/token"
	"go.uber.org/zap"
)

// Issue mints a token for subject with a fresh session id. Role is optional.
func (e *Engine) Issue(ctx context.Context, subject, role string) (string, error) {
	if e == nil || e.codec == nil {
		return "", ErrEngineNotReady
	}

	tok, claims, err := e.mint(subject, role)
	if err != nil {
		e.recordAudit(ctx, AuditEvent{EventType: auditEventSessionIssued, Subject: subject}, err)
		return "", err
	}

	e.metricInc(MetricSessionIssued)
	e.recordAudit(ctx, AuditEvent{EventType: auditEventSessionIssued, Subject: subject, SessionID: claims.SessionID}, nil)
	return tok, nil
}

// Resolve verifies tok and, with revocation enabled, checks that its session has not
// been revoked. A store failure is returned as ErrStoreUnavailable, never as success.
func (e *Engine) Resolve(ctx context.Context, tok string) (Identity, error) {
	if e == nil || e.codec == nil {
		return Identity{}, ErrEngineNotReady
	}
	if e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { e.metrics.Observe(MetricResolveLatency, time.Since(start)) }()
	}

	claims, err := e.codec.Decode(tok)
	if err != nil {
		e.reject(ctx, claims, err)
		return Identity{}, err
	}

	if e.store != nil {
		_, revoked, err := e.store.Lookup(ctx, claims.SessionID)
		if err != nil {
			err = e.storeFailure("lookup", claims.SessionID, err)
			e.reject(ctx, claims, err)
			return Identity{}, err
		}
		if revoked {
			e.reject(ctx, claims, ErrRevoked)
			return Identity{}, ErrRevoked
		}
	}

	e.metricInc(MetricResolveSuccess)
	return identityFromClaims(claims), nil
}

// Refresh exchanges a live token for a new one with a new session id. With revocation
// enabled the old session is revoked; if that fails the new token is discarded and
// the error returned.
func (e *Engine) Refresh(ctx context.Context, tok string) (string, error) {
	if e == nil || e.codec == nil {
		return "", ErrEngineNotReady
	}

	id, err := e.Resolve(ctx, tok)
	if err != nil {
		return "", err
	}

	next, claims, err := e.mint(id.Subject, id.Role)
	if err != nil {
		return "", err
	}

	if e.store != nil {
		if err := e.revokeSession(ctx, id.Subject, id.SessionID, id.ExpiresAt.Unix()); err != nil {
			e.recordAudit(ctx, AuditEvent{EventType: auditEventSessionRefreshed, Subject: id.Subject, SessionID: id.SessionID}, err)
			return "", err
		}
	}

	e.metricInc(MetricSessionRefreshed)
	if e.audit != nil {
		e.recordAudit(ctx, AuditEvent{
			EventType: auditEventSessionRefreshed,
			Subject:   id.Subject,
			SessionID: claims.SessionID,
			Metadata:  map[string]string{"previous_session_id": id.SessionID},
		}, nil)
	}
	return next, nil
}

// Revoke invalidates the session carried by tok. The token must still verify and be
// unexpired. Revoking an already revoked session succeeds.
func (e *Engine) Revoke(ctx context.Context, tok string) error {
	if e == nil || e.codec == nil {
		return ErrEngineNotReady
	}
	if e.store == nil {
		return ErrRevocationDisabled
	}

	claims, err := e.codec.Decode(tok)
	if err != nil {
		e.recordAudit(ctx, AuditEvent{EventType: auditEventSessionRevoked, Subject: claims.Subject, SessionID: claims.SessionID}, err)
		return err
	}

	return e.revokeSession(ctx, claims.Subject, claims.SessionID, claims.ExpiresAt)
}

func (e *Engine) mint(subject, role string) (string, token.Claims, error) {
	sid, err := internal.NewSessionID()
	if err != nil {
		return "", token.Claims{}, fmt.Errorf("session id: %w", err)
	}

	now := e.clock.Now().Unix()
	claims := token.Claims{
		Subject:   subject,
		Role:      role,
		SessionID: sid,
		IssuedAt:  now,
		ExpiresAt: now + int64(e.config.Token.Lifetime/time.Second),
	}

	tok, err := e.codec.Encode(claims)
	if err != nil {
		return "", token.Claims{}, err
	}
	return tok, claims, nil
}

func (e *Engine) revokeSession(ctx context.Context, subject, sessionID string, exp int64) error {
	entry := revocation.Entry{
		SessionID: sessionID,
		Subject:   subject,
		RevokedAt: e.clock.Now().Unix(),
		ExpiresAt: exp + int64(e.config.Token.ClockSkew/time.Second),
	}
	if entry.ExpiresAt < entry.RevokedAt {
		entry.ExpiresAt = entry.RevokedAt
	}

	if err := e.store.Revoke(ctx, entry); err != nil {
		if errors.Is(err, revocation.ErrInvalidEntry) {
			err = fmt.Errorf("%w: %v", ErrInvalidClaims, err)
		} else {
			err = e.storeFailure("revoke", sessionID, err)
		}
		e.recordAudit(ctx, AuditEvent{EventType: auditEventSessionRevoked, Subject: subject, SessionID: sessionID}, err)
		return err
	}

	e.metricInc(MetricSessionRevoked)
	e.recordAudit(ctx, AuditEvent{EventType: auditEventSessionRevoked, Subject: subject, SessionID: sessionID}, nil)
	return nil
}

// storeFailure normalizes a store error so that errors.Is(err, ErrStoreUnavailable)
// holds, and records it.
func (e *Engine) storeFailure(op, sessionID string, err error) error {
	e.metricInc(MetricStoreUnavailable)
	e.logger.Warn("revocation store failure",
		zap.String("op", op),
		zap.String("session_id", sessionID),
		zap.Error(err),
	)
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

func (e *Engine) reject(ctx context.Context, claims token.Claims, err error) {
	switch {
	case errors.Is(err, ErrMalformedToken):
		e.metricInc(MetricResolveMalformed)
	case errors.Is(err, ErrInvalidSignature):
		e.metricInc(MetricResolveInvalidSignature)
	case errors.Is(err, ErrExpired):
		e.metricInc(MetricResolveExpired)
	case errors.Is(err, ErrRevoked):
		e.metricInc(MetricResolveRevoked)
	}

	e.logger.Debug("session rejected",
		zap.String("reason", string(auditErrorCode(err))),
		zap.String("session_id", claims.SessionID),
	)
	e.recordAudit(ctx, AuditEvent{EventType: auditEventSessionRejected, Subject: claims.Subject, SessionID: claims.SessionID}, err)
}
