package authcore

import (
	"context"
	"errors"

	"github.com/oklog/ulid/v2"
)

const (
	auditEventSessionIssued    = "session_issued"
	auditEventSessionRefreshed = "session_refreshed"
	auditEventSessionRevoked   = "session_revoked"
	auditEventSessionRejected  = "session_rejected"
	auditEventSecretRotated    = "secret_rotated"
	auditEventSecretDropped    = "secret_dropped"
)

// AuditErrorCode is the stable error string recorded on audit events.
type AuditErrorCode string

const (
	auditErrMalformed          AuditErrorCode = "malformed_token"
	auditErrInvalidSignature   AuditErrorCode = "invalid_signature"
	auditErrExpired            AuditErrorCode = "expired"
	auditErrRevoked            AuditErrorCode = "revoked"
	auditErrInvalidClaims      AuditErrorCode = "invalid_claims"
	auditErrUnavailable        AuditErrorCode = "store_unavailable"
	auditErrRevocationDisabled AuditErrorCode = "revocation_disabled"
	auditErrInternal           AuditErrorCode = "internal_error"
)

// recordAudit stamps ev with an id, the engine clock and the request's client
// metadata, then queues it. A non-nil err marks the event failed.
func (e *Engine) recordAudit(ctx context.Context, ev AuditEvent, err error) {
	if e == nil || e.audit == nil {
		return
	}

	ev.ID = ulid.Make().String()
	ev.Timestamp = e.clock.Now().UTC()
	ev.IP = stringFromContext(ctx, clientIPKey)
	ev.UserAgent = stringFromContext(ctx, userAgentKey)
	ev.Success = err == nil
	ev.Error = string(auditErrorCode(err))
	e.audit.Emit(ctx, ev)
}

var auditErrorCodes = []struct {
	err  error
	code AuditErrorCode
}{
	{ErrMalformedToken, auditErrMalformed},
	{ErrInvalidSignature, auditErrInvalidSignature},
	{ErrExpired, auditErrExpired},
	{ErrRevoked, auditErrRevoked},
	{ErrInvalidClaims, auditErrInvalidClaims},
	{ErrStoreUnavailable, auditErrUnavailable},
	{ErrRevocationDisabled, auditErrRevocationDisabled},
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}
	for _, m := range auditErrorCodes {
		if errors.Is(err, m.err) {
			return m.code
		}
	}
	return auditErrInternal
}
