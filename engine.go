package authcore

import (
	"context"
	"time"

	"github.com/bookwell/authcore/clock"
	"github.com/bookwell/authcore/cookie"
	"github.com/bookwell/authcore/keyring"
	"github.com/bookwell/authcore/revocation"
	"github.com/bookwell/authcore/token"
	"go.uber.org/zap"
)

// Engine issues, resolves, refreshes and revokes session tokens.
//
// Engine instances are built by Builder and are safe for concurrent use.
type Engine struct {
	config  Config
	clock   clock.Clock
	keys    *keyring.Keyring
	codec   *token.Codec
	cookies *cookie.Transport
	store   revocation.Store
	logger  *zap.Logger
	audit   *auditDispatcher
	metrics *Metrics
}

// Close stops the audit dispatcher after draining queued events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events dropped under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// RevocationEnabled reports whether a revocation store is configured.
func (e *Engine) RevocationEnabled() bool {
	return e != nil && e.store != nil
}

// Lifetime returns the configured token lifetime.
func (e *Engine) Lifetime() time.Duration {
	if e == nil {
		return 0
	}
	return e.config.Token.Lifetime
}

// Codec exposes the token codec for inspection tooling.
func (e *Engine) Codec() *token.Codec {
	if e == nil {
		return nil
	}
	return e.codec
}

// Ping checks the revocation store when it is backed by a network service.
func (e *Engine) Ping(ctx context.Context) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if p, ok := e.store.(revocation.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Prune removes stale revocation entries from stores that keep them. It returns the
// number removed; stores that expire entries on their own report zero.
func (e *Engine) Prune(ctx context.Context) (int64, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}
	p, ok := e.store.(revocation.Pruner)
	if !ok {
		return 0, nil
	}
	removed, err := p.Prune(ctx, e.clock.Now())
	if err != nil {
		e.logger.Warn("revocation prune failed", zap.Error(err))
		return 0, err
	}
	if removed > 0 {
		e.logger.Debug("revocation entries pruned", zap.Int64("removed", removed))
	}
	return removed, nil
}

// RotateSecret makes next the signing secret and keeps the old one accepted for
// verification until DropPreviousSecret.
func (e *Engine) RotateSecret(ctx context.Context, next []byte) error {
	if e == nil || e.keys == nil {
		return ErrEngineNotReady
	}
	if err := e.keys.Rotate(next); err != nil {
		e.recordAudit(ctx, AuditEvent{EventType: auditEventSecretRotated}, err)
		return err
	}
	e.metricInc(MetricSecretRotated)
	e.logger.Info("signing secret rotated")
	e.recordAudit(ctx, AuditEvent{EventType: auditEventSecretRotated}, nil)
	return nil
}

// DropPreviousSecret stops accepting the previous secret. It reports whether there
// was one to drop.
func (e *Engine) DropPreviousSecret(ctx context.Context) bool {
	if e == nil || e.keys == nil {
		return false
	}
	dropped := e.keys.DropPrevious()
	if dropped {
		e.logger.Info("previous signing secret dropped")
		e.recordAudit(ctx, AuditEvent{EventType: auditEventSecretDropped}, nil)
	}
	return dropped
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}
