package authcore

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bookwell/authcore/clock"
	"github.com/bookwell/authcore/internal"
	"github.com/bookwell/authcore/revocation"
)

func TestIssueResolveRoundTrip(t *testing.T) {
	clk := clock.NewManual(t0)
	engine := newTestEngine(t, testConfig(), clk)
	ctx := context.Background()

	tok, err := engine.Issue(ctx, "user-42", "member")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	id, err := engine.Resolve(ctx, tok)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if id.Subject != "user-42" || id.Role != "member" {
		t.Fatalf("unexpected identity %+v", id)
	}
	if !internal.ValidSessionID(id.SessionID) {
		t.Fatalf("expected uuid session id, got %q", id.SessionID)
	}
	if !id.IssuedAt.Equal(t0) || !id.ExpiresAt.Equal(t0.Add(time.Hour)) {
		t.Fatalf("unexpected timestamps iat=%v exp=%v", id.IssuedAt, id.ExpiresAt)
	}
}

func TestIssueYieldsUniqueSessionIDs(t *testing.T) {
	engine := newTestEngine(t, testConfig(), clock.NewManual(t0))
	ctx := context.Background()

	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		tok, err := engine.Issue(ctx, "user-42", "")
		if err != nil {
			t.Fatalf("issue failed: %v", err)
		}
		id, err := engine.Resolve(ctx, tok)
		if err != nil {
			t.Fatalf("resolve failed: %v", err)
		}
		if _, dup := seen[id.SessionID]; dup {
			t.Fatalf("duplicate session id %q", id.SessionID)
		}
		seen[id.SessionID] = struct{}{}
	}
}

func TestIssueRejectsEmptySubject(t *testing.T) {
	engine := newTestEngine(t, testConfig(), clock.NewManual(t0))

	if _, err := engine.Issue(context.Background(), "", "member"); !errors.Is(err, ErrInvalidClaims) {
		t.Fatalf("expected ErrInvalidClaims, got %v", err)
	}
}

func TestLongSubjectSessionLifecycle(t *testing.T) {
	engine := newRevocationEngine(t, clock.NewManual(t0))
	ctx := context.Background()
	subject := strings.Repeat("u", 300)

	tok, err := engine.Issue(ctx, subject, "member")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	next, err := engine.Refresh(ctx, tok)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if _, err := engine.Resolve(ctx, tok); !errors.Is(err, ErrRevoked) {
		t.Fatalf("expected refreshed-away token revoked, got %v", err)
	}
	if err := engine.Revoke(ctx, next); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if _, err := engine.Resolve(ctx, next); !errors.Is(err, ErrRevoked) {
		t.Fatalf("expected revoked, got %v", err)
	}

	if _, err := engine.Issue(ctx, strings.Repeat("u", 5000), "member"); !errors.Is(err, ErrInvalidClaims) {
		t.Fatalf("expected ErrInvalidClaims for an oversized subject, got %v", err)
	}
}

func TestRevokeRejectedEntryIsNotAnOutage(t *testing.T) {
	engine, err := New().
		WithConfig(testConfig()).
		WithClock(clock.NewManual(t0)).
		WithRevocationStore(failingStore{err: revocation.ErrInvalidEntry}).
		Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	defer engine.Close()
	ctx := context.Background()

	tok, _ := engine.Issue(ctx, "user-42", "member")
	err = engine.Revoke(ctx, tok)
	if !errors.Is(err, ErrInvalidClaims) || errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrInvalidClaims only, got %v", err)
	}
	if got := engine.MetricsSnapshot().Counters[MetricStoreUnavailable]; got != 0 {
		t.Fatalf("store outage counted %d times", got)
	}
}

func TestResolveExpiryBoundary(t *testing.T) {
	clk := clock.NewManual(t0)
	engine := newTestEngine(t, testConfig(), clk)
	ctx := context.Background()

	tok, err := engine.Issue(ctx, "user-42", "member")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	clk.Set(t0.Add(time.Hour))
	if _, err := engine.Resolve(ctx, tok); err != nil {
		t.Fatalf("expected token valid at exp, got %v", err)
	}

	clk.Set(t0.Add(time.Hour + time.Second))
	if _, err := engine.Resolve(ctx, tok); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired after exp, got %v", err)
	}
}

func TestResolveHonoursClockSkew(t *testing.T) {
	clk := clock.NewManual(t0)
	cfg := testConfig()
	cfg.Token.ClockSkew = 30 * time.Second
	engine := newTestEngine(t, cfg, clk)
	ctx := context.Background()

	tok, _ := engine.Issue(ctx, "user-42", "")

	clk.Set(t0.Add(time.Hour + 30*time.Second))
	if _, err := engine.Resolve(ctx, tok); err != nil {
		t.Fatalf("expected token valid within skew, got %v", err)
	}
	clk.Set(t0.Add(time.Hour + 31*time.Second))
	if _, err := engine.Resolve(ctx, tok); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired past skew, got %v", err)
	}
}

func TestResolveRejectsTamperedAndForeignTokens(t *testing.T) {
	engine := newTestEngine(t, testConfig(), clock.NewManual(t0))
	ctx := context.Background()

	tok, _ := engine.Issue(ctx, "user-42", "member")

	tampered := []byte(tok)
	tampered[len(tampered)-5] ^= 0x01
	if _, err := engine.Resolve(ctx, string(tampered)); !errors.Is(err, ErrInvalidSignature) && !errors.Is(err, ErrMalformedToken) {
		t.Fatalf("expected signature or malformed error, got %v", err)
	}

	foreignCfg := testConfig()
	foreignCfg.Token.CurrentSecret = testSecretNext
	foreign := newTestEngine(t, foreignCfg, clock.NewManual(t0))
	other, _ := foreign.Issue(ctx, "user-42", "member")
	if _, err := engine.Resolve(ctx, other); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}

	if _, err := engine.Resolve(ctx, "not-a-token"); !errors.Is(err, ErrMalformedToken) {
		t.Fatalf("expected ErrMalformedToken, got %v", err)
	}
}

func TestRotateSecretKeepsOldTokensValid(t *testing.T) {
	engine := newTestEngine(t, testConfig(), clock.NewManual(t0))
	ctx := context.Background()

	old, _ := engine.Issue(ctx, "user-42", "member")

	if err := engine.RotateSecret(ctx, testSecretNext); err != nil {
		t.Fatalf("rotate failed: %v", err)
	}
	if _, err := engine.Resolve(ctx, old); err != nil {
		t.Fatalf("expected old token accepted after rotation, got %v", err)
	}

	fresh, _ := engine.Issue(ctx, "user-42", "member")
	if _, err := engine.Resolve(ctx, fresh); err != nil {
		t.Fatalf("expected new token accepted, got %v", err)
	}

	if !engine.DropPreviousSecret(ctx) {
		t.Fatal("expected previous secret to be dropped")
	}
	if _, err := engine.Resolve(ctx, old); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected old token rejected after drop, got %v", err)
	}
	if _, err := engine.Resolve(ctx, fresh); err != nil {
		t.Fatalf("expected new token still accepted, got %v", err)
	}
	if engine.DropPreviousSecret(ctx) {
		t.Fatal("expected second drop to report false")
	}
	if got := engine.MetricsSnapshot().Counters[MetricSecretRotated]; got != 1 {
		t.Fatalf("expected 1 rotation counted, got %d", got)
	}
}

func TestRevokeThenResolveIsRevoked(t *testing.T) {
	engine := newRevocationEngine(t, clock.NewManual(t0))
	ctx := context.Background()

	tok, _ := engine.Issue(ctx, "user-42", "member")
	other, _ := engine.Issue(ctx, "user-42", "member")

	if err := engine.Revoke(ctx, tok); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if _, err := engine.Resolve(ctx, tok); !errors.Is(err, ErrRevoked) {
		t.Fatalf("expected ErrRevoked, got %v", err)
	}
	if _, err := engine.Resolve(ctx, other); err != nil {
		t.Fatalf("expected sibling session unaffected, got %v", err)
	}

	if err := engine.Revoke(ctx, tok); err != nil {
		t.Fatalf("expected second revoke to succeed, got %v", err)
	}
}

func TestRevokeWithoutStore(t *testing.T) {
	engine := newTestEngine(t, testConfig(), clock.NewManual(t0))
	ctx := context.Background()

	tok, _ := engine.Issue(ctx, "user-42", "member")
	if err := engine.Revoke(ctx, tok); !errors.Is(err, ErrRevocationDisabled) {
		t.Fatalf("expected ErrRevocationDisabled, got %v", err)
	}
}

func TestRevokeRejectsInvalidToken(t *testing.T) {
	clk := clock.NewManual(t0)
	engine := newRevocationEngine(t, clk)
	ctx := context.Background()

	if err := engine.Revoke(ctx, "garbage"); !errors.Is(err, ErrMalformedToken) {
		t.Fatalf("expected ErrMalformedToken, got %v", err)
	}

	tok, _ := engine.Issue(ctx, "user-42", "")
	clk.Advance(2 * time.Hour)
	if err := engine.Revoke(ctx, tok); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestRevocationEntryRetentionCoversSkew(t *testing.T) {
	clk := clock.NewManual(t0)
	store := revocation.NewMemoryStore(clk)
	cfg := testConfig()
	cfg.Token.ClockSkew = 10 * time.Second
	engine, err := New().WithConfig(cfg).WithClock(clk).WithRevocationStore(store).Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	defer engine.Close()
	ctx := context.Background()

	tok, _ := engine.Issue(ctx, "user-42", "")
	id, _ := engine.Resolve(ctx, tok)
	if err := engine.Revoke(ctx, tok); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}

	entry, ok, err := store.Lookup(ctx, id.SessionID)
	if err != nil || !ok {
		t.Fatalf("expected stored entry, ok=%v err=%v", ok, err)
	}
	if want := id.ExpiresAt.Unix() + 10; entry.ExpiresAt != want {
		t.Fatalf("expected retention %d, got %d", want, entry.ExpiresAt)
	}
	if entry.Subject != "user-42" || entry.RevokedAt != t0.Unix() {
		t.Fatalf("unexpected entry %+v", entry)
	}

	// Still revoked at the last instant the token would verify.
	clk.Set(id.ExpiresAt.Add(10 * time.Second))
	if _, err := engine.Resolve(ctx, tok); !errors.Is(err, ErrRevoked) {
		t.Fatalf("expected ErrRevoked at skew boundary, got %v", err)
	}
}

func TestResolveFailsClosedWhenStoreUnavailable(t *testing.T) {
	engine, err := New().
		WithConfig(testConfig()).
		WithClock(clock.NewManual(t0)).
		WithRevocationStore(failingStore{err: errors.New("connection refused")}).
		Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	defer engine.Close()
	ctx := context.Background()

	tok, _ := engine.Issue(ctx, "user-42", "")
	if _, err := engine.Resolve(ctx, tok); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if err := engine.Revoke(ctx, tok); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable from revoke, got %v", err)
	}
	if got := engine.MetricsSnapshot().Counters[MetricStoreUnavailable]; got != 2 {
		t.Fatalf("expected 2 store failures counted, got %d", got)
	}
}

func TestRefreshIssuesNewSessionAndRevokesOld(t *testing.T) {
	clk := clock.NewManual(t0)
	engine := newRevocationEngine(t, clk)
	ctx := context.Background()

	tok, _ := engine.Issue(ctx, "user-42", "member")
	oldID, _ := engine.Resolve(ctx, tok)

	clk.Advance(10 * time.Minute)
	next, err := engine.Refresh(ctx, tok)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	newID, err := engine.Resolve(ctx, next)
	if err != nil {
		t.Fatalf("resolve refreshed token failed: %v", err)
	}
	if newID.Subject != "user-42" || newID.Role != "member" {
		t.Fatalf("unexpected refreshed identity %+v", newID)
	}
	if newID.SessionID == oldID.SessionID {
		t.Fatal("expected a new session id")
	}
	if !newID.ExpiresAt.After(oldID.ExpiresAt) {
		t.Fatalf("expected later expiry, old=%v new=%v", oldID.ExpiresAt, newID.ExpiresAt)
	}
	if _, err := engine.Resolve(ctx, tok); !errors.Is(err, ErrRevoked) {
		t.Fatalf("expected old token revoked, got %v", err)
	}
	if _, err := engine.Refresh(ctx, tok); !errors.Is(err, ErrRevoked) {
		t.Fatalf("expected refresh of old token to fail, got %v", err)
	}
}

func TestRefreshWithoutRevocationLeavesOldTokenValid(t *testing.T) {
	engine := newTestEngine(t, testConfig(), clock.NewManual(t0))
	ctx := context.Background()

	tok, _ := engine.Issue(ctx, "user-42", "member")
	if _, err := engine.Refresh(ctx, tok); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if _, err := engine.Resolve(ctx, tok); err != nil {
		t.Fatalf("expected old token still valid without revocation, got %v", err)
	}
}

func TestRefreshRejectsExpired(t *testing.T) {
	clk := clock.NewManual(t0)
	engine := newTestEngine(t, testConfig(), clk)
	ctx := context.Background()

	tok, _ := engine.Issue(ctx, "user-42", "member")
	clk.Advance(time.Hour + time.Second)
	if _, err := engine.Refresh(ctx, tok); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

// revokeFailingStore answers lookups but fails inserts.
type revokeFailingStore struct {
	*revocation.MemoryStore
}

func (s revokeFailingStore) Revoke(context.Context, revocation.Entry) error {
	return errors.New("write timeout")
}

func TestRefreshFailsWhenOldSessionCannotBeRevoked(t *testing.T) {
	clk := clock.NewManual(t0)
	engine, err := New().
		WithConfig(testConfig()).
		WithClock(clk).
		WithRevocationStore(revokeFailingStore{revocation.NewMemoryStore(clk)}).
		Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	defer engine.Close()
	ctx := context.Background()

	tok, _ := engine.Issue(ctx, "user-42", "member")
	next, err := engine.Refresh(ctx, tok)
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if next != "" {
		t.Fatal("expected no token when the old session could not be revoked")
	}
}

func TestConcurrentRevokeAndResolve(t *testing.T) {
	engine := newRevocationEngine(t, clock.NewManual(t0))
	ctx := context.Background()

	tokens := make([]string, 32)
	for i := range tokens {
		tokens[i], _ = engine.Issue(ctx, "user-42", "member")
	}

	var wg sync.WaitGroup
	for _, tok := range tokens {
		wg.Add(2)
		go func(tok string) {
			defer wg.Done()
			if err := engine.Revoke(ctx, tok); err != nil {
				t.Errorf("revoke failed: %v", err)
			}
		}(tok)
		go func(tok string) {
			defer wg.Done()
			if _, err := engine.Resolve(ctx, tok); err != nil && !errors.Is(err, ErrRevoked) {
				t.Errorf("unexpected resolve error: %v", err)
			}
		}(tok)
	}
	wg.Wait()

	for _, tok := range tokens {
		if _, err := engine.Resolve(ctx, tok); !errors.Is(err, ErrRevoked) {
			t.Fatalf("expected every token revoked, got %v", err)
		}
	}
}

func TestNilEngineNotReady(t *testing.T) {
	var engine *Engine
	ctx := context.Background()

	if _, err := engine.Issue(ctx, "u", ""); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady from Issue, got %v", err)
	}
	if _, err := engine.Resolve(ctx, "t"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady from Resolve, got %v", err)
	}
	if err := engine.Revoke(ctx, "t"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady from Revoke, got %v", err)
	}
}
