package authcore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bookwell/authcore/clock"
	"github.com/bookwell/authcore/revocation"
	"github.com/redis/go-redis/v9"
)

var (
	testSecret     = []byte("0123456789abcdef0123456789abcdef")
	testSecretNext = []byte("fedcba9876543210fedcba9876543210")
)

var t0 = time.Unix(1_700_000_000, 0)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Token.CurrentSecret = testSecret
	cfg.Token.Lifetime = time.Hour
	cfg.Metrics.Enabled = true
	return cfg
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func newTestEngine(t *testing.T, cfg Config, clk clock.Clock) *Engine {
	t.Helper()

	engine, err := New().WithConfig(cfg).WithClock(clk).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func newRevocationEngine(t *testing.T, clk clock.Clock) *Engine {
	t.Helper()

	cfg := testConfig()
	cfg.Revocation.Enabled = true
	cfg.Revocation.Backend = RevocationMemory
	return newTestEngine(t, cfg, clk)
}

// failingStore fails every call with err.
type failingStore struct {
	err error
}

func (s failingStore) Revoke(context.Context, revocation.Entry) error { return s.err }

func (s failingStore) Lookup(context.Context, string) (revocation.Entry, bool, error) {
	return revocation.Entry{}, false, s.err
}
