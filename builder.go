package authcore

import (
	"errors"

	"github.com/bookwell/authcore/clock"
	"github.com/bookwell/authcore/cookie"
	"github.com/bookwell/authcore/keyring"
	"github.com/bookwell/authcore/revocation"
	"github.com/bookwell/authcore/token"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder assembles an Engine. A Builder can be built once.
type Builder struct {
	config Config
	clock  clock.Clock
	logger *zap.Logger

	redis    redis.UniversalClient
	postgres *pgxpool.Pool
	store    revocation.Store

	auditSink AuditSink

	built bool
}

// New returns a Builder holding DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithClock injects the time source. Tests use clock.Manual.
func (b *Builder) WithClock(c clock.Clock) *Builder {
	b.clock = c
	return b
}

// WithLogger sets the engine logger. The default discards everything.
func (b *Builder) WithLogger(l *zap.Logger) *Builder {
	b.logger = l
	return b
}

// WithRedis supplies the client for the redis revocation backend.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithPostgres supplies the pool for the postgres revocation backend. The schema must
// already exist; see revocation.RunMigrations.
func (b *Builder) WithPostgres(pool *pgxpool.Pool) *Builder {
	b.postgres = pool
	return b
}

// WithRevocationStore installs a custom store and enables revocation. It takes
// precedence over Config.Revocation.Backend.
func (b *Builder) WithRevocationStore(store revocation.Store) *Builder {
	b.store = store
	return b
}

// WithAuditSink sets where audit events go when Config.Audit is enabled.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the Resolve latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a ready Engine. It performs no I/O.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	clk := b.clock
	if clk == nil {
		clk = clock.System{}
	}
	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// -------- SECRETS / CODEC --------
	keys, err := keyring.New(cfg.Token.CurrentSecret, cfg.Token.PreviousSecret)
	if err != nil {
		return nil, err
	}

	codec, err := token.NewCodec(token.Config{
		Keys:      keys,
		Clock:     clk,
		ClockSkew: cfg.Token.ClockSkew,
	})
	if err != nil {
		return nil, err
	}

	// -------- COOKIE --------
	cookies, err := cookie.New(cookie.Config{
		Name:     cfg.Cookie.Name,
		Domain:   cfg.Cookie.Domain,
		SameSite: cfg.Cookie.SameSite,
		Lifetime: cfg.Token.Lifetime,
		Local:    cfg.Cookie.Local,
	})
	if err != nil {
		return nil, err
	}

	// -------- REVOCATION STORE --------
	store, err := b.revocationStore(cfg, clk)
	if err != nil {
		return nil, err
	}
	if store != nil {
		cfg.Revocation.Enabled = true
	}

	engine := &Engine{
		config:  cfg,
		clock:   clk,
		keys:    keys,
		codec:   codec,
		cookies: cookies,
		store:   store,
		logger:  logger.Named("authcore"),
	}
	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	return engine, nil
}

func (b *Builder) revocationStore(cfg Config, clk clock.Clock) (revocation.Store, error) {
	if b.store != nil {
		return b.store, nil
	}
	if !cfg.Revocation.Enabled {
		return nil, nil
	}

	switch cfg.Revocation.Backend {
	case RevocationMemory:
		return revocation.NewMemoryStore(clk), nil
	case RevocationRedis:
		if b.redis == nil {
			return nil, errors.New("Revocation redis backend requires redis client")
		}
		return revocation.NewRedisStore(b.redis, cfg.Revocation.RedisPrefix), nil
	case RevocationPostgres:
		if b.postgres == nil {
			return nil, errors.New("Revocation postgres backend requires postgres pool")
		}
		return revocation.NewPostgresStore(b.postgres, clk), nil
	default:
		return nil, errors.New("unsupported revocation backend")
	}
}
