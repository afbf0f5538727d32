package authcore

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bookwell/authcore/cookie"
	"github.com/caarlos0/env/v9"
)

// EnvConfig is the environment surface of Config.
type EnvConfig struct {
	SecretCurrent  string `env:"AUTH_SECRET_CURRENT"`
	SecretPrevious string `env:"AUTH_SECRET_PREVIOUS"`

	TokenLifetimeSeconds int `env:"AUTH_TOKEN_LIFETIME_SECONDS" envDefault:"3600"`
	ClockSkewSeconds     int `env:"AUTH_CLOCK_SKEW_SECONDS" envDefault:"0"`

	CookieName     string `env:"AUTH_COOKIE_NAME" envDefault:"session"`
	CookieDomain   string `env:"AUTH_COOKIE_DOMAIN"`
	CookieSameSite string `env:"AUTH_COOKIE_SAMESITE" envDefault:"lax"`

	Environment string `env:"ENV" envDefault:"production"`

	RevocationEnabled     bool   `env:"AUTH_REVOCATION_ENABLED" envDefault:"false"`
	RevocationBackend     string `env:"AUTH_REVOCATION_BACKEND" envDefault:"memory"`
	RevocationRedisPrefix string `env:"AUTH_REVOCATION_REDIS_PREFIX" envDefault:"authcore"`

	AuditEnabled bool `env:"AUTH_AUDIT_ENABLED" envDefault:"false"`
	AuditBuffer  int  `env:"AUTH_AUDIT_BUFFER" envDefault:"1024"`

	MetricsEnabled bool `env:"AUTH_METRICS_ENABLED" envDefault:"true"`
	MetricsLatency bool `env:"AUTH_METRICS_LATENCY" envDefault:"false"`
}

// LoadConfigFromEnv reads Config from the process environment and validates it.
func LoadConfigFromEnv() (Config, error) {
	return loadConfig(env.Options{})
}

// LoadConfigFromMap is LoadConfigFromEnv over an explicit variable set.
func LoadConfigFromMap(vars map[string]string) (Config, error) {
	return loadConfig(env.Options{Environment: vars})
}

func loadConfig(opts env.Options) (Config, error) {
	var ec EnvConfig
	if err := env.ParseWithOptions(&ec, opts); err != nil {
		return Config{}, err
	}
	cfg, err := ec.Config()
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Config converts the environment values to a Config without validating it.
func (ec EnvConfig) Config() (Config, error) {
	cfg := defaultConfig()

	if ec.SecretCurrent == "" {
		return Config{}, errors.New("AUTH_SECRET_CURRENT is required")
	}
	current, err := DecodeSecret(ec.SecretCurrent)
	if err != nil {
		return Config{}, fmt.Errorf("AUTH_SECRET_CURRENT: %w", err)
	}
	cfg.Token.CurrentSecret = current
	if ec.SecretPrevious != "" {
		previous, err := DecodeSecret(ec.SecretPrevious)
		if err != nil {
			return Config{}, fmt.Errorf("AUTH_SECRET_PREVIOUS: %w", err)
		}
		cfg.Token.PreviousSecret = previous
	}

	cfg.Token.Lifetime = time.Duration(ec.TokenLifetimeSeconds) * time.Second
	cfg.Token.ClockSkew = time.Duration(ec.ClockSkewSeconds) * time.Second

	sameSite, err := cookie.ParseSameSite(ec.CookieSameSite)
	if err != nil {
		return Config{}, fmt.Errorf("AUTH_COOKIE_SAMESITE: %w", err)
	}
	cfg.Cookie.Name = ec.CookieName
	cfg.Cookie.Domain = ec.CookieDomain
	cfg.Cookie.SameSite = sameSite
	cfg.Cookie.Local = strings.EqualFold(ec.Environment, "local")

	cfg.Revocation.Enabled = ec.RevocationEnabled
	cfg.Revocation.Backend = RevocationBackend(strings.ToLower(ec.RevocationBackend))
	cfg.Revocation.RedisPrefix = ec.RevocationRedisPrefix

	cfg.Audit.Enabled = ec.AuditEnabled
	cfg.Audit.BufferSize = ec.AuditBuffer

	cfg.Metrics.Enabled = ec.MetricsEnabled
	cfg.Metrics.EnableLatencyHistograms = ec.MetricsLatency

	return cfg, nil
}

// DecodeSecret returns the raw secret bytes. Values prefixed with "base64:" are
// decoded as standard base64; anything else is taken verbatim.
func DecodeSecret(v string) ([]byte, error) {
	if rest, ok := strings.CutPrefix(v, "base64:"); ok {
		b, err := base64.StdEncoding.DecodeString(rest)
		if err != nil {
			return nil, fmt.Errorf("invalid base64 secret: %w", err)
		}
		return b, nil
	}
	return []byte(v), nil
}
