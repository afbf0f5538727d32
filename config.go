package authcore

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bookwell/authcore/keyring"
	"github.com/bookwell/authcore/token"
)

// Config defines the session core settings.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	Token      TokenConfig
	Cookie     CookieConfig
	Revocation RevocationConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig controls signing and token lifetime.
type TokenConfig struct {
	Lifetime       time.Duration
	ClockSkew      time.Duration
	CurrentSecret  []byte
	PreviousSecret []byte // accepted for verification only, during rotation
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig controls the session cookie attributes.
type CookieConfig struct {
	Name     string
	Domain   string
	SameSite http.SameSite
	// Local turns off the Secure attribute (ENV=local).
	Local bool
}

/*
====================================
REVOCATION CONFIG
====================================
*/

// RevocationBackend names a revocation store implementation.
type RevocationBackend string

const (
	// RevocationMemory keeps revocations in process memory.
	RevocationMemory RevocationBackend = "memory"
	// RevocationRedis keeps revocations in Redis keys with TTL.
	RevocationRedis RevocationBackend = "redis"
	// RevocationPostgres keeps revocations in the session_revocations table.
	RevocationPostgres RevocationBackend = "postgres"
)

// RevocationConfig enables server-side revocation.
type RevocationConfig struct {
	Enabled     bool
	Backend     RevocationBackend
	RedisPrefix string
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			Lifetime:  time.Hour,
			ClockSkew: 0,
		},
		Cookie: CookieConfig{
			Name:     "session",
			SameSite: http.SameSiteLaxMode,
		},
		Revocation: RevocationConfig{
			Enabled:     false,
			Backend:     RevocationMemory,
			RedisPrefix: "authcore",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

// DefaultConfig returns the defaults used by New. Secrets are left empty.
func DefaultConfig() Config {
	return defaultConfig()
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.CurrentSecret = cloneBytes(cfg.Token.CurrentSecret)
	out.Token.PreviousSecret = cloneBytes(cfg.Token.PreviousSecret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// Token
	if c.Token.Lifetime < time.Second {
		return errors.New("Token Lifetime must be >= 1s")
	}
	if c.Token.Lifetime%time.Second != 0 {
		return errors.New("Token Lifetime must be whole seconds")
	}
	if c.Token.ClockSkew < 0 || c.Token.ClockSkew > token.MaxClockSkew {
		return fmt.Errorf("Token ClockSkew must be between 0 and %s", token.MaxClockSkew)
	}
	if c.Token.ClockSkew%time.Second != 0 {
		return errors.New("Token ClockSkew must be whole seconds")
	}
	if len(c.Token.CurrentSecret) == 0 {
		return errors.New("Token CurrentSecret is required")
	}
	if len(c.Token.CurrentSecret) < keyring.MinSecretLength {
		return fmt.Errorf("Token CurrentSecret must be >= %d bytes", keyring.MinSecretLength)
	}
	if len(c.Token.PreviousSecret) > 0 && len(c.Token.PreviousSecret) < keyring.MinSecretLength {
		return fmt.Errorf("Token PreviousSecret must be >= %d bytes", keyring.MinSecretLength)
	}

	// Cookie
	switch c.Cookie.SameSite {
	case 0, http.SameSiteDefaultMode, http.SameSiteLaxMode, http.SameSiteStrictMode:
	default:
		return errors.New("Cookie SameSite must be Lax or Strict")
	}

	// Revocation
	if c.Revocation.Enabled {
		switch c.Revocation.Backend {
		case RevocationMemory, RevocationRedis, RevocationPostgres:
		default:
			return fmt.Errorf("Revocation Backend %q is not supported", c.Revocation.Backend)
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
