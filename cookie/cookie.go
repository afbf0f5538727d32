// Package cookie maps a session token to and from the HTTP session cookie.
//
// It is the only place the session touches the network boundary. The cookie is
// always HttpOnly, Secure outside local development, scoped to path "/", and lives
// exactly as long as the token it carries.
package cookie

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultName is the session cookie name used when Config.Name is empty.
const DefaultName = "session"

// Config describes the cookie attributes.
type Config struct {
	Name     string
	Domain   string
	SameSite http.SameSite
	Lifetime time.Duration
	// Local disables the Secure attribute for plain-HTTP development servers.
	Local bool
}

// Transport writes, reads, and clears the session cookie.
type Transport struct {
	cfg Config
}

// New validates cfg and returns a Transport.
func New(cfg Config) (*Transport, error) {
	if cfg.Name == "" {
		cfg.Name = DefaultName
	}
	if !validName(cfg.Name) {
		return nil, fmt.Errorf("cookie: invalid name %q", cfg.Name)
	}
	if cfg.Lifetime < time.Second {
		return nil, errors.New("cookie: lifetime must be at least one second")
	}
	switch cfg.SameSite {
	case 0, http.SameSiteDefaultMode:
		cfg.SameSite = http.SameSiteLaxMode
	case http.SameSiteLaxMode, http.SameSiteStrictMode:
	default:
		return nil, errors.New("cookie: SameSite must be Lax or Strict")
	}
	return &Transport{cfg: cfg}, nil
}

// Name returns the cookie name.
func (t *Transport) Name() string {
	return t.cfg.Name
}

// Write builds the cookie carrying token.
func (t *Transport) Write(token string) *http.Cookie {
	c := t.base()
	c.Value = token
	c.MaxAge = int(t.cfg.Lifetime / time.Second)
	return c
}

// Read returns the token from r. A missing or empty cookie reports false.
func (t *Transport) Read(r *http.Request) (string, bool) {
	if r == nil {
		return "", false
	}
	c, err := r.Cookie(t.cfg.Name)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// Clear builds a cookie that makes the browser delete the session cookie.
func (t *Transport) Clear() *http.Cookie {
	c := t.base()
	c.Value = ""
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)
	return c
}

func (t *Transport) base() *http.Cookie {
	return &http.Cookie{
		Name:     t.cfg.Name,
		Path:     "/",
		Domain:   t.cfg.Domain,
		HttpOnly: true,
		Secure:   !t.cfg.Local,
		SameSite: t.cfg.SameSite,
	}
}

// ParseSameSite converts "lax" or "strict" (any case) to an http.SameSite value.
// The empty string means Lax.
func ParseSameSite(v string) (http.SameSite, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	default:
		return 0, fmt.Errorf("cookie: unsupported SameSite %q", v)
	}
}

func validName(name string) bool {
	for i := 0; i < len(name); i++ {
		ch := name[i]
		if ch <= ' ' || ch >= 0x7f || strings.IndexByte("()<>@,;:\\\"/[]?={}", ch) >= 0 {
			return false
		}
	}
	return name != ""
}
