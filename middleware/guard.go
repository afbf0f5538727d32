package middleware

import (
	"errors"
	"net/http"

	"github.com/bookwell/authcore"
)

// Authenticator is the part of *authcore.Engine the middleware needs.
type Authenticator interface {
	Authenticate(r *http.Request) authcore.Outcome
	ClearCookie(w http.ResponseWriter)
}

// DenyFunc writes the response for a request that did not authenticate.
type DenyFunc func(w http.ResponseWriter, r *http.Request, out authcore.Outcome)

// Option configures Guard and GinGuard.
type Option func(*options)

type options struct {
	onDeny DenyFunc
}

// WithOnDeny replaces the default 401 response, e.g. to redirect to a login page.
func WithOnDeny(fn DenyFunc) Option {
	return func(o *options) {
		if fn != nil {
			o.onDeny = fn
		}
	}
}

// RedirectToLogin is a DenyFunc that sends the browser to loginURL.
func RedirectToLogin(loginURL string) DenyFunc {
	return func(w http.ResponseWriter, r *http.Request, _ authcore.Outcome) {
		http.Redirect(w, r, loginURL, http.StatusSeeOther)
	}
}

func defaultDeny(w http.ResponseWriter, _ *http.Request, out authcore.Outcome) {
	if storeDown(out) {
		http.Error(w, "session store unavailable", http.StatusServiceUnavailable)
		return
	}
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

func storeDown(out authcore.Outcome) bool {
	return errors.Is(out.Err, authcore.ErrStoreUnavailable)
}

// staleCookie reports whether the request's cookie can never resolve again. A
// store outage says nothing about the cookie, so it is kept.
func staleCookie(out authcore.Outcome) bool {
	return out.Status == authcore.StatusUnauthenticated && !storeDown(out)
}

func buildOptions(opts []Option) options {
	o := options{onDeny: defaultDeny}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Guard only lets authenticated requests through. A stale cookie is cleared before
// the deny response is written. By default a store outage answers 503, anything
// else 401.
func Guard(auth Authenticator, opts ...Option) func(http.Handler) http.Handler {
	o := buildOptions(opts)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth == nil {
				o.onDeny(w, r, authcore.Outcome{Status: authcore.StatusUnauthenticated})
				return
			}

			out := auth.Authenticate(r)
			if out.Status == authcore.StatusAuthenticated {
				ctx := authcore.WithIdentity(r.Context(), out.Identity)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			if staleCookie(out) {
				auth.ClearCookie(w)
			}
			o.onDeny(w, r, out)
		})
	}
}

// Optional attaches the identity when the request has one and always calls next.
func Optional(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth == nil {
				next.ServeHTTP(w, r)
				return
			}

			out := auth.Authenticate(r)
			if out.Status == authcore.StatusAuthenticated {
				r = r.WithContext(authcore.WithIdentity(r.Context(), out.Identity))
			} else if staleCookie(out) {
				auth.ClearCookie(w)
			}
			next.ServeHTTP(w, r)
		})
	}
}
