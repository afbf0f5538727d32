package authcore

import (
	"context"
	"errors"
	"net"
	"net/http"
)

// Authenticate classifies r by its session cookie. A missing cookie is anonymous; a
// cookie that does not resolve is unauthenticated with the cause in Outcome.Err.
func (e *Engine) Authenticate(r *http.Request) Outcome {
	if e == nil || e.cookies == nil {
		return Outcome{Status: StatusUnauthenticated, Err: &UnauthenticatedError{Cause: ErrEngineNotReady}}
	}

	tok, ok := e.cookies.Read(r)
	if !ok {
		e.metricInc(MetricAnonymousRequest)
		return Outcome{Status: StatusAnonymous}
	}

	id, err := e.Resolve(requestContext(r), tok)
	if err != nil {
		return Outcome{Status: StatusUnauthenticated, Err: &UnauthenticatedError{Cause: err}}
	}
	return Outcome{Status: StatusAuthenticated, Identity: id}
}

// Login issues a token for subject and writes the session cookie.
func (e *Engine) Login(ctx context.Context, w http.ResponseWriter, subject, role string) (string, error) {
	tok, err := e.Issue(ctx, subject, role)
	if err != nil {
		return "", err
	}
	e.WriteCookie(w, tok)
	return tok, nil
}

// RefreshCookie refreshes the token in r's session cookie and writes the new cookie.
// When the old token is no longer usable the cookie is cleared; a store failure
// leaves it in place.
func (e *Engine) RefreshCookie(w http.ResponseWriter, r *http.Request) (string, error) {
	if e == nil || e.cookies == nil {
		return "", ErrEngineNotReady
	}

	tok, ok := e.cookies.Read(r)
	if !ok {
		return "", &UnauthenticatedError{Cause: ErrNoSession}
	}

	next, err := e.Refresh(requestContext(r), tok)
	if err != nil {
		if IsTokenRejection(err) {
			e.ClearCookie(w)
			return "", &UnauthenticatedError{Cause: err}
		}
		return "", err
	}

	e.WriteCookie(w, next)
	return next, nil
}

// Logout clears the session cookie. With revocation enabled it first revokes the
// session; a token that is already invalid needs no revocation. Only a store
// failure is returned, and the cookie is cleared regardless.
func (e *Engine) Logout(w http.ResponseWriter, r *http.Request) error {
	if e == nil || e.cookies == nil {
		return ErrEngineNotReady
	}
	defer e.ClearCookie(w)

	tok, ok := e.cookies.Read(r)
	if !ok || e.store == nil {
		return nil
	}

	if err := e.Revoke(requestContext(r), tok); errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return nil
}

// WriteCookie sets the session cookie carrying tok.
func (e *Engine) WriteCookie(w http.ResponseWriter, tok string) {
	http.SetCookie(w, e.cookies.Write(tok))
}

// ClearCookie tells the browser to delete the session cookie.
func (e *Engine) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, e.cookies.Clear())
}

// CookieName returns the session cookie name.
func (e *Engine) CookieName() string {
	return e.cookies.Name()
}

func requestContext(r *http.Request) context.Context {
	if r == nil {
		return context.Background()
	}
	ctx := r.Context()
	if stringFromContext(ctx, clientIPKey) == "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			ctx = WithClientIP(ctx, host)
		} else if r.RemoteAddr != "" {
			ctx = WithClientIP(ctx, r.RemoteAddr)
		}
	}
	if stringFromContext(ctx, userAgentKey) == "" {
		if ua := r.UserAgent(); ua != "" {
			ctx = WithUserAgent(ctx, ua)
		}
	}
	return ctx
}
