package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bookwell/authcore"
	"github.com/bookwell/authcore/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Unix(1_700_000_000, 0)

func newTestEngine(t *testing.T) (*authcore.Engine, *clock.Manual) {
	t.Helper()

	cfg := authcore.DefaultConfig()
	cfg.Token.CurrentSecret = []byte("0123456789abcdef0123456789abcdef")
	clk := clock.NewManual(t0)

	engine, err := authcore.New().WithConfig(cfg).WithClock(clk).Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)
	return engine, clk
}

func issue(t *testing.T, engine *authcore.Engine) string {
	t.Helper()
	tok, err := engine.Issue(context.Background(), "user-42", "member")
	require.NoError(t, err)
	return tok
}

func withSession(req *http.Request, tok string) *http.Request {
	req.AddCookie(&http.Cookie{Name: "session", Value: tok})
	return req
}

func identityEcho(t *testing.T, called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		id, ok := authcore.IdentityFromContext(r.Context())
		if ok {
			_, _ = w.Write([]byte(id.Subject))
		}
	})
}

func clearedSession(rec *httptest.ResponseRecorder) bool {
	for _, c := range rec.Result().Cookies() {
		if c.Name == "session" && c.MaxAge < 0 {
			return true
		}
	}
	return false
}

func TestGuardAuthenticated(t *testing.T) {
	engine, _ := newTestEngine(t)
	tok := issue(t, engine)

	var called bool
	h := Guard(engine)(identityEcho(t, &called))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, withSession(httptest.NewRequest(http.MethodGet, "/bookings", nil), tok))

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-42", rec.Body.String())
}

func TestGuardAnonymousDenied(t *testing.T) {
	engine, _ := newTestEngine(t)

	var called bool
	h := Guard(engine)(identityEcho(t, &called))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bookings", nil))

	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, clearedSession(rec))
}

func TestGuardExpiredClearsCookie(t *testing.T) {
	engine, clk := newTestEngine(t)
	tok := issue(t, engine)
	clk.Advance(2 * time.Hour)

	var called bool
	h := Guard(engine)(identityEcho(t, &called))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, withSession(httptest.NewRequest(http.MethodGet, "/bookings", nil), tok))

	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.True(t, clearedSession(rec))
}

func TestGuardOnDenyRedirects(t *testing.T) {
	engine, _ := newTestEngine(t)

	var seen authcore.Status
	deny := func(w http.ResponseWriter, r *http.Request, out authcore.Outcome) {
		seen = out.Status
		RedirectToLogin("/login")(w, r, out)
	}

	var called bool
	h := Guard(engine, WithOnDeny(deny))(identityEcho(t, &called))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bookings", nil))

	assert.False(t, called)
	assert.Equal(t, authcore.StatusAnonymous, seen)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestGuardNilAuthenticator(t *testing.T) {
	var called bool
	h := Guard(nil)(identityEcho(t, &called))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOptionalPassesEveryone(t *testing.T) {
	engine, clk := newTestEngine(t)
	tok := issue(t, engine)

	var called bool
	h := Optional(engine)(identityEcho(t, &called))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, withSession(httptest.NewRequest(http.MethodGet, "/", nil), tok))
	assert.True(t, called)
	assert.Equal(t, "user-42", rec.Body.String())

	called = false
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, called)
	assert.Empty(t, rec.Body.String())

	clk.Advance(2 * time.Hour)
	called = false
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, withSession(httptest.NewRequest(http.MethodGet, "/", nil), tok))
	assert.True(t, called)
	assert.Empty(t, rec.Body.String())
	assert.True(t, clearedSession(rec))
}

type outageAuth struct {
	cleared bool
}

func (a *outageAuth) Authenticate(*http.Request) authcore.Outcome {
	return authcore.Outcome{
		Status: authcore.StatusUnauthenticated,
		Err:    &authcore.UnauthenticatedError{Cause: authcore.ErrStoreUnavailable},
	}
}

func (a *outageAuth) ClearCookie(http.ResponseWriter) { a.cleared = true }

func TestGuardStoreOutageKeepsCookie(t *testing.T) {
	auth := &outageAuth{}

	var called bool
	rec := httptest.NewRecorder()
	Guard(auth)(identityEcho(t, &called)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bookings", nil))

	assert.False(t, called)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.False(t, auth.cleared)

	rec = httptest.NewRecorder()
	Optional(auth)(identityEcho(t, &called)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, called)
	assert.False(t, auth.cleared)
}
