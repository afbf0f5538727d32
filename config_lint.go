package authcore

import (
	"bytes"
	"fmt"
	"strings"
	"time"
)

// LintSeverity ranks a configuration warning.
type LintSeverity int

const (
	// LintInfo is informational only.
	LintInfo LintSeverity = iota
	// LintWarn flags a setting worth reviewing before deploying.
	LintWarn
	// LintHigh flags a setting that weakens session security.
	LintHigh
)

// String returns INFO, WARN or HIGH.
func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	case LintHigh:
		return "HIGH"
	default:
		return fmt.Sprintf("LintSeverity(%d)", int(s))
	}
}

// LintWarning is one advisory finding. Lint findings never block Build.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the ordered list of findings from Config.Lint.
type LintResult []LintWarning

// Codes returns the warning codes in order.
func (r LintResult) Codes() []string {
	codes := make([]string, 0, len(r))
	for _, w := range r {
		codes = append(codes, w.Code)
	}
	return codes
}

// BySeverity returns the warnings at or above min.
func (r LintResult) BySeverity(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError folds the warnings at or above min into one error, or returns nil.
func (r LintResult) AsError(min LintSeverity) error {
	hits := r.BySeverity(min)
	if len(hits) == 0 {
		return nil
	}
	parts := make([]string, 0, len(hits))
	for _, w := range hits {
		parts = append(parts, fmt.Sprintf("[%s] %s: %s", w.Severity, w.Code, w.Message))
	}
	return fmt.Errorf("config lint: %s", strings.Join(parts, "; "))
}

const (
	lintMaxLifetime     = 24 * time.Hour
	lintMaxLifetimeHigh = 30 * 24 * time.Hour
	lintLargeSkew       = time.Minute
)

// Lint reports settings that are valid but risky for a deployed service. Call
// Validate first; Lint assumes a valid Config.
func (c *Config) Lint() LintResult {
	var ws LintResult
	add := func(code string, sev LintSeverity, msg string) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: msg})
	}

	switch {
	case c.Token.Lifetime > lintMaxLifetimeHigh:
		add("lifetime_very_long", LintHigh, fmt.Sprintf("token lifetime %s exceeds %s", c.Token.Lifetime, lintMaxLifetimeHigh))
	case c.Token.Lifetime > lintMaxLifetime:
		add("lifetime_long", LintWarn, fmt.Sprintf("token lifetime %s exceeds %s", c.Token.Lifetime, lintMaxLifetime))
	}
	if c.Token.ClockSkew > lintLargeSkew {
		add("skew_large", LintWarn, fmt.Sprintf("clock skew %s exceeds %s", c.Token.ClockSkew, lintLargeSkew))
	}
	if len(c.Token.PreviousSecret) > 0 {
		if bytes.Equal(c.Token.PreviousSecret, c.Token.CurrentSecret) {
			add("previous_secret_reused", LintWarn, "previous secret equals current secret")
		} else {
			add("rotation_in_progress", LintInfo, "previous secret still accepted for verification")
		}
	}

	if c.Cookie.Local {
		add("cookie_not_secure", LintHigh, "local environment drops the Secure cookie attribute")
	}

	if !c.Revocation.Enabled {
		add("revocation_disabled", LintInfo, "logout cannot invalidate issued tokens before expiry")
	} else if c.Revocation.Backend == RevocationMemory {
		add("revocation_not_shared", LintWarn, "memory revocation store is not shared between instances")
	}

	if !c.Audit.Enabled {
		add("audit_disabled", LintInfo, "session lifecycle events are not audited")
	}

	return ws
}
