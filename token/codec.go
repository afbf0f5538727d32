package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/bookwell/authcore/clock"
	"github.com/golang-jwt/jwt/v5"
)

// MaxClockSkew bounds the configurable expiry tolerance.
const MaxClockSkew = 5 * time.Minute

var (
	// ErrMalformed is returned for tokens that are structurally invalid.
	ErrMalformed = errors.New("malformed token")
	// ErrInvalidSignature is returned when no accepted secret produces the token's MAC.
	ErrInvalidSignature = errors.New("invalid token signature")
	// ErrExpired is returned for signature-valid tokens past expiry plus skew.
	ErrExpired = errors.New("token expired")
	// ErrInvalidClaims is returned by Encode for claims that violate the token invariants.
	ErrInvalidClaims = errors.New("invalid token claims")
)

// KeySource supplies signing and verification secrets. *keyring.Keyring implements it.
type KeySource interface {
	Current() []byte
	Accepted() [][]byte
}

// Claims is the session payload. Timestamps are Unix seconds.
type Claims struct {
	Subject   string
	Role      string
	SessionID string
	IssuedAt  int64
	ExpiresAt int64
}

// Validate checks the claim invariants.
func (c Claims) Validate() error {
	if c.Subject == "" {
		return fmt.Errorf("%w: empty subject", ErrInvalidClaims)
	}
	if len(c.Subject) > MaxSubjectLength {
		return fmt.Errorf("%w: subject longer than %d bytes", ErrInvalidClaims, MaxSubjectLength)
	}
	if c.SessionID == "" {
		return fmt.Errorf("%w: empty session id", ErrInvalidClaims)
	}
	if c.ExpiresAt <= c.IssuedAt {
		return fmt.Errorf("%w: expiry must follow issuance", ErrInvalidClaims)
	}
	return nil
}

// MaxSubjectLength is the largest subject Encode accepts. Browsers drop cookies
// over 4096 bytes, so a longer subject could never round-trip.
const MaxSubjectLength = 4096

// wireClaims fixes the JSON field order: role, sub, exp, iat, sid.
type wireClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
	SID string `json:"sid"`
}

// Config configures a Codec.
type Config struct {
	Keys      KeySource
	Clock     clock.Clock
	ClockSkew time.Duration
}

// Codec encodes and decodes session tokens. It is safe for concurrent use.
type Codec struct {
	keys   KeySource
	clock  clock.Clock
	skew   int64
	parser *jwt.Parser
}

// NewCodec validates cfg and returns a Codec. A nil Clock means the system clock.
func NewCodec(cfg Config) (*Codec, error) {
	if cfg.Keys == nil {
		return nil, errors.New("token: key source is required")
	}
	if cfg.ClockSkew < 0 || cfg.ClockSkew > MaxClockSkew {
		return nil, errors.New("token: invalid clock skew configuration")
	}
	if cfg.ClockSkew%time.Second != 0 {
		return nil, errors.New("token: clock skew must be whole seconds")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.System{}
	}

	return &Codec{
		keys:  cfg.Keys,
		clock: cfg.Clock,
		skew:  int64(cfg.ClockSkew / time.Second),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
			jwt.WithStrictDecoding(),
		),
	}, nil
}

// Encode signs claims with the current secret.
func (c *Codec) Encode(claims Claims) (string, error) {
	if err := claims.Validate(); err != nil {
		return "", err
	}

	wire := wireClaims{
		Role: claims.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Subject,
			ExpiresAt: jwt.NewNumericDate(time.Unix(claims.ExpiresAt, 0)),
			IssuedAt:  jwt.NewNumericDate(time.Unix(claims.IssuedAt, 0)),
		},
		SID: claims.SessionID,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, wire).SignedString(c.keys.Current())
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// Decode verifies the token's MAC against every accepted secret and checks expiry.
func (c *Codec) Decode(tokenStr string) (Claims, error) {
	claims, err := c.Verify(tokenStr)
	if err != nil {
		return Claims{}, err
	}
	if now := c.clock.Now().Unix(); now > claims.ExpiresAt+c.skew {
		return Claims{}, ErrExpired
	}
	return claims, nil
}

// Verify checks structure and MAC only. Expired tokens verify.
func (c *Codec) Verify(tokenStr string) (Claims, error) {
	var wire wireClaims
	_, err := c.parser.ParseWithClaims(tokenStr, &wire, c.keyfunc)
	if err != nil {
		return Claims{}, mapParseError(err)
	}

	if wire.Subject == "" || wire.SID == "" || wire.ExpiresAt == nil || wire.IssuedAt == nil {
		return Claims{}, fmt.Errorf("%w: missing required claim", ErrMalformed)
	}
	claims := Claims{
		Subject:   wire.Subject,
		Role:      wire.Role,
		SessionID: wire.SID,
		IssuedAt:  wire.IssuedAt.Unix(),
		ExpiresAt: wire.ExpiresAt.Unix(),
	}
	if claims.ExpiresAt <= claims.IssuedAt {
		return Claims{}, fmt.Errorf("%w: expiry does not follow issuance", ErrMalformed)
	}
	return claims, nil
}

func (c *Codec) keyfunc(*jwt.Token) (interface{}, error) {
	accepted := c.keys.Accepted()
	keys := make([]jwt.VerificationKey, 0, len(accepted))
	for _, k := range accepted {
		keys = append(keys, k)
	}
	return jwt.VerificationKeySet{Keys: keys}, nil
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrInvalidSignature
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}
