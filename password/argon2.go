package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB   uint32 = 8 * 1024
	minSaltLength uint32 = 16
	minKeyLength  uint32 = 16
	algorithmID          = "argon2id"
)

var (
	// ErrInvalidHash is returned for stored hashes that are not argon2id PHC strings
	// this package can verify.
	ErrInvalidHash = errors.New("invalid password hash")
	// ErrPasswordLength is returned for plaintexts outside [MinBytes, MaxBytes].
	ErrPasswordLength = errors.New("password length out of range")
)

// Config holds the Argon2id cost parameters and plaintext bounds.
type Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32

	MinBytes int
	MaxBytes int
}

// DefaultConfig returns interactive-login parameters: 64 MiB, 3 passes, 2 lanes.
func DefaultConfig() Config {
	return Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
		MinBytes:    10,
		MaxBytes:    1024,
	}
}

// Hasher hashes and verifies demo-account passwords. It is safe for concurrent use.
type Hasher struct {
	config Config
}

// NewHasher validates cfg. Zero MinBytes/MaxBytes take the defaults.
func NewHasher(cfg Config) (*Hasher, error) {
	def := DefaultConfig()
	if cfg.MinBytes == 0 {
		cfg.MinBytes = def.MinBytes
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = def.MaxBytes
	}

	switch {
	case cfg.Memory < minMemoryKB:
		return nil, fmt.Errorf("password memory must be >= %d KB", minMemoryKB)
	case cfg.Time < 1:
		return nil, errors.New("password time must be >= 1")
	case cfg.Parallelism < 1:
		return nil, errors.New("password parallelism must be >= 1")
	case cfg.SaltLength < minSaltLength:
		return nil, fmt.Errorf("password salt length must be >= %d", minSaltLength)
	case cfg.KeyLength < minKeyLength:
		return nil, fmt.Errorf("password key length must be >= %d", minKeyLength)
	case cfg.MinBytes < 1 || cfg.MaxBytes < cfg.MinBytes:
		return nil, errors.New("password byte bounds are inconsistent")
	}

	return &Hasher{config: cfg}, nil
}

// Hash returns the PHC encoding of plaintext under a fresh random salt.
func (h *Hasher) Hash(plaintext string) (string, error) {
	if err := h.checkLength(plaintext); err != nil {
		return "", err
	}

	salt := make([]byte, h.config.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	p := phc{
		memory:      h.config.Memory,
		time:        h.config.Time,
		parallelism: h.config.Parallelism,
		salt:        salt,
	}
	p.key = p.derive(plaintext, h.config.KeyLength)
	return p.String(), nil
}

// Verify reports whether plaintext matches encoded. Oversized input is rejected
// before any key derivation.
func (h *Hasher) Verify(plaintext, encoded string) (bool, error) {
	if len(plaintext) > h.config.MaxBytes {
		return false, ErrPasswordLength
	}

	p, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}

	computed := p.derive(plaintext, uint32(len(p.key)))
	return subtle.ConstantTimeCompare(computed, p.key) == 1, nil
}

// NeedsRehash reports whether encoded was produced with weaker parameters than h.
func (h *Hasher) NeedsRehash(encoded string) (bool, error) {
	p, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}

	return h.config.Memory > p.memory ||
		h.config.Time > p.time ||
		h.config.Parallelism > p.parallelism ||
		h.config.KeyLength != uint32(len(p.key)), nil
}

func (h *Hasher) checkLength(plaintext string) error {
	if n := len(plaintext); n < h.config.MinBytes || n > h.config.MaxBytes {
		return fmt.Errorf("%w: %d bytes, want %d..%d", ErrPasswordLength, n, h.config.MinBytes, h.config.MaxBytes)
	}
	return nil
}

// phc is one decoded $argon2id$v=19$m=..,t=..,p=..$salt$key string.
type phc struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func (p phc) derive(plaintext string, keyLen uint32) []byte {
	return argon2.IDKey([]byte(plaintext), p.salt, p.time, p.memory, p.parallelism, keyLen)
}

func (p phc) String() string {
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		p.memory, p.time, p.parallelism,
		base64.RawStdEncoding.EncodeToString(p.salt),
		base64.RawStdEncoding.EncodeToString(p.key),
	)
}

func parsePHC(encoded string) (phc, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != algorithmID {
		return phc{}, fmt.Errorf("%w: not an %s PHC string", ErrInvalidHash, algorithmID)
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return phc{}, fmt.Errorf("%w: unsupported version %q", ErrInvalidHash, parts[2])
	}

	var p phc
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.parallelism); err != nil {
		return phc{}, fmt.Errorf("%w: parameters %q", ErrInvalidHash, parts[3])
	}
	if p.memory < minMemoryKB || p.time < 1 || p.parallelism < 1 {
		return phc{}, fmt.Errorf("%w: parameters below minimum", ErrInvalidHash)
	}

	var err error
	if p.salt, err = decodeSegment(parts[4]); err != nil || len(p.salt) < int(minSaltLength) {
		return phc{}, fmt.Errorf("%w: salt", ErrInvalidHash)
	}
	if p.key, err = decodeSegment(parts[5]); err != nil || len(p.key) < int(minKeyLength) {
		return phc{}, fmt.Errorf("%w: key", ErrInvalidHash)
	}
	return p, nil
}

// decodeSegment accepts both unpadded (reference encoder) and padded base64.
func decodeSegment(s string) ([]byte, error) {
	if strings.HasSuffix(s, "=") {
		return base64.StdEncoding.DecodeString(s)
	}
	return base64.RawStdEncoding.DecodeString(s)
}
