package internal

import (
	"crypto/rand"
	"errors"

	"github.com/google/uuid"
)

// NewSessionID returns a random (version 4) UUID string.
func NewSessionID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// ValidSessionID reports whether s parses as a UUID.
func ValidSessionID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// NewSecret returns n random bytes suitable for an HMAC signing secret.
func NewSecret(n int) ([]byte, error) {
	if n <= 0 {
		return nil, errors.New("secret size must be > 0")
	}
	secret := make([]byte, n)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	return secret, nil
}
