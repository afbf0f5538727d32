// Package keyring holds the HMAC signing secrets for session tokens.
//
// At most two secrets are live: the current secret signs and verifies, the previous
// secret only verifies. The pair is an immutable [Snapshot] published through an
// atomic pointer, so a rotation never exposes a half-updated pair to a concurrent
// verifier.
//
// # What this package must NOT do
//
//   - Mutate a published secret slice in place.
//   - Log or format secret material.
package keyring

import (
	"bytes"
	"errors"
	"sync/atomic"
)

// MinSecretLength is the minimum accepted secret size in bytes (the HS256 block of entropy).
const MinSecretLength = 32

var (
	// ErrEmptySecret is returned when the current secret is missing.
	ErrEmptySecret = errors.New("keyring: current secret is required")
	// ErrSecretTooShort is returned for secrets shorter than MinSecretLength.
	ErrSecretTooShort = errors.New("keyring: secret shorter than 32 bytes")
	// ErrSecretReused is returned when a rotation or construction repeats the same secret.
	ErrSecretReused = errors.New("keyring: secret already in use")
)

// Snapshot is one consistent {current, previous} pair. Previous may be nil.
type Snapshot struct {
	Current  []byte
	Previous []byte
}

// Keyring publishes the live Snapshot. It is safe for concurrent use.
type Keyring struct {
	snap atomic.Pointer[Snapshot]
}

// New builds a keyring from a current secret and an optional previous secret.
// Both are copied.
func New(current, previous []byte) (*Keyring, error) {
	if err := checkSecret(current); err != nil {
		return nil, err
	}
	if len(previous) > 0 {
		if err := checkSecret(previous); err != nil {
			return nil, err
		}
		if bytes.Equal(current, previous) {
			return nil, ErrSecretReused
		}
	}

	k := &Keyring{}
	k.snap.Store(&Snapshot{
		Current:  cloneBytes(current),
		Previous: cloneBytes(previous),
	})
	return k, nil
}

// Snapshot returns the live pair. Callers must not modify the returned slices.
func (k *Keyring) Snapshot() Snapshot {
	return *k.snap.Load()
}

// Current returns the signing secret.
func (k *Keyring) Current() []byte {
	return k.snap.Load().Current
}

// Accepted returns the verification secrets, current first.
func (k *Keyring) Accepted() [][]byte {
	s := k.snap.Load()
	if len(s.Previous) == 0 {
		return [][]byte{s.Current}
	}
	return [][]byte{s.Current, s.Previous}
}

// HasPrevious reports whether a previous secret is still accepted.
func (k *Keyring) HasPrevious() bool {
	return len(k.snap.Load().Previous) > 0
}

// Rotate makes next the current secret and demotes the old current secret to previous.
// Any earlier previous secret stops verifying.
func (k *Keyring) Rotate(next []byte) error {
	if err := checkSecret(next); err != nil {
		return err
	}
	next = cloneBytes(next)

	for {
		old := k.snap.Load()
		if bytes.Equal(old.Current, next) {
			return ErrSecretReused
		}
		if k.snap.CompareAndSwap(old, &Snapshot{Current: next, Previous: old.Current}) {
			return nil
		}
	}
}

// DropPrevious stops accepting the previous secret. It reports whether one was dropped.
func (k *Keyring) DropPrevious() bool {
	for {
		old := k.snap.Load()
		if len(old.Previous) == 0 {
			return false
		}
		if k.snap.CompareAndSwap(old, &Snapshot{Current: old.Current}) {
			return true
		}
	}
}

func checkSecret(secret []byte) error {
	if len(secret) == 0 {
		return ErrEmptySecret
	}
	if len(secret) < MinSecretLength {
		return ErrSecretTooShort
	}
	return nil
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
