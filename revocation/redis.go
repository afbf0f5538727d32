package revocation

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces revocation keys.
const DefaultRedisPrefix = "authcore"

// RedisStore keeps one key per revoked session id, expiring with the entry's
// retention deadline.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisStore returns a RedisStore writing keys under prefix.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{
		redis:  client,
		prefix: prefix,
	}
}

func (s *RedisStore) key(sessionID string) string {
	return s.prefix + ":rv:" + sessionID
}

// Revoke writes the entry with SET NX, so a repeated revoke keeps the first entry.
func (s *RedisStore) Revoke(ctx context.Context, entry Entry) error {
	data, err := Encode(entry)
	if err != nil {
		return err
	}

	if err := s.redis.SetNX(ctx, s.key(entry.SessionID), data, entry.retention()).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Lookup reads the entry for sessionID. An unreadable value is reported as a store
// failure rather than as "not revoked".
func (s *RedisStore) Lookup(ctx context.Context, sessionID string) (Entry, bool, error) {
	data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	entry, err := Decode(data)
	if err != nil {
		return Entry{}, false, fmt.Errorf("%w: corrupt entry: %v", ErrStoreUnavailable, err)
	}
	return entry, true, nil
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
