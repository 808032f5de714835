package otp

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable reports that the challenge store backend could not be
// reached. It wraps the underlying redis error.
var ErrUnavailable = errors.New("otp store unavailable")

// Store keeps OTP challenges and registration-verified flags in redis,
// namespaced per channel so phone and email codes for the same identifier
// never collide. Challenge expiry is enforced by the key TTL; a consumed
// challenge is deleted inside a transaction so at most one of two racing
// verifications for the same identifier can observe a match.
type Store struct {
	rdb    redis.UniversalClient
	prefix string
}

func NewStore(rdb redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "otp"
	}
	return &Store{rdb: rdb, prefix: prefix}
}

func (s *Store) challengeKey(channel Channel, identifier string) string {
	return s.prefix + ":chal:" + string(channel) + ":" + identifier
}

func (s *Store) verifiedKey(channel Channel, identifier string) string {
	return s.prefix + ":ver:" + string(channel) + ":" + identifier
}

// PutChallenge stores a code for the identifier, overwriting any previous
// unconsumed challenge on the same channel.
func (s *Store) PutChallenge(ctx context.Context, channel Channel, identifier, code string, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, s.challengeKey(channel, identifier), code, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// ConsumeChallenge compares candidate against the stored code. On a match the
// challenge is removed atomically and true is returned; a mismatch leaves the
// challenge in place so a correct retry before expiry still succeeds. A
// missing or expired challenge is false, never an error.
func (s *Store) ConsumeChallenge(ctx context.Context, channel Channel, identifier, candidate string) (bool, error) {
	const maxRetries = 4
	key := s.challengeKey(channel, identifier)

	for i := 0; i < maxRetries; i++ {
		var matched bool

		err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			stored, err := tx.Get(ctx, key).Result()
			if err != nil {
				return err
			}

			if subtle.ConstantTimeCompare([]byte(stored), []byte(candidate)) != 1 {
				matched = false
				return nil
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			})
			if err != nil {
				return err
			}

			matched = true
			return nil
		}, key)

		if err == redis.TxFailedErr {
			// A concurrent verification consumed or replaced the challenge
			// between GET and EXEC. Re-read and decide again.
			continue
		}
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}

		return matched, nil
	}

	return false, nil
}

// MarkVerified flags the identifier as having passed a registration OTP. The
// flag carries its own TTL as a lazy-eviction bound; registration completion
// must happen inside that window.
func (s *Store) MarkVerified(ctx context.Context, channel Channel, identifier string, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, s.verifiedKey(channel, identifier), "1", ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *Store) IsVerified(ctx context.Context, channel Channel, identifier string) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.verifiedKey(channel, identifier)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n > 0, nil
}

func (s *Store) ClearVerified(ctx context.Context, channel Channel, identifier string) error {
	if err := s.rdb.Del(ctx, s.verifiedKey(channel, identifier)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
