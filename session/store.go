package session

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps transport-level Redis failures so callers can
// distinguish them from a plain miss (redis.Nil).
var ErrRedisUnavailable = errors.New("redis unavailable")

// Store is a Redis-backed session store. Records are addressed by the
// SHA-256 of the bearer secret; a per-account set indexes live sessions so
// they can be invalidated together after a password reset.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a session [Store] backed by the given Redis client.
// prefix sets the Redis key namespace.
func NewStore(redis redis.UniversalClient, prefix string) *Store {
	return &Store{
		redis:  redis,
		prefix: prefix,
	}
}

func (s *Store) key(secretHash [32]byte) string {
	return s.prefix + ":" + hex.EncodeToString(secretHash[:])
}

func (s *Store) accountKey(accountID string) string {
	return s.prefix + "a:" + accountID
}

// Save persists a session under the secret hash with the given TTL and adds
// it to the account index.
//
//	Performance: 2 Redis commands in one transaction.
func (s *Store) Save(ctx context.Context, secretHash [32]byte, sess *Session, ttl time.Duration) error {
	data, err := Encode(sess)
	if err != nil {
		return err
	}

	sessionKey := s.key(secretHash)
	accountKey := s.accountKey(sess.AccountID)

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey, data, ttl)
		pipe.SAdd(ctx, accountKey, hex.EncodeToString(secretHash[:]))
		pipe.Expire(ctx, accountKey, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// Get retrieves the session for a secret hash. Returns redis.Nil when no
// record exists; expired records are deleted and reported as redis.Nil.
//
//	Performance: 1 Redis GET on the hit path.
func (s *Store) Get(ctx context.Context, secretHash [32]byte) (*Session, error) {
	data, err := s.redis.Get(ctx, s.key(secretHash)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		return nil, err
	}

	if time.Now().Unix() >= sess.ExpiresAt {
		_ = s.Delete(ctx, secretHash)
		return nil, redis.Nil
	}

	return sess, nil
}

// Delete removes a session record and its index entry. Deleting an absent
// session is not an error.
func (s *Store) Delete(ctx context.Context, secretHash [32]byte) error {
	sessionKey := s.key(secretHash)

	data, err := s.redis.Get(ctx, sessionKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	accountID := ""
	if sess, decodeErr := Decode(data); decodeErr == nil {
		accountID = sess.AccountID
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sessionKey)
		if accountID != "" {
			pipe.SRem(ctx, s.accountKey(accountID), hex.EncodeToString(secretHash[:]))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// DeleteAllForAccount removes every live session for an account. Used after
// a password reset so stolen bearer secrets stop working immediately.
func (s *Store) DeleteAllForAccount(ctx context.Context, accountID string) error {
	accountKey := s.accountKey(accountID)

	hashes, err := s.redis.SMembers(ctx, accountKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, h := range hashes {
			pipe.Del(ctx, s.prefix+":"+h)
		}
		pipe.Del(ctx, accountKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// ActiveSessionCount reports the number of indexed sessions for an account.
func (s *Store) ActiveSessionCount(ctx context.Context, accountID string) (int64, error) {
	count, err := s.redis.SCard(ctx, s.accountKey(accountID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return count, nil
}
