package vaultgate

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const challengeRecordVersionV1 = 1

var (
	errChallengeNotFound         = errors.New("challenge record not found")
	errChallengeExpired          = errors.New("challenge record expired")
	errChallengeCodeMismatch     = errors.New("challenge code mismatch")
	errChallengeRedisUnavailable = errors.New("challenge redis unavailable")
)

// pendingChallenge is the stored form of an in-flight OTP. The plaintext
// code never appears here; only its SHA-256.
type pendingChallenge struct {
	ChallengeID       string
	AccountID         string
	CodeHash          [32]byte
	Attempts          uint16
	IssuedAt          int64
	ExpiresAt         int64
	ResendAvailableAt int64
}

// challengeStore keeps at most one live challenge per account. The primary
// record is keyed by account ID so a second issue atomically supersedes the
// first (upsert, never delete-then-insert); a secondary index maps the
// opaque challenge ID back to the account. A stale index entry left behind
// by a supersede resolves to a record with a different challenge ID and is
// rejected at consume time.
type challengeStore struct {
	redis  redis.UniversalClient
	prefix string
}

func newChallengeStore(redisClient redis.UniversalClient, prefix string) *challengeStore {
	return &challengeStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *challengeStore) accountKey(accountID string) string {
	return s.prefix + ":" + accountID
}

func (s *challengeStore) indexKey(challengeID string) string {
	return s.prefix + "i:" + challengeID
}

// Put upserts the live challenge for an account and (re)points the index.
func (s *challengeStore) Put(ctx context.Context, record *pendingChallenge, ttl time.Duration) error {
	encoded, err := encodeChallengeRecord(record)
	if err != nil {
		return err
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.accountKey(record.AccountID), encoded, ttl)
		pipe.Set(ctx, s.indexKey(record.ChallengeID), record.AccountID, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", errChallengeRedisUnavailable, err)
	}

	return nil
}

// Get returns the live challenge for an account, or errChallengeNotFound.
func (s *challengeStore) Get(ctx context.Context, accountID string) (*pendingChallenge, error) {
	data, err := s.redis.Get(ctx, s.accountKey(accountID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errChallengeNotFound
		}
		return nil, fmt.Errorf("%w: %v", errChallengeRedisUnavailable, err)
	}

	return decodeChallengeRecord(data)
}

// Remove deletes the account's challenge only if it still carries the given
// challenge ID. Used to roll back an issue whose dispatch failed without
// clobbering a concurrent supersede.
func (s *challengeStore) Remove(ctx context.Context, accountID, challengeID string) error {
	const maxRetries = 4
	key := s.accountKey(accountID)

	for i := 0; i < maxRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			record, err := decodeChallengeRecord(data)
			if err != nil {
				return err
			}
			if record.ChallengeID != challengeID {
				return nil
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				pipe.Del(ctx, s.indexKey(challengeID))
				return nil
			})
			return err
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return nil
			}
			return fmt.Errorf("%w: %v", errChallengeRedisUnavailable, err)
		}
		return nil
	}

	return nil
}

// Consume verifies a code against the live challenge and deletes the record
// on success (single use). The record is re-read inside the transaction so
// the decision never rests on stale state. A mismatched code increments the
// attempt counter but leaves the challenge live until its TTL; expired or
// superseded challenges are cleaned up as a side effect.
func (s *challengeStore) Consume(ctx context.Context, challengeID string, providedHash [32]byte) (*pendingChallenge, error) {
	accountID, err := s.redis.Get(ctx, s.indexKey(challengeID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errChallengeNotFound
		}
		return nil, fmt.Errorf("%w: %v", errChallengeRedisUnavailable, err)
	}

	const maxRetries = 4
	key := s.accountKey(accountID)

	for i := 0; i < maxRetries; i++ {
		var matched *pendingChallenge

		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			record, err := decodeChallengeRecord(data)
			if err != nil {
				return err
			}

			if record.ChallengeID != challengeID {
				// Superseded by a newer issue; the presented code can
				// never match the live challenge.
				return errChallengeCodeMismatch
			}

			if time.Now().Unix() > record.ExpiresAt {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					pipe.Del(ctx, s.indexKey(challengeID))
					return nil
				})
				if err != nil {
					return err
				}
				return errChallengeExpired
			}

			if subtle.ConstantTimeCompare(record.CodeHash[:], providedHash[:]) != 1 {
				record.Attempts++

				ttl := time.Until(time.Unix(record.ExpiresAt, 0))
				if ttl <= 0 {
					_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
						pipe.Del(ctx, key)
						pipe.Del(ctx, s.indexKey(challengeID))
						return nil
					})
					if err != nil {
						return err
					}
					return errChallengeExpired
				}

				updated, err := encodeChallengeRecord(record)
				if err != nil {
					return err
				}

				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Set(ctx, key, updated, ttl)
					return nil
				})
				if err != nil {
					return err
				}
				return errChallengeCodeMismatch
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				pipe.Del(ctx, s.indexKey(challengeID))
				return nil
			})
			if err != nil {
				return err
			}

			matched = record
			return nil
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, redis.Nil):
				return nil, errChallengeNotFound
			case errors.Is(err, errChallengeNotFound),
				errors.Is(err, errChallengeExpired),
				errors.Is(err, errChallengeCodeMismatch):
				return nil, err
			default:
				return nil, fmt.Errorf("%w: %v", errChallengeRedisUnavailable, err)
			}
		}

		return matched, nil
	}

	return nil, errChallengeNotFound
}

func encodeChallengeRecord(record *pendingChallenge) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(challengeRecordVersionV1)

	if err := binary.Write(&buf, binary.BigEndian, record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.IssuedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ResendAvailableAt); err != nil {
		return nil, err
	}

	for _, field := range []string{record.ChallengeID, record.AccountID} {
		if len(field) > 255 {
			return nil, errors.New("challenge record field too long")
		}
		buf.WriteByte(byte(len(field)))
		buf.WriteString(field)
	}
	buf.Write(record.CodeHash[:])

	return buf.Bytes(), nil
}

func decodeChallengeRecord(data []byte) (*pendingChallenge, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != challengeRecordVersionV1 {
		return nil, errors.New("invalid challenge record version")
	}

	record := &pendingChallenge{}

	if err := binary.Read(reader, binary.BigEndian, &record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.IssuedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.ResendAvailableAt); err != nil {
		return nil, err
	}

	for _, target := range []*string{&record.ChallengeID, &record.AccountID} {
		length, err := reader.ReadByte()
		if err != nil {
			return nil, err
		}
		raw := make([]byte, length)
		if _, err := io.ReadFull(reader, raw); err != nil {
			return nil, err
		}
		*target = string(raw)
	}

	if _, err := io.ReadFull(reader, record.CodeHash[:]); err != nil {
		return nil, err
	}

	return record, nil
}
