package vaultgate

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const resetGateTTL = 10 * time.Minute

var (
	errResetGateNotOpen          = errors.New("reset gate not open")
	errResetGateRedisUnavailable = errors.New("reset gate redis unavailable")
)

// resetGate records, server-side, that an account completed the challenge
// phase of a password reset. The confirm phase refuses to run unless the
// gate is open and the caller presents the grant token handed out when it
// opened. Only the token's SHA-256 is stored.
type resetGate struct {
	redis  redis.UniversalClient
	prefix string
}

func newResetGate(redisClient redis.UniversalClient, prefix string) *resetGate {
	return &resetGate{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (g *resetGate) key(accountID string) string {
	return g.prefix + "g:" + accountID
}

// Open stores the grant hash for the account, replacing any earlier grant.
func (g *resetGate) Open(ctx context.Context, accountID string, grantHash [32]byte) error {
	if err := g.redis.Set(ctx, g.key(accountID), grantHash[:], resetGateTTL).Err(); err != nil {
		return fmt.Errorf("%w: %v", errResetGateRedisUnavailable, err)
	}
	return nil
}

// Consume closes the gate iff the presented grant matches. The GetDel keeps
// the grant single use even under concurrent confirms.
func (g *resetGate) Consume(ctx context.Context, accountID string, providedHash [32]byte) error {
	stored, err := g.redis.GetDel(ctx, g.key(accountID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return errResetGateNotOpen
		}
		return fmt.Errorf("%w: %v", errResetGateRedisUnavailable, err)
	}

	if len(stored) != len(providedHash) || subtle.ConstantTimeCompare(stored, providedHash[:]) != 1 {
		return errResetGateNotOpen
	}

	return nil
}

// Close discards any open grant for the account.
func (g *resetGate) Close(ctx context.Context, accountID string) error {
	if err := g.redis.Del(ctx, g.key(accountID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", errResetGateRedisUnavailable, err)
	}
	return nil
}
