package vaultgate

import (
	"errors"
	"time"

	"github.com/nethrall/vaultgate/password"
)

// Config carries every tunable policy of the engine. Configure it before
// Build; Engine treats it as immutable afterwards.
type Config struct {
	Challenge ChallengeConfig
	Session   SessionConfig
	Password  password.Config
	Assertion AssertionConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
CHALLENGE CONFIG
====================================
*/

// ChallengeConfig controls OTP issuance and verification policy.
type ChallengeConfig struct {
	// TTL is the lifetime of a pending challenge.
	TTL time.Duration
	// Digits is the OTP length; 6–10 decimal digits.
	Digits int
	// ResendCooldown is the minimum wait between successive resends for the
	// same account, measured from the previous issue.
	ResendCooldown time.Duration
	// MaxVerifyAttempts bounds failed verify calls per challenge window
	// before ErrChallengeRateLimited. Zero disables the window.
	MaxVerifyAttempts int
	// RedisPrefix namespaces challenge keys.
	RedisPrefix string
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls session lifetime and key layout.
type SessionConfig struct {
	Lifetime    time.Duration
	RedisPrefix string
}

// AssertionConfig controls the optional signed access assertions minted from
// a live session for downstream services. Assertions are disabled when
// Secret is empty.
type AssertionConfig struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the policy values the engine ships with. Callers
// adjust fields and pass the result to [Builder.WithConfig].
func DefaultConfig() Config {
	return Config{
		Challenge: ChallengeConfig{
			TTL:               15 * time.Minute,
			Digits:            6,
			ResendCooldown:    30 * time.Second,
			MaxVerifyAttempts: 10,
			RedisPrefix:       "vch",
		},
		Session: SessionConfig{
			Lifetime:    7 * 24 * time.Hour,
			RedisPrefix: "vs",
		},
		Password: password.Config{
			Memory:      65536,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Assertion: AssertionConfig{
			TTL:    5 * time.Minute,
			Issuer: "vaultgate",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func validateConfig(cfg Config) error {
	if cfg.Challenge.TTL <= 0 {
		return errors.New("challenge TTL must be positive")
	}
	if cfg.Challenge.Digits < 6 || cfg.Challenge.Digits > 10 {
		return errors.New("challenge digits must be between 6 and 10")
	}
	if cfg.Challenge.ResendCooldown < 0 {
		return errors.New("resend cooldown must not be negative")
	}
	if cfg.Challenge.ResendCooldown >= cfg.Challenge.TTL {
		return errors.New("resend cooldown must be shorter than challenge TTL")
	}
	if cfg.Challenge.MaxVerifyAttempts < 0 {
		return errors.New("max verify attempts must not be negative")
	}
	if cfg.Challenge.RedisPrefix == "" {
		return errors.New("challenge redis prefix must not be empty")
	}
	if cfg.Session.Lifetime <= 0 {
		return errors.New("session lifetime must be positive")
	}
	if cfg.Session.RedisPrefix == "" {
		return errors.New("session redis prefix must not be empty")
	}
	if len(cfg.Assertion.Secret) > 0 {
		if len(cfg.Assertion.Secret) < 32 {
			return errors.New("assertion secret must be at least 32 bytes")
		}
		if cfg.Assertion.TTL <= 0 {
			return errors.New("assertion TTL must be positive")
		}
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if cfg.Assertion.Secret != nil {
		out.Assertion.Secret = append([]byte(nil), cfg.Assertion.Secret...)
	}
	return out
}
