// Package jwt mints and parses the short-lived signed assertions the engine
// derives from a live session. An assertion lets downstream services verify a
// caller without a Redis round trip; it is never a substitute for the session
// itself and cannot be refreshed or revoked.
package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Config carries the signing policy. HS256 only; the secret is shared with
// every verifier.
type Config struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
	Leeway time.Duration
}

// Manager signs and verifies assertions with a single symmetric key.
type Manager struct {
	config Config
}

// AssertionClaims is the claim set carried by an assertion. AID is the
// account ID, SID the session ID the assertion was minted from.
type AssertionClaims struct {
	AID string `json:"aid"`
	SID string `json:"sid"`
	EML string `json:"eml,omitempty"`
	jwt.RegisteredClaims
}

func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) < 32 {
		return nil, errors.New("assertion secret must be at least 32 bytes")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	return &Manager{config: cfg}, nil
}

// CreateAssertion signs a fresh assertion for the given account and session.
func (m *Manager) CreateAssertion(accountID, sessionID, email string) (string, error) {
	now := time.Now()

	claims := AssertionClaims{
		AID: accountID,
		SID: sessionID,
		EML: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.config.Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.config.Secret)
}

// ParseAssertion verifies signature, expiry, and issuer, and returns the
// claims. Any failure is reported as an opaque parse error.
func (m *Manager) ParseAssertion(tokenStr string) (*AssertionClaims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &AssertionClaims{}, func(t *jwt.Token) (interface{}, error) {
		return m.config.Secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*AssertionClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}

	return claims, nil
}
