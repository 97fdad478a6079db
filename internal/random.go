package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// ChallengeID is the opaque handle for a pending OTP challenge.
type ChallengeID [16]byte

const sessionSecretSize = 32

func NewChallengeID() (ChallengeID, error) {
	var cid ChallengeID
	_, err := rand.Read(cid[:])
	return cid, err
}

func (c ChallengeID) String() string {
	// base64url, no padding, compact
	return base64.RawURLEncoding.EncodeToString(c[:])
}

func ParseChallengeID(challengeID string) (ChallengeID, error) {
	var cid ChallengeID

	raw, err := base64.RawURLEncoding.DecodeString(challengeID)
	if err != nil {
		return cid, err
	}
	if len(raw) != len(cid) {
		return cid, errors.New("invalid challenge id size")
	}

	copy(cid[:], raw)
	return cid, nil
}

// NewSessionSecret returns a fresh bearer secret and its base64url form.
// Only the SHA-256 of the secret is ever persisted.
func NewSessionSecret() ([sessionSecretSize]byte, string, error) {
	var secret [sessionSecretSize]byte
	if _, err := rand.Read(secret[:]); err != nil {
		return secret, "", err
	}
	return secret, base64.RawURLEncoding.EncodeToString(secret[:]), nil
}

func DecodeSessionSecret(encoded string) ([sessionSecretSize]byte, error) {
	var secret [sessionSecretSize]byte

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return secret, err
	}
	if len(raw) != len(secret) {
		return secret, errors.New("invalid session secret size")
	}

	copy(secret[:], raw)
	return secret, nil
}

func HashSecretString(secret string) [32]byte {
	return sha256.Sum256([]byte(secret))
}

func HashBytes(b []byte) [32]byte {
	return sha256.Sum256(b)
}

// NewOTP generates a decimal one-time passcode. Each digit is drawn
// independently from crypto/rand so codes carry no positional bias.
func NewOTP(digits int) (string, error) {
	if digits < 6 || digits > 10 {
		return "", errors.New("invalid otp digits")
	}

	var b strings.Builder
	b.Grow(digits)

	max := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}

	otp := b.String()
	if len(otp) != digits {
		return "", fmt.Errorf("invalid otp generation length")
	}
	return otp, nil
}

func IsNumericString(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
