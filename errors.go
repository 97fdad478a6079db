package vaultgate

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrAccountExists is returned by CreateAccount when the email is already registered.
	ErrAccountExists = errors.New("account already exists")
	// ErrAccountNotFound is returned when no account matches the given email or ID.
	ErrAccountNotFound = errors.New("account not found")
	// ErrInvalidCredentials is returned when password verification fails.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrChallengeInvalid is returned when an OTP code does not match the pending challenge.
	ErrChallengeInvalid = errors.New("challenge code invalid")
	// ErrChallengeExpired is returned when the pending challenge has passed its TTL.
	ErrChallengeExpired = errors.New("challenge expired")
	// ErrChallengeRateLimited is returned when verify attempts exceed the configured window.
	ErrChallengeRateLimited = errors.New("challenge attempts rate limited")
	// ErrResendCooldown is returned when a resend is requested before the cooldown elapses.
	// Errors wrapping it carry the remaining wait; see CooldownError.
	ErrResendCooldown = errors.New("resend cooldown active")
	// ErrDispatchFailed is returned when the mail collaborator fails to deliver a code.
	ErrDispatchFailed = errors.New("code dispatch failed")
	// ErrForbidden is returned for any document operation the caller is not permitted
	// to perform. It deliberately carries no detail about which check failed.
	ErrForbidden = errors.New("not permitted")
	// ErrUnknownGrantee is returned when a grant targets an email with no account.
	ErrUnknownGrantee = errors.New("grantee account not found")
	// ErrAlreadyGranted is returned when a grant targets an email already on the list.
	ErrAlreadyGranted = errors.New("email already granted")
	// ErrSelfGrant is returned when a grant targets the owner's own email.
	ErrSelfGrant = errors.New("cannot grant the owner's own email")
	// ErrNoGrantees is returned when GrantAccess is called without any grantee emails.
	ErrNoGrantees = errors.New("no grantee emails given")
	// ErrPasswordMismatch is returned when newPassword and confirmPassword differ.
	ErrPasswordMismatch = errors.New("password confirmation mismatch")
	// ErrResetUnauthorized is returned when reset phase 2 runs without a verified OTP gate.
	ErrResetUnauthorized = errors.New("password reset not authorized")
	// ErrPasswordPolicy is returned when a password fails hashing policy checks.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrDocumentNotFound is returned when no document matches the given ID.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrUnavailable is returned for transient backend failures (Redis, providers).
	ErrUnavailable = errors.New("backend unavailable")
	// ErrEngineNotReady is returned when the engine is used before Build wired it.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// CooldownError reports how long the caller must wait before the next resend.
// It wraps ErrResendCooldown so errors.Is(err, ErrResendCooldown) holds.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("resend cooldown active: retry in %s", e.Remaining.Round(time.Second))
}

// Unwrap makes the error match ErrResendCooldown.
func (e *CooldownError) Unwrap() error {
	return ErrResendCooldown
}
