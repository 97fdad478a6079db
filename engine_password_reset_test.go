package vaultgate

import (
	"context"
	"errors"
	"testing"
)

func TestPasswordResetFullFlow(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	engine, _, _, mailer := newTestEngine(t, rdb)
	ctx := context.Background()

	sess := signedInSession(t, engine, mailer)

	handle, err := engine.RequestPasswordReset(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("RequestPasswordReset failed: %v", err)
	}
	_, code := mailer.last()

	grant, err := engine.VerifyResetChallenge(ctx, handle.ChallengeID, code)
	if err != nil {
		t.Fatalf("VerifyResetChallenge failed: %v", err)
	}
	if grant == "" {
		t.Fatal("expected grant token")
	}

	newPassword := "fresh-horse-battery-9"
	if err := engine.ConfirmPasswordReset(ctx, handle.AccountID, grant, newPassword, newPassword); err != nil {
		t.Fatalf("ConfirmPasswordReset failed: %v", err)
	}

	// All prior sessions are destroyed.
	account, err := engine.CurrentAccount(ctx, sess.Secret)
	if err != nil {
		t.Fatalf("CurrentAccount failed: %v", err)
	}
	if account != nil {
		t.Fatal("session survived password reset")
	}

	// Old password no longer signs in; new one does.
	if _, err := engine.SignIn(ctx, "alice@example.com", "correct-horse-battery"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected old password rejected, got %v", err)
	}
	if _, err := engine.SignIn(ctx, "alice@example.com", newPassword); err != nil {
		t.Fatalf("new password should sign in: %v", err)
	}
}

func TestConfirmResetWithoutVerifiedChallenge(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	engine, _, _, _ := newTestEngine(t, rdb)
	ctx := context.Background()

	handle := createVerifiableAccount(t, engine)

	// Phase 2 without phase 1: the server-side gate is closed, whatever
	// grant string the client presents.
	err := engine.ConfirmPasswordReset(ctx, handle.AccountID, "made-up-grant", "fresh-horse-battery-9", "fresh-horse-battery-9")
	if !errors.Is(err, ErrResetUnauthorized) {
		t.Fatalf("expected ErrResetUnauthorized, got %v", err)
	}
}

func TestConfirmResetWrongGrant(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	engine, _, _, mailer := newTestEngine(t, rdb)
	ctx := context.Background()

	createVerifiableAccount(t, engine)

	handle, err := engine.RequestPasswordReset(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("RequestPasswordReset failed: %v", err)
	}
	_, code := mailer.last()

	if _, err := engine.VerifyResetChallenge(ctx, handle.ChallengeID, code); err != nil {
		t.Fatalf("VerifyResetChallenge failed: %v", err)
	}

	err = engine.ConfirmPasswordReset(ctx, handle.AccountID, "wrong-grant", "fresh-horse-battery-9", "fresh-horse-battery-9")
	if !errors.Is(err, ErrResetUnauthorized) {
		t.Fatalf("expected ErrResetUnauthorized, got %v", err)
	}
}

func TestConfirmResetGrantIsSingleUse(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	engine, _, _, mailer := newTestEngine(t, rdb)
	ctx := context.Background()

	createVerifiableAccount(t, engine)

	handle, err := engine.RequestPasswordReset(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("RequestPasswordReset failed: %v", err)
	}
	_, code := mailer.last()

	grant, err := engine.VerifyResetChallenge(ctx, handle.ChallengeID, code)
	if err != nil {
		t.Fatalf("VerifyResetChallenge failed: %v", err)
	}

	pw := "fresh-horse-battery-9"
	if err := engine.ConfirmPasswordReset(ctx, handle.AccountID, grant, pw, pw); err != nil {
		t.Fatalf("ConfirmPasswordReset failed: %v", err)
	}

	if err := engine.ConfirmPasswordReset(ctx, handle.AccountID, grant, pw, pw); !errors.Is(err, ErrResetUnauthorized) {
		t.Fatalf("expected consumed grant rejected, got %v", err)
	}
}

func TestConfirmResetPasswordMismatch(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	engine, _, _, _ := newTestEngine(t, rdb)
	ctx := context.Background()

	handle := createVerifiableAccount(t, engine)

	err := engine.ConfirmPasswordReset(ctx, handle.AccountID, "any-grant", "password-one-111", "password-two-222")
	if !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}
}

func TestRequestResetUnknownEmail(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	engine, _, _, _ := newTestEngine(t, rdb)

	_, err := engine.RequestPasswordReset(context.Background(), "ghost@example.com")
	if !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestResetChallengeCodeRequired(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	engine, _, _, mailer := newTestEngine(t, rdb)
	ctx := context.Background()

	createVerifiableAccount(t, engine)

	handle, err := engine.RequestPasswordReset(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("RequestPasswordReset failed: %v", err)
	}
	_, code := mailer.last()

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	if _, err := engine.VerifyResetChallenge(ctx, handle.ChallengeID, wrong); !errors.Is(err, ErrChallengeInvalid) {
		t.Fatalf("expected ErrChallengeInvalid, got %v", err)
	}
}
