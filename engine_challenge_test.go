package vaultgate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nethrall/vaultgate/internal"
)

func createVerifiableAccount(t *testing.T, engine *Engine) *ChallengeHandle {
	t.Helper()

	handle, err := engine.CreateAccount(context.Background(), CreateAccountInput{
		FullName: "Alice Example",
		Email:    "alice@example.com",
		Password: "correct-horse-battery",
	})
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	return handle
}

func TestVerifyChallengeSuccessConsumesCode(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	engine, _, _, mailer := newTestEngine(t, rdb)
	ctx := context.Background()

	handle := createVerifiableAccount(t, engine)
	_, code := mailer.last()

	accountID, err := engine.VerifyChallenge(ctx, handle.ChallengeID, code)
	if err != nil {
		t.Fatalf("VerifyChallenge failed: %v", err)
	}
	if accountID != handle.AccountID {
		t.Fatalf("verified account %q, want %q", accountID, handle.AccountID)
	}

	// Single use: same code never verifies twice.
	if _, err := engine.VerifyChallenge(ctx, handle.ChallengeID, code); !errors.Is(err, ErrChallengeInvalid) {
		t.Fatalf("expected ErrChallengeInvalid on replay, got %v", err)
	}
}

func TestVerifyChallengeWrongCode(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	engine, _, _, mailer := newTestEngine(t, rdb)
	ctx := context.Background()

	handle := createVerifiableAccount(t, engine)
	_, code := mailer.last()

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	if _, err := engine.VerifyChallenge(ctx, handle.ChallengeID, wrong); !errors.Is(err, ErrChallengeInvalid) {
		t.Fatalf("expected ErrChallengeInvalid, got %v", err)
	}

	// The real code still verifies after a failed attempt.
	if _, err := engine.VerifyChallenge(ctx, handle.ChallengeID, code); err != nil {
		t.Fatalf("VerifyChallenge after mismatch failed: %v", err)
	}
}

func TestVerifyChallengeMalformedInput(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	engine, _, _, _ := newTestEngine(t, rdb)
	ctx := context.Background()

	cases := []struct {
		name        string
		challengeID string
		code        string
	}{
		{"empty challenge id", "", "123456"},
		{"garbage challenge id", "!!!not-base64!!!", "123456"},
		{"short code", "AAAAAAAAAAAAAAAAAAAAAA", "123"},
		{"alpha code", "AAAAAAAAAAAAAAAAAAAAAA", "abc123"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := engine.VerifyChallenge(ctx, tc.challengeID, tc.code); !errors.Is(err, ErrChallengeInvalid) {
				t.Fatalf("expected ErrChallengeInvalid, got %v", err)
			}
		})
	}
}

func TestReissueSupersedesPriorChallenge(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	engine, _, _, mailer := newTestEngine(t, rdb)
	ctx := context.Background()

	handle := createVerifiableAccount(t, engine)
	_, firstCode := mailer.last()

	// Second sign-in issues a fresh challenge for the same account.
	second, err := engine.SignIn(ctx, "alice@example.com", "correct-horse-battery")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	_, secondCode := mailer.last()

	// The superseded code is dead even before any verify attempt.
	if _, err := engine.VerifyChallenge(ctx, handle.ChallengeID, firstCode); !errors.Is(err, ErrChallengeInvalid) {
		t.Fatalf("expected superseded code to fail, got %v", err)
	}

	if _, err := engine.VerifyChallenge(ctx, second.ChallengeID, secondCode); err != nil {
		t.Fatalf("latest challenge should verify: %v", err)
	}
}

func TestResendCooldown(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	engine, _, _, mailer := newTestEngine(t, rdb)
	ctx := context.Background()

	handle := createVerifiableAccount(t, engine)

	_, err := engine.ResendChallenge(ctx, handle.AccountID)
	var cooldown *CooldownError
	if !errors.As(err, &cooldown) {
		t.Fatalf("expected *CooldownError, got %v", err)
	}
	if !errors.Is(err, ErrResendCooldown) {
		t.Fatal("CooldownError must match ErrResendCooldown")
	}
	if cooldown.Remaining <= 0 || cooldown.Remaining > engine.config.Challenge.ResendCooldown {
		t.Fatalf("remaining wait out of range: %v", cooldown.Remaining)
	}
	if len(mailer.codes()) != 1 {
		t.Fatalf("cooldown refusal must not mail a code, got %d mails", len(mailer.codes()))
	}

	// Cooldown refusal leaves the pending challenge intact.
	_, code := mailer.last()
	if _, err := engine.VerifyChallenge(ctx, handle.ChallengeID, code); err != nil {
		t.Fatalf("pending challenge should still verify: %v", err)
	}
}

func TestResendAfterCooldownSupersedes(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	engine, _, _, mailer := newTestEngine(t, rdb)
	ctx := context.Background()

	handle := createVerifiableAccount(t, engine)
	_, firstCode := mailer.last()

	// Rewrite the stored record with an elapsed cooldown.
	record, err := engine.challengeStore.Get(ctx, handle.AccountID)
	if err != nil {
		t.Fatalf("challenge lookup failed: %v", err)
	}
	record.ResendAvailableAt = time.Now().Add(-time.Second).Unix()
	if err := engine.challengeStore.Put(ctx, record, engine.config.Challenge.TTL); err != nil {
		t.Fatalf("challenge rewrite failed: %v", err)
	}

	resent, err := engine.ResendChallenge(ctx, handle.AccountID)
	if err != nil {
		t.Fatalf("ResendChallenge failed: %v", err)
	}
	if resent.ChallengeID == handle.ChallengeID {
		t.Fatal("resend must issue a fresh challenge id")
	}

	_, newCode := mailer.last()
	if _, err := engine.VerifyChallenge(ctx, handle.ChallengeID, firstCode); !errors.Is(err, ErrChallengeInvalid) {
		t.Fatalf("expected superseded code to fail, got %v", err)
	}
	if _, err := engine.VerifyChallenge(ctx, resent.ChallengeID, newCode); err != nil {
		t.Fatalf("resent challenge should verify: %v", err)
	}
}

func TestDispatchFailureRollsBackChallenge(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	engine, provider, _, mailer := newTestEngine(t, rdb)
	ctx := context.Background()

	provider.put(Account{
		AccountID:    "acct-1",
		Email:        "alice@example.com",
		FullName:     "Alice Example",
		PasswordHash: "$argon2id$unused",
	})

	mailer.failNext = true
	_, err := engine.IssueChallenge(ctx, "acct-1")
	if !errors.Is(err, ErrDispatchFailed) {
		t.Fatalf("expected ErrDispatchFailed, got %v", err)
	}

	// No residual challenge may linger for the account.
	if _, err := engine.challengeStore.Get(ctx, "acct-1"); !errors.Is(err, errChallengeNotFound) {
		t.Fatalf("expected rolled-back challenge, got %v", err)
	}
}

func TestVerifyExpiredChallenge(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	engine, _, _, mailer := newTestEngine(t, rdb)
	ctx := context.Background()

	handle := createVerifiableAccount(t, engine)
	_, code := mailer.last()

	record, err := engine.challengeStore.Get(ctx, handle.AccountID)
	if err != nil {
		t.Fatalf("challenge lookup failed: %v", err)
	}
	record.ExpiresAt = time.Now().Add(-time.Minute).Unix()
	if err := engine.challengeStore.Put(ctx, record, engine.config.Challenge.TTL); err != nil {
		t.Fatalf("challenge rewrite failed: %v", err)
	}

	if _, err := engine.VerifyChallenge(ctx, handle.ChallengeID, code); !errors.Is(err, ErrChallengeExpired) {
		t.Fatalf("expected ErrChallengeExpired, got %v", err)
	}

	// Expiry cleanup: the record is gone afterwards.
	if _, err := engine.challengeStore.Get(ctx, handle.AccountID); !errors.Is(err, errChallengeNotFound) {
		t.Fatalf("expected expired record deleted, got %v", err)
	}
}

func TestVerifyRateLimit(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	engine, _, _, mailer := newTestEngine(t, rdb)
	ctx := context.Background()

	handle := createVerifiableAccount(t, engine)
	_, code := mailer.last()

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	max := engine.config.Challenge.MaxVerifyAttempts
	for i := 0; i < max; i++ {
		if _, err := engine.VerifyChallenge(ctx, handle.ChallengeID, wrong); !errors.Is(err, ErrChallengeInvalid) {
			t.Fatalf("attempt %d: expected ErrChallengeInvalid, got %v", i, err)
		}
	}

	if _, err := engine.VerifyChallenge(ctx, handle.ChallengeID, code); !errors.Is(err, ErrChallengeRateLimited) {
		t.Fatalf("expected ErrChallengeRateLimited past the window, got %v", err)
	}
}

func TestConcurrentVerifySingleWinner(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	engine, _, _, mailer := newTestEngine(t, rdb)
	ctx := context.Background()

	handle := createVerifiableAccount(t, engine)
	_, code := mailer.last()

	const racers = 8
	var wg sync.WaitGroup
	results := make(chan error, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.VerifyChallenge(ctx, handle.ChallengeID, code)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins int
	for err := range results {
		if err == nil {
			wins++
		} else if !errors.Is(err, ErrChallengeInvalid) && !errors.Is(err, ErrChallengeRateLimited) {
			t.Fatalf("unexpected racer error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one successful verification, got %d", wins)
	}
}

func TestChallengeCodesAreNumericAndRandom(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 32; i++ {
		code, err := internal.NewOTP(6)
		if err != nil {
			t.Fatalf("NewOTP failed: %v", err)
		}
		if len(code) != 6 || !internal.IsNumericString(code) {
			t.Fatalf("malformed code %q", code)
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Fatal("codes show no variation")
	}
}
