package vaultgate

import (
	"context"
	"errors"
	"time"

	"github.com/nethrall/vaultgate/internal"
	"github.com/redis/go-redis/v9"
)

// IssueChallenge generates a fresh OTP for the account and mails it. Any
// earlier challenge for the same account is superseded atomically: its code
// stops verifying the moment the new one is stored. If the mail dispatch
// fails the stored challenge is rolled back and ErrDispatchFailed returned.
func (e *Engine) IssueChallenge(ctx context.Context, accountID string) (*ChallengeHandle, error) {
	if e == nil || e.accounts == nil || e.challengeStore == nil || e.mailer == nil {
		return nil, ErrEngineNotReady
	}

	account, err := e.accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, errors.Join(ErrUnavailable, err)
	}

	return e.issueChallenge(ctx, account, auditEventChallengeIssued)
}

// ResendChallenge issues a replacement OTP for the account's pending
// challenge. Requests inside the cooldown window return a *CooldownError
// carrying the remaining wait; no code is generated and no mail is sent. A
// resend outside the window supersedes the pending code.
func (e *Engine) ResendChallenge(ctx context.Context, accountID string) (*ChallengeHandle, error) {
	if e == nil || e.accounts == nil || e.challengeStore == nil || e.mailer == nil {
		return nil, ErrEngineNotReady
	}

	record, err := e.challengeStore.Get(ctx, accountID)
	if err != nil && !errors.Is(err, errChallengeNotFound) {
		return nil, mapChallengeStoreError(err)
	}

	if record != nil {
		if remaining := time.Until(time.Unix(record.ResendAvailableAt, 0)); remaining > 0 {
			e.metricInc(MetricChallengeCooldownHit)
			cooldownErr := &CooldownError{Remaining: remaining}
			e.emitChallengeAudit(ctx, auditEventChallengeCooldown, false, accountID, record.ChallengeID, "", cooldownErr)
			return nil, cooldownErr
		}
	}

	account, err := e.accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, errors.Join(ErrUnavailable, err)
	}

	handle, err := e.issueChallenge(ctx, account, auditEventChallengeResent)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricChallengeResent)
	return handle, nil
}

// VerifyChallenge checks a code against the account's pending challenge and
// consumes it on success. A consumed, expired, or superseded challenge never
// verifies again. The code is single use even under concurrent verification.
func (e *Engine) VerifyChallenge(ctx context.Context, challengeID, code string) (string, error) {
	if e == nil || e.challengeStore == nil {
		return "", ErrEngineNotReady
	}

	if challengeID == "" || len(code) != e.config.Challenge.Digits || !internal.IsNumericString(code) {
		e.metricInc(MetricChallengeVerifyFailed)
		e.emitChallengeAudit(ctx, auditEventChallengeFailed, false, "", "", "malformed_input", ErrChallengeInvalid)
		return "", ErrChallengeInvalid
	}
	if _, err := internal.ParseChallengeID(challengeID); err != nil {
		e.metricInc(MetricChallengeVerifyFailed)
		e.emitChallengeAudit(ctx, auditEventChallengeFailed, false, "", "", "malformed_challenge_id", ErrChallengeInvalid)
		return "", ErrChallengeInvalid
	}

	if e.challengeLimiter != nil {
		if err := e.challengeLimiter.CheckVerify(ctx, challengeID, clientIPFromContext(ctx)); err != nil {
			if errors.Is(err, errChallengeRateLimited) {
				e.metricInc(MetricChallengeRateLimited)
				e.emitChallengeAudit(ctx, auditEventChallengeRateLimited, false, "", challengeID, "", ErrChallengeRateLimited)
				return "", ErrChallengeRateLimited
			}
			return "", errors.Join(ErrUnavailable, err)
		}
	}

	record, err := e.challengeStore.Consume(ctx, challengeID, internal.HashBytes([]byte(code)))
	if err != nil {
		mapped := mapChallengeStoreError(err)
		e.metricInc(MetricChallengeVerifyFailed)
		e.emitChallengeAudit(ctx, auditEventChallengeFailed, false, "", challengeID, "", mapped)
		return "", mapped
	}

	e.metricInc(MetricChallengeVerified)
	e.emitChallengeAudit(ctx, auditEventChallengeVerified, true, record.AccountID, challengeID, "", nil)

	return record.AccountID, nil
}

// VerifySecret is the sign-in completion call: it verifies the OTP and, on
// success, establishes a session for the challenge's account.
func (e *Engine) VerifySecret(ctx context.Context, challengeID, code string) (*Session, error) {
	accountID, err := e.VerifyChallenge(ctx, challengeID, code)
	if err != nil {
		return nil, err
	}
	return e.EstablishSession(ctx, accountID)
}

func (e *Engine) issueChallenge(ctx context.Context, account *Account, eventType string) (*ChallengeHandle, error) {
	cid, err := internal.NewChallengeID()
	if err != nil {
		return nil, errors.Join(ErrUnavailable, err)
	}
	challengeID := cid.String()

	code, err := internal.NewOTP(e.config.Challenge.Digits)
	if err != nil {
		return nil, errors.Join(ErrUnavailable, err)
	}

	now := time.Now()
	record := &pendingChallenge{
		ChallengeID:       challengeID,
		AccountID:         account.AccountID,
		CodeHash:          internal.HashBytes([]byte(code)),
		IssuedAt:          now.Unix(),
		ExpiresAt:         now.Add(e.config.Challenge.TTL).Unix(),
		ResendAvailableAt: now.Add(e.config.Challenge.ResendCooldown).Unix(),
	}

	if err := e.challengeStore.Put(ctx, record, e.config.Challenge.TTL); err != nil {
		return nil, mapChallengeStoreError(err)
	}

	if err := e.mailer.SendCode(ctx, account.Email, account.FullName, code); err != nil {
		// Undo the issue so a stale unmailed code cannot linger. Removal is
		// conditional on the challenge ID, so a concurrent supersede wins.
		_ = e.challengeStore.Remove(ctx, account.AccountID, challengeID)
		e.metricInc(MetricDispatchFailure)
		e.emitChallengeAudit(ctx, auditEventDispatchFailure, false, account.AccountID, challengeID, "", ErrDispatchFailed)
		return nil, errors.Join(ErrDispatchFailed, err)
	}
	code = ""

	e.metricInc(MetricChallengeIssued)
	e.emitChallengeAudit(ctx, eventType, true, account.AccountID, challengeID, "", nil)

	return &ChallengeHandle{
		ChallengeID: challengeID,
		AccountID:   account.AccountID,
	}, nil
}

func mapChallengeStoreError(err error) error {
	switch {
	case errors.Is(err, errChallengeNotFound),
		errors.Is(err, errChallengeCodeMismatch),
		errors.Is(err, redis.Nil):
		return ErrChallengeInvalid
	case errors.Is(err, errChallengeExpired):
		return ErrChallengeExpired
	case errors.Is(err, errChallengeRedisUnavailable):
		return ErrUnavailable
	default:
		return ErrUnavailable
	}
}
