package vaultgate

import (
	"context"
	"errors"
	"strings"
)

// CreateAccount registers a new account and issues a sign-in challenge to
// the given email. A duplicate email is reported as ErrAccountExists; the
// caller may surface it. The returned handle is passed to VerifySecret
// together with the emailed code to establish the first session.
func (e *Engine) CreateAccount(ctx context.Context, input CreateAccountInput) (*ChallengeHandle, error) {
	if e == nil || e.accounts == nil || e.passwordHash == nil {
		return nil, ErrEngineNotReady
	}

	email := normalizeEmail(input.Email)
	fullName := strings.TrimSpace(input.FullName)
	if email == "" || fullName == "" {
		e.emitAudit(ctx, auditEventAccountCreateFailure, false, "", "", ErrPasswordPolicy, func() map[string]string {
			return map[string]string{
				"reason": "invalid_input",
			}
		})
		return nil, ErrPasswordPolicy
	}

	hash, err := e.passwordHash.Hash(input.Password)
	if err != nil {
		e.emitAudit(ctx, auditEventAccountCreateFailure, false, "", "", ErrPasswordPolicy, func() map[string]string {
			return map[string]string{
				"reason": "hash_policy",
			}
		})
		return nil, ErrPasswordPolicy
	}
	input.Password = ""

	account := &Account{
		Email:        email,
		FullName:     fullName,
		PasswordHash: hash,
	}

	if err := e.accounts.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, ErrAccountExists) {
			e.metricInc(MetricAccountCreateDuplicate)
			e.emitAudit(ctx, auditEventAccountCreateDuplicate, false, "", "", ErrAccountExists, func() map[string]string {
				return map[string]string{
					"email": email,
				}
			})
			return nil, ErrAccountExists
		}
		e.emitAudit(ctx, auditEventAccountCreateFailure, false, "", "", err, nil)
		return nil, errors.Join(ErrUnavailable, err)
	}

	handle, err := e.issueChallenge(ctx, account, auditEventChallengeIssued)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricAccountCreated)
	e.emitAudit(ctx, auditEventAccountCreated, true, account.AccountID, "", nil, func() map[string]string {
		return map[string]string{
			"email": email,
		}
	})

	return handle, nil
}

// SignIn checks the password for an email and, on success, issues a sign-in
// challenge. No session exists until the challenge is verified. An unknown
// email is reported as ErrAccountNotFound; a wrong password as
// ErrInvalidCredentials.
func (e *Engine) SignIn(ctx context.Context, email, password string) (*ChallengeHandle, error) {
	if e == nil || e.accounts == nil || e.passwordHash == nil {
		return nil, ErrEngineNotReady
	}

	email = normalizeEmail(email)
	if email == "" || password == "" {
		e.metricInc(MetricSignInFailure)
		e.emitAudit(ctx, auditEventSignInFailure, false, "", "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{
				"reason": "empty_input",
			}
		})
		return nil, ErrInvalidCredentials
	}

	account, err := e.accounts.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			e.metricInc(MetricSignInFailure)
			e.emitAudit(ctx, auditEventSignInFailure, false, "", "", ErrAccountNotFound, func() map[string]string {
				return map[string]string{
					"email": email,
				}
			})
			return nil, ErrAccountNotFound
		}
		e.emitAudit(ctx, auditEventSignInFailure, false, "", "", err, nil)
		return nil, errors.Join(ErrUnavailable, err)
	}

	ok, err := e.passwordHash.Verify(password, account.PasswordHash)
	password = ""
	if err != nil || !ok {
		e.metricInc(MetricSignInFailure)
		e.emitAudit(ctx, auditEventSignInFailure, false, account.AccountID, "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{
				"reason": "password_mismatch",
			}
		})
		return nil, ErrInvalidCredentials
	}

	handle, err := e.issueChallenge(ctx, account, auditEventSignInChallenge)
	if err != nil {
		return nil, err
	}

	return handle, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
