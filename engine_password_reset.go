package vaultgate

import (
	"context"
	"errors"

	"github.com/nethrall/vaultgate/internal"
)

// RequestPasswordReset starts the two-phase reset flow: it issues an OTP
// challenge to the account behind the email. The new password is not
// accepted here; it only becomes settable after VerifyResetChallenge.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) (*ChallengeHandle, error) {
	if e == nil || e.accounts == nil || e.challengeStore == nil || e.mailer == nil {
		return nil, ErrEngineNotReady
	}

	email = normalizeEmail(email)
	if email == "" {
		return nil, ErrAccountNotFound
	}

	account, err := e.accounts.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			e.emitAudit(ctx, auditEventResetRequested, false, "", "", ErrAccountNotFound, func() map[string]string {
				return map[string]string{
					"email": email,
				}
			})
			return nil, ErrAccountNotFound
		}
		return nil, errors.Join(ErrUnavailable, err)
	}

	handle, err := e.issueChallenge(ctx, account, auditEventResetRequested)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricResetRequested)
	return handle, nil
}

// VerifyResetChallenge completes the OTP phase of a reset. On success it
// opens a short-lived server-side gate for the account and returns a
// single-use grant token; ConfirmPasswordReset requires both. The token is
// worthless without the matching server-side gate entry.
func (e *Engine) VerifyResetChallenge(ctx context.Context, challengeID, code string) (string, error) {
	if e == nil || e.resetGate == nil {
		return "", ErrEngineNotReady
	}

	accountID, err := e.VerifyChallenge(ctx, challengeID, code)
	if err != nil {
		return "", err
	}

	_, grant, err := internal.NewSessionSecret()
	if err != nil {
		return "", errors.Join(ErrUnavailable, err)
	}

	if err := e.resetGate.Open(ctx, accountID, internal.HashSecretString(grant)); err != nil {
		return "", errors.Join(ErrUnavailable, err)
	}

	e.emitAudit(ctx, auditEventResetVerified, true, accountID, "", nil, nil)
	return grant, nil
}

// ConfirmPasswordReset sets the new password. It refuses to run unless the
// reset gate for the account is open and the grant token matches; a client
// cannot reach this step by skipping the OTP phase, whatever its UI claims.
// Success consumes the gate and destroys every session of the account.
func (e *Engine) ConfirmPasswordReset(ctx context.Context, accountID, grant, newPassword, confirmPassword string) error {
	if e == nil || e.accounts == nil || e.resetGate == nil || e.passwordHash == nil {
		return ErrEngineNotReady
	}

	if newPassword != confirmPassword {
		e.metricInc(MetricResetRejected)
		e.emitAudit(ctx, auditEventResetRejected, false, accountID, "", ErrPasswordMismatch, nil)
		return ErrPasswordMismatch
	}

	if err := e.resetGate.Consume(ctx, accountID, internal.HashSecretString(grant)); err != nil {
		if errors.Is(err, errResetGateNotOpen) {
			e.metricInc(MetricResetRejected)
			e.emitAudit(ctx, auditEventResetRejected, false, accountID, "", ErrResetUnauthorized, nil)
			return ErrResetUnauthorized
		}
		return errors.Join(ErrUnavailable, err)
	}

	hash, err := e.passwordHash.Hash(newPassword)
	if err != nil {
		e.metricInc(MetricResetRejected)
		e.emitAudit(ctx, auditEventResetRejected, false, accountID, "", ErrPasswordPolicy, nil)
		return ErrPasswordPolicy
	}
	newPassword = ""
	confirmPassword = ""

	if err := e.accounts.UpdatePasswordHash(ctx, accountID, hash); err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return ErrAccountNotFound
		}
		return errors.Join(ErrUnavailable, err)
	}

	if err := e.InvalidateAccountSessions(ctx, accountID); err != nil {
		return err
	}

	e.metricInc(MetricResetConfirmed)
	e.emitAudit(ctx, auditEventResetConfirmed, true, accountID, "", nil, nil)
	return nil
}
