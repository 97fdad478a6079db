package vaultgate

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nethrall/vaultgate/internal"
	"github.com/nethrall/vaultgate/jwt"
	"github.com/nethrall/vaultgate/session"
	"github.com/redis/go-redis/v9"
)

// EstablishSession creates a session for the account and returns it with
// the bearer secret populated. This is the only moment the secret exists in
// plaintext on the server side; hand it to the client transport (an httpOnly
// cookie in the reference setup) and let it go.
func (e *Engine) EstablishSession(ctx context.Context, accountID string) (*Session, error) {
	if e == nil || e.accounts == nil || e.sessionStore == nil {
		return nil, ErrEngineNotReady
	}

	account, err := e.accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, errors.Join(ErrUnavailable, err)
	}

	_, secret, err := internal.NewSessionSecret()
	if err != nil {
		return nil, errors.Join(ErrUnavailable, err)
	}

	now := time.Now()
	sess := &session.Session{
		SessionID: uuid.NewString(),
		AccountID: account.AccountID,
		Email:     account.Email,
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(e.config.Session.Lifetime).Unix(),
	}

	if err := e.sessionStore.Save(ctx, internal.HashSecretString(secret), sess, e.config.Session.Lifetime); err != nil {
		return nil, errors.Join(ErrUnavailable, err)
	}

	e.metricInc(MetricSessionEstablished)
	e.emitAudit(ctx, auditEventSessionEstablished, true, account.AccountID, sess.SessionID, nil, nil)

	return &Session{
		SessionID: sess.SessionID,
		AccountID: account.AccountID,
		Secret:    secret,
		CreatedAt: now,
	}, nil
}

// CurrentAccount resolves a bearer secret to its account. It never returns
// an error once the engine is wired: a missing, expired, or malformed
// session yields (nil, nil), and so does any store or provider failure.
// Absence of a session is an answer; callers treat nil as signed-out and
// never see a transient backend error through this path.
func (e *Engine) CurrentAccount(ctx context.Context, secret string) (*Account, error) {
	if e == nil || e.accounts == nil || e.sessionStore == nil {
		return nil, ErrEngineNotReady
	}
	if secret == "" {
		return nil, nil
	}
	if _, err := internal.DecodeSessionSecret(secret); err != nil {
		return nil, nil
	}

	sess, err := e.sessionStore.Get(ctx, internal.HashSecretString(secret))
	if err != nil {
		e.metricInc(MetricSessionLookupMiss)
		return nil, nil
	}

	account, err := e.accounts.GetAccountByID(ctx, sess.AccountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			// Account deleted out from under the session; drop the session.
			_ = e.sessionStore.Delete(ctx, internal.HashSecretString(secret))
		}
		return nil, nil
	}

	return account, nil
}

// SignOut destroys the session behind the bearer secret. Destroying an
// already absent session succeeds.
func (e *Engine) SignOut(ctx context.Context, secret string) error {
	if e == nil || e.sessionStore == nil {
		return ErrEngineNotReady
	}
	if secret == "" {
		return nil
	}

	err := e.sessionStore.Delete(ctx, internal.HashSecretString(secret))
	if err == nil {
		e.metricInc(MetricSessionDestroyed)
	}
	e.emitAudit(ctx, auditEventSignOut, err == nil, "", "", err, nil)
	if err != nil {
		return errors.Join(ErrUnavailable, err)
	}
	return nil
}

// InvalidateAccountSessions destroys every session belonging to an account.
func (e *Engine) InvalidateAccountSessions(ctx context.Context, accountID string) error {
	if e == nil || e.sessionStore == nil {
		return ErrEngineNotReady
	}

	if err := e.sessionStore.DeleteAllForAccount(ctx, accountID); err != nil {
		return errors.Join(ErrUnavailable, err)
	}
	e.metricInc(MetricSessionDestroyed)
	e.emitAudit(ctx, auditEventSessionDestroyed, true, accountID, "", nil, nil)
	return nil
}

// ActiveSessionCount reports how many live sessions an account holds.
func (e *Engine) ActiveSessionCount(ctx context.Context, accountID string) (int64, error) {
	if e == nil || e.sessionStore == nil {
		return 0, ErrEngineNotReady
	}
	count, err := e.sessionStore.ActiveSessionCount(ctx, accountID)
	if err != nil {
		return 0, errors.Join(ErrUnavailable, err)
	}
	return count, nil
}

// MintAccessAssertion derives a short-lived signed assertion from a live
// session, for presentation to services that verify without Redis access.
// Assertions must be configured with a secret at build time.
func (e *Engine) MintAccessAssertion(ctx context.Context, secret string) (string, error) {
	if e == nil || e.sessionStore == nil {
		return "", ErrEngineNotReady
	}
	if e.assertions == nil {
		return "", errors.New("access assertions not configured")
	}

	sess, err := e.sessionStore.Get(ctx, internal.HashSecretString(secret))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			e.metricInc(MetricSessionLookupMiss)
			return "", ErrForbidden
		}
		return "", errors.Join(ErrUnavailable, err)
	}

	return e.assertions.CreateAssertion(sess.AccountID, sess.SessionID, sess.Email)
}

// ParseAccessAssertion verifies an assertion's signature and expiry and
// returns its claims. It performs no session lookup; a destroyed session's
// assertions stay valid until they expire.
func (e *Engine) ParseAccessAssertion(tokenStr string) (*jwt.AssertionClaims, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if e.assertions == nil {
		return nil, errors.New("access assertions not configured")
	}

	claims, err := e.assertions.ParseAssertion(tokenStr)
	if err != nil {
		return nil, ErrForbidden
	}
	return claims, nil
}
