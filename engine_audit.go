package vaultgate

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventAccountCreated         = "account_created"
	auditEventAccountCreateDuplicate = "account_create_duplicate"
	auditEventAccountCreateFailure   = "account_create_failure"
	auditEventSignInChallenge        = "sign_in_challenge_issued"
	auditEventSignInFailure          = "sign_in_failure"
	auditEventChallengeIssued        = "challenge_issued"
	auditEventChallengeResent        = "challenge_resent"
	auditEventChallengeCooldown      = "challenge_resend_cooldown"
	auditEventChallengeVerified      = "challenge_verified"
	auditEventChallengeFailed        = "challenge_verify_failed"
	auditEventChallengeRateLimited   = "challenge_rate_limited"
	auditEventDispatchFailure        = "challenge_dispatch_failure"
	auditEventSessionEstablished     = "session_established"
	auditEventSessionDestroyed       = "session_destroyed"
	auditEventSignOut                = "sign_out"
	auditEventResetRequested         = "password_reset_requested"
	auditEventResetVerified          = "password_reset_verified"
	auditEventResetConfirmed         = "password_reset_confirmed"
	auditEventResetRejected          = "password_reset_rejected"
	auditEventAccessGranted          = "share_access_granted"
	auditEventAccessRevoked          = "share_access_revoked"
	auditEventDocumentRenamed        = "document_renamed"
	auditEventDocumentDeleted        = "document_deleted"
	auditEventMutationForbidden      = "share_mutation_forbidden"
)

// AuditErrorCode is the stable error label carried on failed AuditEvents.
type AuditErrorCode string

const (
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrAccountNotFound    AuditErrorCode = "account_not_found"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrChallengeInvalid   AuditErrorCode = "challenge_invalid"
	auditErrChallengeExpired   AuditErrorCode = "challenge_expired"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrCooldown           AuditErrorCode = "resend_cooldown"
	auditErrDispatchFailed     AuditErrorCode = "dispatch_failed"
	auditErrForbidden          AuditErrorCode = "forbidden"
	auditErrUnknownGrantee     AuditErrorCode = "unknown_grantee"
	auditErrAlreadyGranted     AuditErrorCode = "already_granted"
	auditErrPasswordMismatch   AuditErrorCode = "password_mismatch"
	auditErrResetUnauthorized  AuditErrorCode = "reset_unauthorized"
	auditErrPasswordPolicy     AuditErrorCode = "password_policy"
	auditErrDocumentNotFound   AuditErrorCode = "document_not_found"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	accountID string,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	event := AuditEvent{
		EventType: eventType,
		AccountID: accountID,
		SessionID: sessionID,
		Success:   success,
	}
	if metadataBuilder != nil {
		event.Metadata = metadataBuilder()
	}
	e.emitAuditEvent(ctx, event, err)
}

// emitChallengeAudit stamps OTP lifecycle events with their challenge ID.
// The code itself, and its hash, never reach the sink.
func (e *Engine) emitChallengeAudit(
	ctx context.Context,
	eventType string,
	success bool,
	accountID string,
	challengeID string,
	reason string,
	err error,
) {
	if e == nil || e.audit == nil {
		return
	}
	e.emitAuditEvent(ctx, AuditEvent{
		EventType:   eventType,
		AccountID:   accountID,
		ChallengeID: challengeID,
		Reason:      reason,
		Success:     success,
	}, err)
}

// emitShareAudit stamps share-list mutations with the document and the
// grantee emails involved. On a denied mutation, reason names the operation
// that was refused.
func (e *Engine) emitShareAudit(
	ctx context.Context,
	eventType string,
	success bool,
	accountID string,
	documentID string,
	grantees []string,
	reason string,
	err error,
) {
	if e == nil || e.audit == nil {
		return
	}
	e.emitAuditEvent(ctx, AuditEvent{
		EventType:  eventType,
		AccountID:  accountID,
		DocumentID: documentID,
		Grantees:   grantees,
		Reason:     reason,
		Success:    success,
	}, err)
}

func (e *Engine) emitAuditEvent(ctx context.Context, event AuditEvent, err error) {
	event.Timestamp = time.Now().UTC()
	event.IP = clientIPFromContext(ctx)
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}
	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrAccountExists):
		return auditErrDuplicate
	case errors.Is(err, ErrAccountNotFound):
		return auditErrAccountNotFound
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrChallengeInvalid):
		return auditErrChallengeInvalid
	case errors.Is(err, ErrChallengeExpired):
		return auditErrChallengeExpired
	case errors.Is(err, ErrChallengeRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrResendCooldown):
		return auditErrCooldown
	case errors.Is(err, ErrDispatchFailed):
		return auditErrDispatchFailed
	case errors.Is(err, ErrForbidden):
		return auditErrForbidden
	case errors.Is(err, ErrUnknownGrantee):
		return auditErrUnknownGrantee
	case errors.Is(err, ErrAlreadyGranted):
		return auditErrAlreadyGranted
	case errors.Is(err, ErrPasswordMismatch):
		return auditErrPasswordMismatch
	case errors.Is(err, ErrResetUnauthorized):
		return auditErrResetUnauthorized
	case errors.Is(err, ErrPasswordPolicy):
		return auditErrPasswordPolicy
	case errors.Is(err, ErrDocumentNotFound):
		return auditErrDocumentNotFound
	case errors.Is(err, ErrUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
