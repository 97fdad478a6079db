package internaldefs

import (
	vaultgate "github.com/nethrall/vaultgate"
)

// CounterDef pairs an engine counter with its stable export name.
type CounterDef struct {
	ID   vaultgate.MetricID
	Name string
	Help string
}

// CounterDefs is the canonical counter list shared by every exporter.
var CounterDefs = []CounterDef{
	{ID: vaultgate.MetricAccountCreated, Name: "vaultgate_account_created_total", Help: "Successfully created accounts."},
	{ID: vaultgate.MetricAccountCreateDuplicate, Name: "vaultgate_account_create_duplicate_total", Help: "Account creations rejected as duplicate."},
	{ID: vaultgate.MetricSignInFailure, Name: "vaultgate_sign_in_failure_total", Help: "Failed password sign-in attempts."},
	{ID: vaultgate.MetricChallengeIssued, Name: "vaultgate_challenge_issued_total", Help: "Issued OTP challenges, including resends."},
	{ID: vaultgate.MetricChallengeResent, Name: "vaultgate_challenge_resent_total", Help: "Challenge resends outside the cooldown window."},
	{ID: vaultgate.MetricChallengeCooldownHit, Name: "vaultgate_challenge_cooldown_hit_total", Help: "Resend requests refused by the cooldown."},
	{ID: vaultgate.MetricChallengeVerified, Name: "vaultgate_challenge_verified_total", Help: "Successfully verified challenges."},
	{ID: vaultgate.MetricChallengeVerifyFailed, Name: "vaultgate_challenge_verify_failed_total", Help: "Failed challenge verifications."},
	{ID: vaultgate.MetricChallengeRateLimited, Name: "vaultgate_challenge_rate_limited_total", Help: "Rate-limited challenge verifications."},
	{ID: vaultgate.MetricDispatchFailure, Name: "vaultgate_challenge_dispatch_failure_total", Help: "Challenges rolled back after mail dispatch failure."},
	{ID: vaultgate.MetricSessionEstablished, Name: "vaultgate_session_established_total", Help: "Established sessions."},
	{ID: vaultgate.MetricSessionDestroyed, Name: "vaultgate_session_destroyed_total", Help: "Destroyed sessions."},
	{ID: vaultgate.MetricSessionLookupMiss, Name: "vaultgate_session_lookup_miss_total", Help: "Session lookups that found no live session."},
	{ID: vaultgate.MetricResetRequested, Name: "vaultgate_password_reset_requested_total", Help: "Password reset requests."},
	{ID: vaultgate.MetricResetConfirmed, Name: "vaultgate_password_reset_confirmed_total", Help: "Confirmed password resets."},
	{ID: vaultgate.MetricResetRejected, Name: "vaultgate_password_reset_rejected_total", Help: "Rejected password reset confirmations."},
	{ID: vaultgate.MetricAccessGranted, Name: "vaultgate_share_access_granted_total", Help: "Share grants applied."},
	{ID: vaultgate.MetricAccessRevoked, Name: "vaultgate_share_access_revoked_total", Help: "Share revocations applied."},
	{ID: vaultgate.MetricDocumentRenamed, Name: "vaultgate_document_renamed_total", Help: "Document renames applied."},
	{ID: vaultgate.MetricDocumentDeleted, Name: "vaultgate_document_deleted_total", Help: "Document deletions applied."},
	{ID: vaultgate.MetricMutationForbidden, Name: "vaultgate_share_mutation_forbidden_total", Help: "Share mutations denied by access checks."},
}
