// Package vaultgate provides the authentication and sharing-authorization core
// for a document vault service: password-gated email OTP sign-in, Redis-backed
// opaque session tokens, a two-phase password reset flow, and owner/grantee
// access control over shared documents.
//
// The package is a library, not a service. It is embedded behind a
// request-handling boundary layer (HTTP, gRPC, anything) that owns transport
// concerns such as cookies. Engine methods are safe to call from multiple
// goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// Durable records live behind caller-supplied collaborators: [AccountProvider]
// owns account rows, [DocumentStore] owns document metadata and grant lists,
// and [Mailer] delivers OTP codes. vaultgate itself owns only the ephemeral
// security state — pending OTP challenges, sessions, resend cooldowns, and
// password-reset gates — all of which live in Redis so that any process
// instance sees the same state.
//
// # What this package must NOT do
//
//   - Read ambient request state. Every operation takes its inputs (bearer
//     secret, caller identity) as explicit parameters.
//   - Store or log plaintext codes, passwords, or session secrets. Only
//     SHA-256 hashes are persisted; comparisons are constant-time.
//   - Expose Redis clients or internal record encodings in its public API.
package vaultgate
