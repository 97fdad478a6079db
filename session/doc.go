// Package session provides Redis-backed session persistence keyed by the
// SHA-256 of the bearer secret, with a compact binary record encoding.
//
// # Binary encoding
//
// Sessions are stored in Redis as a compact binary format (schema version v1).
// The encoder is append-only: future versions add fields but never reinterpret
// old ones.
//
// # Architecture boundaries
//
// This package owns the [Store] (Redis operations) and the [Session] model.
// It does not resolve accounts, mint secrets, or enforce authentication
// policy — those responsibilities belong to the Engine.
//
// # What this package must NOT do
//
//   - Import vaultgate (no upward imports).
//   - Store or accept plaintext bearer secrets; callers pass the hash.
package session
