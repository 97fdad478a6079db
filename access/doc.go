// Package access implements the authorization predicates for document
// operations: owners hold full rights, grantees hold view-only rights.
//
// All functions are pure — no I/O, no clock, no allocation beyond the
// arguments — so callers can evaluate them against any resource snapshot.
//
// # What this package must NOT do
//
//   - Import vaultgate or any store package (no upward imports).
//   - Resolve identities; callers pass the already-loaded subject and resource.
package access
