// Package internal contains helper utilities that are intentionally private to
// vaultgate: secure random identifier and OTP generation, session secret
// encoding, and SHA-256 helpers.
//
// # What this package must NOT do
//
//   - Export types that appear in the public vaultgate API.
//   - Be imported by any package outside the vaultgate module.
package internal
