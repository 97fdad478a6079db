// Package password implements password hashing and verification with Argon2id.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// The salt is embedded in the encoded hash, so verification recovers it from
// the stored string alone.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Password policy beyond the
// minimum length (confirmation matching, reset authorization) is enforced by
// the Engine.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords — callers supply plaintext and receive hashes.
//   - Import any other vaultgate package.
//   - Log plaintext passwords or hash parameters at runtime.
package password
