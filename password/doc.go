// Package password hashes and verifies secrets (account passwords and one-time
// codes) with Argon2id.
//
// # Output format
//
// New hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Every call to [Argon2.Hash] draws a fresh random salt, so hashing the same
// secret twice yields two different strings; compare with [Argon2.Verify] only.
//
// Hashes written by the previous Node.js deployment are bcrypt strings
// ($2a$/$2b$/$2y$). [Argon2.Verify] accepts them and [Argon2.NeedsUpgrade]
// reports true so callers can re-hash after the next successful login.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Length policy is enforced by
// the Engine.
//
// # What this package must NOT do
//
//   - Store or retrieve secrets; callers supply plaintext and receive hashes.
//   - Import any other package of this module.
//   - Log plaintext secrets.
package password
