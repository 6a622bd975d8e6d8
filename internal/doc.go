// Package internal holds helpers private to otpauth, currently secure numeric
// code generation.
//
// # Sub-packages
//
//   - flows: flow orchestrators behind every Engine operation
//   - stores: the Redis-backed verification ledger
//
// # What this package must NOT do
//
//   - Export types that appear in the public otpauth API.
//   - Be imported by any package outside this module.
package internal
