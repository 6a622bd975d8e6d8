// Package stores persists short-lived verification challenges in Redis.
//
// # Design
//
// Each challenge is a versioned binary record under <prefix>:<email> with a
// Redis TTL equal to its expiry. Issuing overwrites the key with one SET, so
// at most one challenge per email is ever live. Consumption is a Lua
// compare-and-delete against the exact bytes the caller verified, which makes
// a code single-use under concurrency.
//
// # Architecture boundaries
//
// This package owns persistence and concurrency control for challenge
// records. It does NOT generate or hash codes and makes no authentication
// decisions; those belong to internal/flows.
//
// # What this package must NOT do
//
//   - Import otpauth or any sibling internal package.
//   - Store or log plaintext codes.
package stores
