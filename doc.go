// Package otpauth provides email OTP gated account authentication: one-time
// codes guard registration and password reset, and a successful login mints a
// stateless access/refresh JWT pair.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// otpauth is the public surface. It exposes [Engine], [Builder], [Config] and
// value types ([Identity], [SessionPair], [MetricsSnapshot]). Flow
// orchestration and the Redis verification ledger live under internal/ and
// are never exported. Persistence of identities and mail delivery are
// collaborators supplied by the caller through [CredentialStore] and [Mailer].
//
// # What this package must NOT do
//
//   - Expose Redis clients, internal stores, or encoding details in its public API.
//   - Perform I/O outside of Engine methods.
//   - Import any sub-package that re-imports otpauth (no import cycles).
//
// # Performance contract
//
// Authenticate is the hot path. It parses the access token and performs no
// store or Redis round-trips.
package otpauth
