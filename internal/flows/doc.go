// Package flows contains the orchestrators behind every Engine operation.
//
// Each flow function (RunIssueOTP, RunRegister, RunLogin, and so on) accepts a
// typed dependency struct and returns results without side effects beyond
// those dependencies. The Engine builds the dependency structs once and stays
// thin, and tests drive each flow with plain function fakes.
//
// # Architecture boundaries
//
// Flow functions coordinate the credential store, verification ledger,
// hashers, token managers, mailer, audit and metrics. They do NOT own any of
// these resources; ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import otpauth (to avoid import cycles).
//   - Perform I/O directly; all I/O is mediated through dependency functions.
package flows
