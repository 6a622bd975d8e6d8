// Package middleware puts the session gate in front of protected handlers.
//
// [RequireSession] is the gin form used by the bundled HTTP API; [Guard] is
// the same gate for plain net/http handlers. Both read the access token from
// the authToken cookie or an "Authorization: Bearer" header, call
// Authenticate, and expose the identity id to the wrapped handler. They never
// parse tokens themselves.
package middleware
