// Package httpapi exposes the otpauth Engine over HTTP with gin.
//
// Every response except /checklogin, /logout, /healthz and /metrics uses the
// {status, message, data, ok} envelope. Session tokens travel in the
// authToken and refreshToken cookies and are also returned in the login body.
package httpapi
