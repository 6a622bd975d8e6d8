// Package jwt signs and verifies the access and refresh tokens issued at login.
//
// A Manager is bound to one token use. Access and refresh managers are built
// from distinct keys, and every token carries a "use" claim that Parse checks,
// so a refresh token can never pass as an access token even if the keys were
// misconfigured to be equal.
package jwt
