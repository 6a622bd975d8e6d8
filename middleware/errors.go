package middleware

import "errors"

var (
	errNoAuthenticator = errors.New("middleware: no authenticator configured")
	errNoToken         = errors.New("middleware: no access token presented")
)
