package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const identityKey = "otpauth.identityID"

// Option customizes RequireSession.
type Option func(*sessionOptions)

type sessionOptions struct {
	onReject func(c *gin.Context, err error)
}

// WithRejectHandler replaces the default 401 response. The handler must
// abort the context.
func WithRejectHandler(fn func(c *gin.Context, err error)) Option {
	return func(o *sessionOptions) {
		if fn != nil {
			o.onReject = fn
		}
	}
}

// RequireSession is the gin session gate. On success the identity id is
// available through IdentityID.
func RequireSession(auth Authenticator, opts ...Option) gin.HandlerFunc {
	o := sessionOptions{onReject: defaultReject}
	for _, opt := range opts {
		opt(&o)
	}

	return func(c *gin.Context) {
		if auth == nil {
			o.onReject(c, errNoAuthenticator)
			return
		}

		token, ok := tokenFromRequest(c.Request)
		if !ok {
			o.onReject(c, errNoToken)
			return
		}

		id, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			o.onReject(c, err)
			return
		}

		c.Set(identityKey, id)
		c.Next()
	}
}

// IdentityID returns the id set by RequireSession.
func IdentityID(c *gin.Context) (string, bool) {
	id := c.GetString(identityKey)
	return id, id != ""
}

func defaultReject(c *gin.Context, _ error) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"status":  http.StatusUnauthorized,
		"message": "Unauthorized",
		"data":    nil,
		"ok":      false,
	})
}
