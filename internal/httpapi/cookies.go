package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	accessCookie  = "authToken"
	refreshCookie = "refreshToken"
)

// CookieConfig controls the session cookies. Cookies are always HttpOnly and
// SameSite=None.
type CookieConfig struct {
	Domain string
	// Secure must stay true in production; browsers reject SameSite=None
	// cookies without it.
	Secure bool
}

func (s *server) setSessionCookies(c *gin.Context, access, refresh string, accessTTL, refreshTTL time.Duration) {
	c.SetSameSite(http.SameSiteNoneMode)
	c.SetCookie(accessCookie, access, int(accessTTL/time.Second), "/", s.cookies.Domain, s.cookies.Secure, true)
	c.SetCookie(refreshCookie, refresh, int(refreshTTL/time.Second), "/", s.cookies.Domain, s.cookies.Secure, true)
}

func (s *server) clearSessionCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteNoneMode)
	c.SetCookie(accessCookie, "", -1, "/", s.cookies.Domain, s.cookies.Secure, true)
	c.SetCookie(refreshCookie, "", -1, "/", s.cookies.Domain, s.cookies.Secure, true)
}
