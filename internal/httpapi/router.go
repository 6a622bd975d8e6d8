package httpapi

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/educatebharat/otpauth"
	"github.com/educatebharat/otpauth/middleware"
	"github.com/gin-gonic/gin"
)

// Service is the part of *otpauth.Engine the API calls.
type Service interface {
	middleware.Authenticator

	IssueOTP(ctx context.Context, email string) error
	Register(ctx context.Context, in otpauth.RegisterInput) (otpauth.Identity, error)
	ResetPassword(ctx context.Context, email, code, newPassword string) error
	Login(ctx context.Context, email, password string) (otpauth.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (otpauth.SessionPair, error)
	Logout(ctx context.Context, identityID string)
	GetIdentity(ctx context.Context, id string) (otpauth.Identity, error)
	RequestAccountDeletion(ctx context.Context, id string) error
	AccessTTL() time.Duration
	RefreshTTL() time.Duration
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Options configures NewRouter.
type Options struct {
	Cookies CookieConfig
	// Checks run on GET /healthz, keyed by dependency name.
	Checks       map[string]HealthCheck
	CheckTimeout time.Duration
	// Metrics is mounted on GET /metrics when non-nil.
	Metrics   http.Handler
	AccessLog bool
}

type server struct {
	svc          Service
	cookies      CookieConfig
	checks       map[string]HealthCheck
	checkTimeout time.Duration
}

// NewRouter builds the gin engine serving the auth routes.
func NewRouter(svc Service, opts Options) *gin.Engine {
	s := &server{
		svc:          svc,
		cookies:      opts.Cookies,
		checks:       opts.Checks,
		checkTimeout: opts.CheckTimeout,
	}
	if s.checkTimeout <= 0 {
		s.checkTimeout = 2 * time.Second
	}

	r := gin.New()
	r.Use(gin.Recovery())
	if opts.AccessLog {
		r.Use(gin.Logger())
	}
	r.Use(requestMeta)

	r.GET("/", s.home)
	r.GET("/healthz", s.healthz)
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics))
	}

	r.POST("/sendotp", s.sendOTP)
	r.POST("/register", s.register)
	r.POST("/login", s.login)
	r.POST("/changepassword", s.changePassword)
	r.POST("/refresh", s.refresh)

	protected := r.Group("/")
	protected.Use(middleware.RequireSession(svc, middleware.WithRejectHandler(reject)))
	{
		protected.GET("/checklogin", s.checkLogin)
		protected.GET("/getuser", s.getUser)
		protected.GET("/logout", s.logout)
		protected.POST("/delete-account-request", s.deleteAccountRequest)
	}

	return r
}

// requestMeta hands the caller's address and agent to the engine for audit.
func requestMeta(c *gin.Context) {
	ctx := otpauth.WithClientIP(c.Request.Context(), c.ClientIP())
	ctx = otpauth.WithUserAgent(ctx, c.Request.UserAgent())
	c.Request = c.Request.WithContext(ctx)
	c.Next()
}

func reject(c *gin.Context, _ error) {
	abort(c, http.StatusUnauthorized, "Unauthorized")
}

func (s *server) home(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Auth route home"})
}

func (s *server) healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.checkTimeout)
	defer cancel()

	var failed []string
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			failed = append(failed, name)
		}
	}

	if len(failed) > 0 {
		sort.Strings(failed)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "failed": failed})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
