package httpapi

import (
	"net/http"

	"github.com/educatebharat/otpauth"
	"github.com/educatebharat/otpauth/middleware"
	"github.com/gin-gonic/gin"
)

type sendOTPRequest struct {
	Email string `json:"email"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	OTP      string `json:"otp"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	Email    string `json:"email"`
	OTP      string `json:"otp"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type sessionData struct {
	User         *otpauth.Identity `json:"user,omitempty"`
	AuthToken    string            `json:"authToken"`
	RefreshToken string            `json:"refreshToken"`
}

// bind decodes a JSON body. An empty body decodes to the zero request so the
// engine reports which fields are missing.
func bind(c *gin.Context, dst any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		respond(c, http.StatusBadRequest, "Invalid request body", nil)
		return false
	}
	return true
}

func (s *server) sendOTP(c *gin.Context) {
	var req sendOTPRequest
	if !bind(c, &req) {
		return
	}

	if err := s.svc.IssueOTP(c.Request.Context(), req.Email); err != nil {
		writeError(c, err, nil)
		return
	}
	respond(c, http.StatusOK, "OTP sent successfully", nil)
}

func (s *server) register(c *gin.Context) {
	var req registerRequest
	if !bind(c, &req) {
		return
	}

	_, err := s.svc.Register(c.Request.Context(), otpauth.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Code:     req.OTP,
	})
	if err != nil {
		writeError(c, err, nil)
		return
	}
	respond(c, http.StatusOK, "registered successfully", nil)
}

func (s *server) login(c *gin.Context) {
	var req loginRequest
	if !bind(c, &req) {
		return
	}

	res, err := s.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err, nil)
		return
	}

	s.setSessionCookies(c, res.Session.AccessToken, res.Session.RefreshToken, s.svc.AccessTTL(), s.svc.RefreshTTL())
	respond(c, http.StatusOK, "Logged in successfully", sessionData{
		User:         &res.Identity,
		AuthToken:    res.Session.AccessToken,
		RefreshToken: res.Session.RefreshToken,
	})
}

var changePasswordOverrides = map[otpauth.ErrorKind]errorResponse{
	otpauth.KindNotFound: {http.StatusBadRequest, "User doesn't exist"},
}

func (s *server) changePassword(c *gin.Context) {
	var req changePasswordRequest
	if !bind(c, &req) {
		return
	}

	if err := s.svc.ResetPassword(c.Request.Context(), req.Email, req.OTP, req.Password); err != nil {
		writeError(c, err, changePasswordOverrides)
		return
	}
	respond(c, http.StatusOK, "Password changed successfully", nil)
}

// refresh reads the refresh token from its cookie, falling back to the body.
func (s *server) refresh(c *gin.Context) {
	token, err := c.Cookie(refreshCookie)
	if err != nil || token == "" {
		var req refreshRequest
		if !bind(c, &req) {
			return
		}
		token = req.RefreshToken
	}

	pair, err := s.svc.Refresh(c.Request.Context(), token)
	if err != nil {
		writeError(c, err, nil)
		return
	}

	s.setSessionCookies(c, pair.AccessToken, pair.RefreshToken, s.svc.AccessTTL(), s.svc.RefreshTTL())
	respond(c, http.StatusOK, "Token refreshed", sessionData{
		AuthToken:    pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (s *server) checkLogin(c *gin.Context) {
	id, _ := middleware.IdentityID(c)
	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"message": "User authenticated successfully",
		"userId":  id,
	})
}

var getUserOverrides = map[otpauth.ErrorKind]errorResponse{
	otpauth.KindNotFound: {http.StatusBadRequest, "User not found"},
}

func (s *server) getUser(c *gin.Context) {
	id, _ := middleware.IdentityID(c)

	identity, err := s.svc.GetIdentity(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, getUserOverrides)
		return
	}
	respond(c, http.StatusOK, "User found", identity)
}

func (s *server) logout(c *gin.Context) {
	id, _ := middleware.IdentityID(c)
	s.svc.Logout(c.Request.Context(), id)

	s.clearSessionCookies(c)
	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"message": "Logged out successfully",
	})
}

func (s *server) deleteAccountRequest(c *gin.Context) {
	id, _ := middleware.IdentityID(c)

	if err := s.svc.RequestAccountDeletion(c.Request.Context(), id); err != nil {
		writeError(c, err, nil)
		return
	}
	respond(c, http.StatusOK, "Account deletion request received. You will receive a confirmation email.", nil)
}
