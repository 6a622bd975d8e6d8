package httpapi

import (
	"errors"
	"log"
	"net/http"

	"github.com/educatebharat/otpauth"
	"github.com/gin-gonic/gin"
)

const msgInternal = "Internal server error"

// errorResponse is the status and client message for an error kind.
type errorResponse struct {
	status  int
	message string
}

var kindResponses = map[otpauth.ErrorKind]errorResponse{
	otpauth.KindConflict:           {http.StatusBadRequest, "User already exists"},
	otpauth.KindNotFound:           {http.StatusNotFound, "User not found"},
	otpauth.KindNoChallenge:        {http.StatusBadRequest, "Please send otp first"},
	otpauth.KindInvalidCode:        {http.StatusBadRequest, "Invalid OTP"},
	otpauth.KindInvalidCredentials: {http.StatusBadRequest, "Invalid credentials"},
	otpauth.KindUnauthenticated:    {http.StatusUnauthorized, "Unauthorized"},
	otpauth.KindDeliveryFailed:     {http.StatusInternalServerError, msgInternal},
	otpauth.KindUnavailable:        {http.StatusServiceUnavailable, "Service unavailable"},
	otpauth.KindInternal:           {http.StatusInternalServerError, msgInternal},
}

// writeError maps err to an envelope. overrides replace the default response
// for individual kinds on routes whose wording differs.
func writeError(c *gin.Context, err error, overrides map[otpauth.ErrorKind]errorResponse) {
	kind := otpauth.KindOf(err)

	if kind == otpauth.KindValidation {
		var verr *otpauth.ValidationError
		msg := "Invalid request"
		if errors.As(err, &verr) {
			msg = verr.Reason
		}
		respond(c, http.StatusBadRequest, msg, nil)
		return
	}

	resp, ok := overrides[kind]
	if !ok {
		resp, ok = kindResponses[kind]
	}
	if !ok {
		resp = errorResponse{http.StatusInternalServerError, msgInternal}
	}

	if resp.status >= http.StatusInternalServerError {
		log.Printf("httpapi: %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	respond(c, resp.status, resp.message, nil)
}
