package otpauth

import (
	"context"
	"time"

	"github.com/educatebharat/otpauth/internal/flows"
)

const (
	auditEventOTPIssue               = "otp_issue"
	auditEventRegister               = "register"
	auditEventPasswordReset          = "password_reset"
	auditEventLogin                  = "login"
	auditEventPasswordHashUpgrade    = "password_hash_upgrade"
	auditEventRefresh                = "refresh"
	auditEventLogout                 = "logout"
	auditEventAccountDeletionRequest = "account_deletion_request"
)

// AuditErrorCode is the stable, client-safe error label recorded on failed
// audit events.
type AuditErrorCode string

const (
	auditErrValidation         AuditErrorCode = "validation"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrUserNotFound       AuditErrorCode = "user_not_found"
	auditErrNoChallenge        AuditErrorCode = "no_challenge"
	auditErrInvalidCode        AuditErrorCode = "invalid_code"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrDeliveryFailed     AuditErrorCode = "delivery_failed"
	auditErrUnauthenticated    AuditErrorCode = "unauthenticated"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(ctx context.Context, rec flows.AuditRecord) {
	if e == nil || e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: rec.Event,
		UserID:    rec.UserID,
		Email:     rec.Email,
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   rec.Success,
		Reason:    rec.Reason,
	}
	if code := auditErrorCode(rec.Err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	switch KindOf(err) {
	case KindNone:
		return ""
	case KindValidation:
		return auditErrValidation
	case KindConflict:
		return auditErrDuplicate
	case KindNotFound:
		return auditErrUserNotFound
	case KindNoChallenge:
		return auditErrNoChallenge
	case KindInvalidCode:
		return auditErrInvalidCode
	case KindInvalidCredentials:
		return auditErrInvalidCredentials
	case KindDeliveryFailed:
		return auditErrDeliveryFailed
	case KindUnauthenticated:
		return auditErrUnauthenticated
	case KindUnavailable:
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
