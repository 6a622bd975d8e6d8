package otpauth

import (
	"context"

	"github.com/educatebharat/otpauth/internal"
	"github.com/educatebharat/otpauth/internal/flows"
)

// IssueOTP generates a fresh verification code for email, supersedes any
// outstanding one and mails it. On ErrDeliveryFailed the new code stays live
// until it expires or is superseded.
func (e *Engine) IssueOTP(ctx context.Context, email string) error {
	if !e.ready() || e.mailer == nil {
		return ErrEngineNotReady
	}
	return flows.RunIssueOTP(ctx, email, e.issueOTPFlowDeps())
}

func (e *Engine) issueOTPFlowDeps() flows.IssueOTPDeps {
	return flows.IssueOTPDeps{
		Digits:       e.config.OTP.Digits,
		TTL:          e.config.OTP.TTL,
		GenerateCode: internal.NewNumericCode,
		HashCode:     e.passwordHash.Hash,
		PutChallenge: e.ledger.Put,
		SendCode:     e.sendCode,
		MetricInc:    e.flowMetricInc,
		EmitAudit:    e.emitAudit,
		Metrics: flows.IssueOTPMetrics{
			Issued:         int(MetricOTPIssued),
			DeliveryFailed: int(MetricOTPDeliveryFailed),
			Failure:        int(MetricOTPIssueFailure),
		},
		Events: flows.IssueOTPEvents{
			Issue: auditEventOTPIssue,
		},
		Errors: e.flowErrors(),
	}
}
