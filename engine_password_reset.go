package otpauth

import (
	"context"

	"github.com/educatebharat/otpauth/internal/flows"
)

// ResetPassword replaces the password of the identity registered under email
// once code matches its outstanding challenge. A wrong code returns
// ErrInvalidCode and leaves the stored hash and the challenge untouched.
func (e *Engine) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return flows.RunResetPassword(ctx, email, code, newPassword, e.passwordResetFlowDeps())
}

func (e *Engine) passwordResetFlowDeps() flows.PasswordResetDeps {
	return flows.PasswordResetDeps{
		MinPasswordLength:  e.config.Password.MinLength,
		Challenge:          e.challengeDeps(),
		GetAccountByEmail:  e.getAccountByEmail,
		HashPassword:       e.passwordHash.Hash,
		UpdatePasswordHash: e.store.UpdatePasswordHash,
		MetricInc:          e.flowMetricInc,
		EmitAudit:          e.emitAudit,
		Metrics: flows.PasswordResetMetrics{
			Success:     int(MetricPasswordResetSuccess),
			Failure:     int(MetricPasswordResetFailure),
			InvalidCode: int(MetricInvalidCode),
		},
		Events: flows.PasswordResetEvents{
			Reset: auditEventPasswordReset,
		},
		Errors: e.flowErrors(),
	}
}
