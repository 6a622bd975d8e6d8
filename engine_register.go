package otpauth

import (
	"context"

	"github.com/educatebharat/otpauth/internal/flows"
)

// Register creates an identity after the email's outstanding code is
// presented. The code is consumed even if the insert later fails.
//
// Guards run in order: ErrValidation, ErrAlreadyExists, ErrNoChallengeIssued,
// ErrInvalidCode.
func (e *Engine) Register(ctx context.Context, in RegisterInput) (Identity, error) {
	if !e.ready() {
		return Identity{}, ErrEngineNotReady
	}

	account, err := flows.RunRegister(ctx, flows.RegisterInput{
		Name:     in.Name,
		Email:    in.Email,
		Password: in.Password,
		Code:     in.Code,
	}, e.registerFlowDeps())
	if err != nil {
		return Identity{}, err
	}
	return fromAccount(account).Public(), nil
}

func (e *Engine) registerFlowDeps() flows.RegisterDeps {
	return flows.RegisterDeps{
		MinPasswordLength: e.config.Password.MinLength,
		Challenge:         e.challengeDeps(),
		GetAccountByEmail: e.getAccountByEmail,
		HashPassword:      e.passwordHash.Hash,
		NewID:             newIdentityID,
		CreateAccount: func(ctx context.Context, a flows.Account) error {
			return e.store.Create(ctx, fromAccount(a))
		},
		MetricInc: e.flowMetricInc,
		EmitAudit: e.emitAudit,
		Metrics: flows.RegisterMetrics{
			Success:     int(MetricRegisterSuccess),
			Failure:     int(MetricRegisterFailure),
			Duplicate:   int(MetricRegisterDuplicate),
			InvalidCode: int(MetricInvalidCode),
		},
		Events: flows.RegisterEvents{
			Register: auditEventRegister,
		},
		Errors: e.flowErrors(),
	}
}
