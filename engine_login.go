package otpauth

import (
	"context"

	"github.com/educatebharat/otpauth/internal/flows"
)

// Login verifies email and password and mints a session pair. Unknown emails
// and wrong passwords both return ErrInvalidCredentials.
func (e *Engine) Login(ctx context.Context, email, password string) (LoginResult, error) {
	if !e.ready() {
		return LoginResult{}, ErrEngineNotReady
	}

	account, pair, err := flows.RunLogin(ctx, email, password, e.loginFlowDeps())
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{
		Identity: fromAccount(account).Public(),
		Session:  fromTokenPair(pair),
	}, nil
}

func (e *Engine) loginFlowDeps() flows.LoginDeps {
	return flows.LoginDeps{
		UpgradeOnLogin:     e.config.Password.UpgradeOnLogin,
		GetAccountByEmail:  e.getAccountByEmail,
		VerifyPassword:     e.passwordHash.Verify,
		DummyVerify:        e.dummyVerify,
		NeedsUpgrade:       e.passwordHash.NeedsUpgrade,
		HashPassword:       e.passwordHash.Hash,
		UpdatePasswordHash: e.store.UpdatePasswordHash,
		IssuePair:          e.issuePair,
		Logf:               logf,
		MetricInc:          e.flowMetricInc,
		EmitAudit:          e.emitAudit,
		Metrics: flows.LoginMetrics{
			Success:      int(MetricLoginSuccess),
			Failure:      int(MetricLoginFailure),
			HashUpgraded: int(MetricPasswordHashUpgraded),
		},
		Events: flows.LoginEvents{
			Login:       auditEventLogin,
			HashUpgrade: auditEventPasswordHashUpgrade,
		},
		Errors: e.flowErrors(),
	}
}

func (e *Engine) dummyVerify(password string) {
	_, _ = e.passwordHash.Verify(password, e.dummyHash)
}
