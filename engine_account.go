package otpauth

import (
	"context"
	"time"

	"github.com/educatebharat/otpauth/internal/flows"
)

// GetIdentity returns the identity with its password hash cleared.
func (e *Engine) GetIdentity(ctx context.Context, id string) (Identity, error) {
	if !e.ready() {
		return Identity{}, ErrEngineNotReady
	}

	account, err := flows.RunGetAccount(ctx, id, e.accountFlowDeps())
	if err != nil {
		return Identity{}, err
	}
	return fromAccount(account), nil
}

// RequestAccountDeletion mails a deletion request to the operator address
// and a confirmation to the identity. The identity itself is kept.
func (e *Engine) RequestAccountDeletion(ctx context.Context, id string) error {
	if !e.ready() || e.mailer == nil {
		return ErrEngineNotReady
	}
	return flows.RunRequestAccountDeletion(ctx, id, e.accountFlowDeps())
}

func (e *Engine) accountFlowDeps() flows.AccountDeps {
	return flows.AccountDeps{
		GetAccountByID: e.getAccountByID,
		NotifyOperator: func(ctx context.Context, a flows.Account, at time.Time) error {
			return e.notifyDeletionOperator(ctx, fromAccount(a), at)
		},
		ConfirmToUser: func(ctx context.Context, a flows.Account) error {
			return e.confirmDeletionToUser(ctx, fromAccount(a))
		},
		MetricInc: e.flowMetricInc,
		EmitAudit: e.emitAudit,
		Metrics: flows.AccountMetrics{
			DeletionRequest: int(MetricAccountDeletionRequest),
			DeletionFailure: int(MetricAccountDeletionFailure),
		},
		Events: flows.AccountEvents{
			DeletionRequest: auditEventAccountDeletionRequest,
		},
		Errors: e.flowErrors(),
	}
}
