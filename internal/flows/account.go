package flows

import (
	"context"
	"errors"
	"time"
)

// AccountMetrics carries metric IDs used by the account flows.
type AccountMetrics struct {
	DeletionRequest int
	DeletionFailure int
}

// AccountEvents carries audit event names used by the account flows.
type AccountEvents struct {
	DeletionRequest string
}

// AccountDeps wires RunGetAccount and RunRequestAccountDeletion.
type AccountDeps struct {
	Now func() time.Time

	GetAccountByID    func(context.Context, string) (Account, error)
	IsAccountNotFound func(error) bool
	// NotifyOperator and ConfirmToUser deliver the two deletion mails.
	NotifyOperator func(ctx context.Context, account Account, requestedAt time.Time) error
	ConfirmToUser  func(ctx context.Context, account Account) error

	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics AccountMetrics
	Events  AccountEvents
	Errors  Errors
}

// RunGetAccount loads the account by id with its password hash cleared.
func RunGetAccount(ctx context.Context, id string, deps AccountDeps) (Account, error) {
	normalizeAccountDeps(&deps)

	if deps.GetAccountByID == nil {
		return Account{}, deps.Errors.EngineNotReady
	}
	if id == "" {
		return Account{}, deps.Errors.NotFound
	}

	account, err := deps.GetAccountByID(ctx, id)
	if err != nil {
		if deps.IsAccountNotFound(err) {
			return Account{}, deps.Errors.NotFound
		}
		return Account{}, deps.Errors.internal(err)
	}

	account.PasswordHash = ""
	return account, nil
}

// RunRequestAccountDeletion notifies the operator and the user that the
// account asked to be deleted. Nothing is deleted here.
func RunRequestAccountDeletion(ctx context.Context, id string, deps AccountDeps) error {
	normalizeAccountDeps(&deps)

	if deps.GetAccountByID == nil || deps.NotifyOperator == nil || deps.ConfirmToUser == nil {
		return deps.Errors.EngineNotReady
	}

	account, err := RunGetAccount(ctx, id, deps)
	if err != nil {
		return deps.fail(ctx, id, "lookup_failed", err)
	}

	if err := deps.NotifyOperator(ctx, account, deps.Now()); err != nil {
		return deps.fail(ctx, id, "operator_delivery_failed", deps.deliveryErr(err))
	}
	if err := deps.ConfirmToUser(ctx, account); err != nil {
		return deps.fail(ctx, id, "user_delivery_failed", deps.deliveryErr(err))
	}

	deps.MetricInc(deps.Metrics.DeletionRequest)
	deps.EmitAudit(ctx, AuditRecord{Event: deps.Events.DeletionRequest, Success: true, UserID: id, Email: account.Email})
	return nil
}

func (deps AccountDeps) deliveryErr(err error) error {
	if isContextErr(err) {
		return err
	}
	return errors.Join(deps.Errors.DeliveryFailed, err)
}

func (deps AccountDeps) fail(ctx context.Context, userID, reason string, err error) error {
	deps.MetricInc(deps.Metrics.DeletionFailure)
	deps.EmitAudit(ctx, AuditRecord{Event: deps.Events.DeletionRequest, UserID: userID, Reason: reason, Err: err})
	return err
}

func normalizeAccountDeps(deps *AccountDeps) {
	normalizeCommon(&deps.Now, &deps.MetricInc, &deps.EmitAudit)
	normalizeErrors(&deps.Errors)
	if deps.IsAccountNotFound == nil {
		deps.IsAccountNotFound = func(err error) bool { return errorsIs(err, deps.Errors.NotFound) }
	}
}
