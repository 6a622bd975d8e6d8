package flows

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// PasswordResetMetrics carries metric IDs used by RunResetPassword.
type PasswordResetMetrics struct {
	Success     int
	Failure     int
	InvalidCode int
}

// PasswordResetEvents carries audit event names used by RunResetPassword.
type PasswordResetEvents struct {
	Reset string
}

// PasswordResetDeps wires RunResetPassword.
type PasswordResetDeps struct {
	MinPasswordLength int
	Now               func() time.Time

	Challenge ChallengeDeps

	GetAccountByEmail  func(context.Context, string) (Account, error)
	IsAccountNotFound  func(error) bool
	HashPassword       func(string) (string, error)
	UpdatePasswordHash func(ctx context.Context, id, passwordHash string) error

	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics PasswordResetMetrics
	Events  PasswordResetEvents
	Errors  Errors
}

// RunResetPassword replaces the account's password once the outstanding code
// for email matches. Every guard runs before the challenge is consumed and the
// hash is written; a rejected code leaves both untouched.
func RunResetPassword(ctx context.Context, email, code, newPassword string, deps PasswordResetDeps) error {
	normalizePasswordResetDeps(&deps)

	if !deps.Challenge.ready() ||
		deps.GetAccountByEmail == nil ||
		deps.HashPassword == nil ||
		deps.UpdatePasswordHash == nil {
		return deps.Errors.EngineNotReady
	}

	email = strings.TrimSpace(email)
	code = strings.TrimSpace(code)

	if email == "" || code == "" || newPassword == "" {
		return deps.fail(ctx, "", email, "missing_fields", deps.Errors.Invalid("All fields are required"))
	}
	if len(newPassword) < deps.MinPasswordLength {
		return deps.fail(ctx, "", email, "password_too_short",
			deps.Errors.Invalid("Password should be at least "+strconv.Itoa(deps.MinPasswordLength)+" characters long"))
	}

	account, err := deps.GetAccountByEmail(ctx, email)
	if err != nil {
		if deps.IsAccountNotFound(err) {
			return deps.fail(ctx, "", email, "unknown_account", deps.Errors.NotFound)
		}
		return deps.fail(ctx, "", email, "lookup_failed", deps.Errors.internal(err))
	}

	challenge, err := deps.Challenge.verify(ctx, email, code, deps.Errors)
	if err != nil {
		if errorsIs(err, deps.Errors.InvalidCode) {
			deps.MetricInc(deps.Metrics.InvalidCode)
		}
		return deps.fail(ctx, account.ID, email, "challenge_rejected", err)
	}

	newHash, err := deps.HashPassword(newPassword)
	if err != nil {
		return deps.fail(ctx, account.ID, email, "hash_failed", deps.Errors.internal(err))
	}

	if err := deps.Challenge.consume(ctx, challenge, deps.Errors); err != nil {
		return deps.fail(ctx, account.ID, email, "consume_failed", err)
	}

	if err := deps.UpdatePasswordHash(ctx, account.ID, newHash); err != nil {
		if deps.IsAccountNotFound(err) {
			return deps.fail(ctx, account.ID, email, "unknown_account", deps.Errors.NotFound)
		}
		return deps.fail(ctx, account.ID, email, "update_hash_failed", deps.Errors.internal(err))
	}

	deps.MetricInc(deps.Metrics.Success)
	deps.EmitAudit(ctx, AuditRecord{Event: deps.Events.Reset, Success: true, UserID: account.ID, Email: account.Email})
	return nil
}

func (deps PasswordResetDeps) fail(ctx context.Context, userID, email, reason string, err error) error {
	deps.MetricInc(deps.Metrics.Failure)
	deps.EmitAudit(ctx, AuditRecord{Event: deps.Events.Reset, UserID: userID, Email: email, Reason: reason, Err: err})
	return err
}

func normalizePasswordResetDeps(deps *PasswordResetDeps) {
	normalizeCommon(&deps.Now, &deps.MetricInc, &deps.EmitAudit)
	normalizeErrors(&deps.Errors)
	deps.Challenge.normalize()
	if deps.MinPasswordLength <= 0 {
		deps.MinPasswordLength = 6
	}
	if deps.IsAccountNotFound == nil {
		deps.IsAccountNotFound = func(err error) bool { return errorsIs(err, deps.Errors.NotFound) }
	}
}
