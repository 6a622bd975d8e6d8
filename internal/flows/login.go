package flows

import (
	"context"
	"strings"
	"time"
)

// LoginMetrics carries metric IDs used by RunLogin.
type LoginMetrics struct {
	Success      int
	Failure      int
	HashUpgraded int
}

// LoginEvents carries audit event names used by RunLogin.
type LoginEvents struct {
	Login       string
	HashUpgrade string
}

// LoginDeps wires RunLogin.
type LoginDeps struct {
	UpgradeOnLogin bool
	Now            func() time.Time

	GetAccountByEmail  func(context.Context, string) (Account, error)
	IsAccountNotFound  func(error) bool
	VerifyPassword     func(password, passwordHash string) (bool, error)
	DummyVerify        func(password string)
	NeedsUpgrade       func(passwordHash string) (bool, error)
	HashPassword       func(string) (string, error)
	UpdatePasswordHash func(ctx context.Context, id, passwordHash string) error
	IssuePair          func(uid string) (TokenPair, error)
	Logf               func(format string, args ...any)

	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  Errors
}

// RunLogin checks email and password and mints a session pair. An unknown
// email and a wrong password return the same error after comparable work.
func RunLogin(ctx context.Context, email, password string, deps LoginDeps) (Account, TokenPair, error) {
	normalizeLoginDeps(&deps)

	if deps.GetAccountByEmail == nil || deps.VerifyPassword == nil || deps.IssuePair == nil {
		return Account{}, TokenPair{}, deps.Errors.EngineNotReady
	}

	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return Account{}, TokenPair{}, deps.fail(ctx, "", email, "missing_fields", deps.Errors.Invalid("Email and password are required"))
	}

	account, err := deps.GetAccountByEmail(ctx, email)
	if err != nil {
		if !deps.IsAccountNotFound(err) {
			return Account{}, TokenPair{}, deps.fail(ctx, "", email, "lookup_failed", deps.Errors.internal(err))
		}
		deps.DummyVerify(password)
		return Account{}, TokenPair{}, deps.fail(ctx, "", email, "unknown_account", deps.Errors.InvalidCredentials)
	}

	ok, err := deps.VerifyPassword(password, account.PasswordHash)
	if err != nil {
		return Account{}, TokenPair{}, deps.fail(ctx, account.ID, email, "verify_failed", deps.Errors.internal(err))
	}
	if !ok {
		return Account{}, TokenPair{}, deps.fail(ctx, account.ID, email, "password_mismatch", deps.Errors.InvalidCredentials)
	}

	if deps.UpgradeOnLogin {
		deps.upgradeHash(ctx, &account, password)
	}

	pair, err := deps.IssuePair(account.ID)
	if err != nil {
		return Account{}, TokenPair{}, deps.fail(ctx, account.ID, email, "issue_failed", deps.Errors.internal(err))
	}

	account.PasswordHash = ""
	deps.MetricInc(deps.Metrics.Success)
	deps.EmitAudit(ctx, AuditRecord{Event: deps.Events.Login, Success: true, UserID: account.ID, Email: account.Email})
	return account, pair, nil
}

// upgradeHash re-hashes legacy or under-cost hashes. Failures are logged and
// never block the login.
func (deps LoginDeps) upgradeHash(ctx context.Context, account *Account, password string) {
	if deps.NeedsUpgrade == nil || deps.HashPassword == nil || deps.UpdatePasswordHash == nil {
		return
	}
	needs, err := deps.NeedsUpgrade(account.PasswordHash)
	if err != nil || !needs {
		return
	}

	newHash, err := deps.HashPassword(password)
	if err != nil {
		deps.Logf("otpauth: password hash upgrade failed for %s: %v", account.ID, err)
		return
	}
	if err := deps.UpdatePasswordHash(ctx, account.ID, newHash); err != nil {
		deps.Logf("otpauth: password hash upgrade failed for %s: %v", account.ID, err)
		return
	}

	account.PasswordHash = newHash
	deps.MetricInc(deps.Metrics.HashUpgraded)
	deps.EmitAudit(ctx, AuditRecord{Event: deps.Events.HashUpgrade, Success: true, UserID: account.ID, Email: account.Email})
}

func (deps LoginDeps) fail(ctx context.Context, userID, email, reason string, err error) error {
	deps.MetricInc(deps.Metrics.Failure)
	deps.EmitAudit(ctx, AuditRecord{Event: deps.Events.Login, UserID: userID, Email: email, Reason: reason, Err: err})
	return err
}

func normalizeLoginDeps(deps *LoginDeps) {
	normalizeCommon(&deps.Now, &deps.MetricInc, &deps.EmitAudit)
	normalizeErrors(&deps.Errors)
	if deps.IsAccountNotFound == nil {
		deps.IsAccountNotFound = func(err error) bool { return errorsIs(err, deps.Errors.NotFound) }
	}
	if deps.DummyVerify == nil {
		deps.DummyVerify = func(string) {}
	}
	if deps.Logf == nil {
		deps.Logf = func(string, ...any) {}
	}
}
