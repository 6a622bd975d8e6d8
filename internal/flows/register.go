package flows

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// RegisterInput is the flow-local registration request.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Code     string
}

// RegisterMetrics carries metric IDs used by RunRegister.
type RegisterMetrics struct {
	Success     int
	Failure     int
	Duplicate   int
	InvalidCode int
}

// RegisterEvents carries audit event names used by RunRegister.
type RegisterEvents struct {
	Register string
}

// RegisterDeps wires RunRegister.
type RegisterDeps struct {
	MinPasswordLength int
	Now               func() time.Time

	Challenge ChallengeDeps

	GetAccountByEmail func(context.Context, string) (Account, error)
	IsAccountNotFound func(error) bool
	HashPassword      func(string) (string, error)
	NewID             func() string
	CreateAccount     func(context.Context, Account) error
	IsDuplicate       func(error) bool

	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics RegisterMetrics
	Events  RegisterEvents
	Errors  Errors
}

// RunRegister creates an account once the email's outstanding code is
// presented. The challenge is consumed before the insert so a code admits at
// most one registration. If the insert then fails with Internal, the code is
// already spent and the caller must issue a new one before retrying; a retry
// with the old code returns NoChallenge.
func RunRegister(ctx context.Context, in RegisterInput, deps RegisterDeps) (Account, error) {
	normalizeRegisterDeps(&deps)

	if !deps.Challenge.ready() ||
		deps.GetAccountByEmail == nil ||
		deps.HashPassword == nil ||
		deps.NewID == nil ||
		deps.CreateAccount == nil {
		return Account{}, deps.Errors.EngineNotReady
	}

	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Code = strings.TrimSpace(in.Code)

	if in.Name == "" || in.Email == "" || in.Password == "" || in.Code == "" {
		return Account{}, deps.fail(ctx, in.Email, "missing_fields", deps.Errors.Invalid("All fields are required"))
	}
	if len(in.Password) < deps.MinPasswordLength {
		return Account{}, deps.fail(ctx, in.Email, "password_too_short",
			deps.Errors.Invalid("Password should be at least "+strconv.Itoa(deps.MinPasswordLength)+" characters long"))
	}

	if _, err := deps.GetAccountByEmail(ctx, in.Email); err == nil {
		deps.MetricInc(deps.Metrics.Duplicate)
		return Account{}, deps.fail(ctx, in.Email, "already_exists", deps.Errors.AlreadyExists)
	} else if !deps.IsAccountNotFound(err) {
		return Account{}, deps.fail(ctx, in.Email, "lookup_failed", deps.Errors.internal(err))
	}

	challenge, err := deps.Challenge.verify(ctx, in.Email, in.Code, deps.Errors)
	if err != nil {
		if errorsIs(err, deps.Errors.InvalidCode) {
			deps.MetricInc(deps.Metrics.InvalidCode)
		}
		return Account{}, deps.fail(ctx, in.Email, "challenge_rejected", err)
	}

	passwordHash, err := deps.HashPassword(in.Password)
	if err != nil {
		return Account{}, deps.fail(ctx, in.Email, "hash_failed", deps.Errors.internal(err))
	}

	if err := deps.Challenge.consume(ctx, challenge, deps.Errors); err != nil {
		return Account{}, deps.fail(ctx, in.Email, "consume_failed", err)
	}

	now := deps.Now().UTC()
	account := Account{
		ID:           deps.NewID(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := deps.CreateAccount(ctx, account); err != nil {
		if deps.IsDuplicate(err) {
			deps.MetricInc(deps.Metrics.Duplicate)
			return Account{}, deps.fail(ctx, in.Email, "already_exists", deps.Errors.AlreadyExists)
		}
		return Account{}, deps.fail(ctx, in.Email, "insert_failed", deps.Errors.internal(err))
	}

	deps.MetricInc(deps.Metrics.Success)
	deps.EmitAudit(ctx, AuditRecord{Event: deps.Events.Register, Success: true, UserID: account.ID, Email: account.Email})
	return account, nil
}

func (deps RegisterDeps) fail(ctx context.Context, email, reason string, err error) error {
	deps.MetricInc(deps.Metrics.Failure)
	deps.EmitAudit(ctx, AuditRecord{Event: deps.Events.Register, Email: email, Reason: reason, Err: err})
	return err
}

func normalizeRegisterDeps(deps *RegisterDeps) {
	normalizeCommon(&deps.Now, &deps.MetricInc, &deps.EmitAudit)
	normalizeErrors(&deps.Errors)
	deps.Challenge.normalize()
	if deps.MinPasswordLength <= 0 {
		deps.MinPasswordLength = 6
	}
	if deps.IsAccountNotFound == nil {
		deps.IsAccountNotFound = func(err error) bool { return errorsIs(err, deps.Errors.NotFound) }
	}
	if deps.IsDuplicate == nil {
		deps.IsDuplicate = func(err error) bool { return errorsIs(err, deps.Errors.AlreadyExists) }
	}
}
