package flows

import (
	"context"
	"errors"
	"time"
)

// Account is the flow-local identity record.
type Account struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TokenPair is the flow-local session credential pair.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Errors carries the host-level sentinel errors returned by flows.
type Errors struct {
	EngineNotReady     error
	AlreadyExists      error
	NotFound           error
	NoChallengeIssued  error
	InvalidCode        error
	InvalidCredentials error
	DeliveryFailed     error
	Unauthenticated    error
	Internal           error

	// Invalid builds a validation error carrying a client-facing reason.
	Invalid func(reason string) error
}

// AuditRecord is one flow outcome handed to the audit sink. Reason is a
// short machine label for failures.
type AuditRecord struct {
	Event   string
	Success bool
	UserID  string
	Email   string
	Reason  string
	Err     error
}

// AuditFunc records one audit event.
type AuditFunc func(ctx context.Context, rec AuditRecord)

func normalizeErrors(e *Errors) {
	if e.Invalid == nil {
		e.Invalid = func(reason string) error { return errors.New(reason) }
	}
	if e.EngineNotReady == nil {
		e.EngineNotReady = errors.New("engine not ready")
	}
	if e.Internal == nil {
		e.Internal = errors.New("internal error")
	}
}

func normalizeCommon(now *func() time.Time, metricInc *func(int), emit *AuditFunc) {
	if *now == nil {
		*now = time.Now
	}
	if *metricInc == nil {
		*metricInc = func(int) {}
	}
	if *emit == nil {
		*emit = func(context.Context, AuditRecord) {}
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// internal joins err under the Internal sentinel so callers can match it while
// the cause survives for operator logs.
func (e Errors) internal(err error) error {
	if err == nil || isContextErr(err) {
		return err
	}
	return errors.Join(e.Internal, err)
}

func errorsIs(err, target error) bool {
	return target != nil && errors.Is(err, target)
}
