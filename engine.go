package otpauth

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/educatebharat/otpauth/internal/flows"
	"github.com/educatebharat/otpauth/internal/stores"
	"github.com/educatebharat/otpauth/jwt"
	"github.com/educatebharat/otpauth/password"
	"github.com/google/uuid"
)

// Engine runs every authentication operation. It is immutable after Build
// and safe for concurrent use.
type Engine struct {
	config        Config
	store         CredentialStore
	mailer        Mailer
	ledger        *stores.VerificationLedger
	passwordHash  *password.Argon2
	dummyHash     string
	accessTokens  *jwt.Manager
	refreshTokens *jwt.Manager
	audit         *auditDispatcher
	metrics       *Metrics
}

// Close flushes and stops the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were dropped on a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// Metrics exposes the Engine's counters to exporters.
func (e *Engine) Metrics() *Metrics {
	if e == nil {
		return nil
	}
	return e.metrics
}

// MetricsSnapshot copies the current counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// AccessTTL is the lifetime of access tokens, used for cookie Max-Age.
func (e *Engine) AccessTTL() time.Duration {
	return e.config.JWT.AccessTTL
}

// RefreshTTL is the lifetime of refresh tokens.
func (e *Engine) RefreshTTL() time.Duration {
	return e.config.JWT.RefreshTTL
}

func (e *Engine) ready() bool {
	return e != nil && e.store != nil && e.ledger != nil && e.passwordHash != nil &&
		e.accessTokens != nil && e.refreshTokens != nil
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) flowMetricInc(id int) {
	e.metricInc(MetricID(id))
}

func (e *Engine) flowErrors() flows.Errors {
	return flows.Errors{
		EngineNotReady:     ErrEngineNotReady,
		AlreadyExists:      ErrAlreadyExists,
		NotFound:           ErrNotFound,
		NoChallengeIssued:  ErrNoChallengeIssued,
		InvalidCode:        ErrInvalidCode,
		InvalidCredentials: ErrInvalidCredentials,
		DeliveryFailed:     ErrDeliveryFailed,
		Unauthenticated:    ErrUnauthenticated,
		Internal:           ErrInternal,
		Invalid:            newValidationError,
	}
}

func (e *Engine) challengeDeps() flows.ChallengeDeps {
	return flows.ChallengeDeps{
		Digits:           e.config.OTP.Digits,
		GetChallenge:     e.ledger.Get,
		ConsumeChallenge: e.ledger.Consume,
		VerifyCode:       e.passwordHash.Verify,
		IsChallengeNotFound: func(err error) bool {
			return errors.Is(err, stores.ErrChallengeNotFound)
		},
	}
}

func (e *Engine) getAccountByEmail(ctx context.Context, email string) (flows.Account, error) {
	identity, err := e.store.GetByEmail(ctx, email)
	if err != nil {
		return flows.Account{}, err
	}
	return toAccount(identity), nil
}

func (e *Engine) getAccountByID(ctx context.Context, id string) (flows.Account, error) {
	identity, err := e.store.GetByID(ctx, id)
	if err != nil {
		return flows.Account{}, err
	}
	return toAccount(identity), nil
}

func (e *Engine) issuePair(uid string) (flows.TokenPair, error) {
	access, accessExp, err := e.accessTokens.Create(uid)
	if err != nil {
		return flows.TokenPair{}, err
	}
	refresh, refreshExp, err := e.refreshTokens.Create(uid)
	if err != nil {
		return flows.TokenPair{}, err
	}
	return flows.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func newIdentityID() string {
	return uuid.NewString()
}

func logf(format string, args ...any) {
	log.Printf(format, args...)
}

func toAccount(i Identity) flows.Account {
	return flows.Account{
		ID:           i.ID,
		Name:         i.Name,
		Email:        i.Email,
		PasswordHash: i.PasswordHash,
		CreatedAt:    i.CreatedAt,
		UpdatedAt:    i.UpdatedAt,
	}
}

func fromAccount(a flows.Account) Identity {
	return Identity{
		ID:           a.ID,
		Name:         a.Name,
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

func fromTokenPair(p flows.TokenPair) SessionPair {
	return SessionPair{
		AccessToken:      p.AccessToken,
		RefreshToken:     p.RefreshToken,
		AccessExpiresAt:  p.AccessExpiresAt,
		RefreshExpiresAt: p.RefreshExpiresAt,
	}
}
