package flows

import (
	"context"
	"strings"
	"time"
)

// SessionMetrics carries metric IDs used by the session flows.
type SessionMetrics struct {
	AuthenticateFailure int
	RefreshSuccess      int
	RefreshFailure      int
}

// SessionEvents carries audit event names used by the session flows.
type SessionEvents struct {
	Refresh string
}

// SessionDeps wires RunAuthenticate and RunRefresh.
type SessionDeps struct {
	Now func() time.Time

	ParseAccess  func(string) (string, error)
	ParseRefresh func(string) (string, error)
	IssuePair    func(uid string) (TokenPair, error)
	// AccountExists, when set, stops refresh for identities that no longer
	// resolve.
	AccountExists func(ctx context.Context, id string) (bool, error)

	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics SessionMetrics
	Events  SessionEvents
	Errors  Errors
}

// RunAuthenticate returns the identity id carried by a valid access token.
// It performs no store lookups.
func RunAuthenticate(_ context.Context, token string, deps SessionDeps) (string, error) {
	normalizeSessionDeps(&deps)

	if deps.ParseAccess == nil {
		return "", deps.Errors.EngineNotReady
	}

	token = strings.TrimSpace(token)
	if token == "" {
		deps.MetricInc(deps.Metrics.AuthenticateFailure)
		return "", deps.Errors.Unauthenticated
	}

	uid, err := deps.ParseAccess(token)
	if err != nil || uid == "" {
		deps.MetricInc(deps.Metrics.AuthenticateFailure)
		return "", deps.Errors.Unauthenticated
	}
	return uid, nil
}

// RunRefresh validates a refresh token and mints a new pair for its identity.
// Refresh tokens are stateless, so the presented one stays valid until it
// expires.
func RunRefresh(ctx context.Context, token string, deps SessionDeps) (string, TokenPair, error) {
	normalizeSessionDeps(&deps)

	if deps.ParseRefresh == nil || deps.IssuePair == nil {
		return "", TokenPair{}, deps.Errors.EngineNotReady
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", TokenPair{}, deps.fail(ctx, "", "empty_token", deps.Errors.Unauthenticated)
	}

	uid, err := deps.ParseRefresh(token)
	if err != nil || uid == "" {
		return "", TokenPair{}, deps.fail(ctx, "", "invalid_token", deps.Errors.Unauthenticated)
	}

	if deps.AccountExists != nil {
		exists, err := deps.AccountExists(ctx, uid)
		if err != nil {
			return "", TokenPair{}, deps.fail(ctx, uid, "lookup_failed", deps.Errors.internal(err))
		}
		if !exists {
			return "", TokenPair{}, deps.fail(ctx, uid, "unknown_account", deps.Errors.Unauthenticated)
		}
	}

	pair, err := deps.IssuePair(uid)
	if err != nil {
		return "", TokenPair{}, deps.fail(ctx, uid, "issue_failed", deps.Errors.internal(err))
	}

	deps.MetricInc(deps.Metrics.RefreshSuccess)
	deps.EmitAudit(ctx, AuditRecord{Event: deps.Events.Refresh, Success: true, UserID: uid})
	return uid, pair, nil
}

func (deps SessionDeps) fail(ctx context.Context, userID, reason string, err error) error {
	deps.MetricInc(deps.Metrics.RefreshFailure)
	deps.EmitAudit(ctx, AuditRecord{Event: deps.Events.Refresh, UserID: userID, Reason: reason, Err: err})
	return err
}

func normalizeSessionDeps(deps *SessionDeps) {
	normalizeCommon(&deps.Now, &deps.MetricInc, &deps.EmitAudit)
	normalizeErrors(&deps.Errors)
}
