package otpauth

import (
	"context"
	"errors"
	"time"

	"github.com/educatebharat/otpauth/internal/flows"
)

// Authenticate returns the identity id carried by a valid access token.
// Refresh tokens, expired tokens and tokens signed with any other key return
// ErrUnauthenticated. No store is consulted.
func (e *Engine) Authenticate(ctx context.Context, accessToken string) (string, error) {
	if !e.ready() {
		return "", ErrEngineNotReady
	}

	var start time.Time
	if e.metrics.LatencyEnabled() {
		start = time.Now()
		defer func() {
			e.metrics.Observe(MetricAuthenticateLatency, time.Since(start))
		}()
	}

	return flows.RunAuthenticate(ctx, accessToken, e.sessionFlowDeps())
}

// Refresh validates a refresh token and mints a new pair for the same
// identity. The presented refresh token is not revoked.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (SessionPair, error) {
	if !e.ready() {
		return SessionPair{}, ErrEngineNotReady
	}

	_, pair, err := flows.RunRefresh(ctx, refreshToken, e.sessionFlowDeps())
	if err != nil {
		return SessionPair{}, err
	}
	return fromTokenPair(pair), nil
}

// Logout records the logout of identityID. Tokens are stateless, so the
// transport clears the client's cookies and nothing is revoked here.
func (e *Engine) Logout(ctx context.Context, identityID string) {
	e.metricInc(MetricLogout)
	e.emitAudit(ctx, flows.AuditRecord{Event: auditEventLogout, Success: true, UserID: identityID})
}

func (e *Engine) sessionFlowDeps() flows.SessionDeps {
	return flows.SessionDeps{
		ParseAccess: func(token string) (string, error) {
			claims, err := e.accessTokens.Parse(token)
			if err != nil {
				return "", err
			}
			return claims.UID, nil
		},
		ParseRefresh: func(token string) (string, error) {
			claims, err := e.refreshTokens.Parse(token)
			if err != nil {
				return "", err
			}
			return claims.UID, nil
		},
		IssuePair: e.issuePair,
		AccountExists: func(ctx context.Context, id string) (bool, error) {
			_, err := e.store.GetByID(ctx, id)
			if errors.Is(err, ErrNotFound) {
				return false, nil
			}
			return err == nil, err
		},
		MetricInc: e.flowMetricInc,
		EmitAudit: e.emitAudit,
		Metrics: flows.SessionMetrics{
			AuthenticateFailure: int(MetricAuthenticateFailure),
			RefreshSuccess:      int(MetricRefreshSuccess),
			RefreshFailure:      int(MetricRefreshFailure),
		},
		Events: flows.SessionEvents{
			Refresh: auditEventRefresh,
		},
		Errors: e.flowErrors(),
	}
}
