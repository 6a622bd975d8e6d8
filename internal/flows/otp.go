package flows

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/educatebharat/otpauth/internal"
	"github.com/educatebharat/otpauth/internal/stores"
)

// IssueOTPMetrics carries metric IDs used by RunIssueOTP.
type IssueOTPMetrics struct {
	Issued         int
	DeliveryFailed int
	Failure        int
}

// IssueOTPEvents carries audit event names used by RunIssueOTP.
type IssueOTPEvents struct {
	Issue string
}

// IssueOTPDeps wires RunIssueOTP.
type IssueOTPDeps struct {
	Digits int
	TTL    time.Duration
	Now    func() time.Time

	GenerateCode func(int) (string, error)
	HashCode     func(string) (string, error)
	PutChallenge func(context.Context, *stores.Challenge) error
	SendCode     func(ctx context.Context, email, code string, ttl time.Duration) error

	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics IssueOTPMetrics
	Events  IssueOTPEvents
	Errors  Errors
}

// RunIssueOTP generates a fresh code for email, replaces any outstanding
// challenge with it and mails the code. A delivery failure leaves the new
// challenge live.
func RunIssueOTP(ctx context.Context, email string, deps IssueOTPDeps) error {
	normalizeIssueOTPDeps(&deps)

	if deps.HashCode == nil || deps.PutChallenge == nil || deps.SendCode == nil {
		return deps.Errors.EngineNotReady
	}

	email = strings.TrimSpace(email)
	if email == "" {
		err := deps.Errors.Invalid("Email is required")
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, AuditRecord{Event: deps.Events.Issue, Reason: "empty_email", Err: err})
		return err
	}

	code, err := deps.GenerateCode(deps.Digits)
	if err != nil {
		return deps.failIssue(ctx, email, "generate_failed", deps.Errors.internal(err))
	}
	codeHash, err := deps.HashCode(code)
	if err != nil {
		return deps.failIssue(ctx, email, "hash_failed", deps.Errors.internal(err))
	}

	now := deps.Now()
	challenge := &stores.Challenge{
		Email:     email,
		CodeHash:  codeHash,
		CreatedAt: now,
		ExpiresAt: now.Add(deps.TTL),
	}
	if err := deps.PutChallenge(ctx, challenge); err != nil {
		return deps.failIssue(ctx, email, "persist_failed", deps.Errors.internal(err))
	}

	if err := deps.SendCode(ctx, email, code, deps.TTL); err != nil {
		mapped := err
		if !isContextErr(err) {
			mapped = errors.Join(deps.Errors.DeliveryFailed, err)
		}
		deps.MetricInc(deps.Metrics.DeliveryFailed)
		deps.EmitAudit(ctx, AuditRecord{Event: deps.Events.Issue, Email: email, Reason: "delivery_failed", Err: mapped})
		return mapped
	}

	deps.MetricInc(deps.Metrics.Issued)
	deps.EmitAudit(ctx, AuditRecord{Event: deps.Events.Issue, Success: true, Email: email})
	return nil
}

func (deps IssueOTPDeps) failIssue(ctx context.Context, email, reason string, err error) error {
	deps.MetricInc(deps.Metrics.Failure)
	deps.EmitAudit(ctx, AuditRecord{Event: deps.Events.Issue, Email: email, Reason: reason, Err: err})
	return err
}

func normalizeIssueOTPDeps(deps *IssueOTPDeps) {
	normalizeCommon(&deps.Now, &deps.MetricInc, &deps.EmitAudit)
	normalizeErrors(&deps.Errors)
	if deps.Digits == 0 {
		deps.Digits = 6
	}
	if deps.TTL <= 0 {
		deps.TTL = 10 * time.Minute
	}
	if deps.GenerateCode == nil {
		deps.GenerateCode = internal.NewNumericCode
	}
}

// ChallengeDeps is the verify-then-consume step shared by registration and
// password reset.
type ChallengeDeps struct {
	Digits int

	GetChallenge        func(context.Context, string) (*stores.Challenge, error)
	ConsumeChallenge    func(context.Context, *stores.Challenge) error
	VerifyCode          func(code, codeHash string) (bool, error)
	IsChallengeNotFound func(error) bool
}

func (c *ChallengeDeps) normalize() {
	if c.Digits == 0 {
		c.Digits = 6
	}
	if c.IsChallengeNotFound == nil {
		c.IsChallengeNotFound = func(err error) bool { return errors.Is(err, stores.ErrChallengeNotFound) }
	}
}

func (c ChallengeDeps) ready() bool {
	return c.GetChallenge != nil && c.ConsumeChallenge != nil && c.VerifyCode != nil
}

// verify returns the live challenge for email once code matches it. The
// challenge is left in place; consume it only after every other guard passed.
func (c ChallengeDeps) verify(ctx context.Context, email, code string, errs Errors) (*stores.Challenge, error) {
	challenge, err := c.GetChallenge(ctx, email)
	if err != nil {
		if c.IsChallengeNotFound(err) {
			return nil, errs.NoChallengeIssued
		}
		return nil, errs.internal(err)
	}

	if !internal.IsNumericCode(code, c.Digits) {
		return nil, errs.InvalidCode
	}

	ok, err := c.VerifyCode(code, challenge.CodeHash)
	if err != nil {
		return nil, errs.internal(err)
	}
	if !ok {
		return nil, errs.InvalidCode
	}
	return challenge, nil
}

// consume deletes the verified challenge. Losing a race to another consumer
// or a fresh issue reads as no challenge.
func (c ChallengeDeps) consume(ctx context.Context, challenge *stores.Challenge, errs Errors) error {
	if err := c.ConsumeChallenge(ctx, challenge); err != nil {
		if c.IsChallengeNotFound(err) {
			return errs.NoChallengeIssued
		}
		return errs.internal(err)
	}
	return nil
}
