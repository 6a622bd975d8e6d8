package otpauth

import (
	"context"
	"errors"
	"testing"
)

func TestResetPasswordFlow(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	ctx := context.Background()
	email := "alice@example.com"
	env.register(t, "Alice", email, "old-password")

	if err := env.engine.IssueOTP(ctx, email); err != nil {
		t.Fatalf("IssueOTP failed: %v", err)
	}
	code := env.mailer.lastCodeFor(t, email)

	if err := env.engine.ResetPassword(ctx, email, code, "new-password"); err != nil {
		t.Fatalf("ResetPassword failed: %v", err)
	}

	if _, err := env.engine.Login(ctx, email, "old-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected old password to be rejected, got %v", err)
	}
	if _, err := env.engine.Login(ctx, email, "new-password"); err != nil {
		t.Fatalf("expected new password to log in, got %v", err)
	}

	err := env.engine.ResetPassword(ctx, email, code, "newer-password")
	expectKind(t, err, ErrNoChallengeIssued)
}

func TestResetPasswordWrongCodeLeavesHashUnchanged(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	ctx := context.Background()
	email := "bob@example.com"
	env.register(t, "Bob", email, "old-password")
	before := env.store.hashOf(email)

	if err := env.engine.IssueOTP(ctx, email); err != nil {
		t.Fatalf("IssueOTP failed: %v", err)
	}
	code := env.mailer.lastCodeFor(t, email)

	err := env.engine.ResetPassword(ctx, email, wrongCode(code), "attacker-pass")
	expectKind(t, err, ErrInvalidCode)

	if env.store.hashOf(email) != before {
		t.Fatal("password hash changed after a wrong code")
	}
	if env.store.updateCount() != 0 {
		t.Fatalf("expected no store writes, got %d", env.store.updateCount())
	}
	if _, err := env.engine.Login(ctx, email, "old-password"); err != nil {
		t.Fatalf("expected old password to keep working, got %v", err)
	}

	// the challenge survives a wrong guess
	if err := env.engine.ResetPassword(ctx, email, code, "new-password"); err != nil {
		t.Fatalf("expected correct code to reset, got %v", err)
	}
}

func TestResetPasswordGuards(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	ctx := context.Background()
	env.register(t, "Carol", "carol@example.com", "old-password")

	expectKind(t, env.engine.ResetPassword(ctx, "", "123456", "new-password"), ErrValidation)
	expectKind(t, env.engine.ResetPassword(ctx, "carol@example.com", "123456", "abc"), ErrValidation)
	expectKind(t, env.engine.ResetPassword(ctx, "nobody@example.com", "123456", "new-password"), ErrNotFound)
	expectKind(t, env.engine.ResetPassword(ctx, "carol@example.com", "123456", "new-password"), ErrNoChallengeIssued)

	if got := env.engine.Metrics().Value(MetricPasswordResetFailure); got != 4 {
		t.Fatalf("expected MetricPasswordResetFailure=4, got %d", got)
	}
}
