package otpauth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestIssueOTPMailsCode(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	ctx := context.Background()

	if err := env.engine.IssueOTP(ctx, "alice@example.com"); err != nil {
		t.Fatalf("IssueOTP failed: %v", err)
	}

	msgs := env.mailer.messages()
	if len(msgs) != 1 {
		t.Fatalf("expected one mail, got %d", len(msgs))
	}
	if msgs[0].Subject != "OTP for EducateBharat" {
		t.Fatalf("unexpected subject %q", msgs[0].Subject)
	}
	code := env.mailer.lastCodeFor(t, "alice@example.com")
	if len(code) != 6 || code[0] == '0' {
		t.Fatalf("expected 6-digit code without leading zero, got %q", code)
	}
	if !strings.Contains(msgs[0].HTML, code) {
		t.Fatal("expected HTML body to carry the code")
	}

	// the stored record must not contain the plaintext code
	raw, err := env.mr.Get("otp:alice@example.com")
	if err != nil {
		t.Fatalf("challenge not stored: %v", err)
	}
	if strings.Contains(raw, code) {
		t.Fatal("plaintext code found in ledger")
	}
	if ttl := env.mr.TTL("otp:alice@example.com"); ttl <= 9*time.Minute || ttl > 10*time.Minute {
		t.Fatalf("expected ~10m TTL, got %v", ttl)
	}

	if got := env.engine.Metrics().Value(MetricOTPIssued); got != 1 {
		t.Fatalf("expected MetricOTPIssued=1, got %d", got)
	}
}

func TestIssueOTPRequiresEmail(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)

	err := env.engine.IssueOTP(context.Background(), "   ")
	expectKind(t, err, ErrValidation)

	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Reason != "Email is required" {
		t.Fatalf("unexpected validation error %v", err)
	}
	if len(env.mailer.messages()) != 0 {
		t.Fatal("expected no mail for empty email")
	}
}

func TestIssueOTPSupersedesPreviousCode(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	ctx := context.Background()
	email := "bob@example.com"

	if err := env.engine.IssueOTP(ctx, email); err != nil {
		t.Fatalf("first IssueOTP failed: %v", err)
	}
	first := env.mailer.lastCodeFor(t, email)

	var second string
	for i := 0; i < 5; i++ {
		if err := env.engine.IssueOTP(ctx, email); err != nil {
			t.Fatalf("IssueOTP failed: %v", err)
		}
		second = env.mailer.lastCodeFor(t, email)
		if second != first {
			break
		}
	}
	if second == first {
		t.Skip("code generator repeated itself five times")
	}

	_, err := env.engine.Register(ctx, RegisterInput{Name: "Bob", Email: email, Password: "secret-1", Code: first})
	expectKind(t, err, ErrInvalidCode)

	if _, err := env.engine.Register(ctx, RegisterInput{Name: "Bob", Email: email, Password: "secret-1", Code: second}); err != nil {
		t.Fatalf("expected latest code to register, got %v", err)
	}
}

func TestIssueOTPDeliveryFailureKeepsCodeLive(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	ctx := context.Background()
	email := "carol@example.com"

	env.mailer.fail(errors.New("smtp down"))
	err := env.engine.IssueOTP(ctx, email)
	expectKind(t, err, ErrDeliveryFailed)
	if KindOf(err) != KindDeliveryFailed {
		t.Fatalf("expected KindDeliveryFailed, got %q", KindOf(err))
	}
	if !env.mr.Exists("otp:" + email) {
		t.Fatal("expected challenge to stay live after failed delivery")
	}
	if got := env.engine.Metrics().Value(MetricOTPDeliveryFailed); got != 1 {
		t.Fatalf("expected MetricOTPDeliveryFailed=1, got %d", got)
	}
}

func TestIssueOTPLedgerDown(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	env.mr.Close()

	err := env.engine.IssueOTP(context.Background(), "dave@example.com")
	expectKind(t, err, ErrInternal)
	if len(env.mailer.messages()) != 0 {
		t.Fatal("no mail may be sent when the code could not be stored")
	}
}

func TestIssueOTPEngineNotReady(t *testing.T) {
	var e *Engine
	expectKind(t, e.IssueOTP(context.Background(), "x@example.com"), ErrEngineNotReady)
}
