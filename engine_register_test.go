package otpauth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

func TestRegisterCreatesIdentity(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)

	identity := env.register(t, "Alice", "alice@example.com", "secret-1")
	if identity.ID == "" || identity.Name != "Alice" || identity.Email != "alice@example.com" {
		t.Fatalf("unexpected identity %+v", identity)
	}
	if identity.PasswordHash != "" {
		t.Fatal("returned identity must not carry the password hash")
	}
	if identity.CreatedAt.IsZero() || identity.UpdatedAt.IsZero() {
		t.Fatal("expected timestamps to be set")
	}

	stored := env.store.hashOf("alice@example.com")
	if !strings.HasPrefix(stored, "$argon2id$") {
		t.Fatalf("expected argon2id hash, got %q", stored)
	}
	if env.mr.Exists("otp:alice@example.com") {
		t.Fatal("expected code to be consumed")
	}
	if got := env.engine.Metrics().Value(MetricRegisterSuccess); got != 1 {
		t.Fatalf("expected MetricRegisterSuccess=1, got %d", got)
	}
}

func TestRegisterGuardsInOrder(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	ctx := context.Background()
	env.register(t, "Alice", "alice@example.com", "secret-1")

	tests := []struct {
		name   string
		in     RegisterInput
		want   error
		reason string
	}{
		{"missing name", RegisterInput{Email: "x@example.com", Password: "secret-1", Code: "123456"}, ErrValidation, "All fields are required"},
		{"missing code", RegisterInput{Name: "X", Email: "x@example.com", Password: "secret-1"}, ErrValidation, "All fields are required"},
		{"short password", RegisterInput{Name: "X", Email: "x@example.com", Password: "12345", Code: "123456"}, ErrValidation, "Password should be at least 6 characters long"},
		{"existing email", RegisterInput{Name: "A", Email: "alice@example.com", Password: "secret-2", Code: "123456"}, ErrAlreadyExists, ""},
		{"no code issued", RegisterInput{Name: "X", Email: "x@example.com", Password: "secret-1", Code: "123456"}, ErrNoChallengeIssued, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.engine.Register(ctx, tc.in)
			expectKind(t, err, tc.want)
			if tc.reason != "" {
				var verr *ValidationError
				if !errors.As(err, &verr) || verr.Reason != tc.reason {
					t.Fatalf("expected reason %q, got %v", tc.reason, err)
				}
			}
		})
	}
}

func TestRegisterWrongCodeKeepsChallenge(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	ctx := context.Background()
	email := "erin@example.com"

	if err := env.engine.IssueOTP(ctx, email); err != nil {
		t.Fatalf("IssueOTP failed: %v", err)
	}
	code := env.mailer.lastCodeFor(t, email)

	_, err := env.engine.Register(ctx, RegisterInput{Name: "Erin", Email: email, Password: "secret-1", Code: wrongCode(code)})
	expectKind(t, err, ErrInvalidCode)

	if _, err := env.engine.Register(ctx, RegisterInput{Name: "Erin", Email: email, Password: "secret-1", Code: code}); err != nil {
		t.Fatalf("expected correct code to still work, got %v", err)
	}
	if got := env.engine.Metrics().Value(MetricInvalidCode); got != 1 {
		t.Fatalf("expected MetricInvalidCode=1, got %d", got)
	}
}

func TestRegisterReplayRejected(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	ctx := context.Background()
	email := "frank@example.com"

	if err := env.engine.IssueOTP(ctx, email); err != nil {
		t.Fatalf("IssueOTP failed: %v", err)
	}
	code := env.mailer.lastCodeFor(t, email)

	in := RegisterInput{Name: "Frank", Email: email, Password: "secret-1", Code: code}
	if _, err := env.engine.Register(ctx, in); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	_, err := env.engine.Register(ctx, in)
	expectKind(t, err, ErrAlreadyExists)
	if got := env.engine.Metrics().Value(MetricRegisterDuplicate); got != 1 {
		t.Fatalf("expected MetricRegisterDuplicate=1, got %d", got)
	}
}

func TestRegisterConcurrentSingleWinner(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	ctx := context.Background()
	email := "grace@example.com"

	if err := env.engine.IssueOTP(ctx, email); err != nil {
		t.Fatalf("IssueOTP failed: %v", err)
	}
	code := env.mailer.lastCodeFor(t, email)

	const workers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.engine.Register(ctx, RegisterInput{Name: "Grace", Email: email, Password: "secret-1", Code: code})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				return
			}
			if !errors.Is(err, ErrNoChallengeIssued) && !errors.Is(err, ErrAlreadyExists) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
}
