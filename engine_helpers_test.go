package otpauth

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type mockStore struct {
	mu      sync.Mutex
	byID    map[string]Identity
	byEmail map[string]string
	updates int
	getErr  error
}

func newMockStore() *mockStore {
	return &mockStore{
		byID:    map[string]Identity{},
		byEmail: map[string]string{},
	}
}

func (s *mockStore) GetByEmail(_ context.Context, email string) (Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return Identity{}, s.getErr
	}
	id, ok := s.byEmail[email]
	if !ok {
		return Identity{}, ErrNotFound
	}
	return s.byID[id], nil
}

func (s *mockStore) GetByID(_ context.Context, id string) (Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return Identity{}, s.getErr
	}
	identity, ok := s.byID[id]
	if !ok {
		return Identity{}, ErrNotFound
	}
	return identity, nil
}

func (s *mockStore) Create(_ context.Context, identity Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[identity.Email]; ok {
		return ErrAlreadyExists
	}
	s.byID[identity.ID] = identity
	s.byEmail[identity.Email] = identity.ID
	return nil
}

func (s *mockStore) UpdatePasswordHash(_ context.Context, id, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	identity, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	identity.PasswordHash = passwordHash
	identity.UpdatedAt = time.Now().UTC()
	s.byID[id] = identity
	s.updates++
	return nil
}

func (s *mockStore) hashOf(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byID[s.byEmail[email]].PasswordHash
}

func (s *mockStore) updateCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updates
}

type mockMailer struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (m *mockMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *mockMailer) fail(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

func (m *mockMailer) messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.sent))
	copy(out, m.sent)
	return out
}

var codePattern = regexp.MustCompile(`Your OTP is (\d+)`)

// lastCodeFor returns the code in the most recent OTP mail sent to email.
func (m *mockMailer) lastCodeFor(t *testing.T, email string) string {
	t.Helper()

	msgs := m.messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].To != email {
			continue
		}
		if match := codePattern.FindStringSubmatch(msgs[i].Text); match != nil {
			return match[1]
		}
	}
	t.Fatalf("no OTP mail sent to %s", email)
	return ""
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.AccessPrivateKey = []byte("access-secret-0123456789abcdef-0123")
	cfg.JWT.RefreshPrivateKey = []byte("refresh-secret-0123456789abcdef-012")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Mail.OperatorAddress = "ops@example.com"
	cfg.Metrics.Enabled = true
	return cfg
}

type testEnv struct {
	engine *Engine
	store  *mockStore
	mailer *mockMailer
	mr     *miniredis.Miniredis
	rdb    *redis.Client
}

func newTestEnv(t *testing.T, cfg Config, sink AuditSink) *testEnv {
	t.Helper()

	mr, rdb := newTestRedis(t)
	env := &testEnv{
		store:  newMockStore(),
		mailer: &mockMailer{},
		mr:     mr,
		rdb:    rdb,
	}

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithCredentialStore(env.store).
		WithMailer(env.mailer).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	env.engine = engine
	return env
}

// register issues a code for email and registers with it.
func (env *testEnv) register(t *testing.T, name, email, pass string) Identity {
	t.Helper()

	ctx := context.Background()
	if err := env.engine.IssueOTP(ctx, email); err != nil {
		t.Fatalf("IssueOTP failed: %v", err)
	}
	identity, err := env.engine.Register(ctx, RegisterInput{
		Name:     name,
		Email:    email,
		Password: pass,
		Code:     env.mailer.lastCodeFor(t, email),
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return identity
}

func wrongCode(code string) string {
	b := []byte(code)
	if b[0] == '9' {
		b[0] = '1'
	} else {
		b[0]++
	}
	return string(b)
}

func expectKind(t *testing.T, err error, want error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}
