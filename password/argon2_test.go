package password

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func testConfig() Config {
	return Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func newTestHasher(t *testing.T) *Argon2 {
	t.Helper()
	hasher, err := NewArgon2(testConfig())
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}
	return hasher
}

func TestHashAndVerify(t *testing.T) {
	hasher := newTestHasher(t)

	hash, err := hasher.Hash("P@ssw0rd-Ascii")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected PHC prefix: %s", hash)
	}

	ok, err := hasher.Verify("P@ssw0rd-Ascii", hash)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if !ok {
		t.Fatal("expected verification to succeed")
	}
}

func TestHashUsesFreshSalt(t *testing.T) {
	hasher := newTestHasher(t)

	first, err := hasher.Hash("123456")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	second, err := hasher.Hash("123456")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct hashes for the same secret")
	}
}

func TestShortSecretsAccepted(t *testing.T) {
	hasher := newTestHasher(t)

	hash, err := hasher.Hash("042917")
	if err != nil {
		t.Fatalf("expected 6-digit code to hash: %v", err)
	}
	ok, err := hasher.Verify("042917", hash)
	if err != nil || !ok {
		t.Fatalf("Verify failed: ok=%v err=%v", ok, err)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	hasher := newTestHasher(t)

	hash, err := hasher.Hash("correct-password")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	ok, err := hasher.Verify("wrong-password", hash)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if ok {
		t.Fatal("expected wrong secret verification to fail")
	}
}

func TestNeedsUpgrade(t *testing.T) {
	oldHasher := newTestHasher(t)

	hash, err := oldHasher.Hash("test-password")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	cfg := testConfig()
	cfg.Time = 2
	newHasher, err := NewArgon2(cfg)
	if err != nil {
		t.Fatalf("NewArgon2(new) error: %v", err)
	}

	upgrade, err := newHasher.NeedsUpgrade(hash)
	if err != nil {
		t.Fatalf("NeedsUpgrade error: %v", err)
	}
	if !upgrade {
		t.Fatal("expected NeedsUpgrade to return true for weaker hash parameters")
	}

	upgrade, err = oldHasher.NeedsUpgrade(hash)
	if err != nil {
		t.Fatalf("NeedsUpgrade error: %v", err)
	}
	if upgrade {
		t.Fatal("expected NeedsUpgrade to return false for current parameters")
	}
}

func TestVerifyMalformedHash(t *testing.T) {
	hasher := newTestHasher(t)

	cases := []string{
		"",
		"not-a-hash",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=19$m=1024,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
	}
	for _, encoded := range cases {
		ok, err := hasher.Verify("anything", encoded)
		if ok {
			t.Fatalf("expected %q to fail verification", encoded)
		}
		if !errors.Is(err, ErrInvalidHash) {
			t.Fatalf("expected ErrInvalidHash for %q, got %v", encoded, err)
		}
	}
}

func TestHashEmptySecret(t *testing.T) {
	hasher := newTestHasher(t)

	if _, err := hasher.Hash(""); !errors.Is(err, ErrEmptySecret) {
		t.Fatalf("expected ErrEmptySecret, got %v", err)
	}
}

func TestSecretLengthBound(t *testing.T) {
	cfg := testConfig()
	cfg.MaxSecretBytes = 16
	hasher, err := NewArgon2(cfg)
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}

	exact := strings.Repeat("a", 16)
	hash, err := hasher.Hash(exact)
	if err != nil {
		t.Fatalf("expected exactly-max secret to be accepted: %v", err)
	}
	if _, err := hasher.Hash(exact + "a"); !errors.Is(err, ErrSecretTooLong) {
		t.Fatalf("expected ErrSecretTooLong from Hash, got %v", err)
	}
	if _, err := hasher.Verify(exact+"a", hash); !errors.Is(err, ErrSecretTooLong) {
		t.Fatalf("expected ErrSecretTooLong from Verify, got %v", err)
	}
}

func TestDefaultMaxSecretBytesApplied(t *testing.T) {
	hasher := newTestHasher(t)

	if _, err := hasher.Hash(strings.Repeat("x", DefaultMaxSecretBytes+1)); !errors.Is(err, ErrSecretTooLong) {
		t.Fatalf("expected secret > %d bytes to be rejected, got %v", DefaultMaxSecretBytes, err)
	}
}

func TestNewArgon2RejectsWeakConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"memory", func(c *Config) { c.Memory = 1024 }},
		{"time", func(c *Config) { c.Time = 0 }},
		{"parallelism", func(c *Config) { c.Parallelism = 0 }},
		{"salt", func(c *Config) { c.SaltLength = 8 }},
		{"key", func(c *Config) { c.KeyLength = 8 }},
		{"max secret", func(c *Config) { c.MaxSecretBytes = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(&cfg)
			if _, err := NewArgon2(cfg); err == nil {
				t.Fatal("expected config validation error")
			}
		})
	}
}

func TestVerifyLegacyBcrypt(t *testing.T) {
	hasher := newTestHasher(t)

	legacy, err := bcrypt.GenerateFromPassword([]byte("node-era-password"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("GenerateFromPassword error: %v", err)
	}

	ok, err := hasher.Verify("node-era-password", string(legacy))
	if err != nil || !ok {
		t.Fatalf("expected bcrypt verification to succeed: ok=%v err=%v", ok, err)
	}

	ok, err = hasher.Verify("other-password", string(legacy))
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if ok {
		t.Fatal("expected bcrypt mismatch to fail")
	}

	upgrade, err := hasher.NeedsUpgrade(string(legacy))
	if err != nil {
		t.Fatalf("NeedsUpgrade error: %v", err)
	}
	if !upgrade {
		t.Fatal("expected bcrypt hash to need an upgrade")
	}
}

func TestVerifyCorruptBcrypt(t *testing.T) {
	hasher := newTestHasher(t)

	ok, err := hasher.Verify("x", "$2a$10$short")
	if ok {
		t.Fatal("expected corrupt bcrypt hash to fail")
	}
	if !errors.Is(err, ErrInvalidHash) {
		t.Fatalf("expected ErrInvalidHash, got %v", err)
	}
}
