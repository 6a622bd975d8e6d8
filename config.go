package otpauth

import (
	"bytes"
	"errors"
	"strings"
	"time"
)

// Config holds every Engine setting. Build validates a private copy; the
// Engine never observes later mutation of the caller's value.
type Config struct {
	JWT      JWTConfig
	Password PasswordConfig
	OTP      OTPConfig
	Mail     MailConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures the access and refresh token signers. The two must use
// different keys.
type JWTConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod string // "hs256" (default) or "ed25519"

	// For hs256 the private key is the HMAC secret and the public key is
	// unused.
	AccessPrivateKey  []byte
	AccessPublicKey   []byte
	RefreshPrivateKey []byte
	RefreshPublicKey  []byte

	Issuer   string
	Audience string
	Leeway   time.Duration

	// AccessKeyID and RefreshKeyID are written to the kid header. When the
	// matching VerifyKeys map is set, tokens are verified by kid, so keys
	// signed before a rotation keep working while they are listed.
	AccessKeyID       string
	RefreshKeyID      string
	AccessVerifyKeys  map[string][]byte
	RefreshVerifyKeys map[string][]byte
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds Argon2id cost parameters and the password policy.
type PasswordConfig struct {
	Memory         uint32 // in KB
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	MaxBytes       int
	MinLength      int
	UpgradeOnLogin bool
}

/*
====================================
OTP CONFIG
====================================
*/

// OTPConfig controls verification codes.
type OTPConfig struct {
	Digits      int
	TTL         time.Duration
	RedisPrefix string
}

// MailConfig controls the wording and routing of outgoing mail.
type MailConfig struct {
	ProductName string
	// OperatorAddress receives account deletion requests.
	OperatorAddress string
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns production defaults. Signing keys are left empty and
// must be supplied.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     24 * time.Hour,
			RefreshTTL:    10 * 24 * time.Hour,
			SigningMethod: "hs256",
			Issuer:        "otpauth",
		},
		Password: PasswordConfig{
			Memory:         65536,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			MaxBytes:       1024,
			MinLength:      6,
			UpgradeOnLogin: true,
		},
		OTP: OTPConfig{
			Digits:      6,
			TTL:         10 * time.Minute,
			RedisPrefix: "otp",
		},
		Mail: MailConfig{
			ProductName: "EducateBharat",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.AccessPrivateKey = cloneBytes(cfg.JWT.AccessPrivateKey)
	out.JWT.AccessPublicKey = cloneBytes(cfg.JWT.AccessPublicKey)
	out.JWT.RefreshPrivateKey = cloneBytes(cfg.JWT.RefreshPrivateKey)
	out.JWT.RefreshPublicKey = cloneBytes(cfg.JWT.RefreshPublicKey)
	out.JWT.AccessVerifyKeys = cloneKeyMap(cfg.JWT.AccessVerifyKeys)
	out.JWT.RefreshVerifyKeys = cloneKeyMap(cfg.JWT.RefreshVerifyKeys)
	return out
}

func cloneKeyMap(m map[string][]byte) map[string][]byte {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string][]byte, len(m))
	for kid, key := range m {
		out[kid] = cloneBytes(key)
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks cfg for values the Engine cannot run with.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.RefreshTTL < c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be >= AccessTTL")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be within [0, 2m]")
	}

	switch c.JWT.SigningMethod {
	case "hs256":
		if len(c.JWT.AccessPrivateKey) == 0 || len(c.JWT.RefreshPrivateKey) == 0 {
			return errors.New("hs256 requires AccessPrivateKey and RefreshPrivateKey")
		}
		if len(c.JWT.AccessPrivateKey) < 32 || len(c.JWT.RefreshPrivateKey) < 32 {
			return errors.New("hs256 secrets must be >= 32 bytes")
		}
		if bytes.Equal(c.JWT.AccessPrivateKey, c.JWT.RefreshPrivateKey) {
			return errors.New("access and refresh signing keys must differ")
		}
	case "ed25519":
		if len(c.JWT.AccessPrivateKey) == 0 || len(c.JWT.AccessPublicKey) == 0 {
			return errors.New("ed25519 requires AccessPrivateKey and AccessPublicKey")
		}
		if len(c.JWT.RefreshPrivateKey) == 0 || len(c.JWT.RefreshPublicKey) == 0 {
			return errors.New("ed25519 requires RefreshPrivateKey and RefreshPublicKey")
		}
		if bytes.Equal(c.JWT.AccessPublicKey, c.JWT.RefreshPublicKey) {
			return errors.New("access and refresh signing keys must differ")
		}
	default:
		return errors.New("unsupported JWT signing method")
	}
	if err := validateKeyRing("access", c.JWT.AccessKeyID, c.JWT.AccessVerifyKeys); err != nil {
		return err
	}
	if err := validateKeyRing("refresh", c.JWT.RefreshKeyID, c.JWT.RefreshVerifyKeys); err != nil {
		return err
	}
	for kid, key := range c.JWT.AccessVerifyKeys {
		for rkid, rkey := range c.JWT.RefreshVerifyKeys {
			if bytes.Equal(key, rkey) {
				return errors.New("access key " + kid + " is also refresh key " + rkid)
			}
		}
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MinLength < 1 {
		return errors.New("Password MinLength must be >= 1")
	}
	if c.Password.MaxBytes < c.Password.MinLength {
		return errors.New("Password MaxBytes must be >= MinLength")
	}

	// OTP
	if c.OTP.Digits < 4 || c.OTP.Digits > 10 {
		return errors.New("OTP Digits must be within [4, 10]")
	}
	if c.OTP.TTL <= 0 {
		return errors.New("OTP TTL must be > 0")
	}
	if strings.TrimSpace(c.OTP.RedisPrefix) == "" {
		return errors.New("OTP RedisPrefix must be set")
	}

	// Mail
	if strings.TrimSpace(c.Mail.ProductName) == "" {
		return errors.New("Mail ProductName must be set")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	if !c.Metrics.Enabled && c.Metrics.EnableLatencyHistograms {
		return errors.New("Metrics.EnableLatencyHistograms requires Metrics.Enabled")
	}

	return nil
}

func validateKeyRing(use, keyID string, verifyKeys map[string][]byte) error {
	if len(verifyKeys) == 0 {
		return nil
	}
	if strings.TrimSpace(keyID) == "" {
		return errors.New("JWT " + use + " verify keys require a key id")
	}
	if _, ok := verifyKeys[keyID]; !ok {
		return errors.New("JWT " + use + " key id is not in its verify keys")
	}
	return nil
}
