package otpauth

import (
	"errors"

	"github.com/educatebharat/otpauth/internal/stores"
	"github.com/educatebharat/otpauth/jwt"
	"github.com/educatebharat/otpauth/password"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an Engine. A Builder can be built once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	store     CredentialStore
	mailer    Mailer
	auditSink AuditSink

	built bool
}

// New returns a Builder preloaded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client backing the verification ledger.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithCredentialStore sets where identities live.
func (b *Builder) WithCredentialStore(store CredentialStore) *Builder {
	b.store = store
	return b
}

// WithMailer sets the mail transport for codes and notifications.
func (b *Builder) WithMailer(m Mailer) *Builder {
	b.mailer = m
	return b
}

// WithAuditSink sets the audit destination. It has no effect unless
// Config.Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the authenticate latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns an immutable Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.store == nil {
		return nil, errors.New("credential store required")
	}
	if b.mailer == nil {
		return nil, errors.New("mailer required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	engine := &Engine{
		config: cloneConfig(cfg),
		store:  b.store,
		mailer: b.mailer,
		ledger: stores.NewVerificationLedger(b.redis, cfg.OTP.RedisPrefix),
	}

	ph, err := password.NewArgon2(password.Config{
		Memory:         cfg.Password.Memory,
		Time:           cfg.Password.Time,
		Parallelism:    cfg.Password.Parallelism,
		SaltLength:     cfg.Password.SaltLength,
		KeyLength:      cfg.Password.KeyLength,
		MaxSecretBytes: cfg.Password.MaxBytes,
	})
	if err != nil {
		return nil, err
	}
	engine.passwordHash = ph

	// Unknown-email logins verify against this so both failure paths pay
	// for one Argon2 run.
	engine.dummyHash, err = ph.Hash("otpauth-dummy-credential")
	if err != nil {
		return nil, err
	}

	engine.accessTokens, err = jwt.NewManager(jwt.Config{
		Use:           jwt.UseAccess,
		TTL:           cfg.JWT.AccessTTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.AccessPrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.AccessPublicKey),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
		KeyID:         cfg.JWT.AccessKeyID,
		VerifyKeys:    cloneKeyMap(cfg.JWT.AccessVerifyKeys),
	})
	if err != nil {
		return nil, err
	}

	engine.refreshTokens, err = jwt.NewManager(jwt.Config{
		Use:           jwt.UseRefresh,
		TTL:           cfg.JWT.RefreshTTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.RefreshPrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.RefreshPublicKey),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
		KeyID:         cfg.JWT.RefreshKeyID,
		VerifyKeys:    cloneKeyMap(cfg.JWT.RefreshVerifyKeys),
	})
	if err != nil {
		return nil, err
	}

	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	return engine, nil
}
