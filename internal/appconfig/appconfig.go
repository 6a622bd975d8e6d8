// Package appconfig reads the server's process configuration from the
// environment.
package appconfig

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/educatebharat/otpauth"
)

// Store backends.
const (
	StoreSQLite = "sqlite"
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

// Mailer backends.
const (
	MailerSMTP = "smtp"
	MailerLog  = "log"
)

// Config is the server configuration. The JWT and SMTP credential variables
// keep the names deployments already use.
type Config struct {
	Addr            string        `env:"OTPAUTH_ADDR"             envDefault:":8000"`
	ShutdownTimeout time.Duration `env:"OTPAUTH_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	AccessLog       bool          `env:"OTPAUTH_ACCESS_LOG"       envDefault:"true"`

	RedisURL string `env:"OTPAUTH_REDIS_URL" envDefault:"redis://localhost:6379/0"`

	Store           string `env:"OTPAUTH_STORE"            envDefault:"sqlite"`
	SQLitePath      string `env:"OTPAUTH_SQLITE_PATH"      envDefault:"otpauth.db"`
	MongoURI        string `env:"MONGO_URI"`
	MongoDatabase   string `env:"OTPAUTH_MONGO_DATABASE"   envDefault:"educatebharat"`
	MongoCollection string `env:"OTPAUTH_MONGO_COLLECTION" envDefault:"users"`

	Mailer       string `env:"OTPAUTH_MAILER"    envDefault:"smtp"`
	SMTPHost     string `env:"OTPAUTH_SMTP_HOST" envDefault:"smtp.gmail.com"`
	SMTPPort     int    `env:"OTPAUTH_SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"COMPANY_EMAIL"`
	SMTPPassword string `env:"GMAIL_APP_PASSWORD"`
	SMTPFrom     string `env:"OTPAUTH_SMTP_FROM"`
	// OperatorEmail receives account deletion requests. Defaults to SMTPUser.
	OperatorEmail string `env:"OTPAUTH_OPERATOR_EMAIL"`
	ProductName   string `env:"OTPAUTH_PRODUCT_NAME" envDefault:"EducateBharat"`

	AccessSecret  string        `env:"JWT_SECRET_KEY,required"`
	RefreshSecret string        `env:"JWT_REFRESH_SECRET_KEY,required"`
	AccessTTL     time.Duration `env:"OTPAUTH_ACCESS_TTL"  envDefault:"24h"`
	RefreshTTL    time.Duration `env:"OTPAUTH_REFRESH_TTL" envDefault:"240h"`
	OTPTTL        time.Duration `env:"OTPAUTH_OTP_TTL"     envDefault:"10m"`

	// Key ids enable rotation. Previous*Secrets list retired kid:secret pairs
	// still accepted for verification.
	AccessKeyID            string            `env:"OTPAUTH_JWT_ACCESS_KID"`
	RefreshKeyID           string            `env:"OTPAUTH_JWT_REFRESH_KID"`
	PreviousAccessSecrets  map[string]string `env:"OTPAUTH_JWT_ACCESS_PREVIOUS"`
	PreviousRefreshSecrets map[string]string `env:"OTPAUTH_JWT_REFRESH_PREVIOUS"`

	CookieDomain string `env:"OTPAUTH_COOKIE_DOMAIN"`
	CookieSecure bool   `env:"OTPAUTH_COOKIE_SECURE" envDefault:"true"`

	AuditLog          bool `env:"OTPAUTH_AUDIT_LOG"          envDefault:"false"`
	AuditMaskEmail    bool `env:"OTPAUTH_AUDIT_MASK_EMAIL"   envDefault:"false"`
	Metrics           bool `env:"OTPAUTH_METRICS"            envDefault:"true"`
	LatencyHistograms bool `env:"OTPAUTH_LATENCY_HISTOGRAMS" envDefault:"false"`
}

// Load parses the environment and checks backend choices.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the values the engine does not validate itself.
func (c Config) Validate() error {
	switch c.Store {
	case StoreSQLite:
		if c.SQLitePath == "" {
			return errors.New("OTPAUTH_SQLITE_PATH is required for the sqlite store")
		}
	case StoreMongo:
		if c.MongoURI == "" {
			return errors.New("MONGO_URI is required for the mongo store")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}

	switch c.Mailer {
	case MailerSMTP:
		if c.SMTPUser == "" || c.SMTPPassword == "" {
			return errors.New("COMPANY_EMAIL and GMAIL_APP_PASSWORD are required for the smtp mailer")
		}
	case MailerLog:
	default:
		return fmt.Errorf("unknown mailer %q", c.Mailer)
	}

	if len(c.PreviousAccessSecrets) > 0 && c.AccessKeyID == "" {
		return errors.New("OTPAUTH_JWT_ACCESS_PREVIOUS requires OTPAUTH_JWT_ACCESS_KID")
	}
	if len(c.PreviousRefreshSecrets) > 0 && c.RefreshKeyID == "" {
		return errors.New("OTPAUTH_JWT_REFRESH_PREVIOUS requires OTPAUTH_JWT_REFRESH_KID")
	}
	return nil
}

// keyRing returns the verification keys for one token use, or nil when
// nothing was retired.
func keyRing(kid, current string, previous map[string]string) map[string][]byte {
	if kid == "" || len(previous) == 0 {
		return nil
	}
	ring := make(map[string][]byte, len(previous)+1)
	for id, secret := range previous {
		ring[id] = []byte(secret)
	}
	ring[kid] = []byte(current)
	return ring
}

// EngineConfig maps c onto the engine defaults.
func (c Config) EngineConfig() otpauth.Config {
	cfg := otpauth.DefaultConfig()
	cfg.JWT.AccessPrivateKey = []byte(c.AccessSecret)
	cfg.JWT.RefreshPrivateKey = []byte(c.RefreshSecret)
	cfg.JWT.AccessTTL = c.AccessTTL
	cfg.JWT.RefreshTTL = c.RefreshTTL
	cfg.JWT.AccessKeyID = c.AccessKeyID
	cfg.JWT.RefreshKeyID = c.RefreshKeyID
	cfg.JWT.AccessVerifyKeys = keyRing(c.AccessKeyID, c.AccessSecret, c.PreviousAccessSecrets)
	cfg.JWT.RefreshVerifyKeys = keyRing(c.RefreshKeyID, c.RefreshSecret, c.PreviousRefreshSecrets)
	cfg.OTP.TTL = c.OTPTTL

	cfg.Mail.ProductName = c.ProductName
	cfg.Mail.OperatorAddress = c.OperatorEmail
	if cfg.Mail.OperatorAddress == "" {
		cfg.Mail.OperatorAddress = c.SMTPUser
	}

	cfg.Audit.Enabled = c.AuditLog
	cfg.Metrics.Enabled = c.Metrics
	cfg.Metrics.EnableLatencyHistograms = c.LatencyHistograms
	return cfg
}
