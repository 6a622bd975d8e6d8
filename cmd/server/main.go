// Command server runs the OTP-gated auth API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/educatebharat/otpauth"
	"github.com/educatebharat/otpauth/internal/appconfig"
	"github.com/educatebharat/otpauth/internal/httpapi"
	"github.com/educatebharat/otpauth/mail"
	"github.com/educatebharat/otpauth/metrics/export/prometheus"
	"github.com/educatebharat/otpauth/store/memory"
	mongostore "github.com/educatebharat/otpauth/store/mongo"
	"github.com/educatebharat/otpauth/store/sqlite"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("load .env: %v", err)
	}

	cfg, err := appconfig.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal(err)
	}
}

type storeHandle struct {
	store otpauth.CredentialStore
	ping  httpapi.HealthCheck
	close func(context.Context) error
}

func openStore(ctx context.Context, cfg appconfig.Config) (storeHandle, error) {
	switch cfg.Store {
	case appconfig.StoreSQLite:
		s, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return storeHandle{}, err
		}
		return storeHandle{store: s, ping: s.Ping, close: func(context.Context) error { return s.Close() }}, nil
	case appconfig.StoreMongo:
		s, err := mongostore.Open(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
		if err != nil {
			return storeHandle{}, err
		}
		return storeHandle{store: s, ping: s.Ping, close: s.Close}, nil
	default:
		log.Print("using in-memory credential store; identities are lost on exit")
		return storeHandle{
			store: memory.New(),
			ping:  func(context.Context) error { return nil },
			close: func(context.Context) error { return nil },
		}, nil
	}
}

func newMailer(cfg appconfig.Config) (otpauth.Mailer, error) {
	if cfg.Mailer == appconfig.MailerLog {
		log.Print("using log mailer; verification codes are written to the log")
		return mail.NewLogMailer(nil), nil
	}
	return mail.NewSMTPMailer(mail.SMTPConfig{
		Host:       cfg.SMTPHost,
		Port:       cfg.SMTPPort,
		Username:   cfg.SMTPUser,
		Password:   cfg.SMTPPassword,
		From:       cfg.SMTPFrom,
		RequireTLS: true,
	})
}

func run(ctx context.Context, cfg appconfig.Config) error {
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store, err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := st.close(shutdownCtx); err != nil {
			log.Printf("close store: %v", err)
		}
	}()

	mailer, err := newMailer(cfg)
	if err != nil {
		return fmt.Errorf("mailer: %w", err)
	}

	builder := otpauth.New().
		WithConfig(cfg.EngineConfig()).
		WithRedis(rdb).
		WithCredentialStore(st.store).
		WithMailer(mailer)
	if cfg.AuditLog {
		var opts []otpauth.JSONSinkOption
		if cfg.AuditMaskEmail {
			opts = append(opts, otpauth.WithMaskedEmails())
		}
		builder = builder.WithAuditSink(otpauth.NewJSONWriterSink(os.Stdout, opts...))
	}

	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	gin.SetMode(gin.ReleaseMode)
	opts := httpapi.Options{
		Cookies:   httpapi.CookieConfig{Domain: cfg.CookieDomain, Secure: cfg.CookieSecure},
		AccessLog: cfg.AccessLog,
		Checks: map[string]httpapi.HealthCheck{
			"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
			"store": st.ping,
		},
	}
	if cfg.Metrics {
		opts.Metrics = prometheus.New(engine)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewRouter(engine, opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
