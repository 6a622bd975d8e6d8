// Package sqlite is a CredentialStore over a single SQLite file, using the
// pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/educatebharat/otpauth"
	"github.com/educatebharat/otpauth/store/sqlite/migrations"
)

// Store implements otpauth.CredentialStore.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

var _ otpauth.CredentialStore = (*Store)(nil)

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

// Open opens (creating if needed) the database at path and applies the
// embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := "file:" + filepath.Clean(path) +
		"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if err := applyMigrations(ctx, sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Ping reports whether the database answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.sqlDB.PingContext(ctx)
}

const selectIdentity = `
SELECT id, name, email, password_hash, created_at, updated_at
FROM identities
`

func (s *Store) GetByEmail(ctx context.Context, email string) (otpauth.Identity, error) {
	row := s.sqlDB.QueryRowContext(ctx, selectIdentity+"WHERE email = ?", email)
	return scanIdentity(row)
}

func (s *Store) GetByID(ctx context.Context, id string) (otpauth.Identity, error) {
	row := s.sqlDB.QueryRowContext(ctx, selectIdentity+"WHERE id = ?", id)
	return scanIdentity(row)
}

func (s *Store) Create(ctx context.Context, identity otpauth.Identity) error {
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO identities (id, name, email, password_hash, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		identity.ID,
		identity.Name,
		identity.Email,
		identity.PasswordHash,
		toMillis(identity.CreatedAt),
		toMillis(identity.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return otpauth.ErrAlreadyExists
		}
		return fmt.Errorf("insert identity: %w", err)
	}
	return nil
}

func (s *Store) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	res, err := s.sqlDB.ExecContext(ctx,
		"UPDATE identities SET password_hash = ?, updated_at = ? WHERE id = ?",
		passwordHash, toMillis(s.now()), id,
	)
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	if n == 0 {
		return otpauth.ErrNotFound
	}
	return nil
}

func scanIdentity(row *sql.Row) (otpauth.Identity, error) {
	var (
		identity  otpauth.Identity
		createdAt int64
		updatedAt int64
	)
	err := row.Scan(
		&identity.ID,
		&identity.Name,
		&identity.Email,
		&identity.PasswordHash,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return otpauth.Identity{}, otpauth.ErrNotFound
	}
	if err != nil {
		return otpauth.Identity{}, fmt.Errorf("scan identity: %w", err)
	}
	identity.CreatedAt = fromMillis(createdAt)
	identity.UpdatedAt = fromMillis(updatedAt)
	return identity, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
