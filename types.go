package otpauth

import (
	"context"
	"time"
)

// Identity is a registered account. PasswordHash never leaves the process in
// JSON.
type Identity struct {
	ID           string    `json:"_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Public returns a copy with the password hash cleared.
func (i Identity) Public() Identity {
	i.PasswordHash = ""
	return i
}

// CredentialStore persists identities. Implementations must return
// ErrNotFound for missing identities and ErrAlreadyExists when Create hits the
// unique email constraint.
//
// Provided implementations: store/sqlite, store/mongo, store/memory.
type CredentialStore interface {
	GetByEmail(ctx context.Context, email string) (Identity, error)
	GetByID(ctx context.Context, id string) (Identity, error)
	Create(ctx context.Context, identity Identity) error
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error
}

// Message is one outgoing mail. Either body may be empty.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Mailer dispatches mail. Send must not return until the message was handed
// to the transport or failed.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SessionPair is the credential pair minted at login or refresh.
type SessionPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// LoginResult is returned by [Engine.Login]. Identity has its password hash
// cleared.
type LoginResult struct {
	Identity Identity
	Session  SessionPair
}

// RegisterInput is the registration request.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Code     string
}
