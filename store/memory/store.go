// Package memory is an in-process CredentialStore for tests and local
// development. Contents are lost on exit.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/educatebharat/otpauth"
)

// Store implements otpauth.CredentialStore. The zero value is not usable;
// call New.
type Store struct {
	mu      sync.RWMutex
	byID    map[string]otpauth.Identity
	byEmail map[string]string
	now     func() time.Time
}

var _ otpauth.CredentialStore = (*Store)(nil)

func New() *Store {
	return &Store{
		byID:    make(map[string]otpauth.Identity),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

func (s *Store) GetByEmail(_ context.Context, email string) (otpauth.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return otpauth.Identity{}, otpauth.ErrNotFound
	}
	return s.byID[id], nil
}

func (s *Store) GetByID(_ context.Context, id string) (otpauth.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	identity, ok := s.byID[id]
	if !ok {
		return otpauth.Identity{}, otpauth.ErrNotFound
	}
	return identity, nil
}

func (s *Store) Create(_ context.Context, identity otpauth.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[identity.Email]; ok {
		return otpauth.ErrAlreadyExists
	}
	if _, ok := s.byID[identity.ID]; ok {
		return otpauth.ErrAlreadyExists
	}
	s.byID[identity.ID] = identity
	s.byEmail[identity.Email] = identity.ID
	return nil
}

func (s *Store) UpdatePasswordHash(_ context.Context, id, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	identity, ok := s.byID[id]
	if !ok {
		return otpauth.ErrNotFound
	}
	identity.PasswordHash = passwordHash
	identity.UpdatedAt = s.now().UTC()
	s.byID[id] = identity
	return nil
}

// Len returns the number of stored identities.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
