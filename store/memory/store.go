// Package memory is an in-process identity store for tests and local
// development. Data does not survive a restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/cignalottu/authcore/identity"
)

// Store keeps identities in a map keyed by normalized email.
type Store struct {
	mu      sync.RWMutex
	byEmail map[string]*identity.Identity
	nextID  int64
	now     func() time.Time
}

var _ identity.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		byEmail: make(map[string]*identity.Identity),
		now:     time.Now,
	}
}

func (s *Store) ExistsByEmail(_ context.Context, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byEmail[identity.NormalizeEmail(email)]
	return ok, nil
}

func (s *Store) FindByEmail(_ context.Context, email string) (*identity.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ident, ok := s.byEmail[identity.NormalizeEmail(email)]
	if !ok {
		return nil, identity.ErrNotFound
	}
	return ident.Clone(), nil
}

func (s *Store) Save(_ context.Context, ident *identity.Identity) (*identity.Identity, error) {
	if ident == nil {
		return nil, identity.ErrNotFound
	}
	rec := ident.Clone()
	rec.Email = identity.NormalizeEmail(rec.Email)
	now := s.now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == 0 {
		if _, taken := s.byEmail[rec.Email]; taken {
			return nil, identity.ErrDuplicateEmail
		}
		s.nextID++
		rec.ID = s.nextID
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
		rec.UpdatedAt = now
		s.byEmail[rec.Email] = rec
		return rec.Clone(), nil
	}

	current := s.findByID(rec.ID)
	if current == nil {
		return nil, identity.ErrNotFound
	}
	if current.Email != rec.Email {
		if _, taken := s.byEmail[rec.Email]; taken {
			return nil, identity.ErrDuplicateEmail
		}
		delete(s.byEmail, current.Email)
	}
	rec.CreatedAt = current.CreatedAt
	rec.UpdatedAt = now
	s.byEmail[rec.Email] = rec
	return rec.Clone(), nil
}

// Delete removes the identity with email. The engine never deletes; this is
// used by administrative tooling and tests.
func (s *Store) Delete(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byEmail, identity.NormalizeEmail(email))
	return nil
}

// Len returns the number of stored identities.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byEmail)
}

func (s *Store) findByID(id int64) *identity.Identity {
	for _, ident := range s.byEmail {
		if ident.ID == id {
			return ident
		}
	}
	return nil
}
