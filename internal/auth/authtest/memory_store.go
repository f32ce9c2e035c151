// Package authtest provides an in-memory auth.UserStore for tests.
package authtest

import (
	"context"
	"sync"
	"time"

	"contacts-api/internal/auth"
)

type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[string]auth.User

	// Err, when set, is returned by every method.
	Err error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]auth.User)}
}

func (s *MemoryStore) FindByEmail(_ context.Context, email string) (auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return auth.User{}, s.Err
	}
	user, ok := s.users[email]
	if !ok {
		return auth.User{}, auth.ErrUserNotFound
	}
	return user, nil
}

func (s *MemoryStore) Insert(_ context.Context, user auth.User) (auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return auth.User{}, s.Err
	}
	if _, ok := s.users[user.Email]; ok {
		return auth.User{}, auth.ErrEmailTaken
	}

	s.nextID++
	now := time.Now().UTC()
	user.ID = s.nextID
	user.CreatedAt = now
	user.UpdatedAt = now
	s.users[user.Email] = user
	return user, nil
}

func (s *MemoryStore) Update(_ context.Context, user auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return s.Err
	}
	for email, existing := range s.users {
		if existing.ID != user.ID {
			continue
		}
		existing.Username = user.Username
		existing.PasswordHash = user.PasswordHash
		existing.Confirmed = existing.Confirmed || user.Confirmed
		existing.Avatar = user.Avatar
		existing.UpdatedAt = time.Now().UTC()
		s.users[email] = existing
		return nil
	}
	return auth.ErrUserNotFound
}

// Delete removes the user with the given email, if any.
func (s *MemoryStore) Delete(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, email)
}

// Put stores user as-is, replacing any user with the same email.
func (s *MemoryStore) Put(user auth.User) auth.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID == 0 {
		s.nextID++
		user.ID = s.nextID
	}
	s.users[user.Email] = user
	return user
}
