// AngelaMos | 2026
// store.go

// Package usertest provides an in-memory user.Store for tests in packages
// that sit above the user service.
package usertest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/carterperez-dev/usergate/internal/core"
	"github.com/carterperez-dev/usergate/internal/user"
)

type Store struct {
	mu    sync.Mutex
	users []user.User
	now   func() time.Time
}

func NewStore() *Store {
	return &Store{now: time.Now}
}

func (s *Store) FindAll(_ context.Context) ([]user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]user.User, 0, len(s.users))
	for i := len(s.users) - 1; i >= 0; i-- {
		out = append(out, s.users[i])
	}
	return out, nil
}

func (s *Store) FindByID(_ context.Context, id string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(func(u *user.User) bool { return u.ID == id }); i >= 0 {
		u := s.users[i]
		return &u, nil
	}
	return nil, nil
}

func (s *Store) FindByEmail(_ context.Context, email string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(func(u *user.User) bool { return u.Email == email }); i >= 0 {
		u := s.users[i]
		return &u, nil
	}
	return nil, nil
}

func (s *Store) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	u, err := s.FindByEmail(ctx, email)
	return u != nil, err
}

func (s *Store) Create(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(func(existing *user.User) bool { return existing.Email == u.Email }) >= 0 {
		return fmt.Errorf("create user: %w", core.ErrDuplicateKey)
	}

	u.ApplyDefaults()
	now := s.now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	s.users = append(s.users, *u)
	return nil
}

func (s *Store) Update(
	_ context.Context,
	id string,
	patch user.Patch,
) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(func(u *user.User) bool { return u.ID == id })
	if i < 0 {
		return nil, nil
	}

	if patch.Email != nil {
		clash := s.indexOf(func(u *user.User) bool {
			return u.Email == *patch.Email && u.ID != id
		})
		if clash >= 0 {
			return nil, fmt.Errorf("update user: %w", core.ErrDuplicateKey)
		}
	}

	if patch.IsEmpty() {
		u := s.users[i]
		return &u, nil
	}

	patch.Apply(&s.users[i])
	s.users[i].UpdatedAt = s.now().UTC()

	u := s.users[i]
	return &u, nil
}

func (s *Store) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(func(u *user.User) bool { return u.ID == id })
	if i < 0 {
		return false, nil
	}

	s.users = append(s.users[:i], s.users[i+1:]...)
	return true, nil
}

// Len reports how many users are stored.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

func (s *Store) indexOf(match func(*user.User) bool) int {
	for i := range s.users {
		if match(&s.users[i]) {
			return i
		}
	}
	return -1
}

var _ user.Store = (*Store)(nil)
